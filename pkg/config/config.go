// Package config loads host settings from defaults, an optional YAML file
// and VST3HOST_ environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/justyntemme/vst3host/pkg/framework/debug"
	"github.com/justyntemme/vst3host/pkg/framework/process"
)

// EnvPrefix prefixes every environment variable, e.g. VST3HOST_AUDIO_SAMPLERATE.
const EnvPrefix = "VST3HOST"

// Config holds every host setting.
type Config struct {
	Host struct {
		Name string `mapstructure:"name"`
	} `mapstructure:"host"`

	Audio struct {
		SampleRate   float64 `mapstructure:"samplerate"`
		MaxBlockSize int     `mapstructure:"maxblocksize"`
		Precision    int     `mapstructure:"precision"` // bits per sample, only 32 is supported
	} `mapstructure:"audio"`

	MIDI struct {
		QueueCapacity  int `mapstructure:"queuecapacity"`
		OutputCapacity int `mapstructure:"outputcapacity"`
	} `mapstructure:"midi"`

	Plugins struct {
		SearchPaths []string `mapstructure:"searchpaths"`
		LocalDir    string   `mapstructure:"localdir"`
	} `mapstructure:"plugins"`

	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`

	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"metrics"`
}

// Load reads the configuration. path may be empty to skip the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration without file or environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}

// Validate rejects settings the host cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.samplerate must be positive, got %v", c.Audio.SampleRate))
	}
	if c.Audio.MaxBlockSize <= 0 {
		errs = append(errs, fmt.Errorf("audio.maxblocksize must be positive, got %d", c.Audio.MaxBlockSize))
	}
	if c.Audio.Precision != 32 {
		errs = append(errs, fmt.Errorf("audio.precision %d is not supported, only 32", c.Audio.Precision))
	}
	if c.MIDI.QueueCapacity <= 0 {
		errs = append(errs, errors.New("midi.queuecapacity must be positive"))
	}
	if c.MIDI.OutputCapacity <= 0 {
		errs = append(errs, errors.New("midi.outputcapacity must be positive"))
	}
	if _, err := debug.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	return multierr.Combine(errs...)
}

// LogLevel returns the parsed log level.
func (c *Config) LogLevel() debug.LogLevel {
	l, _ := debug.ParseLevel(c.Log.Level)
	return l
}

// Process returns the sizing of an instance's audio processor.
func (c *Config) Process() process.Config {
	return process.Config{
		SampleRate:    c.Audio.SampleRate,
		MaxBlock:      c.Audio.MaxBlockSize,
		MIDIQueue:     c.MIDI.QueueCapacity,
		EventCapacity: c.MIDI.OutputCapacity,
	}
}
