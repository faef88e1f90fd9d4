package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/justyntemme/vst3host/pkg/config"
	"github.com/justyntemme/vst3host/pkg/framework/debug"
	"github.com/justyntemme/vst3host/pkg/host"
	"github.com/justyntemme/vst3host/pkg/metrics"
)

// app carries the settings shared by every command.
type app struct {
	cfgFile  string
	envFile  string
	level    string
	cfg      *config.Config
	log      *debug.Logger
	hostOpts []host.Option
	gatherer prometheus.Gatherer
}

func newApp(logOut io.Writer) *app {
	return &app{
		log:      debug.New(logOut, "vst3host", debug.DefaultFlags),
		gatherer: prometheus.DefaultGatherer,
	}
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "vst3host",
		Short:        "Inspect and probe VST3 plugins",
		SilenceUsage: true,
	}
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return a.setup()
	}
	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "YAML configuration file")
	flags.StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before the environment is read")
	flags.StringVar(&a.level, "log-level", "", "log level, overrides log.level")

	root.AddCommand(newScanCommand(a), newClassesCommand(a), newProbeCommand(a))
	return root
}

// setup loads the dotenv file, then the configuration, so variables from
// the file are seen as environment by the config loader.
func (a *app) setup() error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", a.envFile, err)
		}
	}
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.level != "" {
		cfg.Log.Level = a.level
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	a.cfg = cfg
	a.log.SetLevel(cfg.LogLevel())
	return nil
}

func (a *app) newHost() (*host.Host, error) {
	return host.New(a.cfg, a.log, a.hostOpts...)
}

// emit writes v as YAML, followed by a metrics document when metrics are
// enabled.
func (a *app) emit(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	if a.cfg.Metrics.Enabled {
		snap, err := metrics.Snapshot(a.gatherer)
		if err != nil {
			return fmt.Errorf("gather metrics: %w", err)
		}
		if err := enc.Encode(map[string]any{"metrics": snap}); err != nil {
			return err
		}
	}
	return enc.Close()
}
