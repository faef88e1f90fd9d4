package config

import "github.com/spf13/viper"

func setDefaults(v *viper.Viper) {
	v.SetDefault("host.name", "vst3host")

	v.SetDefault("audio.samplerate", 48000.0)
	v.SetDefault("audio.maxblocksize", 512)
	v.SetDefault("audio.precision", 32)

	v.SetDefault("midi.queuecapacity", 1024)
	v.SetDefault("midi.outputcapacity", 512)

	v.SetDefault("plugins.searchpaths", []string{})
	v.SetDefault("plugins.localdir", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("metrics.enabled", false)
}
