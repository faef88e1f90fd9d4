package module

import (
	"os"
	"path/filepath"
	"runtime"
)

func platformDirs() []string {
	dirs := []string{"/usr/lib/vst3", "/usr/local/lib/vst3"}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append([]string{filepath.Join(home, ".vst3")}, dirs...)
	}
	return dirs
}

var linuxArch = map[string]string{
	"amd64":   "x86_64-linux",
	"386":     "i386-linux",
	"arm64":   "aarch64-linux",
	"arm":     "armv7l-linux",
	"riscv64": "riscv64-linux",
}

func bundleLayout() layout {
	return layout{
		archDirs: []string{linuxArch[runtime.GOARCH]},
		binary:   func(name string) string { return name + ".so" },
	}
}
