package module

import (
	"os"
	"path/filepath"
)

func platformDirs() []string {
	dirs := []string{"/Library/Audio/Plug-Ins/VST3"}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append([]string{filepath.Join(home, "Library", "Audio", "Plug-Ins", "VST3")}, dirs...)
	}
	return dirs
}

// Mac bundles are universal binaries in a single directory.
func bundleLayout() layout {
	return layout{
		archDirs: []string{"MacOS"},
		binary:   func(name string) string { return name },
	}
}
