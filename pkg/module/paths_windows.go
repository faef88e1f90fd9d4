package module

import (
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sys/windows"
)

func platformDirs() []string {
	var dirs []string
	if common := os.Getenv("CommonProgramFiles"); common != "" {
		dirs = append(dirs, filepath.Join(common, "VST3"))
	}
	if local := os.Getenv("LOCALAPPDATA"); local != "" {
		dirs = append(dirs, filepath.Join(local, "Programs", "Common", "VST3"))
	}
	return dirs
}

func bundleLayout() layout {
	return layout{
		archDirs: windowsArchDirs(runtime.GOARCH, nativeMachine()),
		binary:   func(name string) string { return name + ".vst3" },
	}
}

// nativeMachine returns the machine type of the OS, which differs from the
// process architecture under emulation.
func nativeMachine() uint16 {
	var process, native uint16
	if err := windows.IsWow64Process2(windows.CurrentProcess(), &process, &native); err != nil {
		return 0
	}
	return native
}

// windowsArchDirs lists the process architecture first, then the
// directories it can load in compatibility mode.
func windowsArchDirs(goarch string, machine uint16) []string {
	switch goarch {
	case "arm64":
		return []string{"arm64-win", "arm64x-win"}
	case "386":
		return []string{"x86-win"}
	}
	dirs := []string{"x86_64-win"}
	if machine == windows.IMAGE_FILE_MACHINE_ARM64 {
		dirs = append(dirs, "arm64ec-win", "arm64x-win")
	}
	return dirs
}
