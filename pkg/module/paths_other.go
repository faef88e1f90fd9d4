//go:build !linux && !darwin && !windows

package module

func platformDirs() []string { return nil }

func bundleLayout() layout {
	return layout{binary: func(name string) string { return name }}
}
