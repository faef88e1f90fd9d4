package module

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// BundleExt is the extension of plugin bundles and single-file modules.
const BundleExt = ".vst3"

// SearchPaths returns the directories scanned for plugins: the platform's
// well-known locations, then localDir and extra when set.
func SearchPaths(localDir string, extra ...string) []string {
	dirs := platformDirs()
	if localDir != "" {
		dirs = append(dirs, localDir)
	}
	dirs = append(dirs, extra...)
	out := dirs[:0]
	seen := make(map[string]bool, len(dirs))
	for _, d := range dirs {
		d = filepath.Clean(d)
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out
}

// Scan returns every plugin path below roots, sorted. Bundles are not
// descended into and roots that do not exist are skipped.
func Scan(roots []string) ([]string, error) {
	var found []string
	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == root && errors.Is(err, fs.ErrNotExist) {
					return filepath.SkipDir
				}
				return nil
			}
			if path != root && strings.EqualFold(filepath.Ext(path), BundleExt) {
				found = append(found, path)
				if d.IsDir() {
					return filepath.SkipDir
				}
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", root, err)
		}
	}
	slices.Sort(found)
	return slices.Compact(found), nil
}

// Resolve returns the binary to load for path. Symbolic links are resolved
// first; a regular file is returned as is, a bundle directory resolves to
// the binary in its architecture subdirectory.
func Resolve(path string) (string, error) {
	real, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	fi, err := os.Stat(real)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if !fi.IsDir() {
		return real, nil
	}
	return resolveBundle(real, bundleLayout())
}

// layout describes where a platform keeps the binary inside a bundle.
type layout struct {
	// archDirs are tried in order below Contents.
	archDirs []string
	// binary names the file inside an arch directory for a bundle name.
	binary func(name string) string
}

func resolveBundle(dir string, l layout) (string, error) {
	name := strings.TrimSuffix(filepath.Base(dir), filepath.Ext(dir))
	for _, arch := range l.archDirs {
		candidate := filepath.Join(dir, "Contents", arch, l.binary(name))
		if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s (tried %s)", ErrNoArch, dir, strings.Join(l.archDirs, ", "))
}
