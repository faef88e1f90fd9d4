//go:build !linux && !darwin && !windows

package module

import "errors"

func openNative(path string) (Library, error) {
	return nil, errors.New("native plugins are not supported on this platform")
}
