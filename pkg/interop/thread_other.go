//go:build !linux && !windows && !darwin

package interop

// threadID has no implementation here, so every caller counts as foreign
// and all cross-context work is marshaled.
func threadID() uint64 { return 0 }
