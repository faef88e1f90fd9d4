//go:build !windows

package vst3

const comCompatible = false

// Result codes
const (
	NoInterface     Result = -1
	ResultOk        Result = 0
	ResultTrue      Result = ResultOk
	ResultFalse     Result = 1
	InvalidArgument Result = 2
	NotImplemented  Result = 3
	InternalError   Result = 4
	NotInitialized  Result = 5
	OutOfMemory     Result = 6
)
