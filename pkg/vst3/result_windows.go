//go:build windows

package vst3

const comCompatible = true

// Result codes (HRESULT values)
const (
	NoInterface     Result = -0x7fffbffe // E_NOINTERFACE 0x80004002
	ResultOk        Result = 0
	ResultTrue      Result = ResultOk
	ResultFalse     Result = 1
	InvalidArgument Result = -0x7ff8ffa9 // E_INVALIDARG 0x80070057
	NotImplemented  Result = -0x7fffbfff // E_NOTIMPL 0x80004001
	InternalError   Result = -0x7fffbffb // E_FAIL 0x80004005
	NotInitialized  Result = -0x7fff0001 // E_UNEXPECTED 0x8000FFFF
	OutOfMemory     Result = -0x7ff8fff2 // E_OUTOFMEMORY 0x8007000E
)
