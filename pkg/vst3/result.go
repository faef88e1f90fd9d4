package vst3

import (
	"errors"
	"fmt"
)

// Result is the tresult returned by every ABI method.
type Result int32

// Sentinel errors for the result codes hosts need to tell apart.
var (
	ErrNoInterface     = errors.New("vst3: no interface")
	ErrFalse           = errors.New("vst3: result false")
	ErrInvalidArgument = errors.New("vst3: invalid argument")
	ErrNotImplemented  = errors.New("vst3: not implemented")
	ErrInternal        = errors.New("vst3: internal error")
	ErrNotInitialized  = errors.New("vst3: not initialized")
	ErrOutOfMemory     = errors.New("vst3: out of memory")
)

// ResultError carries a result code that did not map to a known sentinel.
type ResultError struct {
	Code Result
}

func (e *ResultError) Error() string {
	return fmt.Sprintf("vst3: result 0x%08x", uint32(e.Code))
}

// Err converts a result into an error, nil for ResultOk.
func (r Result) Err() error {
	switch r {
	case ResultOk:
		return nil
	case NoInterface:
		return ErrNoInterface
	case ResultFalse:
		return ErrFalse
	case InvalidArgument:
		return ErrInvalidArgument
	case NotImplemented:
		return ErrNotImplemented
	case InternalError:
		return ErrInternal
	case NotInitialized:
		return ErrNotInitialized
	case OutOfMemory:
		return ErrOutOfMemory
	}
	return &ResultError{Code: r}
}

// ResultOf maps an error produced by a Go host object back onto a result
// code before it crosses into native code.
func ResultOf(err error) Result {
	var re *ResultError
	switch {
	case err == nil:
		return ResultOk
	case errors.Is(err, ErrNoInterface):
		return NoInterface
	case errors.Is(err, ErrFalse):
		return ResultFalse
	case errors.Is(err, ErrInvalidArgument):
		return InvalidArgument
	case errors.Is(err, ErrNotImplemented):
		return NotImplemented
	case errors.Is(err, ErrNotInitialized):
		return NotInitialized
	case errors.Is(err, ErrOutOfMemory):
		return OutOfMemory
	case errors.As(err, &re):
		return re.Code
	}
	return InternalError
}

// IsNotImplemented reports whether err means an optional capability is
// absent: either the call is unimplemented or the interface is missing.
func IsNotImplemented(err error) bool {
	return errors.Is(err, ErrNotImplemented) || errors.Is(err, ErrNoInterface)
}
