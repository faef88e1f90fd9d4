package vst3

import "unicode/utf16"

// String128 is the fixed-width UTF-16 string used in ABI structs.
type String128 [128]uint16

// NewString128 encodes s, truncating it to 127 code units.
func NewString128(s string) String128 {
	var out String128
	out.Set(s)
	return out
}

// Set stores s, always leaving a terminating zero.
func (s *String128) Set(v string) {
	*s = String128{}
	units := utf16.Encode([]rune(v))
	if len(units) > len(s)-1 {
		units = units[:len(s)-1]
	}
	copy(s[:], units)
}

// String decodes up to the first zero code unit.
func (s *String128) String() string {
	return UTF16ToString(s[:])
}

// UTF16ToString decodes a zero-terminated UTF-16 buffer.
func UTF16ToString(buf []uint16) string {
	for i, c := range buf {
		if c == 0 {
			buf = buf[:i]
			break
		}
	}
	return string(utf16.Decode(buf))
}

// Char8ToString decodes a zero-terminated char8 buffer.
func Char8ToString(buf []byte) string {
	for i, c := range buf {
		if c == 0 {
			return string(buf[:i])
		}
	}
	return string(buf)
}

// CopyChar8 writes s into a fixed char8 buffer with a terminating zero.
func CopyChar8(dst []byte, s string) {
	clear(dst)
	if len(dst) == 0 {
		return
	}
	n := copy(dst[:len(dst)-1], s)
	dst[n] = 0
}
