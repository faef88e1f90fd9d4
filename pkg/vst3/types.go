// Package vst3 mirrors the VST3 binary interface in plain Go: interface IDs,
// result codes, the C-layout structs exchanged with plugins and the Go
// interfaces implemented by both native plugin wrappers and host objects.
package vst3

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Basic scalar types
type (
	ParamID            = uint32
	ParamValue         = float64
	Sample32           = float32
	Sample64           = float64
	TBool              = uint8
	SpeakerArrangement = uint64
	CtrlNumber         = int16
)

// TUID is a 128-bit class or interface identifier in the byte order the
// plugin expects on the current platform.
type TUID [16]byte

// InlineUID builds a TUID from the four 32-bit words used in the SDK headers.
// With COM compatibility (Windows) the first eight bytes are laid out in
// GUID order, elsewhere the words are stored big-endian.
func InlineUID(l1, l2, l3, l4 uint32) TUID {
	var t TUID
	if comCompatible {
		t[0], t[1], t[2], t[3] = byte(l1), byte(l1>>8), byte(l1>>16), byte(l1>>24)
		t[4], t[5], t[6], t[7] = byte(l2>>16), byte(l2>>24), byte(l2), byte(l2>>8)
	} else {
		putWord(t[0:4], l1)
		putWord(t[4:8], l2)
	}
	putWord(t[8:12], l3)
	putWord(t[12:16], l4)
	return t
}

func putWord(b []byte, v uint32) {
	b[0], b[1], b[2], b[3] = byte(v>>24), byte(v>>16), byte(v>>8), byte(v)
}

// Words returns the four 32-bit words InlineUID was built from.
func (t TUID) Words() (l1, l2, l3, l4 uint32) {
	word := func(b []byte) uint32 {
		return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	}
	if comCompatible {
		l1 = uint32(t[0]) | uint32(t[1])<<8 | uint32(t[2])<<16 | uint32(t[3])<<24
		l2 = uint32(t[6]) | uint32(t[7])<<8 | uint32(t[4])<<16 | uint32(t[5])<<24
	} else {
		l1, l2 = word(t[0:4]), word(t[4:8])
	}
	return l1, l2, word(t[8:12]), word(t[12:16])
}

// IsZero reports whether the id is all zero bytes.
func (t TUID) IsZero() bool {
	return t == TUID{}
}

// String formats the id the way the SDK prints class ids: 32 upper-case hex
// digits of the four words, independent of platform byte order.
func (t TUID) String() string {
	l1, l2, l3, l4 := t.Words()
	return fmt.Sprintf("%08X%08X%08X%08X", l1, l2, l3, l4)
}

// ParseTUID accepts either the SDK form (32 hex digits) or a dashed UUID.
func ParseTUID(s string) (TUID, error) {
	s = strings.TrimSpace(s)
	if len(s) == 32 {
		raw, err := hex.DecodeString(s)
		if err != nil {
			return TUID{}, fmt.Errorf("parse class id %q: %w", s, err)
		}
		return uidFromWords(raw), nil
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return TUID{}, fmt.Errorf("parse class id %q: %w", s, err)
	}
	return uidFromWords(u[:]), nil
}

func uidFromWords(raw []byte) TUID {
	word := func(b []byte) uint32 {
		return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	}
	return InlineUID(word(raw[0:4]), word(raw[4:8]), word(raw[8:12]), word(raw[12:16]))
}

// Bool converts a Go bool to the ABI boolean.
func Bool(b bool) TBool {
	if b {
		return 1
	}
	return 0
}

// Class categories
const (
	CategoryAudioEffect         = "Audio Module Class"
	CategoryComponentController = "Component Controller Class"
)

// Editor view type requested from CreateView.
const ViewTypeEditor = "editor"

// Platform UI types accepted by IPlugView.
const (
	PlatformTypeHWND   = "HWND"
	PlatformTypeNSView = "NSView"
	PlatformTypeX11    = "X11EmbedWindowID"
)
