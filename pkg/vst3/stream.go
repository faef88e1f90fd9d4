package vst3

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
)

// MemoryStream is the host's IBStream for component and controller state.
type MemoryStream struct {
	RefCount
	buf []byte
	pos int64
}

// NewMemoryStream creates a stream over a copy of data.
func NewMemoryStream(data []byte) *MemoryStream {
	s := &MemoryStream{buf: append([]byte(nil), data...)}
	s.Init()
	return s
}

// QueryInterface implements Unknown.
func (s *MemoryStream) QueryInterface(iid TUID) (Unknown, error) {
	if iid == IIDBStream || iid == IIDFUnknown {
		s.AddRef()
		return s, nil
	}
	return nil, ErrNoInterface
}

// Read reads data from the stream. At the end it returns 0 and io.EOF.
func (s *MemoryStream) Read(p []byte) (int, error) {
	if s.pos >= int64(len(s.buf)) {
		return 0, io.EOF
	}
	n := copy(p, s.buf[s.pos:])
	s.pos += int64(n)
	return n, nil
}

// Write writes data at the current position, growing the buffer.
func (s *MemoryStream) Write(p []byte) (int, error) {
	end := s.pos + int64(len(p))
	if end > int64(len(s.buf)) {
		if end > int64(cap(s.buf)) {
			grown := make([]byte, end, max(end, 2*int64(cap(s.buf))))
			copy(grown, s.buf)
			s.buf = grown
		} else {
			s.buf = s.buf[:end]
		}
	}
	copy(s.buf[s.pos:], p)
	s.pos = end
	return len(p), nil
}

// Seek implements io.Seeker.
func (s *MemoryStream) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = s.pos + offset
	case io.SeekEnd:
		next = int64(len(s.buf)) + offset
	default:
		return s.pos, ErrInvalidArgument
	}
	if next < 0 {
		return s.pos, ErrInvalidArgument
	}
	s.pos = next
	return next, nil
}

// Tell returns the current position.
func (s *MemoryStream) Tell() (int64, error) { return s.pos, nil }

// Bytes returns the stream contents.
func (s *MemoryStream) Bytes() []byte { return s.buf }

// WriteInt32 writes an int32 in little-endian order.
func (s *MemoryStream) WriteInt32(v int32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	_, err := s.Write(b[:])
	return err
}

// ReadInt32 reads an int32 in little-endian order.
func (s *MemoryStream) ReadInt32() (int32, error) {
	var b [4]byte
	if _, err := io.ReadFull(s, b[:]); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(b[:])), nil
}

// WriteFloat64 writes a float64 in little-endian order.
func (s *MemoryStream) WriteFloat64(v float64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	_, err := s.Write(b[:])
	return err
}

// ReadFloat64 reads a float64 in little-endian order.
func (s *MemoryStream) ReadFloat64() (float64, error) {
	var b [8]byte
	if _, err := io.ReadFull(s, b[:]); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b[:])), nil
}

// WriteBytes writes a length-prefixed byte slice.
func (s *MemoryStream) WriteBytes(p []byte) error {
	if err := s.WriteInt32(int32(len(p))); err != nil {
		return err
	}
	_, err := s.Write(p)
	return err
}

// ReadBytes reads a length-prefixed byte slice.
func (s *MemoryStream) ReadBytes() ([]byte, error) {
	n, err := s.ReadInt32()
	if err != nil {
		return nil, err
	}
	if n < 0 || int64(n) > int64(len(s.buf))-s.pos {
		return nil, errors.New("vst3: corrupt length prefix")
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(s, out); err != nil {
		return nil, err
	}
	return out, nil
}

// WriteString writes a length-prefixed string.
func (s *MemoryStream) WriteString(str string) error {
	return s.WriteBytes([]byte(str))
}

// ReadString reads a length-prefixed string.
func (s *MemoryStream) ReadString() (string, error) {
	b, err := s.ReadBytes()
	return string(b), err
}

// ReadAll reads everything from the current position to the end of s.
func ReadAll(s Stream) ([]byte, error) {
	var out []byte
	chunk := make([]byte, 4096)
	for {
		n, err := s.Read(chunk)
		out = append(out, chunk[:n]...)
		if errors.Is(err, io.EOF) || (err == nil && n == 0) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
	}
}
