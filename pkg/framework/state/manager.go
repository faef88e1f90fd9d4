// Package state stores a plugin instance's opaque component and controller
// state in a container keyed by class id.
package state

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/justyntemme/vst3host/pkg/vst3"
)

const (
	magic   = "VST3HOST"
	version = uint32(1)
)

var (
	// ErrInvalidFormat is returned for data that is not a state container.
	ErrInvalidFormat = errors.New("state: invalid format")
	// ErrClassMismatch is returned when a container belongs to another class.
	ErrClassMismatch = errors.New("state: class id mismatch")
)

// Blob is a decoded state container. Component and Controller hold the
// plugin's bytes exactly as it produced them.
type Blob struct {
	ClassID    vst3.TUID
	Component  []byte
	Controller []byte
}

// MarshalBinary encodes the container: magic, version, class id, then the
// component and controller chunks, each prefixed by its length.
func (b *Blob) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(magic)
	_ = binary.Write(&buf, binary.LittleEndian, version)
	buf.Write(b.ClassID[:])
	for _, chunk := range [][]byte{b.Component, b.Controller} {
		_ = binary.Write(&buf, binary.LittleEndian, uint32(len(chunk)))
		buf.Write(chunk)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a container produced by MarshalBinary.
func (b *Blob) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)
	header := make([]byte, len(magic))
	if _, err := io.ReadFull(r, header); err != nil || string(header) != magic {
		return ErrInvalidFormat
	}
	var v uint32
	if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
		return ErrInvalidFormat
	}
	if v > version {
		return fmt.Errorf("%w: version %d is newer than supported version %d", ErrInvalidFormat, v, version)
	}
	if _, err := io.ReadFull(r, b.ClassID[:]); err != nil {
		return ErrInvalidFormat
	}
	chunks := make([][]byte, 2)
	for i := range chunks {
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return ErrInvalidFormat
		}
		if int64(n) > int64(r.Len()) {
			return fmt.Errorf("%w: chunk of %d bytes exceeds data", ErrInvalidFormat, n)
		}
		chunks[i] = make([]byte, n)
		_, _ = io.ReadFull(r, chunks[i])
	}
	b.Component, b.Controller = chunks[0], chunks[1]
	return nil
}

// Manager saves and restores the state of one instance. For a plugin whose
// component is also its controller only the component chunk is used.
type Manager struct {
	classID vst3.TUID
	comp    vst3.Component
	ctrl    vst3.EditController
	single  bool
	dirty   atomic.Bool
}

// NewManager creates a manager for comp and ctrl. ctrl may be nil.
func NewManager(classID vst3.TUID, comp vst3.Component, ctrl vst3.EditController, single bool) *Manager {
	return &Manager{classID: classID, comp: comp, ctrl: ctrl, single: single}
}

// MarkDirty records that the state differs from the last saved one.
func (m *Manager) MarkDirty() { m.dirty.Store(true) }

// Dirty reports whether the state changed since the last Save or Load.
func (m *Manager) Dirty() bool { return m.dirty.Load() }

// Save reads both halves and encodes them.
func (m *Manager) Save() ([]byte, error) {
	b := Blob{ClassID: m.classID}
	s := vst3.NewMemoryStream(nil)
	defer s.Release()
	if err := m.comp.GetState(s); err != nil {
		return nil, fmt.Errorf("component state: %w", err)
	}
	b.Component = s.Bytes()

	if m.ctrl != nil && !m.single {
		cs := vst3.NewMemoryStream(nil)
		defer cs.Release()
		switch err := m.ctrl.GetState(cs); {
		case err == nil:
			b.Controller = cs.Bytes()
		case !vst3.IsNotImplemented(err):
			return nil, fmt.Errorf("controller state: %w", err)
		}
	}
	data, err := b.MarshalBinary()
	if err != nil {
		return nil, err
	}
	m.dirty.Store(false)
	return data, nil
}

// Load decodes data, checks the class id and restores both halves. The
// controller is then synchronized with the restored component state.
func (m *Manager) Load(data []byte) error {
	var b Blob
	if err := b.UnmarshalBinary(data); err != nil {
		return err
	}
	if b.ClassID != m.classID {
		return fmt.Errorf("%w: state for %s, instance is %s", ErrClassMismatch, b.ClassID, m.classID)
	}
	s := vst3.NewMemoryStream(b.Component)
	defer s.Release()
	if err := m.comp.SetState(s); err != nil {
		return fmt.Errorf("restore component state: %w", err)
	}
	if err := m.pushComponentState(b.Component); err != nil {
		return err
	}
	if m.ctrl != nil && !m.single && len(b.Controller) > 0 {
		cs := vst3.NewMemoryStream(b.Controller)
		defer cs.Release()
		if err := m.ctrl.SetState(cs); err != nil && !vst3.IsNotImplemented(err) {
			return fmt.Errorf("restore controller state: %w", err)
		}
	}
	m.dirty.Store(false)
	return nil
}

// SyncController hands the component's current state to the controller.
func (m *Manager) SyncController() error {
	if m.ctrl == nil {
		return nil
	}
	s := vst3.NewMemoryStream(nil)
	defer s.Release()
	if err := m.comp.GetState(s); err != nil {
		if vst3.IsNotImplemented(err) {
			return nil
		}
		return fmt.Errorf("component state: %w", err)
	}
	return m.pushComponentState(s.Bytes())
}

func (m *Manager) pushComponentState(data []byte) error {
	if m.ctrl == nil {
		return nil
	}
	s := vst3.NewMemoryStream(data)
	defer s.Release()
	if err := m.ctrl.SetComponentState(s); err != nil && !vst3.IsNotImplemented(err) {
		return fmt.Errorf("sync controller: %w", err)
	}
	return nil
}
