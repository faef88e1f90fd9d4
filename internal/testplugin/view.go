package testplugin

import (
	"sync"

	"github.com/justyntemme/vst3host/pkg/vst3"
)

// View is a fake editor that only supports the X11 platform type.
type View struct {
	vst3.RefCount
	Log *Log

	mu       sync.Mutex
	parent   uintptr
	rect     vst3.ViewRect
	frame    vst3.PlugFrame
	scale    float32
	attached bool

	// Released is closed when the last reference is dropped.
	Released chan struct{}
}

// NewView creates a view with one reference.
func NewView(log *Log) *View {
	v := &View{Log: log, rect: vst3.ViewRect{Right: 400, Bottom: 300}, Released: make(chan struct{})}
	v.Init()
	v.OnFinalRelease = func() {
		log.Add("view.release")
		close(v.Released)
	}
	return v
}

// QueryInterface implements vst3.Unknown.
func (v *View) QueryInterface(iid vst3.TUID) (vst3.Unknown, error) {
	switch iid {
	case vst3.IIDFUnknown, vst3.IIDPlugView, vst3.IIDPlugViewContentScaleSupport:
		v.AddRef()
		return v, nil
	}
	return nil, vst3.ErrNoInterface
}

// IsPlatformTypeSupported implements vst3.PlugView.
func (v *View) IsPlatformTypeSupported(platform string) error {
	if platform == vst3.PlatformTypeX11 {
		return nil
	}
	return vst3.ErrFalse
}

// Attached implements vst3.PlugView.
func (v *View) Attached(parent uintptr, platform string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.attached {
		return vst3.ErrFalse
	}
	v.parent, v.attached = parent, true
	v.Log.Add("view.attached")
	return nil
}

// Removed implements vst3.PlugView.
func (v *View) Removed() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.attached = false
	if v.frame != nil {
		v.frame.Release()
		v.frame = nil
	}
	v.Log.Add("view.removed")
	return nil
}

// Size implements vst3.PlugView.
func (v *View) Size() (vst3.ViewRect, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.rect, nil
}

// OnSize implements vst3.PlugView.
func (v *View) OnSize(r vst3.ViewRect) error {
	v.mu.Lock()
	v.rect = r
	v.mu.Unlock()
	return nil
}

// OnFocus implements vst3.PlugView.
func (v *View) OnFocus(state bool) error { return nil }

// SetFrame implements vst3.PlugView.
func (v *View) SetFrame(frame vst3.PlugFrame) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.frame != nil {
		v.frame.Release()
	}
	if frame != nil {
		frame.AddRef()
	}
	v.frame = frame
	return nil
}

// CanResize implements vst3.PlugView.
func (v *View) CanResize() error { return nil }

// SetContentScaleFactor implements vst3.ContentScaleSupport.
func (v *View) SetContentScaleFactor(factor float32) error {
	v.mu.Lock()
	v.scale = factor
	v.mu.Unlock()
	return nil
}

// Resize asks the host frame to resize the view.
func (v *View) Resize(r vst3.ViewRect) error {
	v.mu.Lock()
	frame := v.frame
	v.mu.Unlock()
	if frame == nil {
		return vst3.ErrNotInitialized
	}
	return frame.ResizeView(v, &r)
}

// State returns the attachment state, bounds and content scale.
func (v *View) State() (attached bool, parent uintptr, rect vst3.ViewRect, scale float32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.attached, v.parent, v.rect, v.scale
}
