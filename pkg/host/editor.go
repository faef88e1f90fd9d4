package host

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/justyntemme/vst3host/pkg/interop"
	"github.com/justyntemme/vst3host/pkg/vst3"
)

var (
	// ErrNoEditor is returned when the plugin has no editor view.
	ErrNoEditor = errors.New("host: plugin has no editor")
	// ErrEditorOpen is returned by ShowEditor while the editor is shown.
	ErrEditorOpen = errors.New("host: editor already open")
	// ErrPlatform is returned when the view refuses the window system.
	ErrPlatform = errors.New("host: platform type not supported by editor")
)

// editor is the shown view of an instance.
type editor struct {
	mu    sync.Mutex
	view  *interop.Ref
	frame *plugFrame
	size  vst3.ViewRect
	scale float32
	// onResize observes size changes requested by the plugin.
	onResize func(vst3.ViewRect)
}

// plugFrame lets the view ask for a new size.
type plugFrame struct {
	vst3.RefCount
	inst *Instance
}

func newPlugFrame(i *Instance) *plugFrame {
	f := &plugFrame{inst: i}
	f.Init()
	return f
}

func (f *plugFrame) QueryInterface(iid vst3.TUID) (vst3.Unknown, error) {
	switch iid {
	case vst3.IIDFUnknown, vst3.IIDPlugFrame:
		f.AddRef()
		return f, nil
	}
	return nil, vst3.ErrNoInterface
}

// ResizeView grants every request; the embedding window follows through
// the resize callback.
func (f *plugFrame) ResizeView(view vst3.PlugView, rect *vst3.ViewRect) error {
	if rect == nil {
		return vst3.ErrInvalidArgument
	}
	e := &f.inst.editor
	e.mu.Lock()
	v, _ := interop.As[vst3.PlugView](e.view)
	if v == nil {
		e.mu.Unlock()
		return vst3.ErrFalse
	}
	e.size = *rect
	cb := e.onResize
	e.mu.Unlock()

	if err := v.OnSize(*rect); err != nil && !vst3.IsNotImplemented(err) {
		return err
	}
	if cb != nil {
		cb(*rect)
	}
	return nil
}

// OnEditorResize sets the function called when the plugin resizes its
// editor.
func (i *Instance) OnEditorResize(fn func(vst3.ViewRect)) {
	i.editor.mu.Lock()
	i.editor.onResize = fn
	i.editor.mu.Unlock()
}

// ShowEditor creates the editor view and attaches it to the native window
// parent of the given platform type. Non-empty bounds are applied when the
// view is resizable. It returns the size the view settled on.
func (i *Instance) ShowEditor(parent uintptr, platform string, bounds vst3.ViewRect) (vst3.ViewRect, error) {
	var size vst3.ViewRect
	err := i.call(func() (err error) {
		size, err = i.showEditor(parent, platform, bounds)
		return err
	})
	return size, err
}

func (i *Instance) showEditor(parent uintptr, platform string, bounds vst3.ViewRect) (vst3.ViewRect, error) {
	e := &i.editor
	e.mu.Lock()
	open := e.view != nil
	scale := e.scale
	e.mu.Unlock()
	if open {
		return vst3.ViewRect{}, ErrEditorOpen
	}

	view, err := i.prov.Controller().CreateView(vst3.ViewTypeEditor)
	if err != nil || view == nil {
		return vst3.ViewRect{}, fmt.Errorf("%w: %v", ErrNoEditor, err)
	}
	ref := i.host.table.WrapUnique(view)
	if err := view.IsPlatformTypeSupported(platform); err != nil {
		ref.Release()
		return vst3.ViewRect{}, fmt.Errorf("%w: %s", ErrPlatform, platform)
	}

	frame := newPlugFrame(i)
	e.mu.Lock()
	e.view, e.frame = ref, frame
	e.mu.Unlock()
	if err := ignoreOptional(view.SetFrame(frame)); err != nil {
		i.log.Debug("view refused frame", zap.Error(err))
	}
	if scale > 0 {
		applyScale(view, scale)
	}
	if err := view.Attached(parent, platform); err != nil {
		_ = i.hideEditor()
		return vst3.ViewRect{}, fmt.Errorf("attach editor: %w", err)
	}
	if bounds.Width() > 0 && bounds.Height() > 0 && view.CanResize() == nil {
		if err := ignoreOptional(view.OnSize(bounds)); err != nil {
			i.log.Debug("editor resize refused", zap.Error(err))
		}
	}
	size, err := view.Size()
	if err != nil {
		size = bounds
	}
	e.mu.Lock()
	e.size = size
	e.mu.Unlock()
	return size, nil
}

// HideEditor detaches and releases the editor view.
func (i *Instance) HideEditor() error {
	return i.call(i.hideEditor)
}

func (i *Instance) hideEditor() error {
	e := &i.editor
	e.mu.Lock()
	ref, frame := e.view, e.frame
	e.view, e.frame = nil, nil
	e.mu.Unlock()
	if ref == nil {
		return nil
	}
	view, _ := interop.As[vst3.PlugView](ref)
	err := multierr.Append(ignoreOptional(view.SetFrame(nil)), ignoreOptional(view.Removed()))
	ref.Release()
	interop.Unexpose(frame)
	frame.Release()
	return err
}

// EditorOpen reports whether the editor is shown.
func (i *Instance) EditorOpen() bool {
	i.editor.mu.Lock()
	defer i.editor.mu.Unlock()
	return i.editor.view != nil
}

// EditorSize returns the current editor size.
func (i *Instance) EditorSize() vst3.ViewRect {
	i.editor.mu.Lock()
	defer i.editor.mu.Unlock()
	return i.editor.size
}

// SetContentScale sets the editor's content scale factor, now when it is
// shown and on every later ShowEditor. Views without scale support ignore
// it.
func (i *Instance) SetContentScale(factor float32) error {
	if factor <= 0 {
		return vst3.ErrInvalidArgument
	}
	return i.call(func() error {
		e := &i.editor
		e.mu.Lock()
		e.scale = factor
		view, _ := interop.As[vst3.PlugView](e.view)
		e.mu.Unlock()
		if view != nil {
			applyScale(view, factor)
		}
		return nil
	})
}

func applyScale(view vst3.PlugView, factor float32) {
	cs, err := vst3.Query[vst3.ContentScaleSupport](view, vst3.IIDPlugViewContentScaleSupport)
	if err != nil {
		return
	}
	defer cs.Release()
	_ = cs.SetContentScaleFactor(factor)
}
