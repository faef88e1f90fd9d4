// Package factory wraps a module's plugin factory and caches its class
// descriptors per module path.
package factory

import (
	"errors"
	"fmt"
	"slices"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/justyntemme/vst3host/pkg/framework/debug"
	"github.com/justyntemme/vst3host/pkg/vst3"
)

// ErrUnknownClass is returned by Find for an id the factory does not list.
var ErrUnknownClass = errors.New("factory: unknown class")

var log = debug.Default().Named("factory")

// Class descriptors never change while a module file stays the same, so the
// cache holds them until Invalidate.
var classes = cache.New(cache.NoExpiration, 0)

// Info is the decoded PFactoryInfo.
type Info struct {
	Vendor string
	URL    string
	Email  string
	Flags  int32
}

// Unicode reports whether the factory's strings are UTF-16.
func (i Info) Unicode() bool { return i.Flags&vst3.FactoryUnicode != 0 }

// Factory is the plugin factory of one module.
type Factory struct {
	path string
	raw  vst3.PluginFactory
}

// New wraps raw, the factory of the module at path. The caller keeps its
// reference.
func New(path string, raw vst3.PluginFactory) *Factory {
	return &Factory{path: path, raw: raw}
}

// Path returns the module path the factory belongs to.
func (f *Factory) Path() string { return f.path }

// Raw returns the wrapped factory.
func (f *Factory) Raw() vst3.PluginFactory { return f.raw }

// Info returns the factory's vendor information.
func (f *Factory) Info() (Info, error) {
	raw, err := f.raw.FactoryInfo()
	if err != nil {
		return Info{}, fmt.Errorf("factory info: %w", err)
	}
	return Info{
		Vendor: vst3.Char8ToString(raw.Vendor[:]),
		URL:    vst3.Char8ToString(raw.URL[:]),
		Email:  vst3.Char8ToString(raw.Email[:]),
		Flags:  raw.Flags,
	}, nil
}

// Classes returns every class the factory lists. Entries the factory
// refuses to describe are skipped. The result is cached by module path.
func (f *Factory) Classes() []vst3.ClassInfo {
	if v, ok := classes.Get(f.path); ok {
		return slices.Clone(v.([]vst3.ClassInfo))
	}
	n := f.raw.CountClasses()
	list := make([]vst3.ClassInfo, 0, max(n, 0))
	for i := int32(0); i < n; i++ {
		info, err := f.raw.ClassInfo(i)
		if err != nil {
			log.Debug("class info unavailable", zap.String("path", f.path), zap.Int32("index", i), zap.Error(err))
			continue
		}
		list = append(list, info)
	}
	classes.Set(f.path, list, cache.NoExpiration)
	return slices.Clone(list)
}

// ClassesOf returns the classes of one category, never nil.
func (f *Factory) ClassesOf(category string) []vst3.ClassInfo {
	out := []vst3.ClassInfo{}
	for _, c := range f.Classes() {
		if c.Category == category {
			out = append(out, c)
		}
	}
	return out
}

// Effects returns the audio processor classes.
func (f *Factory) Effects() []vst3.ClassInfo {
	return f.ClassesOf(vst3.CategoryAudioEffect)
}

// Find returns the descriptor of class id.
func (f *Factory) Find(id vst3.TUID) (vst3.ClassInfo, error) {
	for _, c := range f.Classes() {
		if c.ID == id {
			return c, nil
		}
	}
	return vst3.ClassInfo{}, fmt.Errorf("%w: %s", ErrUnknownClass, id)
}

// CreateInstance creates class cid and returns interface iid with one
// reference owned by the caller.
func (f *Factory) CreateInstance(cid, iid vst3.TUID) (vst3.Unknown, error) {
	obj, err := f.raw.CreateInstance(cid, iid)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", cid, err)
	}
	if obj == nil {
		return nil, fmt.Errorf("create %s: %w", cid, vst3.ErrNoInterface)
	}
	return obj, nil
}

// SetHostContext passes the host application to factories that accept
// one. A factory without the capability is not an error.
func (f *Factory) SetHostContext(host vst3.Unknown) error {
	err := f.raw.SetHostContext(host)
	if err != nil && vst3.IsNotImplemented(err) {
		return nil
	}
	return err
}

// Invalidate drops the cached classes of the module at path.
func Invalidate(path string) {
	classes.Delete(path)
}
