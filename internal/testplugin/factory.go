package testplugin

import (
	"errors"
	"sync"

	"github.com/justyntemme/vst3host/pkg/vst3"
)

// Factory creates Plugin and Controller objects.
type Factory struct {
	vst3.RefCount

	opts Options
	Log  *Log

	mu          sync.Mutex
	host        vst3.Unknown
	plugins     []*Plugin
	controllers []*Controller
	// FailCreate makes CreateInstance fail.
	FailCreate bool
}

// NewFactory creates a factory with one reference.
func NewFactory(opts Options) *Factory {
	f := &Factory{opts: opts, Log: &Log{}}
	f.Init()
	return f
}

// QueryInterface implements vst3.Unknown.
func (f *Factory) QueryInterface(iid vst3.TUID) (vst3.Unknown, error) {
	switch iid {
	case vst3.IIDFUnknown, vst3.IIDPluginFactory, vst3.IIDPluginFactory2, vst3.IIDPluginFactory3:
		f.AddRef()
		return f, nil
	}
	return nil, vst3.ErrNoInterface
}

// FactoryInfo implements vst3.PluginFactory.
func (f *Factory) FactoryInfo() (vst3.FactoryInfo, error) {
	var info vst3.FactoryInfo
	vst3.CopyChar8(info.Vendor[:], "Test Vendor")
	vst3.CopyChar8(info.URL[:], "https://example.invalid")
	info.Flags = vst3.FactoryUnicode
	return info, nil
}

// CountClasses implements vst3.PluginFactory.
func (f *Factory) CountClasses() int32 {
	if f.opts.Split {
		return 2
	}
	return 1
}

// ClassInfo implements vst3.PluginFactory.
func (f *Factory) ClassInfo(index int32) (vst3.ClassInfo, error) {
	switch {
	case index == 0:
		category := f.opts.Category
		if category == "" {
			category = vst3.CategoryAudioEffect
		}
		return vst3.ClassInfo{
			ID:            ProcessorClassID,
			Cardinality:   0x7FFFFFFF,
			Category:      category,
			Name:          "Test Gain",
			Vendor:        "Test Vendor",
			Version:       "1.0.0",
			SDKVersion:    "VST 3.7",
			SubCategories: []string{"Fx", "Dynamics"},
		}, nil
	case index == 1 && f.opts.Split:
		return vst3.ClassInfo{
			ID:          ControllerClassID,
			Cardinality: 0x7FFFFFFF,
			Category:    vst3.CategoryComponentController,
			Name:        "Test Gain Controller",
			Vendor:      "Test Vendor",
		}, nil
	}
	return vst3.ClassInfo{}, vst3.ErrInvalidArgument
}

// CreateInstance implements vst3.PluginFactory. The returned object carries
// the single reference created with it.
func (f *Factory) CreateInstance(cid, iid vst3.TUID) (vst3.Unknown, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailCreate {
		return nil, vst3.ErrInternal
	}
	switch {
	case cid == ProcessorClassID:
		p := NewPlugin(f.opts, f.Log)
		obj, err := p.QueryInterface(iid)
		p.Release()
		if err != nil {
			return nil, err
		}
		f.plugins = append(f.plugins, p)
		return obj, nil
	case cid == ControllerClassID && f.opts.Split:
		c := NewController(f.opts, f.Log)
		obj, err := c.QueryInterface(iid)
		c.Release()
		if err != nil {
			return nil, err
		}
		f.controllers = append(f.controllers, c)
		return obj, nil
	}
	return nil, vst3.ErrNoInterface
}

// SetHostContext implements vst3.PluginFactory.
func (f *Factory) SetHostContext(host vst3.Unknown) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.host != nil {
		f.host.Release()
	}
	if host != nil {
		host.AddRef()
	}
	f.host = host
	f.Log.Add("factory.setHostContext")
	return nil
}

// Close drops the host context reference.
func (f *Factory) Close() {
	_ = f.SetHostContext(nil)
}

// HostContext returns the context set through SetHostContext.
func (f *Factory) HostContext() vst3.Unknown {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.host
}

// Plugins returns every Plugin created so far.
func (f *Factory) Plugins() []*Plugin {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Plugin(nil), f.plugins...)
}

// Controllers returns every Controller created so far.
func (f *Factory) Controllers() []*Controller {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Controller(nil), f.controllers...)
}

// ErrInitFailed is returned by Library.Init when InitFails is set.
var ErrInitFailed = errors.New("testplugin: init failed")

// Library stands in for a loaded module binary.
type Library struct {
	path    string
	factory *Factory
	Log     *Log

	// InitFails makes Init report failure.
	InitFails bool
	// NoFactory makes Factory return nil.
	NoFactory bool
}

// NewLibrary wraps f as the module at path.
func NewLibrary(path string, f *Factory) *Library {
	return &Library{path: path, factory: f, Log: f.Log}
}

// Path returns the module path.
func (l *Library) Path() string { return l.path }

// Init runs the module entry hook.
func (l *Library) Init() error {
	l.Log.Add("library.init")
	if l.InitFails {
		return ErrInitFailed
	}
	return nil
}

// Factory returns the plugin factory with a new reference.
func (l *Library) Factory() (vst3.PluginFactory, error) {
	if l.NoFactory {
		return nil, nil
	}
	l.factory.AddRef()
	return l.factory, nil
}

// Exit runs the module exit hook.
func (l *Library) Exit() error {
	l.Log.Add("library.exit")
	return nil
}

// Close unloads the binary.
func (l *Library) Close() error {
	l.Log.Add("library.close")
	return nil
}
