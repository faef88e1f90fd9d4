package param

import (
	"fmt"
	"sync"

	"github.com/justyntemme/vst3host/pkg/vst3"
)

// Registry manages plugin parameters
type Registry struct {
	params map[uint32]*Parameter
	order  []uint32 // Maintain order for indexed access
	mu     sync.RWMutex
}

// NewRegistry creates a new parameter registry
func NewRegistry() *Registry {
	return &Registry{
		params: make(map[uint32]*Parameter),
		order:  make([]uint32, 0),
	}
}

// Load enumerates the controller's parameters into a new registry, with
// current values read from the controller.
func Load(ctrl vst3.EditController) (*Registry, error) {
	r := NewRegistry()
	if err := r.Reload(ctrl); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload replaces the registry contents with the controller's current
// parameter list. Existing Parameter pointers are kept for ids that
// survive.
func (r *Registry) Reload(ctrl vst3.EditController) error {
	n := ctrl.ParameterCount()
	params := make([]*Parameter, 0, n)
	for i := int32(0); i < n; i++ {
		info, err := ctrl.ParameterInfo(i)
		if err != nil {
			return fmt.Errorf("parameter info %d: %w", i, err)
		}
		p := r.Get(info.ID)
		if p == nil {
			p = FromInfo(info)
		}
		p.SetValue(ctrl.ParamNormalized(info.ID))
		params = append(params, p)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.params = make(map[uint32]*Parameter, len(params))
	r.order = r.order[:0]
	for _, p := range params {
		if _, exists := r.params[p.ID]; exists {
			continue
		}
		r.params[p.ID] = p
		r.order = append(r.order, p.ID)
	}
	return nil
}

// Refresh re-reads every value from the controller.
func (r *Registry) Refresh(ctrl vst3.EditController) {
	for _, p := range r.All() {
		p.SetValue(ctrl.ParamNormalized(p.ID))
	}
}

// Add registers a new parameter
func (r *Registry) Add(params ...*Parameter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range params {
		if _, exists := r.params[p.ID]; exists {
			return fmt.Errorf("duplicate parameter id %d", p.ID)
		}
		r.params[p.ID] = p
		r.order = append(r.order, p.ID)
	}

	return nil
}

// Get retrieves a parameter by ID
func (r *Registry) Get(id uint32) *Parameter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.params[id]
}

// GetByIndex retrieves a parameter by index
func (r *Registry) GetByIndex(index int32) *Parameter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if index < 0 || index >= int32(len(r.order)) {
		return nil
	}

	id := r.order[index]
	return r.params[id]
}

// Count returns the number of parameters
func (r *Registry) Count() int32 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return int32(len(r.order))
}

// All returns all parameters in order
func (r *Registry) All() []*Parameter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Parameter, len(r.order))
	for i, id := range r.order {
		result[i] = r.params[id]
	}

	return result
}

// Infos returns a snapshot of every parameter in order.
func (r *Registry) Infos() []Info {
	all := r.All()
	out := make([]Info, len(all))
	for i, p := range all {
		out[i] = p.Info()
	}
	return out
}

// Bypass returns the parameter flagged as bypass, nil when there is none.
func (r *Registry) Bypass() *Parameter {
	for _, p := range r.All() {
		if p.Flags&IsBypass != 0 {
			return p
		}
	}
	return nil
}
