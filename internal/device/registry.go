package device

import (
	"fmt"
	"sync"
)

// Registry is the ordered set of devices known to the controller.
//
// It is populated once from static configuration and mutated only through
// SetState. Reads may run concurrently; writes are serialized by a single
// registry-wide lock.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	devices map[string]*Device
}

// NewRegistry builds a registry from specs, preserving their order.
// Every device starts OFF. An empty Class defaults to ClassActuator.
func NewRegistry(specs []Spec) (*Registry, error) {
	r := &Registry{
		order:   make([]string, 0, len(specs)),
		devices: make(map[string]*Device, len(specs)),
	}

	for _, s := range specs {
		if s.ID == "" {
			return nil, fmt.Errorf("%w: empty id", ErrInvalidSpec)
		}
		if _, ok := r.devices[s.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicate, s.ID)
		}
		class := s.Class
		switch class {
		case "":
			class = ClassActuator
		case ClassActuator, ClassSensor:
		default:
			return nil, fmt.Errorf("%w: %s: unknown class %q", ErrInvalidSpec, s.ID, s.Class)
		}
		name := s.Name
		if name == "" {
			name = s.ID
		}

		r.devices[s.ID] = &Device{
			ID:      s.ID,
			Address: s.Address,
			Name:    name,
			Icon:    s.Icon,
			Class:   class,
			State:   StateOff,
		}
		r.order = append(r.order, s.ID)
	}

	return r, nil
}

// Get returns a copy of the device with the given ID.
func (r *Registry) Get(id string) (Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[id]
	if !ok {
		return Device{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return *d, nil
}

// SetState applies s to the device only if it differs from the current
// state, and reports whether a change occurred. It is the sole mutation path.
func (r *Registry) SetState(id string, s State) (bool, error) {
	if !s.Valid() {
		return false, fmt.Errorf("%w: %q", ErrInvalidState, s)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if d.State == s {
		return false, nil
	}
	d.State = s
	return true, nil
}

// List returns copies of all devices in configuration order.
func (r *Registry) List() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Device, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.devices[id])
	}
	return out
}

// Len returns the number of registered devices.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
