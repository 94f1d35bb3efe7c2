package view

import (
	"sort"
	"sync"
)

// Registry collects descriptors grouped by connection. It is an ordinary
// value: populate it once at startup and pass it to the sync entry points.
type Registry struct {
	mu    sync.RWMutex
	order []*Descriptor
	index map[Ref]int
}

// NewRegistry returns a registry holding views.
func NewRegistry(views ...*Descriptor) *Registry {
	r := &Registry{index: make(map[Ref]int)}
	r.Register(views...)
	return r
}

// Register adds views. A view with the same connection and name as an
// earlier one replaces it in place, so the last registration wins.
func (r *Registry) Register(views ...*Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.index == nil {
		r.index = make(map[Ref]int)
	}
	for _, v := range views {
		if v == nil {
			continue
		}
		if idx, ok := r.index[v.Ref()]; ok {
			r.order[idx] = v
			continue
		}
		r.index[v.Ref()] = len(r.order)
		r.order = append(r.order, v)
	}
}

// Lookup returns the view registered under ref.
func (r *Registry) Lookup(ref Ref) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.index[ref]
	if !ok {
		return nil, false
	}
	return r.order[idx], true
}

// ByConnection returns the registered views grouped by connection, each
// group in registration order.
func (r *Registry) ByConnection() map[string][]*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	grouped := make(map[string][]*Descriptor)
	for _, v := range r.order {
		grouped[v.connection] = append(grouped[v.connection], v)
	}
	return grouped
}

// Connections returns the connection identifiers in sorted order.
func (r *Registry) Connections() []string {
	grouped := r.ByConnection()
	names := make([]string, 0, len(grouped))
	for name := range grouped {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered views.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Clear removes every view.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = nil
	r.index = make(map[Ref]int)
}
