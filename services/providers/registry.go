package providers

import (
	"errors"
	"fmt"
)

var (
	// ErrProviderAlreadyRegistered is returned when trying to register a duplicate provider
	ErrProviderAlreadyRegistered = errors.New("provider already registered")

	// ErrInvalidEntry is returned for an entry without a name or adapter
	ErrInvalidEntry = errors.New("provider entry needs a name and an adapter")
)

// Entry binds a descriptor to the adapter that serves it.
type Entry struct {
	Descriptor Descriptor
	Adapter    Adapter
}

// Name returns the provider name.
func (e Entry) Name() string {
	return e.Descriptor.Name
}

func (e Entry) clone() Entry {
	e.Descriptor.Specialties = append([]string(nil), e.Descriptor.Specialties...)
	return e
}

// Registry is the static, ordered table of providers. It is built once and
// never mutated, so concurrent reads need no locking.
type Registry struct {
	entries []Entry
	index   map[string]int
}

// NewRegistry builds a registry preserving the order of entries.
func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{
		entries: make([]Entry, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		if e.Descriptor.Name == "" || e.Adapter == nil {
			return nil, ErrInvalidEntry
		}
		if _, exists := r.index[e.Descriptor.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrProviderAlreadyRegistered, e.Descriptor.Name)
		}
		r.index[e.Descriptor.Name] = len(r.entries)
		r.entries = append(r.entries, e.clone())
	}
	return r, nil
}

// Lookup finds a provider by exact name. ok is false for unknown names.
func (r *Registry) Lookup(name string) (Entry, bool) {
	i, ok := r.index[name]
	if !ok {
		return Entry{}, false
	}
	return r.entries[i].clone(), true
}

// Names returns provider names in registry order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.Descriptor.Name
	}
	return names
}

// Descriptors returns provider metadata in registry order.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.clone().Descriptor
	}
	return out
}

// Entries returns a copy of the table in registry order.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.clone()
	}
	return out
}

// Len returns the number of registered providers
func (r *Registry) Len() int {
	return len(r.entries)
}

// RegistryBuilder collects entries before freezing them into a Registry
type RegistryBuilder struct {
	entries []Entry
}

// NewRegistryBuilder creates a new registry builder
func NewRegistryBuilder() *RegistryBuilder {
	return &RegistryBuilder{}
}

// With appends a provider.
func (rb *RegistryBuilder) With(desc Descriptor, adapter Adapter) *RegistryBuilder {
	rb.entries = append(rb.entries, Entry{Descriptor: desc, Adapter: adapter})
	return rb
}

// Replace swaps the adapter and descriptor of an already added provider,
// keeping its position. Unknown names are appended.
func (rb *RegistryBuilder) Replace(desc Descriptor, adapter Adapter) *RegistryBuilder {
	for i, e := range rb.entries {
		if e.Descriptor.Name == desc.Name {
			rb.entries[i] = Entry{Descriptor: desc, Adapter: adapter}
			return rb
		}
	}
	return rb.With(desc, adapter)
}

// Build freezes the collected entries.
func (rb *RegistryBuilder) Build() (*Registry, error) {
	return NewRegistry(rb.entries...)
}
