package resource

import (
	"maps"
	"slices"
)

// Property is a named value attached to a resource, a source or a
// target. Read-only properties are reproduced but never localised.
type Property struct {
	Name     string
	Value    string
	ReadOnly bool
}

// NewProperty returns a property.
func NewProperty(name, value string, readOnly bool) *Property {
	return &Property{Name: name, Value: value, ReadOnly: readOnly}
}

func (p *Property) String() string { return p.Value }

// Properties maps property names to properties. The zero value is usable
// for reads; Set allocates.
type Properties map[string]*Property

// Get returns the named property or nil.
func (ps Properties) Get(name string) *Property { return ps[name] }

// Has reports whether the named property exists.
func (ps Properties) Has(name string) bool {
	_, ok := ps[name]
	return ok
}

// Value returns the named property's value, or "" when absent.
func (ps Properties) Value(name string) string {
	if p := ps[name]; p != nil {
		return p.Value
	}
	return ""
}

// Names returns the property names, sorted.
func (ps Properties) Names() []string {
	return slices.Sorted(maps.Keys(ps))
}

// Clone returns a deep copy.
func (ps Properties) Clone() Properties {
	if ps == nil {
		return nil
	}
	out := make(Properties, len(ps))
	for k, p := range ps {
		c := *p
		out[k] = &c
	}
	return out
}

func setProperty(ps *Properties, p *Property) *Property {
	if *ps == nil {
		*ps = make(Properties)
	}
	(*ps)[p.Name] = p
	return p
}
