// Package skeleton holds the template of literals and placeholders that
// rebuilds a resource's surrounding structure, and the writer that
// resolves it for an output locale.
package skeleton

import (
	"strings"

	"github.com/dgallion1/docloc/internal/locale"
	"github.com/dgallion1/docloc/internal/resource"
)

// PartKind is the kind of a skeleton part.
type PartKind int

const (
	// Literal is verbatim text.
	Literal PartKind = iota
	// Content stands for the content of a text unit.
	Content
	// Value stands for the value of a property.
	Value
	// Reference inlines another resource.
	Reference
)

// Scope selects which property set a value placeholder reads.
type Scope int

const (
	// ScopeLocale reads the source or target properties, by locale.
	ScopeLocale Scope = iota
	// ScopeResource reads resource-level properties.
	ScopeResource
)

// Self is the owner of parts that refer to the resource the skeleton
// belongs to. It is resolved when the skeleton is written.
var Self = resource.Handle{}

// SelfMarker is how self references print in String.
const SelfMarker = "$self$"

// Part is one element of a skeleton.
type Part struct {
	Kind     PartKind
	Data     string
	Owner    resource.Handle
	Locale   locale.ID
	Property string
	Scope    Scope
}

// IsSelf reports whether the part refers to the resource being written.
func (p *Part) IsSelf() bool { return p.Owner.IsZero() }

func (p *Part) String() string {
	switch p.Kind {
	case Literal:
		return p.Data
	case Value:
		return refMarker(p.Owner) + "@%@" + p.Property
	default:
		return "[#$" + ownerName(p.Owner) + "]"
	}
}

func ownerName(h resource.Handle) string {
	if h.IsZero() {
		return SelfMarker
	}
	return h.ID
}

func refMarker(h resource.Handle) string {
	return "[#$" + ownerName(h)
}

// Skeleton is an ordered list of parts.
type Skeleton struct {
	parts []*Part
	// CreateNew makes the next Append start a new literal part instead of
	// extending the last one.
	CreateNew bool
}

// New returns an empty skeleton.
func New() *Skeleton { return &Skeleton{} }

// NewText returns a skeleton holding one literal part.
func NewText(text string) *Skeleton {
	s := New()
	s.Add(text)
	return s
}

// Parts returns the parts in order.
func (s *Skeleton) Parts() []*Part { return s.parts }

// IsEmpty reports whether there are no parts.
func (s *Skeleton) IsEmpty() bool { return len(s.parts) == 0 }

// LastPart returns the last part or nil.
func (s *Skeleton) LastPart() *Part {
	if len(s.parts) == 0 {
		return nil
	}
	return s.parts[len(s.parts)-1]
}

// Clear removes every part.
func (s *Skeleton) Clear() { s.parts = nil }

// Add appends a new literal part. Empty text is ignored.
func (s *Skeleton) Add(text string) {
	if text == "" {
		return
	}
	s.parts = append(s.parts, &Part{Kind: Literal, Data: text})
}

// Append adds text to the last literal part, or starts a new one when the
// last part is not a literal or CreateNew is set.
func (s *Skeleton) Append(text string) {
	if text == "" {
		return
	}
	if last := s.LastPart(); last != nil && last.Kind == Literal && !s.CreateNew {
		last.Data += text
		return
	}
	s.CreateNew = false
	s.Add(text)
}

// AddSkeleton appends copies of the parts of other.
func (s *Skeleton) AddSkeleton(other *Skeleton) {
	if other == nil {
		return
	}
	for _, p := range other.parts {
		c := *p
		s.parts = append(s.parts, &c)
	}
}

// AddContentPlaceholder adds a placeholder for the content of owner in
// loc. Pass Self for the resource the skeleton belongs to and an empty loc
// for the source.
func (s *Skeleton) AddContentPlaceholder(owner resource.Handle, loc locale.ID) {
	s.parts = append(s.parts, &Part{Kind: Content, Owner: owner, Locale: loc})
}

// AddValuePlaceholder adds a placeholder for property prop of owner, read
// from the source (empty loc) or from the target properties of loc.
func (s *Skeleton) AddValuePlaceholder(owner resource.Handle, prop string, loc locale.ID) {
	s.parts = append(s.parts, &Part{Kind: Value, Owner: owner, Property: prop, Locale: loc})
}

// AddResourceValuePlaceholder adds a placeholder for a resource-level
// property of owner.
func (s *Skeleton) AddResourceValuePlaceholder(owner resource.Handle, prop string) {
	s.parts = append(s.parts, &Part{Kind: Value, Owner: owner, Property: prop, Scope: ScopeResource})
}

// AddReference adds a reference to another resource, inlined at write
// time.
func (s *Skeleton) AddReference(ref resource.Handle) {
	s.parts = append(s.parts, &Part{Kind: Reference, Owner: ref})
}

// ChangeSelfReferents points every self part at newOwner.
func (s *Skeleton) ChangeSelfReferents(newOwner resource.Handle) {
	for _, p := range s.parts {
		if p.Kind != Literal && p.IsSelf() {
			p.Owner = newOwner
		}
	}
}

// Clone returns a deep copy.
func (s *Skeleton) Clone() *Skeleton {
	n := &Skeleton{CreateNew: s.CreateNew}
	n.AddSkeleton(s)
	return n
}

// String prints literals verbatim and placeholders as [#$owner] markers.
func (s *Skeleton) String() string {
	var sb strings.Builder
	for _, p := range s.parts {
		sb.WriteString(p.String())
		if p.Kind == Value {
			sb.WriteString("]")
		}
	}
	return sb.String()
}
