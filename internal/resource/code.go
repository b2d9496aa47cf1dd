package resource

import (
	"fmt"
	"maps"
	"slices"
)

// TagType tells how a code relates to its neighbours.
type TagType int

const (
	Opening TagType = iota
	Closing
	Placeholder
)

func (t TagType) String() string {
	switch t {
	case Opening:
		return "OPENING"
	case Closing:
		return "CLOSING"
	case Placeholder:
		return "PLACEHOLDER"
	default:
		return fmt.Sprintf("TagType(%d)", int(t))
	}
}

// ParseTagType is the inverse of TagType.String.
func ParseTagType(s string) (TagType, error) {
	switch s {
	case "OPENING":
		return Opening, nil
	case "CLOSING":
		return Closing, nil
	case "PLACEHOLDER":
		return Placeholder, nil
	}
	return 0, fmt.Errorf("unknown tag type %q", s)
}

// Code types with a meaning of their own.
const (
	// TypeAnnotationOnly marks codes synthesized only to carry an annotation.
	TypeAnnotationOnly = "x-annotation"
	// TypeReference marks codes whose data holds reference markers.
	TypeReference = "x-ref"
)

// SpanID identifies one entry of an annotation arena.
type SpanID int

// InlineAnnotation is a named value attached to one code or to both ends
// of a code pair.
type InlineAnnotation struct {
	Data string
}

// NewInlineAnnotation returns an annotation holding data.
func NewInlineAnnotation(data string) *InlineAnnotation {
	return &InlineAnnotation{Data: data}
}

func (a *InlineAnnotation) String() string {
	if a == nil {
		return ""
	}
	return a.Data
}

func (a *InlineAnnotation) clone() *InlineAnnotation {
	c := *a
	return &c
}

// annotationArena stores the annotations of every code of a fragment.
// Two codes referring to the same SpanID see the same annotation.
type annotationArena struct {
	next  SpanID
	spans map[SpanID]*InlineAnnotation
}

func newArena() *annotationArena {
	return &annotationArena{spans: make(map[SpanID]*InlineAnnotation)}
}

func (a *annotationArena) add(ann *InlineAnnotation) SpanID {
	if ann == nil {
		ann = &InlineAnnotation{}
	}
	a.next++
	a.spans[a.next] = ann
	return a.next
}

func (a *annotationArena) get(id SpanID) *InlineAnnotation {
	return a.spans[id]
}

// Code is one inline markup unit: an opening tag, a closing tag or a
// self-contained placeholder. A closing code shares its ID with the
// opening code it closes.
type Code struct {
	ID        int
	TagType   TagType
	Type      string
	Data      string
	OuterData string

	Cloneable    bool
	Deleteable   bool
	HasReference bool

	arena *annotationArena
	spans map[string]SpanID
}

// NewCode returns a code with no id assigned yet.
func NewCode(tagType TagType, typ, data string) *Code {
	return &Code{ID: -1, TagType: tagType, Type: typ, Data: data}
}

// Outer returns OuterData when set, Data otherwise.
func (c *Code) Outer() string {
	if c.OuterData != "" {
		return c.OuterData
	}
	return c.Data
}

// HasData reports whether the code carries raw markup.
func (c *Code) HasData() bool { return c.Data != "" }

func (c *Code) String() string { return c.Data }

// SetAnnotation attaches ann under name to this code only.
func (c *Code) SetAnnotation(name string, ann *InlineAnnotation) {
	if c.arena == nil {
		c.arena = newArena()
	}
	if c.spans == nil {
		c.spans = make(map[string]SpanID)
	}
	c.spans[name] = c.arena.add(ann)
}

func (c *Code) setSpan(name string, id SpanID) {
	if c.spans == nil {
		c.spans = make(map[string]SpanID)
	}
	c.spans[name] = id
}

// Annotation returns the annotation stored under name, or nil.
func (c *Code) Annotation(name string) *InlineAnnotation {
	id, ok := c.spans[name]
	if !ok || c.arena == nil {
		return nil
	}
	return c.arena.get(id)
}

// HasAnnotation reports whether an annotation named name is attached.
func (c *Code) HasAnnotation(name string) bool {
	_, ok := c.spans[name]
	return ok
}

// HasAnnotations reports whether any annotation is attached.
func (c *Code) HasAnnotations() bool { return len(c.spans) > 0 }

// AnnotationNames returns the attached annotation names, sorted.
func (c *Code) AnnotationNames() []string {
	return slices.Sorted(maps.Keys(c.spans))
}

// RemoveAnnotation detaches one annotation. The code itself stays.
func (c *Code) RemoveAnnotation(name string) {
	delete(c.spans, name)
}

// RemoveAnnotations detaches every annotation. The code itself stays.
func (c *Code) RemoveAnnotations() {
	clear(c.spans)
}

// Clone returns a deep copy. Annotations are copied into a private arena,
// so the clone no longer shares them with any other code.
func (c *Code) Clone() *Code {
	return c.cloneInto(newArena(), make(map[*InlineAnnotation]SpanID))
}

// cloneInto copies c and registers its annotations in arena. memo keeps
// annotations that were shared between cloned codes shared in the copy.
func (c *Code) cloneInto(arena *annotationArena, memo map[*InlineAnnotation]SpanID) *Code {
	n := *c
	n.arena = arena
	n.spans = nil
	for name, id := range c.spans {
		ann := c.arena.get(id)
		if ann == nil {
			continue
		}
		sid, ok := memo[ann]
		if !ok {
			sid = arena.add(ann.clone())
			memo[ann] = sid
		}
		n.setSpan(name, sid)
	}
	return &n
}

// moveInto re-registers c's annotations in arena without copying them.
func (c *Code) moveInto(arena *annotationArena, memo map[*InlineAnnotation]SpanID) {
	if c.arena == arena {
		return
	}
	old := c.arena
	spans := c.spans
	c.arena = arena
	c.spans = nil
	for name, id := range spans {
		if old == nil {
			continue
		}
		ann := old.get(id)
		if ann == nil {
			continue
		}
		sid, ok := memo[ann]
		if !ok {
			sid = arena.add(ann)
			memo[ann] = sid
		}
		c.setSpan(name, sid)
	}
}

// ContentEqual reports whether two codes carry the same id, markup,
// flags and annotation values.
func (c *Code) ContentEqual(o *Code) bool {
	if c.ID != o.ID || c.TagType != o.TagType || c.Type != o.Type ||
		c.Data != o.Data || c.OuterData != o.OuterData ||
		c.Cloneable != o.Cloneable || c.Deleteable != o.Deleteable ||
		c.HasReference != o.HasReference {
		return false
	}
	if len(c.spans) != len(o.spans) {
		return false
	}
	for name := range c.spans {
		a, b := c.Annotation(name), o.Annotation(name)
		if (a == nil) != (b == nil) || (a != nil && a.Data != b.Data) {
			return false
		}
	}
	return true
}
