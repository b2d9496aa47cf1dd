package resource

import (
	"maps"
	"slices"

	"github.com/dgallion1/docloc/internal/locale"
)

// Kind identifies the concrete type behind a Resource.
type Kind int

const (
	KindTextUnit Kind = iota + 1
	KindDocumentPart
	KindStartDocument
	KindStartSubDocument
	KindStartGroup
	KindEnding
)

func (k Kind) String() string {
	switch k {
	case KindTextUnit:
		return "text-unit"
	case KindDocumentPart:
		return "document-part"
	case KindStartDocument:
		return "start-document"
	case KindStartSubDocument:
		return "start-subdocument"
	case KindStartGroup:
		return "start-group"
	case KindEnding:
		return "ending"
	}
	return "unknown"
}

// Skeleton is the structure surrounding a resource. Writers know the
// concrete types they can handle.
type Skeleton interface {
	String() string
}

// Handle names a resource without pointing at it.
type Handle struct {
	Kind Kind
	ID   string
}

// IsZero reports whether h names nothing.
func (h Handle) IsZero() bool { return h.ID == "" }

func (h Handle) String() string { return h.Kind.String() + ":" + h.ID }

// Resource is implemented by every structural unit carried by an event.
type Resource interface {
	Kind() Kind
	Base() *BaseResource
}

// HandleOf returns the handle of r.
func HandleOf(r Resource) Handle {
	return Handle{Kind: r.Kind(), ID: r.Base().ID}
}

// BaseResource holds what every resource has: an id, a skeleton, a
// referent flag and its property sets.
type BaseResource struct {
	ID         string
	Skeleton   Skeleton
	IsReferent bool
	// ReferenceCount is how many times the resource is referenced when it
	// is a referent.
	ReferenceCount int

	Properties       Properties
	SourceProperties Properties
	TargetProperties map[locale.ID]Properties
}

// Base returns b itself; it lets embedding types satisfy Resource.
func (b *BaseResource) Base() *BaseResource { return b }

// SetProperty sets a resource-level property.
func (b *BaseResource) SetProperty(p *Property) *Property {
	return setProperty(&b.Properties, p)
}

// SetSourceProperty sets a source property.
func (b *BaseResource) SetSourceProperty(p *Property) *Property {
	return setProperty(&b.SourceProperties, p)
}

// SetTargetProperty sets a property for loc.
func (b *BaseResource) SetTargetProperty(loc locale.ID, p *Property) *Property {
	if b.TargetProperties == nil {
		b.TargetProperties = make(map[locale.ID]Properties)
	}
	ps := b.TargetProperties[loc]
	setProperty(&ps, p)
	b.TargetProperties[loc] = ps
	return p
}

// TargetProperty returns the property for loc, or nil.
func (b *BaseResource) TargetProperty(loc locale.ID, name string) *Property {
	return b.TargetProperties[loc].Get(name)
}

// TextUnit is a unit of translatable content with its source and any
// number of targets.
type TextUnit struct {
	BaseResource
	Name               string
	Type               string
	MimeType           string
	Translatable       bool
	PreserveWhitespace bool

	Source  *TextContainer
	targets map[locale.ID]*TextContainer
}

// NewTextUnit returns a translatable unit with the given source text.
func NewTextUnit(id, source string) *TextUnit {
	return &TextUnit{
		BaseResource: BaseResource{ID: id},
		Translatable: true,
		Source:       NewTextContainer(source),
	}
}

func (tu *TextUnit) Kind() Kind { return KindTextUnit }

// SourceContent returns the source fragment.
func (tu *TextUnit) SourceContent() *TextFragment { return tu.Source.TextFragment }

// SetSourceContent replaces the source content.
func (tu *TextUnit) SetSourceContent(f *TextFragment) { tu.Source.SetContent(f) }

// Target returns the target container for loc, or nil.
func (tu *TextUnit) Target(loc locale.ID) *TextContainer { return tu.targets[loc] }

// HasTarget reports whether a target exists for loc.
func (tu *TextUnit) HasTarget(loc locale.ID) bool {
	_, ok := tu.targets[loc]
	return ok
}

// SetTarget sets the target for loc.
func (tu *TextUnit) SetTarget(loc locale.ID, tc *TextContainer) *TextContainer {
	if tu.targets == nil {
		tu.targets = make(map[locale.ID]*TextContainer)
	}
	tu.targets[loc] = tc
	return tc
}

// RemoveTarget deletes the target for loc.
func (tu *TextUnit) RemoveTarget(loc locale.ID) { delete(tu.targets, loc) }

// TargetLocales returns the locales that have a target, sorted.
func (tu *TextUnit) TargetLocales() []locale.ID {
	return slices.Sorted(maps.Keys(tu.targets))
}

// CreateTarget returns the target for loc, creating it when missing or
// when overwrite is set. A new target is a copy of the source when
// copyContent is set, and empty otherwise; source properties are copied
// in both cases.
func (tu *TextUnit) CreateTarget(loc locale.ID, overwrite, copyContent bool) *TextContainer {
	if tc, ok := tu.targets[loc]; ok && !overwrite {
		return tc
	}
	var tc *TextContainer
	if copyContent {
		tc = NewTextContainerFrom(tu.Source.Unsegmented())
	} else {
		tc = NewTextContainer("")
	}
	tc.Properties = tu.Source.Properties.Clone()
	return tu.SetTarget(loc, tc)
}

// SourceProperty returns a property of the source container.
func (tu *TextUnit) SourceProperty(name string) *Property {
	return tu.Source.Properties.Get(name)
}

// SetSourceProperty sets a property on the source container.
func (tu *TextUnit) SetSourceProperty(p *Property) *Property {
	return setProperty(&tu.Source.Properties, p)
}

// TargetProperty returns a property of the target for loc, or nil.
func (tu *TextUnit) TargetProperty(loc locale.ID, name string) *Property {
	if tc := tu.targets[loc]; tc != nil {
		return tc.Properties.Get(name)
	}
	return nil
}

// SetTargetProperty sets a property on the target for loc, creating an
// empty target when needed.
func (tu *TextUnit) SetTargetProperty(loc locale.ID, p *Property) *Property {
	tc := tu.CreateTarget(loc, false, false)
	return setProperty(&tc.Properties, p)
}

// Clone returns a deep copy of the unit. The skeleton is shared.
func (tu *TextUnit) Clone() *TextUnit {
	n := *tu
	n.Properties = tu.Properties.Clone()
	n.Source = tu.Source.Clone()
	n.targets = nil
	for loc, tc := range tu.targets {
		n.SetTarget(loc, tc.Clone())
	}
	return &n
}

// DocumentPart is a non-translatable piece of the document, possibly with
// localisable properties.
type DocumentPart struct {
	BaseResource
}

// NewDocumentPart returns a document part.
func NewDocumentPart(id string, referent bool) *DocumentPart {
	return &DocumentPart{BaseResource: BaseResource{ID: id, IsReferent: referent}}
}

func (dp *DocumentPart) Kind() Kind { return KindDocumentPart }

// StartDocument opens a document.
type StartDocument struct {
	BaseResource
	Name         string
	Locale       locale.ID
	Encoding     string
	HasUTF8BOM   bool
	LineBreak    string
	MimeType     string
	Multilingual bool
	// TargetLocale is the locale of the targets a multilingual document
	// carries.
	TargetLocale locale.ID
	FilterName   string
}

func (sd *StartDocument) Kind() Kind { return KindStartDocument }

// StartSubDocument opens a document nested in a container format.
type StartSubDocument struct {
	BaseResource
	ParentID string
	Name     string
}

func (s *StartSubDocument) Kind() Kind { return KindStartSubDocument }

// StartGroup opens a group of resources.
type StartGroup struct {
	BaseResource
	ParentID string
	Name     string
	Type     string
}

func (sg *StartGroup) Kind() Kind { return KindStartGroup }

// Ending closes a document, sub-document or group.
type Ending struct {
	BaseResource
}

// NewEnding returns an ending with the given id.
func NewEnding(id string) *Ending {
	return &Ending{BaseResource: BaseResource{ID: id}}
}

func (e *Ending) Kind() Kind { return KindEnding }
