package filters

import (
	"github.com/dgallion1/docloc/internal/event"
	"github.com/dgallion1/docloc/internal/locale"
	"github.com/dgallion1/docloc/internal/resource"
	"github.com/dgallion1/docloc/internal/skeleton"
)

// EventBuilder assembles the event stream of a document while a filter
// walks it. Literal structure goes into document parts; text units hold
// content between their start and end markers; nested text units become
// referents of the enclosing one.
type EventBuilder struct {
	// ContentLocale is the locale content placeholders of text units
	// point at. Multilingual filters set it to the target locale.
	ContentLocale locale.ID

	root     string
	srcLoc   locale.ID
	mimeType string
	events   []event.Event
	tuIDs    *resource.IDGenerator
	dpIDs    *resource.IDGenerator
	sgIDs    *resource.IDGenerator
	egIDs    *resource.IDGenerator
	pending  *resource.DocumentPart
	units    []*openUnit
	groups   []*resource.StartGroup
	finished bool
}

type openUnit struct {
	tu    *resource.TextUnit
	codes []*resource.Code
}

// NewEventBuilder returns a builder whose ids start with root.
func NewEventBuilder(root string, srcLoc locale.ID, mimeType string) *EventBuilder {
	return &EventBuilder{
		root:     root,
		srcLoc:   srcLoc,
		mimeType: mimeType,
		tuIDs:    resource.NewIDGenerator(root, resource.PrefixTextUnit),
		dpIDs:    resource.NewIDGenerator(root, resource.PrefixDocumentPart),
		sgIDs:    resource.NewIDGenerator(root, resource.PrefixStartGroup),
		egIDs:    resource.NewIDGenerator(root, resource.PrefixEndGroup),
	}
}

// StartDocument emits sd. Its skeleton, when nil, is left empty.
func (b *EventBuilder) StartDocument(sd *resource.StartDocument) {
	if sd.ID == "" {
		sd.ID = b.root + "-sd"
	}
	if sd.Locale.IsEmpty() {
		sd.Locale = b.srcLoc
	}
	if sd.MimeType == "" {
		sd.MimeType = b.mimeType
	}
	b.events = append(b.events, event.NewStartDocument(sd))
}

// DocumentPart returns the pending document part, creating it when
// needed. Filters add literals, placeholders and properties to it.
func (b *EventBuilder) DocumentPart() *resource.DocumentPart {
	if b.pending == nil {
		b.pending = resource.NewDocumentPart(b.dpIDs.Next(), false)
		b.pending.Skeleton = skeleton.New()
	}
	return b.pending
}

// PartSkeleton returns the skeleton of the pending document part.
func (b *EventBuilder) PartSkeleton() *skeleton.Skeleton {
	return b.DocumentPart().Skeleton.(*skeleton.Skeleton)
}

// AddSkeleton appends literal structure. It fails while a text unit is
// open; filters add such structure as codes instead.
func (b *EventBuilder) AddSkeleton(text string) error {
	if len(b.units) > 0 {
		return resource.Illegal("add skeleton", "text unit %s is open", b.current().tu.ID)
	}
	if text != "" {
		b.PartSkeleton().Append(text)
	}
	return nil
}

// Flush emits the pending document part.
func (b *EventBuilder) Flush() {
	if b.pending == nil {
		return
	}
	b.events = append(b.events, event.NewDocumentPart(b.pending))
	b.pending = nil
}

func (b *EventBuilder) current() *openUnit {
	if len(b.units) == 0 {
		return nil
	}
	return b.units[len(b.units)-1]
}

// InTextUnit reports whether a text unit is open.
func (b *EventBuilder) InTextUnit() bool { return len(b.units) > 0 }

// TextUnit returns the open text unit or nil.
func (b *EventBuilder) TextUnit() *resource.TextUnit {
	if u := b.current(); u != nil {
		return u.tu
	}
	return nil
}

// StartTextUnit opens a text unit whose skeleton begins with startMarker.
// Inside another text unit the new one becomes a referent, and the outer
// unit gets a reference code in its place.
func (b *EventBuilder) StartTextUnit(startMarker string) *resource.TextUnit {
	tu := resource.NewTextUnit(b.tuIDs.Next(), "")
	tu.MimeType = b.mimeType
	tu.Skeleton = skeleton.NewText(startMarker)
	if outer := b.current(); outer != nil {
		tu.IsReferent = true
		tu.ReferenceCount = 1
		c := resource.NewCode(resource.Placeholder, resource.TypeReference, refMarker(tu.ID))
		c.HasReference = true
		outer.tu.Source.AddCode(c)
	} else {
		b.Flush()
	}
	b.units = append(b.units, &openUnit{tu: tu})
	return tu
}

// AddReferent emits a referent text unit holding text, and returns it.
// Callers place a reference to it in a skeleton or a code.
func (b *EventBuilder) AddReferent(text, typ string) *resource.TextUnit {
	tu := resource.NewTextUnit(b.tuIDs.Next(), text)
	tu.MimeType = b.mimeType
	tu.Type = typ
	tu.IsReferent = true
	tu.ReferenceCount = 1
	b.events = append(b.events, event.NewTextUnit(tu))
	return tu
}

// AddText appends text to the open text unit.
func (b *EventBuilder) AddText(text string) error {
	u := b.current()
	if u == nil {
		return resource.Illegal("add text", "no text unit is open")
	}
	u.tu.Source.Append(text)
	return nil
}

// AddPlaceholder appends a placeholder code to the open text unit.
func (b *EventBuilder) AddPlaceholder(typ, data string) (*resource.Code, error) {
	u := b.current()
	if u == nil {
		return nil, resource.Illegal("add code", "no text unit is open")
	}
	return u.tu.Source.AppendCode(resource.Placeholder, typ, data), nil
}

// StartCode appends an opening code to the open text unit.
func (b *EventBuilder) StartCode(typ, data string) (*resource.Code, error) {
	u := b.current()
	if u == nil {
		return nil, resource.Illegal("start code", "no text unit is open")
	}
	c := u.tu.Source.AppendCode(resource.Opening, typ, data)
	u.codes = append(u.codes, c)
	return c, nil
}

// EndCode appends the closing code matching the last opening of typ.
func (b *EventBuilder) EndCode(typ, data string) (*resource.Code, error) {
	u := b.current()
	if u == nil {
		return nil, resource.Illegal("end code", "no text unit is open")
	}
	for i := len(u.codes) - 1; i >= 0; i-- {
		if u.codes[i].Type != typ {
			continue
		}
		u.codes = append(u.codes[:i], u.codes[i+1:]...)
		return u.tu.Source.AppendCode(resource.Closing, typ, data), nil
	}
	return nil, resource.Illegal("end code", "code %q was never started", typ)
}

// HasOpenCode reports whether typ has an unclosed opening code in the
// open text unit.
func (b *EventBuilder) HasOpenCode(typ string) bool {
	if u := b.current(); u != nil {
		for _, c := range u.codes {
			if c.Type == typ {
				return true
			}
		}
	}
	return false
}

// EndTextUnit closes the open text unit with endMarker. With no unit
// open, a non-empty marker is kept as structure and an empty one is an
// error. A unit with no content at all becomes structure as well.
func (b *EventBuilder) EndTextUnit(endMarker string) (*resource.TextUnit, error) {
	u := b.current()
	if u == nil {
		if endMarker == "" {
			return nil, resource.Illegal("end text unit", "no text unit is open")
		}
		return nil, b.AddSkeleton(endMarker)
	}
	b.units = b.units[:len(b.units)-1]
	tu := u.tu
	skel := tu.Skeleton.(*skeleton.Skeleton)

	if tu.Source.IsEmpty() && !tu.IsReferent {
		b.PartSkeleton().AddSkeleton(skel)
		b.PartSkeleton().Append(endMarker)
		return nil, nil
	}
	if !tu.Source.HasText(false) {
		tu.Translatable = false
	}
	skel.AddContentPlaceholder(skeleton.Self, b.ContentLocale)
	skel.Add(endMarker)
	b.events = append(b.events, event.NewTextUnit(tu))
	return tu, nil
}

// StartGroup opens a group whose skeleton is startMarker.
func (b *EventBuilder) StartGroup(startMarker, typ string) (*resource.StartGroup, error) {
	if len(b.units) > 0 {
		return nil, resource.Illegal("start group", "text unit %s is open", b.current().tu.ID)
	}
	b.Flush()
	sg := &resource.StartGroup{
		BaseResource: resource.BaseResource{ID: b.sgIDs.Next(), Skeleton: skeleton.NewText(startMarker)},
		Type:         typ,
	}
	if len(b.groups) > 0 {
		sg.ParentID = b.groups[len(b.groups)-1].ID
	}
	b.groups = append(b.groups, sg)
	b.events = append(b.events, event.NewStartGroup(sg))
	return sg, nil
}

// EndGroup closes the innermost group. With no group open, a non-empty
// marker is kept as structure and an empty one is an error.
func (b *EventBuilder) EndGroup(endMarker string) error {
	if len(b.units) > 0 {
		return resource.Illegal("end group", "text unit %s is open", b.current().tu.ID)
	}
	if len(b.groups) == 0 {
		if endMarker == "" {
			return resource.Illegal("end group", "no group is open")
		}
		return b.AddSkeleton(endMarker)
	}
	b.Flush()
	b.groups = b.groups[:len(b.groups)-1]
	end := resource.NewEnding(b.egIDs.Next())
	end.Skeleton = skeleton.NewText(endMarker)
	b.events = append(b.events, event.NewEndGroup(end))
	return nil
}

// InGroup reports whether a group is open.
func (b *EventBuilder) InGroup() bool { return len(b.groups) > 0 }

// Finish closes the document with endMarker and returns the events. Open
// text units or groups are an error.
func (b *EventBuilder) Finish(endMarker string) ([]event.Event, error) {
	if b.finished {
		return nil, resource.Illegal("finish", "document already finished")
	}
	if u := b.current(); u != nil {
		return nil, resource.Illegal("finish", "text unit %s is not closed", u.tu.ID)
	}
	if len(b.groups) > 0 {
		return nil, resource.Illegal("finish", "group %s is not closed", b.groups[len(b.groups)-1].ID)
	}
	b.Flush()
	end := resource.NewEnding(b.root + "-ed")
	if endMarker != "" {
		end.Skeleton = skeleton.NewText(endMarker)
	}
	b.events = append(b.events, event.NewEndDocument(end))
	b.finished = true
	return b.events, nil
}

func refMarker(id string) string { return "[#$" + id + "]" }
