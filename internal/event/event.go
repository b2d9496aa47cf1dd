// Package event defines the envelope that carries resources from filters
// through steps to writers.
package event

import (
	"fmt"

	"github.com/dgallion1/docloc/internal/resource"
)

// Kind tells which payload field of an Event is set.
type Kind int

const (
	NoOp Kind = iota
	StartDocument
	EndDocument
	StartSubDocument
	EndSubDocument
	StartGroup
	EndGroup
	TextUnit
	DocumentPart
	Multi
)

func (k Kind) String() string {
	switch k {
	case NoOp:
		return "NO_OP"
	case StartDocument:
		return "START_DOCUMENT"
	case EndDocument:
		return "END_DOCUMENT"
	case StartSubDocument:
		return "START_SUBDOCUMENT"
	case EndSubDocument:
		return "END_SUBDOCUMENT"
	case StartGroup:
		return "START_GROUP"
	case EndGroup:
		return "END_GROUP"
	case TextUnit:
		return "TEXT_UNIT"
	case DocumentPart:
		return "DOCUMENT_PART"
	case Multi:
		return "MULTI_EVENT"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Event is a tagged union: Kind selects which one of the payload fields
// is meaningful.
type Event struct {
	Kind Kind

	StartDocument    *resource.StartDocument
	StartSubDocument *resource.StartSubDocument
	StartGroup       *resource.StartGroup
	TextUnit         *resource.TextUnit
	DocumentPart     *resource.DocumentPart
	// Ending is set for EndDocument, EndSubDocument and EndGroup.
	Ending *resource.Ending
	// Events is set for Multi.
	Events []Event
}

// NewStartDocument wraps sd.
func NewStartDocument(sd *resource.StartDocument) Event {
	return Event{Kind: StartDocument, StartDocument: sd}
}

// NewEndDocument wraps e.
func NewEndDocument(e *resource.Ending) Event {
	return Event{Kind: EndDocument, Ending: e}
}

// NewStartSubDocument wraps s.
func NewStartSubDocument(s *resource.StartSubDocument) Event {
	return Event{Kind: StartSubDocument, StartSubDocument: s}
}

// NewEndSubDocument wraps e.
func NewEndSubDocument(e *resource.Ending) Event {
	return Event{Kind: EndSubDocument, Ending: e}
}

// NewStartGroup wraps sg.
func NewStartGroup(sg *resource.StartGroup) Event {
	return Event{Kind: StartGroup, StartGroup: sg}
}

// NewEndGroup wraps e.
func NewEndGroup(e *resource.Ending) Event {
	return Event{Kind: EndGroup, Ending: e}
}

// NewTextUnit wraps tu.
func NewTextUnit(tu *resource.TextUnit) Event {
	return Event{Kind: TextUnit, TextUnit: tu}
}

// NewDocumentPart wraps dp.
func NewDocumentPart(dp *resource.DocumentPart) Event {
	return Event{Kind: DocumentPart, DocumentPart: dp}
}

// NewMulti bundles several events into one.
func NewMulti(events ...Event) Event {
	return Event{Kind: Multi, Events: events}
}

// Resource returns the payload as a resource.Resource, or nil for NoOp
// and Multi events.
func (e Event) Resource() resource.Resource {
	switch e.Kind {
	case StartDocument:
		return e.StartDocument
	case StartSubDocument:
		return e.StartSubDocument
	case StartGroup:
		return e.StartGroup
	case TextUnit:
		return e.TextUnit
	case DocumentPart:
		return e.DocumentPart
	case EndDocument, EndSubDocument, EndGroup:
		return e.Ending
	}
	return nil
}

func (e Event) String() string {
	if r := e.Resource(); r != nil {
		return e.Kind.String() + "(" + r.Base().ID + ")"
	}
	return e.Kind.String()
}

// TextUnits returns the text units of events, descending into Multi
// events.
func TextUnits(events []Event) []*resource.TextUnit {
	var out []*resource.TextUnit
	for _, e := range events {
		switch e.Kind {
		case TextUnit:
			out = append(out, e.TextUnit)
		case Multi:
			out = append(out, TextUnits(e.Events)...)
		}
	}
	return out
}
