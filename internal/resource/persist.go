package resource

import (
	"encoding/json"
	"fmt"
)

type codeRecord struct {
	ID          int                         `json:"id"`
	TagType     string                      `json:"tag"`
	Type        string                      `json:"type,omitempty"`
	Data        string                      `json:"data,omitempty"`
	Outer       string                      `json:"outer,omitempty"`
	Flags       int                         `json:"flags,omitempty"`
	Annotations map[string]annotationRecord `json:"ann,omitempty"`
}

type annotationRecord struct {
	Span int    `json:"span"`
	Data string `json:"data"`
}

const (
	flagCloneable = 1 << iota
	flagDeleteable
	flagReference
)

// CodesToString serialises a code list to a flat string. Annotations that
// are shared between codes carry the same span number, so the sharing is
// restored by StringToCodes.
func CodesToString(codes []*Code) string {
	spans := make(map[*InlineAnnotation]int)
	recs := make([]codeRecord, len(codes))
	for i, c := range codes {
		r := codeRecord{
			ID:      c.ID,
			TagType: c.TagType.String(),
			Type:    c.Type,
			Data:    c.Data,
			Outer:   c.OuterData,
		}
		if c.Cloneable {
			r.Flags |= flagCloneable
		}
		if c.Deleteable {
			r.Flags |= flagDeleteable
		}
		if c.HasReference {
			r.Flags |= flagReference
		}
		for _, name := range c.AnnotationNames() {
			ann := c.Annotation(name)
			if ann == nil {
				continue
			}
			span, ok := spans[ann]
			if !ok {
				span = len(spans) + 1
				spans[ann] = span
			}
			if r.Annotations == nil {
				r.Annotations = make(map[string]annotationRecord)
			}
			r.Annotations[name] = annotationRecord{Span: span, Data: ann.Data}
		}
		recs[i] = r
	}
	out, err := json.Marshal(recs)
	if err != nil {
		// Only strings and ints are marshalled.
		panic(err)
	}
	return string(out)
}

// StringToCodes parses the output of CodesToString.
func StringToCodes(s string) ([]*Code, error) {
	if s == "" {
		return nil, nil
	}
	var recs []codeRecord
	if err := json.Unmarshal([]byte(s), &recs); err != nil {
		return nil, fmt.Errorf("decode codes: %w", err)
	}
	arena := newArena()
	spans := make(map[int]SpanID)
	codes := make([]*Code, len(recs))
	for i, r := range recs {
		tt, err := ParseTagType(r.TagType)
		if err != nil {
			return nil, fmt.Errorf("decode code %d: %w", i, err)
		}
		c := &Code{
			ID:           r.ID,
			TagType:      tt,
			Type:         r.Type,
			Data:         r.Data,
			OuterData:    r.Outer,
			Cloneable:    r.Flags&flagCloneable != 0,
			Deleteable:   r.Flags&flagDeleteable != 0,
			HasReference: r.Flags&flagReference != 0,
			arena:        arena,
		}
		for name, a := range r.Annotations {
			sid, ok := spans[a.Span]
			if !ok {
				sid = arena.add(NewInlineAnnotation(a.Data))
				spans[a.Span] = sid
			}
			c.setSpan(name, sid)
		}
		codes[i] = c
	}
	return codes, nil
}
