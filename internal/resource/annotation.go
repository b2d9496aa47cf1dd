package resource

// AnnotatedSpan is one span of a fragment carrying a given annotation.
// Start and End delimit the span content in the coded text of the
// fragment it was taken from; the bracketing markers are excluded.
type AnnotatedSpan struct {
	Name       string
	Annotation *InlineAnnotation
	Fragment   *TextFragment
	Start      int
	End        int
}

// Annotate attaches ann under name to the span [start,end) and returns the
// change in coded length (0 or 4).
//
// When the span is exactly one placeholder, or exactly one existing code
// pair (with or without its markers), the annotation goes on those codes.
// Otherwise a pair of annotation-only codes is inserted around the span
// and both ends share ann.
func (f *TextFragment) Annotate(start, end int, name string, ann *InlineAnnotation) (int, error) {
	if err := f.checkRange("annotate", start, end); err != nil {
		return 0, err
	}
	if start == end {
		return 0, &InvalidPositionError{Op: "annotate", Position: start, Length: len(f.text), Reason: "empty span"}
	}
	f.ensureArena()

	if end-start == 2 && f.text[start] == MarkerIsolated {
		c := f.codes[MarkerIndex(f.text[start+1])]
		c.setSpan(name, f.arena.add(ann))
		return 0, nil
	}
	if open, cls, ok := f.pairAround(start, end); ok {
		id := f.arena.add(ann)
		open.setSpan(name, id)
		cls.setSpan(name, id)
		return 0, nil
	}

	open := NewCode(Opening, TypeAnnotationOnly, "")
	cls := NewCode(Closing, TypeAnnotationOnly, "")
	open.ID = f.nextID()
	cls.ID = open.ID
	open.arena, cls.arena = f.arena, f.arena
	id := f.arena.add(ann)
	open.setSpan(name, id)
	cls.setSpan(name, id)

	var b codedBuilder
	b.copyFrom(f.text[:start], f.codes, nil)
	b.addCode(open)
	b.copyFrom(f.text[start:end], f.codes, nil)
	b.addCode(cls)
	b.copyFrom(f.text[end:], f.codes, nil)
	f.commit(&b)
	return 4, nil
}

// pairAround looks for an opening/closing pair that spans [start,end)
// exactly, either including its markers or just enclosing the range.
func (f *TextFragment) pairAround(start, end int) (*Code, *Code, bool) {
	try := func(o, c int) (*Code, *Code, bool) {
		if o < 0 || c+1 >= len(f.text) || o >= c {
			return nil, nil, false
		}
		if f.text[o] != MarkerOpening || f.text[c] != MarkerClosing {
			return nil, nil, false
		}
		open := f.codes[MarkerIndex(f.text[o+1])]
		cls := f.codes[MarkerIndex(f.text[c+1])]
		if open.ID != cls.ID {
			return nil, nil, false
		}
		return open, cls, true
	}
	if end-start >= 4 {
		if o, c, ok := try(start, end-2); ok {
			return o, c, true
		}
	}
	return try(start-2, end)
}

// closingPartner returns the position of the closing marker paired with
// the opening marker at pos, or -1.
func (f *TextFragment) closingPartner(pos int) int {
	id := f.codes[MarkerIndex(f.text[pos+1])].ID
	for i := pos + 2; i < len(f.text); i++ {
		if !IsMarker(f.text[i]) {
			continue
		}
		if f.text[i] == MarkerClosing && f.codes[MarkerIndex(f.text[i+1])].ID == id {
			return i
		}
		i++
	}
	return -1
}

// AnnotatedSpans returns every span carrying the annotation name, in
// coded-text order.
func (f *TextFragment) AnnotatedSpans(name string) []AnnotatedSpan {
	var spans []AnnotatedSpan
	for i := 0; i < len(f.text); i++ {
		r := f.text[i]
		if !IsMarker(r) {
			continue
		}
		if r == MarkerSegment {
			i++
			continue
		}
		c := f.codes[MarkerIndex(f.text[i+1])]
		if c.HasAnnotation(name) {
			var start, end int
			switch c.TagType {
			case Opening:
				cp := f.closingPartner(i)
				if cp < 0 {
					i++
					continue
				}
				start, end = i+2, cp
			case Placeholder:
				start, end = i, i+2
			default:
				i++
				continue
			}
			sub, err := f.SubSequence(start, end)
			if err == nil {
				spans = append(spans, AnnotatedSpan{
					Name:       name,
					Annotation: c.Annotation(name),
					Fragment:   sub,
					Start:      start,
					End:        end,
				})
			}
		}
		i++
	}
	return spans
}

// HasAnnotation reports whether any code carries an annotation named
// name, or any annotation at all when name is empty.
func (f *TextFragment) HasAnnotation(name string) bool {
	for _, c := range f.codes {
		if name == "" && c.HasAnnotations() || name != "" && c.HasAnnotation(name) {
			return true
		}
	}
	return false
}

// RemoveAnnotations removes the named annotations from every code, or all
// annotations when no name is given. Annotation-only codes left without
// any annotation are removed from the fragment.
func (f *TextFragment) RemoveAnnotations(names ...string) {
	for _, c := range f.codes {
		if len(names) == 0 {
			c.RemoveAnnotations()
			continue
		}
		for _, n := range names {
			c.RemoveAnnotation(n)
		}
	}
	f.pruneAnnotationCodes()
}

func (f *TextFragment) pruneAnnotationCodes() {
	prune := false
	for _, c := range f.codes {
		if c.Type == TypeAnnotationOnly && !c.HasAnnotations() {
			prune = true
			break
		}
	}
	if !prune {
		return
	}
	var b codedBuilder
	for i := 0; i < len(f.text); i++ {
		r := f.text[i]
		if isCodeMarker(r) {
			c := f.codes[MarkerIndex(f.text[i+1])]
			if !(c.Type == TypeAnnotationOnly && !c.HasAnnotations()) {
				b.addCode(c)
			}
			i++
			continue
		}
		if r == MarkerSegment {
			b.text = append(b.text, r, f.text[i+1])
			i++
			continue
		}
		b.text = append(b.text, r)
	}
	f.commit(&b)
}
