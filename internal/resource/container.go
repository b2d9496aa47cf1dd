package resource

import (
	"slices"
	"strconv"
	"strings"
)

// Segment is an addressable piece of a container, usually a sentence.
type Segment struct {
	ID      string
	Content *TextFragment
}

// Range is a half-open range of coded-text positions.
type Range struct {
	Start int
	End   int
}

// TextContainer is a fragment whose content can be carved into segments.
// Each segment sits in the container's coded text as a two-rune segment
// marker; the text between segments stays in place.
type TextContainer struct {
	*TextFragment
	Properties Properties

	segments []*Segment
}

// NewTextContainer returns a container holding plain text.
func NewTextContainer(text string) *TextContainer {
	return &TextContainer{TextFragment: NewTextFragment(text)}
}

// NewTextContainerFrom wraps f. The container takes ownership of f.
func NewTextContainerFrom(f *TextFragment) *TextContainer {
	if f == nil {
		f = NewTextFragment("")
	}
	return &TextContainer{TextFragment: f}
}

// Content returns the container's own fragment. Segment content is not
// part of it; use Unsegmented for the full text.
func (tc *TextContainer) Content() *TextFragment { return tc.TextFragment }

// SetContent replaces the content and drops every segment.
func (tc *TextContainer) SetContent(f *TextFragment) {
	if f == nil {
		f = NewTextFragment("")
	}
	tc.TextFragment = f
	tc.segments = nil
}

// syncSegments drops segments whose markers disappeared and renumbers the
// remaining ones in marker order.
func (tc *TextContainer) syncSegments() {
	text := tc.text
	var segs []*Segment
	for i := 0; i < len(text); i++ {
		if !IsMarker(text[i]) {
			continue
		}
		if text[i] == MarkerSegment {
			idx := MarkerIndex(text[i+1])
			if idx >= 0 && idx < len(tc.segments) {
				text[i+1] = IndexRune(len(segs))
				segs = append(segs, tc.segments[idx])
			}
		}
		i++
	}
	for i, s := range segs {
		s.ID = strconv.Itoa(i)
	}
	tc.segments = segs
}

// HasSegments reports whether at least one segment exists.
func (tc *TextContainer) HasSegments() bool {
	tc.syncSegments()
	return len(tc.segments) > 0
}

// SegmentCount returns the number of segments.
func (tc *TextContainer) SegmentCount() int {
	tc.syncSegments()
	return len(tc.segments)
}

// Segments returns the segments in order.
func (tc *TextContainer) Segments() []*Segment {
	tc.syncSegments()
	return slices.Clone(tc.segments)
}

// Segment returns segment i, or nil.
func (tc *TextContainer) Segment(i int) *Segment {
	tc.syncSegments()
	if i < 0 || i >= len(tc.segments) {
		return nil
	}
	return tc.segments[i]
}

func (tc *TextContainer) segmentPos(i int) int {
	for p := 0; p < len(tc.text); p++ {
		if !IsMarker(tc.text[p]) {
			continue
		}
		if tc.text[p] == MarkerSegment && MarkerIndex(tc.text[p+1]) == i {
			return p
		}
		p++
	}
	return -1
}

func (tc *TextContainer) checkSegmentRange(op string, start, end int) error {
	if err := tc.checkRange(op, start, end); err != nil {
		return err
	}
	if start == end {
		return &InvalidPositionError{Op: op, Position: start, Length: len(tc.text), Reason: "empty segment"}
	}
	for i := start; i < end; i++ {
		if tc.text[i] == MarkerSegment {
			return &InvalidPositionError{Op: op, Position: i, Length: len(tc.text), Reason: "overlaps an existing segment"}
		}
	}
	return nil
}

// CreateSegment carves [start,end) into a new segment and returns its
// index. The codes inside the range move into the segment.
func (tc *TextContainer) CreateSegment(start, end int) (int, error) {
	tc.syncSegments()
	if err := tc.checkSegmentRange("create segment", start, end); err != nil {
		return -1, err
	}
	tc.carve(start, end)
	tc.syncSegments()
	return tc.segmentIndexAt(start), nil
}

func (tc *TextContainer) carve(start, end int) {
	sub, _ := tc.SubSequence(start, end)
	seg := &Segment{Content: sub}
	tc.segments = append(tc.segments, seg)
	var b codedBuilder
	b.copyFrom(tc.text[:start], tc.codes, nil)
	b.text = append(b.text, MarkerSegment, IndexRune(len(tc.segments)-1))
	b.copyFrom(tc.text[end:], tc.codes, nil)
	tc.commit(&b)
}

func (tc *TextContainer) segmentIndexAt(pos int) int {
	if pos+1 < len(tc.text) && tc.text[pos] == MarkerSegment {
		return MarkerIndex(tc.text[pos+1])
	}
	return -1
}

// CreateSegments carves several ranges at once. All ranges are expressed
// in the coordinates of the coded text before the call; they must not
// overlap each other or an existing segment.
func (tc *TextContainer) CreateSegments(ranges []Range) error {
	tc.syncSegments()
	sorted := slices.Clone(ranges)
	slices.SortFunc(sorted, func(a, b Range) int { return a.Start - b.Start })
	for i, r := range sorted {
		if err := tc.checkSegmentRange("create segments", r.Start, r.End); err != nil {
			return err
		}
		if i > 0 && r.Start < sorted[i-1].End {
			return &InvalidPositionError{Op: "create segments", Position: r.Start, Length: len(tc.text), Reason: "ranges overlap"}
		}
	}
	for i := len(sorted) - 1; i >= 0; i-- {
		tc.carve(sorted[i].Start, sorted[i].End)
	}
	tc.syncSegments()
	return nil
}

// MergeSegment dissolves segment i back into the surrounding text.
func (tc *TextContainer) MergeSegment(i int) error {
	tc.syncSegments()
	pos := tc.segmentPos(i)
	if pos < 0 {
		return Illegal("merge segment", "no segment at index %d", i)
	}
	seg := tc.segments[i]
	tc.segments[i] = nil
	tc.replaceMarker(pos, seg.Content)
	tc.syncSegments()
	return nil
}

// replaceMarker swaps the two-rune marker at pos for the content of f,
// keeping code ids.
func (tc *TextContainer) replaceMarker(pos int, f *TextFragment) {
	tc.ensureArena()
	memo := make(map[*InlineAnnotation]SpanID)
	var b codedBuilder
	b.copyFrom(tc.text[:pos], tc.codes, nil)
	b.copyFrom(f.text, f.codes, func(c *Code) *Code {
		n := c.cloneInto(tc.arena, memo)
		tc.noteID(n.ID)
		return n
	})
	b.copyFrom(tc.text[pos+2:], tc.codes, nil)
	tc.commit(&b)
}

// MergeAllSegments dissolves every segment.
func (tc *TextContainer) MergeAllSegments() {
	for tc.SegmentCount() > 0 {
		_ = tc.MergeSegment(0)
	}
}

// JoinWithNext merges segment i with segment i+1. The text between them
// becomes part of the joined segment.
func (tc *TextContainer) JoinWithNext(i int) error {
	tc.syncSegments()
	if i < 0 || i+1 >= len(tc.segments) {
		return Illegal("join segments", "no segment after index %d", i)
	}
	p1, p2 := tc.segmentPos(i), tc.segmentPos(i+1)
	between, err := tc.SubSequence(p1+2, p2)
	if err != nil {
		return err
	}
	joined := tc.segments[i].Content.Clone()
	_ = joined.insert(-1, between, true)
	_ = joined.insert(-1, tc.segments[i+1].Content, true)
	tc.segments[i] = &Segment{Content: joined}
	tc.segments[i+1] = nil

	var b codedBuilder
	b.copyFrom(tc.text[:p1+2], tc.codes, nil)
	b.copyFrom(tc.text[p2+2:], tc.codes, nil)
	tc.commit(&b)
	tc.syncSegments()
	return nil
}

// Unsegmented returns a copy of the full content with every segment
// merged back in place.
func (tc *TextContainer) Unsegmented() *TextFragment {
	tc.syncSegments()
	if len(tc.segments) == 0 {
		return tc.TextFragment.Clone()
	}
	c := tc.Clone()
	c.MergeAllSegments()
	return c.TextFragment
}

// String renders the whole content, segments included.
func (tc *TextContainer) String() string {
	return tc.render((*TextFragment).String)
}

// Text renders the visible text, segments included.
func (tc *TextContainer) Text() string {
	return tc.render((*TextFragment).Text)
}

func (tc *TextContainer) render(part func(*TextFragment) string) string {
	tc.syncSegments()
	if len(tc.segments) == 0 {
		return part(tc.TextFragment)
	}
	var sb strings.Builder
	last := 0
	for p := 0; p < len(tc.text); p++ {
		if !IsMarker(tc.text[p]) {
			continue
		}
		if tc.text[p] == MarkerSegment {
			piece, _ := tc.SubSequence(last, p)
			sb.WriteString(part(piece))
			sb.WriteString(part(tc.segments[MarkerIndex(tc.text[p+1])].Content))
			last = p + 2
		}
		p++
	}
	piece, _ := tc.SubSequence(last, len(tc.text))
	sb.WriteString(part(piece))
	return sb.String()
}

// Clone returns a deep copy of the container, segments and properties
// included.
func (tc *TextContainer) Clone() *TextContainer {
	tc.syncSegments()
	n := &TextContainer{
		TextFragment: tc.TextFragment.Clone(),
		Properties:   tc.Properties.Clone(),
	}
	for _, s := range tc.segments {
		n.segments = append(n.segments, &Segment{ID: s.ID, Content: s.Content.Clone()})
	}
	return n
}
