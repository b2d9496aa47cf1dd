package resource

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Marker runes. Each inline code takes two runes in the coded text: one of
// these markers followed by an index rune.
const (
	MarkerOpening  = '\uE101'
	MarkerClosing  = '\uE102'
	MarkerIsolated = '\uE103'
	MarkerSegment  = '\uE104'
)

// TypeReserved is the type of the placeholder code that stands for a
// marker rune found in plain text. Its data is the rune itself, so output
// keeps the original character.
const TypeReserved = "x-reserved"

// IndexBase is the index rune of the first code. Index runes live in the
// supplementary private-use planes, so they never collide with markers.
const IndexBase = 0xF0000

// MaxCodes is the number of codes a fragment can index.
const MaxCodes = 0x110000 - IndexBase

// IsMarker reports whether r starts a two-rune marker pair.
func IsMarker(r rune) bool {
	return r >= MarkerOpening && r <= MarkerSegment
}

func isCodeMarker(r rune) bool {
	return r >= MarkerOpening && r <= MarkerIsolated
}

// MarkerIndex returns the code index carried by an index rune.
func MarkerIndex(r rune) int { return int(r - IndexBase) }

// IndexRune returns the index rune for code index i.
func IndexRune(i int) rune {
	if i < 0 || i >= MaxCodes {
		panic(&CodeLimitError{Count: i + 1})
	}
	return rune(IndexBase + i)
}

func markerFor(t TagType) rune {
	switch t {
	case Opening:
		return MarkerOpening
	case Closing:
		return MarkerClosing
	default:
		return MarkerIsolated
	}
}

// TextFragment is a coded-text buffer and the codes its markers point to.
// The code list is kept in marker order: the k-th marker pair resolves to
// Codes()[k].
type TextFragment struct {
	text   []rune
	codes  []*Code
	arena  *annotationArena
	lastID int
}

// NewTextFragment returns a fragment holding plain text. Marker runes in
// text become TypeReserved placeholders.
func NewTextFragment(text string) *TextFragment {
	f := &TextFragment{arena: newArena()}
	f.Append(text)
	return f
}

// FromCodedText builds a fragment from coded text and the codes its
// markers index.
func FromCodedText(codedText string, codes []*Code) (*TextFragment, error) {
	f := NewTextFragment("")
	if err := f.SetCodedTextAndCodes(codedText, codes); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *TextFragment) ensureArena() {
	if f.arena == nil {
		f.arena = newArena()
	}
}

// CodedText returns the full coded text.
func (f *TextFragment) CodedText() string { return string(f.text) }

// CodedTextRange returns the coded text between start and end.
func (f *TextFragment) CodedTextRange(start, end int) (string, error) {
	if err := f.checkRange("coded text", start, end); err != nil {
		return "", err
	}
	return string(f.text[start:end]), nil
}

// Len returns the length of the coded text in runes.
func (f *TextFragment) Len() int { return len(f.text) }

// IsEmpty reports whether the coded text is empty.
func (f *TextFragment) IsEmpty() bool { return len(f.text) == 0 }

// HasCode reports whether the fragment holds at least one code.
func (f *TextFragment) HasCode() bool { return len(f.codes) > 0 }

// HasText reports whether there is any visible text. Whitespace only
// counts when whitespaceIsText is set.
func (f *TextFragment) HasText(whitespaceIsText bool) bool {
	for i := 0; i < len(f.text); i++ {
		r := f.text[i]
		if IsMarker(r) {
			i++
			continue
		}
		if whitespaceIsText || !unicode.IsSpace(r) {
			return true
		}
	}
	return false
}

// Codes returns the code list in marker order. The slice is a copy, the
// codes are not.
func (f *TextFragment) Codes() []*Code {
	out := make([]*Code, len(f.codes))
	copy(out, f.codes)
	return out
}

// CodeCount returns the number of codes.
func (f *TextFragment) CodeCount() int { return len(f.codes) }

// Code returns the code at list index i, or nil.
func (f *TextFragment) Code(i int) *Code {
	if i < 0 || i >= len(f.codes) {
		return nil
	}
	return f.codes[i]
}

// CodeByMarker resolves the index rune of a marker pair.
func (f *TextFragment) CodeByMarker(index rune) *Code {
	return f.Code(MarkerIndex(index))
}

// CodeByID returns the first code with the given id and tag type.
func (f *TextFragment) CodeByID(id int, tagType TagType) *Code {
	for _, c := range f.codes {
		if c.ID == id && c.TagType == tagType {
			return c
		}
	}
	return nil
}

// CodesInRange returns the codes whose markers lie within [start,end).
func (f *TextFragment) CodesInRange(start, end int) ([]*Code, error) {
	if err := f.checkRange("codes", start, end); err != nil {
		return nil, err
	}
	var out []*Code
	for i := start; i < end; i++ {
		if isCodeMarker(f.text[i]) {
			out = append(out, f.codes[MarkerIndex(f.text[i+1])])
			i++
		} else if f.text[i] == MarkerSegment {
			i++
		}
	}
	return out, nil
}

// LastCodeID returns the highest id handed out so far.
func (f *TextFragment) LastCodeID() int { return f.lastID }

func (f *TextFragment) nextID() int {
	f.lastID++
	return f.lastID
}

func (f *TextFragment) noteID(id int) {
	if id > f.lastID {
		f.lastID = id
	}
}

// openingFor finds the id of the last opening code of type typ among the
// first n codes that is not closed before the n-th code.
func (f *TextFragment) openingFor(typ string, n int) (int, bool) {
	closed := make(map[int]bool)
	for i := n - 1; i >= 0; i-- {
		c := f.codes[i]
		switch c.TagType {
		case Closing:
			closed[c.ID] = true
		case Opening:
			if c.Type == typ && !closed[c.ID] {
				return c.ID, true
			}
		}
	}
	return 0, false
}

func (f *TextFragment) assignID(c *Code, before int) {
	if c.TagType == Closing {
		if id, ok := f.openingFor(c.Type, before); ok {
			c.ID = id
			return
		}
	}
	c.ID = f.nextID()
}

// codesBefore counts the code markers before position pos.
func (f *TextFragment) codesBefore(pos int) int {
	n := 0
	for i := 0; i < pos && i < len(f.text); i++ {
		if isCodeMarker(f.text[i]) {
			n++
			i++
		} else if f.text[i] == MarkerSegment {
			i++
		}
	}
	return n
}

// checkPos validates a boundary: in range and not inside a marker pair.
func (f *TextFragment) checkPos(op string, pos int) error {
	if pos < 0 || pos > len(f.text) {
		return &InvalidPositionError{Op: op, Position: pos, Length: len(f.text), Reason: "out of range"}
	}
	if pos > 0 && pos < len(f.text) && IsMarker(f.text[pos-1]) {
		return &InvalidPositionError{Op: op, Position: pos, Length: len(f.text), Reason: "inside a marker pair"}
	}
	return nil
}

func (f *TextFragment) checkRange(op string, start, end int) error {
	if err := f.checkPos(op, start); err != nil {
		return err
	}
	if err := f.checkPos(op, end); err != nil {
		return err
	}
	if end < start {
		return &InvalidPositionError{Op: op, Position: end, Length: len(f.text), Reason: "end before start"}
	}
	return nil
}

// codedBuilder assembles a coded text while renumbering code markers so
// that the code list stays in marker order.
type codedBuilder struct {
	text  []rune
	codes []*Code
}

func (b *codedBuilder) addText(r []rune) {
	b.text = append(b.text, r...)
}

func (b *codedBuilder) addCode(c *Code) {
	if len(b.codes) >= MaxCodes {
		panic(&CodeLimitError{Count: len(b.codes) + 1})
	}
	b.text = append(b.text, markerFor(c.TagType), IndexRune(len(b.codes)))
	b.codes = append(b.codes, c)
}

// copyFrom copies src, resolving its code markers against codes. When
// conv is not nil every code passes through it first.
func (b *codedBuilder) copyFrom(src []rune, codes []*Code, conv func(*Code) *Code) {
	for i := 0; i < len(src); i++ {
		r := src[i]
		switch {
		case isCodeMarker(r) && i+1 < len(src):
			c := codes[MarkerIndex(src[i+1])]
			if conv != nil {
				c = conv(c)
			}
			b.addCode(c)
			i++
		case r == MarkerSegment && i+1 < len(src):
			b.text = append(b.text, r, src[i+1])
			i++
		default:
			b.text = append(b.text, r)
		}
	}
}

func (f *TextFragment) commit(b *codedBuilder) {
	f.text = b.text
	f.codes = b.codes
}

// Append adds visible text at the end. Marker runes in text become
// TypeReserved placeholders.
func (f *TextFragment) Append(text string) {
	start := 0
	for i, r := range text {
		if !IsMarker(r) {
			continue
		}
		f.text = append(f.text, []rune(text[start:i])...)
		f.AddCode(NewCode(Placeholder, TypeReserved, string(r)))
		start = i + utf8.RuneLen(r)
	}
	f.text = append(f.text, []rune(text[start:])...)
}

// AppendCode creates a code, appends it and returns it.
func (f *TextFragment) AppendCode(tagType TagType, typ, data string) *Code {
	return f.AddCode(NewCode(tagType, typ, data))
}

// AddCode appends an existing code and returns it. A code without an id
// (ID <= 0) gets one: openings and placeholders take the next id, closings
// reuse the id of the nearest unclosed opening of the same type.
func (f *TextFragment) AddCode(c *Code) *Code {
	f.ensureArena()
	if len(f.codes) >= MaxCodes {
		panic(&CodeLimitError{Count: len(f.codes) + 1})
	}
	if c.ID <= 0 {
		f.assignID(c, len(f.codes))
	} else {
		f.noteID(c.ID)
	}
	c.moveInto(f.arena, make(map[*InlineAnnotation]SpanID))
	f.text = append(f.text, markerFor(c.TagType), IndexRune(len(f.codes)))
	f.codes = append(f.codes, c)
	return c
}

// AppendFragment appends a copy of other, renumbering its codes.
func (f *TextFragment) AppendFragment(other *TextFragment) {
	_ = f.Insert(-1, other)
}

// Insert places a copy of other at pos (-1 for the end). Inserted codes
// get fresh ids; closings pair with the openings inserted alongside them
// or with an unclosed opening before pos.
func (f *TextFragment) Insert(pos int, other *TextFragment) error {
	return f.insert(pos, other, false)
}

func (f *TextFragment) insert(pos int, other *TextFragment, keepIDs bool) error {
	if pos == -1 {
		pos = len(f.text)
	}
	if err := f.checkPos("insert", pos); err != nil {
		return err
	}
	if other == nil || other.IsEmpty() {
		return nil
	}
	f.ensureArena()
	memo := make(map[*InlineAnnotation]SpanID)
	before := f.codesBefore(pos)
	remap := make(map[int]int)
	conv := func(c *Code) *Code {
		n := c.cloneInto(f.arena, memo)
		switch {
		case keepIDs:
			f.noteID(n.ID)
		case n.TagType == Closing:
			if id, ok := remap[c.ID]; ok {
				n.ID = id
			} else if id, ok := f.openingFor(n.Type, before); ok {
				n.ID = id
			} else {
				n.ID = f.nextID()
			}
		default:
			n.ID = f.nextID()
			remap[c.ID] = n.ID
		}
		return n
	}
	var b codedBuilder
	b.copyFrom(f.text[:pos], f.codes, nil)
	b.copyFrom(other.text, other.codes, conv)
	b.copyFrom(f.text[pos:], f.codes, nil)
	f.commit(&b)
	return nil
}

// InsertText places plain text at pos.
func (f *TextFragment) InsertText(pos int, text string) error {
	return f.Insert(pos, NewTextFragment(text))
}

// Remove deletes [start,end). Codes whose markers fall in the range are
// dropped from the code list.
func (f *TextFragment) Remove(start, end int) error {
	if err := f.checkRange("remove", start, end); err != nil {
		return err
	}
	var b codedBuilder
	b.copyFrom(f.text[:start], f.codes, nil)
	b.copyFrom(f.text[end:], f.codes, nil)
	f.commit(&b)
	return nil
}

// ChangeToCode turns the literal text [start,end) into a code whose data
// is that text. It returns the change in coded length, 2-(end-start), so
// callers can chain calls with a running offset.
func (f *TextFragment) ChangeToCode(start, end int, tagType TagType, typ string) (int, error) {
	if err := f.checkRange("change to code", start, end); err != nil {
		return 0, err
	}
	for i := start; i < end; i++ {
		if IsMarker(f.text[i]) {
			return 0, &InvalidPositionError{Op: "change to code", Position: i, Length: len(f.text), Reason: "range contains a marker"}
		}
	}
	f.ensureArena()
	c := NewCode(tagType, typ, string(f.text[start:end]))
	c.arena = f.arena
	f.assignID(c, f.codesBefore(start))
	var b codedBuilder
	b.copyFrom(f.text[:start], f.codes, nil)
	b.addCode(c)
	b.copyFrom(f.text[end:], f.codes, nil)
	f.commit(&b)
	return 2 - (end - start), nil
}

// SetCodedText replaces the coded text while keeping the current codes.
// Every code must still be referenced by exactly one marker.
func (f *TextFragment) SetCodedText(codedText string) error {
	return f.setCodedText(codedText, f.codes, false)
}

// SetCodedTextAndCodes replaces both the coded text and the code list.
// The markers of codedText index codes.
func (f *TextFragment) SetCodedTextAndCodes(codedText string, codes []*Code) error {
	return f.setCodedText(codedText, codes, true)
}

func (f *TextFragment) setCodedText(codedText string, codes []*Code, adopt bool) error {
	text := []rune(codedText)
	used := make([]bool, len(codes))
	for i := 0; i < len(text); i++ {
		if !IsMarker(text[i]) {
			continue
		}
		if i+1 >= len(text) {
			return &InvalidPositionError{Op: "set coded text", Position: i, Length: len(text), Reason: "truncated marker"}
		}
		if isCodeMarker(text[i]) {
			idx := MarkerIndex(text[i+1])
			if idx < 0 || idx >= len(codes) {
				return Illegal("set coded text", "marker at %d refers to missing code %d", i, idx)
			}
			if used[idx] {
				return Illegal("set coded text", "code %d referenced twice", idx)
			}
			used[idx] = true
		}
		i++
	}
	if !adopt {
		for i, u := range used {
			if !u {
				return Illegal("set coded text", "code %d (id %d) is missing from the coded text", i, codes[i].ID)
			}
		}
	}
	if adopt {
		f.arena = newArena()
		f.lastID = 0
	}
	f.ensureArena()
	memo := make(map[*InlineAnnotation]SpanID)
	conv := func(c *Code) *Code {
		if adopt {
			c.moveInto(f.arena, memo)
			f.noteID(c.ID)
		}
		return c
	}
	var b codedBuilder
	b.copyFrom(text, codes, conv)
	f.commit(&b)
	return nil
}

// Clear empties the fragment.
func (f *TextFragment) Clear() {
	f.text = nil
	f.codes = nil
	f.arena = newArena()
	f.lastID = 0
}

// Clone returns a deep copy. Annotations shared inside f stay shared
// inside the copy but are independent from f.
func (f *TextFragment) Clone() *TextFragment {
	n := &TextFragment{
		text:   append([]rune(nil), f.text...),
		arena:  newArena(),
		lastID: f.lastID,
	}
	memo := make(map[*InlineAnnotation]SpanID)
	n.codes = make([]*Code, len(f.codes))
	for i, c := range f.codes {
		n.codes[i] = c.cloneInto(n.arena, memo)
	}
	return n
}

// SubSequence returns a copy of [start,end) as a new fragment. Code ids
// are kept.
func (f *TextFragment) SubSequence(start, end int) (*TextFragment, error) {
	if err := f.checkRange("sub-sequence", start, end); err != nil {
		return nil, err
	}
	n := &TextFragment{arena: newArena(), lastID: f.lastID}
	memo := make(map[*InlineAnnotation]SpanID)
	var b codedBuilder
	b.copyFrom(f.text[start:end], f.codes, func(c *Code) *Code {
		return c.cloneInto(n.arena, memo)
	})
	n.commit(&b)
	return n, nil
}

// String renders the fragment with each code replaced by its data.
func (f *TextFragment) String() string {
	var sb strings.Builder
	for i := 0; i < len(f.text); i++ {
		r := f.text[i]
		if IsMarker(r) && i+1 < len(f.text) {
			if isCodeMarker(r) {
				sb.WriteString(f.codes[MarkerIndex(f.text[i+1])].Data)
			}
			i++
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Text renders the visible text only. TypeReserved placeholders count as
// text.
func (f *TextFragment) Text() string {
	var sb strings.Builder
	for i := 0; i < len(f.text); i++ {
		if IsMarker(f.text[i]) {
			if isCodeMarker(f.text[i]) && i+1 < len(f.text) {
				if c := f.codes[MarkerIndex(f.text[i+1])]; c.Type == TypeReserved {
					sb.WriteString(c.Data)
				}
			}
			i++
			continue
		}
		sb.WriteRune(f.text[i])
	}
	return sb.String()
}

// CompareTo orders fragments by coded text. With codeSensitive set, equal
// coded texts are further ordered by the data of their codes.
func (f *TextFragment) CompareTo(other *TextFragment, codeSensitive bool) int {
	if c := strings.Compare(string(f.text), string(other.text)); c != 0 {
		return c
	}
	if !codeSensitive {
		return 0
	}
	for i := 0; i < len(f.codes) && i < len(other.codes); i++ {
		if c := strings.Compare(f.codes[i].Data, other.codes[i].Data); c != 0 {
			return c
		}
	}
	return len(f.codes) - len(other.codes)
}

// CompareToString compares the coded text with s.
func (f *TextFragment) CompareToString(s string) int {
	return strings.Compare(string(f.text), s)
}

// RenumberCodes gives codes the ids 1..n in marker order, keeping closing
// codes paired with their openings.
func (f *TextFragment) RenumberCodes() {
	remap := make(map[int]int)
	next := 0
	for _, c := range f.codes {
		if c.TagType == Closing {
			if id, ok := remap[c.ID]; ok {
				c.ID = id
				continue
			}
		}
		next++
		remap[c.ID] = next
		c.ID = next
	}
	f.lastID = next
}

// Markers walks the coded text and calls fn for every code marker with
// its position and code. Returning false stops the walk.
func (f *TextFragment) Markers(fn func(pos int, c *Code) bool) {
	for i := 0; i < len(f.text); i++ {
		r := f.text[i]
		if !IsMarker(r) {
			continue
		}
		if isCodeMarker(r) && i+1 < len(f.text) {
			if !fn(i, f.codes[MarkerIndex(f.text[i+1])]) {
				return
			}
		}
		i++
	}
}

// RuneAt returns the coded-text rune at pos.
func (f *TextFragment) RuneAt(pos int) rune { return f.text[pos] }
