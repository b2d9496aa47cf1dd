// Package po reads and writes gettext PO catalogues.
package po

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dgallion1/docloc/internal/encoder"
	"github.com/dgallion1/docloc/internal/resource"
)

// Span is a byte range of the catalogue text.
type Span struct {
	Start, End int
}

// Entry is one message of a catalogue together with its position.
type Entry struct {
	// Start and End cover the entry's lines, comments included.
	Start, End int

	Comments   []string
	Extracted  []string
	References []string
	Flags      []string

	Context    string
	HasContext bool
	ID         string
	IDPlural   string
	// Str holds msgstr, or msgstr[n] for plural entries.
	Str []string
	// StrSpans locate the quoted text of each Str value, from after the
	// first quote to before the last one. A leading "" line is left out.
	StrSpans []Span
	Obsolete bool

	hasID bool
}

// HasMessage reports whether the entry has a msgid line.
func (e *Entry) HasMessage() bool { return e.hasID && !e.Obsolete }

// IsHeader reports whether the entry is the catalogue header.
func (e *Entry) IsHeader() bool {
	return e.HasMessage() && e.ID == "" && !e.HasContext
}

// IsPlural reports whether the entry has plural forms.
func (e *Entry) IsPlural() bool { return e.IDPlural != "" }

// Fuzzy reports whether the entry carries the fuzzy flag.
func (e *Entry) Fuzzy() bool {
	for _, f := range e.Flags {
		if f == "fuzzy" {
			return true
		}
	}
	return false
}

// File is a parsed catalogue.
type File struct {
	Entries []*Entry
}

// Header returns the parsed header, or an empty one.
func (f *File) Header() Header {
	for _, e := range f.Entries {
		if e.IsHeader() && len(e.Str) > 0 {
			return ParseHeader(e.Str[0])
		}
	}
	return nil
}

type field int

const (
	fieldNone field = iota
	fieldContext
	fieldID
	fieldPlural
	fieldStr
)

type parser struct {
	text    string
	file    *File
	cur     *Entry
	last    field
	lastStr int
	pieces  int
	line    int
}

// Parse reads a catalogue. Offsets in the result index text.
func Parse(text string) (*File, error) {
	p := &parser{text: text, file: &File{}}
	pos := 0
	for pos < len(text) {
		end := strings.IndexByte(text[pos:], '\n')
		if end < 0 {
			end = len(text)
		} else {
			end += pos + 1
		}
		p.line++
		if err := p.parseLine(pos, end); err != nil {
			return nil, err
		}
		pos = end
	}
	p.finish()
	return p.file, nil
}

func (p *parser) finish() {
	if p.cur != nil {
		p.file.Entries = append(p.file.Entries, p.cur)
	}
	p.cur = nil
	p.last = fieldNone
}

func (p *parser) entry(start int) *Entry {
	if p.cur == nil {
		p.cur = &Entry{Start: start}
	}
	return p.cur
}

func (p *parser) parseLine(start, end int) error {
	raw := p.text[start:end]
	body := strings.TrimRight(raw, "\r\n")
	trimmed := strings.TrimLeft(body, " \t")
	offset := start + len(body) - len(trimmed)

	if trimmed == "" {
		p.finish()
		return nil
	}
	if strings.HasPrefix(trimmed, "#") {
		if p.cur != nil && p.last != fieldNone {
			p.finish()
		}
		e := p.entry(start)
		e.End = end
		p.comment(e, trimmed)
		return nil
	}

	if trimmed[0] == '"' {
		if p.cur == nil || p.last == fieldNone {
			return resource.Illegal("parse po", "line %d: string without keyword", p.line)
		}
		value, s, err := p.quoted(trimmed, offset)
		if err != nil {
			return err
		}
		p.cur.End = end
		p.pieces++
		switch p.last {
		case fieldContext:
			p.cur.Context += value
		case fieldID:
			p.cur.ID += value
		case fieldPlural:
			p.cur.IDPlural += value
		case fieldStr:
			if p.pieces == 2 && p.cur.Str[p.lastStr] == "" {
				p.cur.StrSpans[p.lastStr].Start = s.Start
			}
			p.cur.Str[p.lastStr] += value
			p.cur.StrSpans[p.lastStr].End = s.End
		}
		return nil
	}

	keyword, rest, _ := strings.Cut(trimmed, " ")
	rest = strings.TrimLeft(rest, " \t")
	restOffset := offset + len(trimmed) - len(rest)
	value, s, err := p.quoted(rest, restOffset)
	if err != nil {
		return err
	}

	p.pieces = 1
	switch {
	case keyword == "msgctxt" || keyword == "msgid":
		if p.cur != nil && (p.last == fieldStr || p.last == fieldPlural || (keyword == "msgctxt" && p.cur.hasID)) {
			p.finish()
		}
		e := p.entry(start)
		if keyword == "msgctxt" {
			e.Context, e.HasContext = value, true
			p.last = fieldContext
		} else {
			e.ID, e.hasID = value, true
			p.last = fieldID
		}
	case keyword == "msgid_plural":
		if p.cur == nil || !p.cur.hasID {
			return resource.Illegal("parse po", "line %d: msgid_plural without msgid", p.line)
		}
		p.cur.IDPlural = value
		p.last = fieldPlural
	case keyword == "msgstr" || strings.HasPrefix(keyword, "msgstr["):
		if p.cur == nil || !p.cur.hasID {
			return resource.Illegal("parse po", "line %d: msgstr without msgid", p.line)
		}
		n := 0
		if keyword != "msgstr" {
			idx := strings.TrimSuffix(strings.TrimPrefix(keyword, "msgstr["), "]")
			if n, err = strconv.Atoi(idx); err != nil || n != len(p.cur.Str) {
				return resource.Illegal("parse po", "line %d: unexpected %s", p.line, keyword)
			}
		}
		p.cur.Str = append(p.cur.Str, value)
		p.cur.StrSpans = append(p.cur.StrSpans, s)
		p.lastStr = n
		p.last = fieldStr
	default:
		return resource.Illegal("parse po", "line %d: unknown keyword %q", p.line, keyword)
	}
	p.cur.End = end
	return nil
}

func (p *parser) comment(e *Entry, line string) {
	if strings.HasPrefix(line, "#~") {
		e.Obsolete = true
		return
	}
	text := func(prefix string) string {
		return strings.TrimSpace(strings.TrimPrefix(line, prefix))
	}
	switch {
	case strings.HasPrefix(line, "#."):
		e.Extracted = append(e.Extracted, text("#."))
	case strings.HasPrefix(line, "#:"):
		e.References = append(e.References, strings.Fields(text("#:"))...)
	case strings.HasPrefix(line, "#,"):
		for _, f := range strings.Split(text("#,"), ",") {
			if f = strings.TrimSpace(f); f != "" {
				e.Flags = append(e.Flags, f)
			}
		}
	case strings.HasPrefix(line, "#|"):
		// Previous strings are not kept.
	default:
		e.Comments = append(e.Comments, text("#"))
	}
}

// quoted decodes a double-quoted string at the start of s. offset is the
// position of s in the catalogue text.
func (p *parser) quoted(s string, offset int) (string, Span, error) {
	s = strings.TrimRight(s, " \t")
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return "", Span{}, resource.Illegal("parse po", "line %d: malformed string %q", p.line, s)
	}
	value, err := Unescape(s[1 : len(s)-1])
	if err != nil {
		return "", Span{}, resource.Illegal("parse po", "line %d: %v", p.line, err)
	}
	return value, Span{Start: offset + 1, End: offset + len(s) - 1}, nil
}

// Unescape decodes the backslash escapes of a quoted PO string.
func Unescape(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			sb.WriteByte(c)
			continue
		}
		i++
		if i == len(s) {
			return "", resource.Illegal("unescape", "trailing backslash in %q", s)
		}
		switch s[i] {
		case '\\', '"':
			sb.WriteByte(s[i])
		case 'a':
			sb.WriteByte('\a')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'v':
			sb.WriteByte('\v')
		default:
			return "", resource.Illegal("unescape", "unknown escape \\%c in %q", s[i], s)
		}
	}
	return sb.String(), nil
}

// Escape encodes s for a double-quoted PO string.
func Escape(s string) string {
	return encoder.PO{}.Encode(s, encoder.Attribute)
}

// Header is the parsed "Name: value" list of a catalogue header.
type Header map[string]string

// ParseHeader reads the header lines of msgstr.
func ParseHeader(msgstr string) Header {
	h := make(Header)
	for _, line := range strings.Split(msgstr, "\n") {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		h[strings.ToLower(strings.TrimSpace(name))] = strings.TrimSpace(value)
	}
	return h
}

// Get returns a header value; names are case-insensitive.
func (h Header) Get(name string) string {
	return h[strings.ToLower(name)]
}

var charsetParam = regexp.MustCompile(`(?i)charset\s*=\s*([^\s;]+)`)

// Charset returns the charset declared in Content-Type.
func (h Header) Charset() string {
	if m := charsetParam.FindStringSubmatch(h.Get("Content-Type")); m != nil {
		return m[1]
	}
	return ""
}

// NPlurals returns the plural count declared in Plural-Forms, or 0.
func (h Header) NPlurals() int {
	return NPlurals(h.Get("Plural-Forms"))
}
