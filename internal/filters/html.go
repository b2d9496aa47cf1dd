package filters

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/dgallion1/docloc/internal/encoder"
	"github.com/dgallion1/docloc/internal/event"
	"github.com/dgallion1/docloc/internal/filterwriter"
	"github.com/dgallion1/docloc/internal/locale"
	"github.com/dgallion1/docloc/internal/rawdoc"
	"github.com/dgallion1/docloc/internal/resource"
	"github.com/dgallion1/docloc/internal/skeleton"
)

// HTMLFilter handles HTML files. Block elements become text units, inline
// elements become codes, and alt and title attributes become referents.
type HTMLFilter struct {
	Log *slog.Logger
}

func (p *HTMLFilter) Name() string         { return "html" }
func (p *HTMLFilter) MimeType() string     { return "text/html" }
func (p *HTMLFilter) Extensions() []string { return []string{".html", ".htm"} }

func (p *HTMLFilter) NewWriter() filterwriter.Writer {
	return filterwriter.NewGeneric(encoder.HTML{}, logger(p.Log))
}

var htmlBlocks = setOf("p", "h1", "h2", "h3", "h4", "h5", "h6", "li", "td", "th",
	"title", "dt", "dd", "caption", "figcaption", "button", "label", "option")

var htmlInline = setOf("a", "abbr", "b", "bdi", "bdo", "cite", "code", "data", "del",
	"dfn", "em", "font", "i", "ins", "kbd", "mark", "q", "s", "samp", "small", "span",
	"strike", "strong", "sub", "sup", "time", "tt", "u", "var")

var htmlVoidInline = setOf("br", "img", "wbr")

var htmlRawText = setOf("script", "style")

func setOf(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

func attrPattern(names string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\s(` + names + `)\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s"'>]+))`)
}

var (
	translatableAttr = attrPattern("alt|title")
	langAttr         = attrPattern("lang|xml:lang")
	charsetAttr      = attrPattern("charset")
	contentAttr      = attrPattern("content")
	httpEquivAttr    = attrPattern("http-equiv")
	charsetParam     = regexp.MustCompile(`(?i)charset\s*=\s*([^\s;"']+)`)
)

// attrValue locates the value of the first attribute matched by re in a
// raw tag. ok is false when there is none.
func attrValue(re *regexp.Regexp, raw string) (start, end int, ok bool) {
	m := re.FindStringSubmatchIndex(raw)
	if m == nil {
		return 0, 0, false
	}
	for g := 2; g <= 4; g++ {
		if m[2*g] >= 0 {
			return m[2*g], m[2*g+1], true
		}
	}
	return 0, 0, false
}

// tagPiece is a literal run of a tag or a reference to a referent.
type tagPiece struct {
	text string
	ref  *resource.TextUnit
}

type htmlState struct {
	b       *EventBuilder
	open    []string // block names of open text units; "" for implicit ones
	rawText string
}

func (p *HTMLFilter) Open(doc *rawdoc.RawDocument) ([]event.Event, error) {
	doc.MimeType = p.MimeType()
	dec, err := doc.Decode()
	if err != nil {
		return nil, fmt.Errorf("html: %w", err)
	}

	b := NewEventBuilder(rootID(doc), doc.SourceLocale, p.MimeType())
	b.StartDocument(&resource.StartDocument{
		Name:       doc.Name,
		Encoding:   dec.Encoding,
		HasUTF8BOM: dec.HasBOM,
		LineBreak:  dec.LineBreak,
		FilterName: p.Name(),
	})
	st := &htmlState{b: b}

	z := html.NewTokenizer(strings.NewReader(dec.Text))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if errors.Is(z.Err(), io.EOF) {
				break
			}
			return nil, fmt.Errorf("html: %w", z.Err())
		}
		raw := string(z.Raw())
		var name string
		if tt == html.StartTagToken || tt == html.EndTagToken || tt == html.SelfClosingTagToken {
			n, _ := z.TagName()
			name = string(n)
		}
		if err := st.token(tt, name, raw); err != nil {
			return nil, fmt.Errorf("html: %w", err)
		}
	}
	for len(st.open) > 0 {
		if err := st.closeTop(""); err != nil {
			return nil, fmt.Errorf("html: %w", err)
		}
	}

	events, err := b.Finish("")
	if err != nil {
		return nil, fmt.Errorf("html: %w", err)
	}
	logger(p.Log).Debug("parsed document", "filter", p.Name(), "filename", doc.Name, "text_units", len(event.TextUnits(events)))
	return events, nil
}

func (st *htmlState) token(tt html.TokenType, name, raw string) error {
	switch tt {
	case html.TextToken:
		return st.text(raw)
	case html.StartTagToken, html.SelfClosingTagToken:
		return st.startTag(name, raw, tt == html.SelfClosingTagToken)
	case html.EndTagToken:
		return st.endTag(name, raw)
	default:
		// Comments and doctypes.
		if st.b.InTextUnit() {
			_, err := st.b.AddPlaceholder("x-comment", raw)
			return err
		}
		return st.b.AddSkeleton(raw)
	}
}

func (st *htmlState) text(raw string) error {
	if st.rawText != "" {
		if st.b.InTextUnit() {
			_, err := st.b.AddPlaceholder(st.rawText, raw)
			return err
		}
		return st.b.AddSkeleton(raw)
	}
	if !st.b.InTextUnit() {
		if strings.TrimSpace(raw) == "" {
			return st.b.AddSkeleton(raw)
		}
		st.openUnit("", nil)
	}
	tu := st.b.TextUnit()
	appendEntityText(tu.SourceContent(), raw, decodeHTMLRef)
	return nil
}

// HTML writers re-escape these references exactly, so they decode to
// text. Every other reference stays as written in an x-entity code.
var htmlTextRefs = map[string]string{"&amp;": "&", "&lt;": "<", "&gt;": ">", "&nbsp;": "\u00a0"}

func decodeHTMLRef(ref string) (string, bool) {
	s, ok := htmlTextRefs[ref]
	return s, ok
}

func decodeHTMLAttrRef(ref string) (string, bool) {
	if ref == "&quot;" {
		return `"`, true
	}
	return decodeHTMLRef(ref)
}

func (st *htmlState) openUnit(name string, start []tagPiece) {
	tu := st.b.StartTextUnit("")
	tu.Type = name
	skel := tu.Skeleton.(*skeleton.Skeleton)
	for _, pc := range start {
		if pc.ref != nil {
			skel.AddReference(resource.HandleOf(pc.ref))
		} else {
			skel.Append(pc.text)
		}
	}
	st.open = append(st.open, name)
}

func (st *htmlState) closeTop(endMarker string) error {
	st.open = st.open[:len(st.open)-1]
	_, err := st.b.EndTextUnit(endMarker)
	return err
}

// closeImplicit ends any text unit opened by bare text.
func (st *htmlState) closeImplicit() error {
	for len(st.open) > 0 && st.open[len(st.open)-1] == "" {
		if err := st.closeTop(""); err != nil {
			return err
		}
	}
	return nil
}

// pieces splits a raw tag around its translatable attribute values,
// emitting a referent for each non-empty one.
func (st *htmlState) pieces(name, raw string) []tagPiece {
	var out []tagPiece
	rest := raw
	for {
		s, e, ok := attrValue(translatableAttr, rest)
		if !ok {
			break
		}
		value := html.UnescapeString(rest[s:e])
		if strings.TrimSpace(value) == "" {
			out = append(out, tagPiece{text: rest[:e]})
			rest = rest[e:]
			continue
		}
		ref := st.b.AddReferent("", name)
		appendEntityText(ref.SourceContent(), rest[s:e], decodeHTMLAttrRef)
		out = append(out, tagPiece{text: rest[:s]}, tagPiece{ref: ref})
		rest = rest[e:]
	}
	return append(out, tagPiece{text: rest})
}

func codeData(pieces []tagPiece) (string, bool) {
	var sb strings.Builder
	hasRef := false
	for _, pc := range pieces {
		if pc.ref != nil {
			sb.WriteString(refMarker(pc.ref.ID))
			hasRef = true
		} else {
			sb.WriteString(pc.text)
		}
	}
	return sb.String(), hasRef
}

func (st *htmlState) skeletonTag(pieces []tagPiece) error {
	if err := st.closeImplicit(); err != nil {
		return err
	}
	skel := st.b.PartSkeleton()
	for _, pc := range pieces {
		if pc.ref != nil {
			skel.AddReference(resource.HandleOf(pc.ref))
		} else {
			skel.Append(pc.text)
		}
	}
	return nil
}

func (st *htmlState) startTag(name, raw string, selfClosing bool) error {
	if htmlRawText[name] && !selfClosing {
		st.rawText = name
	}
	switch {
	case htmlBlocks[name]:
		if err := st.closeImplicit(); err != nil {
			return err
		}
		if n := len(st.open); n > 0 && (st.open[n-1] == name || st.open[n-1] == "p") {
			if err := st.closeTop(""); err != nil {
				return err
			}
		}
		st.openUnit(name, st.pieces(name, raw))
		if selfClosing {
			return st.closeTop("")
		}
		return nil

	case htmlInline[name], htmlVoidInline[name]:
		void := selfClosing || htmlVoidInline[name]
		if !st.b.InTextUnit() {
			if void && name != "img" {
				return st.b.AddSkeleton(raw)
			}
			if void {
				return st.skeletonTag(st.pieces(name, raw))
			}
			st.openUnit("", nil)
		}
		data, hasRef := codeData(st.pieces(name, raw))
		var c *resource.Code
		var err error
		if void {
			c, err = st.b.AddPlaceholder(name, data)
		} else {
			c, err = st.b.StartCode(name, data)
		}
		if c != nil {
			c.HasReference = hasRef
		}
		return err
	}

	if st.b.InTextUnit() && st.open[len(st.open)-1] != "" {
		data, hasRef := codeData(st.pieces(name, raw))
		c, err := st.b.AddPlaceholder(name, data)
		if c != nil {
			c.HasReference = hasRef
		}
		return err
	}
	if err := st.closeImplicit(); err != nil {
		return err
	}
	switch name {
	case "meta":
		return st.meta(raw)
	case "html":
		if s, e, ok := attrValue(langAttr, raw); ok {
			return st.valueTag(raw, s, e, encoder.PropLanguage)
		}
	}
	return st.skeletonTag(st.pieces(name, raw))
}

// meta turns declared charsets and content languages into value
// placeholders so writers can update them.
func (st *htmlState) meta(raw string) error {
	if s, e, ok := attrValue(charsetAttr, raw); ok {
		return st.valueTag(raw, s, e, encoder.PropEncoding)
	}
	s, e, ok := attrValue(contentAttr, raw)
	if !ok {
		return st.skeletonTag(st.pieces("meta", raw))
	}
	hs, he, _ := attrValue(httpEquivAttr, raw)
	equiv := strings.ToLower(raw[hs:he])
	switch equiv {
	case "content-type":
		if m := charsetParam.FindStringSubmatchIndex(raw[s:e]); m != nil {
			return st.valueTag(raw, s+m[2], s+m[3], encoder.PropEncoding)
		}
	case "content-language":
		return st.valueTag(raw, s, e, encoder.PropLanguage)
	}
	return st.skeletonTag(st.pieces("meta", raw))
}

func (st *htmlState) valueTag(raw string, s, e int, prop string) error {
	dp := st.b.DocumentPart()
	dp.SetSourceProperty(resource.NewProperty(prop, raw[s:e], false))
	skel := st.b.PartSkeleton()
	skel.Append(raw[:s])
	skel.AddValuePlaceholder(skeleton.Self, prop, locale.Empty)
	skel.Add(raw[e:])
	return nil
}

func (st *htmlState) endTag(name, raw string) error {
	if name == st.rawText {
		st.rawText = ""
	}
	if htmlBlocks[name] {
		for i := len(st.open) - 1; i >= 0; i-- {
			if st.open[i] != name {
				continue
			}
			for len(st.open) > i+1 {
				if err := st.closeTop(""); err != nil {
					return err
				}
			}
			return st.closeTop(raw)
		}
	}
	if st.b.InTextUnit() {
		if htmlInline[name] && st.b.HasOpenCode(name) {
			_, err := st.b.EndCode(name, raw)
			return err
		}
		if htmlInline[name] || st.open[len(st.open)-1] != "" {
			_, err := st.b.AddPlaceholder(name, raw)
			return err
		}
	}
	if err := st.closeImplicit(); err != nil {
		return err
	}
	return st.b.AddSkeleton(raw)
}
