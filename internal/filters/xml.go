package filters

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/dgallion1/docloc/internal/encoder"
	"github.com/dgallion1/docloc/internal/event"
	"github.com/dgallion1/docloc/internal/filterwriter"
	"github.com/dgallion1/docloc/internal/locale"
	"github.com/dgallion1/docloc/internal/rawdoc"
	"github.com/dgallion1/docloc/internal/resource"
	"github.com/dgallion1/docloc/internal/skeleton"
)

// DefaultXMLRule selects every element without child elements.
const DefaultXMLRule = "//*[not(*)]"

// XMLFilter handles XML files. Elements selected by the XPath rules become
// text units; elements inside them become codes.
type XMLFilter struct {
	Log *slog.Logger
	// Rules select the translatable elements. DefaultXMLRule is used when
	// empty.
	Rules []string
}

func (p *XMLFilter) Name() string         { return "xml" }
func (p *XMLFilter) MimeType() string     { return "text/xml" }
func (p *XMLFilter) Extensions() []string { return []string{".xml"} }

func (p *XMLFilter) NewWriter() filterwriter.Writer {
	return filterwriter.NewGeneric(encoder.XML{}, logger(p.Log))
}

var xmlDeclEncoding = regexp.MustCompile(`encoding\s*=\s*["']([^"']+)["']`)

type xmlKind int

const (
	xmlSkeleton xmlKind = iota
	xmlUnit
	xmlCode
)

type xmlOpen struct {
	kind xmlKind
	name string
}

type xmlState struct {
	b    *EventBuilder
	open []xmlOpen
}

func (p *XMLFilter) Open(doc *rawdoc.RawDocument) ([]event.Event, error) {
	doc.MimeType = p.MimeType()
	dec, err := doc.Decode()
	if err != nil {
		return nil, fmt.Errorf("xml: %w", err)
	}
	selected, err := p.selectElements(dec.Text)
	if err != nil {
		return nil, fmt.Errorf("xml: %w", err)
	}

	b := NewEventBuilder(rootID(doc), doc.SourceLocale, p.MimeType())
	b.StartDocument(&resource.StartDocument{
		Name:       doc.Name,
		Encoding:   dec.Encoding,
		HasUTF8BOM: dec.HasBOM,
		LineBreak:  dec.LineBreak,
		FilterName: p.Name(),
	})
	st := &xmlState{b: b}

	d := xml.NewDecoder(strings.NewReader(dec.Text))
	d.Entity = xml.HTMLEntity
	d.CharsetReader = func(_ string, in io.Reader) (io.Reader, error) { return in, nil }

	ordinal := 0
	skipEnd := false
	prev := int64(0)
	for {
		tok, err := d.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("xml: %w", err)
		}
		off := d.InputOffset()
		raw := dec.Text[prev:off]
		prev = off

		switch t := tok.(type) {
		case xml.StartElement:
			ordinal++
			self := strings.HasSuffix(strings.TrimSpace(raw), "/>")
			skipEnd = self
			err = st.start(t.Name.Local, raw, self, selected[ordinal])
		case xml.EndElement:
			if skipEnd {
				skipEnd = false
				continue
			}
			err = st.end(t.Name.Local, raw)
		case xml.CharData:
			err = st.charData(raw)
		case xml.Comment:
			err = st.other("x-comment", raw)
		case xml.Directive:
			err = st.other("x-directive", raw)
		case xml.ProcInst:
			if t.Target == "xml" && !b.InTextUnit() {
				err = st.declaration(raw)
			} else {
				err = st.other("x-pi", raw)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("xml: %w", err)
		}
	}
	if len(st.open) > 0 {
		return nil, fmt.Errorf("xml: element %s is not closed", st.open[len(st.open)-1].name)
	}

	events, err := b.Finish(dec.Text[prev:])
	if err != nil {
		return nil, fmt.Errorf("xml: %w", err)
	}
	logger(p.Log).Debug("parsed document", "filter", p.Name(), "filename", doc.Name, "text_units", len(event.TextUnits(events)))
	return events, nil
}

// selectElements runs the rules over the document and returns the
// document-order ordinals of the elements they select, counting from 1.
func (p *XMLFilter) selectElements(text string) (map[int]bool, error) {
	rules := p.Rules
	if len(rules) == 0 {
		rules = []string{DefaultXMLRule}
	}
	root, err := xmlquery.ParseWithOptions(strings.NewReader(text), xmlquery.ParserOptions{
		Decoder: &xmlquery.DecoderOptions{Strict: true, Entity: xml.HTMLEntity},
	})
	if err != nil {
		return nil, err
	}
	hits := make(map[*xmlquery.Node]bool)
	for _, rule := range rules {
		expr, err := xpath.Compile(rule)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", rule, err)
		}
		for _, n := range xmlquery.QuerySelectorAll(root, expr) {
			if n.Type == xmlquery.ElementNode {
				hits[n] = true
			}
		}
	}

	selected := make(map[int]bool, len(hits))
	ordinal := 0
	var walk func(n *xmlquery.Node)
	walk = func(n *xmlquery.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != xmlquery.ElementNode {
				continue
			}
			ordinal++
			if hits[c] {
				selected[ordinal] = true
			}
			walk(c)
		}
	}
	walk(root)
	return selected, nil
}

func (st *xmlState) start(name, raw string, self, selected bool) error {
	switch {
	case selected && !self:
		tu := st.b.StartTextUnit(raw)
		tu.Type = name
		st.open = append(st.open, xmlOpen{kind: xmlUnit, name: name})
		return nil
	case st.b.InTextUnit() && self:
		_, err := st.b.AddPlaceholder(name, raw)
		return err
	case st.b.InTextUnit():
		st.open = append(st.open, xmlOpen{kind: xmlCode, name: name})
		_, err := st.b.StartCode(name, raw)
		return err
	}
	if !self {
		st.open = append(st.open, xmlOpen{kind: xmlSkeleton, name: name})
	}
	return st.b.AddSkeleton(raw)
}

func (st *xmlState) end(name, raw string) error {
	if len(st.open) == 0 {
		return resource.Illegal("end element", "unexpected </%s>", name)
	}
	top := st.open[len(st.open)-1]
	st.open = st.open[:len(st.open)-1]
	switch top.kind {
	case xmlUnit:
		_, err := st.b.EndTextUnit(raw)
		return err
	case xmlCode:
		_, err := st.b.EndCode(top.name, raw)
		return err
	}
	return st.b.AddSkeleton(raw)
}

func (st *xmlState) other(typ, raw string) error {
	if st.b.InTextUnit() {
		_, err := st.b.AddPlaceholder(typ, raw)
		return err
	}
	return st.b.AddSkeleton(raw)
}

func (st *xmlState) charData(raw string) error {
	if !st.b.InTextUnit() {
		return st.b.AddSkeleton(raw)
	}
	if strings.HasPrefix(raw, "<![CDATA[") {
		_, err := st.b.AddPlaceholder("x-cdata", raw)
		return err
	}
	return xmlText(st.b, raw)
}

// entityRef matches a character or entity reference.
var entityRef = regexp.MustCompile(`&(?:#[0-9]+|#[xX][0-9a-fA-F]+|[A-Za-z_:][-A-Za-z0-9_.:]*);`)

// xmlText adds raw character data to the open unit. Predefined and
// numeric references are decoded; other entity references become codes.
func xmlText(b *EventBuilder, raw string) error {
	tu := b.TextUnit()
	if tu == nil {
		return resource.Illegal("add text", "no text unit is open")
	}
	appendEntityText(tu.SourceContent(), raw, decodeXMLRef)
	return nil
}

// appendEntityText appends raw character data to f. References decode
// accepts become text, the rest become x-entity placeholders holding the
// reference as written.
func appendEntityText(f *resource.TextFragment, raw string, decode func(ref string) (string, bool)) {
	for {
		m := entityRef.FindStringIndex(raw)
		if m == nil {
			f.Append(raw)
			return
		}
		f.Append(raw[:m[0]])
		ref := raw[m[0]:m[1]]
		if s, ok := decode(ref); ok {
			f.Append(s)
		} else {
			f.AppendCode(resource.Placeholder, "x-entity", ref)
		}
		raw = raw[m[1]:]
	}
}

var xmlPredefined = map[string]string{"amp": "&", "lt": "<", "gt": ">", "quot": `"`, "apos": "'"}

func decodeXMLRef(ref string) (string, bool) {
	name := ref[1 : len(ref)-1]
	if s, ok := xmlPredefined[name]; ok {
		return s, true
	}
	if !strings.HasPrefix(name, "#") {
		return "", false
	}
	var n uint64
	var err error
	if strings.HasPrefix(name, "#x") || strings.HasPrefix(name, "#X") {
		n, err = strconv.ParseUint(name[2:], 16, 32)
	} else {
		n, err = strconv.ParseUint(name[1:], 10, 32)
	}
	if err != nil {
		return "", false
	}
	return string(rune(n)), true
}

// declaration turns the encoding of the XML declaration into a value
// placeholder so writers can update it.
func (st *xmlState) declaration(raw string) error {
	m := xmlDeclEncoding.FindStringSubmatchIndex(raw)
	if m == nil {
		return st.b.AddSkeleton(raw)
	}
	dp := st.b.DocumentPart()
	dp.SetSourceProperty(resource.NewProperty(encoder.PropEncoding, raw[m[2]:m[3]], false))
	skel := st.b.PartSkeleton()
	skel.Append(raw[:m[2]])
	skel.AddValuePlaceholder(skeleton.Self, encoder.PropEncoding, locale.Empty)
	skel.Append(raw[m[3]:])
	return nil
}
