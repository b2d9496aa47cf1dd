package filters

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/dgallion1/docloc/internal/encoder"
	"github.com/dgallion1/docloc/internal/event"
	"github.com/dgallion1/docloc/internal/filterwriter"
	"github.com/dgallion1/docloc/internal/locale"
	"github.com/dgallion1/docloc/internal/po"
	"github.com/dgallion1/docloc/internal/rawdoc"
	"github.com/dgallion1/docloc/internal/resource"
	"github.com/dgallion1/docloc/internal/skeleton"
)

// POFilter handles gettext catalogues. Each message becomes a text unit
// with msgid as source and msgstr as target; plural messages become
// groups with one unit per msgstr[n].
type POFilter struct {
	Log *slog.Logger
}

func (p *POFilter) Name() string         { return "po" }
func (p *POFilter) MimeType() string     { return "application/x-gettext" }
func (p *POFilter) Extensions() []string { return []string{".po", ".pot"} }

func (p *POFilter) NewWriter() filterwriter.Writer {
	return filterwriter.NewGeneric(encoder.PO{}, logger(p.Log))
}

var (
	poHeaderCharset  = regexp.MustCompile(`charset=([^\s\\";]+)`)
	poHeaderLanguage = regexp.MustCompile(`Language:[ \t]*([^\s\\"]+)`)
)

type poState struct {
	b        *EventBuilder
	text     string
	target   locale.ID
	nplurals int
	last     int
}

func (p *POFilter) Open(doc *rawdoc.RawDocument) ([]event.Event, error) {
	doc.MimeType = p.MimeType()
	dec, err := doc.Decode()
	if err != nil {
		return nil, fmt.Errorf("po: %w", err)
	}
	f, err := po.Parse(dec.Text)
	if err != nil {
		return nil, fmt.Errorf("po: %w", err)
	}
	header := f.Header()

	target := doc.TargetLocale
	if target.IsEmpty() {
		if id, err := locale.Parse(header.Get("Language")); err == nil {
			target = id
		}
	}
	if target.IsEmpty() {
		target = locale.MustParse("und")
	}
	if target == doc.SourceLocale {
		logger(p.Log).Warn("catalogue target locale equals its source locale", "filename", doc.Name, "locale", target.String())
	}

	b := NewEventBuilder(rootID(doc), doc.SourceLocale, p.MimeType())
	b.ContentLocale = target
	b.StartDocument(&resource.StartDocument{
		Name:         doc.Name,
		Encoding:     dec.Encoding,
		HasUTF8BOM:   dec.HasBOM,
		LineBreak:    dec.LineBreak,
		Multilingual: true,
		TargetLocale: target,
		FilterName:   p.Name(),
	})

	st := &poState{b: b, text: dec.Text, target: target, nplurals: header.NPlurals()}
	for _, e := range f.Entries {
		switch {
		case e.IsHeader():
			err = st.header(e)
		case !e.HasMessage() || len(e.Str) == 0 || strings.TrimSpace(e.ID) == "":
			continue
		case e.IsPlural():
			err = st.plural(e)
		default:
			err = st.message(e)
		}
		if err != nil {
			return nil, fmt.Errorf("po: %w", err)
		}
		st.last = e.End
	}

	events, err := b.Finish(dec.Text[st.last:])
	if err != nil {
		return nil, fmt.Errorf("po: %w", err)
	}
	logger(p.Log).Debug("parsed document", "filter", p.Name(), "filename", doc.Name, "text_units", len(event.TextUnits(events)), "target", target.String())
	return events, nil
}

// header turns the charset and Language values of the header into value
// placeholders of a document part.
func (st *poState) header(e *po.Entry) error {
	if err := st.b.AddSkeleton(st.text[st.last:e.Start]); err != nil {
		return err
	}
	sp := e.StrSpans[0]
	raw := st.text[sp.Start:sp.End]

	type hit struct {
		start, end int
		prop       string
	}
	var hits []hit
	if m := poHeaderCharset.FindStringSubmatchIndex(raw); m != nil {
		hits = append(hits, hit{m[2], m[3], encoder.PropEncoding})
	}
	if m := poHeaderLanguage.FindStringSubmatchIndex(raw); m != nil {
		hits = append(hits, hit{m[2], m[3], encoder.PropLanguage})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].start < hits[j].start })

	dp := st.b.DocumentPart()
	skel := st.b.PartSkeleton()
	skel.Append(st.text[e.Start:sp.Start])
	pos := 0
	for _, h := range hits {
		skel.Append(raw[pos:h.start])
		dp.SetSourceProperty(resource.NewProperty(h.prop, raw[h.start:h.end], false))
		skel.AddValuePlaceholder(skeleton.Self, h.prop, st.target)
		pos = h.end
	}
	skel.Append(raw[pos:])
	skel.Append(st.text[sp.End:e.End])
	return nil
}

func (st *poState) message(e *po.Entry) error {
	if err := st.b.AddSkeleton(st.text[st.last:e.Start]); err != nil {
		return err
	}
	sp := e.StrSpans[0]
	tu := st.b.StartTextUnit(st.text[e.Start:sp.Start])
	st.fill(tu, e, e.ID, e.Str[0])
	_, err := st.b.EndTextUnit(st.text[sp.End:e.End])
	return err
}

func (st *poState) plural(e *po.Entry) error {
	if err := st.b.AddSkeleton(st.text[st.last:e.Start]); err != nil {
		return err
	}
	first := e.StrSpans[0]
	sg, err := st.b.StartGroup(st.text[e.Start:first.Start], po.GroupPlurals)
	if err != nil {
		return err
	}
	sg.Name = e.Context
	if st.nplurals > 0 {
		sg.SetProperty(resource.NewProperty(po.PropNPlurals, strconv.Itoa(st.nplurals), true))
	}

	prev := first.Start
	for i, sp := range e.StrSpans {
		source := e.IDPlural
		if i == 0 {
			source = e.ID
		}
		tu := st.b.StartTextUnit(st.text[prev:sp.Start])
		st.fill(tu, e, source, e.Str[i])
		if _, err := st.b.EndTextUnit(""); err != nil {
			return err
		}
		prev = sp.End
	}
	return st.b.EndGroup(st.text[prev:e.End])
}

// fill sets the source, target and properties of a message unit. Every
// unit gets a target; an empty one means the message is untranslated.
func (st *poState) fill(tu *resource.TextUnit, e *po.Entry, source, target string) {
	tu.Name = e.Context
	tu.Source.Append(source)
	tu.SetTarget(st.target, resource.NewTextContainer(target))
	if e.Fuzzy() {
		tu.SetTargetProperty(st.target, resource.NewProperty(po.PropApproved, "no", false))
	}
	if len(e.References) > 0 {
		tu.SetProperty(resource.NewProperty("references", strings.Join(e.References, " "), true))
	}
	if len(e.Extracted) > 0 {
		tu.SetProperty(resource.NewProperty("note", strings.Join(e.Extracted, "\n"), true))
	}
}
