package filters

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/dgallion1/docloc/internal/event"
	"github.com/dgallion1/docloc/internal/filterwriter"
	"github.com/dgallion1/docloc/internal/locale"
	"github.com/dgallion1/docloc/internal/rawdoc"
	"github.com/dgallion1/docloc/internal/resource"
)

// TypeRunBreak is the code type marking where a new run starts inside a
// DOCX paragraph.
const TypeRunBreak = "x-run"

// DOCXFilter handles .docx files. Each body paragraph with text becomes a
// text unit; run boundaries become placeholder codes. Skeletons point
// into the parsed package, so only DOCXWriter can write the events back.
type DOCXFilter struct {
	Log *slog.Logger
}

func (p *DOCXFilter) Name() string         { return "docx" }
func (p *DOCXFilter) MimeType() string     { return "application/vnd.openxmlformats-officedocument.wordprocessingml.document" }
func (p *DOCXFilter) Extensions() []string { return []string{".docx"} }

func (p *DOCXFilter) NewWriter() filterwriter.Writer {
	return &DOCXWriter{log: logger(p.Log)}
}

// docxPackage is the skeleton of a DOCX start document.
type docxPackage struct {
	doc *docx.Docx
}

func (s *docxPackage) String() string { return "docx package" }

// docxParagraph is the skeleton of a DOCX text unit: the text elements
// of each run that carries text.
type docxParagraph struct {
	runs [][]*docx.Text
}

func (s *docxParagraph) String() string {
	var sb strings.Builder
	for _, texts := range s.runs {
		sb.WriteString(joinTexts(texts))
	}
	return sb.String()
}

func (p *DOCXFilter) Open(doc *rawdoc.RawDocument) ([]event.Event, error) {
	doc.MimeType = p.MimeType()
	pkg, err := docx.Parse(doc.Reader(), int64(len(doc.Data)))
	if err != nil {
		return nil, fmt.Errorf("docx: parse: %w", err)
	}

	b := NewEventBuilder(rootID(doc), doc.SourceLocale, p.MimeType())
	sd := &resource.StartDocument{
		Name:       doc.Name,
		Encoding:   rawdoc.DefaultEncoding,
		FilterName: p.Name(),
	}
	sd.Skeleton = &docxPackage{doc: pkg}
	b.StartDocument(sd)

	for _, item := range pkg.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		runs := docxRuns(para)
		if len(runs) == 0 {
			continue
		}
		tu := b.StartTextUnit("")
		if level := docxHeadingLevel(para); level > 0 {
			tu.Type = fmt.Sprintf("h%d", level)
		} else {
			tu.Type = "paragraph"
		}
		for i, texts := range runs {
			if i > 0 {
				if _, err := b.AddPlaceholder(TypeRunBreak, ""); err != nil {
					return nil, fmt.Errorf("docx: %w", err)
				}
			}
			if err := b.AddText(joinTexts(texts)); err != nil {
				return nil, fmt.Errorf("docx: %w", err)
			}
		}
		done, err := b.EndTextUnit("")
		if err != nil {
			return nil, fmt.Errorf("docx: %w", err)
		}
		if done != nil {
			done.Skeleton = &docxParagraph{runs: runs}
		}
	}

	events, err := b.Finish("")
	if err != nil {
		return nil, fmt.Errorf("docx: %w", err)
	}
	logger(p.Log).Debug("parsed document", "filter", p.Name(), "filename", doc.Name, "text_units", len(event.TextUnits(events)))
	return events, nil
}

// docxRuns returns the text elements of each run of para that has text.
func docxRuns(para *docx.Paragraph) [][]*docx.Text {
	var runs [][]*docx.Text
	hasText := false
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		var texts []*docx.Text
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				texts = append(texts, t)
				hasText = hasText || t.Text != ""
			}
		}
		if len(texts) > 0 {
			runs = append(runs, texts)
		}
	}
	if !hasText {
		return nil
	}
	return runs
}

func joinTexts(texts []*docx.Text) string {
	var sb strings.Builder
	for _, t := range texts {
		sb.WriteString(t.Text)
	}
	return sb.String()
}

func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	for level := 1; level <= 6; level++ {
		if style == fmt.Sprintf("heading%d", level) {
			return level
		}
	}
	return 0
}

// DOCXWriter writes translated paragraphs back into the package parsed by
// DOCXFilter and saves it at the end of the document.
type DOCXWriter struct {
	log *slog.Logger
	loc locale.ID
	src locale.ID
	out io.Writer
	pkg *docx.Docx
}

func (w *DOCXWriter) SetOptions(loc locale.ID, _ string) { w.loc = loc }

func (w *DOCXWriter) SetOutput(out io.Writer) { w.out = out }

func (w *DOCXWriter) Handle(ev event.Event) error {
	switch ev.Kind {
	case event.StartDocument:
		skel, ok := ev.StartDocument.Skeleton.(*docxPackage)
		if !ok {
			return resource.Illegal("docx writer", "document %s has no docx package", ev.StartDocument.ID)
		}
		if w.out == nil {
			return fmt.Errorf("docx writer: no output set")
		}
		w.pkg = skel.doc
		w.src = ev.StartDocument.Locale
		if w.loc.IsEmpty() {
			w.loc = w.src
		}
	case event.TextUnit:
		if w.pkg == nil {
			return fmt.Errorf("docx writer: %s before start of document", ev.Kind)
		}
		w.textUnit(ev.TextUnit)
	case event.EndDocument:
		if w.pkg == nil {
			return fmt.Errorf("docx writer: %s before start of document", ev.Kind)
		}
		_, err := w.pkg.WriteTo(w.out)
		w.pkg = nil
		if err != nil {
			return fmt.Errorf("docx writer: %w", err)
		}
	case event.Multi:
		for _, sub := range ev.Events {
			if err := w.Handle(sub); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *DOCXWriter) textUnit(tu *resource.TextUnit) {
	para, ok := tu.Skeleton.(*docxParagraph)
	if !ok || !tu.Translatable || w.loc == w.src {
		return
	}
	tc := tu.Target(w.loc)
	if tc == nil {
		return
	}
	pieces := splitRuns(tc.Unsegmented(), len(para.runs))
	for i, texts := range para.runs {
		texts[0].Text = pieces[i]
		for _, t := range texts[1:] {
			t.Text = ""
		}
	}
	w.log.Debug("wrote paragraph", "id", tu.ID, "runs", len(para.runs))
}

// splitRuns distributes the text of f over n runs. Text after a run break
// code with id k goes to run k; other codes are dropped.
func splitRuns(f *resource.TextFragment, n int) []string {
	pieces := make([]strings.Builder, n)
	cur := 0
	text := []rune(f.CodedText())
	for i := 0; i < len(text); i++ {
		if !resource.IsMarker(text[i]) {
			pieces[cur].WriteRune(text[i])
			continue
		}
		if i+1 >= len(text) || text[i] == resource.MarkerSegment {
			i++
			continue
		}
		c := f.Code(resource.MarkerIndex(text[i+1]))
		i++
		if c != nil && c.Type == TypeRunBreak && c.ID > 0 && c.ID < n {
			cur = c.ID
		}
	}
	out := make([]string, n)
	for i := range pieces {
		out[i] = pieces[i].String()
	}
	return out
}

// Close is a no-op; the package is saved at the end of the document.
func (w *DOCXWriter) Close() error { return nil }
