package filters

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/dgallion1/docloc/internal/encoder"
	"github.com/dgallion1/docloc/internal/event"
	"github.com/dgallion1/docloc/internal/filterwriter"
	"github.com/dgallion1/docloc/internal/rawdoc"
	"github.com/dgallion1/docloc/internal/resource"
)

// MarkdownFilter handles Markdown files using goldmark. Paragraphs,
// headings and list text become text units; inline markup between text
// runs becomes codes. Everything else stays in the skeleton.
type MarkdownFilter struct {
	Log *slog.Logger
}

func (p *MarkdownFilter) Name() string         { return "markdown" }
func (p *MarkdownFilter) MimeType() string     { return "text/markdown" }
func (p *MarkdownFilter) Extensions() []string { return []string{".md", ".markdown"} }

func (p *MarkdownFilter) NewWriter() filterwriter.Writer {
	return filterwriter.NewGeneric(encoder.Default{}, logger(p.Log))
}

// mdMark is an inline node boundary seen between two text runs.
type mdMark struct {
	typ   string
	enter bool
	atom  bool
}

// mdRun is a text segment together with the marks that precede it.
type mdRun struct {
	marks      []mdMark
	start, end int
}

func (p *MarkdownFilter) Open(doc *rawdoc.RawDocument) ([]event.Event, error) {
	doc.MimeType = p.MimeType()
	dec, err := doc.Decode()
	if err != nil {
		return nil, fmt.Errorf("markdown: %w", err)
	}
	src := []byte(dec.Text)

	md := goldmark.New()
	reader := text.NewReader(src)
	root := md.Parser().Parse(reader)

	b := NewEventBuilder(rootID(doc), doc.SourceLocale, p.MimeType())
	b.StartDocument(&resource.StartDocument{
		Name:       doc.Name,
		Encoding:   dec.Encoding,
		HasUTF8BOM: dec.HasBOM,
		LineBreak:  dec.LineBreak,
		FilterName: p.Name(),
	})

	last := 0
	err = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindParagraph, ast.KindHeading, ast.KindTextBlock:
		case ast.KindFencedCodeBlock, ast.KindCodeBlock, ast.KindHTMLBlock, ast.KindThematicBreak:
			return ast.WalkSkipChildren, nil
		default:
			return ast.WalkContinue, nil
		}
		start, end, ok := blockSpan(n, src)
		if !ok || start < last {
			return ast.WalkSkipChildren, nil
		}
		runs, trailing := inlineRuns(n)
		if len(runs) == 0 {
			return ast.WalkSkipChildren, nil
		}
		if err := b.AddSkeleton(string(src[last:start])); err != nil {
			return ast.WalkStop, err
		}
		if err := emitBlock(b, src, n, start, end, runs, trailing); err != nil {
			return ast.WalkStop, err
		}
		last = end
		return ast.WalkSkipChildren, nil
	})
	if err != nil {
		return nil, fmt.Errorf("markdown: %w", err)
	}

	events, err := b.Finish(string(src[last:]))
	if err != nil {
		return nil, fmt.Errorf("markdown: %w", err)
	}
	logger(p.Log).Debug("parsed document", "filter", p.Name(), "filename", doc.Name, "text_units", len(event.TextUnits(events)))
	return events, nil
}

// blockSpan returns the source range of a block's inline content with
// trailing whitespace removed.
func blockSpan(n ast.Node, src []byte) (int, int, bool) {
	lines := n.Lines()
	if lines.Len() == 0 {
		return 0, 0, false
	}
	start := lines.At(0).Start
	end := lines.At(lines.Len() - 1).Stop
	for end > start && strings.ContainsRune(" \t\r\n", rune(src[end-1])) {
		end--
	}
	return start, end, end > start
}

func inlineType(n ast.Node) (string, bool) {
	switch v := n.(type) {
	case *ast.Emphasis:
		if v.Level >= 2 {
			return "strong", false
		}
		return "emphasis", false
	case *ast.Link:
		return "link", false
	case *ast.CodeSpan:
		return "code", true
	case *ast.Image:
		return "image", true
	case *ast.AutoLink:
		return "autolink", true
	case *ast.RawHTML:
		return "html", true
	}
	return "", false
}

// inlineRuns lists the text segments of a block in order, each with the
// inline boundaries crossed since the previous one. trailing holds the
// boundaries after the last segment.
func inlineRuns(block ast.Node) ([]mdRun, []mdMark) {
	var runs []mdRun
	var marks []mdMark
	_ = ast.Walk(block, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if n == block {
			return ast.WalkContinue, nil
		}
		if typ, atom := inlineType(n); typ != "" {
			if atom {
				if entering {
					marks = append(marks, mdMark{typ: typ, atom: true})
				}
				return ast.WalkSkipChildren, nil
			}
			marks = append(marks, mdMark{typ: typ, enter: entering})
			return ast.WalkContinue, nil
		}
		if t, ok := n.(*ast.Text); ok && entering {
			seg := t.Segment
			if seg.Stop > seg.Start {
				runs = append(runs, mdRun{marks: marks, start: seg.Start, end: seg.Stop})
				marks = nil
			}
		}
		return ast.WalkContinue, nil
	})
	return runs, marks
}

func emitBlock(b *EventBuilder, src []byte, n ast.Node, start, end int, runs []mdRun, trailing []mdMark) error {
	tu := b.StartTextUnit("")
	if h, ok := n.(*ast.Heading); ok {
		tu.Type = fmt.Sprintf("h%d", h.Level)
	} else {
		tu.Type = "paragraph"
	}
	pos := start
	for _, r := range runs {
		if r.start < pos {
			continue
		}
		if err := emitGap(b, string(src[pos:r.start]), r.marks); err != nil {
			return err
		}
		if err := b.AddText(string(src[r.start:r.end])); err != nil {
			return err
		}
		pos = r.end
	}
	if pos < end {
		if err := emitGap(b, string(src[pos:end]), trailing); err != nil {
			return err
		}
	}
	_, err := b.EndTextUnit("")
	return err
}

// emitGap turns the source between two text runs into text or a code.
// Bare gaps stay text unless they hold a line break plus markup, which
// becomes a line-break placeholder. A single boundary becomes an opening
// or closing code; anything more becomes a placeholder.
func emitGap(b *EventBuilder, gap string, marks []mdMark) error {
	if gap == "" && len(marks) == 0 {
		return nil
	}
	var err error
	switch {
	case len(marks) == 0:
		if strings.Contains(gap, "\n") && strings.TrimSpace(gap) != "" {
			_, err = b.AddPlaceholder("lb", gap)
		} else {
			err = b.AddText(gap)
		}
	case len(marks) == 1 && !marks[0].atom && marks[0].enter:
		_, err = b.StartCode(marks[0].typ, gap)
	case len(marks) == 1 && !marks[0].atom && b.HasOpenCode(marks[0].typ):
		_, err = b.EndCode(marks[0].typ, gap)
	default:
		_, err = b.AddPlaceholder(marks[0].typ, gap)
	}
	return err
}
