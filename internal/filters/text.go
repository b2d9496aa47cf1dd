package filters

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgallion1/docloc/internal/encoder"
	"github.com/dgallion1/docloc/internal/event"
	"github.com/dgallion1/docloc/internal/filterwriter"
	"github.com/dgallion1/docloc/internal/rawdoc"
	"github.com/dgallion1/docloc/internal/resource"
)

// PlainTextFilter handles plain text files. Each blank-line separated
// paragraph becomes a text unit; line breaks inside it stay in the text.
type PlainTextFilter struct {
	Log *slog.Logger
}

func (p *PlainTextFilter) Name() string         { return "plaintext" }
func (p *PlainTextFilter) MimeType() string     { return "text/plain" }
func (p *PlainTextFilter) Extensions() []string { return []string{".txt"} }

func (p *PlainTextFilter) NewWriter() filterwriter.Writer {
	return filterwriter.NewGeneric(encoder.Default{}, logger(p.Log))
}

func (p *PlainTextFilter) Open(doc *rawdoc.RawDocument) ([]event.Event, error) {
	doc.MimeType = p.MimeType()
	dec, err := doc.Decode()
	if err != nil {
		return nil, fmt.Errorf("plaintext: %w", err)
	}

	b := NewEventBuilder(rootID(doc), doc.SourceLocale, p.MimeType())
	b.StartDocument(&resource.StartDocument{
		Name:       doc.Name,
		Encoding:   dec.Encoding,
		HasUTF8BOM: dec.HasBOM,
		LineBreak:  dec.LineBreak,
		FilterName: p.Name(),
	})

	var current strings.Builder
	var pendingBreak string

	flush := func() error {
		if current.Len() == 0 {
			return nil
		}
		b.StartTextUnit("")
		if err := b.AddText(current.String()); err != nil {
			return err
		}
		current.Reset()
		_, err := b.EndTextUnit("")
		return err
	}

	for _, line := range splitLines(dec.Text) {
		body, brk := cutBreak(line)
		if strings.TrimSpace(body) == "" {
			if err := flush(); err != nil {
				return nil, fmt.Errorf("plaintext: %w", err)
			}
			if err := b.AddSkeleton(pendingBreak + line); err != nil {
				return nil, fmt.Errorf("plaintext: %w", err)
			}
			pendingBreak = ""
			continue
		}
		if current.Len() > 0 {
			current.WriteString(pendingBreak)
		} else if err := b.AddSkeleton(pendingBreak); err != nil {
			return nil, fmt.Errorf("plaintext: %w", err)
		}
		current.WriteString(body)
		pendingBreak = brk
	}
	if err := flush(); err != nil {
		return nil, fmt.Errorf("plaintext: %w", err)
	}

	events, err := b.Finish(pendingBreak)
	if err != nil {
		return nil, fmt.Errorf("plaintext: %w", err)
	}
	logger(p.Log).Debug("parsed document", "filter", p.Name(), "filename", doc.Name, "text_units", len(event.TextUnits(events)))
	return events, nil
}

// splitLines splits s after each line break, keeping the breaks.
func splitLines(s string) []string {
	var lines []string
	for len(s) > 0 {
		i := strings.IndexAny(s, "\r\n")
		if i < 0 {
			lines = append(lines, s)
			break
		}
		end := i + 1
		if s[i] == '\r' && end < len(s) && s[end] == '\n' {
			end++
		}
		lines = append(lines, s[:end])
		s = s[end:]
	}
	return lines
}

// cutBreak separates a line from its trailing line break.
func cutBreak(line string) (string, string) {
	body := strings.TrimRight(line, "\r\n")
	return body, line[len(body):]
}
