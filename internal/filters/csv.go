package filters

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode"

	"github.com/dgallion1/docloc/internal/encoder"
	"github.com/dgallion1/docloc/internal/event"
	"github.com/dgallion1/docloc/internal/filterwriter"
	"github.com/dgallion1/docloc/internal/rawdoc"
	"github.com/dgallion1/docloc/internal/resource"
)

// CSVFilter handles delimited tables. Every cell holding a letter becomes
// a text unit named after its row and column; the first row's units have
// type "header". Delimiters, quotes and line breaks stay in the skeleton.
// A quoted cell is a referent written back between its original quotes.
type CSVFilter struct {
	Log *slog.Logger
	// Comma is the field delimiter; zero means ','.
	Comma rune
}

func (p *CSVFilter) Name() string         { return "csv" }
func (p *CSVFilter) MimeType() string     { return "text/csv" }
func (p *CSVFilter) Extensions() []string { return []string{".csv"} }

func (p *CSVFilter) NewWriter() filterwriter.Writer {
	return filterwriter.NewGeneric(p.csvEncoder(), logger(p.Log))
}

func (p *CSVFilter) csvEncoder() encoder.CSV {
	if p.Comma == 0 {
		return encoder.CSV{Comma: ','}
	}
	return encoder.CSV{Comma: p.Comma}
}

// csvCell is the raw extent of one cell in the decoded text.
type csvCell struct {
	value  string
	quoted bool
	// end is the offset just past the cell, closing quote included.
	end int
}

func (p *CSVFilter) Open(doc *rawdoc.RawDocument) ([]event.Event, error) {
	doc.MimeType = p.MimeType()
	dec, err := doc.Decode()
	if err != nil {
		return nil, fmt.Errorf("csv: %w", err)
	}

	b := NewEventBuilder(rootID(doc), doc.SourceLocale, p.MimeType())
	b.StartDocument(&resource.StartDocument{
		Name:       doc.Name,
		Encoding:   dec.Encoding,
		HasUTF8BOM: dec.HasBOM,
		LineBreak:  dec.LineBreak,
		FilterName: p.Name(),
	})

	text := dec.Text
	lines := lineOffsets(text)
	enc := p.csvEncoder()
	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = enc.Comma
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	cursor, row := 0, 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		row++
		for i, value := range record {
			line, col := reader.FieldPos(i)
			start := lines[line-1] + col - 1
			c, ok := csvCellAt(text, start, value, enc)
			if !ok {
				continue
			}
			if err := b.AddSkeleton(text[cursor:start]); err != nil {
				return nil, fmt.Errorf("csv: %w", err)
			}
			name := fmt.Sprintf("r%dc%d", row, i+1)
			typ := "cell"
			if row == 1 {
				typ = "header"
			}
			if c.quoted {
				ref := b.AddReferent(c.value, typ)
				ref.Name = name
				skel := b.PartSkeleton()
				skel.Append(`"`)
				skel.AddReference(resource.HandleOf(ref))
				skel.Append(`"`)
			} else {
				tu := b.StartTextUnit("")
				tu.Name, tu.Type = name, typ
				if err := b.AddText(c.value); err != nil {
					return nil, fmt.Errorf("csv: %w", err)
				}
				if _, err := b.EndTextUnit(""); err != nil {
					return nil, fmt.Errorf("csv: %w", err)
				}
			}
			cursor = c.end
		}
	}

	events, err := b.Finish(text[cursor:])
	if err != nil {
		return nil, fmt.Errorf("csv: %w", err)
	}
	logger(p.Log).Debug("parsed document", "filter", p.Name(), "filename", doc.Name, "rows", row, "text_units", len(event.TextUnits(events)))
	return events, nil
}

// csvCellAt locates the cell starting at start whose parsed value is
// value. Cells without letters, cells the raw text does not reproduce and
// bare cells that would need quoting stay in the skeleton.
func csvCellAt(text string, start int, value string, enc encoder.CSV) (csvCell, bool) {
	if strings.IndexFunc(value, unicode.IsLetter) < 0 || strings.ContainsFunc(value, resource.IsMarker) {
		return csvCell{}, false
	}
	if start < len(text) && text[start] == '"' {
		end, ok := closingQuote(text, start+1)
		if !ok {
			return csvCell{}, false
		}
		raw := strings.ReplaceAll(text[start+1:end], `""`, `"`)
		if strings.ReplaceAll(raw, "\r\n", "\n") != value {
			return csvCell{}, false
		}
		return csvCell{value: raw, quoted: true, end: end + 1}, true
	}
	end := start + len(value)
	if end > len(text) || text[start:end] != value || enc.NeedsQuotes(value) {
		return csvCell{}, false
	}
	return csvCell{value: value, end: end}, true
}

// closingQuote returns the offset of the quote ending a quoted cell whose
// content starts at from, skipping doubled quotes.
func closingQuote(text string, from int) (int, bool) {
	for i := from; i < len(text); i++ {
		if text[i] != '"' {
			continue
		}
		if i+1 < len(text) && text[i+1] == '"' {
			i++
			continue
		}
		return i, true
	}
	return 0, false
}

// lineOffsets returns the offset at which each line of text starts.
func lineOffsets(text string) []int {
	offsets := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			offsets = append(offsets, i+1)
		}
	}
	return offsets
}
