package filters

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/dgallion1/docloc/internal/event"
	"github.com/dgallion1/docloc/internal/filterwriter"
	"github.com/dgallion1/docloc/internal/rawdoc"
	"github.com/dgallion1/docloc/internal/resource"
)

// PDFFilter extracts text from PDF files. It tries the Go library first,
// then falls back to pdftotext if enabled. Each paragraph of a page
// becomes a text unit. There is no writer.
type PDFFilter struct {
	Log               *slog.Logger
	FallbackPdftotext bool
}

func (p *PDFFilter) Name() string         { return "pdf" }
func (p *PDFFilter) MimeType() string     { return "application/pdf" }
func (p *PDFFilter) Extensions() []string { return []string{".pdf"} }

// NewWriter returns nil: PDF is extraction only.
func (p *PDFFilter) NewWriter() filterwriter.Writer { return nil }

var blankLines = regexp.MustCompile(`\n[ \t]*\n`)

func (p *PDFFilter) Open(doc *rawdoc.RawDocument) ([]event.Event, error) {
	doc.MimeType = p.MimeType()
	text, err := extractPDFText(doc)
	if err != nil && p.FallbackPdftotext {
		text, err = extractPdftotext(doc)
	}
	if err != nil {
		return nil, fmt.Errorf("pdf: extract text: %w", err)
	}

	b := NewEventBuilder(rootID(doc), doc.SourceLocale, p.MimeType())
	b.StartDocument(&resource.StartDocument{
		Name:       doc.Name,
		Encoding:   rawdoc.DefaultEncoding,
		LineBreak:  "\n",
		FilterName: p.Name(),
	})

	for i, page := range strings.Split(text, "\f") {
		for _, para := range blankLines.Split(page, -1) {
			para = strings.TrimSpace(para)
			if para == "" {
				continue
			}
			tu := b.StartTextUnit("")
			tu.Type = "paragraph"
			tu.SetProperty(resource.NewProperty("page", strconv.Itoa(i+1), true))
			if err := b.AddText(para); err != nil {
				return nil, fmt.Errorf("pdf: %w", err)
			}
			if _, err := b.EndTextUnit(""); err != nil {
				return nil, fmt.Errorf("pdf: %w", err)
			}
		}
	}

	events, err := b.Finish("")
	if err != nil {
		return nil, fmt.Errorf("pdf: %w", err)
	}
	logger(p.Log).Debug("parsed document", "filter", p.Name(), "filename", doc.Name, "text_units", len(event.TextUnits(events)))
	return events, nil
}

// extractPDFText returns the plain text of each page, separated by form
// feeds.
func extractPDFText(doc *rawdoc.RawDocument) (string, error) {
	reader, err := pdflib.NewReader(doc.Reader(), int64(len(doc.Data)))
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if i > 1 {
			buf.WriteString("\f")
		}
		buf.WriteString(text)
	}
	return buf.String(), nil
}

func extractPdftotext(doc *rawdoc.RawDocument) (string, error) {
	// pdftotext needs a file.
	tmp, err := os.CreateTemp("", "docloc-pdf-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(doc.Data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	out, err := exec.Command("pdftotext", "-layout", tmpPath, "-").Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}
