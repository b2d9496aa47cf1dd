package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docloc/internal/event"
	"github.com/dgallion1/docloc/internal/filters"
	"github.com/dgallion1/docloc/internal/filterwriter"
	"github.com/dgallion1/docloc/internal/leverage"
	"github.com/dgallion1/docloc/internal/locale"
	"github.com/dgallion1/docloc/internal/mt"
	"github.com/dgallion1/docloc/internal/po"
	"github.com/dgallion1/docloc/internal/rawdoc"
	"github.com/dgallion1/docloc/internal/segmenter"
)

// ErrExtractionOnly is returned when writing a format that has no writer.
var ErrExtractionOnly = errors.New("format is extraction only")

// Document is a parsed document and the filter that read it.
type Document struct {
	Name   string
	Filter filters.Filter
	Events []event.Event
}

// Write renders the document for loc with the format's own writer. An
// empty loc writes the source.
func (d *Document) Write(loc locale.ID) ([]byte, error) {
	w := d.Filter.NewWriter()
	if w == nil {
		return nil, fmt.Errorf("write %s: %w", d.Name, ErrExtractionOnly)
	}
	return d.writeWith(w, loc)
}

// ExtractPO writes a gettext catalogue of the translatable units for loc.
func (d *Document) ExtractPO(loc locale.ID, log *slog.Logger) ([]byte, error) {
	w := po.NewWriter(log)
	w.ProjectID = d.Name
	return d.writeWith(w, loc)
}

func (d *Document) writeWith(w filterwriter.Writer, loc locale.ID) ([]byte, error) {
	var buf bytes.Buffer
	w.SetOptions(loc, "")
	w.SetOutput(&buf)
	for _, ev := range d.Events {
		if err := w.Handle(ev); err != nil {
			return nil, fmt.Errorf("write %s: %w", d.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("write %s: %w", d.Name, err)
	}
	return buf.Bytes(), nil
}

// OutputName returns the file name of the document written for loc, or
// of its catalogue when the format is extraction only.
func (d *Document) OutputName(loc locale.ID) string {
	if d.Filter.NewWriter() == nil {
		return d.CatalogName(loc)
	}
	base, ext := splitName(d.Name)
	return base + "." + localeSuffix(loc) + ext
}

// CatalogName returns the file name of the gettext catalogue for loc.
func (d *Document) CatalogName(loc locale.ID) string {
	base, _ := splitName(d.Name)
	return base + "." + localeSuffix(loc) + ".po"
}

func splitName(name string) (base, ext string) {
	ext = filepath.Ext(name)
	return strings.TrimSuffix(filepath.Base(name), ext), ext
}

func localeSuffix(loc locale.ID) string {
	if loc.IsEmpty() {
		return "out"
	}
	return loc.String()
}

// Report counts what the processing steps did.
type Report struct {
	Units      int      `json:"units"`
	Segments   int      `json:"segments"`
	Leveraged  int      `json:"leveraged"`
	Pending    int      `json:"pending"`
	Translated int      `json:"translated"`
	Rejected   int      `json:"rejected"`
	Failed     int      `json:"failed"`
	Errors     []string `json:"errors,omitempty"`
}

// Request describes one document to process.
type Request struct {
	Name    string
	Data    []byte
	Source  locale.ID
	Target  locale.ID
	Segment bool
	MT      bool
	Catalog *leverage.Catalog
}

// MTConfig bounds machine translation inside one document.
type MTConfig struct {
	BatchTokens int
	Concurrency int
}

// Processor runs the parse, segment, leverage and translate steps.
type Processor struct {
	Log                  *slog.Logger
	PDFFallbackPdftotext bool
	XMLRules             []string
	Segmenter            segmenter.Config
	// Translator is nil when machine translation is unavailable.
	Translator mt.Translator
	MT         MTConfig
	Stats      *mt.LLMStats
}

func (p *Processor) log() *slog.Logger {
	if p.Log == nil {
		return slog.Default()
	}
	return p.Log
}

// Open parses data with the filter registered for name.
func (p *Processor) Open(name string, data []byte, source, target locale.ID) (*Document, error) {
	f, err := filters.ForFile(name, p.log())
	if err != nil {
		return nil, err
	}
	switch ff := f.(type) {
	case *filters.PDFFilter:
		ff.FallbackPdftotext = p.PDFFallbackPdftotext
	case *filters.XMLFilter:
		ff.Rules = p.XMLRules
	}
	doc := rawdoc.New(name, data, source)
	doc.TargetLocale = target
	events, err := f.Open(doc)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return &Document{Name: name, Filter: f, Events: events}, nil
}

// Process parses req and runs the enabled steps. onPhase, when set, is
// called as each step starts with the counts so far. Failed translation
// batches are reported, not returned as errors.
func (p *Processor) Process(ctx context.Context, req Request, onPhase func(JobStatus, Report)) (*Document, Report, error) {
	var rep Report
	phase := func(s JobStatus) {
		if onPhase != nil {
			onPhase(s, rep)
		}
	}
	log := p.log().With("filename", req.Name)

	phase(StatusParsing)
	doc, err := p.Open(req.Name, req.Data, req.Source, req.Target)
	if err != nil {
		return nil, rep, err
	}
	rep.Units = len(event.TextUnits(doc.Events))

	if req.Segment {
		phase(StatusSegmenting)
		st, err := segmenter.New(p.Segmenter, log).Process(doc.Events)
		if err != nil {
			return nil, rep, fmt.Errorf("segment %s: %w", req.Name, err)
		}
		rep.Segments = st.Segments
	}

	if req.Catalog != nil {
		phase(StatusLeveraging)
		st := leverage.New(req.Catalog, req.Target, log).Process(doc.Events)
		rep.Leveraged = st.Hits
	}

	if req.MT {
		units := mt.Pending(doc.Events, req.Target)
		rep.Pending = len(units)
		phase(StatusTranslating)
		if p.Translator == nil {
			return nil, rep, fmt.Errorf("machine translation is not configured")
		}
		res, err := TranslateUnits(ctx, p.Translator, TranslateInput{
			Document: req.Name,
			Source:   req.Source,
			Target:   req.Target,
			Units:    units,
		}, p.MT, p.Stats, log)
		rep.Translated = res.Translated
		rep.Rejected = res.Rejected
		rep.Failed = res.Missing
		if err != nil {
			if ctx.Err() != nil {
				return nil, rep, err
			}
			rep.Errors = append(rep.Errors, err.Error())
		}
	}
	return doc, rep, nil
}
