// Package filterwriter writes event streams back into documents.
package filterwriter

import (
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"

	"github.com/dgallion1/docloc/internal/encoder"
	"github.com/dgallion1/docloc/internal/event"
	"github.com/dgallion1/docloc/internal/locale"
	"github.com/dgallion1/docloc/internal/rawdoc"
	"github.com/dgallion1/docloc/internal/skeleton"
)

// Writer consumes the events of one document and produces its output.
type Writer interface {
	// SetOptions sets the output locale and encoding. An empty encoding
	// keeps the input document's.
	SetOptions(loc locale.ID, encoding string)
	SetOutput(w io.Writer)
	Handle(ev event.Event) error
	Close() error
}

// Generic writes documents whose resources carry generic skeletons.
type Generic struct {
	// GenericCodes writes codes as numbered placeholders.
	GenericCodes bool

	enc      encoder.Encoder
	log      *slog.Logger
	loc      locale.ID
	encoding string

	out  io.Writer
	dst  io.Writer
	tw   *transform.Writer
	skel *skeleton.Writer
}

// NewGeneric returns a writer that escapes text with enc.
func NewGeneric(enc encoder.Encoder, log *slog.Logger) *Generic {
	if log == nil {
		log = slog.Default()
	}
	return &Generic{enc: enc, log: log}
}

func (g *Generic) SetOptions(loc locale.ID, encoding string) {
	g.loc = loc
	g.encoding = encoding
}

func (g *Generic) SetOutput(w io.Writer) { g.out = w }

// Handle writes one event. Multi events are written in order.
func (g *Generic) Handle(ev event.Event) error {
	if ev.Kind == event.StartDocument {
		if err := g.start(ev); err != nil {
			return err
		}
	}
	if g.skel == nil {
		if ev.Kind == event.NoOp {
			return nil
		}
		return fmt.Errorf("filter writer: %s before start of document", ev.Kind)
	}

	var (
		s   string
		err error
	)
	switch ev.Kind {
	case event.StartDocument:
		s, err = g.skel.ProcessStartDocument(ev.StartDocument)
	case event.EndDocument:
		s, err = g.skel.ProcessEndDocument(ev.Ending)
	case event.StartSubDocument:
		s, err = g.skel.ProcessStartSubDocument(ev.StartSubDocument)
	case event.EndSubDocument:
		s, err = g.skel.ProcessEndSubDocument(ev.Ending)
	case event.StartGroup:
		s, err = g.skel.ProcessStartGroup(ev.StartGroup)
	case event.EndGroup:
		s, err = g.skel.ProcessEndGroup(ev.Ending)
	case event.TextUnit:
		s, err = g.skel.ProcessTextUnit(ev.TextUnit)
	case event.DocumentPart:
		s, err = g.skel.ProcessDocumentPart(ev.DocumentPart)
	case event.Multi:
		for _, sub := range ev.Events {
			if err := g.Handle(sub); err != nil {
				return err
			}
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("filter writer: %w", err)
	}
	if s != "" {
		if _, err := io.WriteString(g.dst, s); err != nil {
			return fmt.Errorf("filter writer: %w", err)
		}
	}
	if ev.Kind == event.EndDocument {
		return g.flush()
	}
	return nil
}

func (g *Generic) start(ev event.Event) error {
	if g.out == nil {
		return fmt.Errorf("filter writer: no output set")
	}
	sd := ev.StartDocument
	name := g.encoding
	if name == "" {
		name = sd.Encoding
	}
	if name == "" {
		name = rawdoc.DefaultEncoding
	}
	enc, err := rawdoc.Lookup(name)
	if err != nil {
		return fmt.Errorf("filter writer: %w", err)
	}

	g.dst = g.out
	g.tw = nil
	utf8 := rawdoc.IsUTF8(name)
	if !utf8 {
		var e *encoding.Encoder
		switch g.enc.(type) {
		case encoder.HTML, encoder.XML:
			e = encoding.HTMLEscapeUnsupported(enc.NewEncoder())
		default:
			e = encoding.ReplaceUnsupported(enc.NewEncoder())
		}
		g.tw = transform.NewWriter(g.out, e)
		g.dst = g.tw
	}
	if sd.HasUTF8BOM && utf8 {
		if _, err := g.out.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("filter writer: %w", err)
		}
	}

	loc := g.loc
	if loc.IsEmpty() && sd.Multilingual {
		loc = sd.TargetLocale
	}
	if loc.IsEmpty() {
		loc = sd.Locale
	}
	g.skel = skeleton.NewWriter(loc, name, g.enc, g.log)
	g.skel.GenericCodes = g.GenericCodes
	g.log.Debug("writing document", "name", sd.Name, "locale", loc.String(), "encoding", name)
	return nil
}

func (g *Generic) flush() error {
	if g.tw == nil {
		return nil
	}
	err := g.tw.Close()
	g.tw = nil
	g.dst = g.out
	if err != nil {
		return fmt.Errorf("filter writer: %w", err)
	}
	return nil
}

// Close flushes any buffered output. It does not close the underlying
// writer.
func (g *Generic) Close() error {
	err := g.flush()
	g.skel = nil
	return err
}
