package po

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dgallion1/docloc/internal/encoder"
	"github.com/dgallion1/docloc/internal/event"
	"github.com/dgallion1/docloc/internal/genericcontent"
	"github.com/dgallion1/docloc/internal/locale"
	"github.com/dgallion1/docloc/internal/resource"
)

// GroupPlurals is the group type holding the variants of a plural
// message, and PropNPlurals the group property giving their count.
const (
	GroupPlurals = "x-gettext-plurals"
	PropNPlurals = "nplurals"
	PropApproved = "approved"
)

// Writer extracts the text units of a document into a catalogue for one
// target locale. Codes are written in generic form. Output is UTF-8.
type Writer struct {
	// ProjectID is written as Project-Id-Version; the document name is
	// used when it is empty.
	ProjectID string

	log    *slog.Logger
	loc    locale.ID
	out    io.Writer
	bw     *bufio.Writer
	seen   map[string]bool
	plural *pluralGroup
	depth  int
	enc    encoder.PO
}

type pluralGroup struct {
	id       string
	nplurals int
	units    []*resource.TextUnit
}

// NewWriter returns a catalogue writer.
func NewWriter(log *slog.Logger) *Writer {
	if log == nil {
		log = slog.Default()
	}
	return &Writer{log: log}
}

// SetOptions sets the target locale. The encoding is ignored.
func (w *Writer) SetOptions(loc locale.ID, _ string) { w.loc = loc }

func (w *Writer) SetOutput(out io.Writer) { w.out = out }

// Handle writes one event.
func (w *Writer) Handle(ev event.Event) error {
	var err error
	switch ev.Kind {
	case event.StartDocument:
		err = w.start(ev.StartDocument)
	case event.EndDocument:
		err = w.flush()
	case event.StartGroup:
		err = w.startGroup(ev.StartGroup)
	case event.EndGroup:
		err = w.endGroup()
	case event.TextUnit:
		err = w.textUnit(ev.TextUnit)
	case event.Multi:
		for _, sub := range ev.Events {
			if err := w.Handle(sub); err != nil {
				return err
			}
		}
	}
	if err != nil {
		return fmt.Errorf("po writer: %w", err)
	}
	return nil
}

// Close flushes buffered output. It does not close the underlying writer.
func (w *Writer) Close() error {
	if err := w.flush(); err != nil {
		return fmt.Errorf("po writer: %w", err)
	}
	return nil
}

func (w *Writer) flush() error {
	if w.bw == nil {
		return nil
	}
	return w.bw.Flush()
}

func (w *Writer) start(sd *resource.StartDocument) error {
	if w.out == nil {
		return fmt.Errorf("no output set")
	}
	if w.loc.IsEmpty() {
		w.loc = sd.Locale
	}
	w.bw = bufio.NewWriter(w.out)
	w.seen = make(map[string]bool)
	w.plural = nil
	w.depth = 0

	project := w.ProjectID
	if project == "" {
		project = sd.Name
	}
	lines := []string{
		"Project-Id-Version: " + project + "\n",
		"Language: " + w.loc.POName() + "\n",
		"MIME-Version: 1.0\n",
		"Content-Type: text/plain; charset=UTF-8\n",
		"Content-Transfer-Encoding: 8bit\n",
		"Plural-Forms: " + PluralForms(w.loc) + "\n",
	}
	w.bw.WriteString("msgid \"\"\nmsgstr \"\"\n")
	for _, l := range lines {
		w.bw.WriteString(`"` + Escape(l) + "\"\n")
	}
	w.log.Debug("writing catalogue", "name", sd.Name, "locale", w.loc.String())
	return nil
}

func (w *Writer) startGroup(sg *resource.StartGroup) error {
	if w.bw == nil {
		return fmt.Errorf("group %s before start of document", sg.ID)
	}
	if w.plural != nil {
		w.depth++
		return nil
	}
	if sg.Type != GroupPlurals {
		return nil
	}
	g := &pluralGroup{id: sg.ID}
	if v := sg.Properties.Value(PropNPlurals); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("group %s: bad %s %q", sg.ID, PropNPlurals, v)
		}
		g.nplurals = n
	}
	w.plural = g
	return nil
}

func (w *Writer) endGroup() error {
	if w.plural == nil {
		return nil
	}
	if w.depth > 0 {
		w.depth--
		return nil
	}
	g := w.plural
	w.plural = nil
	return w.writePlural(g)
}

func (w *Writer) textUnit(tu *resource.TextUnit) error {
	if w.bw == nil {
		return fmt.Errorf("text unit %s before start of document", tu.ID)
	}
	if w.plural != nil {
		if w.depth == 0 {
			w.plural.units = append(w.plural.units, tu)
		}
		return nil
	}
	if !tu.Translatable || !tu.Source.HasText(false) {
		return nil
	}
	msgid := genericcontent.Format(tu.Source.Unsegmented())
	key := tu.Name + "\x04" + msgid
	if w.seen[key] {
		w.log.Debug("skipping duplicate message", "id", tu.ID)
		return nil
	}
	w.seen[key] = true

	msgstr, fuzzy := w.target(tu)
	w.comments(tu.ID, fuzzy)
	if tu.Name != "" {
		w.bw.WriteString("msgctxt " + w.quote(tu.Name) + "\n")
	}
	w.bw.WriteString("msgid " + w.quote(msgid) + "\n")
	w.bw.WriteString("msgstr " + w.quote(msgstr) + "\n")
	return nil
}

func (w *Writer) writePlural(g *pluralGroup) error {
	if len(g.units) < 2 {
		return fmt.Errorf("group %s: PO cannot have less than two entries for a plural form", g.id)
	}
	n := len(g.units)
	if g.nplurals > 0 {
		if n > g.nplurals {
			return fmt.Errorf("group %s: %d plural variants but nplurals is %d", g.id, n, g.nplurals)
		}
		n = g.nplurals
	}
	first := g.units[0]
	fuzzy := false
	msgstrs := make([]string, n)
	for i, tu := range g.units {
		s, f := w.target(tu)
		msgstrs[i] = s
		fuzzy = fuzzy || f
	}

	w.comments(first.ID, fuzzy)
	if first.Name != "" {
		w.bw.WriteString("msgctxt " + w.quote(first.Name) + "\n")
	}
	w.bw.WriteString("msgid " + w.quote(genericcontent.Format(first.Source.Unsegmented())) + "\n")
	w.bw.WriteString("msgid_plural " + w.quote(genericcontent.Format(g.units[1].Source.Unsegmented())) + "\n")
	for i, s := range msgstrs {
		w.bw.WriteString("msgstr[" + strconv.Itoa(i) + "] " + w.quote(s) + "\n")
	}
	return nil
}

// target returns the generic form of tu's target and whether it is
// marked unapproved.
func (w *Writer) target(tu *resource.TextUnit) (string, bool) {
	tc := tu.Target(w.loc)
	if tc == nil {
		return "", false
	}
	fuzzy := tc.Properties.Value(PropApproved) == "no"
	return genericcontent.Format(tc.Unsegmented()), fuzzy
}

func (w *Writer) comments(id string, fuzzy bool) {
	w.bw.WriteString("\n#: " + id + "\n")
	if fuzzy {
		w.bw.WriteString("#, fuzzy\n")
	}
}

// quote returns s as a PO string. Strings with inner line breaks start
// with an empty line and break after each \n.
func (w *Writer) quote(s string) string {
	if i := strings.Index(s, "\n"); i >= 0 && i < len(s)-1 {
		return "\"\"\n\"" + w.enc.Encode(s, encoder.Text) + `"`
	}
	return `"` + w.enc.Encode(s, encoder.Attribute) + `"`
}
