// Package leverage fills targets from an existing gettext catalogue.
package leverage

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/leonelquinteros/gotext"

	"github.com/dgallion1/docloc/internal/event"
	"github.com/dgallion1/docloc/internal/genericcontent"
	"github.com/dgallion1/docloc/internal/locale"
	"github.com/dgallion1/docloc/internal/po"
	"github.com/dgallion1/docloc/internal/resource"
)

// PropLeveraged is the target property naming where a target came from.
const PropLeveraged = "leveraged"

// OriginPO marks targets taken from a PO catalogue.
const OriginPO = "po"

// Catalog is a loaded PO catalogue.
type Catalog struct {
	// Locale is the catalogue's Language header, or empty.
	Locale  locale.ID
	Entries int

	po *gotext.Po
}

// ParseCatalog loads a catalogue from PO data.
func ParseCatalog(data []byte) (*Catalog, error) {
	f, err := po.Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse catalogue: %w", err)
	}
	loc, err := locale.Parse(f.Header().Get("Language"))
	if err != nil {
		loc = locale.Empty
	}
	n := 0
	for _, e := range f.Entries {
		if e.HasMessage() && !e.IsHeader() {
			n++
		}
	}

	g := gotext.NewPo()
	g.Parse(data)
	return &Catalog{Locale: loc, Entries: n, po: g}, nil
}

// LoadCatalog reads a catalogue from a file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalogue: %w", err)
	}
	return ParseCatalog(data)
}

// Lookup returns the translation of msgid. A non-empty context is tried
// first. Untranslated entries and missing ones are misses.
func (c *Catalog) Lookup(msgid, context string) (string, bool) {
	if msgid == "" {
		return "", false
	}
	if context != "" {
		if got := c.po.GetC(msgid, context); got != "" && got != msgid {
			return got, true
		}
	}
	got := c.po.Get(msgid)
	if got == "" || got == msgid {
		return "", false
	}
	return got, true
}

// Stats reports what one pass did.
type Stats struct {
	Units    int // Translatable units looked at.
	Hits     int // Units that received a target.
	Segments int // Units filled segment by segment.
	Rejected int // Hits whose placeholders did not match the source.
	Skipped  int // Units that already had a target.
}

// Leverager copies catalogue translations into text units.
type Leverager struct {
	cat    *Catalog
	target locale.ID
	log    *slog.Logger
}

// New creates a leverager writing targets for target.
func New(cat *Catalog, target locale.ID, log *slog.Logger) *Leverager {
	if log == nil {
		log = slog.Default()
	}
	return &Leverager{cat: cat, target: target, log: log}
}

// Process leverages every text unit in events.
func (l *Leverager) Process(events []event.Event) Stats {
	var st Stats
	for _, tu := range event.TextUnits(events) {
		l.unit(tu, &st)
	}
	l.log.Info("leverage done",
		"target", l.target.String(),
		"units", st.Units,
		"hits", st.Hits,
		"rejected", st.Rejected,
		"skipped", st.Skipped,
	)
	return st
}

// LeverageUnit fills the target of one unit and reports whether it did.
func (l *Leverager) LeverageUnit(tu *resource.TextUnit) bool {
	var st Stats
	l.unit(tu, &st)
	return st.Hits == 1
}

func (l *Leverager) unit(tu *resource.TextUnit, st *Stats) {
	if !tu.Translatable {
		return
	}
	src := tu.Source.Unsegmented()
	if !src.HasText(false) {
		return
	}
	st.Units++
	if tc := tu.Target(l.target); tc != nil && tc.Unsegmented().HasText(false) {
		st.Skipped++
		return
	}

	if frag, ok := l.translate(src, tu, st); ok {
		tc := resource.NewTextContainerFrom(frag)
		tc.Properties = tu.Source.Properties.Clone()
		l.set(tu, tc)
		st.Hits++
		return
	}
	if !tu.Source.HasSegments() {
		return
	}

	tc := tu.Source.Clone()
	for _, seg := range tc.Segments() {
		frag, ok := l.translate(seg.Content, tu, st)
		if !ok {
			return
		}
		seg.Content = frag
	}
	l.set(tu, tc)
	st.Hits++
	st.Segments++
}

func (l *Leverager) translate(src *resource.TextFragment, tu *resource.TextUnit, st *Stats) (*resource.TextFragment, bool) {
	msgid := genericcontent.Format(src)
	tr, ok := l.cat.Lookup(msgid, tu.Name)
	if !ok {
		return nil, false
	}
	frag, err := genericcontent.ParseFor(tr, src)
	if err != nil {
		l.log.Warn("catalogue translation rejected", "unit_id", tu.ID, "error", err)
		st.Rejected++
		return nil, false
	}
	resource.AdjustTargetCodes(src, frag, l.log, tu.ID)
	return frag, true
}

func (l *Leverager) set(tu *resource.TextUnit, tc *resource.TextContainer) {
	tu.SetTarget(l.target, tc)
	tu.SetTargetProperty(l.target, resource.NewProperty(PropLeveraged, OriginPO, false))
}
