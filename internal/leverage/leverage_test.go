package leverage

import (
	"errors"
	"testing"

	"github.com/dgallion1/docloc/internal/event"
	"github.com/dgallion1/docloc/internal/locale"
	"github.com/dgallion1/docloc/internal/resource"
	"github.com/dgallion1/docloc/internal/segmenter"
)

var fr = locale.MustParse("fr")

const catalogue = `msgid ""
msgstr ""
"Language: fr\n"
"Content-Type: text/plain; charset=UTF-8\n"

msgid "Hello"
msgstr "Bonjour"

msgid "Click <1>here</1>"
msgstr "Cliquez <1>ici</1>"

msgid "Bad <1>code</1>"
msgstr "Mauvais <3/>"

msgctxt "menu"
msgid "Open"
msgstr "Ouvrir (menu)"

msgid "Open"
msgstr "Ouvrir"

msgid "One."
msgstr "Un."

msgid "Two."
msgstr "Deux."

msgid "Empty"
msgstr ""
`

func loadCatalog(t *testing.T) *Catalog {
	t.Helper()
	cat, err := ParseCatalog([]byte(catalogue))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return cat
}

func boldUnit(id, before, inside string) *resource.TextUnit {
	tu := resource.NewTextUnit(id, before)
	tu.Source.AppendCode(resource.Opening, "b", "<b>")
	tu.Source.Append(inside)
	tu.Source.AppendCode(resource.Closing, "b", "</b>")
	return tu
}

func TestParseCatalog_Header(t *testing.T) {
	cat := loadCatalog(t)
	if cat.Locale != fr {
		t.Errorf("expected %q, got %q", fr, cat.Locale)
	}
	if cat.Entries != 8 {
		t.Errorf("expected 8 entries, got %d", cat.Entries)
	}
}

func TestParseCatalog_Malformed(t *testing.T) {
	_, err := ParseCatalog([]byte("msgid \"a\\q\"\nmsgstr \"\"\n"))
	if !errors.Is(err, resource.ErrIllegalOperation) {
		t.Errorf("expected illegal operation, got %v", err)
	}
}

func TestCatalog_Lookup(t *testing.T) {
	cat := loadCatalog(t)
	tests := []struct {
		msgid, context string
		want           string
		ok             bool
	}{
		{"Hello", "", "Bonjour", true},
		{"Open", "menu", "Ouvrir (menu)", true},
		{"Open", "", "Ouvrir", true},
		{"Open", "toolbar", "Ouvrir", true},
		{"Empty", "", "", false},
		{"Missing", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		got, ok := cat.Lookup(tt.msgid, tt.context)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Lookup(%q, %q): expected %q %v, got %q %v", tt.msgid, tt.context, tt.want, tt.ok, got, ok)
		}
	}
}

func TestLeverager_Process(t *testing.T) {
	hello := resource.NewTextUnit("tu1", "Hello")
	click := boldUnit("tu2", "Click ", "here")
	bad := boldUnit("tu3", "Bad ", "code")
	done := resource.NewTextUnit("tu4", "Hello")
	done.SetTarget(fr, resource.NewTextContainer("Salut"))
	menu := resource.NewTextUnit("tu5", "Open")
	menu.Name = "menu"
	missing := resource.NewTextUnit("tu6", "Nothing here")

	events := []event.Event{
		event.NewTextUnit(hello),
		event.NewTextUnit(click),
		event.NewTextUnit(bad),
		event.NewTextUnit(done),
		event.NewTextUnit(menu),
		event.NewTextUnit(missing),
	}
	st := New(loadCatalog(t), fr, nil).Process(events)
	if st.Units != 6 || st.Hits != 3 || st.Rejected != 1 || st.Skipped != 1 {
		t.Errorf("unexpected stats %+v", st)
	}

	if got := hello.Target(fr).Text(); got != "Bonjour" {
		t.Errorf("expected %q, got %q", "Bonjour", got)
	}
	if got := hello.TargetProperty(fr, PropLeveraged); got == nil || got.Value != OriginPO {
		t.Errorf("expected leveraged=po, got %v", got)
	}
	if got := click.Target(fr).String(); got != "Cliquez <b>ici</b>" {
		t.Errorf("expected %q, got %q", "Cliquez <b>ici</b>", got)
	}
	if bad.HasTarget(fr) {
		t.Error("a translation with unknown placeholders must be rejected")
	}
	if got := done.Target(fr).Text(); got != "Salut" {
		t.Errorf("expected existing target to be kept, got %q", got)
	}
	if got := menu.Target(fr).Text(); got != "Ouvrir (menu)" {
		t.Errorf("expected %q, got %q", "Ouvrir (menu)", got)
	}
	if missing.HasTarget(fr) {
		t.Error("expected no target on a miss")
	}
}

func TestLeverager_BySegment(t *testing.T) {
	tu := resource.NewTextUnit("tu1", "One. Two.")
	if _, err := segmenter.New(segmenter.DefaultConfig(), nil).SegmentUnit(tu); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lev := New(loadCatalog(t), fr, nil)
	st := lev.Process([]event.Event{event.NewTextUnit(tu)})
	if st.Hits != 1 || st.Segments != 1 {
		t.Errorf("unexpected stats %+v", st)
	}
	tc := tu.Target(fr)
	if tc == nil || tc.SegmentCount() != 2 {
		t.Fatalf("expected a segmented target, got %v", tc)
	}
	if got := tc.Text(); got != "Un. Deux." {
		t.Errorf("expected %q, got %q", "Un. Deux.", got)
	}

	partial := resource.NewTextUnit("tu2", "One. Three.")
	if _, err := segmenter.New(segmenter.DefaultConfig(), nil).SegmentUnit(partial); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lev.LeverageUnit(partial) || partial.HasTarget(fr) {
		t.Error("a partial segment match must leave the unit untouched")
	}
}
