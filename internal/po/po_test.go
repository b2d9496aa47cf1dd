package po

import (
	"errors"
	"testing"

	"github.com/dgallion1/docloc/internal/locale"
	"github.com/dgallion1/docloc/internal/resource"
)

const sample = `# Sample catalogue
msgid ""
msgstr ""
"Language: fr\n"
"Content-Type: text/plain; charset=UTF-8\n"
"Plural-Forms: nplurals=2; plural=(n > 1);\n"

#: menu.c:12
#, fuzzy, c-format
msgctxt "menu"
msgid "Open"
msgstr "Ouvrir"

msgid "One file"
msgid_plural "%d files"
msgstr[0] "Un fichier"
msgstr[1] "%d fichiers"

msgid "Two\n"
"lines"
msgstr ""
"Deux\n"
"lignes"

#~ msgid "Old"
#~ msgstr "Vieux"
`

func TestParse_Entries(t *testing.T) {
	f, err := Parse(sample)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.Entries) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(f.Entries))
	}

	h := f.Header()
	if got := h.Get("language"); got != "fr" {
		t.Errorf("expected %q, got %q", "fr", got)
	}
	if got := h.Charset(); got != "UTF-8" {
		t.Errorf("expected %q, got %q", "UTF-8", got)
	}
	if got := h.NPlurals(); got != 2 {
		t.Errorf("expected 2 plurals, got %d", got)
	}

	open := f.Entries[1]
	if open.Context != "menu" || open.ID != "Open" || open.Str[0] != "Ouvrir" {
		t.Errorf("unexpected entry %+v", open)
	}
	if !open.Fuzzy() {
		t.Error("expected fuzzy entry")
	}
	if len(open.References) != 1 || open.References[0] != "menu.c:12" {
		t.Errorf("unexpected references %v", open.References)
	}
	if got := sample[open.StrSpans[0].Start:open.StrSpans[0].End]; got != "Ouvrir" {
		t.Errorf("expected %q, got %q", "Ouvrir", got)
	}

	plural := f.Entries[2]
	if !plural.IsPlural() || plural.IDPlural != "%d files" || len(plural.Str) != 2 {
		t.Errorf("unexpected plural entry %+v", plural)
	}

	multi := f.Entries[3]
	if multi.ID != "Two\nlines" || multi.Str[0] != "Deux\nlignes" {
		t.Errorf("unexpected multi-line entry %+v", multi)
	}
	span := multi.StrSpans[0]
	if got := sample[span.Start:span.End]; got != "Deux\\n\"\n\"lignes" {
		t.Errorf("unexpected span text %q", got)
	}

	old := f.Entries[4]
	if !old.Obsolete || old.HasMessage() {
		t.Errorf("expected an obsolete entry, got %+v", old)
	}
}

func TestParse_Malformed(t *testing.T) {
	cases := []string{
		"msgid \"a\\q\"\nmsgstr \"\"\n",
		"msgid \"open\nmsgstr \"\"\n",
		"msgstr \"x\"\n",
		"bogus \"x\"\n",
		"msgid \"a\"\nmsgid_plural \"b\"\nmsgstr[1] \"x\"\n",
	}
	for _, c := range cases {
		if _, err := Parse(c); !errors.Is(err, resource.ErrIllegalOperation) {
			t.Errorf("expected illegal operation for %q, got %v", c, err)
		}
	}
}

func TestUnescape(t *testing.T) {
	got, err := Unescape(`tab\there \"quoted\" back\\slash\n`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "tab\there \"quoted\" back\\slash\n"; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if _, err := Unescape(`dangling\`); err == nil {
		t.Error("expected error for a trailing backslash")
	}
	if Escape(got) != `tab\there \"quoted\" back\\slash\n` {
		t.Errorf("escape did not invert unescape: %q", Escape(got))
	}
}

func TestPluralForms(t *testing.T) {
	cases := map[string]int{"fr": 2, "pt-BR": 2, "ja": 1, "ru": 3, "ar": 6, "en": 2, "sl": 4}
	for loc, want := range cases {
		if got := NPlurals(PluralForms(locale.MustParse(loc))); got != want {
			t.Errorf("%s: expected %d plurals, got %d", loc, want, got)
		}
	}
	if PluralForms(locale.MustParse("fr-CA")) != PluralForms(locale.MustParse("fr")) {
		t.Error("expected regional locales to fall back to their language")
	}
}
