package locale

import "testing"

func TestParse_Canonicalises(t *testing.T) {
	tests := []struct {
		in   string
		want ID
	}{
		{"fr", "fr"},
		{"pt_BR", "pt-BR"},
		{"EN-us", "en-US"},
		{"", Empty},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("Parse(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestParse_RejectsGarbage(t *testing.T) {
	if _, err := Parse("not a locale!!"); err == nil {
		t.Error("expected error for malformed locale")
	}
}

func TestID_LanguageAndPOName(t *testing.T) {
	id := MustParse("pt-BR")
	if id.Language() != "pt" {
		t.Errorf("expected language pt, got %q", id.Language())
	}
	if id.POName() != "pt_BR" {
		t.Errorf("expected pt_BR, got %q", id.POName())
	}
	if !id.SameLanguage(MustParse("pt-PT")) {
		t.Error("expected pt-BR and pt-PT to share a language")
	}
}

func TestMatch(t *testing.T) {
	got, ok := Match(MustParse("fr-CA"), []ID{"en", "fr", "de"})
	if !ok || got != "fr" {
		t.Errorf("expected fr, got %q (ok=%v)", got, ok)
	}
}
