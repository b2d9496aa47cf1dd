package filters

import (
	"strings"
	"testing"
)

const csvDoc = "Name,Description,Price\r\n" +
	"Widget,\"A small, useful part\",3\r\n" +
	"Gadget, \"Says \"\"hi\"\"\",\r\n" +
	"\r\n" +
	"42,,\"\"\r\n"

func TestCSVFilter_Units(t *testing.T) {
	events := openDoc(t, &CSVFilter{}, "items.csv", csvDoc)
	want := []string{"Name", "Description", "Price", "Widget", "A small, useful part", "Gadget", `Says "hi"`}
	if got := sources(events); !equalStrings(got, want) {
		t.Errorf("expected %q, got %q", want, got)
	}

	name := unitBySource(t, events, "Name")
	if name.Type != "header" || name.Name != "r1c1" {
		t.Errorf("expected header r1c1, got %q %q", name.Type, name.Name)
	}
	quoted := unitBySource(t, events, "A small, useful part")
	if !quoted.IsReferent || quoted.Type != "cell" || quoted.Name != "r2c2" {
		t.Errorf("unexpected quoted cell %q %q referent=%v", quoted.Type, quoted.Name, quoted.IsReferent)
	}
}

func TestCSVFilter_RoundTrip(t *testing.T) {
	assertRoundTrip(t, &CSVFilter{}, "items.csv", csvDoc)
	assertRoundTrip(t, &CSVFilter{}, "bare.csv", "a,b\nc,d")
	assertRoundTrip(t, &CSVFilter{Comma: ';'}, "semi.csv", "x;\"y;z\"\n")
}

func TestCSVFilter_WritesTargets(t *testing.T) {
	f := &CSVFilter{}
	events := openDoc(t, f, "items.csv", csvDoc)
	translate(t, unitBySource(t, events, "Widget"), "Bidule, grand")
	translate(t, unitBySource(t, events, "A small, useful part"), `Une "petite" pièce`)
	translate(t, unitBySource(t, events, "Name"), "Nom")

	out := writeDoc(t, f, events, fr)
	for _, want := range []string{
		"Nom,Description,Price\r\n",
		"\"Bidule, grand\",\"Une \"\"petite\"\" pièce\",3\r\n",
		"Gadget, \"Says \"\"hi\"\"\",\r\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q\n%s", want, out)
		}
	}
}

func TestCSVFilter_UnterminatedQuoteStaysInSkeleton(t *testing.T) {
	const doc = "a,\"unterminated\n"
	events := openDoc(t, &CSVFilter{}, "bad.csv", doc)
	if got := sources(events); !equalStrings(got, []string{"a"}) {
		t.Errorf("expected only the bare cell, got %q", got)
	}
	assertRoundTrip(t, &CSVFilter{}, "bad.csv", doc)
}

func TestCSVFilter_InvalidDelimiter(t *testing.T) {
	if _, err := (&CSVFilter{Comma: '"'}).Open(rawdocFor("bad.csv", "a\"b\n")); err == nil {
		t.Error("expected error for a quote used as the delimiter")
	}
}
