package filters

import (
	"strings"
	"testing"
)

const htmlDoc = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Greeting</title></head>
<body>
<p>Hello <b>bold</b> &amp; <img src="a.png" alt="A picture"> world</p>
<ul><li>One</li><li>Two</li></ul>
<script>var x = "<p>not text</p>";</script>
</body>
</html>
`

func TestHTMLFilter_Units(t *testing.T) {
	events := openDoc(t, &HTMLFilter{}, "page.html", htmlDoc)

	p := unitBySource(t, events, "Hello bold &  world")
	if got := sources(events); !strings.Contains(strings.Join(got, "|"), "Hello <1>bold</1> & <2/> world") {
		t.Errorf("unexpected sources %q", got)
	}
	if p.Type != "p" {
		t.Errorf("expected %q, got %q", "p", p.Type)
	}

	alt := unitBySource(t, events, "A picture")
	if !alt.IsReferent {
		t.Error("expected the alt text to be a referent")
	}
	unitBySource(t, events, "Greeting")
	unitBySource(t, events, "One")
	unitBySource(t, events, "Two")
	for _, s := range sources(events) {
		if strings.Contains(s, "not text") {
			t.Errorf("script content must not be extracted, got %q", s)
		}
	}
}

func TestHTMLFilter_RoundTrip(t *testing.T) {
	assertRoundTrip(t, &HTMLFilter{}, "page.html", htmlDoc)
	assertRoundTrip(t, &HTMLFilter{}, "bare.html", "Loose text<br>after a break\n<p title=\"Tip\">Para\n")
}

func TestHTMLFilter_WritesTargets(t *testing.T) {
	f := &HTMLFilter{}
	events := openDoc(t, f, "page.html", htmlDoc)
	translate(t, unitBySource(t, events, "Hello bold &  world"), "Bonjour <1>gras</1> & <2/> monde")
	translate(t, unitBySource(t, events, "A picture"), "Une \"image\"")

	out := writeDoc(t, f, events, fr)
	for _, want := range []string{
		`<html lang="fr">`,
		`<meta charset="utf-8">`,
		`<p>Bonjour <b>gras</b> &amp; <img src="a.png" alt="Une &quot;image&quot;"> monde</p>`,
		`<title>Greeting</title>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q\n%s", want, out)
		}
	}
}

func TestHTMLFilter_KeepsEntityReferences(t *testing.T) {
	const doc = "<p>Caf&eacute; &#233; &#xE9; &amp; a&nbsp;b</p>\n<img src=\"x.png\" alt=\"R&eacute;sum&#233; &quot;x&quot;\">\n"
	f := &HTMLFilter{}
	events := openDoc(t, f, "entities.html", doc)
	if got := sources(events); !strings.Contains(strings.Join(got, "|"), "Caf<1/> <2/> <3/> & a\u00a0b") {
		t.Errorf("unexpected sources %q", got)
	}
	alt := unitBySource(t, events, `Rsum "x"`)
	if alt.SourceContent().CodeCount() != 2 {
		t.Errorf("expected 2 entity codes in the alt text, got %d", alt.SourceContent().CodeCount())
	}
	assertRoundTrip(t, f, "entities.html", doc)
}
