package skeleton

import (
	"errors"
	"testing"

	"github.com/dgallion1/docloc/internal/encoder"
	"github.com/dgallion1/docloc/internal/locale"
	"github.com/dgallion1/docloc/internal/resource"
)

var (
	en = locale.MustParse("en")
	fr = locale.MustParse("fr")
	de = locale.MustParse("de")
)

func TestSkeleton_AddAndAppend(t *testing.T) {
	s := New()
	s.Add("")
	if !s.IsEmpty() {
		t.Fatal("empty text must not add a part")
	}
	s.Add("<p>")
	s.Append("<b>")
	if len(s.Parts()) != 1 || s.LastPart().Data != "<p><b>" {
		t.Errorf("expected appended literal, got %q", s.String())
	}
	s.CreateNew = true
	s.Append("x")
	if len(s.Parts()) != 2 {
		t.Errorf("expected a new part, got %d parts", len(s.Parts()))
	}
	s.AddContentPlaceholder(Self, locale.Empty)
	s.Append("</p>")
	if len(s.Parts()) != 4 {
		t.Errorf("expected 4 parts, got %d", len(s.Parts()))
	}
	if got := s.String(); got != "<p><b>x[#$$self$]</p>" {
		t.Errorf("unexpected string %q", got)
	}
}

func TestSkeleton_ChangeSelfReferents(t *testing.T) {
	s := NewText("<a title=\"")
	s.AddValuePlaceholder(Self, "title", locale.Empty)
	s.AddReference(resource.Handle{Kind: resource.KindTextUnit, ID: "tu9"})
	s.AddContentPlaceholder(Self, fr)
	owner := resource.Handle{Kind: resource.KindTextUnit, ID: "tu1"}
	s.ChangeSelfReferents(owner)
	for _, p := range s.Parts()[1:] {
		if p.IsSelf() {
			t.Errorf("part %q still refers to self", p.String())
		}
	}
	if s.Parts()[2].Owner.ID != "tu9" {
		t.Error("references to other resources must not change")
	}
	if s.Parts()[3].Owner != owner {
		t.Errorf("expected owner %v, got %v", owner, s.Parts()[3].Owner)
	}
}

func TestSkeleton_CloneIsIndependent(t *testing.T) {
	s := NewText("a")
	s.AddContentPlaceholder(Self, locale.Empty)
	c := s.Clone()
	c.Parts()[0].Data = "changed"
	c.ChangeSelfReferents(resource.Handle{Kind: resource.KindTextUnit, ID: "x"})
	if s.Parts()[0].Data != "a" || !s.Parts()[1].IsSelf() {
		t.Error("clone shares parts with the original")
	}
}

// paragraph builds a text unit wrapped in <p> with a French target.
func paragraph(id, src, tgt string) *resource.TextUnit {
	tu := resource.NewTextUnit(id, src)
	if tgt != "" {
		tu.SetTarget(fr, resource.NewTextContainer(tgt))
	}
	s := NewText("<p>")
	s.AddContentPlaceholder(Self, locale.Empty)
	s.Add("</p>")
	tu.Skeleton = s
	return tu
}

func startDoc(multilingual bool) *resource.StartDocument {
	return &resource.StartDocument{
		BaseResource: resource.BaseResource{ID: "sd1"},
		Locale:       en,
		Encoding:     "UTF-8",
		Multilingual: multilingual,
	}
}

func writeUnit(t *testing.T, w *Writer, sd *resource.StartDocument, tu *resource.TextUnit) string {
	t.Helper()
	if _, err := w.ProcessStartDocument(sd); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := w.ProcessTextUnit(tu)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return out
}

func TestWriter_MonolingualUsesOutputLocale(t *testing.T) {
	tests := []struct {
		out  locale.ID
		tgt  string
		want string
	}{
		{fr, "Bonjour", "<p>Bonjour</p>"},
		{en, "Bonjour", "<p>Hello</p>"},
		{de, "Bonjour", "<p>Hello</p>"},
		{fr, "", "<p>Hello</p>"},
	}
	for _, tt := range tests {
		w := NewWriter(tt.out, "", nil, nil)
		got := writeUnit(t, w, startDoc(false), paragraph("tu1", "Hello", tt.tgt))
		if got != tt.want {
			t.Errorf("output %s: expected %q, got %q", tt.out, tt.want, got)
		}
	}
}

func TestWriter_UntranslatableKeepsSource(t *testing.T) {
	tu := paragraph("tu1", "Hello", "Bonjour")
	tu.Translatable = false
	w := NewWriter(fr, "", nil, nil)
	if got := writeUnit(t, w, startDoc(false), tu); got != "<p>Hello</p>" {
		t.Errorf("expected source, got %q", got)
	}
}

func TestWriter_MultilingualFollowsPartLocale(t *testing.T) {
	tu := resource.NewTextUnit("tu1", "Hello")
	tu.SetTarget(fr, resource.NewTextContainer("Bonjour"))
	s := NewText("<src>")
	s.AddContentPlaceholder(Self, locale.Empty)
	s.Add("</src><fr>")
	s.AddContentPlaceholder(Self, fr)
	s.Add("</fr><de>")
	s.AddContentPlaceholder(Self, de)
	s.Add("</de>")
	tu.Skeleton = s

	w := NewWriter(de, "", nil, nil)
	got := writeUnit(t, w, startDoc(true), tu)
	want := "<src>Hello</src><fr>Bonjour</fr><de>Hello</de>"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestWriter_EncodesText(t *testing.T) {
	tu := paragraph("tu1", "Fish & <chips>", "")
	w := NewWriter(en, "", encoder.HTML{}, nil)
	if got := writeUnit(t, w, startDoc(false), tu); got != "<p>Fish &amp; &lt;chips&gt;</p>" {
		t.Errorf("unexpected output %q", got)
	}
}

func TestWriter_CodesAndGenericCodes(t *testing.T) {
	tu := resource.NewTextUnit("tu1", "")
	tu.Source.AppendCode(resource.Opening, "b", "<b>")
	tu.Source.Append("bold")
	tu.Source.AppendCode(resource.Closing, "b", "</b>")
	w := NewWriter(en, "", encoder.HTML{}, nil)
	if got := writeUnit(t, w, startDoc(false), tu); got != "<b>bold</b>" {
		t.Errorf("expected code data, got %q", got)
	}
	w.GenericCodes = true
	if got := writeUnit(t, w, startDoc(false), tu); got != "<1>bold</1>" {
		t.Errorf("unexpected generic output %q", got)
	}
}

func TestWriter_ValuePlaceholders(t *testing.T) {
	dp := resource.NewDocumentPart("dp1", false)
	dp.SetSourceProperty(resource.NewProperty(encoder.PropEncoding, "iso-8859-1", false))
	dp.SetSourceProperty(resource.NewProperty(encoder.PropLanguage, "en", false))
	dp.SetProperty(resource.NewProperty("version", "1.0", true))
	s := NewText(`<meta charset="`)
	s.AddValuePlaceholder(Self, encoder.PropEncoding, locale.Empty)
	s.Add(`" lang="`)
	s.AddValuePlaceholder(Self, encoder.PropLanguage, locale.Empty)
	s.Add(`" v="`)
	s.AddResourceValuePlaceholder(Self, "version")
	s.Add(`">`)
	dp.Skeleton = s

	w := NewWriter(locale.MustParse("fr-CA"), "UTF-8", encoder.PO{}, nil)
	if _, err := w.ProcessStartDocument(startDoc(false)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := w.ProcessDocumentPart(dp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `<meta charset="UTF-8" lang="fr_CA" v="1.0">`
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	w.RegisterValueRewriter(encoder.PropEncoding, func(v string) string { return "x-" + v })
	got, _ = w.ProcessDocumentPart(dp)
	if got != `<meta charset="x-iso-8859-1" lang="fr_CA" v="1.0">` {
		t.Errorf("custom rewriter not applied: %q", got)
	}
}

func TestWriter_ReferentTextUnit(t *testing.T) {
	alt := resource.NewTextUnit("tu1", `Say "hi"`)
	alt.IsReferent = true
	alt.SetTarget(fr, resource.NewTextContainer(`Dis "salut"`))

	dp := resource.NewDocumentPart("dp1", false)
	s := NewText(`<img alt="`)
	s.AddReference(resource.HandleOf(alt))
	s.Add(`">`)
	dp.Skeleton = s

	w := NewWriter(fr, "", encoder.HTML{}, nil)
	if _, err := w.ProcessStartDocument(startDoc(false)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out, _ := w.ProcessTextUnit(alt); out != "" {
		t.Errorf("referents must not be written in place, got %q", out)
	}
	got, err := w.ProcessDocumentPart(dp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `<img alt="Dis &quot;salut&quot;">` {
		t.Errorf("unexpected output %q", got)
	}
}

func TestWriter_CodeReferences(t *testing.T) {
	alt := resource.NewTextUnit("tu1", "A picture")
	alt.IsReferent = true
	alt.SetTarget(fr, resource.NewTextContainer("Une image"))

	tu := resource.NewTextUnit("tu2", "See ")
	c := tu.Source.AppendCode(resource.Placeholder, "img", `<img alt="[#$tu1]"/>`)
	c.HasReference = true
	tgt := tu.CreateTarget(fr, false, true)
	if err := tgt.Content().Remove(0, 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tgt.Content().InsertText(0, "Voir "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	w := NewWriter(fr, "", encoder.HTML{}, nil)
	if _, err := w.ProcessStartDocument(startDoc(false)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, _ = w.ProcessTextUnit(alt)
	got, err := w.ProcessTextUnit(tu)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `Voir <img alt="Une image"/>` {
		t.Errorf("unexpected output %q", got)
	}
}

func TestWriter_ReferenceCycle(t *testing.T) {
	a := resource.NewDocumentPart("dpA", true)
	b := resource.NewDocumentPart("dpB", true)
	sa := NewText("a")
	sa.AddReference(resource.HandleOf(b))
	a.Skeleton = sa
	sb := NewText("b")
	sb.AddReference(resource.HandleOf(a))
	b.Skeleton = sb

	top := resource.NewDocumentPart("dp1", false)
	st := New()
	st.AddReference(resource.HandleOf(a))
	top.Skeleton = st

	w := NewWriter(en, "", nil, nil)
	_, _ = w.ProcessStartDocument(startDoc(false))
	_, _ = w.ProcessDocumentPart(a)
	_, _ = w.ProcessDocumentPart(b)
	if _, err := w.ProcessDocumentPart(top); !errors.Is(err, resource.ErrIllegalOperation) {
		t.Errorf("expected ErrIllegalOperation, got %v", err)
	}
}

func TestWriter_ReferenceCountReleasesReferent(t *testing.T) {
	ref := resource.NewDocumentPart("dpR", true)
	ref.ReferenceCount = 1
	ref.Skeleton = NewText("[r]")
	top := resource.NewDocumentPart("dp1", false)
	st := New()
	st.AddReference(resource.HandleOf(ref))
	top.Skeleton = st

	w := NewWriter(en, "", nil, nil)
	_, _ = w.ProcessStartDocument(startDoc(false))
	_, _ = w.ProcessDocumentPart(ref)
	if got, _ := w.ProcessDocumentPart(top); got != "[r]" {
		t.Errorf("expected referent output, got %q", got)
	}
	if got, _ := w.ProcessDocumentPart(top); got != "" {
		t.Errorf("expected released referent, got %q", got)
	}
}

func TestWriter_ReferentGroup(t *testing.T) {
	sg := &resource.StartGroup{BaseResource: resource.BaseResource{ID: "g1", IsReferent: true}}
	sg.Skeleton = NewText("<ul>")
	item := paragraph("tu1", "one", "un")
	inner := &resource.StartGroup{BaseResource: resource.BaseResource{ID: "g2"}}
	inner.Skeleton = NewText("<li>")
	innerEnd := resource.NewEnding("g2")
	innerEnd.Skeleton = NewText("</li>")
	end := resource.NewEnding("g1")
	end.Skeleton = NewText("</ul>")

	dp := resource.NewDocumentPart("dp1", false)
	s := NewText("[")
	s.AddReference(resource.HandleOf(sg))
	s.Add("]")
	dp.Skeleton = s

	w := NewWriter(fr, "", nil, nil)
	_, _ = w.ProcessStartDocument(startDoc(false))
	var held string
	for _, step := range []func() (string, error){
		func() (string, error) { return w.ProcessStartGroup(sg) },
		func() (string, error) { return w.ProcessStartGroup(inner) },
		func() (string, error) { return w.ProcessTextUnit(item) },
		func() (string, error) { return w.ProcessEndGroup(innerEnd) },
		func() (string, error) { return w.ProcessEndGroup(end) },
	} {
		out, err := step()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		held += out
	}
	if held != "" {
		t.Errorf("group content written in place: %q", held)
	}
	got, err := w.ProcessDocumentPart(dp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "[<ul><li><p>un</p></li></ul>]" {
		t.Errorf("unexpected output %q", got)
	}
}

type opaque struct{}

func (opaque) String() string { return "opaque" }

func TestWriter_RejectsForeignSkeleton(t *testing.T) {
	dp := resource.NewDocumentPart("dp1", false)
	dp.Skeleton = opaque{}
	w := NewWriter(en, "", nil, nil)
	_, _ = w.ProcessStartDocument(startDoc(false))
	if _, err := w.ProcessDocumentPart(dp); !errors.Is(err, resource.ErrIllegalOperation) {
		t.Errorf("expected ErrIllegalOperation, got %v", err)
	}
}

func TestWriter_ReuseTakesEachDocumentsDefaults(t *testing.T) {
	w := NewWriter(locale.Empty, "", nil, nil)

	first := startDoc(false)
	first.Encoding = "ISO-8859-1"
	if _, err := w.ProcessStartDocument(first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Encoding() != "ISO-8859-1" || w.OutputLocale() != en {
		t.Fatalf("expected ISO-8859-1/en, got %s/%s", w.Encoding(), w.OutputLocale())
	}
	if _, err := w.ProcessEndDocument(resource.NewEnding("ed1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second := startDoc(false)
	second.Locale = de
	second.Encoding = "UTF-16LE"
	if _, err := w.ProcessStartDocument(second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Encoding() != "UTF-16LE" {
		t.Errorf("expected %q, got %q", "UTF-16LE", w.Encoding())
	}
	if w.OutputLocale() != de {
		t.Errorf("expected %s, got %s", de, w.OutputLocale())
	}
}

func TestWriter_ReuseKeepsConfiguredValues(t *testing.T) {
	w := NewWriter(fr, "UTF-8", nil, nil)
	for _, enc := range []string{"ISO-8859-1", "UTF-16LE"} {
		sd := startDoc(false)
		sd.Encoding = enc
		if _, err := w.ProcessStartDocument(sd); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if w.Encoding() != "UTF-8" || w.OutputLocale() != fr {
			t.Errorf("expected UTF-8/fr, got %s/%s", w.Encoding(), w.OutputLocale())
		}
	}
}
