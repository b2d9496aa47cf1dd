package resource_test

import (
	"testing"

	"github.com/dgallion1/docloc/internal/genericcontent"
	"github.com/dgallion1/docloc/internal/resource"
)

func TestCodesToString_RoundTrip(t *testing.T) {
	for _, f := range []*resource.TextFragment{makeFragment1(), annotatedFragment(t), resource.NewTextFragment("plain")} {
		s := resource.CodesToString(f.Codes())
		codes, err := resource.StringToCodes(s)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		g, err := resource.FromCodedText(f.CodedText(), codes)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if g.String() != f.String() {
			t.Errorf("expected %q, got %q", f.String(), g.String())
		}
		if genericcontent.Format(g) != genericcontent.Format(f) {
			t.Errorf("expected %q, got %q", genericcontent.Format(f), genericcontent.Format(g))
		}
		if g.CodeCount() != f.CodeCount() {
			t.Fatalf("expected %d codes, got %d", f.CodeCount(), g.CodeCount())
		}
		for i := range f.Codes() {
			if !f.Code(i).ContentEqual(g.Code(i)) {
				t.Errorf("code %d differs after round trip", i)
			}
		}
	}
}

func TestCodesToString_KeepsAnnotationSharing(t *testing.T) {
	f := annotatedFragment(t)
	codes, err := resource.StringToCodes(resource.CodesToString(f.Codes()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g, err := resource.FromCodedText(f.CodedText(), codes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	open, cls := g.Code(1), g.Code(2)
	if open.Annotation("term") == nil || open.Annotation("term") != cls.Annotation("term") {
		t.Fatal("expected the restored pair to share its annotation")
	}
	open.Annotation("term").Data = "changed"
	if f.Code(1).Annotation("term").Data != "Nouveau" {
		t.Error("restored fragment must not share annotations with the original")
	}
}

func TestCodesToString_Flags(t *testing.T) {
	c := resource.NewCode(resource.Placeholder, "img", `<img alt="[#$tu1]">`)
	c.ID = 4
	c.HasReference = true
	c.Deleteable = true
	c.OuterData = "<ph/>"
	codes, err := resource.StringToCodes(resource.CodesToString([]*resource.Code{c}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(codes) != 1 || !codes[0].ContentEqual(c) {
		t.Errorf("expected %+v, got %+v", c, codes[0])
	}
	if _, err := resource.StringToCodes("{not json"); err == nil {
		t.Error("expected decode error")
	}
}
