package resource_test

import (
	"testing"

	"github.com/dgallion1/docloc/internal/genericcontent"
	"github.com/dgallion1/docloc/internal/resource"
)

func TestSynchronizeCodes_Reordered(t *testing.T) {
	src := makeFragment1()
	trg := resource.NewTextFragment("")
	trg.AppendCode(resource.Placeholder, "br", "[br/]")
	trg.Append("A")
	trg.AppendCode(resource.Opening, "b", "[b]")
	trg.Append("B")
	trg.AppendCode(resource.Closing, "b", "[/b]")
	trg.Append("C")
	if got := genericcontent.Format(trg); got != "<1/>A<2>B</2>C" {
		t.Fatalf("unexpected generic text before sync %q", got)
	}

	trg.SynchronizeCodes(src)
	if got := genericcontent.Format(trg); got != "<2/>A<1>B</1>C" {
		t.Errorf("expected %q, got %q", "<2/>A<1>B</1>C", got)
	}
	for _, tc := range trg.Codes() {
		sc := src.CodeByID(tc.ID, tc.TagType)
		if sc == nil || sc.Data != tc.Data {
			t.Errorf("code %q did not get its source id", tc.Data)
		}
	}
}

func TestSynchronizeCodes_ExtraCodesGetFreshIDs(t *testing.T) {
	src := makeFragment1()
	trg := resource.NewTextFragment("")
	trg.AppendCode(resource.Opening, "u", "[u]")
	trg.AppendCode(resource.Placeholder, "br", "[br/]")
	trg.Append("A")
	trg.AppendCode(resource.Closing, "u", "[/u]")
	trg.Append("B")
	trg.AppendCode(resource.Opening, "b", "[b]")
	trg.Append("C")
	trg.AppendCode(resource.Closing, "b", "[/b]")
	trg.Append("D")
	trg.AppendCode(resource.Placeholder, "br", "[br/]")

	trg.SynchronizeCodes(src)
	if got := genericcontent.Format(trg); got != "<3><2/>A</3>B<1>C</1>D<4/>" {
		t.Errorf("expected %q, got %q", "<3><2/>A</3>B<1>C</1>D<4/>", got)
	}
	if trg.LastCodeID() != 4 {
		t.Errorf("expected last id 4, got %d", trg.LastCodeID())
	}
}

func TestSynchronizeCodes_CrossTagFallback(t *testing.T) {
	src := resource.NewTextFragment("")
	src.AppendCode(resource.Placeholder, "x", "{x}")
	src.Append("a")
	trg := resource.NewTextFragment("a")
	trg.AppendCode(resource.Opening, "z", "<z>")
	trg.AppendCode(resource.Opening, "x", "{x}")
	trg.SynchronizeCodes(src)
	if trg.Code(1).ID != src.Code(0).ID {
		t.Errorf("expected cross tag-type match to take id %d, got %d", src.Code(0).ID, trg.Code(1).ID)
	}
	if trg.Code(0).ID == trg.Code(1).ID {
		t.Error("unmatched code must not reuse a matched id")
	}
}

func TestSynchronizeCodes_StableAgainstClone(t *testing.T) {
	frags := []*resource.TextFragment{makeFragment1()}
	dup := resource.NewTextFragment("")
	dup.AppendCode(resource.Placeholder, "br", "<br/>")
	dup.AppendCode(resource.Placeholder, "br", "<br/>")
	dup.AppendCode(resource.Opening, "i", "<i>")
	dup.Append("x")
	dup.AppendCode(resource.Closing, "i", "</i>")
	frags = append(frags, dup)

	for _, f := range frags {
		want := genericcontent.Format(f)
		clone := f.Clone()
		f.SynchronizeCodes(clone)
		if got := genericcontent.Format(f); got != want {
			t.Errorf("expected %q after self sync, got %q", want, got)
		}
	}
}

func TestSynchronizeCodes_NestedPairsStayNested(t *testing.T) {
	src := resource.NewTextFragment("")
	src.AppendCode(resource.Opening, "b", "<b>")
	src.Append("x")
	src.AppendCode(resource.Closing, "b", "</b>")
	src.AppendCode(resource.Opening, "b", "<b>")
	src.Append("y")
	src.AppendCode(resource.Closing, "b", "</b>")

	trg := resource.NewTextFragment("")
	trg.AppendCode(resource.Opening, "b", "<b>")
	trg.Append("x")
	trg.AppendCode(resource.Opening, "b", "<b>")
	trg.Append("y")
	trg.AppendCode(resource.Closing, "b", "</b>")
	trg.AppendCode(resource.Closing, "b", "</b>")

	trg.SynchronizeCodes(src)
	if got := genericcontent.Format(trg); got != "<1>x<2>y</2></1>" {
		t.Errorf("expected %q, got %q", "<1>x<2>y</2></1>", got)
	}
}
