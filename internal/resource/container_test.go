package resource_test

import (
	"errors"
	"testing"

	"github.com/dgallion1/docloc/internal/genericcontent"
	"github.com/dgallion1/docloc/internal/resource"
)

const segText = "[seg1][seg2] [seg3]"

func TestTextContainer_CreateSegmentOneByOne(t *testing.T) {
	tc := resource.NewTextContainer(segText)
	for _, r := range [][2]int{{0, 6}, {2, 8}, {5, 11}} {
		if _, err := tc.CreateSegment(r[0], r[1]); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if tc.SegmentCount() != 3 {
		t.Fatalf("expected 3 segments, got %d", tc.SegmentCount())
	}
	if tc.Len() != 7 {
		t.Errorf("expected coded length 7, got %d", tc.Len())
	}
	if tc.String() != segText {
		t.Errorf("expected %q, got %q", segText, tc.String())
	}
	for i, want := range []string{"[seg1]", "[seg2]", "[seg3]"} {
		seg := tc.Segment(i)
		if seg.Content.String() != want {
			t.Errorf("segment %d: expected %q, got %q", i, want, seg.Content.String())
		}
		if seg.ID != string(rune('0'+i)) {
			t.Errorf("segment %d: unexpected id %q", i, seg.ID)
		}
	}
}

func TestTextContainer_CreateSegments(t *testing.T) {
	tc := resource.NewTextContainer(segText)
	err := tc.CreateSegments([]resource.Range{{Start: 13, End: 19}, {Start: 0, End: 6}, {Start: 6, End: 12}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tc.SegmentCount() != 3 {
		t.Fatalf("expected 3 segments, got %d", tc.SegmentCount())
	}
	if tc.Segment(2).Content.String() != "[seg3]" {
		t.Errorf("unexpected third segment %q", tc.Segment(2).Content.String())
	}
	if tc.String() != segText {
		t.Errorf("expected %q, got %q", segText, tc.String())
	}
}

func TestTextContainer_CreateSegmentsRejectsOverlap(t *testing.T) {
	tc := resource.NewTextContainer(segText)
	err := tc.CreateSegments([]resource.Range{{Start: 0, End: 6}, {Start: 5, End: 12}})
	if !errors.Is(err, resource.ErrInvalidPosition) {
		t.Errorf("expected ErrInvalidPosition, got %v", err)
	}
	if tc.HasSegments() {
		t.Error("a failed call must not leave segments behind")
	}
}

func TestTextContainer_MergeInAnyOrder(t *testing.T) {
	orders := [][]int{{0, 0, 0}, {2, 1, 0}, {1, 1, 0}, {1, 0, 0}}
	for _, order := range orders {
		tc := resource.NewTextContainer(segText)
		_ = tc.CreateSegments([]resource.Range{{Start: 0, End: 6}, {Start: 6, End: 12}, {Start: 13, End: 19}})
		for _, i := range order {
			if err := tc.MergeSegment(i); err != nil {
				t.Fatalf("merge %d in %v: unexpected error: %v", i, order, err)
			}
			if tc.String() != segText {
				t.Errorf("order %v: expected %q, got %q", order, segText, tc.String())
			}
		}
		if tc.HasSegments() {
			t.Errorf("order %v: expected no segments left", order)
		}
		if tc.CodedText() != segText {
			t.Errorf("order %v: coded text not restored: %q", order, tc.CodedText())
		}
	}
}

func TestTextContainer_SegmentsKeepCodes(t *testing.T) {
	tc := resource.NewTextContainerFrom(makeFragment1())
	tc.Append(" Next one.")
	if _, err := tc.CreateSegment(0, 9); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tc.HasCode() {
		t.Error("codes should have moved into the segment")
	}
	if got := genericcontent.Format(tc.Segment(0).Content); got != "<1>A<2/>B</1>C" {
		t.Errorf("unexpected segment content %q", got)
	}
	if _, err := tc.CreateSegment(1, 3); !errors.Is(err, resource.ErrInvalidPosition) {
		t.Errorf("expected error bisecting a segment marker, got %v", err)
	}
	whole := tc.Unsegmented()
	if got := genericcontent.Format(whole); got != "<1>A<2/>B</1>C Next one." {
		t.Errorf("unexpected unsegmented content %q", got)
	}
	tc.MergeAllSegments()
	if got := genericcontent.Format(tc.Content()); got != "<1>A<2/>B</1>C Next one." {
		t.Errorf("unexpected merged content %q", got)
	}
}

func TestTextContainer_JoinWithNext(t *testing.T) {
	tc := resource.NewTextContainer(segText)
	_ = tc.CreateSegments([]resource.Range{{Start: 0, End: 6}, {Start: 6, End: 12}, {Start: 13, End: 19}})
	if err := tc.JoinWithNext(1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tc.SegmentCount() != 2 {
		t.Fatalf("expected 2 segments, got %d", tc.SegmentCount())
	}
	if got := tc.Segment(1).Content.String(); got != "[seg2] [seg3]" {
		t.Errorf("expected joined segment, got %q", got)
	}
	if tc.String() != segText {
		t.Errorf("expected %q, got %q", segText, tc.String())
	}
	if err := tc.JoinWithNext(1); !errors.Is(err, resource.ErrIllegalOperation) {
		t.Errorf("expected ErrIllegalOperation, got %v", err)
	}
}

func TestTextContainer_Properties(t *testing.T) {
	tc := resource.NewTextContainer("text")
	if tc.Properties.Get("name") != nil {
		t.Error("expected no property")
	}
	p := resource.NewProperty("name", "value", true)
	tu := resource.NewTextUnit("tu1", "text")
	tu.SetSourceProperty(p)
	got := tu.SourceProperty("name")
	if got == nil || got.Value != "value" || !got.ReadOnly {
		t.Errorf("unexpected property %+v", got)
	}
	if names := tu.Source.Properties.Names(); len(names) != 1 || names[0] != "name" {
		t.Errorf("unexpected names %v", names)
	}
}
