package filters

import (
	"errors"
	"testing"

	"github.com/dgallion1/docloc/internal/event"
	"github.com/dgallion1/docloc/internal/resource"
)

func newBuilder() *EventBuilder {
	b := NewEventBuilder("doc", en, "text/plain")
	b.StartDocument(&resource.StartDocument{Name: "doc.txt"})
	return b
}

func isIllegal(err error) bool { return errors.Is(err, resource.ErrIllegalOperation) }

func TestEventBuilder_NestedUnitBecomesReferent(t *testing.T) {
	b := newBuilder()
	outer := b.StartTextUnit("<p>")
	if err := b.AddText("Before "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	inner := b.StartTextUnit("<note>")
	if err := b.AddText("inside"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := b.EndTextUnit("</note>"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.AddText(" after"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := b.EndTextUnit("</p>"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	events, err := b.Finish("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !inner.IsReferent || inner.ReferenceCount != 1 {
		t.Errorf("expected a referent used once, got %+v", inner.BaseResource)
	}
	c := outer.Source.Code(0)
	if c == nil || c.Type != resource.TypeReference || c.Data != "[#$"+inner.ID+"]" || !c.HasReference {
		t.Errorf("unexpected reference code %+v", c)
	}
	units := event.TextUnits(events)
	if len(units) != 2 || units[0] != inner || units[1] != outer {
		t.Errorf("expected the referent before its parent, got %v", events)
	}
}

func TestEventBuilder_EmptyAndBlankUnits(t *testing.T) {
	b := newBuilder()
	b.StartTextUnit("<p>")
	tu, err := b.EndTextUnit("</p>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tu != nil {
		t.Error("an empty unit must become structure")
	}

	b.StartTextUnit("<p>")
	b.AddText("   ")
	tu, err = b.EndTextUnit("</p>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tu == nil || tu.Translatable {
		t.Errorf("expected an untranslatable unit, got %+v", tu)
	}

	events, err := b.Finish("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if events[1].Kind != event.DocumentPart || events[1].DocumentPart.Skeleton.String() != "<p></p>" {
		t.Errorf("expected the empty unit in a document part, got %v", events[1])
	}
}

func TestEventBuilder_IllegalOperations(t *testing.T) {
	b := newBuilder()
	if err := b.AddText("x"); !isIllegal(err) {
		t.Errorf("add text without unit: got %v", err)
	}
	if _, err := b.AddPlaceholder("br", "<br>"); !isIllegal(err) {
		t.Errorf("add code without unit: got %v", err)
	}
	if _, err := b.EndTextUnit(""); !isIllegal(err) {
		t.Errorf("end unit without marker: got %v", err)
	}
	if err := b.EndGroup(""); !isIllegal(err) {
		t.Errorf("end group without marker: got %v", err)
	}

	b.StartTextUnit("")
	if _, err := b.EndCode("b", "</b>"); !isIllegal(err) {
		t.Errorf("end code never started: got %v", err)
	}
	if err := b.AddSkeleton("<x>"); !isIllegal(err) {
		t.Errorf("skeleton inside unit: got %v", err)
	}
	if _, err := b.StartGroup("<g>", "g"); !isIllegal(err) {
		t.Errorf("group inside unit: got %v", err)
	}
	if _, err := b.Finish(""); !isIllegal(err) {
		t.Errorf("finish with open unit: got %v", err)
	}
}

func TestEventBuilder_StrayEndMarkersStayInSkeleton(t *testing.T) {
	b := newBuilder()
	if _, err := b.EndTextUnit("</p>"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.EndGroup("</div>"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	events, err := b.Finish("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := events[1].DocumentPart.Skeleton.String(); got != "</p></div>" {
		t.Errorf("expected %q, got %q", "</p></div>", got)
	}
}

func TestEventBuilder_Groups(t *testing.T) {
	b := newBuilder()
	outer, err := b.StartGroup("<ul>", "list")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	inner, err := b.StartGroup("<li>", "item")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.ParentID != outer.ID {
		t.Errorf("expected parent %q, got %q", outer.ID, inner.ParentID)
	}
	if err := b.EndGroup("</li>"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := b.Finish(""); !isIllegal(err) {
		t.Errorf("finish with open group: got %v", err)
	}
	if err := b.EndGroup("</ul>"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	events, err := b.Finish("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var kinds []event.Kind
	for _, ev := range events {
		kinds = append(kinds, ev.Kind)
	}
	want := []event.Kind{event.StartDocument, event.StartGroup, event.StartGroup, event.EndGroup, event.EndGroup, event.EndDocument}
	if len(kinds) != len(want) {
		t.Fatalf("expected %v, got %v", want, kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("event %d: expected %v, got %v", i, want[i], kinds[i])
		}
	}
}
