package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/docloc/internal/config"
	"github.com/dgallion1/docloc/internal/filters"
	"github.com/dgallion1/docloc/internal/locale"
)

const frCatalog = `msgid ""
msgstr ""
"Language: fr\n"

msgid "Hello world."
msgstr "Bonjour le monde."
`

func testProcessor(tr *fakeTranslator) *Processor {
	p := &Processor{Log: slog.Default(), MT: MTConfig{Concurrency: 2}}
	if tr != nil {
		p.Translator = tr
	}
	return p
}

func TestWorker_ProcessLeverageAndMT(t *testing.T) {
	job := NewJob("notes.txt", []byte("Hello world.\n\nSecond paragraph. Another one.\n"), Options{
		Source:  locale.MustParse("en"),
		Target:  fr,
		Segment: true,
		MT:      true,
		Catalog: []byte(frCatalog),
	})
	NewWorker(testProcessor(&fakeTranslator{}), slog.Default()).Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected status %q, got %q (errors %v)", StatusCompleted, snap.Status, snap.Progress.Errors)
	}
	p := snap.Progress
	if p.TotalUnits != 2 || p.Segments != 3 || p.UnitsLeveraged != 1 || p.UnitsPending != 1 || p.UnitsTranslated != 1 {
		t.Errorf("unexpected progress %+v", p)
	}
	name, out := job.Result()
	if name != "notes.fr.txt" {
		t.Errorf("expected %q, got %q", "notes.fr.txt", name)
	}
	want := "Bonjour le monde.\n\n[fr] Second paragraph. Another one.\n"
	if string(out) != want {
		t.Errorf("expected %q, got %q", want, out)
	}
}

func TestWorker_PartialWhenBatchFails(t *testing.T) {
	tr := &fakeTranslator{failFirst: 1, err: errors.New("bad request")}
	job := NewJob("notes.txt", []byte("Hello.\n"), Options{Target: fr, MT: true})
	NewWorker(testProcessor(tr), slog.Default()).Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusPartial {
		t.Fatalf("expected status %q, got %q", StatusPartial, snap.Status)
	}
	if len(snap.Progress.Errors) != 1 {
		t.Errorf("expected one recorded error, got %v", snap.Progress.Errors)
	}
	if _, out := job.Result(); string(out) != "Hello.\n" {
		t.Errorf("expected source fallback, got %q", out)
	}
}

func TestWorker_Failures(t *testing.T) {
	tests := []struct {
		name  string
		job   *Job
		phase string
	}{
		{"unsupported format", NewJob("data.bin", []byte("x"), Options{Target: fr}), "parsing"},
		{"bad catalogue", NewJob("a.txt", []byte("x"), Options{Target: fr, Catalog: []byte("msgstr \"x\"")}), "parsing"},
		{"mt not configured", NewJob("a.txt", []byte("x"), Options{Target: fr, MT: true}), "translating"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			NewWorker(testProcessor(nil), slog.Default()).Process(context.Background(), tt.job)
			snap := tt.job.Snapshot()
			if snap.Status != StatusFailed {
				t.Errorf("expected status %q, got %q", StatusFailed, snap.Status)
			}
			if snap.Phase != tt.phase {
				t.Errorf("expected phase %q, got %q", tt.phase, snap.Phase)
			}
			if len(snap.Progress.Errors) == 0 {
				t.Error("expected an error to be recorded")
			}
		})
	}
}

func TestWorker_MarkerRunesInInput(t *testing.T) {
	input := "Icon \uE101Z here. Next \uE104 one.\n"
	job := NewJob("icons.txt", []byte(input), Options{Target: fr, Segment: true})
	NewWorker(testProcessor(nil), slog.Default()).Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected status %q, got %q (errors %v)", StatusCompleted, snap.Status, snap.Progress.Errors)
	}
	if snap.Progress.Segments != 2 {
		t.Errorf("expected 2 segments, got %d", snap.Progress.Segments)
	}
	if _, out := job.Result(); string(out) != input {
		t.Errorf("expected %q, got %q", input, out)
	}
}

func TestWorker_PanicFailsJob(t *testing.T) {
	job := NewJob("a.txt", []byte("Hi."), Options{Target: fr})
	NewWorker(nil, slog.Default()).Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed {
		t.Errorf("expected status %q, got %q", StatusFailed, snap.Status)
	}
	if len(snap.Progress.Errors) != 1 || !strings.HasPrefix(snap.Progress.Errors[0], "internal error") {
		t.Errorf("expected an internal error, got %v", snap.Progress.Errors)
	}
}

func TestDocument_OutputName(t *testing.T) {
	tests := []struct {
		doc  *Document
		loc  locale.ID
		want string
	}{
		{&Document{Name: "dir/page.html", Filter: &filters.HTMLFilter{}}, fr, "page.fr.html"},
		{&Document{Name: "scan.pdf", Filter: &filters.PDFFilter{}}, fr, "scan.fr.po"},
		{&Document{Name: "notes.txt", Filter: &filters.PlainTextFilter{}}, locale.Empty, "notes.out.txt"},
	}
	for _, tt := range tests {
		if got := tt.doc.OutputName(tt.loc); got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, got)
		}
	}
}

func TestDocument_WriteExtractionOnly(t *testing.T) {
	doc := &Document{Name: "scan.pdf", Filter: &filters.PDFFilter{}}
	if _, err := doc.Write(fr); !errors.Is(err, ErrExtractionOnly) {
		t.Errorf("expected ErrExtractionOnly, got %v", err)
	}
}

func TestDocument_ExtractPO(t *testing.T) {
	doc, err := testProcessor(nil).Open("page.html", []byte("<p>Hello <b>world</b></p>"), locale.MustParse("en"), fr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := doc.ExtractPO(fr, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(out), "msgid \"Hello <1>world</1>\"") {
		t.Errorf("expected the generic source in the catalogue:\n%s", out)
	}
}

func TestOrchestrator_SubmitAndRun(t *testing.T) {
	cfg := config.Defaults()
	cfg.WorkerCount = 1
	cfg.MaxQueueSize = 1
	o := NewOrchestrator(cfg, nil, nil, slog.Default())

	if err := o.Submit(NewJob("a.txt", []byte("Hi."), Options{Target: fr, MT: true})); err == nil {
		t.Error("expected error when machine translation is disabled")
	}

	job := NewJob("a.txt", []byte("Hi."), Options{Target: fr})
	if err := o.Submit(job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := o.Submit(NewJob("b.txt", []byte("Hi."), Options{})); err == nil || !strings.Contains(err.Error(), "full") {
		t.Errorf("expected queue full error, got %v", err)
	}

	o.Start(context.Background())
	defer o.Stop()
	deadline := time.Now().Add(2 * time.Second)
	for !o.GetJob(job.ID).Snapshot().Status.Done() {
		if time.Now().After(deadline) {
			t.Fatal("job did not finish")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, out := job.Result(); string(out) != "Hi." {
		t.Errorf("expected %q, got %q", "Hi.", out)
	}
	if o.JobCount() != 2 {
		t.Errorf("expected 2 jobs held, got %d", o.JobCount())
	}
}
