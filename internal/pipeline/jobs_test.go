package pipeline

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/dgallion1/docloc/internal/locale"
)

func TestContentHashHex_Consistency(t *testing.T) {
	data := []byte("hello world")
	h1 := ContentHashHex(data)
	h2 := ContentHashHex(data)
	if h1 != h2 {
		t.Errorf("expected identical hashes, got %q and %q", h1, h2)
	}
	sum := blake3.Sum256(data)
	if want := hex.EncodeToString(sum[:]); h1 != want {
		t.Errorf("expected hash %q, got %q", want, h1)
	}
}

func TestContentHashHex_DifferentInputs(t *testing.T) {
	h1 := ContentHashHex([]byte("aaa"))
	h2 := ContentHashHex([]byte("bbb"))
	if h1 == h2 {
		t.Error("expected different hashes for different inputs")
	}
}

func TestContentHashHex_EmptyInput(t *testing.T) {
	h := ContentHashHex([]byte{})
	// BLAKE3 of empty input is well-known.
	want := "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262"
	if h != want {
		t.Errorf("expected hash %q, got %q", want, h)
	}
}

func TestNewJob(t *testing.T) {
	opts := Options{Source: locale.MustParse("en"), Target: locale.MustParse("fr"), Segment: true}
	job := NewJob("page.html", []byte("<p>Hi</p>"), opts)

	if _, err := uuid.Parse(job.ID); err != nil {
		t.Errorf("expected a uuid job id, got %q", job.ID)
	}
	if job.Status != StatusQueued {
		t.Errorf("expected status %q, got %q", StatusQueued, job.Status)
	}
	if job.ContentHash != ContentHashHex([]byte("<p>Hi</p>")) {
		t.Errorf("unexpected content hash %q", job.ContentHash)
	}
	snap := job.Snapshot()
	if snap.Source != "en" || snap.Target != "fr" {
		t.Errorf("unexpected locales %q -> %q", snap.Source, snap.Target)
	}
	if NewJob("page.html", nil, opts).ID == job.ID {
		t.Error("expected distinct job ids")
	}
}

func TestJob_StateTransitions(t *testing.T) {
	job := &Job{
		ID:        "test-1",
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	transitions := []struct {
		status JobStatus
		phase  string
	}{
		{StatusParsing, "parsing document"},
		{StatusSegmenting, "splitting into segments"},
		{StatusLeveraging, "applying catalogue"},
		{StatusTranslating, "machine translation"},
		{StatusWriting, "writing output"},
		{StatusCompleted, "done"},
	}

	for _, tr := range transitions {
		before := job.UpdatedAt
		// Small sleep to ensure time difference is detectable.
		time.Sleep(time.Millisecond)
		job.SetStatus(tr.status, tr.phase)

		if job.Status != tr.status {
			t.Errorf("expected status %q, got %q", tr.status, job.Status)
		}
		if job.Phase != tr.phase {
			t.Errorf("expected phase %q, got %q", tr.phase, job.Phase)
		}
		if !job.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance after SetStatus(%q)", tr.status)
		}
	}
	if job.StartedAt.IsZero() || job.FinishedAt.Before(job.StartedAt) {
		t.Errorf("expected start and finish times, got %v and %v", job.StartedAt, job.FinishedAt)
	}
}

func TestJob_AddError(t *testing.T) {
	job := &Job{ID: "err-test", UpdatedAt: time.Now()}
	job.AddError("batch 3 failed")
	job.AddError("batch 7 failed")

	snap := job.Snapshot()
	if len(snap.Progress.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(snap.Progress.Errors))
	}
	if snap.Progress.Errors[0] != "batch 3 failed" {
		t.Errorf("expected first error %q, got %q", "batch 3 failed", snap.Progress.Errors[0])
	}
}

func TestJob_Counters(t *testing.T) {
	job := &Job{ID: "count-test", UpdatedAt: time.Now()}
	job.SetUnits(42, 60)
	job.SetLeveraged(10)
	job.SetPending(32)
	job.AddTranslated(20, 1)
	job.AddTranslated(10, 1)

	p := job.Snapshot().Progress
	if p.TotalUnits != 42 || p.Segments != 60 || p.UnitsLeveraged != 10 || p.UnitsPending != 32 {
		t.Errorf("unexpected progress %+v", p)
	}
	if p.UnitsTranslated != 30 || p.UnitsRejected != 2 {
		t.Errorf("expected 30 translated and 2 rejected, got %d and %d", p.UnitsTranslated, p.UnitsRejected)
	}
}

func TestJob_ResultReleasesInput(t *testing.T) {
	job := NewJob("a.txt", []byte("file content here"), Options{})
	if string(job.FileData()) != "file content here" {
		t.Errorf("expected file data, got %q", job.FileData())
	}
	job.SetResult("a.fr.txt", []byte("out"))
	if job.FileData() != nil {
		t.Error("expected input to be released")
	}
	name, data := job.Result()
	if name != "a.fr.txt" || string(data) != "out" {
		t.Errorf("unexpected result %q %q", name, data)
	}
	if job.Snapshot().ResultName != "a.fr.txt" {
		t.Error("expected result name in snapshot")
	}
}

func TestJob_SnapshotErrorsNotNil(t *testing.T) {
	// Snapshot should always return non-nil errors slice.
	job := &Job{ID: "snap-test", UpdatedAt: time.Now()}
	snap := job.Snapshot()
	if snap.Progress.Errors == nil {
		t.Error("expected non-nil errors slice in snapshot")
	}
	if len(snap.Progress.Errors) != 0 {
		t.Errorf("expected empty errors, got %d", len(snap.Progress.Errors))
	}
}

func TestJobStore_PutGet(t *testing.T) {
	store := NewJobStore(time.Hour)
	job := &Job{ID: "store-1", UpdatedAt: time.Now()}
	store.Put(job)

	got := store.Get("store-1")
	if got == nil {
		t.Fatal("expected to get job back")
	}
	if got.ID != "store-1" {
		t.Errorf("expected ID %q, got %q", "store-1", got.ID)
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 job, got %d", store.Len())
	}
}

func TestJobStore_GetMissing(t *testing.T) {
	store := NewJobStore(time.Hour)
	if store.Get("nonexistent") != nil {
		t.Error("expected nil for missing job")
	}
}

func TestJobStore_TTLCleanup(t *testing.T) {
	store := NewJobStore(50 * time.Millisecond)

	expired := &Job{ID: "old", UpdatedAt: time.Now()}
	store.Put(expired)

	// Wait for the TTL to pass.
	time.Sleep(100 * time.Millisecond)

	// Add a fresh job.
	fresh := &Job{ID: "new", UpdatedAt: time.Now()}
	store.Put(fresh)

	store.Cleanup()

	if store.Get("old") != nil {
		t.Error("expected expired job to be cleaned up")
	}
	if store.Get("new") == nil {
		t.Error("expected fresh job to survive cleanup")
	}
}

func TestJobStore_CleanupEmpty(t *testing.T) {
	store := NewJobStore(time.Hour)
	// Should not panic on empty store.
	store.Cleanup()
}
