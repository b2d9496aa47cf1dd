package pipeline

import (
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/dgallion1/docloc/internal/locale"
)

// JobStatus represents the state of a translation job.
type JobStatus string

const (
	StatusQueued      JobStatus = "queued"
	StatusParsing     JobStatus = "parsing"
	StatusSegmenting  JobStatus = "segmenting"
	StatusLeveraging  JobStatus = "leveraging"
	StatusTranslating JobStatus = "translating"
	StatusWriting     JobStatus = "writing"
	StatusCompleted   JobStatus = "completed"
	StatusFailed      JobStatus = "failed"
	StatusPartial     JobStatus = "partial"
)

// Done reports whether the status is final.
func (s JobStatus) Done() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusPartial
}

// Options selects what a job does besides parsing and writing.
type Options struct {
	Source  locale.ID
	Target  locale.ID
	Segment bool
	MT      bool
	// Catalog is PO data to leverage, if any.
	Catalog []byte
}

// Job tracks the state of a single document translation.
type Job struct {
	mu sync.Mutex

	ID string `json:"job_id"`

	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`

	// Internal: not serialized.
	opts       Options
	fileData   []byte
	result     []byte
	resultName string
	errors     []string
}

// Progress tracks processing progress.
type Progress struct {
	TotalUnits      int      `json:"total_units"`
	Segments        int      `json:"segments"`
	UnitsLeveraged  int      `json:"units_leveraged"`
	UnitsPending    int      `json:"units_pending"`
	UnitsTranslated int      `json:"units_translated"`
	UnitsRejected   int      `json:"units_rejected"`
	Errors          []string `json:"errors"`
}

// NewJob creates a queued job for a document.
func NewJob(filename string, data []byte, opts Options) *Job {
	now := time.Now()
	return &Job{
		ID:          uuid.NewString(),
		Status:      StatusQueued,
		Phase:       "queued",
		Filename:    filename,
		ContentHash: ContentHashHex(data),
		CreatedAt:   now,
		UpdatedAt:   now,
		opts:        opts,
		fileData:    data,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Len returns the number of jobs held.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		expired := now.Sub(job.UpdatedAt) > s.ttl
		job.mu.Unlock()
		if expired {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	now := time.Now()
	if j.StartedAt.IsZero() && status != StatusQueued {
		j.StartedAt = now
	}
	if status.Done() {
		j.FinishedAt = now
	}
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = now
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetUnits records the unit and segment counts.
func (j *Job) SetUnits(total, segments int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.TotalUnits = total
	j.Progress.Segments = segments
	j.UpdatedAt = time.Now()
}

// SetLeveraged records how many units a catalogue filled.
func (j *Job) SetLeveraged(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.UnitsLeveraged = n
	j.UpdatedAt = time.Now()
}

// SetPending records how many units go to machine translation.
func (j *Job) SetPending(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.UnitsPending = n
	j.UpdatedAt = time.Now()
}

// AddTranslated records machine translation counts.
func (j *Job) AddTranslated(translated, rejected int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.UnitsTranslated += translated
	j.Progress.UnitsRejected += rejected
	j.UpdatedAt = time.Now()
}

// Options returns the job options.
func (j *Job) Options() Options {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.opts
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// SetResult stores the written document and releases the input.
func (j *Job) SetResult(name string, data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = data
	j.resultName = name
	j.fileData = nil
	j.UpdatedAt = time.Now()
}

// Result returns the written document and its file name, or nil before
// the job ends.
func (j *Job) Result() (string, []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.resultName, j.result
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	Filename    string    `json:"filename"`
	Source      string    `json:"source"`
	Target      string    `json:"target"`
	ContentHash string    `json:"content_hash"`
	Progress    Progress  `json:"progress"`
	ResultName  string    `json:"result_name,omitempty"`
	DurationMs  int64     `json:"duration_ms,omitempty"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	p := j.Progress
	p.Errors = append([]string{}, j.errors...)
	var dur int64
	if !j.StartedAt.IsZero() && !j.FinishedAt.IsZero() {
		dur = j.FinishedAt.Sub(j.StartedAt).Milliseconds()
	}
	return JobSnapshot{
		ID:          j.ID,
		Status:      j.Status,
		Phase:       j.Phase,
		Filename:    j.Filename,
		Source:      j.opts.Source.String(),
		Target:      j.opts.Target.String(),
		ContentHash: j.ContentHash,
		Progress:    p,
		ResultName:  j.resultName,
		DurationMs:  dur,
	}
}

// ContentHashHex computes the BLAKE3 hash of content as a hex string.
func ContentHashHex(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])
}
