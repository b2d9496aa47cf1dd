package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/dgallion1/docloc/internal/leverage"
)

// Worker processes a single document job.
type Worker struct {
	proc *Processor
	log  *slog.Logger
}

func NewWorker(proc *Processor, log *slog.Logger) *Worker {
	return &Worker{proc: proc, log: log}
}

// Process runs the translation pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)
	defer func() {
		if r := recover(); r != nil {
			log.Error("job panicked", "panic", r, "stack", string(debug.Stack()))
			job.AddError(fmt.Sprintf("internal error: %v", r))
			job.SetStatus(StatusFailed, job.Snapshot().Phase)
		}
	}()
	opts := job.Options()

	var cat *leverage.Catalog
	if len(opts.Catalog) > 0 {
		var err error
		cat, err = leverage.ParseCatalog(opts.Catalog)
		if err != nil {
			log.Error("catalogue rejected", "error", err)
			job.AddError(fmt.Sprintf("catalogue: %s", err))
			job.SetStatus(StatusFailed, "parsing")
			return
		}
	}

	doc, rep, err := w.proc.Process(ctx, Request{
		Name:    job.Filename,
		Data:    job.FileData(),
		Source:  opts.Source,
		Target:  opts.Target,
		Segment: opts.Segment,
		MT:      opts.MT,
		Catalog: cat,
	}, func(status JobStatus, r Report) {
		job.SetUnits(r.Units, r.Segments)
		job.SetLeveraged(r.Leveraged)
		job.SetPending(r.Pending)
		job.SetStatus(status, string(status))
		log.Debug("phase started", "phase", string(status), "units", r.Units)
	})
	if err != nil {
		log.Error("processing failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, job.Snapshot().Phase)
		return
	}
	job.SetUnits(rep.Units, rep.Segments)
	job.SetLeveraged(rep.Leveraged)
	job.SetPending(rep.Pending)
	job.AddTranslated(rep.Translated, rep.Rejected)
	for _, e := range rep.Errors {
		job.AddError(e)
	}

	// Phase 5: Write
	job.SetStatus(StatusWriting, "writing")
	out, err := doc.Write(opts.Target)
	if errors.Is(err, ErrExtractionOnly) {
		log.Info("format is extraction only, writing a catalogue")
		out, err = doc.ExtractPO(opts.Target, log)
	}
	if err != nil {
		log.Error("write failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "writing")
		return
	}
	job.SetResult(doc.OutputName(opts.Target), out)

	log.Info("job complete",
		"units", rep.Units,
		"leveraged", rep.Leveraged,
		"translated", rep.Translated,
		"rejected", rep.Rejected,
		"failed", rep.Failed,
		"bytes", len(out),
	)
	if rep.Failed > 0 {
		job.SetStatus(StatusPartial, "done")
	} else {
		job.SetStatus(StatusCompleted, "done")
	}
}
