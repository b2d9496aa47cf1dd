package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/docloc/internal/config"
	"github.com/dgallion1/docloc/internal/mt"
	"github.com/dgallion1/docloc/internal/segmenter"
)

// Orchestrator manages the document translation pipeline.
type Orchestrator struct {
	jobs  *JobStore
	queue chan *Job
	proc  *Processor
	log   *slog.Logger
	cfg   config.Config

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline. tr may be nil when machine
// translation is disabled.
func NewOrchestrator(cfg config.Config, tr mt.Translator, stats *mt.LLMStats, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:  NewJobStore(cfg.JobTTL),
		queue: make(chan *Job, cfg.MaxQueueSize),
		proc:  NewProcessor(cfg, tr, stats, log),
		log:   log,
		cfg:   cfg,
	}
}

// NewProcessor builds a processor from the configuration.
func NewProcessor(cfg config.Config, tr mt.Translator, stats *mt.LLMStats, log *slog.Logger) *Processor {
	return &Processor{
		Log:                  log,
		PDFFallbackPdftotext: cfg.PDFFallbackPdftotext,
		Segmenter:            segmenter.Config{MinSegmentRunes: cfg.MinSegmentRunes},
		Translator:           tr,
		MT: MTConfig{
			BatchTokens: cfg.MTBatchTokens,
			Concurrency: cfg.MaxConcurrentMT,
		},
		Stats: stats,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.proc, o.log)
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	if job.Options().MT && o.proc.Translator == nil {
		return fmt.Errorf("machine translation is not enabled")
	}
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// JobCount returns the number of jobs still held.
func (o *Orchestrator) JobCount() int {
	return o.jobs.Len()
}

// Processor returns the processor for synchronous use by API handlers.
func (o *Orchestrator) Processor() *Processor {
	return o.proc
}
