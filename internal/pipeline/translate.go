package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/docloc/internal/locale"
	"github.com/dgallion1/docloc/internal/mt"
	"github.com/dgallion1/docloc/internal/resource"
)

// TranslateInput is the set of units to machine translate.
type TranslateInput struct {
	Document string
	Source   locale.ID
	Target   locale.ID
	Units    []*resource.TextUnit
}

// TranslateUnits sends the units to tr in batches, cfg.Concurrency at a
// time. Transient errors are retried with backoff. A batch that still
// fails leaves its units without a target; the failures are joined into
// the returned error. Only a cancelled context stops the other batches.
func TranslateUnits(ctx context.Context, tr mt.Translator, in TranslateInput, cfg MTConfig, stats *mt.LLMStats, log *slog.Logger) (mt.Result, error) {
	if log == nil {
		log = slog.Default()
	}
	batches := mt.Batches(in.Units, cfg.BatchTokens)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Concurrency, 1))

	var (
		mu     sync.Mutex
		total  mt.Result
		failed []error
	)
	for i, batch := range batches {
		g.Go(func() error {
			req := mt.NewRequest(in.Document, in.Source, in.Target, batch)
			var items []mt.Item
			err := withRetry(gctx, log, fmt.Sprintf("batch %d", i), func() error {
				var err error
				items, err = translateBatch(gctx, tr, req)
				return err
			})
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Error("translation batch failed", "batch", i, "units", len(batch), "error", err)
				if stats != nil {
					stats.AddUnits(in.Target, mt.Result{Missing: len(batch)})
				}
				mu.Lock()
				failed = append(failed, fmt.Errorf("batch %d: %w", i, err))
				total.Missing += len(batch)
				mu.Unlock()
				return nil
			}

			res := mt.Apply(batch, items, in.Target, log)
			if stats != nil {
				stats.AddUnits(in.Target, res)
			}
			mu.Lock()
			total.Translated += res.Translated
			total.Rejected += res.Rejected
			total.Missing += res.Missing
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return total, err
	}
	log.Info("translation complete",
		"batches", len(batches),
		"translated", total.Translated,
		"rejected", total.Rejected,
		"failed_batches", len(failed),
	)
	return total, errors.Join(failed...)
}

// translateBatch calls tr, turning a panic into a batch error.
func translateBatch(ctx context.Context, tr mt.Translator, req mt.Request) (items []mt.Item, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("translator panic: %v", r)
		}
	}()
	return tr.Translate(ctx, req)
}
