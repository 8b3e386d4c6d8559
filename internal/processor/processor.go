// Package processor runs batches of images through the target-size search.
//
// Run plans every entry up front (size check and output naming), hands the
// jobs to a worker pool and feeds the outcomes back to the caller in input
// order.
package processor

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
)

// Run processes entries with opts and returns the finalized report.
//
// Per-file failures are recorded on their outcome and never stop the batch.
// ctx is consulted between jobs only: a job that has started runs to
// completion, and the report is marked Cancelled when any entry was left
// unprocessed. opts.Control, when set, can pause dispatch and skip jobs.
// sink may be nil.
func Run(ctx context.Context, entries []Entry, opts Options, sink ProgressFunc) (BatchReport, error) {
	if err := opts.validate(); err != nil {
		return BatchReport{}, err
	}
	opts = opts.withDefaults()
	logger := opts.Logger

	agg := NewAggregator(opts.Spec)
	planned := planJobs(entries, opts)
	total := len(planned)

	logger.Info().
		Int("files", total).
		Int64("target", opts.Spec.TargetBytes).
		Str("format", string(opts.Spec.OutputFormat)).
		Int("workers", opts.Workers).
		Msg("batch started")

	jobCtx := logger.WithContext(context.WithoutCancel(ctx))

	jobs := make(chan job)
	results := make(chan JobOutcome)
	var dropped atomic.Int64

	var wg sync.WaitGroup
	wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go func() {
			defer wg.Done()
			worker(ctx, jobCtx, jobs, results, opts, &dropped)
		}()
	}

	var addErr error
	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)

		emit := func(o JobOutcome) {
			if err := agg.Add(o); err != nil && addErr == nil {
				addErr = err
			}
			if sink != nil {
				sink(o.Index, total, o)
			}
		}

		pending := make(map[int]JobOutcome)
		next := 0
		for res := range results {
			pending[res.Index] = res
			for {
				o, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				emit(o)
				next++
			}
		}

		// Skipped jobs leave gaps; what remains is still emitted in order.
		rest := make([]int, 0, len(pending))
		for idx := range pending {
			rest = append(rest, idx)
		}
		sort.Ints(rest)
		for _, idx := range rest {
			emit(pending[idx])
		}
	}()

	dispatched := 0
dispatch:
	for _, j := range planned {
		// Blocks while paused; jobs already handed out keep running.
		if opts.Control.wait(ctx) != nil {
			break
		}
		select {
		case jobs <- j:
			dispatched++
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)

	wg.Wait()
	close(results)
	<-collectorDone

	cancelled := dispatched < total || dropped.Load() > 0
	report, err := agg.Finalize(cancelled)
	if err != nil {
		return report, err
	}
	report.OutputDir = opts.OutputDir
	if addErr != nil {
		return report, addErr
	}

	logger.Info().
		Int("succeeded", report.Summary.Succeeded).
		Int("failed", report.Summary.Failed).
		Int("skipped", report.Summary.Skipped).
		Int("target_missed", report.Summary.TargetMissed).
		Bool("cancelled", report.Cancelled).
		Msg("batch finished")
	return report, nil
}

func worker(ctx, jobCtx context.Context, jobs <-chan job, results chan<- JobOutcome, opts Options, dropped *atomic.Int64) {
	for j := range jobs {
		if ctx.Err() != nil {
			dropped.Add(1)
			continue
		}
		results <- process(jobCtx, j, opts)
	}
}
