package processor

import (
	"sync"
	"time"
)

// Aggregator accumulates outcomes into a BatchReport. It is safe for
// concurrent use.
type Aggregator struct {
	mu        sync.Mutex
	spec      TargetSpec
	started   time.Time
	outcomes  []JobOutcome
	summary   Summary
	finalized bool
}

func NewAggregator(spec TargetSpec) *Aggregator {
	return &Aggregator{spec: spec, started: time.Now()}
}

func (a *Aggregator) Add(o JobOutcome) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.finalized {
		return ErrFinalized
	}

	a.outcomes = append(a.outcomes, o)
	s := &a.summary
	s.Total++
	switch o.Status {
	case StatusCopied:
		s.Copied++
	case StatusCompressed:
		s.Compressed++
		if !o.TargetMet {
			s.TargetMissed++
		}
	case StatusSkipped:
		s.Skipped++
	default:
		s.Failed++
	}
	if o.Succeeded() {
		s.Succeeded++
		s.BytesBefore += o.OriginalBytes
		s.BytesAfter += o.FinalBytes
	}
	return nil
}

// Finalize freezes the aggregator and returns the report. Any later Add or
// Finalize returns ErrFinalized.
func (a *Aggregator) Finalize(cancelled bool) (BatchReport, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.finalized {
		return BatchReport{}, ErrFinalized
	}
	a.finalized = true

	outcomes := make([]JobOutcome, len(a.outcomes))
	copy(outcomes, a.outcomes)
	return BatchReport{
		Spec:      a.spec,
		Outcomes:  outcomes,
		Summary:   a.summary,
		Started:   a.started,
		Finished:  time.Now(),
		Cancelled: cancelled,
	}, nil
}
