// Package search finds the encoder parameter that produces the largest output
// at or below a byte budget.
//
// Callers supply an Encoder closed over the image being compressed. The search
// only reasons in "higher parameter, larger output" terms; strategies that
// control size some other way normalize before handing in an Encoder.
package search

import (
	"errors"
	"fmt"
)

// ErrEncode wraps any failure returned by an Encoder during a search.
var ErrEncode = errors.New("search: encode failed")

// MinAttempts is the smallest attempt budget Run accepts: both range
// endpoints must be probed before a bracket exists.
const MinAttempts = 2

// Encoder encodes the image under search at param and returns the bytes.
type Encoder func(param int) ([]byte, error)

// LevelEncoder re-encodes at a fixed parameter with a secondary effort level.
type LevelEncoder func(level int) ([]byte, error)

// Attempt records one encode performed during a search.
type Attempt struct {
	Param int
	// Level is the secondary effort level, -1 when none was set.
	Level int
	Bytes int64
}

// Result is the outcome of a search.
type Result struct {
	Data      []byte
	Param     int
	Level     int
	Bytes     int64
	Attempts  int
	TargetMet bool
	Trace     []Attempt
}

// Run searches [lo, hi] for the largest parameter whose encoding fits in
// target bytes, using at most maxAttempts encodes.
//
// The high endpoint is probed first and returned as-is when it already fits.
// When even lo overshoots, the lo encoding is returned with TargetMet unset.
// Otherwise the bracket is narrowed with log-linear interpolation until it is
// one step wide or the attempt budget runs out.
func Run(encode Encoder, lo, hi int, target int64, maxAttempts int) (Result, error) {
	if lo > hi {
		return Result{}, fmt.Errorf("search: empty range [%d, %d]", lo, hi)
	}
	if target <= 0 {
		return Result{}, fmt.Errorf("search: target must be positive, got %d", target)
	}
	if maxAttempts < MinAttempts {
		return Result{}, fmt.Errorf("search: max attempts %d below minimum %d", maxAttempts, MinAttempts)
	}

	res := Result{Level: -1}
	probe := func(param int) (Attempt, []byte, error) {
		data, err := encode(param)
		if err != nil {
			return Attempt{}, nil, fmt.Errorf("%w at %d: %w", ErrEncode, param, err)
		}
		a := Attempt{Param: param, Level: -1, Bytes: int64(len(data))}
		res.Attempts++
		res.Trace = append(res.Trace, a)
		return a, data, nil
	}
	finish := func(a Attempt, data []byte, met bool) Result {
		res.Data = data
		res.Param = a.Param
		res.Bytes = a.Bytes
		res.TargetMet = met
		return res
	}

	upper, upperData, err := probe(hi)
	if err != nil {
		return Result{}, err
	}
	if upper.Bytes <= target {
		return finish(upper, upperData, true), nil
	}
	if lo == hi {
		return finish(upper, upperData, false), nil
	}

	lower, lowerData, err := probe(lo)
	if err != nil {
		return Result{}, err
	}
	if lower.Bytes > target {
		return finish(lower, lowerData, false), nil
	}

	tried := map[int]bool{lo: true, hi: true}
	for upper.Param-lower.Param > 1 && res.Attempts < maxAttempts {
		next := nextProbe(lower, upper, target, tried)
		tried[next] = true

		a, data, err := probe(next)
		if err != nil {
			return Result{}, err
		}
		if a.Bytes <= target {
			lower, lowerData = a, data
		} else {
			upper = a
		}
	}

	return finish(lower, lowerData, true), nil
}

// nextProbe picks the parameter to try inside the open bracket (lo, hi).
func nextProbe(lo, hi Attempt, target int64, tried map[int]bool) int {
	if p, ok := Interpolate(lo, hi, target); ok && p > lo.Param && p < hi.Param && !tried[p] {
		return p
	}
	return lo.Param + (hi.Param-lo.Param)/2
}

// Refine spends leftover attempts on a secondary effort knob at the winning
// parameter. Levels are tried in order; the first one that overshoots target
// stops refinement. Only encodings larger than the current best but still
// within target replace it. Refinement runs only while the best result is
// below threshold*target.
func Refine(res Result, encode LevelEncoder, levels []int, target int64, maxAttempts int, threshold float64) (Result, error) {
	if !res.TargetMet || threshold <= 0 || float64(res.Bytes) >= float64(target)*threshold {
		return res, nil
	}

	for _, level := range levels {
		if res.Attempts >= maxAttempts {
			break
		}
		data, err := encode(level)
		if err != nil {
			return Result{}, fmt.Errorf("%w at %d level %d: %w", ErrEncode, res.Param, level, err)
		}
		a := Attempt{Param: res.Param, Level: level, Bytes: int64(len(data))}
		res.Attempts++
		res.Trace = append(res.Trace, a)

		if a.Bytes > target {
			break
		}
		if a.Bytes > res.Bytes {
			res.Data = data
			res.Bytes = a.Bytes
			res.Level = level
		}
	}

	return res, nil
}
