package search

import "math"

// Interpolate predicts the parameter whose encoding is target bytes, given
// two observations that straddle it. Size is modelled as exponential in the
// parameter, so the fit is linear in log(size). The second return value is
// false when the observations cannot support a prediction (non-increasing
// sizes, empty encodings or a degenerate parameter span).
func Interpolate(lo, hi Attempt, target int64) (int, bool) {
	if hi.Param <= lo.Param || lo.Bytes <= 0 || hi.Bytes <= lo.Bytes || target <= 0 {
		return 0, false
	}

	logLo := math.Log(float64(lo.Bytes))
	slope := (math.Log(float64(hi.Bytes)) - logLo) / float64(hi.Param-lo.Param)
	p := float64(lo.Param) + (math.Log(float64(target))-logLo)/slope
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, false
	}
	// Keep far-off predictions representable; callers reject anything outside
	// the bracket anyway.
	p = math.Max(float64(lo.Param-1), math.Min(float64(hi.Param+1), p))
	return int(math.Round(p)), true
}
