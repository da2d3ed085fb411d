// Package classify maps percentage deltas onto status buckets against
// a configured regression threshold.
package classify

import (
	"math"

	"benchdiff/internal/model"
)

// Status is the bucket assigned to one delta percentage.
type Status int

const (
	// Unknown covers non-finite deltas: a side was missing or
	// errored, or the base total was zero.
	Unknown Status = iota
	Regression
	Improved
	SlightRegression
	Neutral
)

func (s Status) String() string {
	switch s {
	case Unknown:
		return "unknown"
	case Regression:
		return "regression"
	case Improved:
		return "improved"
	case SlightRegression:
		return "slight regression"
	default:
		return "neutral"
	}
}

// Emoji returns the report marker for the status.
func (s Status) Emoji() string {
	switch s {
	case Unknown:
		return "⚪"
	case Regression:
		return "🔴"
	case Improved:
		return "🟢"
	case SlightRegression:
		return "🟡"
	default:
		return "⚪"
	}
}

// Classify buckets deltaPct against threshold. Pure and total. The
// boundaries -0.5 and 0.5 are neutral; anything in (0.5, threshold]
// is a slight regression and never counts as a regression.
func Classify(deltaPct model.Pct, threshold float64) Status {
	f := float64(deltaPct)
	switch {
	case math.IsNaN(f) || math.IsInf(f, 0):
		return Unknown
	case f > threshold:
		return Regression
	case f < -0.5:
		return Improved
	case f > 0.5:
		return SlightRegression
	default:
		return Neutral
	}
}
