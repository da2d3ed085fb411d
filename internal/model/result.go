package model

import (
	"bytes"
	"math"
	"strconv"
)

// Pct is a percentage value that survives JSON round-trips even when
// non-finite. encoding/json refuses NaN and Inf, so any non-finite
// value is serialized as null and read back as NaN. Classification
// only distinguishes finite from non-finite, so nothing is lost.
type Pct float64

// IsFinite reports whether the value can participate in averages.
func (p Pct) IsFinite() bool {
	f := float64(p)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (p Pct) MarshalJSON() ([]byte, error) {
	if !p.IsFinite() {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(float64(p), 'g', -1, 64)), nil
}

func (p *Pct) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*p = Pct(math.NaN())
		return nil
	}
	f, err := strconv.ParseFloat(string(bytes.TrimSpace(data)), 64)
	if err != nil {
		return err
	}
	*p = Pct(f)
	return nil
}

// Unknown is the sentinel for a delta that cannot be computed.
func Unknown() Pct {
	return Pct(math.NaN())
}

// Metric is a single profiler cost value keyed by its normalized
// artifact name.
type Metric struct {
	Metric string `json:"metric"`
	Value  int64  `json:"value"`
}

// RunOutcome captures one side (head or base) of a differential run.
// Exactly one of the three states holds: ok (neither flag set),
// missing, or error.
type RunOutcome struct {
	Total   int64    `json:"total"`
	Metrics []Metric `json:"metrics"`

	Missing       bool   `json:"missing,omitempty"`
	MissingReason string `json:"missing_reason,omitempty"`

	Error       bool   `json:"error,omitempty"`
	ErrorCode   int    `json:"error_code,omitempty"`
	ErrorReason string `json:"error_reason,omitempty"`
	ErrorOutput string `json:"error_output,omitempty"`
}

// OK reports whether the side produced usable metrics.
func (o RunOutcome) OK() bool {
	return !o.Missing && !o.Error
}

// ComparisonResult is the per-case artifact written by the runner and
// consumed by the aggregator. Immutable once composed.
type ComparisonResult struct {
	BenchmarkName string `json:"benchmark_name"`
	FeatureName   string `json:"feature_name"`
	Command       string `json:"command"`

	BaseTotal int64 `json:"base_total"`
	HeadTotal int64 `json:"head_total"`
	Delta     int64 `json:"delta"`
	DeltaPct  Pct   `json:"delta_pct"`

	HeadMetrics []Metric `json:"head_metrics"`
	BaseMetrics []Metric `json:"base_metrics"`

	HeadMissing       bool   `json:"head_missing"`
	BaseMissing       bool   `json:"base_missing"`
	HeadMissingReason string `json:"head_missing_reason,omitempty"`
	BaseMissingReason string `json:"base_missing_reason,omitempty"`

	HeadError       bool   `json:"head_error"`
	BaseError       bool   `json:"base_error"`
	HeadErrorCode   int    `json:"head_error_code,omitempty"`
	BaseErrorCode   int    `json:"base_error_code,omitempty"`
	HeadErrorReason string `json:"head_error_reason,omitempty"`
	BaseErrorReason string `json:"base_error_reason,omitempty"`
	HeadErrorOutput string `json:"head_error_output,omitempty"`
	BaseErrorOutput string `json:"base_error_output,omitempty"`
}

// Skipped reports whether the case is excluded from numeric
// aggregates because a side was missing.
func (r ComparisonResult) Skipped() bool {
	return r.HeadMissing || r.BaseMissing
}

// Errored reports whether either side failed for a reason other than
// a missing target.
func (r ComparisonResult) Errored() bool {
	return r.HeadError || r.BaseError
}

// Compose builds a ComparisonResult from both sides of a run. Deltas
// are only computed when both sides produced metrics; a zero base
// total yields 0% when the head is also zero and +Inf otherwise,
// which downstream classification reports as unknown.
func Compose(benchmarkName, featureName, command string, head, base RunOutcome) ComparisonResult {
	r := ComparisonResult{
		BenchmarkName: benchmarkName,
		FeatureName:   featureName,
		Command:       command,
		BaseTotal:     base.Total,
		HeadTotal:     head.Total,
		HeadMetrics:   head.Metrics,
		BaseMetrics:   base.Metrics,

		HeadMissing:       head.Missing,
		BaseMissing:       base.Missing,
		HeadMissingReason: head.MissingReason,
		BaseMissingReason: base.MissingReason,

		HeadError:       head.Error,
		BaseError:       base.Error,
		HeadErrorCode:   head.ErrorCode,
		BaseErrorCode:   base.ErrorCode,
		HeadErrorReason: head.ErrorReason,
		BaseErrorReason: base.ErrorReason,
		HeadErrorOutput: head.ErrorOutput,
		BaseErrorOutput: base.ErrorOutput,
	}

	if !head.OK() || !base.OK() {
		r.Delta = 0
		r.DeltaPct = Unknown()
		return r
	}

	r.Delta = head.Total - base.Total
	r.DeltaPct = DeltaPct(base.Total, head.Total)
	return r
}

// DeltaPct computes the percentage change from base to head.
func DeltaPct(base, head int64) Pct {
	if base == 0 {
		if head == 0 {
			return 0
		}
		return Pct(math.Inf(1))
	}
	return Pct(float64(head-base) / float64(base) * 100.0)
}
