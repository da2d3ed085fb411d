// Package report groups comparison results, folds them into the
// carried history, and renders the cumulative markdown report.
package report

import (
	"sort"
	"time"

	"benchdiff/internal/classify"
	"benchdiff/internal/model"
)

// Meta identifies the run being aggregated.
type Meta struct {
	Commit string
	RunAt  time.Time
	PR     string
}

// Group is the per-feature-set summary. Skipped holds the results
// excluded from tallies and averages because a side was missing.
type Group struct {
	Feature string
	Tally   Tally
	Counted []model.ComparisonResult
	Skipped []model.ComparisonResult

	AvgBenchDeltaPct  model.Pct
	AvgMetricDeltaPct model.Pct
}

// Report is the immutable aggregation output.
type Report struct {
	Threshold float64
	Groups    []Group
	Markdown  string
	Summary   Summary

	// AnyError mirrors whether any case ended in an execution error,
	// which decides the run's overall exit status.
	AnyError bool
}

// meanPct averages the finite values only. An empty set yields the
// unknown sentinel, never a computed zero.
func meanPct(values []model.Pct) model.Pct {
	var sum float64
	var n int
	for _, v := range values {
		if v.IsFinite() {
			sum += float64(v)
			n++
		}
	}
	if n == 0 {
		return model.Unknown()
	}
	return model.Pct(sum / float64(n))
}

// metricDeltas computes per-metric percentage deltas across the union
// of base and head metric names.
func metricDeltas(r model.ComparisonResult) []model.Pct {
	base := make(map[string]int64, len(r.BaseMetrics))
	for _, m := range r.BaseMetrics {
		base[m.Metric] = m.Value
	}
	head := make(map[string]int64, len(r.HeadMetrics))
	for _, m := range r.HeadMetrics {
		head[m.Metric] = m.Value
	}

	names := make(map[string]struct{}, len(base)+len(head))
	for name := range base {
		names[name] = struct{}{}
	}
	for name := range head {
		names[name] = struct{}{}
	}

	deltas := make([]model.Pct, 0, len(names))
	for name := range names {
		deltas = append(deltas, model.DeltaPct(base[name], head[name]))
	}
	return deltas
}

// Aggregate computes per-group and global summaries, merges the prior
// history, and renders the report.
func Aggregate(results []model.ComparisonResult, threshold float64, meta Meta, prior []HistoryEntry, maxHistory int) Report {
	grouped := make(map[string][]model.ComparisonResult)
	for _, r := range results {
		grouped[r.FeatureName] = append(grouped[r.FeatureName], r)
	}

	features := make([]string, 0, len(grouped))
	for feature := range grouped {
		features = append(features, feature)
	}
	sort.Strings(features)

	var (
		groups      []Group
		global      Tally
		benchDeltas []model.Pct
		metricAll   []model.Pct
		anyError    bool
	)

	for _, feature := range features {
		entries := grouped[feature]
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].BenchmarkName < entries[j].BenchmarkName
		})

		group := Group{Feature: feature}
		var groupBench, groupMetric []model.Pct
		for _, r := range entries {
			if r.Errored() {
				anyError = true
			}
			if r.Skipped() {
				group.Skipped = append(group.Skipped, r)
				continue
			}
			group.Counted = append(group.Counted, r)

			switch classify.Classify(r.DeltaPct, threshold) {
			case classify.Regression:
				group.Tally.Regressions++
			case classify.Improved:
				group.Tally.Improved++
			default:
				// Slight regressions and unknowns land in the
				// neutral bucket for tally purposes.
				group.Tally.Neutral++
			}

			groupBench = append(groupBench, r.DeltaPct)
			groupMetric = append(groupMetric, metricDeltas(r)...)
		}

		group.AvgBenchDeltaPct = meanPct(groupBench)
		group.AvgMetricDeltaPct = meanPct(groupMetric)

		global.Improved += group.Tally.Improved
		global.Regressions += group.Tally.Regressions
		global.Neutral += group.Tally.Neutral
		benchDeltas = append(benchDeltas, groupBench...)
		metricAll = append(metricAll, groupMetric...)

		groups = append(groups, group)
	}

	entry := HistoryEntry{
		Commit:            meta.Commit,
		RunAt:             meta.RunAt.UTC().Format(time.RFC3339),
		Summary:           global,
		AvgBenchDeltaPct:  meanPct(benchDeltas),
		AvgMetricDeltaPct: meanPct(metricAll),
		HasRegressions:    global.Regressions > 0,
	}
	history := MergeHistory(entry, prior, maxHistory)

	rep := Report{
		Threshold: threshold,
		Groups:    groups,
		AnyError:  anyError,
		Summary: Summary{
			HasRegressions: entry.HasRegressions,
			Count:          len(results),
			Latest:         entry,
			History:        history,
		},
	}
	rep.Markdown = renderMarkdown(rep, results, meta)
	return rep
}
