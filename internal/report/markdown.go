package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"benchdiff/internal/classify"
	"benchdiff/internal/model"
)

// fmtInt renders an integer with thousands separators.
func fmtInt(v int64) string {
	s := strconv.FormatInt(v, 10)
	negative := strings.HasPrefix(s, "-")
	if negative {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if negative {
		return "-" + b.String()
	}
	return b.String()
}

// fmtPct renders a signed percentage, or "n/a" for non-finite values.
func fmtPct(v model.Pct) string {
	if !v.IsFinite() {
		return "n/a"
	}
	return fmt.Sprintf("%+.2f%%", float64(v))
}

func statusCell(v model.Pct, threshold float64) string {
	status := classify.Classify(v, threshold)
	return status.Emoji() + " " + status.String()
}

func resultStatusCell(r model.ComparisonResult, threshold float64) string {
	if r.Errored() {
		return "⚪ unknown (error)"
	}
	if r.Skipped() {
		return "⚪ skipped"
	}
	return statusCell(r.DeltaPct, threshold)
}

func renderMetricBreakdown(b *strings.Builder, r model.ComparisonResult, threshold float64) {
	base := make(map[string]int64, len(r.BaseMetrics))
	for _, m := range r.BaseMetrics {
		base[m.Metric] = m.Value
	}
	head := make(map[string]int64, len(r.HeadMetrics))
	for _, m := range r.HeadMetrics {
		head[m.Metric] = m.Value
	}

	names := make([]string, 0, len(base)+len(head))
	seen := make(map[string]struct{})
	for _, metrics := range [][]model.Metric{r.BaseMetrics, r.HeadMetrics} {
		for _, m := range metrics {
			if _, ok := seen[m.Metric]; !ok {
				seen[m.Metric] = struct{}{}
				names = append(names, m.Metric)
			}
		}
	}
	sort.Strings(names)

	fmt.Fprintf(b, "<details><summary>%s metric breakdown (%d metrics)</summary>\n\n", r.BenchmarkName, len(names))
	b.WriteString("| Metric | Base | Head | Delta | Status |\n")
	b.WriteString("| --- | ---: | ---: | ---: | --- |\n")
	for _, name := range names {
		delta := model.DeltaPct(base[name], head[name])
		fmt.Fprintf(b, "| %s | %s | %s | %s | %s |\n",
			name, fmtInt(base[name]), fmtInt(head[name]), fmtPct(delta), statusCell(delta, threshold))
	}
	b.WriteString("\n</details>\n")
}

// renderMarkdown produces the cumulative report document.
func renderMarkdown(rep Report, results []model.ComparisonResult, meta Meta) string {
	var b strings.Builder
	b.WriteString("## IAI-Callgrind Benchmark Report\n\n")

	if len(results) == 0 {
		b.WriteString("No benchmark results were found.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "Regression threshold: **%.2f%%**\n\n", rep.Threshold)
	if meta.Commit != "" {
		fmt.Fprintf(&b, "Commit: `%s`", meta.Commit)
		if meta.PR != "" {
			fmt.Fprintf(&b, " (PR %s)", meta.PR)
		}
		b.WriteString("\n\n")
	}

	b.WriteString("| Feature Set | Improved | Regressions | Neutral | Skipped |\n")
	b.WriteString("| --- | ---: | ---: | ---: | ---: |\n")
	for _, g := range rep.Groups {
		fmt.Fprintf(&b, "| %s | %d | %d | %d | %d |\n",
			g.Feature, g.Tally.Improved, g.Tally.Regressions, g.Tally.Neutral, len(g.Skipped))
	}
	b.WriteString("\n")

	for _, g := range rep.Groups {
		fmt.Fprintf(&b, "<details><summary><strong>%s</strong></summary>\n\n", g.Feature)
		b.WriteString("| Benchmark | Base | Head | Delta | Status |\n")
		b.WriteString("| --- | ---: | ---: | ---: | --- |\n")
		for _, r := range g.Counted {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
				r.BenchmarkName, fmtInt(r.BaseTotal), fmtInt(r.HeadTotal), fmtPct(r.DeltaPct), resultStatusCell(r, rep.Threshold))
		}
		for _, r := range g.Skipped {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
				r.BenchmarkName, fmtInt(r.BaseTotal), fmtInt(r.HeadTotal), "n/a", resultStatusCell(r, rep.Threshold))
		}
		b.WriteString("\n")

		if len(g.Skipped) > 0 {
			b.WriteString("Skipped:\n\n")
			for _, r := range g.Skipped {
				reason := r.HeadMissingReason
				if reason == "" {
					reason = r.BaseMissingReason
				}
				fmt.Fprintf(&b, "- `%s`: %s\n", r.BenchmarkName, reason)
			}
			b.WriteString("\n")
		}

		fmt.Fprintf(&b, "Average delta: %s (benchmarks), %s (metrics)\n\n",
			fmtPct(g.AvgBenchDeltaPct), fmtPct(g.AvgMetricDeltaPct))

		b.WriteString("Metric-level breakdowns:\n\n")
		for _, r := range g.Counted {
			renderMetricBreakdown(&b, r, rep.Threshold)
			b.WriteString("\n")
		}
		b.WriteString("</details>\n\n")
	}

	if rep.Summary.HasRegressions {
		b.WriteString("### Regressions Above Threshold\n\n")
		regressed := make([]model.ComparisonResult, 0)
		for _, r := range results {
			if !r.Skipped() && classify.Classify(r.DeltaPct, rep.Threshold) == classify.Regression {
				regressed = append(regressed, r)
			}
		}
		sort.Slice(regressed, func(i, j int) bool {
			return float64(regressed[i].DeltaPct) > float64(regressed[j].DeltaPct)
		})
		for _, r := range regressed {
			fmt.Fprintf(&b, "- `%s` / `%s`: %s\n", r.FeatureName, r.BenchmarkName, fmtPct(r.DeltaPct))
		}
		b.WriteString("\n")
	}

	if len(rep.Summary.History) > 0 {
		b.WriteString("### History\n\n")
		b.WriteString("| Commit | Run At | Improved | Regressions | Neutral | Avg Bench Δ | Avg Metric Δ |\n")
		b.WriteString("| --- | --- | ---: | ---: | ---: | ---: | ---: |\n")
		for _, h := range rep.Summary.History {
			fmt.Fprintf(&b, "| `%s` | %s | %d | %d | %d | %s | %s |\n",
				h.Commit, h.RunAt, h.Summary.Improved, h.Summary.Regressions, h.Summary.Neutral,
				fmtPct(h.AvgBenchDeltaPct), fmtPct(h.AvgMetricDeltaPct))
		}
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}
