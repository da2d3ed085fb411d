// Package metrics harvests iai-callgrind cost summaries from a build
// output tree. Callgrind writes loosely named artifacts (PID suffixes,
// nested directories), so collection normalizes names and filters by
// modification time to ignore stale files from earlier runs.
package metrics

import (
	"bufio"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"benchdiff/internal/model"
)

const (
	// summaryMarker starts the line carrying the cost total.
	summaryMarker = "summary:"
	// summaryScanLimit bounds how far into a file we look for the
	// marker; real summaries appear in the header.
	summaryScanLimit = 300
	// staleFallbackLimit caps the most-recently-modified fallback
	// used when clock resolution makes the timestamp filter empty.
	staleFallbackLimit = 20
)

// pidSuffix matches the run-specific numeric decoration callgrind
// appends to output filenames.
var pidSuffix = regexp.MustCompile(`\.\d+$`)

// isCallgrindArtifact reports whether a filename follows the
// profiler's naming convention.
func isCallgrindArtifact(name string) bool {
	return strings.Contains(name, "callgrind.out") || strings.HasPrefix(name, "callgrind.")
}

// ScanArtifacts returns every callgrind artifact path under dir. A
// missing directory yields an empty set.
func ScanArtifacts(dir string) []string {
	var paths []string
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && isCallgrindArtifact(d.Name()) {
			paths = append(paths, path)
		}
		return nil
	})
	return paths
}

// NormalizeMetricName converts an artifact path relative to the build
// directory into a stable metric key by stripping the trailing
// numeric suffix. Idempotent.
func NormalizeMetricName(relPath string) string {
	return pidSuffix.ReplaceAllString(filepath.ToSlash(relPath), "")
}

// ParseSummary reads the first summary value from an artifact. The
// marker line can carry several event counters; the primary event is
// the first token. Returns false when no parseable summary exists.
func ParseSummary(path string) (int64, bool) {
	f, err := os.Open(path)
	if err != nil {
		return 0, false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for i := 0; i < summaryScanLimit && scanner.Scan(); i++ {
		line := scanner.Text()
		if !strings.HasPrefix(line, summaryMarker) {
			continue
		}
		fields := strings.Fields(strings.TrimPrefix(line, summaryMarker))
		if len(fields) == 0 {
			return 0, false
		}
		value, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return 0, false
		}
		return value, true
	}
	return 0, false
}

// Collect gathers the metrics produced by one benchmark execution.
// Artifacts are included when they are new since start or were
// modified at/after it; if that filter selects nothing the most
// recently modified artifacts are used instead. Files without a
// parseable summary are dropped silently.
func Collect(dir string, start time.Time, before map[string]struct{}) model.RunOutcome {
	files := ScanArtifacts(dir)

	var selected []string
	for _, path := range files {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if _, existed := before[path]; !existed || !info.ModTime().Before(start) {
			selected = append(selected, path)
		}
	}

	if len(selected) == 0 {
		selected = mostRecent(files, staleFallbackLimit)
	}
	sort.Strings(selected)

	outcome := model.RunOutcome{Metrics: []model.Metric{}}
	for _, path := range selected {
		value, ok := ParseSummary(path)
		if !ok {
			continue
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = path
		}
		outcome.Metrics = append(outcome.Metrics, model.Metric{
			Metric: NormalizeMetricName(rel),
			Value:  value,
		})
	}

	sort.Slice(outcome.Metrics, func(i, j int) bool {
		return outcome.Metrics[i].Metric < outcome.Metrics[j].Metric
	})
	for _, m := range outcome.Metrics {
		outcome.Total += m.Value
	}
	return outcome
}

func mostRecent(paths []string, limit int) []string {
	type stamped struct {
		path string
		mod  time.Time
	}
	stamps := make([]stamped, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		stamps = append(stamps, stamped{path: path, mod: info.ModTime()})
	}
	sort.Slice(stamps, func(i, j int) bool {
		return stamps[i].mod.After(stamps[j].mod)
	})
	if len(stamps) > limit {
		stamps = stamps[:limit]
	}
	out := make([]string, len(stamps))
	for i, s := range stamps {
		out[i] = s.path
	}
	return out
}
