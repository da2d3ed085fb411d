package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"benchdiff/internal/model"
)

// Tally is the improved/regressions/neutral breakdown of one run.
type Tally struct {
	Improved    int `json:"improved"`
	Regressions int `json:"regressions"`
	Neutral     int `json:"neutral"`
}

// HistoryEntry is one run's summary as carried between runs. Entries
// are ordered newest-first and keyed by commit for deduplication.
type HistoryEntry struct {
	Commit            string    `json:"commit"`
	RunAt             string    `json:"run_at"`
	Summary           Tally     `json:"summary"`
	AvgBenchDeltaPct  model.Pct `json:"avg_bench_delta_pct"`
	AvgMetricDeltaPct model.Pct `json:"avg_metric_delta_pct"`
	HasRegressions    bool      `json:"has_regressions"`
}

// Summary is the persisted state-transfer payload. The next run reads
// it back, prepends its own entry, and truncates.
type Summary struct {
	HasRegressions bool           `json:"has_regressions"`
	Count          int            `json:"count"`
	Latest         HistoryEntry   `json:"latest"`
	History        []HistoryEntry `json:"history"`
}

// MergeHistory prepends entry to prior, drops any prior entry whose
// commit is already present (the newest occurrence wins), and
// truncates to maxHistory.
func MergeHistory(entry HistoryEntry, prior []HistoryEntry, maxHistory int) []HistoryEntry {
	merged := []HistoryEntry{entry}
	seen := map[string]struct{}{entry.Commit: {}}
	for _, old := range prior {
		if _, dup := seen[old.Commit]; dup {
			continue
		}
		seen[old.Commit] = struct{}{}
		merged = append(merged, old)
	}
	if maxHistory > 0 && len(merged) > maxHistory {
		merged = merged[:maxHistory]
	}
	return merged
}

// LoadPriorHistory reads a previous run's summary payload. A missing
// or empty file yields no history.
func LoadPriorHistory(path string) ([]HistoryEntry, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	var summary Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("failed to parse history payload %s: %w", path, err)
	}
	return summary.History, nil
}

// SaveSummary writes the state-transfer payload for the next run.
func SaveSummary(path string, summary Summary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
