package report

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"benchdiff/internal/model"
)

// resultFileName is the per-case artifact name the runner writes.
const resultFileName = "result.json"

// LoadResults reads every per-case artifact under dir, sorted by path
// for deterministic aggregation order.
func LoadResults(dir string) ([]model.ComparisonResult, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == resultFileName {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	sort.Strings(paths)

	results := make([]model.ComparisonResult, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var r model.ComparisonResult
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("failed to parse result artifact %s: %w", path, err)
		}
		results = append(results, r)
	}
	return results, nil
}
