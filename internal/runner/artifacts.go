package runner

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"benchdiff/internal/model"
)

// WriteResult persists the per-case artifact.
func WriteResult(path string, result model.ComparisonResult) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// SideError describes one errored side for diagnostics.
type SideError struct {
	Label   string
	Reason  string
	Output  string
	LogPath string
}

// WriteErrorLogs writes a diagnostic log file per errored side next
// to the result artifact and returns what was written.
func WriteErrorLogs(resultPath string, result model.ComparisonResult) ([]SideError, error) {
	outputDir := filepath.Dir(resultPath)

	sides := []struct {
		label   string
		errored bool
		reason  string
		output  string
	}{
		{"head", result.HeadError, result.HeadErrorReason, result.HeadErrorOutput},
		{"base", result.BaseError, result.BaseErrorReason, result.BaseErrorOutput},
	}

	var written []SideError
	for _, side := range sides {
		if !side.errored || side.output == "" {
			continue
		}
		logPath := filepath.Join(outputDir, side.label+".error.log")
		if err := os.WriteFile(logPath, []byte(side.output), 0644); err != nil {
			return written, fmt.Errorf("failed to write %s error log: %w", side.label, err)
		}
		written = append(written, SideError{
			Label:   side.label,
			Reason:  side.reason,
			Output:  side.output,
			LogPath: logPath,
		})
	}
	return written, nil
}
