package runner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"

	"benchdiff/internal/metrics"
	"benchdiff/internal/model"
)

// execCommandContext allows stubbing the external process in tests.
var execCommandContext = exec.CommandContext

// detectMissingBench short-circuits a side to missing without
// spawning a process, when the command is the predictable
// `cargo bench --bench X` form and the bench source is absent from
// the checked-out revision. Commands that redirect the manifest or
// package are left to cargo itself.
func detectMissingBench(argv []string, workdir string) string {
	if len(argv) == 0 || argv[0] != "cargo" {
		return ""
	}
	hasBench := false
	benchName := ""
	for i, arg := range argv {
		switch arg {
		case "bench":
			hasBench = true
		case "--manifest-path", "--package", "-p":
			return ""
		case "--bench":
			if i+1 < len(argv) {
				benchName = argv[i+1]
			}
		}
	}
	if !hasBench || benchName == "" {
		return ""
	}
	benchPath := filepath.Join(workdir, "benches", benchName+".rs")
	if _, err := os.Stat(benchPath); os.IsNotExist(err) {
		return fmt.Sprintf("missing bench file %s", filepath.ToSlash(benchPath))
	}
	return ""
}

// executeSide runs the case command for one revision with build
// output redirected into targetDir, and harvests the resulting
// metrics. The command is executed as a structured argv, never
// through a shell.
func (r *Runner) executeSide(ctx context.Context, command, targetDir string) model.RunOutcome {
	argv, err := shellquote.Split(command)
	if err != nil || len(argv) == 0 {
		return model.RunOutcome{
			Metrics:     []model.Metric{},
			Error:       true,
			ErrorReason: "unparseable command",
			ErrorOutput: fmt.Sprintf("cannot split command %q: %v", command, err),
		}
	}

	if reason := detectMissingBench(argv, r.workdir); reason != "" {
		slog.Debug("bench target absent, skipping execution", "command", command, "reason", reason)
		return model.RunOutcome{Metrics: []model.Metric{}, Missing: true, MissingReason: reason}
	}

	before := make(map[string]struct{})
	for _, path := range metrics.ScanArtifacts(targetDir) {
		before[path] = struct{}{}
	}
	start := time.Now()

	cmd := execCommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = r.workdir
	cmd.Env = append(os.Environ(), "CARGO_TARGET_DIR="+targetDir)

	slog.Debug("executing benchmark", "command", command, "target_dir", targetDir)
	output, runErr := cmd.CombinedOutput()
	if runErr != nil {
		exitCode := -1
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		verdict := r.classifier.ClassifyFailure(string(output))
		if verdict.Missing {
			return model.RunOutcome{Metrics: []model.Metric{}, Missing: true, MissingReason: verdict.MissingReason}
		}
		return model.RunOutcome{
			Metrics:     []model.Metric{},
			Error:       true,
			ErrorCode:   exitCode,
			ErrorReason: verdict.ErrorReason,
			ErrorOutput: strings.TrimSpace(string(output)),
		}
	}

	return metrics.Collect(targetDir, start, before)
}
