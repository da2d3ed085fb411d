package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"benchdiff/internal/gitx"
	"benchdiff/internal/matrix"
	"benchdiff/internal/model"
	"benchdiff/internal/runner"
)

var (
	batchMatrixPath   string
	batchRepoPath     string
	batchWorkDir      string
	batchHeadSHA      string
	batchBaseSHA      string
	batchArtifactsDir string
)

var (
	batchOKStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	batchSkipStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	batchFailStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run every case of an expanded matrix",
	Long: `Reads a matrix payload produced by 'expand' and runs each case
sequentially against the shared checkout, writing one result artifact
per case under the artifacts directory. Case failures are isolated:
every case runs and appears in the artifacts regardless of what
happened to its siblings. The exit status is non-zero only when some
side failed for a reason other than a missing benchmark or feature.`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.Flags().StringVar(&batchMatrixPath, "matrix", "", "Path to the matrix JSON payload")
	batchCmd.Flags().StringVar(&batchRepoPath, "repo-path", "", "Path to the repository under test")
	batchCmd.Flags().StringVar(&batchWorkDir, "working-directory", "", "Crate directory relative to the repository root")
	batchCmd.Flags().StringVar(&batchHeadSHA, "head-sha", "", "Head revision")
	batchCmd.Flags().StringVar(&batchBaseSHA, "base-sha", "", "Base revision")
	batchCmd.Flags().StringVar(&batchArtifactsDir, "artifacts-dir", "", "Directory for per-case result artifacts")
	for _, flag := range []string{"matrix", "repo-path", "head-sha", "base-sha", "artifacts-dir"} {
		batchCmd.MarkFlagRequired(flag)
	}
}

func runBatch(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(batchMatrixPath)
	if err != nil {
		return fmt.Errorf("failed to read matrix: %w", err)
	}
	var m matrix.Matrix
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("failed to parse matrix: %w", err)
	}
	if len(m.Include) == 0 {
		return fmt.Errorf("matrix %s contains no cases", batchMatrixPath)
	}

	repoPath, err := filepath.Abs(batchRepoPath)
	if err != nil {
		return err
	}
	workDir := batchWorkDir
	if workDir == "" {
		workDir = viper.GetString("working_directory")
	}

	repo := gitx.Open(repoPath)
	r := runner.New(repo, workDir)

	failed := 0
	for _, c := range m.Include {
		label := fmt.Sprintf("%s/%s", c.FeatureName, c.BenchmarkName)
		resultPath := filepath.Join(batchArtifactsDir, c.ID, "result.json")

		result, err := r.RunPair(cmd.Context(), c, batchHeadSHA, batchBaseSHA)
		if err != nil {
			// An environment-level failure still produces an artifact;
			// every case must appear in the report.
			side := model.RunOutcome{
				Metrics:     []model.Metric{},
				Error:       true,
				ErrorReason: "run failed",
				ErrorOutput: err.Error(),
			}
			result = model.Compose(c.BenchmarkName, c.FeatureName, c.Command, side, side)
		}

		if err := runner.WriteResult(resultPath, result); err != nil {
			failed++
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %v\n", batchFailStyle.Render("FAIL"), label, err)
			continue
		}

		switch {
		case result.Errored():
			failed++
			// reportCaseErrors surfaces the case failure; the batch
			// keeps going and reports the count at the end.
			_ = reportCaseErrors(cmd, resultPath, result)
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", batchFailStyle.Render("FAIL"), label)
		case result.Skipped():
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", batchSkipStyle.Render("SKIP"), label)
		default:
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%+d)\n", batchOKStyle.Render("OK  "), label, result.Delta)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\n%d case(s), %d failed, artifacts in %s\n", len(m.Include), failed, batchArtifactsDir)
	if failed > 0 {
		return fmt.Errorf("%d of %d case(s) failed", failed, len(m.Include))
	}
	return nil
}
