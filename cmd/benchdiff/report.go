package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"benchdiff/internal/gitx"
	"benchdiff/internal/report"
)

var (
	reportArtifactsDir   string
	reportThreshold      float64
	reportMarkdownOutput string
	reportSummaryOutput  string
	reportHistoryInput   string
	reportMaxHistory     int
	reportCommit         string
	reportPR             string
	reportPreview        bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Aggregate case results into the cumulative report",
	Long: `Reads every result artifact under the artifacts directory, merges
the previous run's history payload, and writes the markdown report
plus the updated summary payload for the next run. Exits non-zero
when any case ended in an execution error.`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVar(&reportArtifactsDir, "artifacts-dir", "", "Directory holding per-case result artifacts")
	reportCmd.Flags().Float64Var(&reportThreshold, "threshold", 0, "Regression threshold percentage (default from config)")
	reportCmd.Flags().StringVar(&reportMarkdownOutput, "markdown-output", "", "Path for the rendered markdown report")
	reportCmd.Flags().StringVar(&reportSummaryOutput, "summary-output", "", "Path for the summary/history payload")
	reportCmd.Flags().StringVar(&reportHistoryInput, "history-input", "", "Previous run's summary payload (optional)")
	reportCmd.Flags().IntVar(&reportMaxHistory, "max-history", 0, "Maximum history entries to keep (default from config)")
	reportCmd.Flags().StringVar(&reportCommit, "commit", "", "Commit identifier for the history entry")
	reportCmd.Flags().StringVar(&reportPR, "pr", "", "Pull request identifier (optional)")
	reportCmd.Flags().BoolVar(&reportPreview, "preview", false, "Render the report to the terminal")
	reportCmd.MarkFlagRequired("artifacts-dir")
	reportCmd.MarkFlagRequired("markdown-output")
	reportCmd.MarkFlagRequired("summary-output")
}

func runReport(cmd *cobra.Command, args []string) error {
	threshold := reportThreshold
	if threshold == 0 {
		threshold = viper.GetFloat64("threshold")
	}
	maxHistory := reportMaxHistory
	if maxHistory == 0 {
		maxHistory = viper.GetInt("max_history")
	}

	results, err := report.LoadResults(reportArtifactsDir)
	if err != nil {
		return err
	}
	prior, err := report.LoadPriorHistory(reportHistoryInput)
	if err != nil {
		return err
	}

	commit := reportCommit
	if commit == "" {
		// Best effort: identify the run by the current checkout.
		if sha, err := gitx.Open(".").ShortSHA(cmd.Context(), "HEAD"); err == nil {
			commit = sha
		} else {
			commit = "unknown"
		}
	}

	rep := report.Aggregate(results, threshold, report.Meta{
		Commit: commit,
		RunAt:  time.Now(),
		PR:     reportPR,
	}, prior, maxHistory)

	if err := os.WriteFile(reportMarkdownOutput, []byte(rep.Markdown), 0644); err != nil {
		return fmt.Errorf("failed to write markdown report: %w", err)
	}
	if err := report.SaveSummary(reportSummaryOutput, rep.Summary); err != nil {
		return err
	}

	if reportPreview {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
		if err == nil {
			if out, err := renderer.Render(rep.Markdown); err == nil {
				fmt.Fprint(cmd.OutOrStdout(), out)
			}
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s (%d case(s), regressions: %v)\n",
		reportMarkdownOutput, rep.Summary.Count, rep.Summary.HasRegressions)

	if rep.AnyError {
		return fmt.Errorf("one or more benchmark cases ended in an execution error")
	}
	return nil
}
