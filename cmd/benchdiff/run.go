package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"benchdiff/internal/gitx"
	"benchdiff/internal/matrix"
	"benchdiff/internal/model"
	"benchdiff/internal/runner"
)

var (
	runRepoPath  string
	runWorkDir   string
	runBenchName string
	runFeature   string
	runCommand   string
	runHeadSHA   string
	runBaseSHA   string
	runOutput    string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one differential benchmark case",
	Long: `Executes a single case against the head and base revisions of the
shared checkout, harvesting callgrind cost summaries from isolated
build directories. The checkout is always restored to head, whatever
the outcome. A missing benchmark or feature on one side is tolerated;
any other command failure makes the run exit non-zero.`,
	RunE: runRunPair,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runRepoPath, "repo-path", "", "Path to the repository under test")
	runCmd.Flags().StringVar(&runWorkDir, "working-directory", "", "Crate directory relative to the repository root")
	runCmd.Flags().StringVar(&runBenchName, "benchmark-name", "", "Benchmark name for the case")
	runCmd.Flags().StringVar(&runFeature, "feature-name", "", "Feature-set name for the case")
	runCmd.Flags().StringVar(&runCommand, "command", "", "Fully expanded benchmark command")
	runCmd.Flags().StringVar(&runHeadSHA, "head-sha", "", "Head revision")
	runCmd.Flags().StringVar(&runBaseSHA, "base-sha", "", "Base revision")
	runCmd.Flags().StringVar(&runOutput, "output", "", "Path for the result artifact")
	for _, flag := range []string{"repo-path", "benchmark-name", "feature-name", "command", "head-sha", "base-sha", "output"} {
		runCmd.MarkFlagRequired(flag)
	}
}

func runRunPair(cmd *cobra.Command, args []string) error {
	repoPath, err := filepath.Abs(runRepoPath)
	if err != nil {
		return err
	}
	workDir := runWorkDir
	if workDir == "" {
		workDir = viper.GetString("working_directory")
	}

	c := matrix.Case{
		BenchmarkName: runBenchName,
		FeatureName:   runFeature,
		Command:       runCommand,
	}

	repo := gitx.Open(repoPath)
	r := runner.New(repo, workDir)

	result, err := r.RunPair(cmd.Context(), c, runHeadSHA, runBaseSHA)
	if err != nil {
		return err
	}

	if err := runner.WriteResult(runOutput, result); err != nil {
		return err
	}

	return reportCaseErrors(cmd, runOutput, result)
}

// reportCaseErrors writes per-side diagnostic logs and surfaces an
// error when any side failed to execute.
func reportCaseErrors(cmd *cobra.Command, resultPath string, result model.ComparisonResult) error {
	if !result.Errored() {
		return nil
	}

	sides, err := runner.WriteErrorLogs(resultPath, result)
	if err != nil {
		return err
	}
	for _, side := range sides {
		if side.Reason == runner.ToolVersionMismatchReason {
			fmt.Fprintf(cmd.OutOrStdout(),
				"[%s] error: iai-callgrind-runner is newer than the crate. Update the repo's iai-callgrind dependency to match the runner version.\n",
				side.Label)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "[%s] command failed; full output:\n%s\n", side.Label, side.Output)
		fmt.Fprintf(cmd.OutOrStdout(), "[%s] full output written to %s\n", side.Label, filepath.ToSlash(side.LogPath))
	}

	return fmt.Errorf("benchmark case %s/%s failed", result.FeatureName, result.BenchmarkName)
}
