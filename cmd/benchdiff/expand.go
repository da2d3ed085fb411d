package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"benchdiff/internal/matrix"
)

var (
	expandRepoPath        string
	expandWorkDir         string
	expandBenchmarksJSON  string
	expandFeatureSetsJSON string
	expandAutoDiscover    bool
	expandCargoArgs       string
	expandOutput          string
)

var expandCmd = &cobra.Command{
	Use:   "expand",
	Short: "Expand the benchmark x feature-set matrix into cases",
	Long: `Turns benchmark and feature-set descriptors into a flat list of
uniquely identified cases with fully materialized commands. With no
benchmarks configured, auto-discovery lists benches/*.rs in the
working directory. An empty final benchmark list is a fatal error.`,
	RunE: runExpand,
}

func init() {
	rootCmd.AddCommand(expandCmd)
	expandCmd.Flags().StringVar(&expandRepoPath, "repo-path", "", "Path to the repository under test")
	expandCmd.Flags().StringVar(&expandWorkDir, "working-directory", "", "Crate directory relative to the repository root (default from config)")
	expandCmd.Flags().StringVar(&expandBenchmarksJSON, "benchmarks-json", "", "Benchmark descriptors (JSON array of strings or objects)")
	expandCmd.Flags().StringVar(&expandFeatureSetsJSON, "feature-sets-json", "", "Feature-set descriptors (JSON array of strings or objects)")
	expandCmd.Flags().BoolVar(&expandAutoDiscover, "auto-discover", false, "Discover benchmarks from benches/*.rs when none are configured")
	expandCmd.Flags().StringVar(&expandCargoArgs, "cargo-args", "", "Extra arguments appended to every benchmark command")
	expandCmd.Flags().StringVar(&expandOutput, "output", "", "Path for the matrix JSON payload")
	expandCmd.MarkFlagRequired("repo-path")
	expandCmd.MarkFlagRequired("output")
}

func runExpand(cmd *cobra.Command, args []string) error {
	repoPath, err := filepath.Abs(expandRepoPath)
	if err != nil {
		return err
	}

	benchmarks, err := matrix.ParseBenchmarks(expandBenchmarksJSON)
	if err != nil {
		return err
	}
	featureSets, err := matrix.ParseFeatureSets(expandFeatureSetsJSON)
	if err != nil {
		return err
	}

	workDir := expandWorkDir
	if workDir == "" {
		workDir = viper.GetString("working_directory")
	}

	m, err := matrix.Expand(benchmarks, featureSets, matrix.Options{
		RepoPath:         repoPath,
		WorkingDirectory: workDir,
		AutoDiscover:     expandAutoDiscover || viper.GetBool("auto_discover"),
		CargoArgs:        expandCargoArgs,
	})
	if err != nil {
		return err
	}

	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	if err := os.WriteFile(expandOutput, data, 0644); err != nil {
		return fmt.Errorf("failed to write matrix: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Expanded %d case(s) to %s\n", len(m.Include), expandOutput)
	return nil
}
