package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"benchdiff/internal/matrix"
	"benchdiff/internal/model"
)

// initBatchRepo builds a single-commit git repository and returns its
// path and HEAD SHA.
func initBatchRepo(t *testing.T) (string, string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	dir := t.TempDir()
	runGit := func(args ...string) string {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com")
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, "git %v: %s", args, out)
		return strings.TrimSpace(string(out))
	}

	runGit("init", "-b", "main")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "file.txt"), []byte("content"), 0644))
	runGit("add", ".")
	runGit("commit", "-m", "initial")
	sha := runGit("rev-parse", "HEAD")

	return dir, sha
}

func writeBatchMatrix(t *testing.T, cases []matrix.Case) string {
	t.Helper()
	data, err := json.Marshal(matrix.Matrix{Include: cases})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "matrix.json")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func setBatchFlags(t *testing.T, matrixPath, repoPath, sha, artifactsDir string) {
	t.Helper()
	batchMatrixPath = matrixPath
	batchRepoPath = repoPath
	batchWorkDir = "."
	batchHeadSHA = sha
	batchBaseSHA = sha
	batchArtifactsDir = artifactsDir
	t.Cleanup(func() {
		batchMatrixPath, batchRepoPath, batchWorkDir = "", "", ""
		batchHeadSHA, batchBaseSHA, batchArtifactsDir = "", "", ""
	})
}

func readBatchResult(t *testing.T, artifactsDir, id string) model.ComparisonResult {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(artifactsDir, id, "result.json"))
	require.NoError(t, err)
	var result model.ComparisonResult
	require.NoError(t, json.Unmarshal(data, &result))
	return result
}

func TestRunBatchIsolatesCaseFailures(t *testing.T) {
	repoPath, sha := initBatchRepo(t)
	artifactsDir := t.TempDir()

	// The failing case runs first; the later cases still run and
	// produce artifacts.
	matrixPath := writeBatchMatrix(t, []matrix.Case{
		{ID: "bad", BenchmarkName: "bad_case", FeatureName: "default", Command: "false"},
		{ID: "ok", BenchmarkName: "ok_case", FeatureName: "default", Command: "true"},
	})
	setBatchFlags(t, matrixPath, repoPath, sha, artifactsDir)

	var out bytes.Buffer
	batchCmd.SetOut(&out)
	batchCmd.SetContext(context.Background())

	err := runBatch(batchCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 case(s) failed")

	bad := readBatchResult(t, artifactsDir, "bad")
	assert.True(t, bad.Errored())
	assert.True(t, bad.HeadError)

	ok := readBatchResult(t, artifactsDir, "ok")
	assert.False(t, ok.Errored())
	assert.False(t, ok.Skipped())

	assert.Contains(t, out.String(), "2 case(s), 1 failed")
}

func TestRunBatchMissingBenchExitsZero(t *testing.T) {
	repoPath, sha := initBatchRepo(t)
	artifactsDir := t.TempDir()

	matrixPath := writeBatchMatrix(t, []matrix.Case{
		{ID: "gone", BenchmarkName: "nope", FeatureName: "default", Command: "cargo bench --bench nope"},
	})
	setBatchFlags(t, matrixPath, repoPath, sha, artifactsDir)

	var out bytes.Buffer
	batchCmd.SetOut(&out)
	batchCmd.SetContext(context.Background())

	// A missing bench target is a skip, not a failure.
	require.NoError(t, runBatch(batchCmd, nil))

	result := readBatchResult(t, artifactsDir, "gone")
	assert.True(t, result.Skipped())
	assert.False(t, result.Errored())
	assert.Contains(t, out.String(), "SKIP")
}

func TestRunBatchBadHeadRefStillWritesArtifacts(t *testing.T) {
	repoPath, sha := initBatchRepo(t)
	artifactsDir := t.TempDir()

	matrixPath := writeBatchMatrix(t, []matrix.Case{
		{ID: "abc", BenchmarkName: "noop", FeatureName: "default", Command: "true"},
	})
	setBatchFlags(t, matrixPath, repoPath, sha, artifactsDir)
	batchHeadSHA = "no-such-ref"

	var out bytes.Buffer
	batchCmd.SetOut(&out)
	batchCmd.SetContext(context.Background())

	err := runBatch(batchCmd, nil)
	require.Error(t, err)

	result := readBatchResult(t, artifactsDir, "abc")
	assert.True(t, result.HeadError)
	assert.Equal(t, "checkout failed", result.HeadErrorReason)
}
