package gitx

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T) (*Repo, string, string) {
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
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("one"), 0644))
	runGit("add", ".")
	runGit("commit", "-m", "one")
	first := runGit("rev-parse", "HEAD")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("two"), 0644))
	runGit("add", ".")
	runGit("commit", "-m", "two")
	second := runGit("rev-parse", "HEAD")

	return Open(dir), first, second
}

func TestCheckoutForcesRevision(t *testing.T) {
	repo, first, second := initRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Checkout(ctx, first))
	head, err := repo.RevParse(ctx, "HEAD")
	require.NoError(t, err)
	assert.Equal(t, first, head)

	// A dirty working tree does not block a forced checkout.
	require.NoError(t, os.WriteFile(filepath.Join(repo.Path(), "a.txt"), []byte("dirty"), 0644))
	require.NoError(t, repo.Checkout(ctx, second))
	head, err = repo.RevParse(ctx, "HEAD")
	require.NoError(t, err)
	assert.Equal(t, second, head)
}

func TestCheckoutUnknownRef(t *testing.T) {
	repo, _, _ := initRepo(t)
	err := repo.Checkout(context.Background(), "no-such-ref")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "git checkout failed")
}

func TestShortSHA(t *testing.T) {
	repo, _, second := initRepo(t)
	short, err := repo.ShortSHA(context.Background(), "HEAD")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(second, short))
}

func TestLockSerializesAccess(t *testing.T) {
	repo := Open(t.TempDir())

	var inCritical int
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			repo.Lock()
			defer repo.Unlock()
			inCritical++
			assert.Equal(t, 1, inCritical)
			inCritical--
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, inCritical)
}
