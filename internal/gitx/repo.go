package gitx

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// Checkouter is the revision-control surface the differential runner
// depends on: a lockable checkout that can be forced onto a revision.
type Checkouter interface {
	Checkout(ctx context.Context, ref string) error
	Path() string
	Lock()
	Unlock()
}

var _ Checkouter = (*Repo)(nil)

// Repo wraps a single shared git checkout. The working tree's
// checked-out revision is shared mutable state: callers that run a
// checkout-build-checkout cycle must hold the lock for the whole
// cycle.
type Repo struct {
	mu   sync.Mutex
	path string
}

// Open returns a handle on the checkout rooted at path.
func Open(path string) *Repo {
	return &Repo{path: path}
}

// Path returns the repository root.
func (r *Repo) Path() string {
	return r.path
}

// Lock takes exclusive revision-mutation rights on the checkout.
func (r *Repo) Lock() {
	r.mu.Lock()
}

// Unlock releases revision-mutation rights.
func (r *Repo) Unlock() {
	r.mu.Unlock()
}

func (r *Repo) run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.path

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s failed: %w\nOutput: %s", args[0], err, out.String())
	}
	return out.String(), nil
}

// Checkout force-switches the working tree to ref, discarding local
// modifications left behind by a previous build.
func (r *Repo) Checkout(ctx context.Context, ref string) error {
	_, err := r.run(ctx, "checkout", "--force", ref)
	return err
}

// RevParse resolves ref to a full commit SHA.
func (r *Repo) RevParse(ctx context.Context, ref string) (string, error) {
	out, err := r.run(ctx, "rev-parse", ref)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// ShortSHA resolves ref to an abbreviated commit SHA.
func (r *Repo) ShortSHA(ctx context.Context, ref string) (string, error) {
	out, err := r.run(ctx, "rev-parse", "--short", ref)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
