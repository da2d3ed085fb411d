// Package runner executes one benchmark case against two revisions of
// a shared git checkout and composes the comparison artifact.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"benchdiff/internal/gitx"
	"benchdiff/internal/matrix"
	"benchdiff/internal/model"
)

// targetRootDir holds the per-case isolated build directories under
// the repository root.
const targetRootDir = ".iai-target"

// Runner drives the differential protocol for cases sharing one
// checkout.
type Runner struct {
	repo       gitx.Checkouter
	workdir    string
	classifier OutputClassifier
}

// New returns a runner for the given repository handle.
// workingDirectory is resolved relative to the repository root.
func New(repo gitx.Checkouter, workingDirectory string) *Runner {
	return &Runner{
		repo:       repo,
		workdir:    filepath.Join(repo.Path(), workingDirectory),
		classifier: CargoClassifier{},
	}
}

// WithClassifier overrides the failure-output classifier.
func (r *Runner) WithClassifier(c OutputClassifier) *Runner {
	r.classifier = c
	return r
}

// caseSlug names the build directory pair for a case.
func caseSlug(c matrix.Case) string {
	return strings.ReplaceAll(c.BenchmarkName+"-"+c.FeatureName, " ", "-")
}

// RunPair executes the case on head and base. The protocol order is
// fixed: checkout head, run head, checkout base, run base, restore
// head. Restoration is deferred so the shared checkout never stays on
// base whatever the execution outcome. The repository lock is held
// for the whole cycle.
func (r *Runner) RunPair(ctx context.Context, c matrix.Case, headSHA, baseSHA string) (model.ComparisonResult, error) {
	if _, err := os.Stat(r.workdir); err != nil {
		return model.ComparisonResult{}, fmt.Errorf("working directory does not exist: %s", r.workdir)
	}

	slug := caseSlug(c)
	headTarget := filepath.Join(r.repo.Path(), targetRootDir, slug, "head")
	baseTarget := filepath.Join(r.repo.Path(), targetRootDir, slug, "base")
	for _, dir := range []string{headTarget, baseTarget} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return model.ComparisonResult{}, fmt.Errorf("failed to create target dir %s: %w", dir, err)
		}
	}

	r.repo.Lock()
	defer r.repo.Unlock()

	if err := r.repo.Checkout(ctx, headSHA); err != nil {
		// A failed head checkout still composes an artifact so the
		// case shows up in the report; base is never attempted.
		head := model.RunOutcome{
			Metrics:     []model.Metric{},
			Error:       true,
			ErrorReason: "checkout failed",
			ErrorOutput: err.Error(),
		}
		base := model.RunOutcome{
			Metrics:     []model.Metric{},
			Error:       true,
			ErrorReason: "head checkout failed, base not attempted",
		}
		return model.Compose(c.BenchmarkName, c.FeatureName, c.Command, head, base), nil
	}
	defer func() {
		// Scoped restoration: the checkout must end on head even when
		// the base side failed.
		if err := r.repo.Checkout(context.WithoutCancel(ctx), headSHA); err != nil {
			slog.Warn("failed to restore head checkout", "sha", headSHA, "error", err)
		}
	}()

	slog.Info("running head side", "case", c.ID, "sha", headSHA)
	head := r.executeSide(ctx, c.Command, headTarget)

	var base model.RunOutcome
	if err := r.repo.Checkout(ctx, baseSHA); err != nil {
		// A failed base checkout is an error on the base side, not a
		// protocol abort: the result still gets composed and head
		// still gets restored.
		base = model.RunOutcome{
			Metrics:     []model.Metric{},
			Error:       true,
			ErrorReason: "checkout failed",
			ErrorOutput: err.Error(),
		}
	} else {
		slog.Info("running base side", "case", c.ID, "sha", baseSHA)
		base = r.executeSide(ctx, c.Command, baseTarget)
	}

	return model.Compose(c.BenchmarkName, c.FeatureName, c.Command, head, base), nil
}
