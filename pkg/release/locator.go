// Package release picks the CI build to install: which branches have a successful
// workflow run, and which commit and artifact listing the newest such run refers to.
package release

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/go-github/v51/github"

	"github.com/yabridge-updater/yabridge-updater/pkg/logger"
	"github.com/yabridge-updater/yabridge-updater/pkg/prompt"
)

var (
	// ErrNoBranches is returned when the API lists no branches at all, which
	// usually means the credential is invalid
	ErrNoBranches = errors.New("no branches found; the GitHub token may be invalid")

	// ErrNoBuilds is returned when no branch has a successful build
	ErrNoBuilds = errors.New("no branch has a successful build")

	// ErrNoRun is returned when the requested branch has no successful build
	ErrNoRun = errors.New("no successful build found")
)

// API is the subset of the GitHub source used to locate builds
type API interface {
	ListBranches(ctx context.Context) ([]string, error)
	LatestSuccessfulRun(ctx context.Context, branch string) (*github.WorkflowRun, error)
}

// Release identifies the newest successful build of a branch
type Release struct {
	Branch       string
	CommitID     string
	ArtifactsURL string
}

type Locator struct {
	api API
}

func NewLocator(api API) *Locator {
	return &Locator{api: api}
}

// BranchesWithBuilds returns, in API order, the branches whose newest successful run exists
func (l *Locator) BranchesWithBuilds(ctx context.Context) ([]string, error) {
	branches, err := l.api.ListBranches(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}
	if len(branches) == 0 {
		return nil, ErrNoBranches
	}

	logger.Info("Checking %d branches for successful builds...\n", len(branches))
	withBuilds := []string{}
	for _, branch := range branches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		run, err := l.api.LatestSuccessfulRun(ctx, branch)
		if err != nil {
			logger.Warn("failed to check builds for branch '%s': %v\n", branch, err)
			continue
		}
		if run == nil {
			logger.Debug("branch '%s' has no successful build\n", branch)
			continue
		}
		withBuilds = append(withBuilds, branch)
	}
	if len(withBuilds) == 0 {
		return nil, ErrNoBuilds
	}
	return withBuilds, nil
}

// SelectBranch lists the branches with builds and asks the user to pick one
func (l *Locator) SelectBranch(ctx context.Context, p prompt.Prompter) (string, error) {
	branches, err := l.BranchesWithBuilds(ctx)
	if err != nil {
		return "", err
	}
	idx, err := p.Choose("Branches with successful builds:", branches)
	if err != nil {
		return "", fmt.Errorf("failed to select a branch: %w", err)
	}
	return branches[idx], nil
}

// LatestRunInfo returns the commit and artifact listing of branch's newest successful build
func (l *Locator) LatestRunInfo(ctx context.Context, branch string) (Release, error) {
	run, err := l.api.LatestSuccessfulRun(ctx, branch)
	if err != nil {
		return Release{}, fmt.Errorf("failed to query builds for branch '%s': %w", branch, err)
	}
	if run == nil {
		return Release{}, fmt.Errorf("%w for branch '%s'", ErrNoRun, branch)
	}
	rel := Release{
		Branch:       branch,
		CommitID:     run.GetHeadSHA(),
		ArtifactsURL: run.GetArtifactsURL(),
	}
	if rel.CommitID == "" {
		return Release{}, fmt.Errorf("build %d of branch '%s' has no commit ID", run.GetID(), branch)
	}
	if rel.ArtifactsURL == "" {
		return Release{}, fmt.Errorf("build %d of branch '%s' has no artifacts URL", run.GetID(), branch)
	}
	return rel, nil
}
