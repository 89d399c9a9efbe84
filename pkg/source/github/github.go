package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cli/go-gh/v2/pkg/auth"
	"github.com/google/go-github/v51/github"
	"golang.org/x/oauth2"

	"github.com/yabridge-updater/yabridge-updater/pkg/logger"
	"github.com/yabridge-updater/yabridge-updater/pkg/utils"
)

const (
	// RateLimitLowWater is the remaining-request count below which a warning is printed
	RateLimitLowWater = 100

	rateRemainingHeader = "X-RateLimit-Remaining"
	acceptHeader        = "application/vnd.github.v3+json"
)

type Source struct {
	// Owner specifies the organization or user the repository belongs to
	Owner string

	// Repo specifies the repository whose builds are retrieved
	Repo string

	// client is used to interact with GitHub
	client *github.Client

	// rate tracks the API quota reported by GitHub
	rate *RateWatcher
}

// RateWatcher emits a single warning once GitHub reports that the remaining API quota
// dropped below Threshold
type RateWatcher struct {
	Threshold int
	warned    bool
	warn      func(remaining int)
}

// NewRateWatcher builds a RateWatcher that warns through the logger
func NewRateWatcher() *RateWatcher {
	return &RateWatcher{
		Threshold: RateLimitLowWater,
		warn: func(remaining int) {
			logger.Warn("only %d GitHub API requests remaining in the current rate-limit window\n", remaining)
		},
	}
}

// Observe inspects a response's rate-limit header. Responses without the header are ignored
func (r *RateWatcher) Observe(resp *http.Response) {
	if r == nil || resp == nil || r.warned {
		return
	}
	header := resp.Header.Get(rateRemainingHeader)
	if header == "" {
		return
	}
	remaining, err := strconv.Atoi(header)
	if err != nil {
		return
	}
	if remaining < r.Threshold {
		r.warned = true
		if r.warn != nil {
			r.warn(remaining)
		}
	}
}

// Warned reports whether the low-quota warning has been emitted
func (r *RateWatcher) Warned() bool {
	return r.warned
}

// NewSource creates a Source that authenticates with the provided bearer token. An empty
// apiURL targets github.com; otherwise it's treated as a GitHub Enterprise API base URL
func NewSource(owner, repo, token, apiURL string) (*Source, error) {
	var tc *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		tc = oauth2.NewClient(context.Background(), ts)
	}
	client := github.NewClient(tc)
	if apiURL != "" {
		var err error
		client, err = github.NewEnterpriseClient(apiURL, apiURL, tc)
		if err != nil {
			return nil, fmt.Errorf("failed to configure GitHub API URL '%s': %w", apiURL, err)
		}
	}
	client.UserAgent = "yabridge-updater"
	src := &Source{
		Owner:  owner,
		Repo:   repo,
		client: client,
		rate:   NewRateWatcher(),
	}
	return src, nil
}

// NewPublicSource creates a Source for public data. It reuses the GitHub CLI's stored
// credentials when available to avoid the anonymous rate limit
func NewPublicSource(owner, repo string) *Source {
	token, _ := auth.TokenForHost("github.com")
	// NewSource only fails for an invalid enterprise URL
	src, _ := NewSource(owner, repo, token, "")
	return src
}

// RateWatcher returns the watcher tracking this Source's API quota
func (s *Source) RateWatcher() *RateWatcher {
	return s.rate
}

// check validates a go-github response and records its rate-limit headers
func (s *Source) check(response *github.Response, err error) error {
	if response != nil {
		s.rate.Observe(response.Response)
	}
	if err != nil {
		return err
	}
	return github.CheckResponse(response.Response)
}

// ListBranches returns the names of every branch in the repository
func (s *Source) ListBranches(ctx context.Context) ([]string, error) {
	opts := &github.BranchListOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}
	names := []string{}
	for {
		branches, response, err := s.client.Repositories.ListBranches(ctx, s.Owner, s.Repo, opts)
		err = s.check(response, err)
		if err != nil {
			return []string{}, err
		}
		for _, branch := range branches {
			if branch.GetName() != "" {
				names = append(names, branch.GetName())
			}
		}
		if response.NextPage == 0 {
			break
		}
		opts.Page = response.NextPage
	}
	return names, nil
}

// LatestSuccessfulRun returns the most recent successful workflow run for branch, or
// nil if the branch has none
func (s *Source) LatestSuccessfulRun(ctx context.Context, branch string) (*github.WorkflowRun, error) {
	opts := &github.ListWorkflowRunsOptions{
		Branch:      branch,
		Status:      "success",
		ListOptions: github.ListOptions{PerPage: 1},
	}
	runs, response, err := s.client.Actions.ListRepositoryWorkflowRuns(ctx, s.Owner, s.Repo, opts)
	err = s.check(response, err)
	if err != nil {
		return nil, err
	}
	if runs == nil || len(runs.WorkflowRuns) == 0 {
		return nil, nil
	}
	return runs.WorkflowRuns[0], nil
}

// ListArtifacts returns the artifacts listed at artifactsURL, as referenced by a workflow run
func (s *Source) ListArtifacts(ctx context.Context, artifactsURL string) ([]*github.Artifact, error) {
	req, err := s.client.NewRequest(http.MethodGet, artifactsURL, nil)
	if err != nil {
		return []*github.Artifact{}, fmt.Errorf("failed to build artifact listing request: %w", err)
	}
	req.Header.Set("Accept", acceptHeader)
	list := &github.ArtifactList{}
	response, err := s.client.Do(ctx, req, list)
	err = s.check(response, err)
	if err != nil {
		return []*github.Artifact{}, err
	}
	return list.Artifacts, nil
}

// ArtifactDownloadURL resolves the short-lived URL the artifact's zip archive can be downloaded from
func (s *Source) ArtifactDownloadURL(ctx context.Context, artifact *github.Artifact) (string, error) {
	if artifact.GetExpired() {
		return "", fmt.Errorf("artifact '%s' has expired", artifact.GetName())
	}
	// With followRedirects disabled, go-github returns the redirect target instead of following it
	u, response, err := s.client.Actions.DownloadArtifact(ctx, s.Owner, s.Repo, artifact.GetID(), false)
	if response != nil {
		s.rate.Observe(response.Response)
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve download URL for artifact '%s': %w", artifact.GetName(), err)
	}
	return u.String(), nil
}

// FetchLatestRelease returns the latest release of the repository
func (s *Source) FetchLatestRelease(ctx context.Context) (*github.RepositoryRelease, error) {
	release, response, err := s.client.Repositories.GetLatestRelease(ctx, s.Owner, s.Repo)
	err = s.check(response, err)
	if err != nil {
		return &github.RepositoryRelease{}, err
	}
	return release, nil
}

// DownloadReleaseAssets downloads the provided GitHub release assets and stores them in the given directory.
// The resulting files will match the assets' names
func (s *Source) DownloadReleaseAssets(ctx context.Context, assets []*github.ReleaseAsset, dir string) error {
	var downloadErrors []error
	for _, asset := range assets {
		err := s.downloadReleaseAsset(ctx, asset, dir)
		if err != nil {
			downloadErrors = append(downloadErrors, err)
		}
	}
	if len(downloadErrors) == 0 {
		return nil
	}

	return errors.Join(downloadErrors...)
}

func (s *Source) downloadReleaseAsset(ctx context.Context, asset *github.ReleaseAsset, dir string) error {
	// Per the documentation for this method (https://pkg.go.dev/github.com/google/go-github/v51/github#RepositoriesService.DownloadReleaseAsset),
	// a redirectURL will not be returned if an http.Client is provided for the followRedirectsClient argument.
	reader, _, err := s.client.Repositories.DownloadReleaseAsset(ctx, s.Owner, s.Repo, asset.GetID(), s.client.Client())
	if err != nil {
		return fmt.Errorf("failed to download asset '%s': %w", asset.GetName(), err)
	}
	defer func(r io.ReadCloser) {
		closeErr := r.Close()
		if closeErr != nil {
			logger.Warn("failed to close reader from GitHub asset '%s': %v\n", asset.GetName(), closeErr)
		}
	}(reader)

	filePath := filepath.Join(dir, filepath.Base(asset.GetName()))
	return utils.WriteFile(reader, filePath, os.FileMode(0o644))
}
