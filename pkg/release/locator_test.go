package release_test

import (
	"context"
	"errors"
	"testing"

	gogithub "github.com/google/go-github/v51/github"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/yabridge-updater/yabridge-updater/pkg/prompt"
	"github.com/yabridge-updater/yabridge-updater/pkg/release"
	"github.com/yabridge-updater/yabridge-updater/pkg/source/github"
)

func Test_Release(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Release Package")
}

// choosePrompter always picks the option at index
type choosePrompter struct {
	index   int
	options []string
}

func (c *choosePrompter) Confirm(string, bool) (bool, error) { return false, prompt.ErrNoInput }
func (c *choosePrompter) Secret(string) (string, error)      { return "", prompt.ErrNoInput }
func (c *choosePrompter) Choose(_ string, options []string) (int, error) {
	c.options = options
	if c.index < 0 {
		return -1, prompt.ErrNoInput
	}
	return c.index, nil
}

func run(sha, artifactsURL string) *gogithub.WorkflowRun {
	return &gogithub.WorkflowRun{
		ID:           gogithub.Int64(1),
		HeadSHA:      gogithub.String(sha),
		ArtifactsURL: gogithub.String(artifactsURL),
	}
}

var _ = Describe("Locator", func() {
	var (
		src     *github.TestSource
		locator *release.Locator
		ctx     context.Context
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		src, err = github.NewTestSource("robbert-vdh", "yabridge")
		Expect(err).ToNot(HaveOccurred())
		locator = release.NewLocator(src)
	})

	AfterEach(func() {
		src.Cleanup()
	})

	When("BranchesWithBuilds() is called", func() {
		It("drops branches without a successful build", func() {
			Expect(src.AddListBranchesResponse("master", "stale", "new-wine")).To(Succeed())
			src.AddWorkflowRunsResponse(map[string]*gogithub.WorkflowRun{
				"master":   run("aaa", src.URL("/a")),
				"new-wine": run("bbb", src.URL("/b")),
			})

			branches, err := locator.BranchesWithBuilds(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(branches).To(Equal([]string{"master", "new-wine"}))
		})

		It("reports a likely invalid credential when no branches are listed", func() {
			Expect(src.AddListBranchesResponse()).To(Succeed())

			_, err := locator.BranchesWithBuilds(ctx)
			Expect(errors.Is(err, release.ErrNoBranches)).To(BeTrue())
		})

		It("fails when no branch has a build", func() {
			Expect(src.AddListBranchesResponse("master")).To(Succeed())
			src.AddWorkflowRunsResponse(map[string]*gogithub.WorkflowRun{})

			_, err := locator.BranchesWithBuilds(ctx)
			Expect(errors.Is(err, release.ErrNoBuilds)).To(BeTrue())
		})
	})

	When("SelectBranch() is called", func() {
		BeforeEach(func() {
			Expect(src.AddListBranchesResponse("master", "new-wine")).To(Succeed())
			src.AddWorkflowRunsResponse(map[string]*gogithub.WorkflowRun{
				"master":   run("aaa", src.URL("/a")),
				"new-wine": run("bbb", src.URL("/b")),
			})
		})

		It("returns the branch the user picked", func() {
			p := &choosePrompter{index: 1}

			branch, err := locator.SelectBranch(ctx, p)
			Expect(err).ToNot(HaveOccurred())
			Expect(branch).To(Equal("new-wine"))
			Expect(p.options).To(Equal([]string{"master", "new-wine"}))
		})

		It("fails when input ends before a choice", func() {
			_, err := locator.SelectBranch(ctx, &choosePrompter{index: -1})
			Expect(errors.Is(err, prompt.ErrNoInput)).To(BeTrue())
		})
	})

	When("LatestRunInfo() is called", func() {
		It("returns the commit and artifact listing of the newest build", func() {
			src.AddWorkflowRunsResponse(map[string]*gogithub.WorkflowRun{
				"master": run("deadbeef", src.URL("/artifacts")),
			})

			rel, err := locator.LatestRunInfo(ctx, "master")
			Expect(err).ToNot(HaveOccurred())
			Expect(rel).To(Equal(release.Release{
				Branch:       "master",
				CommitID:     "deadbeef",
				ArtifactsURL: src.URL("/artifacts"),
			}))
		})

		It("fails for a branch without builds", func() {
			src.AddWorkflowRunsResponse(map[string]*gogithub.WorkflowRun{})

			_, err := locator.LatestRunInfo(ctx, "master")
			Expect(errors.Is(err, release.ErrNoRun)).To(BeTrue())
		})

		It("fails when the build has no commit ID", func() {
			src.AddWorkflowRunsResponse(map[string]*gogithub.WorkflowRun{
				"master": run("", src.URL("/artifacts")),
			})

			_, err := locator.LatestRunInfo(ctx, "master")
			Expect(err).To(MatchError(ContainSubstring("no commit ID")))
		})

		It("fails when the build has no artifacts URL", func() {
			src.AddWorkflowRunsResponse(map[string]*gogithub.WorkflowRun{
				"master": run("deadbeef", ""),
			})

			_, err := locator.LatestRunInfo(ctx, "master")
			Expect(err).To(MatchError(ContainSubstring("no artifacts URL")))
		})
	})
})
