package app_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/yabridge-updater/yabridge-updater/pkg/app"
	"github.com/yabridge-updater/yabridge-updater/pkg/config"
	"github.com/yabridge-updater/yabridge-updater/pkg/prompt"
)

func Test_App(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "App Package")
}

var _ = Describe("NewWithPaths()", func() {
	var (
		paths config.Paths
		p     prompt.Prompter
	)

	BeforeEach(func() {
		paths = config.Paths{Dir: filepath.Join(tempDir(), "config")}
		p = prompt.AssumeYes{}
	})

	It("prefers the flag over the saved path", func() {
		Expect(paths.SaveInstallPath("/opt/yabridge")).To(Succeed())

		a, err := app.NewWithPaths(paths, "/srv/yabridge", p)
		Expect(err).ToNot(HaveOccurred())
		Expect(a.InstallDir).To(Equal("/srv/yabridge"))
		Expect(a.Origin).To(Equal(config.OriginFlag))
	})

	It("falls back to the saved path", func() {
		Expect(paths.SaveInstallPath("/opt/yabridge")).To(Succeed())

		a, err := app.NewWithPaths(paths, "", p)
		Expect(err).ToNot(HaveOccurred())
		Expect(a.InstallDir).To(Equal("/opt/yabridge"))
		Expect(a.Origin).To(Equal(config.OriginSaved))
		Expect(a.Backups().Dir).To(Equal("/opt/yabridge-backups"))
	})

	It("reads the repository from config.yaml", func() {
		Expect(paths.Ensure()).To(Succeed())
		Expect(os.WriteFile(paths.ConfigFile(), []byte("owner: someone\nrepo: fork\n"), 0o600)).To(Succeed())

		a, err := app.NewWithPaths(paths, "/srv/yabridge", p)
		Expect(err).ToNot(HaveOccurred())
		Expect(a.Config.Owner).To(Equal("someone"))
		Expect(a.Config.Repo).To(Equal("fork"))
		Expect(a.Config.KeepBackups).To(Equal(3))

		api, err := a.NewAPI("abc")
		Expect(err).ToNot(HaveOccurred())
		Expect(api).ToNot(BeNil())
	})

	It("rejects an unparseable config.yaml", func() {
		Expect(paths.Ensure()).To(Succeed())
		Expect(os.WriteFile(paths.ConfigFile(), []byte("owner: [\n"), 0o600)).To(Succeed())

		_, err := app.NewWithPaths(paths, "", p)
		Expect(err).To(MatchError(ContainSubstring("failed to parse")))
	})
})

// tempDirs holds the directories created by tempDir for the current spec
var tempDirs []string

// tempDir creates a directory that is removed after the current spec.
// GinkgoT().TempDir() is a no-op returning "" in ginkgo v1.
func tempDir() string {
	dir, err := os.MkdirTemp("", "yabridge-updater-test-")
	Expect(err).ToNot(HaveOccurred())
	tempDirs = append(tempDirs, dir)
	return dir
}

var _ = AfterEach(func() {
	for _, dir := range tempDirs {
		Expect(os.RemoveAll(dir)).To(Succeed())
	}
	tempDirs = nil
})
