package token_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/zalando/go-keyring"

	"github.com/yabridge-updater/yabridge-updater/cmd/token"
	"github.com/yabridge-updater/yabridge-updater/pkg/config"
	"github.com/yabridge-updater/yabridge-updater/pkg/credentials"
	"github.com/yabridge-updater/yabridge-updater/pkg/exitcodes"
	"github.com/yabridge-updater/yabridge-updater/pkg/prompt"
)

func Test_Token(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Token Command")
}

// secretPrompter returns a fixed secret
type secretPrompter struct {
	prompt.AssumeYes
	secret string
}

func (s secretPrompter) Secret(string) (string, error) {
	if s.secret == "" {
		return "", prompt.ErrNoInput
	}
	return s.secret, nil
}

var _ = Describe("token", func() {
	var paths config.Paths

	BeforeEach(func() {
		keyring.MockInit()
		paths = config.Paths{Dir: filepath.Join(tempDir(), "config")}
	})

	It("stores a new token in the keyring and clears it again", func() {
		r := credentials.NewResolver(paths, config.Default(), secretPrompter{secret: "abc"})
		Expect(token.Store(r)).To(Succeed())

		stored, err := keyring.Get(config.AppName, "github-token")
		Expect(err).ToNot(HaveOccurred())
		Expect(stored).To(Equal("abc"))

		Expect(token.Clear(r)).To(Succeed())
		_, err = keyring.Get(config.AppName, "github-token")
		Expect(err).To(MatchError(keyring.ErrNotFound))
	})

	It("fails when no token is entered", func() {
		r := credentials.NewResolver(paths, config.Default(), secretPrompter{})
		err := token.Store(r)
		Expect(exitcodes.CodeForError(err)).To(Equal(exitcodes.GeneralError))
	})

	It("succeeds when nothing is stored", func() {
		r := credentials.NewResolver(paths, config.Default(), secretPrompter{})
		Expect(token.Clear(r)).To(Succeed())
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
