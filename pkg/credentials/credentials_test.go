package credentials

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/zalando/go-keyring"

	"github.com/yabridge-updater/yabridge-updater/pkg/prompt"
)

func Test_Credentials(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Credentials Package")
}

// scriptedPrompter answers Secret and Confirm calls from fixed queues
type scriptedPrompter struct {
	secrets  []string
	confirms []bool
	asked    []string
}

func (s *scriptedPrompter) Confirm(question string, _ bool) (bool, error) {
	s.asked = append(s.asked, question)
	if len(s.confirms) == 0 {
		return false, prompt.ErrNoInput
	}
	answer := s.confirms[0]
	s.confirms = s.confirms[1:]
	return answer, nil
}

func (s *scriptedPrompter) Choose(string, []string) (int, error) {
	return -1, prompt.ErrNoInput
}

func (s *scriptedPrompter) Secret(question string) (string, error) {
	s.asked = append(s.asked, question)
	if len(s.secrets) == 0 {
		return "", prompt.ErrNoInput
	}
	answer := s.secrets[0]
	s.secrets = s.secrets[1:]
	return answer, nil
}

var _ = Describe("Resolver", func() {
	var (
		dir      string
		env      map[string]string
		prompter *scriptedPrompter
		resolver *Resolver
	)

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp(os.TempDir(), "credentials-")
		Expect(err).ToNot(HaveOccurred())

		keyring.MockInit()
		env = map[string]string{}
		prompter = &scriptedPrompter{}
		resolver = &Resolver{
			EnvVar:   "GITHUB_TOKEN",
			Keyring:  Keyring{Service: "yabridge-updater-test", User: keyringUser},
			File:     EncryptedFile{Path: filepath.Join(dir, "token")},
			Prompter: prompter,
			getenv: func(key string) string {
				return env[key]
			},
		}
	})

	AfterEach(func() {
		Expect(os.RemoveAll(dir)).To(Succeed())
	})

	When("the environment variable is set", func() {
		It("returns it without consulting other sources", func() {
			env["GITHUB_TOKEN"] = "abc"
			Expect(resolver.Keyring.Set("from-keyring")).To(Succeed())

			token, source, err := resolver.GetToken()
			Expect(err).ToNot(HaveOccurred())
			Expect(token).To(Equal("abc"))
			Expect(source).To(Equal(SourceEnv))
			Expect(prompter.asked).To(BeEmpty())
		})
	})

	When("the keyring holds a token", func() {
		It("returns it", func() {
			Expect(resolver.Keyring.Set("from-keyring")).To(Succeed())

			token, source, err := resolver.GetToken()
			Expect(err).ToNot(HaveOccurred())
			Expect(token).To(Equal("from-keyring"))
			Expect(source).To(Equal(SourceKeyring))
			Expect(source.Stored()).To(BeTrue())
		})
	})

	When("only the encrypted file holds a token", func() {
		BeforeEach(func() {
			keyring.MockInitWithError(errors.New("no secret service"))
			Expect(resolver.File.Write("from-file", "hunter2", "hunter2")).To(Succeed())
		})

		It("decrypts it with the entered passphrase", func() {
			prompter.secrets = []string{"hunter2"}

			token, source, err := resolver.GetToken()
			Expect(err).ToNot(HaveOccurred())
			Expect(token).To(Equal("from-file"))
			Expect(source).To(Equal(SourceFile))
		})

		It("restricts the file to its owner", func() {
			info, err := os.Stat(resolver.File.Path)
			Expect(err).ToNot(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))
		})

		It("falls through to the prompt on a wrong passphrase", func() {
			prompter.secrets = []string{"wrong", "typed-token"}
			prompter.confirms = []bool{false}

			token, source, err := resolver.GetToken()
			Expect(err).ToNot(HaveOccurred())
			Expect(token).To(Equal("typed-token"))
			Expect(source).To(Equal(SourcePrompt))
		})
	})

	When("nothing is stored", func() {
		It("returns no token if the user enters nothing", func() {
			token, source, err := resolver.GetToken()
			Expect(err).ToNot(HaveOccurred())
			Expect(token).To(BeEmpty())
			Expect(source).To(Equal(SourceNone))
		})

		It("persists an entered token in the keyring when asked to", func() {
			prompter.secrets = []string{"typed-token"}
			prompter.confirms = []bool{true}

			token, source, err := resolver.GetToken()
			Expect(err).ToNot(HaveOccurred())
			Expect(token).To(Equal("typed-token"))
			Expect(source).To(Equal(SourcePrompt))

			stored, err := resolver.Keyring.Get()
			Expect(err).ToNot(HaveOccurred())
			Expect(stored).To(Equal("typed-token"))
		})

		It("falls back to the encrypted file when the keyring is unavailable", func() {
			keyring.MockInitWithError(errors.New("no secret service"))
			prompter.secrets = []string{"typed-token", "pass", "pass"}
			prompter.confirms = []bool{true}

			_, _, err := resolver.GetToken()
			Expect(err).ToNot(HaveOccurred())
			Expect(resolver.File.Exists()).To(BeTrue())

			stored, err := resolver.File.Read("pass")
			Expect(err).ToNot(HaveOccurred())
			Expect(stored).To(Equal("typed-token"))
		})

		It("doesn't store the token when the passphrases differ", func() {
			keyring.MockInitWithError(errors.New("no secret service"))
			prompter.secrets = []string{"typed-token", "pass", "other"}
			prompter.confirms = []bool{true}

			token, _, err := resolver.GetToken()
			Expect(err).ToNot(HaveOccurred())
			Expect(token).To(Equal("typed-token"))
			Expect(resolver.File.Exists()).To(BeFalse())
		})
	})

	When("ClearTokens() is called", func() {
		It("removes the keyring entry and the token file", func() {
			Expect(resolver.Keyring.Set("from-keyring")).To(Succeed())
			Expect(resolver.File.Write("from-file", "pass", "pass")).To(Succeed())

			result, err := resolver.ClearTokens()
			Expect(err).ToNot(HaveOccurred())
			Expect(result.KeyringFound).To(BeTrue())
			Expect(result.KeyringRemains).To(BeFalse())
			Expect(result.FileRemoved).To(BeTrue())

			_, err = resolver.Keyring.Get()
			Expect(err).To(MatchError(ErrNotStored))
			Expect(resolver.File.Exists()).To(BeFalse())
		})

		It("succeeds when nothing is stored", func() {
			result, err := resolver.ClearTokens()
			Expect(err).ToNot(HaveOccurred())
			Expect(result).To(Equal(ClearResult{}))
		})
	})
})
