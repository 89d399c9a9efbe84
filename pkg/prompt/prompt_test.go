package prompt

import (
	"bytes"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func Test_Prompt(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Prompt Package")
}

var _ = Describe("Terminal", func() {
	var out *bytes.Buffer

	BeforeEach(func() {
		out = &bytes.Buffer{}
	})

	When("Choose() is called and", func() {
		It("asks again until a valid number is entered", func() {
			p := New(strings.NewReader("abc\n0\n4\n2\n"), out)

			idx, err := p.Choose("Pick a branch:", []string{"master", "new-wine", "feature"})
			Expect(err).ToNot(HaveOccurred())
			Expect(idx).To(Equal(1))
			Expect(strings.Count(out.String(), "Selection (1-3): ")).To(Equal(4))
			Expect(out.String()).To(ContainSubstring("2) new-wine"))
		})

		It("returns ErrNoInput when input runs out", func() {
			p := New(strings.NewReader("x\n"), out)

			_, err := p.Choose("Pick:", []string{"a"})
			Expect(err).To(MatchError(ErrNoInput))
		})

		It("refuses an empty option list", func() {
			p := New(strings.NewReader("1\n"), out)

			_, err := p.Choose("Pick:", nil)
			Expect(err).To(HaveOccurred())
		})
	})

	When("Confirm() is called and", func() {
		It("uses the default on an empty answer", func() {
			p := New(strings.NewReader("\n\n"), out)

			yes, err := p.Confirm("Continue?", true)
			Expect(err).ToNot(HaveOccurred())
			Expect(yes).To(BeTrue())

			yes, err = p.Confirm("Continue?", false)
			Expect(err).ToNot(HaveOccurred())
			Expect(yes).To(BeFalse())
		})

		It("accepts yes/no in any case and re-asks otherwise", func() {
			p := New(strings.NewReader("maybe\nYES\n"), out)

			yes, err := p.Confirm("Continue?", false)
			Expect(err).ToNot(HaveOccurred())
			Expect(yes).To(BeTrue())
			Expect(strings.Count(out.String(), "Continue? (y/N) ")).To(Equal(2))
		})
	})

	It("reads secrets as plain lines when not attached to a terminal", func() {
		p := New(strings.NewReader("  ghp_secret  \n"), out)
		Expect(p.interactive()).To(BeFalse())

		secret, err := p.Secret("Token: ")
		Expect(err).ToNot(HaveOccurred())
		Expect(secret).To(Equal("ghp_secret"))
	})

	It("answers every confirmation with yes when wrapped in AssumeYes", func() {
		p := AssumeYes{Prompter: New(strings.NewReader(""), out)}

		yes, err := p.Confirm("Install?", false)
		Expect(err).ToNot(HaveOccurred())
		Expect(yes).To(BeTrue())
	})
})
