package progress_test

import (
	"bytes"
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"

	"github.com/yabridge-updater/yabridge-updater/pkg/progress"
)

func Test_Progress(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Progress Package")
}

var _ = Describe("Bar", func() {
	var out *bytes.Buffer

	BeforeEach(func() {
		out = &bytes.Buffer{}
	})

	When("the length is known", func() {
		It("reports progress in steps of ten percent", func() {
			bar := progress.New(out, "yabridgectl", 100)
			for i := 0; i < 4; i++ {
				_, err := bar.Write(make([]byte, 25))
				Expect(err).ToNot(HaveOccurred())
			}
			bar.Finish()

			Expect(out.String()).To(ContainSubstring("Downloading yabridgectl... 20%"))
			Expect(out.String()).To(ContainSubstring("Downloading yabridgectl... 50%"))
			Expect(out.String()).To(ContainSubstring("Downloading yabridgectl... 100%"))
			Expect(out.String()).ToNot(ContainSubstring("Downloaded"))
			pct, known := bar.Percent()
			Expect(known).To(BeTrue())
			Expect(pct).To(Equal(1.0))
		})

		It("caps the percentage when more bytes arrive than declared", func() {
			bar := progress.New(out, "yabridgectl", 10)
			_, _ = bar.Write(make([]byte, 20))

			pct, _ := bar.Percent()
			Expect(pct).To(Equal(1.0))
		})
	})

	When("the length is unknown", func() {
		It("draws no bar and prints a completion line", func() {
			bar := progress.New(out, "yabridge-libs", progress.Unknown)
			_, _ = bar.Write(make([]byte, 2048))
			bar.Finish()

			_, known := bar.Percent()
			Expect(known).To(BeFalse())
			Expect(out.String()).To(Equal("Downloaded yabridge-libs (2.0 KiB)\n"))
		})
	})

	When("the declared length is zero", func() {
		It("reports an empty download instead of dividing by zero", func() {
			bar := progress.New(out, "yabridgectl", 0)
			bar.Finish()

			Expect(out.String()).To(ContainSubstring("empty download"))
			Expect(bar.Current()).To(BeZero())
		})
	})
})

var _ = DescribeTable("FormatBytes()",
	func(n int64, expected string) {
		Expect(progress.FormatBytes(n)).To(Equal(expected))
	},
	Entry("bytes", int64(512), "512 B"),
	Entry("kibibytes", int64(1536), "1.5 KiB"),
	Entry("mebibytes", int64(5*1024*1024), "5.0 MiB"),
)
