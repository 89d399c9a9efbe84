package marker_test

import (
	"errors"
	"os"
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/yabridge-updater/yabridge-updater/pkg/marker"
)

func Test_Marker(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Marker Package")
}

var _ = Describe("Marker", func() {
	var dir string

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp(os.TempDir(), "marker-")
		Expect(err).ToNot(HaveOccurred())
	})

	AfterEach(func() {
		Expect(os.RemoveAll(dir)).To(Succeed())
	})

	It("reads back what was written", func() {
		m := marker.Marker{SHA: "deadbeefcafe", Branch: "main"}
		Expect(marker.Write(dir, m)).To(Succeed())

		read, err := marker.Read(dir)
		Expect(err).ToNot(HaveOccurred())
		Expect(read).To(Equal(m))
		Expect(read.String()).To(Equal("deadbee (main)"))
	})

	It("stores the sha and branch as JSON", func() {
		Expect(marker.Write(dir, marker.Marker{SHA: "deadbeef", Branch: "main"})).To(Succeed())

		data, err := os.ReadFile(marker.Path(dir))
		Expect(err).ToNot(HaveOccurred())
		Expect(data).To(MatchJSON(`{"sha":"deadbeef","branch":"main"}`))
	})

	It("reports a missing marker", func() {
		_, err := marker.Read(dir)
		Expect(errors.Is(err, marker.ErrMissing)).To(BeTrue())
	})

	It("rejects corrupt JSON", func() {
		Expect(os.WriteFile(marker.Path(dir), []byte("{sha:"), 0o644)).To(Succeed())

		_, err := marker.Read(dir)
		Expect(errors.Is(err, marker.ErrInvalid)).To(BeTrue())
	})

	It("rejects a marker without a branch", func() {
		Expect(os.WriteFile(marker.Path(dir), []byte(`{"sha":"deadbeef"}`), 0o644)).To(Succeed())

		_, err := marker.Read(dir)
		Expect(errors.Is(err, marker.ErrInvalid)).To(BeTrue())
	})
})
