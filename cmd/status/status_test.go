package status_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/yabridge-updater/yabridge-updater/cmd/status"
	"github.com/yabridge-updater/yabridge-updater/pkg/marker"
	"github.com/yabridge-updater/yabridge-updater/pkg/shellenv"
)

func Test_Status(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Status Command")
}

var _ = Describe("Status()", func() {
	var (
		root       string
		installDir string
		env        shellenv.Environment
		out        *bytes.Buffer
	)

	BeforeEach(func() {
		root = tempDir()
		installDir = filepath.Join(root, "yabridge")
		env = shellenv.Environment{Shell: "/bin/bash", Home: root, Path: installDir}
		out = &bytes.Buffer{}
	})

	It("reports an unknown version when nothing is recorded", func() {
		Expect(status.Status(out, installDir, env)).To(Succeed())
		Expect(out.String()).To(ContainSubstring("unknown"))
		Expect(out.String()).To(ContainSubstring("missing"))
		Expect(out.String()).To(ContainSubstring("none"))
	})

	It("reports the recorded version", func() {
		Expect(os.MkdirAll(installDir, 0o755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(installDir, "yabridgectl"), []byte("#!/bin/sh\n"), 0o755)).To(Succeed())
		Expect(marker.Write(installDir, marker.Marker{SHA: "deadbeefcafe", Branch: "main"})).To(Succeed())

		Expect(status.Status(out, installDir, env)).To(Succeed())
		Expect(out.String()).To(ContainSubstring("deadbee (main)"))
		Expect(out.String()).To(ContainSubstring("present"))
		Expect(out.String()).To(ContainSubstring("included"))
	})

	It("flags a corrupt version file", func() {
		Expect(os.MkdirAll(installDir, 0o755)).To(Succeed())
		Expect(os.WriteFile(marker.Path(installDir), []byte("{"), 0o644)).To(Succeed())

		Expect(status.Status(out, installDir, env)).To(Succeed())
		Expect(out.String()).To(ContainSubstring("invalid version file"))
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
