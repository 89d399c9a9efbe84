package prunebackups_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/yabridge-updater/yabridge-updater/cmd/prunebackups"
	"github.com/yabridge-updater/yabridge-updater/pkg/backup"
	"github.com/yabridge-updater/yabridge-updater/pkg/exitcodes"
)

func Test_Prunebackups(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Prune-backups Command")
}

var _ = Describe("prune-backups", func() {
	var store *backup.Store

	BeforeEach(func() {
		store = backup.NewStore(filepath.Join(tempDir(), "yabridge"))
		for _, name := range []string{
			"backup-2024-01-01_10-00-00",
			"backup-2024-01-01_11-00-00",
			"backup-2024-01-01_12-00-00",
			"pre-restore-2024-01-01_13-00-00",
			"backup-2024-01-01_14-00-00",
		} {
			Expect(os.MkdirAll(filepath.Join(store.Dir, name), 0o755)).To(Succeed())
		}
	})

	It("keeps only the newest two of five", func() {
		Expect(prunebackups.Prune(store, 2)).To(Succeed())

		backups, err := store.List()
		Expect(err).ToNot(HaveOccurred())
		names := []string{}
		for _, b := range backups {
			names = append(names, b.Name)
		}
		Expect(names).To(Equal([]string{"backup-2024-01-01_14-00-00", "pre-restore-2024-01-01_13-00-00"}))
	})

	It("does nothing when fewer backups exist", func() {
		Expect(prunebackups.Prune(store, 10)).To(Succeed())

		backups, err := store.List()
		Expect(err).ToNot(HaveOccurred())
		Expect(backups).To(HaveLen(5))
	})

	It("rejects a malformed count", func() {
		_, err := prunebackups.ParseKeep("two")
		Expect(exitcodes.CodeForError(err)).To(Equal(exitcodes.InvalidArgs))

		_, err = prunebackups.ParseKeep("-1")
		Expect(exitcodes.CodeForError(err)).To(Equal(exitcodes.InvalidArgs))

		keep, err := prunebackups.ParseKeep("0")
		Expect(err).ToNot(HaveOccurred())
		Expect(keep).To(Equal(0))
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
