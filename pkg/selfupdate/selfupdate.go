// Package selfupdate replaces the running yabridge-updater with its latest GitHub release
package selfupdate

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/google/go-github/v51/github"
	"github.com/inconshreveable/go-update"
	"golang.org/x/mod/semver"

	"github.com/yabridge-updater/yabridge-updater/pkg/config"
	"github.com/yabridge-updater/yabridge-updater/pkg/logger"
	"github.com/yabridge-updater/yabridge-updater/pkg/utils"
)

const checksumsAsset = "checksums.txt"

// ReleaseSource provides the releases of yabridge-updater itself
type ReleaseSource interface {
	FetchLatestRelease(ctx context.Context) (*github.RepositoryRelease, error)
	DownloadReleaseAssets(ctx context.Context, assets []*github.ReleaseAsset, dir string) error
}

type Updater struct {
	// Current is the running version
	Current string

	// TargetPath is the executable to replace; empty means the running one
	TargetPath string

	OS   string
	Arch string

	source ReleaseSource
}

func New(source ReleaseSource, current string) *Updater {
	return &Updater{
		Current: current,
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
		source:  source,
	}
}

// IsNewerVersion returns true if latest is newer than current. Builds that aren't
// tagged with a semantic version, like "dev", are always older
func IsNewerVersion(current, latest string) bool {
	if !strings.HasPrefix(current, "v") {
		current = "v" + current
	}
	if !strings.HasPrefix(latest, "v") {
		latest = "v" + latest
	}
	if !semver.IsValid(latest) {
		return false
	}
	if !semver.IsValid(current) {
		return true
	}
	return semver.Compare(latest, current) > 0
}

// AssetName returns the name of the release archive for the given platform
func AssetName(version, goos, goarch string) string {
	return fmt.Sprintf("%s_%s_%s_%s.tar.gz", config.AppName, strings.TrimPrefix(version, "v"), goos, goarch)
}

// Check fetches the latest release and reports whether it is newer than the running version
func (u *Updater) Check(ctx context.Context) (*github.RepositoryRelease, bool, error) {
	release, err := u.source.FetchLatestRelease(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to fetch latest release: %w", err)
	}
	return release, IsNewerVersion(u.Current, release.GetTagName()), nil
}

// findAssets picks the archive for this platform and the checksum list from release
func (u *Updater) findAssets(release *github.RepositoryRelease) (archive, checksums *github.ReleaseAsset, err error) {
	name := AssetName(release.GetTagName(), u.OS, u.Arch)
	for _, asset := range release.Assets {
		switch asset.GetName() {
		case name:
			archive = asset
		case checksumsAsset:
			checksums = asset
		}
	}
	if archive == nil {
		return nil, nil, fmt.Errorf("release %s has no build for %s/%s (expected '%s')", release.GetTagName(), u.OS, u.Arch, name)
	}
	if checksums == nil {
		return nil, nil, fmt.Errorf("release %s has no %s", release.GetTagName(), checksumsAsset)
	}
	return archive, checksums, nil
}

// Apply downloads release, verifies it against the published checksums and swaps it in
// for the target executable. A failed swap is rolled back
func (u *Updater) Apply(ctx context.Context, release *github.RepositoryRelease) error {
	archive, checksums, err := u.findAssets(release)
	if err != nil {
		return err
	}

	dir, err := os.MkdirTemp(os.TempDir(), "yabridge-updater-self-")
	if err != nil {
		return fmt.Errorf("failed to create temporary directory: %w", err)
	}
	defer func() {
		err := os.RemoveAll(dir)
		if err != nil {
			logger.Warn("failed to remove temporary directory '%s': %v\n", dir, err)
		}
	}()

	logger.Info("Downloading %s...\n", archive.GetName())
	err = u.source.DownloadReleaseAssets(ctx, []*github.ReleaseAsset{archive, checksums}, dir)
	if err != nil {
		return err
	}

	archivePath := filepath.Join(dir, archive.GetName())
	expected, err := utils.ChecksumFromFile(filepath.Join(dir, checksums.GetName()), archive.GetName())
	if err != nil {
		return err
	}
	err = utils.VerifySha256(archivePath, expected)
	if err != nil {
		return err
	}

	extracted := filepath.Join(dir, "extracted")
	err = utils.Unarchive(archivePath, extracted)
	if err != nil {
		return err
	}
	binary, err := findBinary(extracted)
	if err != nil {
		return err
	}
	f, err := os.Open(binary)
	if err != nil {
		return fmt.Errorf("failed to open new binary: %w", err)
	}
	defer f.Close()

	err = update.Apply(f, update.Options{TargetPath: u.TargetPath})
	if err != nil {
		if rerr := update.RollbackError(err); rerr != nil {
			return fmt.Errorf("failed to apply update and failed to roll back: %w (rollback: %v)", err, rerr)
		}
		return fmt.Errorf("failed to apply update: %w", err)
	}
	logger.Info("Updated yabridge-updater to %s\n", release.GetTagName())
	return nil
}

// findBinary locates the yabridge-updater executable anywhere inside dir
func findBinary(dir string) (string, error) {
	found := ""
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == config.AppName {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to search the release archive: %w", err)
	}
	if found == "" {
		return "", fmt.Errorf("release archive does not contain '%s'", config.AppName)
	}
	return found, nil
}
