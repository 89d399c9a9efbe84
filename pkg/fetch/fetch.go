// Package fetch downloads CI artifacts and unpacks them into an installation directory.
//
// An artifact is a zip archive wrapping a single .tar.gz whose members live below one
// wrapper directory; the wrapper is stripped on extraction.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"

	"github.com/yabridge-updater/yabridge-updater/pkg/logger"
	"github.com/yabridge-updater/yabridge-updater/pkg/progress"
	"github.com/yabridge-updater/yabridge-updater/pkg/utils"
)

var (
	// ErrNotZip is returned when the downloaded artifact isn't a valid zip archive
	ErrNotZip = errors.New("downloaded artifact is not a valid zip archive")

	// ErrNoInnerArchive is returned when the artifact doesn't contain a .tar.gz
	ErrNoInnerArchive = errors.New("no .tar.gz archive found in artifact")
)

type Fetcher struct {
	// Client performs the download. Artifact blob URLs are pre-signed, so it carries no credentials
	Client *http.Client

	// Progress receives the download progress output
	Progress io.Writer
}

// New returns a Fetcher reporting progress on stdout
func New() *Fetcher {
	return &Fetcher{
		Client:   http.DefaultClient,
		Progress: os.Stdout,
	}
}

// DownloadAndExtract downloads the artifact archive at url and extracts its inner
// tarball into destination, minus the tarball's top-level directory
func (f *Fetcher) DownloadAndExtract(ctx context.Context, name, url, destination string) error {
	scratch, err := os.MkdirTemp(os.TempDir(), "yabridge-updater-")
	if err != nil {
		return fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer func() {
		err := os.RemoveAll(scratch)
		if err != nil {
			logger.Warn("failed to remove scratch directory '%s': %v\n", scratch, err)
		}
	}()

	archive := filepath.Join(scratch, "artifact.zip")
	err = f.download(ctx, name, url, archive)
	if err != nil {
		return err
	}

	if !utils.IsZip(archive) {
		return fmt.Errorf("%w: '%s'", ErrNotZip, name)
	}
	unpacked := filepath.Join(scratch, "unpacked")
	err = utils.Unzip(archive, unpacked)
	if err != nil {
		return fmt.Errorf("failed to unpack artifact '%s': %w", name, err)
	}

	tarball, err := innerArchive(unpacked)
	if err != nil {
		return fmt.Errorf("artifact '%s': %w", name, err)
	}
	logger.Debug("extracting '%s' to '%s'\n", filepath.Base(tarball), destination)
	err = utils.UnarchiveStrip(tarball, destination, 1)
	if err != nil {
		return fmt.Errorf("failed to extract artifact '%s': %w", name, err)
	}
	return nil
}

func (f *Fetcher) download(ctx context.Context, name, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build download request for '%s': %w", name, err)
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download '%s': %w", name, err)
	}
	defer func() {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			logger.Warn("failed to close response body for '%s': %v\n", name, closeErr)
		}
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("failed to download '%s': server returned %s", name, resp.Status)
	}

	bar := progress.New(f.Progress, name, resp.ContentLength)
	err = utils.WriteFile(io.TeeReader(resp.Body, bar), path, os.FileMode(0o600))
	if err != nil {
		return fmt.Errorf("failed to download '%s': %w", name, err)
	}
	bar.Finish()
	return nil
}

// innerArchive returns the first .tar.gz directly inside dir, in sorted order
func innerArchive(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.tar.gz"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", ErrNoInnerArchive
	}
	sort.Strings(matches)
	if len(matches) > 1 {
		logger.Debug("found %d tarballs, using '%s'\n", len(matches), filepath.Base(matches[0]))
	}
	return matches[0], nil
}
