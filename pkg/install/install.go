// Package install materializes a CI build into the installation directory
package install

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/go-github/v51/github"

	"github.com/yabridge-updater/yabridge-updater/pkg/backup"
	"github.com/yabridge-updater/yabridge-updater/pkg/logger"
	"github.com/yabridge-updater/yabridge-updater/pkg/marker"
	"github.com/yabridge-updater/yabridge-updater/pkg/utils"
)

const (
	// ControlPrefix prefixes the name of the artifact holding yabridgectl
	ControlPrefix = "yabridgectl"

	// LibraryPrefix prefixes the name of the artifact holding the plugin libraries
	LibraryPrefix = "yabridge-"

	// ControlBinary is yabridgectl's name inside the installation directory
	ControlBinary = "yabridgectl"
)

// ErrArtifactMissing is returned when a build lacks one of the expected artifacts
var ErrArtifactMissing = errors.New("required artifact missing from build")

// ArtifactAPI lists a build's artifacts and resolves where to download them from
type ArtifactAPI interface {
	ListArtifacts(ctx context.Context, artifactsURL string) ([]*github.Artifact, error)
	ArtifactDownloadURL(ctx context.Context, artifact *github.Artifact) (string, error)
}

// Downloader fetches an artifact archive and extracts it into a directory
type Downloader interface {
	DownloadAndExtract(ctx context.Context, name, url, destination string) error
}

// PathRecorder remembers the installation directory for later runs
type PathRecorder interface {
	SaveInstallPath(dir string) error
}

type Manager struct {
	api     ArtifactAPI
	fetcher Downloader
	paths   PathRecorder
}

func NewManager(api ArtifactAPI, fetcher Downloader, paths PathRecorder) *Manager {
	return &Manager{
		api:     api,
		fetcher: fetcher,
		paths:   paths,
	}
}

// Result describes a completed installation
type Result struct {
	Marker marker.Marker

	// Backup holds the previous installation, if one existed
	Backup *backup.Backup
}

// ControlPath returns the location of yabridgectl inside installDir
func ControlPath(installDir string) string {
	return filepath.Join(installDir, ControlBinary)
}

// ControlPresent reports whether installDir contains yabridgectl
func ControlPresent(installDir string) bool {
	exists, err := utils.FileExists(ControlPath(installDir))
	return err == nil && exists
}

// findArtifacts returns the first control and library artifacts, in listing order
func findArtifacts(artifacts []*github.Artifact) (ctl, libs *github.Artifact, err error) {
	for _, a := range artifacts {
		switch {
		case ctl == nil && strings.HasPrefix(a.GetName(), ControlPrefix):
			ctl = a
		case libs == nil && strings.HasPrefix(a.GetName(), LibraryPrefix):
			libs = a
		}
	}
	missing := []string{}
	if ctl == nil {
		missing = append(missing, ControlPrefix+"*")
	}
	if libs == nil {
		missing = append(missing, LibraryPrefix+"*")
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrArtifactMissing, strings.Join(missing, ", "))
	}
	return ctl, libs, nil
}

// PerformInstallation replaces the installation at destination with the build whose
// artifacts are listed at artifactsURL. An existing installation is moved into the
// backup store before anything is written
func (m *Manager) PerformInstallation(ctx context.Context, artifactsURL, destination, commitID, branch string) (Result, error) {
	logger.Info("Retrieving the artifact list...\n")
	artifacts, err := m.api.ListArtifacts(ctx, artifactsURL)
	if err != nil {
		return Result{}, fmt.Errorf("failed to list artifacts: %w", err)
	}
	ctl, libs, err := findArtifacts(artifacts)
	if err != nil {
		return Result{}, err
	}

	result := Result{}
	exists, err := utils.FileExists(destination)
	if err != nil {
		return Result{}, fmt.Errorf("failed to check for an existing installation: %w", err)
	}
	if exists {
		b, err := backup.NewStore(destination).Create(destination, backup.KindUpdate)
		if err != nil {
			return Result{}, fmt.Errorf("failed to back up the existing installation: %w", err)
		}
		result.Backup = &b
	}

	err = os.MkdirAll(destination, os.FileMode(0o755))
	if err != nil {
		return result, fmt.Errorf("failed to create installation directory '%s': %w", destination, err)
	}

	for _, artifact := range []*github.Artifact{ctl, libs} {
		url, err := m.api.ArtifactDownloadURL(ctx, artifact)
		if err != nil {
			return result, err
		}
		logger.Info("Downloading '%s'...\n", artifact.GetName())
		err = m.fetcher.DownloadAndExtract(ctx, artifact.GetName(), url, destination)
		if err != nil {
			return result, err
		}
	}

	result.Marker = marker.Marker{SHA: commitID, Branch: branch}
	err = marker.Write(destination, result.Marker)
	if err != nil {
		return result, err
	}
	err = m.paths.SaveInstallPath(destination)
	if err != nil {
		return result, err
	}
	logger.Info("Installed %s into %s\n", result.Marker, destination)
	return result, nil
}
