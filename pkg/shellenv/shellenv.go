// Package shellenv integrates an installation with the user's shell and runs yabridgectl
package shellenv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/yabridge-updater/yabridge-updater/pkg/config"
	"github.com/yabridge-updater/yabridge-updater/pkg/exitcodes"
	"github.com/yabridge-updater/yabridge-updater/pkg/logger"
	"github.com/yabridge-updater/yabridge-updater/pkg/utils"
)

// ErrControlMissing is returned when yabridgectl isn't where it was installed
var ErrControlMissing = errors.New("yabridgectl not found")

// MarkerComment precedes every line appended to a shell startup file
const MarkerComment = "# Added by " + config.AppName

// Status is the outcome of CheckPath
type Status int

const (
	// InPath means the directory is already on $PATH
	InPath Status = iota
	// Configured means the shell file already extends $PATH, but the current shell hasn't loaded it
	Configured
	// NeedsUpdate means the line should be appended to the shell file
	NeedsUpdate
	// UnknownShell means the user has to extend $PATH by hand
	UnknownShell
)

// PathCheck describes how installDir relates to the user's search path
type PathCheck struct {
	Status Status
	Dir    string
	Shell  string

	// File and Line are set for supported shells
	File string
	Line string
}

// Environment is the part of the process environment consulted when editing $PATH
type Environment struct {
	Shell string
	Home  string
	Path  string
}

// CurrentEnvironment reads $SHELL, $PATH and the home directory
func CurrentEnvironment() (Environment, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Environment{}, fmt.Errorf("failed to retrieve $HOME dir: %w", err)
	}
	return Environment{
		Shell: os.Getenv("SHELL"),
		Home:  home,
		Path:  os.Getenv("PATH"),
	}, nil
}

// shellConfig returns the startup file and the line extending $PATH with dir for shell
func (e Environment) shellConfig(shell, dir string) (string, string, bool) {
	switch shell {
	case "bash":
		return filepath.Join(e.Home, ".bashrc"), fmt.Sprintf("export PATH=\"%s:$PATH\"", dir), true
	case "zsh":
		return filepath.Join(e.Home, ".zshrc"), fmt.Sprintf("export PATH=\"%s:$PATH\"", dir), true
	case "fish":
		return filepath.Join(e.Home, ".config", "fish", "config.fish"), fmt.Sprintf("fish_add_path %s", dir), true
	}
	return "", "", false
}

// CheckPath determines whether installDir still has to be added to the search path
func (e Environment) CheckPath(installDir string) (PathCheck, error) {
	check := PathCheck{
		Dir:   installDir,
		Shell: filepath.Base(e.Shell),
	}
	for _, entry := range filepath.SplitList(e.Path) {
		if entry != "" && filepath.Clean(entry) == filepath.Clean(installDir) {
			check.Status = InPath
			return check, nil
		}
	}

	file, line, ok := e.shellConfig(check.Shell, installDir)
	if !ok {
		check.Status = UnknownShell
		return check, nil
	}
	check.File = file
	check.Line = line

	data, err := os.ReadFile(file)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return check, fmt.Errorf("failed to read '%s': %w", file, err)
	}
	if strings.Contains(string(data), line) {
		check.Status = Configured
		return check, nil
	}
	check.Status = NeedsUpdate
	return check, nil
}

// AppendPath adds the line from check to its shell startup file
func AppendPath(check PathCheck) error {
	if check.Status != NeedsUpdate {
		return nil
	}
	err := os.MkdirAll(filepath.Dir(check.File), os.FileMode(0o755))
	if err != nil {
		return fmt.Errorf("failed to create directory for '%s': %w", check.File, err)
	}
	file, err := os.OpenFile(check.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, os.FileMode(0o644))
	if err != nil {
		return fmt.Errorf("failed to open '%s' for appending: %w", check.File, err)
	}
	_, err = fmt.Fprintf(file, "\n%s\n%s\n", MarkerComment, check.Line)
	if err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to write to '%s': %w", check.File, err)
	}
	return file.Close()
}

// Sync runs "yabridgectl sync --prune"
type Sync struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewSync returns a Sync attached to the terminal
func NewSync() *Sync {
	return &Sync{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Run executes the sync. A non-zero exit status is returned as an error carrying that status
func (s *Sync) Run(ctx context.Context, ctlPath string) error {
	exists, err := utils.FileExists(ctlPath)
	if err != nil {
		return err
	}
	if !exists {
		return exitcodes.WrapError(exitcodes.GeneralError, fmt.Sprintf("cannot sync, '%s' does not exist", ctlPath), ErrControlMissing)
	}

	logger.Info("Running 'yabridgectl sync --prune'...\n")
	cmd := exec.CommandContext(ctx, ctlPath, "sync", "--prune")
	cmd.Stdin = s.Stdin
	cmd.Stdout = s.Stdout
	cmd.Stderr = s.Stderr
	err = cmd.Run()
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
		return exitcodes.WrapError(exitErr.ExitCode(), "yabridgectl sync failed", err)
	}
	return exitcodes.WrapError(exitcodes.GeneralError, "failed to run yabridgectl", err)
}
