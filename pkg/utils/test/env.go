/*
test defines various utilities to aid in testing packages
*/
package test

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/yabridge-updater/yabridge-updater/pkg/source/github"
)

// Dir is a temporary directory whose structure matches what's expected around an
// installation: Root holds the live install directory "yabridge" and its sibling
// backups directory.
//
// After creating a new Dir, it is the user's responsibility to
// call Cleanup() to dispose of it's contents
type Dir struct {
	Root    string
	Install string
}

// NewDir builds a new temporary environment for testing.
func NewDir() (Dir, error) {
	root, err := os.MkdirTemp(os.TempDir(), "yabridge-updater-")
	if err != nil {
		return Dir{}, err
	}
	d := Dir{
		Root:    root,
		Install: filepath.Join(root, "yabridge"),
	}
	return d, nil
}

// Cleanup disposes of the test environment and it's contents
func (d Dir) Cleanup() error {
	return os.RemoveAll(d.Root)
}

// Create writes a file at the provided path relative to the Root, creating parent directories
func (d Dir) Create(path string, perm os.FileMode, contents string) error {
	fullPath := filepath.Join(d.Root, path)
	err := os.MkdirAll(filepath.Dir(fullPath), os.FileMode(0o755))
	if err != nil {
		return err
	}
	return os.WriteFile(fullPath, []byte(contents), perm)
}

// ReadFile returns the contents of the file at path relative to the Root
func (d Dir) ReadFile(path string) (string, error) {
	data, err := os.ReadFile(filepath.Join(d.Root, path))
	return string(data), err
}

// Exists returns true if something is present at path relative to the Root
func (d Dir) Exists(path string) bool {
	_, err := os.Lstat(filepath.Join(d.Root, path))
	return err == nil
}

// Entries lists the names contained in the directory at path relative to the Root, sorted
func (d Dir) Entries(path string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(d.Root, path))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Snapshot maps every regular file and symlink under the directory at path (relative to
// the Root) to its contents or link target, so trees can be compared byte for byte
func (d Dir) Snapshot(path string) (map[string]string, error) {
	base := filepath.Join(d.Root, path)
	snap := map[string]string{}
	err := filepath.Walk(base, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(base, p)
		if err != nil {
			return err
		}
		switch {
		case info.Mode()&os.ModeSymlink != 0:
			target, err := os.Readlink(p)
			if err != nil {
				return err
			}
			snap[rel] = "-> " + target
		case info.IsDir():
			snap[rel+"/"] = ""
		default:
			data, err := os.ReadFile(p)
			if err != nil {
				return err
			}
			snap[rel] = string(data)
		}
		return nil
	})
	return snap, err
}

// GithubEnv is a temporary environment containing both a
// pkg/source/github.TestSource and a Dir for the installation.
//
// After creating a new GithubEnv, it is the user's responsibility
// to call Cleanup() to dispose of it's contents
type GithubEnv struct {
	// TestSource provides a normal pkg/source/github.Source paired with
	// an httptest.Server for testing against
	*github.TestSource

	// Dir contains references to the temporary directory owned
	// by this GithubEnv
	Dir
}

// NewGithubEnv constructs a new GithubEnv to test against
func NewGithubEnv(owner, repo string) (*GithubEnv, error) {
	src, err := github.NewTestSource(owner, repo)
	if err != nil {
		return &GithubEnv{}, err
	}
	dir, err := NewDir()
	if err != nil {
		src.Cleanup()
		return &GithubEnv{}, err
	}
	env := &GithubEnv{
		TestSource: src,
		Dir:        dir,
	}
	return env, nil
}

// Cleanup disposes of the test environment's components and their contents
func (e *GithubEnv) Cleanup() error {
	e.TestSource.Cleanup()
	return e.Dir.Cleanup()
}
