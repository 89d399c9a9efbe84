package utils

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/yabridge-updater/yabridge-updater/pkg/logger"
)

// Unarchive decompresses and extracts the contents of .tar.gz bundles to the specified destination
func Unarchive(source string, destination string) error {
	return UnarchiveStrip(source, destination, 0)
}

// UnarchiveStrip extracts a .tar.gz bundle like Unarchive, removing the first strip
// components of every member name. Members left with an empty name are skipped
func UnarchiveStrip(source string, destination string, strip int) error {
	src, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("failed to open tarball '%s': %w", source, err)
	}
	defer func() {
		closeErr := src.Close()
		if closeErr != nil {
			logger.Warn("failed to close '%s': %v\n", src.Name(), closeErr)
		}
	}()
	uncompressed, err := gzip.NewReader(src)
	if err != nil {
		return fmt.Errorf("failed to read the gzip file '%s': %w", source, err)
	}
	defer func() {
		closeErr := uncompressed.Close()
		if closeErr != nil {
			logger.Warn("failed to close gzip file '%s': %v\n", source, closeErr)
		}
	}()
	arc := tar.NewReader(uncompressed)
	var f *tar.Header
	for {
		f, err = arc.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read from archive '%s': %w", source, err)
		}
		name, ok := StripComponents(f.Name, strip)
		if !ok {
			logger.Debug("skipping archive member '%s'\n", f.Name)
			continue
		}
		target, err := SecureJoin(destination, name)
		if err != nil {
			return err
		}
		err = checkParents(destination, target)
		if err != nil {
			return err
		}
		switch f.Typeflag {
		case tar.TypeDir:
			err = refuseSymlink(target)
			if err != nil {
				return err
			}
			err = os.MkdirAll(target, f.FileInfo().Mode().Perm()|0o700)
			if err != nil {
				return fmt.Errorf("failed to create a directory : %w", err)
			}
		case tar.TypeReg:
			err = extractFile(target, f, arc)
			if err != nil {
				return fmt.Errorf("failed to extract files: %w", err)
			}
		case tar.TypeSymlink:
			err = extractSymlink(destination, target, f.Linkname)
			if err != nil {
				return fmt.Errorf("failed to extract symlink: %w", err)
			}
		default:
			logger.Debug("skipping unsupported archive member '%s' (type %c)\n", f.Name, f.Typeflag)
		}
	}
	return nil
}

// StripComponents removes the first n slash-separated components from an archive
// member name. The second return value is false if nothing remains
func StripComponents(name string, n int) (string, bool) {
	cleaned := path.Clean(strings.TrimLeft(filepath.ToSlash(name), "/"))
	if cleaned == "." || cleaned == "" {
		return "", false
	}
	parts := strings.Split(cleaned, "/")
	if len(parts) <= n {
		return "", false
	}
	return path.Join(parts[n:]...), true
}

// SecureJoin joins name onto root, refusing names that would resolve outside of root
func SecureJoin(root, name string) (string, error) {
	target := filepath.Join(root, filepath.FromSlash(name))
	if !within(root, target) {
		return "", fmt.Errorf("archive member '%s' escapes the destination directory", name)
	}
	return target, nil
}

// Unzip extracts files from a zip archive to the specified destination directory.
func Unzip(source string, destination string) error {
	// Open the zip archive for reading
	reader, err := zip.OpenReader(source)
	if err != nil {
		return err
	}
	defer func(reader *zip.ReadCloser) {
		err := reader.Close()
		if err != nil {
			logger.Warn("possible memory leak: failed to close %s\n", source)
		}
	}(reader)

	// Create the destination directory if it doesn't exist
	if err := os.MkdirAll(destination, os.ModePerm); err != nil {
		return err
	}

	// Extract each file from the zip archive
	for _, file := range reader.File {
		filePath, err := SecureJoin(destination, file.Name)
		if err != nil {
			return err
		}
		if file.FileInfo().IsDir() {
			err := os.MkdirAll(filePath, os.ModePerm)
			if err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(filePath), os.ModePerm); err != nil {
			return err
		}

		err = unzipFile(file, filePath)
		if err != nil {
			return fmt.Errorf("failed to extract '%s': %w", file.Name, err)
		}
	}

	return nil
}

func unzipFile(file *zip.File, filePath string) error {
	inputFile, err := file.Open()
	if err != nil {
		return err
	}
	defer inputFile.Close()
	return WriteFile(inputFile, filePath, file.Mode())
}

// IsZip reports whether the file at source is a readable zip archive
func IsZip(source string) bool {
	reader, err := zip.OpenReader(source)
	if err != nil {
		return false
	}
	_ = reader.Close()
	return true
}

func extractFile(target string, f *tar.Header, arc io.Reader) error {
	err := refuseSymlink(target)
	if err != nil {
		return err
	}
	err = os.MkdirAll(filepath.Dir(target), os.FileMode(0o755))
	if err != nil {
		return err
	}
	return WriteFile(arc, target, os.FileMode(f.Mode).Perm())
}

func extractSymlink(root, target, linkname string) error {
	if filepath.IsAbs(linkname) {
		return fmt.Errorf("symlink '%s' -> '%s' escapes the destination directory", target, linkname)
	}
	exists, err := FileExists(target)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("refusing to replace '%s' with a symlink", target)
	}
	err = os.MkdirAll(filepath.Dir(target), os.FileMode(0o755))
	if err != nil {
		return err
	}

	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return err
	}
	realDir, err := filepath.EvalSymlinks(filepath.Dir(target))
	if err != nil {
		return err
	}
	resolved, err := resolveLink(realDir, linkname)
	if err != nil || !within(realRoot, resolved) {
		return fmt.Errorf("symlink '%s' -> '%s' escapes the destination directory", target, linkname)
	}
	return os.Symlink(linkname, target)
}

// checkParents refuses targets below a symlink inside root, so links extracted
// earlier can't redirect later members
func checkParents(root, target string) error {
	rel, err := filepath.Rel(root, filepath.Dir(target))
	if err != nil {
		return err
	}
	if rel == "." {
		return nil
	}
	current := root
	for _, part := range strings.Split(rel, string(os.PathSeparator)) {
		current = filepath.Join(current, part)
		info, err := os.Lstat(current)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if err != nil {
			return err
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("archive member '%s' is below the symlink '%s'", target, current)
		}
	}
	return nil
}

func refuseSymlink(target string) error {
	info, err := os.Lstat(target)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("refusing to write through the symlink '%s'", target)
	}
	return nil
}

// resolveLink returns where linkname, relative to the real directory dir, points on
// disk. The longest existing prefix is resolved by the filesystem; the rest is joined
// lexically and may not contain "..", since later members could change what it means
func resolveLink(dir, linkname string) (string, error) {
	parts := strings.Split(filepath.ToSlash(linkname), "/")
	for i := len(parts); i > 0; i-- {
		prefix := dir + string(os.PathSeparator) + filepath.FromSlash(strings.Join(parts[:i], "/"))
		if _, err := os.Stat(prefix); err != nil {
			continue
		}
		resolved, err := filepath.EvalSymlinks(prefix)
		if err != nil {
			return "", err
		}
		return joinRemainder(resolved, parts[i:])
	}
	return joinRemainder(dir, parts)
}

func joinRemainder(base string, rest []string) (string, error) {
	for _, part := range rest {
		if part == ".." {
			return "", fmt.Errorf("'..' after a missing path component")
		}
	}
	return filepath.Join(append([]string{base}, rest...)...), nil
}

// within reports whether path is root or below it
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator))
}
