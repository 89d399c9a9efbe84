package utils

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// FileExists reports whether anything exists at path
func FileExists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// WriteFile copies the contents of r into a newly created (or truncated) file at path
func WriteFile(r io.Reader, path string, perm os.FileMode) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("failed to create '%s': %w", path, err)
	}
	_, err = io.Copy(file, r)
	if err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to write '%s': %w", path, err)
	}
	return file.Close()
}

// GetLineInReader returns the first line read from r that contains key
func GetLineInReader(r io.Reader, key string) (string, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, key) {
			return line, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("no line matching '%s' found", key)
}

// GetLineInFileMatchingKey returns the first line of the file at path that contains key
func GetLineInFileMatchingKey(path, key string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open '%s': %w", path, err)
	}
	defer file.Close()
	return GetLineInReader(file, key)
}
