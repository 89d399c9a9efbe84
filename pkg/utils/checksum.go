package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// Sha256sum reads the file at the provided path and calculates the sha256sum
func Sha256sum(filepath string) (string, error) {
	file, err := os.Open(filepath)
	if err != nil {
		return "", fmt.Errorf("failed to read file '%s' while generating sha256sum: %w", filepath, err)
	}
	defer file.Close()

	hash := sha256.New()
	_, err = io.Copy(hash, file)
	if err != nil {
		return "", fmt.Errorf("failed to hash file '%s': %w", filepath, err)
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// ChecksumFromFile finds the entry for name in a "<sum>  <name>" style checksum file
func ChecksumFromFile(checksumFile, name string) (string, error) {
	line, err := GetLineInFileMatchingKey(checksumFile, name)
	if err != nil {
		return "", fmt.Errorf("failed to retrieve checksum for '%s': %w", name, err)
	}
	tokens := strings.Fields(line)
	if len(tokens) != 2 {
		return "", fmt.Errorf("the checksum file '%s' is invalid: expected 2 fields, got %d", checksumFile, len(tokens))
	}
	return tokens[0], nil
}

// VerifySha256 compares the sha256sum of the file at path with the expected hex digest
func VerifySha256(path, expected string) error {
	actual, err := Sha256sum(path)
	if err != nil {
		return err
	}
	if !strings.EqualFold(strings.TrimSpace(actual), strings.TrimSpace(expected)) {
		return fmt.Errorf("checksum for %s does not match the calculated value: expected '%s', got '%s'", path, strings.TrimSpace(expected), actual)
	}
	return nil
}
