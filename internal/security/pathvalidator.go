// Package security confines vault file operations to the vaults directory.
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrPathEscapes  = errors.New("path escapes vaults directory")
	ErrAbsolutePath = errors.New("absolute paths are not allowed")
	ErrEmptyPath    = errors.New("empty path not allowed")
)

// PathValidator validates vault file names and performs file operations
// through an os.Root opened on the vaults directory, so a crafted registry
// entry or symlink cannot reach files outside it.
type PathValidator struct {
	root    *os.Root
	rootDir string
}

// New opens a PathValidator on dir. The directory must exist.
func New(dir string) (*PathValidator, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	root, err := os.OpenRoot(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open vaults directory: %w", err)
	}

	return &PathValidator{
		root:    root,
		rootDir: absPath,
	}, nil
}

// Close releases the underlying os.Root
func (pv *PathValidator) Close() error {
	if pv.root != nil {
		return pv.root.Close()
	}
	return nil
}

// Dir returns the absolute vaults directory
func (pv *PathValidator) Dir() string {
	return pv.rootDir
}

// ValidateAndNormalize checks that name is a local path below the vaults
// directory and returns it cleaned, with forward slashes.
func (pv *PathValidator) ValidateAndNormalize(name string) (string, error) {
	if name == "" {
		return "", ErrEmptyPath
	}

	if !filepath.IsLocal(name) {
		if filepath.IsAbs(name) {
			return "", fmt.Errorf("%w: %s", ErrAbsolutePath, name)
		}
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, name)
	}

	cleanPath := filepath.Clean(name)
	relPath, err := filepath.Rel(pv.rootDir, filepath.Join(pv.rootDir, cleanPath))
	if err != nil {
		return "", fmt.Errorf("failed to compute relative path: %w", err)
	}
	if strings.HasPrefix(relPath, "..") || filepath.IsAbs(relPath) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, name)
	}

	return filepath.ToSlash(relPath), nil
}

// ValidateExistingPath validates a path read back from the registry file.
// Absolute paths inside the vaults directory, as older registries wrote
// them, are accepted and converted to relative form.
func (pv *PathValidator) ValidateExistingPath(stored string) (string, error) {
	platformPath := filepath.FromSlash(stored)
	if filepath.IsAbs(platformPath) {
		rel, err := filepath.Rel(pv.rootDir, filepath.Clean(platformPath))
		if err != nil {
			return "", fmt.Errorf("%w: %s", ErrPathEscapes, stored)
		}
		platformPath = rel
	}
	return pv.ValidateAndNormalize(platformPath)
}

// Abs returns the absolute location of a validated relative path
func (pv *PathValidator) Abs(name string) (string, error) {
	rel, err := pv.ValidateAndNormalize(filepath.FromSlash(name))
	if err != nil {
		return "", err
	}
	return filepath.Join(pv.rootDir, filepath.FromSlash(rel)), nil
}

// WriteFileAtomic writes data to a temporary file in the root, syncs it
// and renames it over name.
func (pv *PathValidator) WriteFileAtomic(name string, data []byte, perm os.FileMode) error {
	platformPath := filepath.FromSlash(name)
	if _, err := pv.ValidateAndNormalize(platformPath); err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	tmpPath := platformPath + ".tmp"
	f, err := pv.root.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		_ = pv.root.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = pv.root.Remove(tmpPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = pv.root.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := pv.root.Rename(tmpPath, platformPath); err != nil {
		_ = pv.root.Remove(tmpPath)
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}

// ReadFileInRoot reads a file inside the vaults directory
func (pv *PathValidator) ReadFileInRoot(name string) ([]byte, error) {
	platformPath := filepath.FromSlash(name)
	if _, err := pv.ValidateAndNormalize(platformPath); err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	return pv.root.ReadFile(platformPath)
}

// StatInRoot stats a file inside the vaults directory
func (pv *PathValidator) StatInRoot(name string) (os.FileInfo, error) {
	platformPath := filepath.FromSlash(name)
	if _, err := pv.ValidateAndNormalize(platformPath); err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	return pv.root.Stat(platformPath)
}

// RemoveInRoot removes a file inside the vaults directory. A missing file
// is not an error.
func (pv *PathValidator) RemoveInRoot(name string) error {
	platformPath := filepath.FromSlash(name)
	if _, err := pv.ValidateAndNormalize(platformPath); err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	if err := pv.root.Remove(platformPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// RenameInRoot renames a file within the vaults directory
func (pv *PathValidator) RenameInRoot(from, to string) error {
	fromPath := filepath.FromSlash(from)
	toPath := filepath.FromSlash(to)
	if _, err := pv.ValidateAndNormalize(fromPath); err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	if _, err := pv.ValidateAndNormalize(toPath); err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	return pv.root.Rename(fromPath, toPath)
}
