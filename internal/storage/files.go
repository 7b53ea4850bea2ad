package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Backup copies the vault file at src to dst
func Backup(src, dst string) error {
	if err := copyFile(src, dst); err != nil {
		return fmt.Errorf("failed to create backup: %w", err)
	}
	return nil
}

// Restore copies a backup file at src over the vault file at dst
func Restore(src, dst string) error {
	if err := copyFile(src, dst); err != nil {
		return fmt.Errorf("failed to restore vault: %w", err)
	}
	return nil
}

// copyFile writes src to a temporary file beside dst and renames it into
// place, so dst is either untouched or a complete copy.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrSourceMissing, src)
		}
		return storageErr("copy", err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), DirPermSecure); err != nil {
		return storageErr("copy", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".tmp-*")
	if err != nil {
		return storageErr("copy", err)
	}
	tmpPath := tmp.Name()

	cleanup := func(err error) error {
		tmp.Close()
		os.Remove(tmpPath)
		return storageErr("copy", err)
	}

	if _, err := io.Copy(tmp, in); err != nil {
		return cleanup(err)
	}
	if err := tmp.Chmod(FilePermSecure); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return storageErr("copy", err)
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		os.Remove(tmpPath)
		return storageErr("copy", err)
	}
	return nil
}
