package cmd

import (
	"fmt"
	"os"

	"github.com/illarion/passvault/internal/registry"
	"github.com/illarion/passvault/internal/storage"
)

// Compact reclaims unused space in a vault file. No password is needed.
func (a *App) Compact(vaultName string) error {
	info, ok := a.Registry.Get(vaultName)
	if !ok {
		return fmt.Errorf("%w: %s", registry.ErrVaultNotFound, vaultName)
	}
	path, err := a.Registry.FilePath(info)
	if err != nil {
		return err
	}

	before, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s", registry.ErrVaultFileMissing, info.Path)
	}

	if err := a.compactFile(info.Path, info.BackendKind()); err != nil {
		return err
	}

	after, err := os.Stat(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.Out, "Compacted: %s -> %s\n", formatSize(before.Size()), formatSize(after.Size()))
	return nil
}

func (a *App) compactFile(file, kind string) error {
	backend, err := storage.NewBackend(kind)
	if err != nil {
		return err
	}
	c, ok := backend.(storage.Compactor)
	if !ok {
		return nil
	}
	path, err := a.Registry.FilePath(registry.VaultInfo{Path: file})
	if err != nil {
		return err
	}
	return c.Compact(path)
}
