package cmd

import (
	"fmt"
	"time"

	"github.com/illarion/passvault/internal/git"
	"github.com/illarion/passvault/internal/keyring"
	"github.com/illarion/passvault/internal/registry"
	"github.com/illarion/passvault/internal/storage"
)

// Status shows the setup, or one vault's file state when vaultName is
// given. No password is needed.
func (a *App) Status(vaultName string) error {
	if vaultName != "" {
		return a.vaultStatus(vaultName)
	}

	vaults := a.Registry.ListVaults()
	configFile := a.Config.File
	if configFile == "" {
		configFile = dimText("(defaults)")
	}

	fmt.Fprintf(a.Out, "Config:      %s\n", configFile)
	fmt.Fprintf(a.Out, "Vaults dir:  %s\n", a.Registry.Dir())
	fmt.Fprintf(a.Out, "Backend:     %s (new vaults)\n", a.Config.Backend)
	fmt.Fprintf(a.Out, "Auto-save:   %t\n", a.Config.AutoSave)
	fmt.Fprintf(a.Out, "Keyring:     %t\n", a.Config.Keyring)
	fmt.Fprintf(a.Out, "Vaults:      %d\n", len(vaults))

	files := make([]string, 0, len(vaults))
	for _, v := range vaults {
		files = append(files, v.Path)
	}
	status := git.Check(a.Registry.Dir(), registry.RegistryFile, files)
	fmt.Fprint(a.Out, warnText(git.Format(status, a.Registry.Dir())))
	return nil
}

func (a *App) vaultStatus(name string) error {
	info, ok := a.Registry.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", registry.ErrVaultNotFound, name)
	}
	path, err := a.Registry.FilePath(info)
	if err != nil {
		return err
	}
	backend, err := storage.NewBackend(info.BackendKind())
	if err != nil {
		return err
	}
	file, err := backend.Describe(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.Out, "Vault:         %s\n", boldText(info.Name))
	fmt.Fprintf(a.Out, "ID:            %s\n", info.ID)
	if info.Description != "" {
		fmt.Fprintf(a.Out, "Description:   %s\n", info.Description)
	}
	fmt.Fprintf(a.Out, "File:          %s (%s)\n", path, info.BackendKind())
	fmt.Fprintf(a.Out, "Created:       %s\n", info.CreatedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(a.Out, "Last accessed: %s\n", info.LastAccessed.Local().Format(time.RFC3339))
	fmt.Fprintf(a.Out, "Entries:       %d %s\n", info.EntryCount, dimText("(as of last open)"))

	switch {
	case !file.Exists:
		fmt.Fprintf(a.Out, "State:         %s\n", errText("file missing"))
	case file.HasVaultData && file.HasSalt:
		fmt.Fprintf(a.Out, "State:         %s, %s\n", okText("encrypted"), formatSize(file.Size))
	case !file.HasVaultData && !file.HasSalt:
		fmt.Fprintf(a.Out, "State:         %s\n", warnText("empty"))
	default:
		fmt.Fprintf(a.Out, "State:         %s (keys: %v)\n", errText("incomplete"), file.Keys)
	}

	if keyring.HasPassword(info.ID) {
		fmt.Fprintln(a.Out, "Password:      stored in keyring")
	} else {
		fmt.Fprintln(a.Out, "Password:      not stored")
	}
	return nil
}
