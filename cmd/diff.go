package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/illarion/passvault/internal/core"
	"github.com/illarion/passvault/internal/crypto"
	"github.com/illarion/passvault/internal/storage"
)

// Diff compares a vault's entries with those in a backup file. Secrets
// are shown as digests. The backup is opened with the vault's password
// first; a prompt follows if that does not open it.
func (a *App) Diff(vaultName, backupPath string) error {
	session, password, err := a.openVault(vaultName)
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(password)
	defer a.Registry.CloseVault()

	current, err := session.GetEntries(core.EntryFilter{})
	if err != nil {
		return err
	}

	info, _ := a.Registry.Get(vaultName)
	backend, err := storage.NewBackend(info.BackendKind())
	if err != nil {
		return err
	}
	backup := core.NewSession(backupPath, backend,
		core.WithLogger(a.Logger.With("backup", backupPath)),
		core.WithAutoSave(false),
		core.WithKeyRetention(false),
	)
	defer backup.Lock()

	err = backup.Unlock(password)
	if errors.Is(err, core.ErrWrongPassword) {
		other, perr := a.Passwords.Prompt("Backup password: ")
		if perr != nil {
			return perr
		}
		err = backup.Unlock(other)
		crypto.ClearBytes(other)
	}
	if err != nil {
		return fmt.Errorf("failed to open backup: %w", err)
	}

	old, err := backup.GetEntries(core.EntryFilter{})
	if err != nil {
		return err
	}

	out, err := core.DiffEntries(old, current)
	if err != nil {
		return err
	}
	if out == "" {
		fmt.Fprintf(a.Out, "%s matches %s\n", vaultName, backupPath)
		return nil
	}

	fmt.Fprintf(a.Out, "%s\n%s\n", dimText("--- "+backupPath), dimText("+++ "+vaultName))
	for _, line := range strings.SplitAfter(out, "\n") {
		switch {
		case strings.HasPrefix(line, "+ "):
			fmt.Fprint(a.Out, okText(line))
		case strings.HasPrefix(line, "- "):
			fmt.Fprint(a.Out, errText(line))
		default:
			fmt.Fprint(a.Out, line)
		}
	}
	return nil
}
