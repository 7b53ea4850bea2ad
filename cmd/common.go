package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/illarion/passvault/internal/core"
	"github.com/illarion/passvault/internal/crypto"
	"github.com/illarion/passvault/internal/keyring"
	"github.com/illarion/passvault/internal/registry"
	"github.com/illarion/passvault/internal/storage"
	"github.com/illarion/passvault/internal/vaulterr"
)

// maxPromptAttempts bounds interactive unlock retries
const maxPromptAttempts = 3

var (
	okText   = color.New(color.FgGreen).SprintFunc()
	warnText = color.New(color.FgYellow).SprintFunc()
	errText  = color.New(color.FgRed, color.Bold).SprintFunc()
	dimText  = color.New(color.Faint).SprintFunc()
	boldText = color.New(color.Bold).SprintFunc()
)

// newPassword returns the password for a new vault or a password change:
// PASSVAULT_PASSWORD if set, otherwise a confirmed prompt.
// The caller is responsible for calling crypto.ClearBytes on the result.
func (a *App) newPassword(label string) ([]byte, error) {
	if password := core.GetPasswordFromEnv(); password != nil {
		return password, nil
	}
	return a.Passwords.PromptConfirm(label)
}

// openVault unlocks a registered vault. Password sources are tried in
// order: PASSVAULT_PASSWORD, the OS keyring, then the terminal. A stale
// keyring entry falls through to the prompt. The returned password must be
// cleared by the caller.
func (a *App) openVault(name string) (*core.Session, []byte, error) {
	info, ok := a.Registry.Get(name)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", registry.ErrVaultNotFound, name)
	}

	if password := core.GetPasswordFromEnv(); password != nil {
		session, err := a.Registry.OpenVault(name, password)
		if err != nil {
			crypto.ClearBytes(password)
			return nil, nil, err
		}
		return session, password, nil
	}

	if a.Config.Keyring {
		if stored, err := keyring.GetPassword(info.ID); err == nil {
			password := []byte(stored)
			session, err := a.Registry.OpenVault(name, password)
			if err == nil {
				return session, password, nil
			}
			crypto.ClearBytes(password)
			if !errors.Is(err, core.ErrWrongPassword) {
				return nil, nil, err
			}
			fmt.Fprintln(os.Stderr, warnText("Stored keyring password is out of date"))
			a.Logger.Warn("stale keyring password", "vault", name)
		}
	}

	var lastErr error
	for attempt := 0; attempt < maxPromptAttempts; attempt++ {
		password, err := a.Passwords.Prompt(fmt.Sprintf("Master password for %s: ", name))
		if err != nil {
			return nil, nil, err
		}
		session, err := a.Registry.OpenVault(name, password)
		if err == nil {
			return session, password, nil
		}
		crypto.ClearBytes(password)
		if !errors.Is(err, core.ErrWrongPassword) {
			return nil, nil, err
		}
		lastErr = err
		fmt.Fprintln(os.Stderr, warnText("Wrong password, try again"))
	}
	return nil, nil, lastErr
}

// commit makes sure a mutation reached disk and refreshes the cached entry
// count. saved is what the session's auto-save reported.
func (a *App) commit(name string, session *core.Session, password []byte, saved bool) error {
	if !saved {
		if err := session.SaveWithPassword(password); err != nil {
			return err
		}
	}
	if err := a.Registry.Refresh(name, session); err != nil {
		a.Logger.Warn("failed to refresh registry", "vault", name, "error", err)
	}
	return nil
}

// describeError turns an error into a user message and an optional hint
func describeError(err error) (string, string) {
	switch {
	case errors.Is(err, core.ErrWrongPassword):
		return "wrong password", ""
	case errors.Is(err, registry.ErrVaultNotFound):
		return err.Error(), "Run 'passvault list' to see registered vaults"
	case errors.Is(err, registry.ErrDuplicateName), errors.Is(err, registry.ErrPathTaken):
		return err.Error(), "Choose another name or remove the existing vault with 'passvault delete'"
	case errors.Is(err, registry.ErrVaultFileMissing):
		return err.Error(), "Restore it with 'passvault restore <backup> <name>' or unregister it with 'passvault delete'"
	case errors.Is(err, core.ErrVaultCorrupted):
		return err.Error(), "Restore the vault from a backup with 'passvault restore'"
	case errors.Is(err, core.ErrEntryNotFound):
		return err.Error(), "Run 'passvault get <vault>' to list entry ids"
	case errors.Is(err, core.ErrPasswordMismatch):
		return "passwords do not match", ""
	case errors.Is(err, storage.ErrUnknownBackend), errors.Is(err, vaulterr.ErrConfiguration):
		return err.Error(), "Check the config file and PASSVAULT_* environment variables"
	default:
		return err.Error(), ""
	}
}

// HandleError prints err and exits
func HandleError(err error) {
	msg, hint := describeError(err)
	fmt.Fprintf(os.Stderr, "%s %s\n", errText("Error:"), msg)
	if hint != "" {
		fmt.Fprintln(os.Stderr, hint)
	}
	os.Exit(1)
}

// formatSize formats a file size in human-readable form
func formatSize(size int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case size >= GB:
		return fmt.Sprintf("%.1f GB", float64(size)/GB)
	case size >= MB:
		return fmt.Sprintf("%.1f MB", float64(size)/MB)
	case size >= KB:
		return fmt.Sprintf("%.1f KB", float64(size)/KB)
	default:
		return fmt.Sprintf("%d bytes", size)
	}
}
