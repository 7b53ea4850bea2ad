package cmd

import (
	"fmt"
	"os"

	"github.com/illarion/passvault/internal/crypto"
	"github.com/illarion/passvault/internal/keyring"
)

// Passwd changes the master password of a vault
func (a *App) Passwd(vaultName string) error {
	session, current, err := a.openVault(vaultName)
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(current)
	defer a.Registry.CloseVault()

	newPassword, err := a.Passwords.PromptConfirm("new master password")
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(newPassword)

	if err := session.ChangePassword(current, newPassword); err != nil {
		return err
	}

	// Keep an existing keyring entry in step with the vault
	info, _ := a.Registry.Get(vaultName)
	if keyring.HasPassword(info.ID) {
		if err := keyring.SavePassword(info.ID, string(newPassword)); err == nil {
			fmt.Fprintln(a.Out, "Keyring updated with new password")
		} else {
			fmt.Fprintf(a.Out, "%s keyring still holds the old password: %s\n", warnText("Warning:"), err)
		}
	}

	// Reclaim pages left by rewriting the payload
	if err := a.compactFile(info.Path, info.BackendKind()); err != nil {
		fmt.Fprintf(os.Stderr, "%s compaction failed: %s\n", warnText("Warning:"), err)
	}

	fmt.Fprintln(a.Out, okText("Password changed successfully"))
	return nil
}
