package cmd

import (
	"fmt"

	"github.com/illarion/passvault/internal/core"
	"github.com/illarion/passvault/internal/crypto"
	"github.com/illarion/passvault/internal/keyring"
	"github.com/illarion/passvault/internal/registry"
)

// KeyringSave verifies the master password and stores it in the OS keyring
func (a *App) KeyringSave(vaultName string) error {
	info, ok := a.Registry.Get(vaultName)
	if !ok {
		return fmt.Errorf("%w: %s", registry.ErrVaultNotFound, vaultName)
	}

	password := core.GetPasswordFromEnv()
	if password == nil {
		var err error
		password, err = a.Passwords.Prompt(fmt.Sprintf("Master password for %s: ", vaultName))
		if err != nil {
			return err
		}
	}
	defer crypto.ClearBytes(password)

	// Verify password is correct
	if _, err := a.Registry.OpenVault(vaultName, password); err != nil {
		return err
	}
	a.Registry.CloseVault()

	if err := keyring.SavePassword(info.ID, string(password)); err != nil {
		return fmt.Errorf("failed to save to keyring: %w", err)
	}

	fmt.Fprintln(a.Out, "Password saved to keyring")
	return nil
}

// KeyringDelete removes a vault's password from the OS keyring
func (a *App) KeyringDelete(vaultName string) error {
	info, ok := a.Registry.Get(vaultName)
	if !ok {
		return fmt.Errorf("%w: %s", registry.ErrVaultNotFound, vaultName)
	}

	if !keyring.HasPassword(info.ID) {
		fmt.Fprintln(a.Out, "No password stored in keyring")
		return nil
	}
	if err := keyring.DeletePassword(info.ID); err != nil {
		return fmt.Errorf("failed to remove from keyring: %w", err)
	}

	fmt.Fprintln(a.Out, "Password removed from keyring")
	return nil
}

// KeyringStatus reports whether a vault's password is in the OS keyring
func (a *App) KeyringStatus(vaultName string) error {
	info, ok := a.Registry.Get(vaultName)
	if !ok {
		return fmt.Errorf("%w: %s", registry.ErrVaultNotFound, vaultName)
	}

	if keyring.HasPassword(info.ID) {
		fmt.Fprintln(a.Out, "Password: stored in keyring")
	} else {
		fmt.Fprintln(a.Out, "Password: not stored")
	}
	return nil
}
