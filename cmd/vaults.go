package cmd

import (
	"bufio"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/illarion/passvault/internal/crypto"
	"github.com/illarion/passvault/internal/keyring"
	"github.com/illarion/passvault/internal/registry"
)

// Create creates and registers a new vault
func (a *App) Create(name, description string, saveToKeyring bool) error {
	password, err := a.newPassword("master password")
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(password)

	info, err := a.Registry.CreateVault(name, password, description)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "%s vault %s (%s)\n", okText("Created"), boldText(name), info.Path)

	if saveToKeyring {
		if err := keyring.SavePassword(info.ID, string(password)); err != nil {
			fmt.Fprintf(a.Out, "%s could not save password to keyring: %s\n", warnText("Warning:"), err)
		} else {
			fmt.Fprintln(a.Out, "Password saved to keyring")
		}
	}
	return nil
}

// List prints the registered vaults. namesOnly prints one name per line
// for shell completion.
func (a *App) List(namesOnly bool) error {
	vaults := a.Registry.ListVaults()
	if namesOnly {
		for _, v := range vaults {
			fmt.Fprintln(a.Out, v.Name)
		}
		return nil
	}
	if len(vaults) == 0 {
		fmt.Fprintln(a.Out, "No vaults yet")
		fmt.Fprintln(a.Out, "Run 'passvault create <name>' to create one")
		return nil
	}

	tw := tabwriter.NewWriter(a.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tENTRIES\tLAST ACCESSED\tDESCRIPTION")
	for _, v := range vaults {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n",
			v.Name, v.EntryCount, v.LastAccessed.Local().Format(time.DateTime), v.Description)
	}
	return tw.Flush()
}

// Delete removes a vault after confirmation, along with its keyring entry
func (a *App) Delete(name string, force bool) error {
	info, ok := a.Registry.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", registry.ErrVaultNotFound, name)
	}

	if !force {
		fmt.Fprintf(a.Out, "This permanently deletes vault %s and all %d cached entries.\n", boldText(name), info.EntryCount)
		fmt.Fprintf(a.Out, "Type the vault name to confirm: ")
		line, _ := bufio.NewReader(a.In).ReadString('\n')
		if strings.TrimSpace(line) != name {
			fmt.Fprintln(a.Out, "Aborted")
			return nil
		}
	}

	if err := a.Registry.DeleteVault(name); err != nil {
		return err
	}
	if err := keyring.DeletePassword(info.ID); err != nil {
		a.Logger.Warn("failed to remove keyring entry", "vault", name, "error", err)
	}

	fmt.Fprintf(a.Out, "%s vault %s\n", okText("Deleted"), name)
	return nil
}

// Rename changes a vault's name. Its keyring entry follows, since it is
// keyed by vault ID.
func (a *App) Rename(oldName, newName string) error {
	if err := a.Registry.RenameVault(oldName, newName); err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "%s %s to %s\n", okText("Renamed"), oldName, newName)
	return nil
}

// Backup copies a vault file to dest. No password is needed.
func (a *App) Backup(name, dest string) error {
	if err := a.Registry.BackupVault(name, dest); err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "%s %s to %s\n", okText("Backed up"), name, dest)
	return nil
}

// Restore registers the backup at src under name, replacing a vault of
// that name if present.
func (a *App) Restore(src, name string) error {
	replacing := a.Registry.Exists(name)
	if err := a.Registry.RestoreVault(src, name); err != nil {
		return err
	}
	if replacing {
		fmt.Fprintf(a.Out, "%s %s from %s (previous contents replaced)\n", okText("Restored"), name, src)
	} else {
		fmt.Fprintf(a.Out, "%s %s from %s\n", okText("Restored"), name, src)
	}
	fmt.Fprintln(a.Out, dimText("The entry count is refreshed the next time the vault is opened"))
	return nil
}
