package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/illarion/passvault/internal/core"
	"github.com/illarion/passvault/internal/crypto"
	"github.com/illarion/passvault/internal/storage"
	"github.com/illarion/passvault/internal/vault"
)

const masked = "********"

// EntryFields carries entry values collected from flags. Secrets are never
// taken from flags; AskPassword and AskAPIKey request a prompt instead.
type EntryFields struct {
	Name        *string
	Username    *string
	URL         *string
	Notes       *string
	AskPassword bool
	AskAPIKey   bool
}

// promptSecrets reads the secrets requested by f
func (a *App) promptSecrets(f EntryFields) (password, apiKey *string, err error) {
	if f.AskPassword {
		b, err := a.Passwords.Prompt("Entry password: ")
		if err != nil {
			return nil, nil, err
		}
		s := string(b)
		crypto.ClearBytes(b)
		password = &s
	}
	if f.AskAPIKey {
		b, err := a.Passwords.Prompt("API key: ")
		if err != nil {
			return nil, nil, err
		}
		s := string(b)
		crypto.ClearBytes(b)
		apiKey = &s
	}
	return password, apiKey, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Add stores a new entry in vaultName
func (a *App) Add(vaultName string, f EntryFields) error {
	secret, apiKey, err := a.promptSecrets(f)
	if err != nil {
		return err
	}

	session, password, err := a.openVault(vaultName)
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(password)
	defer a.Registry.CloseVault()

	entry, saved, err := session.AddEntry(vault.EntryInput{
		Name:     deref(f.Name),
		Username: deref(f.Username),
		Password: deref(secret),
		APIKey:   deref(apiKey),
		URL:      deref(f.URL),
		Notes:    deref(f.Notes),
	})
	if err != nil {
		return err
	}
	if err := a.commit(vaultName, session, password, saved); err != nil {
		return err
	}

	fmt.Fprintf(a.Out, "%s entry %d (%s) to %s\n", okText("Added"), entry.ID, entry.Name, vaultName)
	return nil
}

// Get prints entries of vaultName selected by filter
func (a *App) Get(vaultName string, filter core.EntryFilter, show bool) error {
	session, password, err := a.openVault(vaultName)
	if err != nil {
		return err
	}
	crypto.ClearBytes(password)
	defer a.Registry.CloseVault()

	entries, err := session.GetEntries(filter)
	if err != nil {
		return err
	}
	if filter.ID != 0 && len(entries) == 0 {
		return fmt.Errorf("%w: id %d", core.ErrEntryNotFound, filter.ID)
	}
	printEntries(a.Out, entries, show)
	return nil
}

// Search prints entries of vaultName matching query
func (a *App) Search(vaultName, query string, show bool) error {
	session, password, err := a.openVault(vaultName)
	if err != nil {
		return err
	}
	crypto.ClearBytes(password)
	defer a.Registry.CloseVault()

	entries, err := session.SearchEntries(query)
	if err != nil {
		return err
	}
	printEntries(a.Out, entries, show)
	return nil
}

// Update changes the fields of entry id that were given
func (a *App) Update(vaultName string, id int, f EntryFields) error {
	secret, apiKey, err := a.promptSecrets(f)
	if err != nil {
		return err
	}
	u := vault.EntryUpdate{
		Name:     f.Name,
		Username: f.Username,
		Password: secret,
		APIKey:   apiKey,
		URL:      f.URL,
		Notes:    f.Notes,
	}
	if u.IsEmpty() {
		fmt.Fprintln(a.Out, "Nothing to update")
		return nil
	}

	session, password, err := a.openVault(vaultName)
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(password)
	defer a.Registry.CloseVault()

	saved, err := session.UpdateEntry(id, u)
	if err != nil {
		return err
	}
	if err := a.commit(vaultName, session, password, saved); err != nil {
		return err
	}

	fmt.Fprintf(a.Out, "%s entry %d in %s\n", okText("Updated"), id, vaultName)
	return nil
}

// Remove deletes entry id from vaultName
func (a *App) Remove(vaultName string, id int) error {
	session, password, err := a.openVault(vaultName)
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(password)
	defer a.Registry.CloseVault()

	found, err := session.GetEntries(core.EntryFilter{ID: id})
	if err != nil {
		return err
	}
	if len(found) == 0 {
		fmt.Fprintf(a.Out, "%s no entry %d in %s\n", warnText("Skipped:"), id, vaultName)
		return nil
	}

	saved, err := session.DeleteEntry(id)
	if err != nil {
		return err
	}
	if err := a.commit(vaultName, session, password, saved); err != nil {
		return err
	}

	fmt.Fprintf(a.Out, "%s entry %d (%s) from %s\n", okText("Removed"), id, found[0].Name, vaultName)
	return nil
}

// Stats prints vault statistics
func (a *App) Stats(vaultName string) error {
	session, password, err := a.openVault(vaultName)
	if err != nil {
		return err
	}
	crypto.ClearBytes(password)
	defer a.Registry.CloseVault()

	stats, err := session.Stats()
	if err != nil {
		return err
	}

	fmt.Fprintf(a.Out, "Vault:         %s\n", boldText(vaultName))
	fmt.Fprintf(a.Out, "Entries:       %d\n", stats.TotalEntries)
	fmt.Fprintf(a.Out, "Created:       %s\n", stats.CreatedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(a.Out, "Last updated:  %s\n", stats.UpdatedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(a.Out, "Version:       %d\n", stats.Version)
	return nil
}

// Export writes all entries of vaultName in format to output, or to
// a.Out when output is empty. The output contains plaintext secrets.
func (a *App) Export(vaultName, format, output string) error {
	session, password, err := a.openVault(vaultName)
	if err != nil {
		return err
	}
	crypto.ClearBytes(password)
	defer a.Registry.CloseVault()

	data, err := session.Export(format)
	if err != nil {
		return err
	}

	if output == "" {
		fmt.Fprintln(a.Out, data)
		return nil
	}
	if err := os.WriteFile(output, []byte(data+"\n"), storage.FilePermSecure); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	fmt.Fprintf(os.Stderr, "%s %s to %s (contains plaintext secrets)\n", okText("Exported"), vaultName, output)
	return nil
}

func printEntries(w io.Writer, entries []vault.Entry, show bool) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No entries found")
		return
	}
	for i, e := range entries {
		if i > 0 {
			fmt.Fprintln(w)
		}
		printEntry(w, e, show)
	}
}

func printEntry(w io.Writer, e vault.Entry, show bool) {
	secret := func(s string) string {
		if s == "" || show {
			return s
		}
		return masked
	}

	fmt.Fprintf(w, "%s %s\n", boldText(fmt.Sprintf("[%d]", e.ID)), boldText(e.Name))
	field := func(label, value string) {
		if value != "" {
			fmt.Fprintf(w, "  %-9s %s\n", label+":", value)
		}
	}
	field("Username", e.Username)
	field("Password", secret(e.Password))
	field("API key", secret(e.APIKey))
	field("URL", e.URL)
	if e.Notes != "" {
		field("Notes", strings.ReplaceAll(e.Notes, "\n", "\n            "))
	}
	fmt.Fprintf(w, "  %s\n", dimText("updated "+e.UpdatedAt.Local().Format(time.RFC3339)))
}
