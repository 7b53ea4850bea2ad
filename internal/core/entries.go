package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/illarion/passvault/internal/vault"
)

// ExportJSON is the only supported export format
const ExportJSON = "json"

// EntryFilter selects entries for GetEntries. The zero value selects all.
// ID takes precedence over Name.
type EntryFilter struct {
	ID   int
	Name string
}

// Stats summarizes an unlocked vault
type Stats struct {
	TotalEntries int       `json:"total_entries"`
	CreatedAt    time.Time `json:"vault_created"`
	UpdatedAt    time.Time `json:"last_updated"`
	Version      int       `json:"vault_version"`
}

func (s *Session) requireUnlocked() error {
	if !s.IsUnlocked() {
		return ErrNotUnlocked
	}
	return nil
}

// autoSave persists after a mutation when enabled and a key is retained.
// The boolean reports whether a save ran.
func (s *Session) autoSaveChanges() (bool, error) {
	if !s.autoSave || s.enc == nil {
		s.logger.Debug("auto-save skipped", "auto_save", s.autoSave, "key_retained", s.enc != nil)
		return false, nil
	}
	if err := s.Save(); err != nil {
		return false, fmt.Errorf("change kept in memory but not saved: %w", err)
	}
	return true, nil
}

// AddEntry appends a new entry. The returned flag reports whether the
// vault was saved.
func (s *Session) AddEntry(in vault.EntryInput) (vault.Entry, bool, error) {
	if err := s.requireUnlocked(); err != nil {
		return vault.Entry{}, false, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return vault.Entry{}, false, ErrNameRequired
	}

	entry := s.payload.Add(in)
	saved, err := s.autoSaveChanges()
	return entry, saved, err
}

// GetEntries returns copies of the entries selected by filter in
// insertion order.
func (s *Session) GetEntries(filter EntryFilter) ([]vault.Entry, error) {
	if err := s.requireUnlocked(); err != nil {
		return nil, err
	}

	switch {
	case filter.ID != 0:
		if e := s.payload.Find(filter.ID); e != nil {
			return []vault.Entry{*e}, nil
		}
		return []vault.Entry{}, nil
	case filter.Name != "":
		return s.payload.FilterByName(filter.Name), nil
	default:
		return s.payload.Clone(), nil
	}
}

// SearchEntries matches query against name, username and notes
func (s *Session) SearchEntries(query string) ([]vault.Entry, error) {
	if err := s.requireUnlocked(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	return s.payload.Search(query), nil
}

// UpdateEntry applies the set fields of u to the entry with the given id
func (s *Session) UpdateEntry(id int, u vault.EntryUpdate) (bool, error) {
	if err := s.requireUnlocked(); err != nil {
		return false, err
	}
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return false, ErrNameRequired
	}
	if !s.payload.Update(id, u) {
		return false, fmt.Errorf("%w: id %d", ErrEntryNotFound, id)
	}
	return s.autoSaveChanges()
}

// DeleteEntry removes the entry with the given id. Deleting an unknown id
// changes nothing and is not an error.
func (s *Session) DeleteEntry(id int) (bool, error) {
	if err := s.requireUnlocked(); err != nil {
		return false, err
	}
	if !s.payload.Remove(id) {
		return false, nil
	}
	return s.autoSaveChanges()
}

// EntryCount returns the number of entries in the unlocked vault
func (s *Session) EntryCount() (int, error) {
	if err := s.requireUnlocked(); err != nil {
		return 0, err
	}
	return len(s.payload.Entries), nil
}

// Stats returns vault statistics
func (s *Session) Stats() (Stats, error) {
	if err := s.requireUnlocked(); err != nil {
		return Stats{}, err
	}
	return Stats{
		TotalEntries: len(s.payload.Entries),
		CreatedAt:    s.payload.CreatedAt,
		UpdatedAt:    s.payload.UpdatedAt,
		Version:      s.payload.Version,
	}, nil
}

// Export renders all entries in the given format
func (s *Session) Export(format string) (string, error) {
	if err := s.requireUnlocked(); err != nil {
		return "", err
	}
	if !strings.EqualFold(format, ExportJSON) {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	data, err := json.MarshalIndent(s.payload.Entries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal entries: %w", err)
	}
	return string(data), nil
}
