// Package vault holds the decrypted payload of a passvault vault: the
// credential entries and vault-level metadata. Values of these types exist
// only while a session is unlocked and are serialized as a whole.
package vault

import (
	"strings"
	"time"
)

// CurrentVersion is written into every new payload
const CurrentVersion = 1

// Entry is one credential record
type Entry struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Username  string    `json:"username,omitempty"`
	Password  string    `json:"password,omitempty"`
	APIKey    string    `json:"api_key,omitempty"`
	URL       string    `json:"url,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EntryInput carries the fields of a new entry. Name is required.
type EntryInput struct {
	Name     string
	Username string
	Password string
	APIKey   string
	URL      string
	Notes    string
}

// EntryUpdate lists the mutable fields of an entry. Nil fields are left
// untouched; a pointer to "" clears the field.
type EntryUpdate struct {
	Name     *string
	Username *string
	Password *string
	APIKey   *string
	URL      *string
	Notes    *string
}

// IsEmpty reports whether the update changes nothing
func (u EntryUpdate) IsEmpty() bool {
	return u.Name == nil && u.Username == nil && u.Password == nil &&
		u.APIKey == nil && u.URL == nil && u.Notes == nil
}

// Vault is the decrypted vault payload
type Vault struct {
	Owner     string    `json:"owner"`
	Entries   []Entry   `json:"entries"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
	Notes     string    `json:"notes,omitempty"`
	NextID    int       `json:"next_id"`
}

// New creates an empty vault payload
func New(owner string) *Vault {
	now := time.Now().UTC()
	return &Vault{
		Owner:     owner,
		Entries:   make([]Entry, 0),
		CreatedAt: now,
		UpdatedAt: now,
		Version:   CurrentVersion,
		NextID:    1,
	}
}

// Normalize repairs fields a payload may lack after decoding: a nil entry
// list and a missing id counter. The counter is placed past the highest id
// so ids are never reused.
func (v *Vault) Normalize() {
	if v.Entries == nil {
		v.Entries = make([]Entry, 0)
	}
	maxID := 0
	for _, e := range v.Entries {
		if e.ID > maxID {
			maxID = e.ID
		}
	}
	if v.NextID <= maxID {
		v.NextID = maxID + 1
	}
	if v.Version == 0 {
		v.Version = CurrentVersion
	}
}

// Add appends a new entry built from in and returns it.
// Ids come from a counter that only grows, so an id freed by Remove is
// never handed out again.
func (v *Vault) Add(in EntryInput) Entry {
	if v.NextID < 1 {
		v.Normalize()
	}
	now := time.Now().UTC()
	entry := Entry{
		ID:        v.NextID,
		Name:      in.Name,
		Username:  in.Username,
		Password:  in.Password,
		APIKey:    in.APIKey,
		URL:       in.URL,
		Notes:     in.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	v.NextID++
	v.Entries = append(v.Entries, entry)
	v.UpdatedAt = now
	return entry
}

// Remove deletes the entry with the given id. Remaining entries keep
// their ids.
func (v *Vault) Remove(id int) bool {
	for i, e := range v.Entries {
		if e.ID == id {
			v.Entries = append(v.Entries[:i], v.Entries[i+1:]...)
			v.UpdatedAt = time.Now().UTC()
			return true
		}
	}
	return false
}

// Find returns the entry with the given id, or nil
func (v *Vault) Find(id int) *Entry {
	for i := range v.Entries {
		if v.Entries[i].ID == id {
			return &v.Entries[i]
		}
	}
	return nil
}

// Update applies the non-nil fields of u to the entry with the given id
func (v *Vault) Update(id int, u EntryUpdate) bool {
	entry := v.Find(id)
	if entry == nil {
		return false
	}

	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	apply(&entry.Name, u.Name)
	apply(&entry.Username, u.Username)
	apply(&entry.Password, u.Password)
	apply(&entry.APIKey, u.APIKey)
	apply(&entry.URL, u.URL)
	apply(&entry.Notes, u.Notes)

	now := time.Now().UTC()
	entry.UpdatedAt = now
	v.UpdatedAt = now
	return true
}

// FilterByName returns entries whose name contains substr, ignoring case
func (v *Vault) FilterByName(substr string) []Entry {
	needle := strings.ToLower(substr)
	out := make([]Entry, 0)
	for _, e := range v.Entries {
		if strings.Contains(strings.ToLower(e.Name), needle) {
			out = append(out, e)
		}
	}
	return out
}

// Search returns entries where query appears in the name, username or
// notes, ignoring case.
func (v *Vault) Search(query string) []Entry {
	needle := strings.ToLower(query)
	out := make([]Entry, 0)
	for _, e := range v.Entries {
		if strings.Contains(strings.ToLower(e.Name), needle) ||
			strings.Contains(strings.ToLower(e.Username), needle) ||
			strings.Contains(strings.ToLower(e.Notes), needle) {
			out = append(out, e)
		}
	}
	return out
}

// Clone returns a deep copy of the entry list
func (v *Vault) Clone() []Entry {
	out := make([]Entry, len(v.Entries))
	copy(out, v.Entries)
	return out
}

// Wipe overwrites secret fields in place before the payload is dropped.
// Go strings are immutable, so this only releases references; the
// backing memory is reclaimed by the garbage collector.
func (v *Vault) Wipe() {
	for i := range v.Entries {
		v.Entries[i].Password = ""
		v.Entries[i].APIKey = ""
	}
	v.Entries = nil
}
