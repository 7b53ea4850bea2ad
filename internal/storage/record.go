package storage

import (
	"fmt"

	"github.com/illarion/passvault/internal/vaulterr"
)

// Key names inside a vault file
const (
	KeyVaultData = "vault_data"
	KeySalt      = "salt"
)

// Backend kinds accepted by NewBackend
const (
	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
)

const (
	DirPermSecure  = 0700 // Directory: owner rwx only
	FilePermSecure = 0600 // File: owner rw only
)

var (
	ErrUnknownBackend = vaulterr.Sentinel(vaulterr.ErrConfiguration, "unknown storage backend")
	ErrSourceMissing  = vaulterr.Sentinel(vaulterr.ErrStorage, "source file not found")
)

// Record is the pair of values persisted for one vault
type Record struct {
	Data string // base64 sealed payload
	Salt string // hex salt
}

// Empty reports whether neither value is present
func (r Record) Empty() bool {
	return r.Data == "" && r.Salt == ""
}

// Complete reports whether both values are present
func (r Record) Complete() bool {
	return r.Data != "" && r.Salt != ""
}

// Info describes a vault file without decrypting it
type Info struct {
	Exists       bool     `json:"exists"`
	Size         int64    `json:"size"`
	Keys         []string `json:"keys,omitempty"`
	HasVaultData bool     `json:"has_vault_data"`
	HasSalt      bool     `json:"has_salt"`
}

// Backend persists vault records
type Backend interface {
	// Save writes both values of rec to path in a single transaction,
	// creating the file if needed.
	Save(path string, rec Record) error
	// Load returns the record at path. A missing file yields an empty
	// record and no error.
	Load(path string) (Record, error)
	// Describe reports what path contains without decrypting anything.
	Describe(path string) (Info, error)
	// Kind returns the backend name as accepted by NewBackend.
	Kind() string
}

// Compactor is implemented by backends that can reclaim free space
type Compactor interface {
	Compact(path string) error
}

// NewBackend returns the backend registered under kind
func NewBackend(kind string) (Backend, error) {
	switch kind {
	case "", BackendBolt:
		return NewBoltBackend(), nil
	case BackendSQLite:
		return NewSQLiteBackend(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, kind)
	}
}

// Exists reports whether path holds a complete vault record
func Exists(b Backend, path string) (bool, error) {
	rec, err := b.Load(path)
	if err != nil {
		return false, err
	}
	return rec.Complete(), nil
}

func storageErr(op string, err error) error {
	return vaulterr.New(vaulterr.ErrStorage, op, err)
}
