package core

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"github.com/illarion/passvault/internal/crypto"
	"github.com/illarion/passvault/internal/storage"
	"github.com/illarion/passvault/internal/vault"
	"github.com/illarion/passvault/internal/vaulterr"
)

var testPassword = []byte("correct horse battery staple")

func newTestSession(t *testing.T, opts ...Option) *Session {
	t.Helper()
	path := filepath.Join(t.TempDir(), "personal.db")
	return NewSession(path, storage.NewBoltBackend(), opts...)
}

func createUnlocked(t *testing.T, opts ...Option) *Session {
	t.Helper()
	s := newTestSession(t, opts...)
	require.NoError(t, s.Create(testPassword))
	return s
}

func strPtr(s string) *string { return &s }

func TestSession_CreateUnlocks(t *testing.T) {
	s := newTestSession(t)
	assert.Equal(t, StateLocked, s.State())

	require.NoError(t, s.Create(testPassword))
	assert.True(t, s.IsUnlocked())
	assert.True(t, s.HasKey())

	exists, err := s.Exists()
	require.NoError(t, err)
	assert.True(t, exists)

	entries, err := s.GetEntries(EntryFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSession_CreateRejections(t *testing.T) {
	s := newTestSession(t)
	assert.ErrorIs(t, s.Create(nil), ErrPasswordRequired)

	require.NoError(t, s.Create(testPassword))
	assert.ErrorIs(t, s.Create(testPassword), ErrAlreadyUnlocked)

	s.Lock()
	err := s.Create([]byte("other"))
	assert.ErrorIs(t, err, ErrAlreadyExists)
	assert.ErrorIs(t, err, vaulterr.ErrVaultState)
}

func TestSession_PersistsAcrossLock(t *testing.T) {
	s := createUnlocked(t)

	added, saved, err := s.AddEntry(vault.EntryInput{Name: "github", Username: "octo", Password: "hunter2"})
	require.NoError(t, err)
	assert.True(t, saved)
	assert.Equal(t, 1, added.ID)

	s.Lock()
	assert.False(t, s.IsUnlocked())
	assert.False(t, s.HasKey())

	// A fresh session over the same file sees the entry
	other := NewSession(s.Path(), storage.NewBoltBackend())
	require.NoError(t, other.Unlock(testPassword))

	entries, err := other.GetEntries(EntryFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "github", entries[0].Name)
	assert.Equal(t, "octo", entries[0].Username)
	assert.Equal(t, "hunter2", entries[0].Password)
}

func TestSession_WrongPasswordStaysLocked(t *testing.T) {
	s := createUnlocked(t)
	s.Lock()

	err := s.Unlock([]byte("wrong"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWrongPassword)
	assert.ErrorIs(t, err, vaulterr.ErrAuthentication)
	assert.False(t, s.IsUnlocked())

	require.NoError(t, s.Unlock(testPassword))
	assert.ErrorIs(t, s.Unlock(testPassword), ErrAlreadyUnlocked)
}

func TestSession_UnlockMissingVault(t *testing.T) {
	s := newTestSession(t)
	assert.ErrorIs(t, s.Unlock(testPassword), ErrVaultNotFound)
	assert.False(t, s.IsUnlocked())
}

func TestSession_LockedOperationsFail(t *testing.T) {
	s := newTestSession(t)

	_, _, err := s.AddEntry(vault.EntryInput{Name: "x"})
	assert.ErrorIs(t, err, ErrNotUnlocked)
	_, err = s.GetEntries(EntryFilter{})
	assert.ErrorIs(t, err, ErrNotUnlocked)
	_, err = s.SearchEntries("x")
	assert.ErrorIs(t, err, ErrNotUnlocked)
	_, err = s.UpdateEntry(1, vault.EntryUpdate{Name: strPtr("y")})
	assert.ErrorIs(t, err, ErrNotUnlocked)
	_, err = s.DeleteEntry(1)
	assert.ErrorIs(t, err, ErrNotUnlocked)
	_, err = s.Stats()
	assert.ErrorIs(t, err, ErrNotUnlocked)
	_, err = s.Export(ExportJSON)
	assert.ErrorIs(t, err, ErrNotUnlocked)
	assert.ErrorIs(t, s.Save(), ErrNotUnlocked)
	assert.ErrorIs(t, s.ChangePassword(testPassword, []byte("n")), ErrNotUnlocked)

	// Lock on a locked session is a no-op
	s.Lock()
	assert.Equal(t, StateLocked, s.State())
}

func TestSession_IDsNeverReused(t *testing.T) {
	s := createUnlocked(t)

	for _, name := range []string{"a", "b", "c"} {
		_, _, err := s.AddEntry(vault.EntryInput{Name: name})
		require.NoError(t, err)
	}
	_, err := s.DeleteEntry(3)
	require.NoError(t, err)

	s.Lock()
	require.NoError(t, s.Unlock(testPassword))

	e, _, err := s.AddEntry(vault.EntryInput{Name: "d"})
	require.NoError(t, err)
	assert.Equal(t, 4, e.ID)

	entries, err := s.GetEntries(EntryFilter{})
	require.NoError(t, err)
	ids := make([]int, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []int{1, 2, 4}, ids)
}

func TestSession_AddEntryRequiresName(t *testing.T) {
	s := createUnlocked(t)
	_, _, err := s.AddEntry(vault.EntryInput{Name: "  "})
	assert.ErrorIs(t, err, ErrNameRequired)
	assert.ErrorIs(t, err, vaulterr.ErrValidation)
}

func TestSession_GetEntriesFilter(t *testing.T) {
	s := createUnlocked(t)
	for _, name := range []string{"GitHub", "gitlab", "bank"} {
		_, _, err := s.AddEntry(vault.EntryInput{Name: name})
		require.NoError(t, err)
	}

	byName, err := s.GetEntries(EntryFilter{Name: "GIT"})
	require.NoError(t, err)
	assert.Len(t, byName, 2)

	byID, err := s.GetEntries(EntryFilter{ID: 3})
	require.NoError(t, err)
	require.Len(t, byID, 1)
	assert.Equal(t, "bank", byID[0].Name)

	none, err := s.GetEntries(EntryFilter{ID: 42})
	require.NoError(t, err)
	assert.Empty(t, none)

	// Returned entries are copies
	byID[0].Name = "changed"
	again, err := s.GetEntries(EntryFilter{ID: 3})
	require.NoError(t, err)
	assert.Equal(t, "bank", again[0].Name)
}

func TestSession_SearchEntries(t *testing.T) {
	s := createUnlocked(t)
	inputs := []vault.EntryInput{
		{Name: "mail", Username: "alice@example.com"},
		{Name: "vpn", Notes: "office ALICE tunnel"},
		{Name: "bank", Username: "bob"},
	}
	for _, in := range inputs {
		_, _, err := s.AddEntry(in)
		require.NoError(t, err)
	}

	found, err := s.SearchEntries("alice")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	none, err := s.SearchEntries("carol")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = s.SearchEntries(" ")
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestSession_UpdateEntry(t *testing.T) {
	s := createUnlocked(t)
	e, _, err := s.AddEntry(vault.EntryInput{Name: "db", Username: "root", Notes: "old"})
	require.NoError(t, err)

	saved, err := s.UpdateEntry(e.ID, vault.EntryUpdate{Password: strPtr("s3cret"), Notes: strPtr("")})
	require.NoError(t, err)
	assert.True(t, saved)

	got, err := s.GetEntries(EntryFilter{ID: e.ID})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "root", got[0].Username)
	assert.Equal(t, "s3cret", got[0].Password)
	assert.Empty(t, got[0].Notes)
	assert.False(t, got[0].UpdatedAt.Before(got[0].CreatedAt))

	_, err = s.UpdateEntry(99, vault.EntryUpdate{Name: strPtr("x")})
	assert.ErrorIs(t, err, ErrEntryNotFound)

	_, err = s.UpdateEntry(e.ID, vault.EntryUpdate{Name: strPtr("")})
	assert.ErrorIs(t, err, ErrNameRequired)
}

func TestSession_DeleteUnknownIsNoop(t *testing.T) {
	s := createUnlocked(t)
	saved, err := s.DeleteEntry(7)
	require.NoError(t, err)
	assert.False(t, saved)
}

func TestSession_WithoutKeyRetention(t *testing.T) {
	s := createUnlocked(t, WithKeyRetention(false))
	assert.False(t, s.HasKey())

	_, saved, err := s.AddEntry(vault.EntryInput{Name: "pending"})
	require.NoError(t, err)
	assert.False(t, saved)

	assert.ErrorIs(t, s.Save(), ErrPasswordRequired)
	assert.ErrorIs(t, s.SaveWithPassword([]byte("wrong")), ErrWrongPassword)
	require.NoError(t, s.LockAndSave(testPassword))
	assert.False(t, s.IsUnlocked())

	require.NoError(t, s.Unlock(testPassword))
	entries, err := s.GetEntries(EntryFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "pending", entries[0].Name)
}

func TestSession_AutoSaveDisabled(t *testing.T) {
	s := createUnlocked(t, WithAutoSave(false))

	_, saved, err := s.AddEntry(vault.EntryInput{Name: "draft"})
	require.NoError(t, err)
	assert.False(t, saved)

	// Unsaved changes are lost on lock
	s.Lock()
	require.NoError(t, s.Unlock(testPassword))
	n, err := s.EntryCount()
	require.NoError(t, err)
	assert.Zero(t, n)

	_, _, err = s.AddEntry(vault.EntryInput{Name: "kept"})
	require.NoError(t, err)
	require.NoError(t, s.Save())
	s.Lock()
	require.NoError(t, s.Unlock(testPassword))
	n, err = s.EntryCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSession_SaveWithPasswordChecksStoredVault(t *testing.T) {
	s := createUnlocked(t)
	assert.ErrorIs(t, s.SaveWithPassword(nil), ErrPasswordRequired)
	assert.ErrorIs(t, s.SaveWithPassword([]byte("nope")), ErrWrongPassword)
	require.NoError(t, s.SaveWithPassword(testPassword))
}

func TestSession_ChangePassword(t *testing.T) {
	s := createUnlocked(t)
	_, _, err := s.AddEntry(vault.EntryInput{Name: "keep"})
	require.NoError(t, err)

	before, err := s.backend.Load(s.Path())
	require.NoError(t, err)

	next := []byte("new password")
	assert.ErrorIs(t, s.ChangePassword([]byte("wrong"), next), ErrWrongPassword)
	require.NoError(t, s.ChangePassword(testPassword, next))
	assert.True(t, s.IsUnlocked())

	after, err := s.backend.Load(s.Path())
	require.NoError(t, err)
	assert.NotEqual(t, before.Salt, after.Salt)

	// Retained key follows the new password
	_, saved, err := s.AddEntry(vault.EntryInput{Name: "after"})
	require.NoError(t, err)
	assert.True(t, saved)

	s.Lock()
	assert.ErrorIs(t, s.Unlock(testPassword), ErrWrongPassword)
	require.NoError(t, s.Unlock(next))
	n, err := s.EntryCount()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSession_VerifyPassword(t *testing.T) {
	s := createUnlocked(t)
	s.Lock()

	require.NoError(t, s.VerifyPassword(testPassword))
	assert.ErrorIs(t, s.VerifyPassword([]byte("bad")), ErrWrongPassword)
	assert.False(t, s.IsUnlocked())
}

func TestSession_StatsAndExport(t *testing.T) {
	s := createUnlocked(t)
	_, _, err := s.AddEntry(vault.EntryInput{Name: "one", Password: "p1"})
	require.NoError(t, err)

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalEntries)
	assert.Equal(t, vault.CurrentVersion, stats.Version)
	assert.False(t, stats.CreatedAt.IsZero())

	out, err := s.Export("JSON")
	require.NoError(t, err)
	var entries []vault.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "p1", entries[0].Password)

	_, err = s.Export("csv")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestSession_CorruptedRecords(t *testing.T) {
	salt, err := crypto.NewSalt()
	require.NoError(t, err)
	notJSON, err := crypto.Encrypt([]byte("not json"), testPassword, salt)
	require.NoError(t, err)

	tests := []struct {
		name    string
		rec     storage.Record
		wantErr error
	}{
		{
			name:    "bad salt encoding",
			rec:     storage.Record{Data: notJSON, Salt: "zz"},
			wantErr: ErrVaultCorrupted,
		},
		{
			name:    "salt too short",
			rec:     storage.Record{Data: notJSON, Salt: "0011"},
			wantErr: ErrVaultCorrupted,
		},
		{
			name:    "payload not json",
			rec:     storage.Record{Data: notJSON, Salt: crypto.EncodeSalt(salt)},
			wantErr: ErrVaultCorrupted,
		},
		{
			name:    "garbage ciphertext",
			rec:     storage.Record{Data: "AAAA", Salt: crypto.EncodeSalt(salt)},
			wantErr: ErrWrongPassword,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(t)
			require.NoError(t, s.backend.Save(s.Path(), tt.rec))

			err := s.Unlock(testPassword)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.False(t, s.IsUnlocked())
		})
	}
}

func TestSession_TornRecord(t *testing.T) {
	s := newTestSession(t)

	db, err := bolt.Open(s.Path(), storage.FilePermSecure, nil)
	require.NoError(t, err)
	require.NoError(t, db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(storage.VaultBucket)
		if err != nil {
			return err
		}
		return b.Put([]byte(storage.KeySalt), []byte("00112233445566778899aabbccddeeff"))
	}))
	require.NoError(t, db.Close())

	err = s.Unlock(testPassword)
	assert.ErrorIs(t, err, ErrVaultCorrupted)
	assert.False(t, errors.Is(err, ErrVaultNotFound))
}

func TestSession_VaultsAreIsolated(t *testing.T) {
	dir := t.TempDir()
	a := NewSession(filepath.Join(dir, "a.db"), storage.NewBoltBackend())
	b := NewSession(filepath.Join(dir, "b.db"), storage.NewSQLiteBackend())

	require.NoError(t, a.Create([]byte("alpha")))
	require.NoError(t, b.Create([]byte("beta")))

	_, _, err := a.AddEntry(vault.EntryInput{Name: "only-in-a"})
	require.NoError(t, err)

	n, err := b.EntryCount()
	require.NoError(t, err)
	assert.Zero(t, n)

	b.Lock()
	assert.ErrorIs(t, b.Unlock([]byte("alpha")), ErrWrongPassword)
}

func TestDiffEntries(t *testing.T) {
	from := []vault.Entry{{ID: 1, Name: "mail", Password: "old-secret"}}
	to := []vault.Entry{{ID: 1, Name: "mail", Password: "new-secret"}}

	same, err := DiffEntries(from, from)
	require.NoError(t, err)
	assert.Empty(t, same)

	out, err := DiffEntries(from, to)
	require.NoError(t, err)
	assert.Contains(t, out, "- ")
	assert.Contains(t, out, "+ ")
	assert.Contains(t, out, "hmac:")
	assert.NotContains(t, out, "old-secret")
	assert.NotContains(t, out, "new-secret")

	// an unkeyed hash of the secret never appears
	sum := sha256.Sum256([]byte("old-secret"))
	assert.NotContains(t, out, hex.EncodeToString(sum[:4]))

	// digests differ between runs
	again, err := DiffEntries(from, to)
	require.NoError(t, err)
	assert.NotEqual(t, out, again)

	// an unchanged secret keeps one digest within a diff
	renamed := []vault.Entry{{ID: 1, Name: "email", Password: "old-secret"}}
	out, err = DiffEntries(from, renamed)
	require.NoError(t, err)
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, `"password"`) {
			assert.True(t, strings.HasPrefix(line, "  "), line)
		}
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "locked", StateLocked.String())
	assert.Equal(t, "unlocked", StateUnlocked.String())
	assert.Equal(t, "State(7)", State(7).String())
}
