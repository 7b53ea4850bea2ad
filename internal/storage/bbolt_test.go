package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"github.com/illarion/passvault/internal/vaulterr"
)

func backends() map[string]Backend {
	return map[string]Backend{
		BackendBolt:   NewBoltBackend(),
		BackendSQLite: NewSQLiteBackend(),
	}
}

func TestBackend_SaveLoad(t *testing.T) {
	for name, b := range backends() {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", "work.db")

			rec := Record{Data: "c2VhbGVk", Salt: "00112233445566778899aabbccddeeff"}
			require.NoError(t, b.Save(path, rec))

			got, err := b.Load(path)
			require.NoError(t, err)
			assert.Equal(t, rec, got)

			stat, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(FilePermSecure), stat.Mode().Perm())
		})
	}
}

func TestBackend_Overwrite(t *testing.T) {
	for name, b := range backends() {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "v.db")

			require.NoError(t, b.Save(path, Record{Data: "first", Salt: "aaaaaaaaaaaaaaaa"}))
			require.NoError(t, b.Save(path, Record{Data: "second", Salt: "bbbbbbbbbbbbbbbb"}))

			got, err := b.Load(path)
			require.NoError(t, err)
			assert.Equal(t, "second", got.Data)
			assert.Equal(t, "bbbbbbbbbbbbbbbb", got.Salt)
		})
	}
}

func TestBackend_LoadMissing(t *testing.T) {
	for name, b := range backends() {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "missing.db")

			rec, err := b.Load(path)
			require.NoError(t, err)
			assert.True(t, rec.Empty())

			// Probing must not create the file
			_, err = os.Stat(path)
			assert.True(t, os.IsNotExist(err))

			ok, err := Exists(b, path)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestBackend_SaveRejectsPartialRecord(t *testing.T) {
	for name, b := range backends() {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "v.db")

			err := b.Save(path, Record{Data: "only-data"})
			assert.ErrorIs(t, err, vaulterr.ErrStorage)

			_, statErr := os.Stat(path)
			assert.True(t, os.IsNotExist(statErr))
		})
	}
}

func TestBackend_Describe(t *testing.T) {
	for name, b := range backends() {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "v.db")

			info, err := b.Describe(path)
			require.NoError(t, err)
			assert.False(t, info.Exists)

			require.NoError(t, b.Save(path, Record{Data: "d", Salt: "s"}))

			info, err = b.Describe(path)
			require.NoError(t, err)
			assert.True(t, info.Exists)
			assert.Positive(t, info.Size)
			assert.True(t, info.HasVaultData)
			assert.True(t, info.HasSalt)
			assert.Equal(t, []string{KeySalt, KeyVaultData}, info.Keys)
		})
	}
}

func TestBoltBackend_TornRecordLoadsPartially(t *testing.T) {
	// A file written by something other than Save may hold one key only;
	// Load reports what is there and leaves the verdict to the caller.
	path := filepath.Join(t.TempDir(), "torn.db")

	db, err := bolt.Open(path, FilePermSecure, nil)
	require.NoError(t, err)
	require.NoError(t, db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(VaultBucket)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(KeyVaultData), []byte("data-only"))
	}))
	require.NoError(t, db.Close())

	b := NewBoltBackend()
	rec, err := b.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "data-only", rec.Data)
	assert.Empty(t, rec.Salt)
	assert.False(t, rec.Complete())

	info, err := b.Describe(path)
	require.NoError(t, err)
	assert.True(t, info.HasVaultData)
	assert.False(t, info.HasSalt)
}

func TestBoltBackend_LoadGarbageFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.db")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a bolt file"), 0600))

	_, err := NewBoltBackend().Load(path)
	assert.ErrorIs(t, err, vaulterr.ErrStorage)
}

func TestBoltBackend_Compact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v.db")
	b := NewBoltBackend()

	for i := 0; i < 20; i++ {
		require.NoError(t, b.Save(path, Record{Data: string(make([]byte, 4096)) + "x", Salt: "salt"}))
	}
	require.NoError(t, b.Save(path, Record{Data: "final", Salt: "salt"}))

	require.NoError(t, b.Compact(path))

	got, err := b.Load(path)
	require.NoError(t, err)
	assert.Equal(t, Record{Data: "final", Salt: "salt"}, got)

	_, err = os.Stat(path + ".compact")
	assert.True(t, os.IsNotExist(err))
}

func TestNewBackend(t *testing.T) {
	b, err := NewBackend("")
	require.NoError(t, err)
	assert.Equal(t, BackendBolt, b.Kind())

	b, err = NewBackend(BackendSQLite)
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, b.Kind())

	_, err = NewBackend("mongo")
	assert.ErrorIs(t, err, ErrUnknownBackend)
	assert.ErrorIs(t, err, vaulterr.ErrConfiguration)
}
