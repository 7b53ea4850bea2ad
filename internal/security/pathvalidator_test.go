package security

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidator(t *testing.T) (*PathValidator, string) {
	t.Helper()
	dir := t.TempDir()
	pv, err := New(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pv.Close() })
	return pv, dir
}

func TestPathValidator_ValidateAndNormalize(t *testing.T) {
	pv, _ := newValidator(t)

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"vault file", "personal.db", "personal.db", nil},
		{"registry file", "vault_registry.json", "vault_registry.json", nil},
		{"dot slash", "./work.db", "work.db", nil},
		{"dot segments", "a/./b/../work.db", "a/work.db", nil},
		{"parent directory", "../work.db", "", ErrPathEscapes},
		{"nested parent", "a/../../work.db", "", ErrPathEscapes},
		{"absolute path", "/etc/passwd", "", ErrAbsolutePath},
		{"empty path", "", "", ErrEmptyPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.input == "/etc/passwd" && runtime.GOOS == "windows" {
				t.Skip("not absolute on windows")
			}
			got, err := pv.ValidateAndNormalize(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPathValidator_ValidateExistingPath(t *testing.T) {
	pv, dir := newValidator(t)

	got, err := pv.ValidateExistingPath("work.db")
	require.NoError(t, err)
	assert.Equal(t, "work.db", got)

	// Older registries stored absolute paths
	got, err = pv.ValidateExistingPath(filepath.Join(dir, "legacy.db"))
	require.NoError(t, err)
	assert.Equal(t, "legacy.db", got)

	_, err = pv.ValidateExistingPath(filepath.Join(filepath.Dir(dir), "elsewhere.db"))
	assert.ErrorIs(t, err, ErrPathEscapes)

	_, err = pv.ValidateExistingPath("../etc/passwd")
	assert.ErrorIs(t, err, ErrPathEscapes)
}

func TestPathValidator_Abs(t *testing.T) {
	pv, dir := newValidator(t)

	abs, err := pv.Abs("work.db")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(pv.Dir(), "work.db"), abs)
	assert.Equal(t, filepath.Base(dir), filepath.Base(pv.Dir()))

	_, err = pv.Abs("../work.db")
	assert.Error(t, err)
}

func TestPathValidator_WriteFileAtomic(t *testing.T) {
	pv, dir := newValidator(t)

	require.NoError(t, pv.WriteFileAtomic("vault_registry.json", []byte(`{"a":1}`), 0600))
	require.NoError(t, pv.WriteFileAtomic("vault_registry.json", []byte(`{}`), 0600))

	data, err := os.ReadFile(filepath.Join(dir, "vault_registry.json"))
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))

	_, err = os.Stat(filepath.Join(dir, "vault_registry.json.tmp"))
	assert.True(t, os.IsNotExist(err), "temp file must not remain")

	if runtime.GOOS != "windows" {
		info, err := os.Stat(filepath.Join(dir, "vault_registry.json"))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}
}

func TestPathValidator_ReadStatRemove(t *testing.T) {
	pv, dir := newValidator(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "work.db"), []byte("data"), 0600))

	data, err := pv.ReadFileInRoot("work.db")
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))

	info, err := pv.StatInRoot("work.db")
	require.NoError(t, err)
	assert.EqualValues(t, 4, info.Size())

	require.NoError(t, pv.RemoveInRoot("work.db"))
	_, err = pv.StatInRoot("work.db")
	assert.True(t, os.IsNotExist(err))

	// Removing a missing file is fine
	require.NoError(t, pv.RemoveInRoot("work.db"))

	_, err = pv.ReadFileInRoot("../work.db")
	assert.ErrorIs(t, err, ErrPathEscapes)
}

func TestPathValidator_RenameInRoot(t *testing.T) {
	pv, dir := newValidator(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.db"), []byte("x"), 0600))

	require.NoError(t, pv.RenameInRoot("old.db", "new.db"))
	_, err := os.Stat(filepath.Join(dir, "new.db"))
	require.NoError(t, err)

	err = pv.RenameInRoot("new.db", "../escaped.db")
	assert.ErrorIs(t, err, ErrPathEscapes)
	_, err = os.Stat(filepath.Join(filepath.Dir(dir), "escaped.db"))
	assert.True(t, os.IsNotExist(err))
}

func TestPathValidator_SymlinkEscapeBlocked(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	pv, dir := newValidator(t)

	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.db"), []byte("x"), 0600))
	require.NoError(t, os.Symlink(filepath.Join(outside, "secret.db"), filepath.Join(dir, "link.db")))

	// The name is lexically local but os.Root refuses to follow it out
	_, err := pv.ReadFileInRoot("link.db")
	assert.Error(t, err)
}
