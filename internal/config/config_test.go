package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illarion/passvault/internal/storage"
	"github.com/illarion/passvault/internal/vaulterr"
)

// isolate points HOME and XDG_CONFIG_HOME at empty temp dirs and clears
// overrides that might leak in from the environment.
func isolate(t *testing.T) (home, xdg string) {
	t.Helper()
	home = t.TempDir()
	xdg = t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	t.Setenv("XDG_CONFIG_HOME", xdg)
	for _, key := range []string{"VAULTS_DIR", "BACKEND", "AUTO_SAVE", "RETAIN_KEY", "KEYRING", "LOG_LEVEL", "LOG_FORMAT"} {
		t.Setenv(EnvPrefix+"_"+key, "")
		os.Unsetenv(EnvPrefix + "_" + key)
	}
	return home, xdg
}

func writeConfig(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
}

func TestLoad_Defaults(t *testing.T) {
	home, _ := isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".passvault", "vaults"), cfg.VaultsDir)
	assert.Equal(t, storage.BackendBolt, cfg.Backend)
	assert.True(t, cfg.AutoSave)
	assert.True(t, cfg.RetainKey)
	assert.True(t, cfg.Keyring)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Empty(t, cfg.File)
}

func TestLoad_DefaultFile(t *testing.T) {
	_, xdg := isolate(t)
	vaults := t.TempDir()
	writeConfig(t, filepath.Join(xdg, "passvault", "config.yaml"), "vaults_dir: "+vaults+"\nbackend: sqlite\nauto_save: false\nlog:\n  level: debug\n")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, vaults, cfg.VaultsDir)
	assert.Equal(t, storage.BackendSQLite, cfg.Backend)
	assert.False(t, cfg.AutoSave)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.NotEmpty(t, cfg.File)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	writeConfig(t, path, "backend: sqlite\nlog:\n  format: json\n")

	t.Setenv("PASSVAULT_BACKEND", "bolt")
	t.Setenv("PASSVAULT_LOG_LEVEL", "error")
	t.Setenv("PASSVAULT_RETAIN_KEY", "false")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, storage.BackendBolt, cfg.Backend)
	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.False(t, cfg.RetainKey)
	assert.Equal(t, path, cfg.File)
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	isolate(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, vaulterr.ErrConfiguration)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  string
		val  string
	}{
		{"backend", "PASSVAULT_BACKEND", "postgres"},
		{"level", "PASSVAULT_LOG_LEVEL", "verbose"},
		{"format", "PASSVAULT_LOG_FORMAT", "xml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			t.Setenv(tt.env, tt.val)
			_, err := Load("")
			assert.ErrorIs(t, err, vaulterr.ErrConfiguration)
		})
	}
}

func TestExpandHome(t *testing.T) {
	home, _ := isolate(t)

	got, err := expandHome("~/vaults")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "vaults"), got)

	got, err = expandHome("/srv/vaults")
	require.NoError(t, err)
	assert.Equal(t, "/srv/vaults", got)

	got, err = expandHome("~other/vaults")
	require.NoError(t, err)
	assert.Equal(t, "~other/vaults", got)
}
