// Package registry tracks the named vaults kept in one directory.
//
// The registry file maps display names to VaultInfo records. Each vault is
// a separate file named after its sanitized display name. At most one vault
// is open through a Registry at a time; opening another locks the previous
// session first.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/illarion/passvault/internal/core"
	"github.com/illarion/passvault/internal/security"
	"github.com/illarion/passvault/internal/storage"
)

// RegistryFile is the registry's file name inside the vaults directory
const RegistryFile = "vault_registry.json"

// VaultInfo describes one registered vault. EntryCount is a cache that is
// refreshed only when the vault is opened or saved through the registry.
type VaultInfo struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	Backend      string    `json:"backend,omitempty"`
	Description  string    `json:"description,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	EntryCount   int       `json:"entry_count"`
	LastAccessed time.Time `json:"last_accessed"`
}

// Registry manages the vaults in one directory
type Registry struct {
	mu          sync.Mutex
	paths       *security.PathValidator
	backend     storage.Backend
	logger      *slog.Logger
	sessionOpts []core.Option

	vaults      map[string]*VaultInfo
	current     *core.Session
	currentName string
}

// Option configures a Registry
type Option func(*Registry)

// WithLogger sets the logger for registry events. Sessions opened by the
// registry log through it as well.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithSessionOptions sets options applied to every session the registry opens
func WithSessionOptions(opts ...core.Option) Option {
	return func(r *Registry) {
		r.sessionOpts = append(r.sessionOpts, opts...)
	}
}

// Open creates dir if needed and loads its registry file. backend is used
// for newly created vaults.
func Open(dir string, backend storage.Backend, opts ...Option) (*Registry, error) {
	if err := os.MkdirAll(dir, storage.DirPermSecure); err != nil {
		return nil, fmt.Errorf("failed to create vaults directory: %w", err)
	}

	paths, err := security.New(dir)
	if err != nil {
		return nil, err
	}

	r := &Registry{
		paths:   paths,
		backend: backend,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		vaults:  make(map[string]*VaultInfo),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("dir", paths.Dir())

	if err := r.load(); err != nil {
		paths.Close()
		return nil, err
	}
	return r, nil
}

// Close locks the open vault and releases the directory handle
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closeCurrent()
	return r.paths.Close()
}

// Dir returns the absolute vaults directory
func (r *Registry) Dir() string {
	return r.paths.Dir()
}

// FilePath returns the absolute location of a registered vault's file
func (r *Registry) FilePath(info VaultInfo) (string, error) {
	return r.paths.Abs(info.Path)
}

// Reload rereads the registry file, discarding unsaved in-memory state.
// The open vault, if any, stays open.
func (r *Registry) Reload() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

// CreateVault creates a new encrypted vault and registers it. The new
// vault is left locked.
func (r *Registry) CreateVault(name string, password []byte, description string) (VaultInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.vaults[name]; ok {
		return VaultInfo{}, fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}
	file, err := r.claimFile(name, "")
	if err != nil {
		return VaultInfo{}, err
	}
	abs, err := r.paths.Abs(file)
	if err != nil {
		return VaultInfo{}, err
	}

	session := r.newSession(name, abs, r.backend)
	if err := session.Create(password); err != nil {
		return VaultInfo{}, err
	}
	session.Lock()

	now := time.Now().UTC()
	info := &VaultInfo{
		ID:           uuid.NewString(),
		Name:         name,
		Path:         file,
		Backend:      r.backend.Kind(),
		Description:  description,
		CreatedAt:    now,
		LastAccessed: now,
	}
	r.vaults[name] = info

	if err := r.save(); err != nil {
		delete(r.vaults, name)
		if rmErr := r.paths.RemoveInRoot(file); rmErr != nil {
			r.logger.Warn("failed to remove unregistered vault file", "file", file, "error", rmErr)
		}
		return VaultInfo{}, err
	}

	r.logger.Info("vault registered", "vault", name, "file", file)
	return *info, nil
}

// ListVaults returns all registered vaults sorted by name
func (r *Registry) ListVaults() []VaultInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]VaultInfo, 0, len(r.vaults))
	for _, info := range r.vaults {
		out = append(out, *info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Get returns the info of a registered vault
func (r *Registry) Get(name string) (VaultInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, ok := r.vaults[name]
	if !ok {
		return VaultInfo{}, false
	}
	return *info, true
}

// Exists reports whether name is registered
func (r *Registry) Exists(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.vaults[name]
	return ok
}

// OpenVault unlocks a registered vault and makes it the current one.
// A previously open vault is locked first, without saving.
func (r *Registry) OpenVault(name string, password []byte) (*core.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	if err := r.checkFile(info); err != nil {
		return nil, err
	}

	backend, err := storage.NewBackend(info.BackendKind())
	if err != nil {
		return nil, err
	}
	abs, err := r.paths.Abs(info.Path)
	if err != nil {
		return nil, err
	}

	r.closeCurrent()

	session := r.newSession(name, abs, backend)
	if err := session.Unlock(password); err != nil {
		return nil, err
	}

	count, _ := session.EntryCount()
	info.EntryCount = count
	info.LastAccessed = time.Now().UTC()
	if err := r.save(); err != nil {
		r.logger.Warn("failed to record vault access", "vault", name, "error", err)
	}

	r.current = session
	r.currentName = name
	return session, nil
}

// CloseVault locks the current vault. Unsaved changes are discarded.
func (r *Registry) CloseVault() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeCurrent()
}

// Current returns the open session and its name, or nil and "" when no
// vault is open.
func (r *Registry) Current() (*core.Session, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current, r.currentName
}

// Refresh updates the cached entry count and access time of name from an
// unlocked session, typically after a save.
func (r *Registry) Refresh(name string, session *core.Session) error {
	count, err := session.EntryCount()
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	info, err := r.lookup(name)
	if err != nil {
		return err
	}
	info.EntryCount = count
	info.LastAccessed = time.Now().UTC()
	return r.save()
}

// UpdateEntryCount overwrites the cached entry count of name
func (r *Registry) UpdateEntryCount(name string, count int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, err := r.lookup(name)
	if err != nil {
		return err
	}
	info.EntryCount = count
	return r.save()
}

// DeleteVault removes a vault's file and its registry entry. The vault is
// closed first if it is the current one.
func (r *Registry) DeleteVault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, err := r.lookup(name)
	if err != nil {
		return err
	}
	if r.currentName == name {
		r.closeCurrent()
	}

	if err := r.paths.RemoveInRoot(info.Path); err != nil {
		return fmt.Errorf("failed to remove vault file: %w", err)
	}
	delete(r.vaults, name)

	if err := r.save(); err != nil {
		return err
	}
	r.logger.Info("vault deleted", "vault", name)
	return nil
}

// RenameVault changes a vault's display name and renames its file. The
// vault keeps its ID. If it is the current vault it is closed, since its
// session refers to the old file.
func (r *Registry) RenameVault(oldName, newName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, err := r.lookup(oldName)
	if err != nil {
		return err
	}
	if oldName == newName {
		return nil
	}
	if _, ok := r.vaults[newName]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateName, newName)
	}

	file, err := r.claimFile(newName, oldName)
	if err != nil {
		return err
	}
	if r.currentName == oldName {
		r.closeCurrent()
	}

	if file != info.Path {
		if _, err := r.paths.StatInRoot(info.Path); err == nil {
			if err := r.paths.RenameInRoot(info.Path, file); err != nil {
				return fmt.Errorf("failed to rename vault file: %w", err)
			}
		}
	}

	oldPath := info.Path
	info.Name = newName
	info.Path = file
	r.vaults[newName] = info
	delete(r.vaults, oldName)

	if err := r.save(); err != nil {
		// Put the file back so the on-disk registry stays accurate
		if file != oldPath {
			_ = r.paths.RenameInRoot(file, oldPath)
		}
		info.Name = oldName
		info.Path = oldPath
		r.vaults[oldName] = info
		delete(r.vaults, newName)
		return err
	}

	r.logger.Info("vault renamed", "from", oldName, "to", newName)
	return nil
}

// BackupVault copies a vault's file to dest
func (r *Registry) BackupVault(name, dest string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, err := r.lookup(name)
	if err != nil {
		return err
	}
	if err := r.checkFile(info); err != nil {
		return err
	}
	abs, err := r.paths.Abs(info.Path)
	if err != nil {
		return err
	}

	if err := storage.Backup(abs, dest); err != nil {
		return err
	}
	r.logger.Info("vault backed up", "vault", name, "dest", dest)
	return nil
}

// RestoreVault copies a backup file into the vaults directory under name.
// An existing vault of that name is replaced and keeps its ID. The backup
// must hold a complete vault record in a format any backend reads; the
// backend that reads it is recorded for name.
func (r *Registry) RestoreVault(src, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := os.Stat(src); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", storage.ErrSourceMissing, src)
		}
		return fmt.Errorf("failed to read backup: %w", err)
	}

	existing := r.vaults[name]
	preferred := r.backend.Kind()
	if existing != nil {
		preferred = existing.BackendKind()
	}
	kind, ok := detectBackend(src, preferred)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotVault, src)
	}

	file, err := r.claimFile(name, name)
	if err != nil {
		return err
	}
	abs, err := r.paths.Abs(file)
	if err != nil {
		return err
	}

	if r.currentName == name {
		r.closeCurrent()
	}
	if err := storage.Restore(src, abs); err != nil {
		return err
	}

	now := time.Now().UTC()
	info := existing
	if info == nil {
		info = &VaultInfo{
			ID:        uuid.NewString(),
			Name:      name,
			CreatedAt: now,
		}
		r.vaults[name] = info
	}
	info.Path = file
	info.Backend = kind
	info.EntryCount = 0
	info.LastAccessed = now

	if err := r.save(); err != nil {
		return err
	}
	r.logger.Info("vault restored", "vault", name, "src", src)
	return nil
}

// detectBackend returns the kind of the backend holding a complete record
// at path, trying preferred first.
func detectBackend(path, preferred string) (string, bool) {
	kinds := []string{preferred}
	for _, k := range []string{storage.BackendBolt, storage.BackendSQLite} {
		if k != preferred {
			kinds = append(kinds, k)
		}
	}
	for _, kind := range kinds {
		backend, err := storage.NewBackend(kind)
		if err != nil {
			continue
		}
		if ok, err := storage.Exists(backend, path); err == nil && ok {
			return kind, true
		}
	}
	return "", false
}

func (r *Registry) newSession(name, path string, backend storage.Backend) *core.Session {
	opts := append([]core.Option{core.WithLogger(r.logger.With("vault", name))}, r.sessionOpts...)
	return core.NewSession(path, backend, opts...)
}

func (r *Registry) lookup(name string) (*VaultInfo, error) {
	info, ok := r.vaults[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrVaultNotFound, name)
	}
	return info, nil
}

func (r *Registry) checkFile(info *VaultInfo) error {
	if _, err := r.paths.StatInRoot(info.Path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrVaultFileMissing, info.Path)
		}
		return fmt.Errorf("failed to stat vault file: %w", err)
	}
	return nil
}

// claimFile returns the file name for name, failing when another
// registered vault (other than owner) or a stray file already uses it.
func (r *Registry) claimFile(name, owner string) (string, error) {
	file, err := FileName(name)
	if err != nil {
		return "", err
	}
	for other, info := range r.vaults {
		if other == owner {
			continue
		}
		if info.Path == file {
			return "", fmt.Errorf("%w: %s is used by vault %q", ErrPathTaken, file, other)
		}
	}
	if owner == "" || r.vaults[owner] == nil || r.vaults[owner].Path != file {
		if _, err := r.paths.StatInRoot(file); err == nil {
			return "", fmt.Errorf("%w: %s already exists", ErrPathTaken, file)
		}
	}
	return file, nil
}

func (r *Registry) closeCurrent() {
	if r.current == nil {
		return
	}
	r.current.Lock()
	r.logger.Debug("vault closed", "vault", r.currentName)
	r.current = nil
	r.currentName = ""
}

// load replaces the in-memory registry with the file contents. A missing
// file is an empty registry; an unreadable one is logged and treated as
// empty.
func (r *Registry) load() error {
	r.vaults = make(map[string]*VaultInfo)

	data, err := r.paths.ReadFileInRoot(RegistryFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read registry: %w", err)
	}

	var raw map[string]*VaultInfo
	if err := json.Unmarshal(data, &raw); err != nil {
		r.logger.Warn("could not load vault registry, starting empty", "error", err)
		return nil
	}

	dirty := false
	for name, info := range raw {
		if info == nil {
			continue
		}
		rel, err := r.paths.ValidateExistingPath(info.Path)
		if err != nil {
			r.logger.Warn("skipping registry entry with invalid path", "vault", name, "error", err)
			continue
		}
		if rel != info.Path {
			info.Path = rel
			dirty = true
		}
		if info.ID == "" {
			info.ID = uuid.NewString()
			dirty = true
		}
		if info.LastAccessed.IsZero() {
			info.LastAccessed = info.CreatedAt
		}
		info.Name = name
		r.vaults[name] = info
	}

	r.logger.Debug("registry loaded", "vaults", len(r.vaults))
	if dirty {
		return r.save()
	}
	return nil
}

func (r *Registry) save() error {
	data, err := json.MarshalIndent(r.vaults, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := r.paths.WriteFileAtomic(RegistryFile, data, storage.FilePermSecure); err != nil {
		return fmt.Errorf("failed to save registry: %w", err)
	}
	r.logger.Debug("registry saved", "vaults", len(r.vaults))
	return nil
}

// BackendKind returns the storage backend of the vault file. Entries
// without one predate the field and were written as SQLite files.
func (v VaultInfo) BackendKind() string {
	if v.Backend == "" {
		return storage.BackendSQLite
	}
	return v.Backend
}
