package core

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/illarion/passvault/internal/crypto"
	"github.com/illarion/passvault/internal/storage"
	"github.com/illarion/passvault/internal/vault"
)

// DefaultOwner labels payloads created without WithOwner
const DefaultOwner = "user"

// State is the lock state of a Session
type State int

const (
	StateLocked State = iota
	StateUnlocked
)

func (s State) String() string {
	switch s {
	case StateLocked:
		return "locked"
	case StateUnlocked:
		return "unlocked"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Session owns the decrypted contents of one vault file while unlocked.
//
// By default the derived key is retained for the Unlocked lifetime so that
// Save and auto-save need no password; it is zeroed by Lock. With
// WithKeyRetention(false) the key is dropped right after every derivation
// and saving requires SaveWithPassword.
type Session struct {
	path      string
	backend   storage.Backend
	logger    *slog.Logger
	owner     string
	autoSave  bool
	retainKey bool

	state   State
	payload *vault.Vault
	salt    []byte
	enc     *crypto.Encryptor
}

// Option configures a Session
type Option func(*Session)

// WithLogger sets the logger for lifecycle events
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithAutoSave toggles saving after every mutation (default on)
func WithAutoSave(on bool) Option {
	return func(s *Session) { s.autoSave = on }
}

// WithKeyRetention toggles keeping the derived key while unlocked (default on)
func WithKeyRetention(on bool) Option {
	return func(s *Session) { s.retainKey = on }
}

// WithOwner sets the owner label written into new payloads
func WithOwner(owner string) Option {
	return func(s *Session) {
		if owner != "" {
			s.owner = owner
		}
	}
}

// NewSession creates a locked session for the vault file at path
func NewSession(path string, backend storage.Backend, opts ...Option) *Session {
	s := &Session{
		path:      path,
		backend:   backend,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		owner:     DefaultOwner,
		autoSave:  true,
		retainKey: true,
		state:     StateLocked,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("path", path)
	return s
}

// Path returns the vault file path
func (s *Session) Path() string { return s.path }

// State returns the current lock state
func (s *Session) State() State { return s.state }

// IsUnlocked reports whether the session holds a decrypted payload
func (s *Session) IsUnlocked() bool { return s.state == StateUnlocked }

// HasKey reports whether a derived key is retained
func (s *Session) HasKey() bool { return s.enc != nil }

// Exists reports whether the vault file holds a complete record
func (s *Session) Exists() (bool, error) {
	ok, err := storage.Exists(s.backend, s.path)
	if err != nil {
		return false, fmt.Errorf("failed to probe vault: %w", err)
	}
	return ok, nil
}

// Create initializes a new vault at the session path and unlocks it
func (s *Session) Create(password []byte) error {
	if s.IsUnlocked() {
		return ErrAlreadyUnlocked
	}
	if len(password) == 0 {
		return ErrPasswordRequired
	}

	rec, err := s.backend.Load(s.path)
	if err != nil {
		return fmt.Errorf("failed to check vault: %w", err)
	}
	if !rec.Empty() {
		return ErrAlreadyExists
	}

	salt, err := crypto.NewSalt()
	if err != nil {
		return fmt.Errorf("failed to create salt: %w", err)
	}

	enc, err := crypto.NewPasswordEncryptor(password, salt)
	if err != nil {
		return fmt.Errorf("failed to derive key: %w", err)
	}

	payload := vault.New(s.owner)
	if err := s.persist(enc, salt, payload); err != nil {
		enc.Destroy()
		return err
	}

	s.enter(payload, salt, enc)
	s.logger.Info("vault created")
	return nil
}

// Unlock loads and decrypts the vault
func (s *Session) Unlock(password []byte) error {
	if s.IsUnlocked() {
		return ErrAlreadyUnlocked
	}

	payload, salt, enc, err := s.open(password)
	if err != nil {
		s.logger.Warn("unlock failed", "error", err)
		return err
	}

	s.enter(payload, salt, enc)
	s.logger.Info("vault unlocked", "entries", len(payload.Entries))
	return nil
}

// VerifyPassword checks password against the stored vault without
// changing the session state.
func (s *Session) VerifyPassword(password []byte) error {
	payload, _, enc, err := s.open(password)
	if err != nil {
		return err
	}
	enc.Destroy()
	payload.Wipe()
	return nil
}

// Lock discards the payload and key. Unsaved changes are lost.
func (s *Session) Lock() {
	if !s.IsUnlocked() {
		return
	}
	if s.enc != nil {
		s.enc.Destroy()
		s.enc = nil
	}
	if s.payload != nil {
		s.payload.Wipe()
		s.payload = nil
	}
	crypto.ClearBytes(s.salt)
	s.salt = nil
	s.state = StateLocked
	s.logger.Info("vault locked")
}

// LockAndSave saves with password and then locks
func (s *Session) LockAndSave(password []byte) error {
	if !s.IsUnlocked() {
		return nil
	}
	if err := s.SaveWithPassword(password); err != nil {
		return err
	}
	s.Lock()
	return nil
}

// Save re-encrypts the payload with the retained key and persists it
func (s *Session) Save() error {
	if !s.IsUnlocked() {
		return ErrNotUnlocked
	}
	if s.enc == nil {
		return ErrPasswordRequired
	}
	return s.persist(s.enc, s.salt, s.payload)
}

// SaveWithPassword re-derives the key from password and persists the
// payload. The password must match the vault's current password.
func (s *Session) SaveWithPassword(password []byte) error {
	if !s.IsUnlocked() {
		return ErrNotUnlocked
	}
	if len(password) == 0 {
		return ErrPasswordRequired
	}

	enc, err := crypto.NewPasswordEncryptor(password, s.salt)
	if err != nil {
		return fmt.Errorf("failed to derive key: %w", err)
	}
	defer enc.Destroy()

	if err := s.checkKey(enc); err != nil {
		return err
	}
	return s.persist(enc, s.salt, s.payload)
}

// ChangePassword re-encrypts the vault under a new password and salt
func (s *Session) ChangePassword(current, next []byte) error {
	if !s.IsUnlocked() {
		return ErrNotUnlocked
	}
	if len(current) == 0 || len(next) == 0 {
		return ErrPasswordRequired
	}

	oldEnc, err := crypto.NewPasswordEncryptor(current, s.salt)
	if err != nil {
		return fmt.Errorf("failed to derive key: %w", err)
	}
	defer oldEnc.Destroy()
	if err := s.checkKey(oldEnc); err != nil {
		return err
	}

	salt, err := crypto.NewSalt()
	if err != nil {
		return fmt.Errorf("failed to create salt: %w", err)
	}
	enc, err := crypto.NewPasswordEncryptor(next, salt)
	if err != nil {
		return fmt.Errorf("failed to derive key: %w", err)
	}

	if err := s.persist(enc, salt, s.payload); err != nil {
		enc.Destroy()
		return err
	}

	if s.enc != nil {
		s.enc.Destroy()
	}
	crypto.ClearBytes(s.salt)
	s.salt = salt
	s.enc = enc
	if !s.retainKey {
		s.enc.Destroy()
		s.enc = nil
	}
	s.logger.Info("vault password changed")
	return nil
}

// open loads, authenticates and decodes the stored vault
func (s *Session) open(password []byte) (*vault.Vault, []byte, *crypto.Encryptor, error) {
	rec, err := s.backend.Load(s.path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load vault: %w", err)
	}
	if rec.Empty() {
		return nil, nil, nil, ErrVaultNotFound
	}
	if !rec.Complete() {
		return nil, nil, nil, fmt.Errorf("%w: record is missing vault data or salt", ErrVaultCorrupted)
	}

	salt, err := crypto.DecodeSalt(rec.Salt)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %w", ErrVaultCorrupted, err)
	}
	if len(salt) < crypto.MinSaltSize {
		return nil, nil, nil, fmt.Errorf("%w: salt too short", ErrVaultCorrupted)
	}

	enc, err := crypto.NewPasswordEncryptor(password, salt)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to derive key: %w", err)
	}

	plaintext, err := enc.Open(rec.Data)
	if err != nil {
		enc.Destroy()
		return nil, nil, nil, fmt.Errorf("%w: %w", ErrWrongPassword, err)
	}
	defer crypto.ClearBytes(plaintext)

	payload := &vault.Vault{}
	if err := json.Unmarshal(plaintext, payload); err != nil {
		enc.Destroy()
		return nil, nil, nil, fmt.Errorf("%w: failed to decode payload: %w", ErrVaultCorrupted, err)
	}
	payload.Normalize()

	return payload, salt, enc, nil
}

// enter switches to Unlocked, keeping or dropping the key per options
func (s *Session) enter(payload *vault.Vault, salt []byte, enc *crypto.Encryptor) {
	s.payload = payload
	s.salt = salt
	s.enc = enc
	if !s.retainKey {
		s.enc.Destroy()
		s.enc = nil
	}
	s.state = StateUnlocked
}

// checkKey rejects a key that cannot open the vault as stored
func (s *Session) checkKey(enc *crypto.Encryptor) error {
	if s.enc != nil {
		if !s.enc.SameKey(enc) {
			return ErrWrongPassword
		}
		return nil
	}

	rec, err := s.backend.Load(s.path)
	if err != nil {
		return fmt.Errorf("failed to load vault: %w", err)
	}
	if !rec.Complete() {
		return ErrVaultNotFound
	}
	plaintext, err := enc.Open(rec.Data)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrongPassword, err)
	}
	crypto.ClearBytes(plaintext)
	return nil
}

// persist seals payload and writes data and salt in one transaction
func (s *Session) persist(enc *crypto.Encryptor, salt []byte, payload *vault.Vault) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal vault: %w", err)
	}
	defer crypto.ClearBytes(data)

	blob, err := enc.Seal(data)
	if err != nil {
		return fmt.Errorf("failed to encrypt vault: %w", err)
	}

	rec := storage.Record{Data: blob, Salt: crypto.EncodeSalt(salt)}
	if err := s.backend.Save(s.path, rec); err != nil {
		return fmt.Errorf("failed to save vault: %w", err)
	}

	s.logger.Debug("vault saved", "entries", len(payload.Entries))
	return nil
}
