package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"

	"github.com/illarion/passvault/internal/vaulterr"
)

const (
	SaltSize    = 16 // Salt size in bytes for new vaults
	MinSaltSize = 8  // Shortest salt DeriveKey accepts
	KeySize     = 32 // AES-256 key size
	NonceSize   = 12 // GCM nonce size
	TagSize     = 16 // GCM authentication tag size

	ArgonTime    = 2         // Argon2id passes
	ArgonMemory  = 64 * 1024 // Argon2id memory in KiB (64 MiB)
	ArgonThreads = 1         // Argon2id parallelism
)

var (
	ErrSaltTooShort  = vaulterr.Sentinel(vaulterr.ErrConfiguration, "salt too short")
	ErrDecryptFailed = vaulterr.Sentinel(vaulterr.ErrCrypto, "decryption failed")
)

// DeriveKey derives a KeySize-byte key from a password and salt.
// The same inputs always produce the same key.
func DeriveKey(password, salt []byte) ([]byte, error) {
	if len(salt) < MinSaltSize {
		return nil, fmt.Errorf("%w: got %d bytes, need at least %d", ErrSaltTooShort, len(salt), MinSaltSize)
	}
	return argon2.IDKey(password, salt, ArgonTime, ArgonMemory, ArgonThreads, KeySize), nil
}

// NewSalt generates a fresh random salt
func NewSalt() ([]byte, error) {
	return GenerateRandom(SaltSize)
}

// EncodeSalt returns the hex form stored next to the vault data
func EncodeSalt(salt []byte) string {
	return hex.EncodeToString(salt)
}

// DecodeSalt parses a stored hex salt
func DecodeSalt(s string) ([]byte, error) {
	salt, err := hex.DecodeString(s)
	if err != nil {
		return nil, vaulterr.New(vaulterr.ErrConfiguration, "decode salt", err)
	}
	return salt, nil
}

// Encryptor provides authenticated encryption under a retained key
type Encryptor struct {
	key []byte
}

// NewEncryptor creates a new encryptor with the given key.
// The encryptor owns key and zeroes it on Destroy.
func NewEncryptor(key []byte) *Encryptor {
	return &Encryptor{
		key: key,
	}
}

// NewPasswordEncryptor derives a key from password and salt and wraps it
func NewPasswordEncryptor(password, salt []byte) (*Encryptor, error) {
	key, err := DeriveKey(password, salt)
	if err != nil {
		return nil, err
	}
	return NewEncryptor(key), nil
}

func (e *Encryptor) aead() (cipher.AEAD, error) {
	if len(e.key) != KeySize {
		return nil, vaulterr.Newf(vaulterr.ErrConfiguration, "create cipher", "invalid key size %d", len(e.key))
	}

	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// Seal encrypts plaintext using AES-256-GCM and returns the base64 blob
func (e *Encryptor) Seal(plaintext []byte) (string, error) {
	gcm, err := e.aead()
	if err != nil {
		return "", err
	}

	// Fresh nonce for every call
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	// nonce || ciphertext || tag
	sealed := gcm.Seal(nonce, nonce, plaintext, nil)

	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a blob produced by Seal.
// Every failure is reported as ErrDecryptFailed.
func (e *Encryptor) Open(blob string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid encoding", ErrDecryptFailed)
	}

	if len(raw) < NonceSize+TagSize {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecryptFailed)
	}

	gcm, err := e.aead()
	if err != nil {
		return nil, err
	}

	nonce := raw[:NonceSize]
	ciphertext := raw[NonceSize:]

	// Decrypt and verify
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: message authentication failed", ErrDecryptFailed)
	}

	return plaintext, nil
}

// SameKey reports whether both encryptors hold the same key
func (e *Encryptor) SameKey(other *Encryptor) bool {
	if e == nil || other == nil || len(e.key) == 0 {
		return false
	}
	return ConstantTimeCompare(e.key, other.key)
}

// Destroy clears the encryptor's key from memory
func (e *Encryptor) Destroy() {
	ClearBytes(e.key)
	e.key = nil
}

// Encrypt derives a key from password and salt, seals plaintext and
// clears the key.
func Encrypt(plaintext, password, salt []byte) (string, error) {
	enc, err := NewPasswordEncryptor(password, salt)
	if err != nil {
		return "", err
	}
	defer enc.Destroy()

	return enc.Seal(plaintext)
}

// Decrypt derives a key from password and salt and opens blob.
func Decrypt(blob string, password, salt []byte) ([]byte, error) {
	enc, err := NewPasswordEncryptor(password, salt)
	if err != nil {
		return nil, err
	}
	defer enc.Destroy()

	return enc.Open(blob)
}

// ClearBytes securely clears a byte slice
func ClearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ConstantTimeCompare performs a constant-time comparison of two byte slices
func ConstantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// GenerateRandom generates n random bytes
func GenerateRandom(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return b, nil
}

// IsDecryptFailure reports whether err came from a failed Open
func IsDecryptFailure(err error) bool {
	return errors.Is(err, ErrDecryptFailed)
}
