// Package vaulterr defines the error kinds shared by every passvault layer.
//
// Each failure carries exactly one kind:
//   - ErrConfiguration: bad KDF parameters or settings
//   - ErrCrypto: decryption/authentication failure (wrong password and
//     corrupted ciphertext are deliberately indistinguishable)
//   - ErrStorage: file or database I/O problems
//   - ErrVaultState: locked vault, missing vault or entry, corrupt record
//   - ErrValidation: bad caller input (export format, empty query, duplicate name)
//   - ErrAuthentication: master password rejected while unlocking
//
// Errors built with New keep the original cause, so errors.Is matches both
// the kind and whatever was wrapped.
package vaulterr

import (
	"errors"
	"fmt"
)

// Kinds
var (
	ErrConfiguration  = errors.New("configuration error")
	ErrCrypto         = errors.New("crypto failure")
	ErrStorage        = errors.New("storage failure")
	ErrVaultState     = errors.New("vault state error")
	ErrValidation     = errors.New("validation error")
	ErrAuthentication = errors.New("authentication failed")
)

// kinds in KindOf precedence. A rejected password wraps its decrypt
// failure, so Authentication is checked before Crypto.
var kinds = []error{
	ErrConfiguration,
	ErrAuthentication,
	ErrCrypto,
	ErrStorage,
	ErrVaultState,
	ErrValidation,
}

// Error attaches a kind and an operation name to an underlying error.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	case e.Op != "":
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	default:
		return e.Kind.Error()
	}
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// New wraps err with the given kind. A nil err yields an error carrying
// only the kind and operation.
func New(kind error, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf is New with a formatted cause.
func Newf(kind error, op string, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Sentinel returns a package-level error value of the given kind whose
// message is msg. Sentinels compare by identity, so callers can match the
// specific condition with errors.Is and the broader kind the same way.
func Sentinel(kind error, msg string) error {
	return &Error{Kind: kind, Err: errors.New(msg)}
}

// KindOf reports the kind carried by err, or nil when err has none.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
