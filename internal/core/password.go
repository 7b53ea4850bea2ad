package core

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/illarion/passvault/internal/crypto"
	"github.com/illarion/passvault/internal/vaulterr"
)

// PasswordEnv names the environment variable consulted before prompting
const PasswordEnv = "PASSVAULT_PASSWORD"

var ErrPasswordMismatch = vaulterr.Sentinel(vaulterr.ErrValidation, "passwords do not match")

// ReadPassword reads a password from the terminal without echoing.
// The prompt goes to stderr so stdout stays clean for exports.
func ReadPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)

	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)

	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}

	return password, nil
}

// ReadPasswordConfirm reads a password twice and ensures they match
func ReadPasswordConfirm(label string) ([]byte, error) {
	password1, err := ReadPassword(fmt.Sprintf("Enter %s: ", label))
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(password1)

	if len(password1) == 0 {
		return nil, ErrPasswordRequired
	}

	password2, err := ReadPassword(fmt.Sprintf("Confirm %s: ", label))
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(password2)

	if !crypto.ConstantTimeCompare(password1, password2) {
		return nil, ErrPasswordMismatch
	}

	// Return a copy of the password
	result := make([]byte, len(password1))
	copy(result, password1)
	return result, nil
}

// GetPasswordFromEnv reads the master password from PASSVAULT_PASSWORD
func GetPasswordFromEnv() []byte {
	password := os.Getenv(PasswordEnv)
	if password == "" {
		return nil
	}
	// Return a copy to avoid issues when clearing the bytes
	result := make([]byte, len(password))
	copy(result, []byte(password))
	return result
}
