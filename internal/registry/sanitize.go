package registry

import (
	"fmt"
	"strings"
	"unicode"
)

// VaultFileExt is appended to the sanitized name to form the file name
const VaultFileExt = ".db"

// SafeName reduces a display name to a file stem: letters, digits, '-' and
// '_' are kept, spaces become '_', everything else is dropped.
func SafeName(name string) (string, error) {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}

	safe := strings.TrimRight(b.String(), " ")
	safe = strings.ReplaceAll(safe, " ", "_")
	if safe == "" {
		return "", fmt.Errorf("%w: %q has no usable characters", ErrInvalidName, name)
	}
	return safe, nil
}

// FileName returns the vault file name for a display name
func FileName(name string) (string, error) {
	safe, err := SafeName(name)
	if err != nil {
		return "", err
	}
	return safe + VaultFileExt, nil
}
