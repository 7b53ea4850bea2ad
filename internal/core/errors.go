package core

import "github.com/illarion/passvault/internal/vaulterr"

var (
	ErrVaultNotFound     = vaulterr.Sentinel(vaulterr.ErrVaultState, "vault not found")
	ErrVaultCorrupted    = vaulterr.Sentinel(vaulterr.ErrVaultState, "vault file corrupted")
	ErrAlreadyExists     = vaulterr.Sentinel(vaulterr.ErrVaultState, "vault already exists")
	ErrNotUnlocked       = vaulterr.Sentinel(vaulterr.ErrVaultState, "vault not unlocked")
	ErrAlreadyUnlocked   = vaulterr.Sentinel(vaulterr.ErrVaultState, "vault already unlocked")
	ErrEntryNotFound     = vaulterr.Sentinel(vaulterr.ErrVaultState, "entry not found")
	ErrWrongPassword     = vaulterr.Sentinel(vaulterr.ErrAuthentication, "wrong password")
	ErrPasswordRequired  = vaulterr.Sentinel(vaulterr.ErrValidation, "password required")
	ErrNameRequired      = vaulterr.Sentinel(vaulterr.ErrValidation, "entry name required")
	ErrEmptyQuery        = vaulterr.Sentinel(vaulterr.ErrValidation, "search query is empty")
	ErrUnsupportedFormat = vaulterr.Sentinel(vaulterr.ErrValidation, "unsupported export format")
)
