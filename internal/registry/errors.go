package registry

import "github.com/illarion/passvault/internal/vaulterr"

var (
	ErrVaultNotFound    = vaulterr.Sentinel(vaulterr.ErrVaultState, "vault not registered")
	ErrVaultFileMissing = vaulterr.Sentinel(vaulterr.ErrVaultState, "vault file missing")
	ErrDuplicateName    = vaulterr.Sentinel(vaulterr.ErrValidation, "vault name already in use")
	ErrInvalidName      = vaulterr.Sentinel(vaulterr.ErrValidation, "invalid vault name")
	ErrPathTaken        = vaulterr.Sentinel(vaulterr.ErrValidation, "vault file name already in use")
	ErrNotVault         = vaulterr.Sentinel(vaulterr.ErrValidation, "file does not contain a vault")
)
