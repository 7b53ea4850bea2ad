// Package git checks whether the vaults directory lives inside a git
// working tree and reports vault files that git would pick up.
//
// Vault files are encrypted, but committing them keeps every past version
// in history, including versions sealed under old master passwords. The
// registry file exposes vault names and descriptions in plain text.
package git
