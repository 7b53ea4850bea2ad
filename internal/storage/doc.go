// Package storage provides the blob store behind every passvault vault file.
//
// A vault file holds exactly two named values:
//   - vault_data: the sealed payload (base64 text)
//   - salt: the KDF salt (hex text)
//
// Both values are always written in one transaction, so a file on disk
// reflects either the previous save or the new one, never a mix of the two.
//
// Two backends share the same contract:
//   - BoltBackend (default): a single BBolt bucket
//   - SQLiteBackend: a single key/value table, the layout of vault files
//     written by earlier releases
//
// Whole-file Backup/Restore and Describe work without the master password.
// Nothing here locks files across processes: one writer per vault file.
package storage
