// Package crypto provides cryptographic operations for passvault.
//
// Encryption uses AES-256-GCM with:
//   - 32-byte key derived from the master password via Argon2id
//   - 12-byte random nonce drawn on every seal
//   - no associated data; the GCM tag authenticates the whole payload
//
// Sealed blobs are text: base64(nonce || ciphertext || tag).
//
// Key derivation uses Argon2id with:
//   - 16-byte random salt per vault (stored unencrypted, hex encoded)
//   - time 2, memory 64 MiB, parallelism 1
//
// Memory safety:
//   - Use ClearBytes() to zero sensitive data after use
//   - Call Encryptor.Destroy() when the retained key is no longer needed
package crypto
