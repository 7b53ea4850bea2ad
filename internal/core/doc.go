// Package core provides the single-vault session engine.
//
// A Session has two states:
//   - Locked (initial): no payload or key in memory
//   - Unlocked: the decrypted payload and, by default, the derived key
//
// Transitions:
//   - Create: new salt, empty payload, first save (Locked -> Unlocked)
//   - Unlock: load, authenticate, decode (Locked -> Unlocked)
//   - Lock: zero the key, drop the payload, no implicit save (Unlocked -> Locked)
//
// Entry operations (add, get, search, update, delete, stats, export) require
// the Unlocked state. Mutations auto-save with the retained key and report
// whether the save happened.
//
// A Session is not safe for concurrent use, and nothing coordinates
// separate processes working on the same vault file.
package core
