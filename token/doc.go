// Package token implements generation, parsing, and verification for opaque
// rotating refresh tokens.
//
// # Token format
//
// A raw token is the base64url encoding (no padding) of 48 bytes: a 16-byte
// random lookup ID followed by a 32-byte random secret. The ID is safe to
// store and index; the secret is never persisted — stores retain only a keyed
// BLAKE2b-256 hash of it.
//
// # Architecture boundaries
//
// This package owns token encoding/decoding, secret hashing, and constant-time
// verification. Rotation policy, replay detection, and family revocation are
// handled by the Engine and the token store.
//
// # What this package must NOT do
//
//   - Access Redis, SQL, or any I/O.
//   - Import tokenfamily, jwt, or store.
//   - Implement rotation or replay logic.
package token
