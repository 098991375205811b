package token

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"

	"golang.org/x/crypto/blake2b"
)

const (
	idSize     = 16
	secretSize = 32
	rawSize    = idSize + secretSize
	maxPepper  = 64
)

// ErrMalformedToken is returned by [Codec.Parse] for any input that does not
// decode to exactly one ID and one secret. All malformed shapes collapse to
// this single error so callers cannot distinguish which check failed.
var ErrMalformedToken = errors.New("malformed refresh token")

// ErrPepperTooLong is returned by [NewCodec] when the pepper exceeds the
// BLAKE2b key size limit.
var ErrPepperTooLong = errors.New("pepper exceeds 64 bytes")

// ID is the public lookup half of a refresh token.
type ID [idSize]byte

// Secret is the private half of a refresh token. Never persist it; stores
// keep only the hash produced by [Codec.HashSecret].
type Secret [secretSize]byte

// Hash is a keyed BLAKE2b-256 digest of a token secret.
type Hash [32]byte

// NewID describes the newid operation and its observable behavior.
//
// NewID may return an error when input validation, dependency calls, or security checks fail.
// NewID does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewID() (ID, error) {
	var id ID
	_, err := rand.Read(id[:])
	return id, err
}

// String returns the base64url (no padding) form of the ID.
func (id ID) String() string {
	return base64.RawURLEncoding.EncodeToString(id[:])
}

// ParseID describes the parseid operation and its observable behavior.
//
// ParseID may return an error when input validation, dependency calls, or security checks fail.
// ParseID does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func ParseID(s string) (ID, error) {
	var id ID

	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return id, ErrMalformedToken
	}
	if len(raw) != len(id) {
		return id, ErrMalformedToken
	}

	copy(id[:], raw)
	return id, nil
}

// Codec generates, encodes, and verifies refresh tokens. A Codec is immutable
// after construction and safe for concurrent use.
type Codec struct {
	pepper []byte
}

// NewCodec creates a [Codec]. pepper keys the secret hash; an empty pepper
// falls back to unkeyed BLAKE2b-256. Both sides of a deployment must agree on
// the pepper or every stored hash becomes unverifiable.
func NewCodec(pepper []byte) (*Codec, error) {
	if len(pepper) > maxPepper {
		return nil, ErrPepperTooLong
	}

	c := &Codec{}
	if len(pepper) > 0 {
		c.pepper = make([]byte, len(pepper))
		copy(c.pepper, pepper)
	}
	return c, nil
}

// Generate produces a fresh ID, secret, and the raw token string encoding
// both. The caller persists HashSecret(secret); the raw string goes to the
// client and is never stored.
//
// Generate may return an error when input validation, dependency calls, or security checks fail.
// Generate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Codec) Generate() (ID, Secret, string, error) {
	var (
		id     ID
		secret Secret
	)

	if _, err := rand.Read(id[:]); err != nil {
		return id, secret, "", err
	}
	if _, err := rand.Read(secret[:]); err != nil {
		return id, secret, "", err
	}

	return id, secret, Encode(id, secret), nil
}

// Encode describes the encode operation and its observable behavior.
//
// Encode does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func Encode(id ID, secret Secret) string {
	var raw [rawSize]byte
	copy(raw[:idSize], id[:])
	copy(raw[idSize:], secret[:])

	return base64.RawURLEncoding.EncodeToString(raw[:])
}

// Parse splits a raw token back into its ID and secret. Every malformed input
// fails with [ErrMalformedToken]; the work done before rejection does not
// depend on which structural check failed.
//
// Parse may return an error when input validation, dependency calls, or security checks fail.
// Parse does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Codec) Parse(rawToken string) (ID, Secret, error) {
	var (
		id     ID
		secret Secret
	)

	raw, err := base64.RawURLEncoding.DecodeString(rawToken)
	if err != nil {
		return id, secret, ErrMalformedToken
	}
	if len(raw) != rawSize {
		return id, secret, ErrMalformedToken
	}

	copy(id[:], raw[:idSize])
	copy(secret[:], raw[idSize:])

	return id, secret, nil
}

// HashSecret returns the keyed BLAKE2b-256 digest of secret under the codec
// pepper.
//
// HashSecret does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Codec) HashSecret(secret Secret) Hash {
	var out Hash

	if len(c.pepper) == 0 {
		sum := blake2b.Sum256(secret[:])
		copy(out[:], sum[:])
		return out
	}

	// blake2b.New256 only errors on an oversized key, which NewCodec rejects.
	h, err := blake2b.New256(c.pepper)
	if err != nil {
		sum := blake2b.Sum256(secret[:])
		copy(out[:], sum[:])
		return out
	}
	h.Write(secret[:])
	copy(out[:], h.Sum(nil))
	return out
}

// Verify reports whether secret hashes to stored under the codec pepper. The
// comparison is constant time.
//
// Verify does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Codec) Verify(secret Secret, stored Hash) bool {
	computed := c.HashSecret(secret)
	return subtle.ConstantTimeCompare(computed[:], stored[:]) == 1
}
