package store

import (
	"context"
	"errors"
	"time"
)

// ErrTokenNotFound is returned when no record exists for the requested ID.
var ErrTokenNotFound = errors.New("refresh token not found")

// ErrTokenConsumed is returned by Consume when the record exists but is no
// longer live. The caller treats this as a replay.
var ErrTokenConsumed = errors.New("refresh token already consumed or revoked")

// ErrDuplicateID is returned by Insert when a record with the same ID exists.
var ErrDuplicateID = errors.New("refresh token id already exists")

// ErrStoreUnavailable wraps backend failures (Redis down, SQL errors). It is
// the only error class callers are expected to surface as a 5xx.
var ErrStoreUnavailable = errors.New("token store unavailable")

// State is the tagged lifecycle state of a refresh-token record.
type State uint8

const (
	// StateLive means the record can still be rotated.
	StateLive State = iota
	// StateConsumed means the record was redeemed exactly once. Terminal.
	StateConsumed
	// StateRevoked means the record was explicitly or cascade-revoked. Terminal.
	StateRevoked
)

// String describes the string operation and its observable behavior.
//
// String does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s State) String() string {
	switch s {
	case StateLive:
		return "live"
	case StateConsumed:
		return "consumed"
	case StateRevoked:
		return "revoked"
	default:
		return "unknown"
	}
}

// Record is one issued refresh token. FamilyID is set once at family creation
// and copied unchanged through every rotation in that lineage.
type Record struct {
	ID         string
	FamilyID   string
	UserID     string
	SecretHash [32]byte

	IssuedAt  time.Time
	ExpiresAt time.Time

	// ConsumedAt is set exactly once, atomically, when the token is rotated.
	ConsumedAt *time.Time
	// RevokedAt is set by explicit or cascade revocation. Revoked wins over
	// consumed when classifying state.
	RevokedAt *time.Time

	// SuccessorID links to the record this token rotated into. Empty until
	// rotation.
	SuccessorID string
}

// State classifies the record. Revocation dominates consumption: a consumed
// token swept up in a family revoke reports StateRevoked.
func (r *Record) State() State {
	if r.RevokedAt != nil {
		return StateRevoked
	}
	if r.ConsumedAt != nil {
		return StateConsumed
	}
	return StateLive
}

// Live reports whether the record is still eligible for rotation.
func (r *Record) Live() bool {
	return r.State() == StateLive
}

// Expired reports whether the record's lifetime has passed at now.
func (r *Record) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Clone returns a deep copy so callers cannot alias store-owned memory.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}

	out := *r
	if r.ConsumedAt != nil {
		t := *r.ConsumedAt
		out.ConsumedAt = &t
	}
	if r.RevokedAt != nil {
		t := *r.RevokedAt
		out.RevokedAt = &t
	}
	return &out
}

// Store is the persistence boundary for refresh-token records. All bulk
// operations are idempotent; revoking an already-revoked set is a no-op, not
// an error.
type Store interface {
	// Insert persists a new record. Fails with ErrDuplicateID on ID collision.
	Insert(ctx context.Context, rec *Record) error

	// Get returns the record for id, or ErrTokenNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// Consume atomically transitions the record from live to consumed and
	// returns the updated record. Returns ErrTokenConsumed when the record is
	// already terminal, ErrTokenNotFound when it does not exist. This is the
	// single conditional write that serializes concurrent rotations.
	Consume(ctx context.Context, id string, now time.Time) (*Record, error)

	// LinkSuccessor records the ID of the token this record rotated into.
	LinkSuccessor(ctx context.Context, id, successorID string) error

	// RevokeToken sets RevokedAt on one record if still unset. Missing
	// records are a no-op.
	RevokeToken(ctx context.Context, id string, now time.Time) error

	// RevokeFamily sets RevokedAt on every record of the family where still
	// unset.
	RevokeFamily(ctx context.Context, familyID string, now time.Time) error

	// RevokeAllForUser sets RevokedAt on every record of the user, across all
	// families, where still unset.
	RevokeAllForUser(ctx context.Context, userID string, now time.Time) error
}
