// Package store defines the persistence contract for refresh-token records
// and ships three implementations: an in-memory store for tests and
// single-process embedding, a Redis store with a Lua-script compare-and-swap,
// and a GORM store for SQL deployments.
//
// # Contract
//
// The critical operation is Consume: a single conditional write that moves a
// record from live to consumed only while consumed_at and revoked_at are both
// unset. Two concurrent Consume calls for the same ID must resolve to exactly
// one success; the loser observes ErrTokenConsumed. Every implementation must
// enforce this with the storage engine's native atomicity, never with a
// read-then-write in application code.
//
// Records are never physically deleted by this package's callers; expiry-based
// garbage collection is the deployment's housekeeping concern.
package store
