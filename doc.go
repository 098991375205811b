// Package tokenfamily implements refresh-token rotation with family-based
// replay detection: opaque single-use refresh tokens, atomic rotation under
// concurrent requests, and revocation of an entire token lineage when a
// consumed token is presented again.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// tokenfamily is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (Issued, MetricsSnapshot, AuditEvent). Token encoding lives
// in the token subpackage, persistence behind the store.Store contract, and
// access-token signing in the jwt subpackage — the Engine consumes access
// tokens as a black box and never inspects them during rotation.
//
// # What this package must NOT do
//
//   - Hash or verify passwords; credential checks happen upstream.
//   - Wire HTTP routes or set cookies; callers own transport.
//   - Delete token records; expiry-based garbage collection is a deployment
//     housekeeping concern.
//
// # Replay semantics
//
// Once a refresh token has been redeemed, any later presentation of the same
// raw string is treated as hostile: the legitimate client retrying a lost
// response is indistinguishable from an attacker replaying a stolen cookie,
// so the whole family is revoked and the user re-authenticates. This is a
// deliberate usability trade-off favoring security.
package tokenfamily
