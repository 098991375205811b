package store

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	consumeStatusNotFound int64 = 0
	consumeStatusTerminal int64 = 1
	consumeStatusConsumed int64 = 2
)

// Token records live in a hash per ID; a SET per family and per user indexes
// the IDs for bulk revocation. Guard fields "cat"/"rat" are absent while the
// token is live, so every conditional below checks for the missing field.

const insertScript = `
local key = KEYS[1]
local fam_key = KEYS[2]
local user_key = KEYS[3]
if redis.call("EXISTS", key) == 1 then
  return 0
end
redis.call("HSET", key,
  "fam", ARGV[1],
  "uid", ARGV[2],
  "sh", ARGV[3],
  "iat", ARGV[4],
  "exp", ARGV[5])
redis.call("PEXPIREAT", key, ARGV[6])
redis.call("SADD", fam_key, ARGV[7])
redis.call("PEXPIREAT", fam_key, ARGV[6])
redis.call("SADD", user_key, ARGV[7])
redis.call("PEXPIREAT", user_key, ARGV[6])
return 1
`

var insertLua = redis.NewScript(insertScript)

const consumeScript = `
local key = KEYS[1]
if redis.call("EXISTS", key) == 0 then
  return 0
end
local cat = redis.call("HGET", key, "cat")
if cat and cat ~= "" then
  return 1
end
local rat = redis.call("HGET", key, "rat")
if rat and rat ~= "" then
  return 1
end
redis.call("HSET", key, "cat", ARGV[1])
return 2
`

var consumeLua = redis.NewScript(consumeScript)

const revokeOneScript = `
local key = KEYS[1]
if redis.call("EXISTS", key) == 0 then
  return 0
end
local rat = redis.call("HGET", key, "rat")
if rat and rat ~= "" then
  return 0
end
redis.call("HSET", key, "rat", ARGV[1])
return 1
`

var revokeOneLua = redis.NewScript(revokeOneScript)

const revokeSetScript = `
local ids = redis.call("SMEMBERS", KEYS[1])
local revoked = 0
for _, id in ipairs(ids) do
  local key = ARGV[2] .. id
  if redis.call("EXISTS", key) == 1 then
    local rat = redis.call("HGET", key, "rat")
    if not rat or rat == "" then
      redis.call("HSET", key, "rat", ARGV[1])
      revoked = revoked + 1
    end
  end
end
return revoked
`

var revokeSetLua = redis.NewScript(revokeSetScript)

// Redis is a Redis-backed [Store]. The live-to-consumed transition and every
// guarded revocation run as Lua scripts so concurrent callers serialize inside
// Redis itself.
//
// Records carry a TTL of ExpiresAt plus the retention grace, so consumed
// ancestors stay visible to replay detection well after the token itself is
// useless.
type Redis struct {
	redis  redis.UniversalClient
	prefix string
	grace  time.Duration
}

// NewRedis creates a [Redis] store. prefix namespaces every key; grace
// extends record retention past token expiry for replay forensics.
func NewRedis(client redis.UniversalClient, prefix string, grace time.Duration) *Redis {
	if prefix == "" {
		prefix = "tf"
	}
	if grace < 0 {
		grace = 0
	}
	return &Redis{
		redis:  client,
		prefix: prefix,
		grace:  grace,
	}
}

func (s *Redis) tokenKey(id string) string {
	return s.prefix + ":t:" + id
}

func (s *Redis) tokenKeyPrefix() string {
	return s.prefix + ":t:"
}

func (s *Redis) familyKey(familyID string) string {
	return s.prefix + ":f:" + familyID
}

func (s *Redis) userKey(userID string) string {
	return s.prefix + ":u:" + userID
}

// Insert describes the insert operation and its observable behavior.
//
// Insert may return an error when input validation, dependency calls, or security checks fail.
// Insert does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Redis) Insert(ctx context.Context, rec *Record) error {
	retainUntil := rec.ExpiresAt.Add(s.grace)

	status, err := insertLua.Run(ctx, s.redis,
		[]string{s.tokenKey(rec.ID), s.familyKey(rec.FamilyID), s.userKey(rec.UserID)},
		rec.FamilyID,
		rec.UserID,
		base64.StdEncoding.EncodeToString(rec.SecretHash[:]),
		strconv.FormatInt(rec.IssuedAt.UnixNano(), 10),
		strconv.FormatInt(rec.ExpiresAt.UnixNano(), 10),
		strconv.FormatInt(retainUntil.UnixMilli(), 10),
		rec.ID,
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if status == 0 {
		return ErrDuplicateID
	}
	return nil
}

// Get describes the get operation and its observable behavior.
//
// Get may return an error when input validation, dependency calls, or security checks fail.
// Get does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Redis) Get(ctx context.Context, id string) (*Record, error) {
	fields, err := s.redis.HGetAll(ctx, s.tokenKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, ErrTokenNotFound
	}
	return decodeRecord(id, fields)
}

// Consume describes the consume operation and its observable behavior.
//
// Consume may return an error when input validation, dependency calls, or security checks fail.
// Consume does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Redis) Consume(ctx context.Context, id string, now time.Time) (*Record, error) {
	status, err := consumeLua.Run(ctx, s.redis,
		[]string{s.tokenKey(id)},
		strconv.FormatInt(now.UnixNano(), 10),
	).Int64()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	switch status {
	case consumeStatusNotFound:
		return nil, ErrTokenNotFound
	case consumeStatusTerminal:
		return nil, ErrTokenConsumed
	case consumeStatusConsumed:
		// The guard fields never change back, so the follow-up read is safe.
		return s.Get(ctx, id)
	default:
		return nil, fmt.Errorf("%w: unexpected consume status %d", ErrStoreUnavailable, status)
	}
}

// LinkSuccessor describes the linksuccessor operation and its observable behavior.
//
// LinkSuccessor may return an error when input validation, dependency calls, or security checks fail.
// LinkSuccessor does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Redis) LinkSuccessor(ctx context.Context, id, successorID string) error {
	key := s.tokenKey(id)

	exists, err := s.redis.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if exists == 0 {
		return ErrTokenNotFound
	}

	if err := s.redis.HSet(ctx, key, "suc", successorID).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// RevokeToken describes the revoketoken operation and its observable behavior.
//
// RevokeToken may return an error when input validation, dependency calls, or security checks fail.
// RevokeToken does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Redis) RevokeToken(ctx context.Context, id string, now time.Time) error {
	_, err := revokeOneLua.Run(ctx, s.redis,
		[]string{s.tokenKey(id)},
		strconv.FormatInt(now.UnixNano(), 10),
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// RevokeFamily describes the revokefamily operation and its observable behavior.
//
// RevokeFamily may return an error when input validation, dependency calls, or security checks fail.
// RevokeFamily does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Redis) RevokeFamily(ctx context.Context, familyID string, now time.Time) error {
	return s.revokeSet(ctx, s.familyKey(familyID), now)
}

// RevokeAllForUser describes the revokeallforuser operation and its observable behavior.
//
// RevokeAllForUser may return an error when input validation, dependency calls, or security checks fail.
// RevokeAllForUser does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Redis) RevokeAllForUser(ctx context.Context, userID string, now time.Time) error {
	return s.revokeSet(ctx, s.userKey(userID), now)
}

func (s *Redis) revokeSet(ctx context.Context, setKey string, now time.Time) error {
	_, err := revokeSetLua.Run(ctx, s.redis,
		[]string{setKey},
		strconv.FormatInt(now.UnixNano(), 10),
		s.tokenKeyPrefix(),
	).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func decodeRecord(id string, fields map[string]string) (*Record, error) {
	rec := &Record{
		ID:          id,
		FamilyID:    fields["fam"],
		UserID:      fields["uid"],
		SuccessorID: fields["suc"],
	}

	hash, err := base64.StdEncoding.DecodeString(fields["sh"])
	if err != nil || len(hash) != len(rec.SecretHash) {
		return nil, fmt.Errorf("%w: corrupt secret hash for %s", ErrStoreUnavailable, id)
	}
	copy(rec.SecretHash[:], hash)

	iat, err := strconv.ParseInt(fields["iat"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: corrupt issued_at for %s", ErrStoreUnavailable, id)
	}
	rec.IssuedAt = time.Unix(0, iat)

	exp, err := strconv.ParseInt(fields["exp"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: corrupt expires_at for %s", ErrStoreUnavailable, id)
	}
	rec.ExpiresAt = time.Unix(0, exp)

	if v, ok := fields["cat"]; ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: corrupt consumed_at for %s", ErrStoreUnavailable, id)
		}
		t := time.Unix(0, n)
		rec.ConsumedAt = &t
	}
	if v, ok := fields["rat"]; ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: corrupt revoked_at for %s", ErrStoreUnavailable, id)
		}
		t := time.Unix(0, n)
		rec.RevokedAt = &t
	}

	return rec, nil
}
