package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

// testRecord builds a live record with distinct hash bytes per token.
func testRecord(id, familyID, userID string, ttl time.Duration) *Record {
	rec := &Record{
		ID:        id,
		FamilyID:  familyID,
		UserID:    userID,
		IssuedAt:  time.Now(),
		ExpiresAt: time.Now().Add(ttl),
	}
	for i := range rec.SecretHash {
		rec.SecretHash[i] = byte(len(id) + i)
	}
	return rec
}

// runStoreContract exercises the invariants every Store implementation must
// uphold. Backend-specific tests call it with their own store.
func runStoreContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	now := time.Now()

	famA := uuid.NewString()
	famB := uuid.NewString()

	t.Run("insert and get", func(t *testing.T) {
		rec := testRecord("tok-a0", famA, "user-a", time.Hour)
		if err := s.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}

		got, err := s.Get(ctx, "tok-a0")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.FamilyID != famA || got.UserID != "user-a" {
			t.Fatalf("record fields lost: %+v", got)
		}
		if got.SecretHash != rec.SecretHash {
			t.Fatal("secret hash lost in storage")
		}
		if got.State() != StateLive {
			t.Fatalf("fresh record not live: %v", got.State())
		}
	})

	t.Run("duplicate id rejected", func(t *testing.T) {
		if err := s.Insert(ctx, testRecord("tok-a0", famA, "user-a", time.Hour)); !errors.Is(err, ErrDuplicateID) {
			t.Fatalf("expected ErrDuplicateID, got %v", err)
		}
	})

	t.Run("get unknown", func(t *testing.T) {
		if _, err := s.Get(ctx, "no-such-token"); !errors.Is(err, ErrTokenNotFound) {
			t.Fatalf("expected ErrTokenNotFound, got %v", err)
		}
	})

	t.Run("consume is single use", func(t *testing.T) {
		got, err := s.Consume(ctx, "tok-a0", now)
		if err != nil {
			t.Fatalf("first Consume failed: %v", err)
		}
		if got.ConsumedAt == nil {
			t.Fatal("ConsumedAt not set")
		}
		if got.State() != StateConsumed {
			t.Fatalf("expected consumed state, got %v", got.State())
		}

		if _, err := s.Consume(ctx, "tok-a0", now); !errors.Is(err, ErrTokenConsumed) {
			t.Fatalf("second Consume: expected ErrTokenConsumed, got %v", err)
		}
	})

	t.Run("consume unknown", func(t *testing.T) {
		if _, err := s.Consume(ctx, "no-such-token", now); !errors.Is(err, ErrTokenNotFound) {
			t.Fatalf("expected ErrTokenNotFound, got %v", err)
		}
	})

	t.Run("link successor", func(t *testing.T) {
		if err := s.Insert(ctx, testRecord("tok-a1", famA, "user-a", time.Hour)); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
		if err := s.LinkSuccessor(ctx, "tok-a0", "tok-a1"); err != nil {
			t.Fatalf("LinkSuccessor failed: %v", err)
		}

		got, err := s.Get(ctx, "tok-a0")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.SuccessorID != "tok-a1" {
			t.Fatalf("successor not linked: %q", got.SuccessorID)
		}
	})

	t.Run("revoke family sweeps live and consumed", func(t *testing.T) {
		if err := s.RevokeFamily(ctx, famA, now); err != nil {
			t.Fatalf("RevokeFamily failed: %v", err)
		}

		for _, id := range []string{"tok-a0", "tok-a1"} {
			got, err := s.Get(ctx, id)
			if err != nil {
				t.Fatalf("Get %s failed: %v", id, err)
			}
			if got.RevokedAt == nil {
				t.Fatalf("%s not revoked by family sweep", id)
			}
			if got.State() != StateRevoked {
				t.Fatalf("%s: expected revoked state, got %v", id, got.State())
			}
		}

		if _, err := s.Consume(ctx, "tok-a1", now); !errors.Is(err, ErrTokenConsumed) {
			t.Fatalf("consume after family revoke: expected ErrTokenConsumed, got %v", err)
		}
	})

	t.Run("revoke family idempotent", func(t *testing.T) {
		first, err := s.Get(ctx, "tok-a1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}

		if err := s.RevokeFamily(ctx, famA, now.Add(time.Minute)); err != nil {
			t.Fatalf("second RevokeFamily failed: %v", err)
		}

		second, err := s.Get(ctx, "tok-a1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !second.RevokedAt.Equal(*first.RevokedAt) {
			t.Fatal("second RevokeFamily moved the revocation timestamp")
		}
	})

	t.Run("revoke all for user isolates other users", func(t *testing.T) {
		if err := s.Insert(ctx, testRecord("tok-b0", famB, "user-b", time.Hour)); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
		otherFam := uuid.NewString()
		if err := s.Insert(ctx, testRecord("tok-c0", otherFam, "user-c", time.Hour)); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}

		if err := s.RevokeAllForUser(ctx, "user-b", now); err != nil {
			t.Fatalf("RevokeAllForUser failed: %v", err)
		}

		revoked, err := s.Get(ctx, "tok-b0")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if revoked.RevokedAt == nil {
			t.Fatal("user-b token not revoked")
		}

		untouched, err := s.Get(ctx, "tok-c0")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if untouched.RevokedAt != nil {
			t.Fatal("user-c token revoked by user-b sweep")
		}
	})

	t.Run("revoke missing token is a no-op", func(t *testing.T) {
		if err := s.RevokeToken(ctx, "no-such-token", now); err != nil {
			t.Fatalf("RevokeToken on missing record errored: %v", err)
		}
	})
}
