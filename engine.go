package tokenfamily

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/stashbin/tokenfamily/jwt"
	"github.com/stashbin/tokenfamily/store"
	"github.com/stashbin/tokenfamily/token"
)

// Engine defines a public type used by tokenfamily APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config     Config
	codec      *token.Codec
	store      store.Store
	jwtManager *jwt.Manager
	audit      *auditDispatcher
	metrics    *Metrics
}

// Close describes the close operation and its observable behavior.
//
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// IssueNewFamily describes the issuenewfamily operation and its observable behavior.
//
// IssueNewFamily may return an error when input validation, dependency calls, or security checks fail.
// IssueNewFamily does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) IssueNewFamily(ctx context.Context, userID string) (*Issued, error) {
	if e == nil || e.store == nil || e.codec == nil {
		return nil, ErrEngineNotReady
	}
	if userID == "" {
		e.metricInc(MetricIssueFailure)
		return nil, ErrTokenInvalid
	}

	familyID := uuid.NewString()
	issued, err := e.mintToken(ctx, userID, familyID)
	if err != nil {
		e.metricInc(MetricIssueFailure)
		e.emitAudit(ctx, auditEventTokenIssued, false, userID, familyID, "", err, nil)
		return nil, err
	}

	e.metricInc(MetricIssueSuccess)
	e.emitAudit(ctx, auditEventTokenIssued, true, userID, familyID, issued.TokenID, nil, nil)

	return issued, nil
}

// Rotate redeems a refresh token and returns its successor. The presented
// token is consumed exactly once; a second presentation of the same token,
// from any goroutine or process, revokes the whole family and fails with
// [ErrReplayDetected].
//
// Rotate may return an error when input validation, dependency calls, or security checks fail.
// Rotate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Rotate(ctx context.Context, rawToken string) (*Issued, error) {
	if e == nil || e.store == nil || e.codec == nil {
		return nil, ErrEngineNotReady
	}
	if e.metrics != nil && e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() {
			e.metrics.Observe(MetricRotateLatency, time.Since(start))
		}()
	}

	id, secret, err := e.codec.Parse(rawToken)
	if err != nil {
		e.metricInc(MetricRotateInvalid)
		e.emitAudit(ctx, auditEventRotateInvalid, false, "", "", "", ErrTokenInvalid, func() map[string]string {
			return map[string]string{
				"reason": "parse_failed",
			}
		})
		return nil, ErrTokenInvalid
	}
	tokenID := id.String()

	rec, err := e.store.Get(ctx, tokenID)
	if err != nil {
		if errors.Is(err, store.ErrTokenNotFound) {
			e.metricInc(MetricRotateInvalid)
			e.emitAudit(ctx, auditEventRotateInvalid, false, "", "", tokenID, ErrTokenInvalid, func() map[string]string {
				return map[string]string{
					"reason": "unknown_id",
				}
			})
			return nil, ErrTokenInvalid
		}
		e.metricInc(MetricRotateFailure)
		mapped := mapStoreErr(err)
		e.emitAudit(ctx, auditEventRotateInvalid, false, "", "", tokenID, mapped, func() map[string]string {
			return map[string]string{
				"reason": "lookup_failed",
			}
		})
		return nil, mapped
	}

	if !e.codec.Verify(secret, rec.SecretHash) {
		e.metricInc(MetricRotateInvalid)
		e.emitAudit(ctx, auditEventRotateInvalid, false, rec.UserID, rec.FamilyID, tokenID, ErrTokenInvalid, func() map[string]string {
			return map[string]string{
				"reason": "secret_mismatch",
			}
		})
		return nil, ErrTokenInvalid
	}

	now := time.Now().UTC()
	if rec.Expired(now) {
		// Natural end of the lineage. Close out the record so the family
		// carries no live token, then report expiry distinctly from replay.
		if revokeErr := e.store.RevokeToken(ctx, tokenID, now); revokeErr != nil {
			log.Print("tokenfamily: expired token revocation failed")
		}
		e.metricInc(MetricRotateExpired)
		e.emitAudit(ctx, auditEventRotateExpired, false, rec.UserID, rec.FamilyID, tokenID, ErrTokenExpired, nil)
		return nil, ErrTokenExpired
	}

	consumed, err := e.store.Consume(ctx, tokenID, now)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrTokenConsumed):
			// Replay. The token was already redeemed or revoked, so someone
			// is holding a stale copy. Burn the entire lineage.
			e.metricInc(MetricReplayDetected)
			if revokeErr := e.store.RevokeFamily(ctx, rec.FamilyID, now); revokeErr != nil {
				log.Print("tokenfamily: family revocation after replay failed")
			} else {
				e.metricInc(MetricFamilyRevoked)
				e.emitAudit(ctx, auditEventFamilyRevoked, true, rec.UserID, rec.FamilyID, "", nil, func() map[string]string {
					return map[string]string{
						"cause": "replay",
					}
				})
			}
			e.emitAudit(ctx, auditEventReplayDetected, false, rec.UserID, rec.FamilyID, tokenID, ErrReplayDetected, nil)
			return nil, ErrReplayDetected
		case errors.Is(err, store.ErrTokenNotFound):
			e.metricInc(MetricRotateInvalid)
			e.emitAudit(ctx, auditEventRotateInvalid, false, rec.UserID, rec.FamilyID, tokenID, ErrTokenInvalid, func() map[string]string {
				return map[string]string{
					"reason": "vanished_before_consume",
				}
			})
			return nil, ErrTokenInvalid
		default:
			e.metricInc(MetricRotateFailure)
			mapped := mapStoreErr(err)
			e.emitAudit(ctx, auditEventRotateInvalid, false, rec.UserID, rec.FamilyID, tokenID, mapped, func() map[string]string {
				return map[string]string{
					"reason": "consume_failed",
				}
			})
			return nil, mapped
		}
	}

	issued, err := e.mintToken(ctx, consumed.UserID, consumed.FamilyID)
	if err != nil {
		// The parent is consumed but no successor exists. The family dead-ends
		// here and the user must authenticate again; that is strictly safer
		// than leaving two live tokens.
		e.metricInc(MetricRotateFailure)
		e.emitAudit(ctx, auditEventRotateInvalid, false, consumed.UserID, consumed.FamilyID, tokenID, err, func() map[string]string {
			return map[string]string{
				"reason": "successor_mint_failed",
			}
		})
		return nil, err
	}

	if err := e.store.LinkSuccessor(ctx, tokenID, issued.TokenID); err != nil {
		// Successor link is audit metadata, not a security control. The new
		// token is already live, so do not fail the rotation over it.
		log.Print("tokenfamily: successor link failed")
	}

	e.metricInc(MetricRotateSuccess)
	e.emitAudit(ctx, auditEventTokenRotated, true, consumed.UserID, consumed.FamilyID, tokenID, nil, func() map[string]string {
		return map[string]string{
			"successor_id": issued.TokenID,
		}
	})

	return issued, nil
}

// RevokeToken revokes the single token presented as rawToken, the logout
// path: the handler holds only the refresh cookie's value. Malformed and
// unknown tokens are a no-op, so logout cannot be used as a validity oracle.
//
// RevokeToken may return an error when input validation, dependency calls, or security checks fail.
// RevokeToken does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) RevokeToken(ctx context.Context, rawToken string) error {
	if e == nil || e.store == nil || e.codec == nil {
		return ErrEngineNotReady
	}

	id, _, parseErr := e.codec.Parse(rawToken)
	if parseErr != nil {
		return nil
	}
	tokenID := id.String()

	err := e.store.RevokeToken(ctx, tokenID, time.Now().UTC())
	if err != nil {
		err = mapStoreErr(err)
	} else {
		e.metricInc(MetricTokenRevoked)
	}
	e.emitAudit(ctx, auditEventTokenRevoked, err == nil, "", "", tokenID, err, nil)
	return err
}

// RevokeFamily describes the revokefamily operation and its observable behavior.
//
// RevokeFamily may return an error when input validation, dependency calls, or security checks fail.
// RevokeFamily does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) RevokeFamily(ctx context.Context, familyID string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}

	err := e.store.RevokeFamily(ctx, familyID, time.Now().UTC())
	if err != nil {
		err = mapStoreErr(err)
	} else {
		e.metricInc(MetricFamilyRevoked)
	}
	e.emitAudit(ctx, auditEventFamilyRevoked, err == nil, "", familyID, "", err, nil)
	return err
}

// RevokeAllForUser describes the revokeallforuser operation and its observable behavior.
//
// RevokeAllForUser may return an error when input validation, dependency calls, or security checks fail.
// RevokeAllForUser does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) RevokeAllForUser(ctx context.Context, userID string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}

	err := e.store.RevokeAllForUser(ctx, userID, time.Now().UTC())
	if err != nil {
		err = mapStoreErr(err)
	} else {
		e.metricInc(MetricUserRevoked)
	}
	e.emitAudit(ctx, auditEventUserRevoked, err == nil, userID, "", "", err, nil)
	return err
}

// Inspect describes the inspect operation and its observable behavior.
//
// Inspect may return an error when input validation, dependency calls, or security checks fail.
// Inspect does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Inspect(ctx context.Context, tokenID string) (*store.Record, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}

	rec, err := e.store.Get(ctx, tokenID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return rec, nil
}

// ValidateAccess describes the validateaccess operation and its observable behavior.
//
// ValidateAccess may return an error when input validation, dependency calls, or security checks fail.
// ValidateAccess does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ValidateAccess(tokenStr string) (*jwt.AccessClaims, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.jwtManager.ParseAccess(tokenStr)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func (e *Engine) mintToken(ctx context.Context, userID, familyID string) (*Issued, error) {
	id, secret, raw, err := e.codec.Generate()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rec := &store.Record{
		ID:         id.String(),
		FamilyID:   familyID,
		UserID:     userID,
		SecretHash: e.codec.HashSecret(secret),
		IssuedAt:   now,
		ExpiresAt:  now.Add(e.config.Token.TTL),
	}

	if err := e.store.Insert(ctx, rec); err != nil {
		return nil, mapStoreErr(err)
	}

	issued := &Issued{
		RawToken:  raw,
		TokenID:   rec.ID,
		FamilyID:  familyID,
		UserID:    userID,
		ExpiresAt: rec.ExpiresAt,
	}

	if e.jwtManager != nil {
		access, err := e.jwtManager.CreateAccess(userID, familyID)
		if err != nil {
			return nil, err
		}
		issued.AccessToken = access
	}

	return issued, nil
}

func mapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrStoreUnavailable) {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return err
}
