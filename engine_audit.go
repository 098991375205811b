package tokenfamily

import (
	"context"
	"errors"
	"time"

	"github.com/stashbin/tokenfamily/store"
)

const (
	auditEventTokenIssued    = "token_issued"
	auditEventTokenRotated   = "token_rotated"
	auditEventRotateInvalid  = "rotate_invalid"
	auditEventRotateExpired  = "rotate_expired"
	auditEventReplayDetected = "replay_detected"
	auditEventTokenRevoked   = "token_revoked"
	auditEventFamilyRevoked  = "family_revoked"
	auditEventUserRevoked    = "user_revoked"
)

// AuditErrorCode defines a public type used by tokenfamily APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrInvalidToken  AuditErrorCode = "invalid_token"
	auditErrExpiredToken  AuditErrorCode = "expired_token"
	auditErrReplay        AuditErrorCode = "replay"
	auditErrTokenNotFound AuditErrorCode = "token_not_found"
	auditErrDuplicate     AuditErrorCode = "duplicate"
	auditErrUnavailable   AuditErrorCode = "backend_unavailable"
	auditErrInternal      AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	familyID string,
	tokenID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		FamilyID:  familyID,
		TokenID:   tokenID,
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrReplayDetected):
		return auditErrReplay
	case errors.Is(err, ErrTokenExpired):
		return auditErrExpiredToken
	case errors.Is(err, ErrTokenInvalid):
		return auditErrInvalidToken
	case errors.Is(err, store.ErrTokenNotFound):
		return auditErrTokenNotFound
	case errors.Is(err, store.ErrDuplicateID):
		return auditErrDuplicate
	case errors.Is(err, ErrStoreUnavailable),
		errors.Is(err, store.ErrStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
