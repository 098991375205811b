package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// refreshTokenRow is the relational shape of a [Record].
type refreshTokenRow struct {
	ID          string     `gorm:"primaryKey;size:32"`
	FamilyID    string     `gorm:"not null;index;size:36"`
	UserID      string     `gorm:"not null;index;size:128"`
	SecretHash  []byte     `gorm:"not null;size:32"`
	IssuedAt    time.Time  `gorm:"not null"`
	ExpiresAt   time.Time  `gorm:"not null;index"`
	ConsumedAt  *time.Time `gorm:""`
	RevokedAt   *time.Time `gorm:""`
	SuccessorID *string    `gorm:"size:32"`
}

func (refreshTokenRow) TableName() string {
	return "refresh_tokens"
}

// Gorm is a SQL-backed [Store] for GORM-supported databases. The
// live-to-consumed transition is a single conditional UPDATE guarded on the
// consumed_at/revoked_at columns, so the row-level atomicity of the database
// serializes concurrent rotations.
type Gorm struct {
	db *gorm.DB
}

// NewGorm creates a [Gorm] store over an open GORM handle. The handle is
// injected, never reached through package globals, so tests can swap in an
// isolated database. Open the handle with TranslateError enabled so duplicate
// inserts map to [ErrDuplicateID].
func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

// AutoMigrate creates or updates the refresh_tokens table.
//
// AutoMigrate may return an error when input validation, dependency calls, or security checks fail.
// AutoMigrate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Gorm) AutoMigrate() error {
	if err := s.db.AutoMigrate(&refreshTokenRow{}); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Insert describes the insert operation and its observable behavior.
//
// Insert may return an error when input validation, dependency calls, or security checks fail.
// Insert does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Gorm) Insert(ctx context.Context, rec *Record) error {
	row := toRow(rec)
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateID
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Get describes the get operation and its observable behavior.
//
// Get may return an error when input validation, dependency calls, or security checks fail.
// Get does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Gorm) Get(ctx context.Context, id string) (*Record, error) {
	var row refreshTokenRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return fromRow(&row), nil
}

// Consume describes the consume operation and its observable behavior.
//
// Consume may return an error when input validation, dependency calls, or security checks fail.
// Consume does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Gorm) Consume(ctx context.Context, id string, now time.Time) (*Record, error) {
	res := s.db.WithContext(ctx).
		Model(&refreshTokenRow{}).
		Where("id = ? AND consumed_at IS NULL AND revoked_at IS NULL", id).
		Update("consumed_at", now)
	if res.Error != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Error)
	}

	if res.RowsAffected == 0 {
		// Distinguish "never existed" from "already terminal" for the caller.
		if _, err := s.Get(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrTokenConsumed
	}

	return s.Get(ctx, id)
}

// LinkSuccessor describes the linksuccessor operation and its observable behavior.
//
// LinkSuccessor may return an error when input validation, dependency calls, or security checks fail.
// LinkSuccessor does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Gorm) LinkSuccessor(ctx context.Context, id, successorID string) error {
	res := s.db.WithContext(ctx).
		Model(&refreshTokenRow{}).
		Where("id = ?", id).
		Update("successor_id", successorID)
	if res.Error != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrTokenNotFound
	}
	return nil
}

// RevokeToken describes the revoketoken operation and its observable behavior.
//
// RevokeToken may return an error when input validation, dependency calls, or security checks fail.
// RevokeToken does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Gorm) RevokeToken(ctx context.Context, id string, now time.Time) error {
	res := s.db.WithContext(ctx).
		Model(&refreshTokenRow{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", now)
	if res.Error != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Error)
	}
	return nil
}

// RevokeFamily describes the revokefamily operation and its observable behavior.
//
// RevokeFamily may return an error when input validation, dependency calls, or security checks fail.
// RevokeFamily does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Gorm) RevokeFamily(ctx context.Context, familyID string, now time.Time) error {
	res := s.db.WithContext(ctx).
		Model(&refreshTokenRow{}).
		Where("family_id = ? AND revoked_at IS NULL", familyID).
		Update("revoked_at", now)
	if res.Error != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Error)
	}
	return nil
}

// RevokeAllForUser describes the revokeallforuser operation and its observable behavior.
//
// RevokeAllForUser may return an error when input validation, dependency calls, or security checks fail.
// RevokeAllForUser does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Gorm) RevokeAllForUser(ctx context.Context, userID string, now time.Time) error {
	res := s.db.WithContext(ctx).
		Model(&refreshTokenRow{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", now)
	if res.Error != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Error)
	}
	return nil
}

func toRow(rec *Record) *refreshTokenRow {
	row := &refreshTokenRow{
		ID:         rec.ID,
		FamilyID:   rec.FamilyID,
		UserID:     rec.UserID,
		SecretHash: append([]byte(nil), rec.SecretHash[:]...),
		IssuedAt:   rec.IssuedAt,
		ExpiresAt:  rec.ExpiresAt,
		ConsumedAt: rec.ConsumedAt,
		RevokedAt:  rec.RevokedAt,
	}
	if rec.SuccessorID != "" {
		suc := rec.SuccessorID
		row.SuccessorID = &suc
	}
	return row
}

func fromRow(row *refreshTokenRow) *Record {
	rec := &Record{
		ID:        row.ID,
		FamilyID:  row.FamilyID,
		UserID:    row.UserID,
		IssuedAt:  row.IssuedAt,
		ExpiresAt: row.ExpiresAt,
	}
	copy(rec.SecretHash[:], row.SecretHash)
	if row.ConsumedAt != nil {
		t := *row.ConsumedAt
		rec.ConsumedAt = &t
	}
	if row.RevokedAt != nil {
		t := *row.RevokedAt
		rec.RevokedAt = &t
	}
	if row.SuccessorID != nil {
		rec.SuccessorID = *row.SuccessorID
	}
	return rec
}
