package store

import (
	"context"
	"sync"
	"time"
)

// Memory is a mutex-guarded in-process [Store]. It backs unit tests and
// single-process embeddings; nothing expires or is evicted.
type Memory struct {
	mu       sync.RWMutex
	records  map[string]*Record
	byFamily map[string][]string
	byUser   map[string][]string
}

// NewMemory describes the newmemory operation and its observable behavior.
//
// NewMemory does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewMemory() *Memory {
	return &Memory{
		records:  make(map[string]*Record),
		byFamily: make(map[string][]string),
		byUser:   make(map[string][]string),
	}
}

// Insert describes the insert operation and its observable behavior.
//
// Insert may return an error when input validation, dependency calls, or security checks fail.
// Insert does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Memory) Insert(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[rec.ID]; ok {
		return ErrDuplicateID
	}

	m.records[rec.ID] = rec.Clone()
	m.byFamily[rec.FamilyID] = append(m.byFamily[rec.FamilyID], rec.ID)
	m.byUser[rec.UserID] = append(m.byUser[rec.UserID], rec.ID)
	return nil
}

// Get describes the get operation and its observable behavior.
//
// Get may return an error when input validation, dependency calls, or security checks fail.
// Get does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Memory) Get(_ context.Context, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, ErrTokenNotFound
	}
	return rec.Clone(), nil
}

// Consume describes the consume operation and its observable behavior.
//
// Consume may return an error when input validation, dependency calls, or security checks fail.
// Consume does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Memory) Consume(_ context.Context, id string, now time.Time) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, ErrTokenNotFound
	}
	if rec.ConsumedAt != nil || rec.RevokedAt != nil {
		return nil, ErrTokenConsumed
	}

	t := now
	rec.ConsumedAt = &t
	return rec.Clone(), nil
}

// LinkSuccessor describes the linksuccessor operation and its observable behavior.
//
// LinkSuccessor may return an error when input validation, dependency calls, or security checks fail.
// LinkSuccessor does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Memory) LinkSuccessor(_ context.Context, id, successorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return ErrTokenNotFound
	}
	rec.SuccessorID = successorID
	return nil
}

// RevokeToken describes the revoketoken operation and its observable behavior.
//
// RevokeToken may return an error when input validation, dependency calls, or security checks fail.
// RevokeToken does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Memory) RevokeToken(_ context.Context, id string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return nil
	}
	if rec.RevokedAt == nil {
		t := now
		rec.RevokedAt = &t
	}
	return nil
}

// RevokeFamily describes the revokefamily operation and its observable behavior.
//
// RevokeFamily may return an error when input validation, dependency calls, or security checks fail.
// RevokeFamily does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Memory) RevokeFamily(_ context.Context, familyID string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range m.byFamily[familyID] {
		rec, ok := m.records[id]
		if !ok || rec.RevokedAt != nil {
			continue
		}
		t := now
		rec.RevokedAt = &t
	}
	return nil
}

// RevokeAllForUser describes the revokeallforuser operation and its observable behavior.
//
// RevokeAllForUser may return an error when input validation, dependency calls, or security checks fail.
// RevokeAllForUser does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Memory) RevokeAllForUser(_ context.Context, userID string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range m.byUser[userID] {
		rec, ok := m.records[id]
		if !ok || rec.RevokedAt != nil {
			continue
		}
		t := now
		rec.RevokedAt = &t
	}
	return nil
}

// Len reports the number of stored records. Test helper.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
