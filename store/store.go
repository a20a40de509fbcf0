// Package store persists offer sessions behind a backend-agnostic
// interface. Backends: memory (tests, default), postgres, redis.
package store

import (
	"context"
	"time"

	"tradein-engine/core/types"
	"tradein-engine/internal/config"
	apperrors "tradein-engine/internal/errors"
)

// Backend is a store backend type
type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendPostgres Backend = "postgres"
	BackendRedis    Backend = "redis"
)

// Filter narrows List results. Zero values are ignored.
type Filter struct {
	// Status restricts to a single lifecycle state
	Status types.Status

	// UserID restricts to one user's sessions
	UserID string

	// ExpiredBefore restricts to sessions whose TTL lapsed before the
	// given instant
	ExpiredBefore time.Time
}

// SessionStore is the persistence interface for offer sessions.
//
// Update is a compare-and-swap: it writes the record only if the
// stored version equals expectedVersion, and returns a CONFLICT error
// otherwise. Callers control version increments; a cache-only write
// (the quote breakdown) keeps the version unchanged.
type SessionStore interface {
	// Create inserts a new session; CONFLICT if the id already exists
	Create(ctx context.Context, s *types.Session) error

	// Get retrieves a session by id
	Get(ctx context.Context, id string) (*types.Session, error)

	// Update writes a session if the stored version matches
	Update(ctx context.Context, s *types.Session, expectedVersion int64) error

	// Delete removes a session by id
	Delete(ctx context.Context, id string) error

	// List returns sessions matching the filter
	List(ctx context.Context, filter Filter) ([]*types.Session, error)

	// Close releases backend resources
	Close() error
}

// Open creates a store for the configured backend
func Open(cfg config.StoreConfig) (SessionStore, error) {
	switch Backend(cfg.Backend) {
	case BackendMemory, "":
		return NewMemory(), nil
	case BackendPostgres:
		return OpenPostgres(cfg.PostgresDSN)
	case BackendRedis:
		return OpenRedis(cfg.RedisAddr, cfg.RedisDB, cfg.Retention())
	default:
		return nil, apperrors.Newf(apperrors.TypeConfig, "unknown store backend: %q", cfg.Backend)
	}
}

// matches reports whether a session passes the filter
func matches(s *types.Session, f Filter) bool {
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	if f.UserID != "" && s.UserID != f.UserID {
		return false
	}
	if !f.ExpiredBefore.IsZero() && !s.ExpiresAt.Before(f.ExpiredBefore) {
		return false
	}
	return true
}
