// Package session - Offer session lifecycle orchestration
// The manager owns every multi-step behavior: creation, wizard
// mutations, quoting, extension, termination, and the expired-session
// sweep. Every mutation is an optimistic-locked read-modify-write on
// the session version.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tradein-engine/core/catalog"
	"tradein-engine/core/pricing"
	"tradein-engine/core/types"
	apperrors "tradein-engine/internal/errors"
	"tradein-engine/internal/logging"
	"tradein-engine/store"
)

// casRetries bounds internal retry of racing mutations when the caller
// did not pin a version
const casRetries = 3

// Manager orchestrates the offer session lifecycle
type Manager struct {
	store   store.SessionStore
	catalog catalog.AdjustmentCatalog
	engine  *pricing.Engine
	window  time.Duration
	now     func() time.Time
}

// NewManager creates a lifecycle manager. window is the session TTL.
func NewManager(st store.SessionStore, cat catalog.AdjustmentCatalog, window time.Duration) *Manager {
	return &Manager{
		store:   st,
		catalog: cat,
		engine:  pricing.NewEngine(cat),
		window:  window,
		now:     time.Now,
	}
}

// Create opens a Draft session for a product/variant. The baseline
// price is resolved here only to validate the reference; quotes
// re-resolve it for freshness.
func (m *Manager) Create(ctx context.Context, productID, variantID, userID string) (*types.Session, error) {
	if productID == "" {
		return nil, apperrors.Invalid("product_id is required")
	}
	if variantID == "" {
		return nil, apperrors.Invalid("variant_id is required")
	}
	if _, err := m.catalog.BaselinePrice(ctx, productID, variantID); err != nil {
		return nil, err
	}

	now := m.now()
	s := &types.Session{
		ID:          uuid.NewString(),
		UserID:      userID,
		ProductID:   productID,
		VariantID:   variantID,
		Answers:     make(map[string][]string),
		Defects:     []string{},
		Accessories: []string{},
		Status:      types.StatusDraft,
		CreatedAt:   now,
		ExpiresAt:   now.Add(m.window),
		Version:     1,
	}

	if err := m.store.Create(ctx, s); err != nil {
		return nil, err
	}

	logging.Info("session created",
		zap.String("session_id", s.ID),
		zap.String("product_id", productID),
		zap.String("variant_id", variantID))
	return s, nil
}

// GetSession reads a session. Reads always succeed on an existing
// session; a lapsed one is flipped to Expired on the way out so the
// caller observes the real state.
func (m *Manager) GetSession(ctx context.Context, id string) (*types.Session, error) {
	s, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.Status.IsTerminal() && s.IsExpired(m.now()) {
		m.lazyExpire(ctx, s)
	}
	return s, nil
}

// UpdateAnswers merges partial answers into the session. Only the
// supplied question keys are overwritten; every other answer is left
// untouched. This is deliberately asymmetric with UpdateDefects and
// UpdateAccessories, which replace their whole set.
func (m *Manager) UpdateAnswers(ctx context.Context, id string, partial map[string][]string, expectedVersion int64) (*types.Session, error) {
	if len(partial) == 0 {
		return nil, apperrors.Invalid("answers must not be empty")
	}
	for questionID, optionIDs := range partial {
		if questionID == "" {
			return nil, apperrors.Invalid("answer question id must not be empty")
		}
		if len(optionIDs) == 0 {
			return nil, apperrors.Invalidf("answer for question %q must select at least one option", questionID)
		}
		for _, optionID := range optionIDs {
			if optionID == "" {
				return nil, apperrors.Invalidf("answer for question %q has an empty option id", questionID)
			}
		}
	}

	return m.mutate(ctx, id, expectedVersion, false, func(s *types.Session) error {
		if s.Answers == nil {
			s.Answers = make(map[string][]string, len(partial))
		}
		for questionID, optionIDs := range partial {
			s.Answers[questionID] = append([]string(nil), optionIDs...)
		}
		s.Status = types.StatusActive
		s.LastBreakdown = nil
		return nil
	})
}

// UpdateDefects replaces the declared defect set
func (m *Manager) UpdateDefects(ctx context.Context, id string, defectIDs []string, expectedVersion int64) (*types.Session, error) {
	ids, err := normalizeIDSet(defectIDs, "defect")
	if err != nil {
		return nil, err
	}
	return m.mutate(ctx, id, expectedVersion, false, func(s *types.Session) error {
		s.Defects = ids
		s.Status = types.StatusActive
		s.LastBreakdown = nil
		return nil
	})
}

// UpdateAccessories replaces the included accessory set
func (m *Manager) UpdateAccessories(ctx context.Context, id string, accessoryIDs []string, expectedVersion int64) (*types.Session, error) {
	ids, err := normalizeIDSet(accessoryIDs, "accessory")
	if err != nil {
		return nil, err
	}
	return m.mutate(ctx, id, expectedVersion, false, func(s *types.Session) error {
		s.Accessories = ids
		s.Status = types.StatusActive
		s.LastBreakdown = nil
		return nil
	})
}

// Quote computes the current price from live catalog state and caches
// it on the session. The cache write does not bump the version and the
// only status change is Active to Quoted.
func (m *Manager) Quote(ctx context.Context, id string) (*types.Session, error) {
	s, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.Status == types.StatusExpired {
		return nil, apperrors.Expired(id)
	}
	if s.Status.IsTerminal() {
		return nil, apperrors.Conflict("session is " + string(s.Status)).
			WithContext("session_id", id)
	}
	if s.IsExpired(m.now()) {
		m.lazyExpire(ctx, s)
		return nil, apperrors.Expired(id)
	}

	base, err := m.catalog.BaselinePrice(ctx, s.ProductID, s.VariantID)
	if err != nil {
		return nil, err
	}
	breakdown, err := m.engine.Compute(ctx, base, s.Selections(), s.Defects, s.Accessories)
	if err != nil {
		return nil, err
	}

	s.LastBreakdown = breakdown
	if s.Status == types.StatusActive {
		s.Status = types.StatusQuoted
	}

	// Same-version write: the breakdown is a cache, not content. A
	// concurrent mutation winning the race simply drops the cache, and
	// the computed quote is still correct for the state that was read.
	if err := m.store.Update(ctx, s, s.Version); err != nil {
		if !apperrors.IsType(err, apperrors.TypeConflict) {
			return nil, err
		}
		logging.Debug("quote cache write lost a race", zap.String("session_id", id))
	}
	return s, nil
}

// Extend resets the TTL window on any non-terminal session, including
// one already past its window that the sweep has not yet flipped.
func (m *Manager) Extend(ctx context.Context, id string) (*types.Session, error) {
	return m.mutate(ctx, id, 0, true, func(s *types.Session) error {
		s.ExpiresAt = m.now().Add(m.window)
		return nil
	})
}

// Terminate cancels a session. Terminating an already-terminal session
// returns CONFLICT rather than a silent no-op.
func (m *Manager) Terminate(ctx context.Context, id, reason string) (*types.Session, error) {
	return m.mutate(ctx, id, 0, false, func(s *types.Session) error {
		s.Status = types.StatusCancelled
		s.TerminatedReason = reason
		return nil
	})
}

// MarkConverted records that the external order flow consumed this
// session
func (m *Manager) MarkConverted(ctx context.Context, id string) (*types.Session, error) {
	s, err := m.mutate(ctx, id, 0, false, func(s *types.Session) error {
		s.Status = types.StatusConverted
		return nil
	})
	if err != nil {
		return nil, err
	}
	logging.Info("session converted", zap.String("session_id", id))
	return s, nil
}

// SetStatus is the admin override. It refuses to move a session out of
// a terminal state but skips the TTL check.
func (m *Manager) SetStatus(ctx context.Context, id string, status types.Status) (*types.Session, error) {
	if _, ok := types.ParseStatus(string(status)); !ok {
		return nil, apperrors.Invalidf("unknown status: %q", status)
	}
	return m.mutate(ctx, id, 0, true, func(s *types.Session) error {
		s.Status = status
		return nil
	})
}

// List returns sessions matching the filter, for the admin surface
func (m *Manager) List(ctx context.Context, filter store.Filter) ([]*types.Session, error) {
	return m.store.List(ctx, filter)
}

// CleanupExpired sweeps every non-terminal session whose TTL lapsed
// and marks it Expired. Returns the number of sessions flipped; a
// second consecutive run flips none.
func (m *Manager) CleanupExpired(ctx context.Context) (int, error) {
	now := m.now()
	lapsed, err := m.store.List(ctx, store.Filter{ExpiredBefore: now})
	if err != nil {
		return 0, err
	}

	count := 0
	for _, s := range lapsed {
		if s.Status.IsTerminal() {
			continue
		}
		prev := s.Version
		s.Status = types.StatusExpired
		s.Version = prev + 1
		if err := m.store.Update(ctx, s, prev); err != nil {
			if apperrors.IsType(err, apperrors.TypeConflict) || apperrors.IsType(err, apperrors.TypeNotFound) {
				// Raced with a mutation or another sweep; skip, the
				// next sweep settles it.
				continue
			}
			return count, err
		}
		count++
	}

	if count > 0 {
		logging.Info("expired session sweep", zap.Int("count", count))
	}
	return count, nil
}

// mutate runs an optimistic-locked read-modify-write. A non-zero
// expectedVersion pins the read: a mismatch is a CONFLICT with no
// retry. expectedVersion 0 retries internally on races. allowLapsed
// skips the TTL check (extend, admin override).
func (m *Manager) mutate(ctx context.Context, id string, expectedVersion int64, allowLapsed bool, apply func(*types.Session) error) (*types.Session, error) {
	attempts := casRetries
	if expectedVersion > 0 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		s, err := m.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if expectedVersion > 0 && s.Version != expectedVersion {
			return nil, apperrors.Conflict("session version mismatch").
				WithContext("session_id", id).
				WithContext("expected_version", expectedVersion).
				WithContext("stored_version", s.Version)
		}
		if s.Status == types.StatusExpired {
			return nil, apperrors.Expired(id)
		}
		if s.Status.IsTerminal() {
			return nil, apperrors.Conflict("session is "+string(s.Status)).
				WithContext("session_id", id)
		}
		if !allowLapsed && s.IsExpired(m.now()) {
			m.lazyExpire(ctx, s)
			return nil, apperrors.Expired(id)
		}

		prev := s.Version
		if err := apply(s); err != nil {
			return nil, err
		}
		s.Version = prev + 1

		err = m.store.Update(ctx, s, prev)
		if err == nil {
			return s, nil
		}
		if !apperrors.IsType(err, apperrors.TypeConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// lazyExpire flips a lapsed session to Expired, best effort. A lost
// race means someone else already settled the state.
func (m *Manager) lazyExpire(ctx context.Context, s *types.Session) {
	prev := s.Version
	s.Status = types.StatusExpired
	s.Version = prev + 1
	if err := m.store.Update(ctx, s, prev); err != nil {
		if !apperrors.IsType(err, apperrors.TypeConflict) {
			logging.Warn("failed to expire lapsed session",
				zap.String("session_id", s.ID), zap.Error(err))
		}
	}
}

func normalizeIDSet(ids []string, kind string) ([]string, error) {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			return nil, apperrors.Invalidf("%s id must not be empty", kind)
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}
