package session

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"tradein-engine/core/catalog"
	"tradein-engine/core/types"
	apperrors "tradein-engine/internal/errors"
	"tradein-engine/store"
)

const window = 30 * time.Minute

type fixture struct {
	manager *Manager
	store   *store.MemoryStore
	cat     *catalog.Memory
	clock   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cat := catalog.NewMemory()
	cat.SetBaseline("iphone-12", "128gb", decimal.NewFromInt(10000))
	cat.AddQuestionOption("screen", "flawless", "Flawless screen",
		types.Delta{Kind: types.DeltaAbs, Sign: types.SignPlus, Value: decimal.NewFromInt(500)}, true)
	cat.AddQuestionOption("body", "dented", "Dented body",
		types.Delta{Kind: types.DeltaPercent, Sign: types.SignMinus, Value: decimal.NewFromInt(5)}, true)
	cat.AddDefect("cracked-back", "Cracked back glass",
		types.Delta{Kind: types.DeltaPercent, Sign: types.SignMinus, Value: decimal.NewFromInt(10)}, true)
	cat.AddDefect("dead-pixel", "Dead pixels",
		types.Delta{Kind: types.DeltaAbs, Sign: types.SignMinus, Value: decimal.NewFromInt(300)}, true)
	cat.AddAccessory("charger", "Original charger",
		types.Delta{Kind: types.DeltaAbs, Sign: types.SignPlus, Value: decimal.NewFromInt(200)}, true)

	st := store.NewMemory()
	f := &fixture{
		manager: NewManager(st, cat, window),
		store:   st,
		cat:     cat,
		clock:   time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC),
	}
	f.manager.now = func() time.Time { return f.clock }
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

func (f *fixture) create(t *testing.T) *types.Session {
	t.Helper()
	s, err := f.manager.Create(context.Background(), "iphone-12", "128gb", "user-1")
	require.NoError(t, err)
	return s
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("opens a draft session with the TTL window", func(t *testing.T) {
		s := f.create(t)
		require.Equal(t, types.StatusDraft, s.Status)
		require.EqualValues(t, 1, s.Version)
		require.Equal(t, f.clock.Add(window), s.ExpiresAt)
		require.Equal(t, "user-1", s.UserID)
		require.Empty(t, s.Defects)
	})

	t.Run("guest sessions are permitted", func(t *testing.T) {
		s, err := f.manager.Create(ctx, "iphone-12", "128gb", "")
		require.NoError(t, err)
		require.Empty(t, s.UserID)
	})

	t.Run("unknown variant fails NotFound", func(t *testing.T) {
		_, err := f.manager.Create(ctx, "iphone-12", "512gb", "")
		require.True(t, apperrors.IsType(err, apperrors.TypeNotFound), "got %v", err)
	})

	t.Run("missing product id fails Invalid", func(t *testing.T) {
		_, err := f.manager.Create(ctx, "", "128gb", "")
		require.True(t, apperrors.IsType(err, apperrors.TypeInvalid), "got %v", err)
	})
}

func TestAnswerMergeDefectReplace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.create(t)

	t.Run("answers merge across calls", func(t *testing.T) {
		_, err := f.manager.UpdateAnswers(ctx, s.ID, map[string][]string{"screen": {"flawless"}}, 0)
		require.NoError(t, err)

		got, err := f.manager.UpdateAnswers(ctx, s.ID, map[string][]string{"body": {"dented"}}, 0)
		require.NoError(t, err)

		require.Equal(t, []string{"flawless"}, got.Answers["screen"])
		require.Equal(t, []string{"dented"}, got.Answers["body"])
		require.Equal(t, types.StatusActive, got.Status)
	})

	t.Run("matching answer keys are overwritten", func(t *testing.T) {
		got, err := f.manager.UpdateAnswers(ctx, s.ID, map[string][]string{"screen": {"flawless", "flawless"}}, 0)
		require.NoError(t, err)
		require.Equal(t, []string{"flawless", "flawless"}, got.Answers["screen"])
		require.Equal(t, []string{"dented"}, got.Answers["body"], "unrelated keys untouched")
	})

	t.Run("defects replace wholesale", func(t *testing.T) {
		_, err := f.manager.UpdateDefects(ctx, s.ID, []string{"cracked-back"}, 0)
		require.NoError(t, err)

		got, err := f.manager.UpdateDefects(ctx, s.ID, []string{"dead-pixel"}, 0)
		require.NoError(t, err)
		require.Equal(t, []string{"dead-pixel"}, got.Defects, "only the second call's ids remain")
	})

	t.Run("duplicate defect ids collapse to a set", func(t *testing.T) {
		got, err := f.manager.UpdateDefects(ctx, s.ID, []string{"cracked-back", "cracked-back"}, 0)
		require.NoError(t, err)
		require.Equal(t, []string{"cracked-back"}, got.Defects)
	})

	t.Run("accessories replace wholesale", func(t *testing.T) {
		_, err := f.manager.UpdateAccessories(ctx, s.ID, []string{"charger"}, 0)
		require.NoError(t, err)
		got, err := f.manager.UpdateAccessories(ctx, s.ID, []string{}, 0)
		require.NoError(t, err)
		require.Empty(t, got.Accessories)
	})
}

func TestVersioning(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.create(t)

	t.Run("every mutation bumps the version", func(t *testing.T) {
		got, err := f.manager.UpdateAnswers(ctx, s.ID, map[string][]string{"screen": {"flawless"}}, 0)
		require.NoError(t, err)
		require.EqualValues(t, 2, got.Version)

		got, err = f.manager.UpdateDefects(ctx, s.ID, []string{"cracked-back"}, 0)
		require.NoError(t, err)
		require.EqualValues(t, 3, got.Version)
	})

	t.Run("stale expected version is a conflict", func(t *testing.T) {
		_, err := f.manager.UpdateDefects(ctx, s.ID, []string{"dead-pixel"}, 1)
		require.True(t, apperrors.IsType(err, apperrors.TypeConflict), "got %v", err)
	})

	t.Run("pinned current version succeeds", func(t *testing.T) {
		got, err := f.manager.UpdateDefects(ctx, s.ID, []string{"dead-pixel"}, 3)
		require.NoError(t, err)
		require.EqualValues(t, 4, got.Version)
	})

	t.Run("quote does not bump the version", func(t *testing.T) {
		before, err := f.manager.GetSession(ctx, s.ID)
		require.NoError(t, err)

		quoted, err := f.manager.Quote(ctx, s.ID)
		require.NoError(t, err)
		require.Equal(t, before.Version, quoted.Version)
		require.NotNil(t, quoted.LastBreakdown)
	})
}

func TestQuote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.create(t)

	t.Run("draft sessions stay draft when quoted", func(t *testing.T) {
		got, err := f.manager.Quote(ctx, s.ID)
		require.NoError(t, err)
		require.Equal(t, types.StatusDraft, got.Status)
	})

	t.Run("computes the worked example", func(t *testing.T) {
		_, err := f.manager.UpdateAnswers(ctx, s.ID, map[string][]string{"screen": {"flawless"}}, 0)
		require.NoError(t, err)
		_, err = f.manager.UpdateDefects(ctx, s.ID, []string{"cracked-back"}, 0)
		require.NoError(t, err)
		_, err = f.manager.UpdateAccessories(ctx, s.ID, []string{"charger"}, 0)
		require.NoError(t, err)

		got, err := f.manager.Quote(ctx, s.ID)
		require.NoError(t, err)
		require.NotNil(t, got.LastBreakdown)
		// 10000 + 500 - 1000 + 200
		require.True(t, got.LastBreakdown.FinalPrice.Equal(decimal.NewFromInt(9700)),
			"got %s", got.LastBreakdown.FinalPrice)
		require.Equal(t, types.StatusQuoted, got.Status)
	})

	t.Run("quote survives on the record until the next mutation", func(t *testing.T) {
		got, err := f.manager.GetSession(ctx, s.ID)
		require.NoError(t, err)
		require.NotNil(t, got.LastBreakdown)

		_, err = f.manager.UpdateDefects(ctx, s.ID, []string{"dead-pixel"}, 0)
		require.NoError(t, err)

		got, err = f.manager.GetSession(ctx, s.ID)
		require.NoError(t, err)
		require.Nil(t, got.LastBreakdown, "mutation invalidates the cached breakdown")
	})

	t.Run("live catalog edits change the next quote", func(t *testing.T) {
		fresh := f.create(t)
		quoted, err := f.manager.Quote(ctx, fresh.ID)
		require.NoError(t, err)
		require.True(t, quoted.LastBreakdown.FinalPrice.Equal(decimal.NewFromInt(10000)))

		f.cat.SetBaseline("iphone-12", "128gb", decimal.NewFromInt(9000))
		quoted, err = f.manager.Quote(ctx, fresh.ID)
		require.NoError(t, err)
		require.True(t, quoted.LastBreakdown.FinalPrice.Equal(decimal.NewFromInt(9000)))

		f.cat.SetBaseline("iphone-12", "128gb", decimal.NewFromInt(10000))
	})
}

func TestExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.create(t)

	t.Run("mutations on a lapsed session fail Expired", func(t *testing.T) {
		f.advance(window + time.Second)

		_, err := f.manager.UpdateAnswers(ctx, s.ID, map[string][]string{"screen": {"flawless"}}, 0)
		require.True(t, apperrors.IsType(err, apperrors.TypeExpired), "got %v", err)

		_, err = f.manager.UpdateDefects(ctx, s.ID, []string{"cracked-back"}, 0)
		require.True(t, apperrors.IsType(err, apperrors.TypeExpired), "got %v", err)
	})

	t.Run("reads still succeed and report Expired", func(t *testing.T) {
		got, err := f.manager.GetSession(ctx, s.ID)
		require.NoError(t, err)
		require.Equal(t, types.StatusExpired, got.Status)
	})

	t.Run("quote on a lapsed session fails", func(t *testing.T) {
		fresh := f.create(t)
		f.advance(window + time.Second)
		_, err := f.manager.Quote(ctx, fresh.ID)
		require.True(t, apperrors.IsType(err, apperrors.TypeExpired), "got %v", err)
	})
}

func TestExtend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("extend near expiry keeps the session usable", func(t *testing.T) {
		s := f.create(t)
		f.advance(window - time.Second)

		extended, err := f.manager.Extend(ctx, s.ID)
		require.NoError(t, err)
		require.Equal(t, f.clock.Add(window), extended.ExpiresAt)

		f.advance(2 * time.Second)
		_, err = f.manager.UpdateAnswers(ctx, s.ID, map[string][]string{"screen": {"flawless"}}, 0)
		require.NoError(t, err, "mutation within the new window succeeds")
	})

	t.Run("extend fails NotFound for unknown ids", func(t *testing.T) {
		_, err := f.manager.Extend(ctx, "no-such-session")
		require.True(t, apperrors.IsType(err, apperrors.TypeNotFound), "got %v", err)
	})

	t.Run("extend refuses terminal sessions", func(t *testing.T) {
		s := f.create(t)
		_, err := f.manager.Terminate(ctx, s.ID, "changed my mind")
		require.NoError(t, err)

		_, err = f.manager.Extend(ctx, s.ID)
		require.True(t, apperrors.IsType(err, apperrors.TypeConflict), "got %v", err)
	})
}

func TestTerminalStates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("terminate cancels and records the reason", func(t *testing.T) {
		s := f.create(t)
		got, err := f.manager.Terminate(ctx, s.ID, "changed my mind")
		require.NoError(t, err)
		require.Equal(t, types.StatusCancelled, got.Status)
		require.Equal(t, "changed my mind", got.TerminatedReason)
	})

	t.Run("terminating twice is a conflict", func(t *testing.T) {
		s := f.create(t)
		_, err := f.manager.Terminate(ctx, s.ID, "first")
		require.NoError(t, err)
		_, err = f.manager.Terminate(ctx, s.ID, "second")
		require.True(t, apperrors.IsType(err, apperrors.TypeConflict), "got %v", err)
	})

	t.Run("converted sessions refuse further mutation", func(t *testing.T) {
		s := f.create(t)
		_, err := f.manager.MarkConverted(ctx, s.ID)
		require.NoError(t, err)

		_, err = f.manager.UpdateAnswers(ctx, s.ID, map[string][]string{"screen": {"flawless"}}, 0)
		require.True(t, apperrors.IsType(err, apperrors.TypeConflict), "got %v", err)
	})

	t.Run("admin override cannot leave a terminal state", func(t *testing.T) {
		s := f.create(t)
		_, err := f.manager.Terminate(ctx, s.ID, "")
		require.NoError(t, err)

		_, err = f.manager.SetStatus(ctx, s.ID, types.StatusActive)
		require.True(t, apperrors.IsType(err, apperrors.TypeConflict), "got %v", err)
	})
}

func TestCleanupExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Three sessions that will lapse
	for i := 0; i < 3; i++ {
		f.create(t)
	}
	f.advance(window + time.Minute)

	// Two still-valid sessions and one already terminal
	f.create(t)
	f.create(t)
	cancelled := f.create(t)
	_, err := f.manager.Terminate(ctx, cancelled.ID, "")
	require.NoError(t, err)

	count, err := f.manager.CleanupExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, count, "exactly the lapsed non-terminal sessions flip")

	expired, err := f.manager.List(ctx, store.Filter{Status: types.StatusExpired})
	require.NoError(t, err)
	require.Len(t, expired, 3)

	drafts, err := f.manager.List(ctx, store.Filter{Status: types.StatusDraft})
	require.NoError(t, err)
	require.Len(t, drafts, 2, "valid sessions untouched")

	count, err = f.manager.CleanupExpired(ctx)
	require.NoError(t, err)
	require.Zero(t, count, "sweep is idempotent")
}
