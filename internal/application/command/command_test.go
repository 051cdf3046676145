package command

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydromate/hydromate-bot/internal/application/roster"
	"github.com/hydromate/hydromate-bot/internal/domain/achievement"
	"github.com/hydromate/hydromate-bot/internal/domain/hydration"
	"github.com/hydromate/hydromate-bot/internal/domain/shared"
	"github.com/hydromate/hydromate-bot/pkg/retry"
	"github.com/hydromate/hydromate-bot/pkg/timeutil"
)

type memoryStore struct {
	users   []*hydration.UserRecord
	failing bool
}

func (s *memoryStore) Load(context.Context) ([]*hydration.UserRecord, error) { return s.users, nil }

func (s *memoryStore) SaveAll(_ context.Context, users []*hydration.UserRecord) error {
	if s.failing {
		return errors.New("store unavailable")
	}
	s.users = make([]*hydration.UserRecord, 0, len(users))
	for _, u := range users {
		s.users = append(s.users, u.Clone())
	}
	return nil
}

type spyInvalidator struct{ keys []string }

func (s *spyInvalidator) Invalidate(_ context.Context, dayKey string) error {
	s.keys = append(s.keys, dayKey)
	return nil
}

type spyMetrics struct {
	logged   int
	unlocked []string
	failed   []string
}

func (m *spyMetrics) WaterLogged(_ string, amountMl int) { m.logged += amountMl }
func (m *spyMetrics) AchievementUnlocked(id string)      { m.unlocked = append(m.unlocked, id) }
func (m *spyMetrics) CommandFailed(command string, _ error) {
	m.failed = append(m.failed, command)
}

type fixture struct {
	now     time.Time
	store   *memoryStore
	roster  *roster.Roster
	inv     *spyInvalidator
	metrics *spyMetrics
	deps    HandlerDeps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		now:     time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
		store:   &memoryStore{},
		inv:     &spyInvalidator{},
		metrics: &spyMetrics{},
	}
	cal := timeutil.NewCalendar(time.UTC)
	clock := shared.ClockFunc(func() time.Time { return f.now })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	f.roster = roster.New(roster.Config{
		Store:    f.store,
		Calendar: cal,
		Clock:    clock,
		Retrier:  retry.New(retry.WithMaxAttempts(1)),
		Logger:   logger,
	})
	f.deps = HandlerDeps{
		Roster:      f.roster,
		Engine:      hydration.NewEngine(cal, hydration.StreakPolicy{}),
		Catalog:     achievement.DefaultCatalog(),
		Clock:       clock,
		Invalidator: f.inv,
		Metrics:     f.metrics,
		Logger:      logger,
	}
	return f
}

func (f *fixture) register(t *testing.T, id, name string) {
	t.Helper()
	res, err := NewRegisterUserHandler(f.deps).Handle(context.Background(), RegisterUserCommand{UserID: id, DisplayName: name})
	require.NoError(t, err)
	require.True(t, res.Created)
}

func TestLogWater_AppendsEvaluatesAndPersists(t *testing.T) {
	f := newFixture(t)
	f.register(t, "1", "Ana")
	h := NewLogWaterHandler(f.deps)

	res, err := h.Handle(context.Background(), LogWaterCommand{UserID: "1", AmountMl: 250, Source: SourceButton})
	require.NoError(t, err)

	assert.True(t, res.Persisted)
	assert.Equal(t, "2024-05-01", res.Append.DayKey)
	assert.Equal(t, 250, res.Progress.CurrentMl)
	assert.Equal(t, 12, res.Progress.Percentage)
	assert.False(t, res.GoalJustReached)
	require.Len(t, res.Unlocked, 1)
	assert.Equal(t, achievement.FirstGlass, res.Unlocked[0].ID)

	require.Len(t, f.store.users, 1)
	assert.Equal(t, 250, f.store.users[0].WaterLog["2024-05-01"].TotalMl)
	assert.Equal(t, []string{"first_glass"}, f.store.users[0].UnlockedAchievements)

	assert.Equal(t, []string{"2024-05-01"}, f.inv.keys)
	assert.Equal(t, 250, f.metrics.logged)
	assert.Equal(t, []string{"first_glass"}, f.metrics.unlocked)
}

func TestLogWater_GoalJustReachedOnlyOnce(t *testing.T) {
	f := newFixture(t)
	f.register(t, "1", "Ana")
	h := NewLogWaterHandler(f.deps)
	ctx := context.Background()

	res, err := h.Handle(ctx, LogWaterCommand{UserID: "1", AmountMl: 1500})
	require.NoError(t, err)
	assert.False(t, res.GoalJustReached)

	res, err = h.Handle(ctx, LogWaterCommand{UserID: "1", AmountMl: 500})
	require.NoError(t, err)
	assert.True(t, res.GoalJustReached)
	assert.Equal(t, 100, res.Progress.Percentage)
	assert.Equal(t, 1, res.User.StreakDays)

	res, err = h.Handle(ctx, LogWaterCommand{UserID: "1", AmountMl: 250})
	require.NoError(t, err)
	assert.False(t, res.GoalJustReached)
}

func TestLogWater_Validation(t *testing.T) {
	f := newFixture(t)
	f.register(t, "1", "Ana")
	h := NewLogWaterHandler(f.deps)

	_, err := h.Handle(context.Background(), LogWaterCommand{UserID: "1", AmountMl: 0})
	assert.ErrorIs(t, err, shared.ErrInvalidAmount)

	_, err = h.Handle(context.Background(), LogWaterCommand{AmountMl: 10})
	assert.ErrorIs(t, err, shared.ErrInvalidUserID)

	_, err = h.Handle(context.Background(), LogWaterCommand{UserID: "ghost", AmountMl: 10})
	assert.ErrorIs(t, err, shared.ErrUserNotFound)

	assert.Equal(t, []string{"log_water", "log_water", "log_water"}, f.metrics.failed)
	assert.Empty(t, f.inv.keys)
}

func TestLogWater_RejectsAmountAboveLimit(t *testing.T) {
	f := newFixture(t)
	f.register(t, "1", "Ana")
	h := NewLogWaterHandler(f.deps)

	_, err := h.Handle(context.Background(), LogWaterCommand{UserID: "1", AmountMl: hydration.MaxEntryMl + 1})
	assert.ErrorIs(t, err, shared.ErrInvalidAmount)

	_, err = h.Handle(context.Background(), LogWaterCommand{UserID: "1", AmountMl: 100_000_000_000_000_000})
	assert.ErrorIs(t, err, shared.ErrInvalidAmount)

	u, ok := f.roster.Get("1")
	require.True(t, ok)
	assert.Equal(t, 0, u.WaterLog["2024-05-01"].TotalMl)
}

func TestLogWater_PersistenceFailureReturnsResult(t *testing.T) {
	f := newFixture(t)
	f.register(t, "1", "Ana")
	f.store.failing = true

	res, err := NewLogWaterHandler(f.deps).Handle(context.Background(), LogWaterCommand{UserID: "1", AmountMl: 300})
	require.Error(t, err)
	assert.True(t, IsPartial(err))
	require.NotNil(t, res)
	assert.False(t, res.Persisted)
	assert.Equal(t, 300, res.Progress.CurrentMl)

	u, ok := f.roster.Get("1")
	require.True(t, ok)
	assert.Equal(t, 300, u.WaterLog["2024-05-01"].TotalMl)
}

func TestSetGoal(t *testing.T) {
	f := newFixture(t)
	f.register(t, "1", "Ana")
	ctx := context.Background()
	_, err := NewLogWaterHandler(f.deps).Handle(ctx, LogWaterCommand{UserID: "1", AmountMl: 1000})
	require.NoError(t, err)

	h := NewSetGoalHandler(f.deps)
	_, err = h.Handle(ctx, SetGoalCommand{UserID: "1", GoalMl: -5})
	assert.ErrorIs(t, err, shared.ErrInvalidGoal)

	_, err = h.Handle(ctx, SetGoalCommand{UserID: "1", GoalMl: hydration.MaxGoalMl + 1})
	assert.ErrorIs(t, err, shared.ErrInvalidGoal)

	res, err := h.Handle(ctx, SetGoalCommand{UserID: "1", GoalMl: 4000})
	require.NoError(t, err)
	assert.Equal(t, 4000, res.User.DailyGoalMl)
	assert.Equal(t, 25, res.Progress.Percentage)
	assert.Equal(t, 1000, res.User.WaterLog["2024-05-01"].TotalMl)

	_, err = h.Handle(ctx, SetGoalCommand{UserID: "ghost", GoalMl: 100})
	assert.ErrorIs(t, err, shared.ErrUserNotFound)
}

func TestResetToday(t *testing.T) {
	f := newFixture(t)
	f.register(t, "1", "Ana")
	ctx := context.Background()
	_, err := NewLogWaterHandler(f.deps).Handle(ctx, LogWaterCommand{UserID: "1", AmountMl: 2200})
	require.NoError(t, err)

	res, err := NewResetTodayHandler(f.deps).Handle(ctx, ResetTodayCommand{UserID: "1"})
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01", res.DayKey)
	assert.Equal(t, 0, res.User.WaterLog["2024-05-01"].TotalMl)
	assert.Equal(t, 1, res.User.StreakDays)
	assert.Contains(t, res.User.UnlockedAchievements, "daily_goal")
}

func TestRegisterUser_Idempotent(t *testing.T) {
	f := newFixture(t)
	h := NewRegisterUserHandler(f.deps)
	ctx := context.Background()

	res, err := h.Handle(ctx, RegisterUserCommand{UserID: "1", DisplayName: "Ana"})
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, hydration.DefaultDailyGoalMl, res.User.DailyGoalMl)

	res, err = h.Handle(ctx, RegisterUserCommand{UserID: "1", DisplayName: "Other"})
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, "Ana", res.User.DisplayName)

	_, err = h.Handle(ctx, RegisterUserCommand{UserID: " "})
	assert.ErrorIs(t, err, shared.ErrInvalidUserID)
}

func TestMarkReminded(t *testing.T) {
	f := newFixture(t)
	f.register(t, "1", "Ana")
	f.now = f.now.Add(2 * time.Hour)

	u, err := NewMarkRemindedHandler(f.deps).Handle(context.Background(), MarkRemindedCommand{UserID: "1"})
	require.NoError(t, err)
	assert.Equal(t, f.now, u.LastRemindedAt)
	assert.Equal(t, f.now, f.store.users[0].LastRemindedAt)

	_, err = NewMarkRemindedHandler(f.deps).Handle(context.Background(), MarkRemindedCommand{UserID: "x"})
	assert.ErrorIs(t, err, shared.ErrUserNotFound)
}
