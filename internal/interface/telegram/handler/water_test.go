package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydromate/hydromate-bot/internal/application/command"
	"github.com/hydromate/hydromate-bot/internal/application/query"
	"github.com/hydromate/hydromate-bot/internal/application/roster"
	"github.com/hydromate/hydromate-bot/internal/domain/achievement"
	"github.com/hydromate/hydromate-bot/internal/domain/hydration"
	"github.com/hydromate/hydromate-bot/internal/domain/shared"
	"github.com/hydromate/hydromate-bot/internal/interface/telegram/presenter"
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
		return errors.New("disk full")
	}
	s.users = users
	return nil
}

type fixture struct {
	store    *memoryStore
	roster   *roster.Roster
	register *command.RegisterUserHandler
	handler  *WaterHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	cal := timeutil.NewCalendar(time.UTC)
	clock := shared.ClockFunc(func() time.Time { return now })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := hydration.NewEngine(cal, hydration.StreakPolicy{})

	f := &fixture{store: &memoryStore{}}
	f.roster = roster.New(roster.Config{
		Store:    f.store,
		Calendar: cal,
		Clock:    clock,
		Retrier:  retry.New(retry.WithMaxAttempts(1)),
		Logger:   logger,
	})

	deps := command.HandlerDeps{
		Roster:  f.roster,
		Engine:  engine,
		Catalog: achievement.DefaultCatalog(),
		Clock:   clock,
		Logger:  logger,
	}
	f.register = command.NewRegisterUserHandler(deps)

	f.handler = NewWaterHandler(Deps{
		LogWater:     command.NewLogWaterHandler(deps),
		SetGoal:      command.NewSetGoalHandler(deps),
		ResetToday:   command.NewResetTodayHandler(deps),
		Progress:     query.NewGetDailyProgressHandler(f.roster, engine, clock),
		Leaderboard:  query.NewGetLeaderboardHandler(f.roster, engine, clock, nil, logger),
		Achievements: query.NewGetAchievementsHandler(f.roster, achievement.DefaultCatalog()),
		Presenter:    presenter.NewWaterPresenter(presenter.NewContent(func(int) int { return 0 }), nil),
		Users:        f.roster,
	})
	return f
}

func (f *fixture) join(t *testing.T, id, name string) {
	t.Helper()
	_, err := f.register.Handle(context.Background(), command.RegisterUserCommand{UserID: id, DisplayName: name})
	require.NoError(t, err)
}

func (f *fixture) water(t *testing.T, id, args string) *Response {
	t.Helper()
	resp, err := f.handler.Handle(context.Background(), Request{UserID: id, Args: args})
	require.NoError(t, err)
	require.NotNil(t, resp)
	return resp
}

func TestWaterAdd_RepliesWithProgressAndUnlocks(t *testing.T) {
	f := newFixture(t)
	f.join(t, "1", "Ana")

	resp := f.water(t, "1", "add 250")

	assert.False(t, resp.IsError)
	assert.Contains(t, resp.Reply.Text, "Added 250ml")
	assert.Contains(t, resp.Reply.Text, "(12%)")
	require.NotNil(t, resp.Reply.Keyboard)
	require.Len(t, resp.Announcements, 1)
	assert.Contains(t, resp.Announcements[0].Text, "First Sip")
}

func TestWaterAdd_GoalReachedCelebratesOnce(t *testing.T) {
	f := newFixture(t)
	f.join(t, "1", "Ana")

	resp := f.water(t, "1", "add 2000ml")
	require.NotEmpty(t, resp.Announcements)
	assert.Contains(t, resp.Announcements[0].Text, "Congratulations")
	assert.Contains(t, resp.Announcements[0].Text, "2.0L")

	resp = f.water(t, "1", "add 100")
	assert.Empty(t, resp.Announcements)
}

func TestWaterAdd_InvalidAmounts(t *testing.T) {
	f := newFixture(t)
	f.join(t, "1", "Ana")

	for _, args := range []string{"add", "add abc", "add -5", "add 0", "add 10001", "add 100000000000000000", "add 99999999999999999999"} {
		resp := f.water(t, "1", args)
		assert.True(t, resp.IsError, args)
		assert.Contains(t, resp.Reply.Text, "valid amount", args)
	}
}

func TestWaterAdd_UnknownUser(t *testing.T) {
	f := newFixture(t)

	resp := f.water(t, "42", "add 250")
	assert.True(t, resp.IsError)
	assert.Contains(t, resp.Reply.Text, "haven't started")
}

func TestWaterAdd_StoreFailureStillReplies(t *testing.T) {
	f := newFixture(t)
	f.join(t, "1", "Ana")
	f.store.failing = true

	resp := f.water(t, "1", "add 300")
	assert.Contains(t, resp.Reply.Text, "Added 300ml")
	require.NotEmpty(t, resp.Announcements)
	assert.Contains(t, resp.Announcements[len(resp.Announcements)-1].Text, "could not be saved")

	u, ok := f.roster.Get("1")
	require.True(t, ok)
	assert.Equal(t, 300, u.WaterLog["2024-05-01"].TotalMl)
}

func TestWaterGoal(t *testing.T) {
	f := newFixture(t)
	f.join(t, "1", "Ana")

	resp := f.water(t, "1", "goal 3000")
	assert.False(t, resp.IsError)
	assert.Contains(t, resp.Reply.Text, "3.0L")

	u, _ := f.roster.Get("1")
	assert.Equal(t, 3000, u.DailyGoalMl)

	for _, args := range []string{"goal zero", "goal 20001", "goal 100000000000000000"} {
		resp = f.water(t, "1", args)
		assert.True(t, resp.IsError, args)
		assert.Contains(t, resp.Reply.Text, "valid goal", args)
	}
	u, _ = f.roster.Get("1")
	assert.Equal(t, 3000, u.DailyGoalMl)
}

func TestWaterReset(t *testing.T) {
	f := newFixture(t)
	f.join(t, "1", "Ana")
	f.water(t, "1", "add 500")

	resp := f.water(t, "1", "clear")
	assert.Contains(t, resp.Reply.Text, "reset to 0ml")

	u, _ := f.roster.Get("1")
	assert.Equal(t, 0, u.WaterLog["2024-05-01"].TotalMl)
}

func TestWaterStatusAndDashboard(t *testing.T) {
	f := newFixture(t)
	f.join(t, "1", "Ana")
	f.join(t, "2", "Ben")
	f.water(t, "1", "add 500")

	resp := f.water(t, "1", "status")
	assert.Contains(t, resp.Reply.Text, "Ana's Hydration Status")
	assert.Contains(t, resp.Reply.Text, "1.5L to reach your goal")

	resp = f.water(t, "2", "dash")
	assert.Contains(t, resp.Reply.Text, "Ana")
	assert.Contains(t, resp.Reply.Text, "Ben")
}

func TestWaterLeaderboard(t *testing.T) {
	f := newFixture(t)
	f.join(t, "1", "Ana")
	f.join(t, "2", "Ben")
	f.water(t, "1", "add 500")
	f.water(t, "2", "add 1000")

	resp := f.water(t, "1", "lb")
	text := resp.Reply.Text
	require.Contains(t, text, "Ben")
	require.Contains(t, text, "Ana")
	assert.Less(t, strings.Index(text, "Ben"), strings.Index(text, "Ana"))
}

func TestWaterAchievements(t *testing.T) {
	f := newFixture(t)
	f.join(t, "1", "Ana")
	f.water(t, "1", "add 600")

	resp := f.water(t, "1", "achieve")
	assert.Contains(t, resp.Reply.Text, "You've unlocked 2/5 achievements!")
}

func TestWaterHelpAndContent(t *testing.T) {
	f := newFixture(t)

	for _, args := range []string{"", "help", "unknown"} {
		assert.Contains(t, f.water(t, "1", args).Reply.Text, "Water Tracker Commands", args)
	}
	assert.Contains(t, f.water(t, "1", "fact").Reply.Text, "Water Fact")
	assert.Contains(t, f.water(t, "1", "quote").Reply.Text, "Stay Motivated")
	assert.NotNil(t, f.water(t, "1", "quick").Reply.Keyboard)
}

func TestQuickAdd(t *testing.T) {
	f := newFixture(t)
	f.join(t, "1", "Ana")
	ctx := context.Background()

	resp, err := f.handler.QuickAdd(ctx, Request{UserID: "1"}, presenter.QuickAddData(500))
	require.NoError(t, err)
	assert.Contains(t, resp.Reply.Text, "Added 500ml")

	resp, err = f.handler.QuickAdd(ctx, Request{UserID: "1"}, "water_lots")
	require.NoError(t, err)
	assert.True(t, resp.IsError)
}
