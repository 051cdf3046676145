package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydromate/hydromate-bot/internal/application/command"
	"github.com/hydromate/hydromate-bot/internal/domain/hydration"
	"github.com/hydromate/hydromate-bot/internal/domain/shared"
	"github.com/hydromate/hydromate-bot/pkg/timeutil"
)

type fakeUsers struct {
	users map[string]*hydration.UserRecord
}

func (f *fakeUsers) Get(id string) (*hydration.UserRecord, bool) {
	u, ok := f.users[id]
	if !ok {
		return nil, false
	}
	return u.Clone(), true
}

func (f *fakeUsers) Handle(_ context.Context, cmd command.MarkRemindedCommand) (*hydration.UserRecord, error) {
	u, ok := f.users[cmd.UserID]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	u.LastRemindedAt = cmd.At
	return u.Clone(), nil
}

type fakeSender struct {
	reminded []string
	failFor  map[string]bool
	kickoffs []Kickoff
}

func (s *fakeSender) SendReminder(_ context.Context, user *hydration.UserRecord, _ hydration.Progress) error {
	if s.failFor[user.ID] {
		return errors.New("chat unavailable")
	}
	s.reminded = append(s.reminded, user.ID)
	return nil
}

func (s *fakeSender) SendKickoff(_ context.Context, k Kickoff) error {
	s.kickoffs = append(s.kickoffs, k)
	return nil
}

type outcomes []string

func (o *outcomes) ReminderOutcome(outcome string) { *o = append(*o, outcome) }

type reminderFixture struct {
	now      time.Time
	users    *fakeUsers
	sender   *fakeSender
	outcomes *outcomes
	job      *WaterRemindersJob
}

func newReminderFixture(t *testing.T, ids ...string) *reminderFixture {
	t.Helper()

	cal := timeutil.NewCalendar(time.UTC)
	f := &reminderFixture{
		now:      time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC),
		users:    &fakeUsers{users: map[string]*hydration.UserRecord{}},
		sender:   &fakeSender{failFor: map[string]bool{}},
		outcomes: &outcomes{},
	}

	for _, id := range []string{"alice", "bob"} {
		u, err := hydration.NewUserRecord(id, id, f.now.Add(-2*time.Hour), cal)
		require.NoError(t, err)
		f.users.users[id] = u
	}

	config := DefaultWaterRemindersConfig()
	config.UserIDs = ids
	f.job = NewWaterRemindersJob(WaterRemindersDeps{
		Users:    f.users,
		Engine:   hydration.NewEngine(cal, hydration.StreakPolicy{}),
		Sender:   f.sender,
		Marker:   f.users,
		Clock:    shared.ClockFunc(func() time.Time { return f.now }),
		Recorder: f.outcomes,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, config)

	return f
}

func TestWaterReminders_RemindsWhenGateOpen(t *testing.T) {
	f := newReminderFixture(t, "alice", "bob")

	require.NoError(t, f.job.Run(context.Background()))

	assert.Equal(t, []string{"alice", "bob"}, f.sender.reminded)
	assert.Equal(t, f.now, f.users.users["alice"].LastRemindedAt)
	assert.Equal(t, &outcomes{OutcomeSent, OutcomeSent}, f.outcomes)

	stats := f.job.LastStats()
	require.NotNil(t, stats)
	assert.Equal(t, 2, stats.Sent)
}

func TestWaterReminders_GateClosedWithinInterval(t *testing.T) {
	f := newReminderFixture(t, "alice")
	require.NoError(t, f.job.Run(context.Background()))

	// 90 minutes later exactly: gate requires strictly more.
	f.now = f.now.Add(90 * time.Minute)
	require.NoError(t, f.job.Run(context.Background()))
	assert.Len(t, f.sender.reminded, 1)

	f.now = f.now.Add(time.Second)
	require.NoError(t, f.job.Run(context.Background()))
	assert.Len(t, f.sender.reminded, 2)
}

func TestWaterReminders_FailedSendKeepsGateOpen(t *testing.T) {
	f := newReminderFixture(t, "alice", "bob")
	f.sender.failFor["alice"] = true
	before := f.users.users["alice"].LastRemindedAt

	err := f.job.Run(context.Background())
	require.Error(t, err)

	assert.Equal(t, []string{"bob"}, f.sender.reminded)
	assert.Equal(t, before, f.users.users["alice"].LastRemindedAt)
	assert.Equal(t, 1, f.job.LastStats().Failed)
}

func TestWaterReminders_UnknownUserSkipped(t *testing.T) {
	f := newReminderFixture(t, "ghost", "alice")

	require.NoError(t, f.job.Run(context.Background()))

	assert.Equal(t, []string{"alice"}, f.sender.reminded)
	assert.Equal(t, &outcomes{OutcomeUnknown, OutcomeSent}, f.outcomes)
	assert.Equal(t, 1, f.job.LastStats().Skipped)
}

func TestDailyKickoff_ChallengeRange(t *testing.T) {
	sender := &fakeSender{}
	cal := timeutil.NewCalendar(time.UTC)
	now := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	for _, tt := range []struct {
		draw int
		want int
	}{
		{0, 2000},
		{999, 2999},
	} {
		job := NewDailyKickoffJob(DailyKickoffDeps{
			Sender: sender,
			Engine: hydration.NewEngine(cal, hydration.StreakPolicy{}),
			Clock:  shared.ClockFunc(func() time.Time { return now }),
			Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
			IntN: func(n int) int {
				assert.Equal(t, 1000, n)
				return tt.draw
			},
		}, []string{"alice"})
		require.NoError(t, job.Run(context.Background()))
	}

	require.Len(t, sender.kickoffs, 2)
	assert.Equal(t, 2000, sender.kickoffs[0].ChallengeMl)
	assert.Equal(t, 2999, sender.kickoffs[1].ChallengeMl)
	assert.Equal(t, "2024-03-10", sender.kickoffs[0].DayKey)
	assert.Equal(t, []string{"alice"}, sender.kickoffs[0].UserIDs)
}

func TestDailyKickoff_DefaultRandomInBounds(t *testing.T) {
	job := NewDailyKickoffJob(DailyKickoffDeps{}, nil)
	for i := 0; i < 200; i++ {
		c := job.Challenge()
		assert.GreaterOrEqual(t, c, ChallengeMinMl)
		assert.Less(t, c, ChallengeMaxMl)
	}
}
