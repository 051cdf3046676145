package telegram

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydromate/hydromate-bot/internal/application/command"
	"github.com/hydromate/hydromate-bot/internal/domain/hydration"
	"github.com/hydromate/hydromate-bot/internal/infrastructure/external/telegram"
	"github.com/hydromate/hydromate-bot/internal/infrastructure/scheduler/jobs"
	"github.com/hydromate/hydromate-bot/internal/interface/telegram/handler"
	"github.com/hydromate/hydromate-bot/internal/interface/telegram/middleware"
	"github.com/hydromate/hydromate-bot/internal/interface/telegram/presenter"
	"github.com/hydromate/hydromate-bot/pkg/circuitbreaker"
)

type fakeClient struct {
	mu       sync.Mutex
	sent     []telegram.SendMessageParams
	answered []string
}

func (c *fakeClient) GetMe(context.Context) (*telegram.User, error) {
	return &telegram.User{ID: 1, Username: "hydromate_bot"}, nil
}

func (c *fakeClient) StartPolling(ctx context.Context, _ telegram.UpdateHandler) error {
	<-ctx.Done()
	return nil
}

func (c *fakeClient) SendMessage(_ context.Context, p telegram.SendMessageParams) (*telegram.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, p)
	return &telegram.Message{MessageID: int64(len(c.sent))}, nil
}

func (c *fakeClient) AnswerCallbackQuery(_ context.Context, id, text string, _ bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.answered = append(c.answered, id+":"+text)
	return nil
}

type stubWater struct {
	requests []handler.Request
	callback string
	panics   bool
}

func (s *stubWater) Handle(_ context.Context, req handler.Request) (*handler.Response, error) {
	if s.panics {
		panic("nil map")
	}
	s.requests = append(s.requests, req)
	return &handler.Response{
		Reply:         presenter.View{Text: "reply:" + req.Args, Keyboard: presenter.QuickAddKeyboard([]int{250})},
		Announcements: []presenter.View{{Text: "announce"}},
	}, nil
}

func (s *stubWater) QuickAdd(_ context.Context, req handler.Request, data string) (*handler.Response, error) {
	s.callback = data
	s.requests = append(s.requests, req)
	return &handler.Response{Reply: presenter.View{Text: "quick:" + data}}, nil
}

func (s *stubWater) Quick() *handler.Response {
	return &handler.Response{Reply: presenter.View{Text: "buttons"}}
}

type spyRegistrar struct{ ids []string }

func (r *spyRegistrar) Handle(_ context.Context, cmd command.RegisterUserCommand) (*command.RegisterUserResult, error) {
	r.ids = append(r.ids, cmd.UserID+"/"+cmd.DisplayName)
	return &command.RegisterUserResult{Created: true}, nil
}

type spyMetrics struct{ kinds []string }

func (m *spyMetrics) UpdateHandled(kind string, err error) {
	if err != nil {
		kind += ":error"
	}
	m.kinds = append(m.kinds, kind)
}

type botFixture struct {
	client    *fakeClient
	water     *stubWater
	registrar *spyRegistrar
	metrics   *spyMetrics
	bot       *Bot
}

func newBotFixture(t *testing.T, burst int) *botFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	f := &botFixture{
		client:    &fakeClient{},
		water:     &stubWater{},
		registrar: &spyRegistrar{},
		metrics:   &spyMetrics{},
	}
	bot, err := NewBot(BotConfig{AnnounceChatID: -100, Logger: logger}, BotDeps{
		Client:      f.client,
		Router:      NewRouter(RouterConfig{Logger: logger}, f.water),
		Registrar:   f.registrar,
		RateLimiter: middleware.NewRateLimiter(middleware.RateLimitConfig{RequestsPerMinute: 1, BurstSize: burst}),
		Recovery:    middleware.NewRecoveryMiddleware(middleware.RecoveryConfig{Logger: logger}),
		Metrics:     f.metrics,
	})
	require.NoError(t, err)
	f.bot = bot
	return f
}

func commandUpdate(text string) *telegram.Update {
	cmdLen := len(text)
	if i := strings.IndexByte(text, ' '); i >= 0 {
		cmdLen = i
	}
	return &telegram.Update{
		UpdateID: 1,
		Message: &telegram.Message{
			MessageID: 10,
			From:      &telegram.User{ID: 42, FirstName: "Ana", LastName: "Lee"},
			Chat:      &telegram.Chat{ID: 5, Type: "group"},
			Text:      text,
			Entities:  []telegram.MessageEntity{{Type: "bot_command", Offset: 0, Length: cmdLen}},
		},
	}
}

func TestBot_CommandRepliesAndAnnounces(t *testing.T) {
	f := newBotFixture(t, 5)

	require.NoError(t, f.bot.HandleUpdate(context.Background(), commandUpdate("/water add 250")))

	require.Len(t, f.client.sent, 2)
	assert.Equal(t, int64(5), f.client.sent[0].ChatID)
	assert.Equal(t, "reply:add 250", f.client.sent[0].Text)
	assert.Equal(t, presenter.ParseModeHTML, f.client.sent[0].ParseMode)
	require.NotNil(t, f.client.sent[0].ReplyMarkup)
	assert.Equal(t, "water_250", f.client.sent[0].ReplyMarkup.InlineKeyboard[0][0].CallbackData)

	assert.Equal(t, int64(-100), f.client.sent[1].ChatID)
	assert.Equal(t, "announce", f.client.sent[1].Text)

	assert.Equal(t, []string{"42/Ana Lee"}, f.registrar.ids)
	require.Len(t, f.water.requests, 1)
	assert.NotEmpty(t, f.water.requests[0].RequestID)
	assert.Equal(t, []string{KindCommand}, f.metrics.kinds)
}

func TestBot_StartAndHelpShowHelp(t *testing.T) {
	f := newBotFixture(t, 5)

	require.NoError(t, f.bot.HandleUpdate(context.Background(), commandUpdate("/start")))
	require.NoError(t, f.bot.HandleUpdate(context.Background(), commandUpdate("/help@hydromate_bot")))

	require.Len(t, f.water.requests, 2)
	assert.Equal(t, "help", f.water.requests[0].Args)
	assert.Equal(t, "help", f.water.requests[1].Args)
}

func TestBot_UnknownCommandAndTextIgnored(t *testing.T) {
	f := newBotFixture(t, 5)
	ctx := context.Background()

	require.NoError(t, f.bot.HandleUpdate(ctx, commandUpdate("/weather")))

	plain := commandUpdate("hello")
	plain.Message.Entities = nil
	require.NoError(t, f.bot.HandleUpdate(ctx, plain))

	assert.Empty(t, f.client.sent)
	assert.Empty(t, f.metrics.kinds)
}

func TestBot_QuickTrigger(t *testing.T) {
	f := newBotFixture(t, 5)
	update := commandUpdate(" ! ")
	update.Message.Entities = nil

	require.NoError(t, f.bot.HandleUpdate(context.Background(), update))

	require.Len(t, f.client.sent, 1)
	assert.Equal(t, "buttons", f.client.sent[0].Text)
	assert.Equal(t, []string{KindText}, f.metrics.kinds)
}

func TestBot_CallbackAnswersAndReplies(t *testing.T) {
	f := newBotFixture(t, 5)
	update := &telegram.Update{
		UpdateID: 2,
		CallbackQuery: &telegram.CallbackQuery{
			ID:      "cb1",
			From:    &telegram.User{ID: 42, FirstName: "Ana"},
			Message: &telegram.Message{MessageID: 3, Chat: &telegram.Chat{ID: 7}},
			Data:    "water_500",
		},
	}

	require.NoError(t, f.bot.HandleUpdate(context.Background(), update))

	assert.Equal(t, []string{"cb1:"}, f.client.answered)
	assert.Equal(t, "water_500", f.water.callback)
	require.Len(t, f.client.sent, 1)
	assert.Equal(t, int64(7), f.client.sent[0].ChatID)
	assert.Equal(t, []string{KindCallback}, f.metrics.kinds)
}

func TestBot_RateLimited(t *testing.T) {
	f := newBotFixture(t, 1)
	ctx := context.Background()

	require.NoError(t, f.bot.HandleUpdate(ctx, commandUpdate("/water status")))
	require.NoError(t, f.bot.HandleUpdate(ctx, commandUpdate("/water status")))

	require.Len(t, f.water.requests, 1)
	last := f.client.sent[len(f.client.sent)-1]
	assert.Contains(t, last.Text, "Too many requests")
}

func TestBot_PanicIsReportedToUser(t *testing.T) {
	f := newBotFixture(t, 5)
	f.water.panics = true

	require.NoError(t, f.bot.HandleUpdate(context.Background(), commandUpdate("/water add 1")))

	require.Len(t, f.client.sent, 1)
	assert.Contains(t, f.client.sent[0].Text, "Something went wrong")
	assert.Equal(t, []string{KindCommand + ":error"}, f.metrics.kinds)
}

func TestBot_StartStopsWithContext(t *testing.T) {
	f := newBotFixture(t, 5)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.bot.Start(ctx) }()

	require.Eventually(t, f.bot.IsRunning, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("bot did not stop")
	}
	assert.False(t, f.bot.IsRunning())
	assert.NoError(t, f.bot.Wait(context.Background()))
}

func TestNewBot_RequiresClientAndRouter(t *testing.T) {
	_, err := NewBot(BotConfig{}, BotDeps{})
	assert.Error(t, err)
}

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFIER
// ══════════════════════════════════════════════════════════════════════════════

type lookup map[string]*hydration.UserRecord

func (l lookup) Get(id string) (*hydration.UserRecord, bool) {
	u, ok := l[id]
	return u, ok
}

func TestNotifier_Kickoff(t *testing.T) {
	client := &fakeClient{}
	users := lookup{"1": {ID: "1", DisplayName: "Ana"}}
	n := NewNotifier(client, users, nil, -100)

	require.NoError(t, n.SendKickoff(context.Background(), jobs.Kickoff{DayKey: "2024-05-01", ChallengeMl: 2500, UserIDs: []string{"1", "2"}}))

	require.Len(t, client.sent, 1)
	text := client.sent[0].Text
	assert.Equal(t, int64(-100), client.sent[0].ChatID)
	assert.Contains(t, text, `<a href="tg://user?id=1">Ana</a>`)
	assert.Contains(t, text, `<a href="tg://user?id=2">2</a>`)
	assert.Contains(t, text, "2.5L")
}

func TestNotifier_Reminder(t *testing.T) {
	client := &fakeClient{}
	n := NewNotifier(client, nil, nil, -100)
	user := &hydration.UserRecord{ID: "1", DisplayName: "Ana", DailyGoalMl: 2000}

	err := n.SendReminder(context.Background(), user, hydration.Progress{CurrentMl: 500, GoalMl: 2000, Percentage: 25})
	require.NoError(t, err)

	require.Len(t, client.sent, 1)
	assert.Contains(t, client.sent[0].Text, "Water Reminder")
	assert.NotNil(t, client.sent[0].ReplyMarkup)
}

func TestNotifier_RequiresChat(t *testing.T) {
	n := NewNotifier(&fakeClient{}, nil, nil, 0)
	err := n.SendReminder(context.Background(), &hydration.UserRecord{ID: "1"}, hydration.Progress{})
	assert.Error(t, err)
}

type failingSender struct{ calls int }

func (s *failingSender) SendMessage(context.Context, telegram.SendMessageParams) (*telegram.Message, error) {
	s.calls++
	return nil, errors.New("bad gateway")
}

func TestNotifier_BreakerStopsSendingDuringOutage(t *testing.T) {
	sender := &failingSender{}
	cb := circuitbreaker.New("test", circuitbreaker.WithFailureThreshold(2), circuitbreaker.WithTimeout(time.Hour))
	n := NewNotifier(sender, nil, nil, -100).WithBreaker(cb)
	user := &hydration.UserRecord{ID: "1", DisplayName: "Ana", DailyGoalMl: 2000}

	for i := 0; i < 4; i++ {
		assert.Error(t, n.SendReminder(context.Background(), user, hydration.Progress{GoalMl: 2000}))
	}

	assert.Equal(t, 2, sender.calls)
	assert.Equal(t, circuitbreaker.StateOpen, cb.State())
}
