// Package telegram - интерфейс бота в Telegram: приём обновлений,
// маршрутизация, отправка ответов и рассылки по расписанию.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hydromate/hydromate-bot/internal/application/command"
	"github.com/hydromate/hydromate-bot/internal/infrastructure/external/telegram"
	"github.com/hydromate/hydromate-bot/internal/interface/telegram/handler"
	"github.com/hydromate/hydromate-bot/internal/interface/telegram/middleware"
	"github.com/hydromate/hydromate-bot/internal/interface/telegram/presenter"
)

// Виды обновлений для метрик.
const (
	KindCommand  = "command"
	KindText     = "text"
	KindCallback = "callback"
)

// ══════════════════════════════════════════════════════════════════════════════
// BOT CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// BotConfig содержит настройки бота.
type BotConfig struct {
	// AnnounceChatID - общий чат для поздравлений и рассылок.
	// 0 - объявления уходят в чат, откуда пришла команда.
	AnnounceChatID int64

	// MaxConcurrentUpdates ограничивает параллельную обработку.
	MaxConcurrentUpdates int

	// GracefulShutdownTimeout - сколько ждать обработчики при остановке.
	GracefulShutdownTimeout time.Duration

	Debug  bool
	Logger *slog.Logger
}

// DefaultBotConfig возвращает настройки по умолчанию.
func DefaultBotConfig() BotConfig {
	return BotConfig{
		MaxConcurrentUpdates:    16,
		GracefulShutdownTimeout: 30 * time.Second,
		Logger:                  slog.Default(),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// PORTS
// ══════════════════════════════════════════════════════════════════════════════

// Client - методы Bot API, которые использует бот. Реализован *telegram.Client.
type Client interface {
	GetMe(ctx context.Context) (*telegram.User, error)
	StartPolling(ctx context.Context, handler telegram.UpdateHandler) error
	SendMessage(ctx context.Context, params telegram.SendMessageParams) (*telegram.Message, error)
	AnswerCallbackQuery(ctx context.Context, callbackQueryID string, text string, showAlert bool) error
}

// Registrar регистрирует автора обновления.
type Registrar interface {
	Handle(ctx context.Context, cmd command.RegisterUserCommand) (*command.RegisterUserResult, error)
}

// Metrics учитывает обработанные обновления.
type Metrics interface {
	UpdateHandled(kind string, err error)
}

type noopMetrics struct{}

func (noopMetrics) UpdateHandled(string, error) {}

// BotDeps - зависимости бота.
type BotDeps struct {
	Client      Client
	Router      *Router
	Registrar   Registrar
	RateLimiter *middleware.RateLimiter
	Recovery    *middleware.RecoveryMiddleware
	Presenter   *presenter.WaterPresenter
	Metrics     Metrics
}

// ══════════════════════════════════════════════════════════════════════════════
// BOT
// ══════════════════════════════════════════════════════════════════════════════

// Bot - контроллер бота.
type Bot struct {
	config BotConfig
	deps   BotDeps
	logger *slog.Logger

	runningMu sync.Mutex
	running   bool
	updateSem chan struct{}
	wg        sync.WaitGroup
}

// NewBot создаёт бота.
func NewBot(config BotConfig, deps BotDeps) (*Bot, error) {
	if deps.Client == nil {
		return nil, errors.New("telegram client is required")
	}
	if deps.Router == nil {
		return nil, errors.New("router is required")
	}

	defaults := DefaultBotConfig()
	if config.Logger == nil {
		config.Logger = defaults.Logger
	}
	if config.MaxConcurrentUpdates <= 0 {
		config.MaxConcurrentUpdates = defaults.MaxConcurrentUpdates
	}
	if config.GracefulShutdownTimeout <= 0 {
		config.GracefulShutdownTimeout = defaults.GracefulShutdownTimeout
	}
	if deps.RateLimiter == nil {
		deps.RateLimiter = middleware.NewRateLimiter(middleware.DefaultRateLimitConfig())
	}
	if deps.Recovery == nil {
		deps.Recovery = middleware.NewRecoveryMiddleware(middleware.RecoveryConfig{Logger: config.Logger, EnableStackTrace: true})
	}
	if deps.Presenter == nil {
		deps.Presenter = presenter.NewWaterPresenter(nil, nil)
	}
	if deps.Metrics == nil {
		deps.Metrics = noopMetrics{}
	}

	return &Bot{
		config:    config,
		deps:      deps,
		logger:    config.Logger,
		updateSem: make(chan struct{}, config.MaxConcurrentUpdates),
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE MANAGEMENT
// ══════════════════════════════════════════════════════════════════════════════

// Start проверяет токен и блокируется в long polling до отмены ctx.
func (b *Bot) Start(ctx context.Context) error {
	b.runningMu.Lock()
	if b.running {
		b.runningMu.Unlock()
		return errors.New("bot is already running")
	}
	b.running = true
	b.runningMu.Unlock()

	defer func() {
		b.runningMu.Lock()
		b.running = false
		b.runningMu.Unlock()
	}()

	me, err := b.deps.Client.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify bot token: %w", err)
	}
	b.logger.Info("bot verified", "id", me.ID, "username", me.Username)

	b.logger.Info("starting long polling")
	return b.deps.Client.StartPolling(ctx, b.HandleUpdate)
}

// Wait ждёт завершения обработчиков, но не дольше GracefulShutdownTimeout.
func (b *Bot) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("all handlers completed gracefully")
		return nil
	case <-time.After(b.config.GracefulShutdownTimeout):
		b.logger.Warn("graceful shutdown timeout exceeded")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning сообщает, идёт ли polling.
func (b *Bot) IsRunning() bool {
	b.runningMu.Lock()
	defer b.runningMu.Unlock()
	return b.running
}

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE HANDLING
// ══════════════════════════════════════════════════════════════════════════════

// HandleUpdate обрабатывает одно обновление. Ошибки обработчиков
// логируются и не останавливают polling.
func (b *Bot) HandleUpdate(ctx context.Context, update *telegram.Update) error {
	select {
	case b.updateSem <- struct{}{}:
		defer func() { <-b.updateSem }()
	case <-ctx.Done():
		return ctx.Err()
	}

	b.wg.Add(1)
	defer b.wg.Done()

	requestID := uuid.NewString()
	ctx = middleware.ContextWithRequestID(ctx, requestID)
	start := time.Now()

	var (
		kind string
		err  error
	)
	switch {
	case update.Message != nil:
		kind, err = b.handleMessage(ctx, requestID, update.Message)
	case update.CallbackQuery != nil:
		kind, err = KindCallback, b.handleCallback(ctx, requestID, update.CallbackQuery)
	default:
		return nil
	}
	if kind == "" {
		return nil
	}

	b.deps.Metrics.UpdateHandled(kind, err)
	if err != nil {
		b.logger.Error("failed to handle update",
			"update_id", update.UpdateID,
			"request_id", requestID,
			"kind", kind,
			"error", err,
			"duration", time.Since(start),
		)
	} else if b.config.Debug {
		b.logger.Debug("update handled",
			"update_id", update.UpdateID,
			"request_id", requestID,
			"kind", kind,
			"duration", time.Since(start),
		)
	}
	return nil
}

// handleMessage возвращает вид обновления ("" - сообщение проигнорировано).
func (b *Bot) handleMessage(ctx context.Context, requestID string, msg *telegram.Message) (string, error) {
	if msg.From == nil || msg.Chat == nil || msg.From.IsBot {
		return "", nil
	}

	cmd := telegram.ExtractCommand(msg)
	if cmd == "" {
		resp := b.deps.Router.RouteText(ctx, msg.Text)
		if resp == nil {
			return "", nil
		}
		return KindText, b.deliver(ctx, msg.Chat.ID, resp)
	}

	req := b.request(msg.From, requestID)
	req.Args = telegram.ExtractCommandArgs(msg)

	if limited := b.deps.RateLimiter.Check(req.UserID); !limited.Allowed {
		return KindCommand, b.send(ctx, msg.Chat.ID, b.deps.Presenter.RateLimited())
	}

	b.register(ctx, req)

	var resp *handler.Response
	err := b.deps.Recovery.Run(ctx, req.UserID, cmd, func() error {
		var err error
		resp, err = b.deps.Router.RouteCommand(ctx, cmd, req)
		return err
	})
	if err != nil {
		if sendErr := b.send(ctx, msg.Chat.ID, b.deps.Presenter.InternalError()); sendErr != nil {
			b.logger.Warn("failed to send error reply", "request_id", requestID, "error", sendErr)
		}
		return KindCommand, err
	}
	if resp == nil {
		return "", nil
	}
	return KindCommand, b.deliver(ctx, msg.Chat.ID, resp)
}

func (b *Bot) handleCallback(ctx context.Context, requestID string, cq *telegram.CallbackQuery) error {
	if cq.From == nil {
		return nil
	}
	req := b.request(cq.From, requestID)

	if limited := b.deps.RateLimiter.Check(req.UserID); !limited.Allowed {
		return b.deps.Client.AnswerCallbackQuery(ctx, cq.ID, b.deps.Presenter.RateLimited().Text, true)
	}

	// Снимает "часики" с кнопки до отправки ответа.
	if err := b.deps.Client.AnswerCallbackQuery(ctx, cq.ID, "", false); err != nil {
		b.logger.Warn("failed to answer callback", "request_id", requestID, "error", err)
	}

	b.register(ctx, req)

	var resp *handler.Response
	err := b.deps.Recovery.Run(ctx, req.UserID, "callback", func() error {
		var err error
		resp, err = b.deps.Router.RouteCallback(ctx, cq.Data, req)
		return err
	})
	if err != nil || resp == nil {
		return err
	}

	chatID := b.config.AnnounceChatID
	if cq.Message != nil && cq.Message.Chat != nil {
		chatID = cq.Message.Chat.ID
	}
	return b.deliver(ctx, chatID, resp)
}

func (b *Bot) request(from *telegram.User, requestID string) handler.Request {
	name := from.FullName()
	if name == "" {
		name = from.Username
	}
	return handler.Request{
		UserID:      strconv.FormatInt(from.ID, 10),
		DisplayName: name,
		RequestID:   requestID,
	}
}

// register создаёт запись для нового пользователя. Ошибка не мешает ответу:
// команды сами сообщат о неизвестном пользователе.
func (b *Bot) register(ctx context.Context, req handler.Request) {
	if b.deps.Registrar == nil {
		return
	}
	res, err := b.deps.Registrar.Handle(ctx, command.RegisterUserCommand{UserID: req.UserID, DisplayName: req.DisplayName})
	if err != nil {
		b.logger.Warn("failed to register user", "request_id", req.RequestID, "user_id", req.UserID, "error", err)
		return
	}
	if res.Created {
		b.logger.Info("user registered", "request_id", req.RequestID, "user_id", req.UserID, "name", req.DisplayName)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// deliver отправляет ответ и объявления. Объявления отправляются даже
// если ответ не ушёл.
func (b *Bot) deliver(ctx context.Context, chatID int64, resp *handler.Response) error {
	errs := []error{b.send(ctx, chatID, resp.Reply)}

	announceChat := b.config.AnnounceChatID
	if announceChat == 0 {
		announceChat = chatID
	}
	for _, view := range resp.Announcements {
		errs = append(errs, b.send(ctx, announceChat, view))
	}
	return errors.Join(errs...)
}

func (b *Bot) send(ctx context.Context, chatID int64, view presenter.View) error {
	if view.Text == "" {
		return nil
	}
	_, err := b.deps.Client.SendMessage(ctx, telegram.SendMessageParams{
		ChatID:      chatID,
		Text:        view.Text,
		ParseMode:   presenter.ParseModeHTML,
		ReplyMarkup: convertKeyboard(view.Keyboard),
	})
	return err
}

// convertKeyboard converts presenter.InlineKeyboard to telegram.InlineKeyboardMarkup.
func convertKeyboard(kb *presenter.InlineKeyboard) *telegram.InlineKeyboardMarkup {
	if kb == nil || len(kb.Rows) == 0 {
		return nil
	}

	markup := &telegram.InlineKeyboardMarkup{
		InlineKeyboard: make([][]telegram.InlineKeyboardButton, len(kb.Rows)),
	}
	for i, row := range kb.Rows {
		markup.InlineKeyboard[i] = make([]telegram.InlineKeyboardButton, len(row))
		for j, btn := range row {
			markup.InlineKeyboard[i][j] = telegram.InlineKeyboardButton{
				Text:         btn.Text,
				CallbackData: btn.CallbackData,
			}
		}
	}
	return markup
}
