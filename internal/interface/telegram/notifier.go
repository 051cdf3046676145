package telegram

import (
	"context"
	"errors"

	"github.com/hydromate/hydromate-bot/internal/domain/hydration"
	"github.com/hydromate/hydromate-bot/internal/infrastructure/external/telegram"
	"github.com/hydromate/hydromate-bot/internal/infrastructure/scheduler/jobs"
	"github.com/hydromate/hydromate-bot/internal/interface/telegram/presenter"
	"github.com/hydromate/hydromate-bot/pkg/circuitbreaker"
)

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFIER
// Рассылки по расписанию: напоминания и утреннее приветствие.
// ══════════════════════════════════════════════════════════════════════════════

// MessageSender - отправка сообщений. Реализован *telegram.Client.
type MessageSender interface {
	SendMessage(ctx context.Context, params telegram.SendMessageParams) (*telegram.Message, error)
}

// NameLookup находит имя пользователя для упоминаний.
type NameLookup interface {
	Get(id string) (*hydration.UserRecord, bool)
}

// Notifier отправляет рассылки в общий чат.
type Notifier struct {
	sender    MessageSender
	users     NameLookup
	presenter *presenter.WaterPresenter
	chatID    int64
	breaker   *circuitbreaker.CircuitBreaker
}

var (
	_ jobs.ReminderSender = (*Notifier)(nil)
	_ jobs.KickoffSender  = (*Notifier)(nil)
)

// NewNotifier создаёт рассыльщик для чата chatID.
func NewNotifier(sender MessageSender, users NameLookup, p *presenter.WaterPresenter, chatID int64) *Notifier {
	if p == nil {
		p = presenter.NewWaterPresenter(nil, nil)
	}
	return &Notifier{sender: sender, users: users, presenter: p, chatID: chatID}
}

// WithBreaker пропускает отправку через cb: при недоступном API
// оставшиеся напоминания запуска завершаются сразу с ошибкой.
func (n *Notifier) WithBreaker(cb *circuitbreaker.CircuitBreaker) *Notifier {
	n.breaker = cb
	return n
}

// SendReminder отправляет напоминание пользователю.
func (n *Notifier) SendReminder(ctx context.Context, user *hydration.UserRecord, progress hydration.Progress) error {
	return n.send(ctx, n.presenter.Reminder(user, progress))
}

// SendKickoff отправляет приветствие нового дня.
func (n *Notifier) SendKickoff(ctx context.Context, kickoff jobs.Kickoff) error {
	mentions := make([]string, 0, len(kickoff.UserIDs))
	for _, id := range kickoff.UserIDs {
		name := id
		if n.users != nil {
			if u, ok := n.users.Get(id); ok && u.DisplayName != "" {
				name = u.DisplayName
			}
		}
		mentions = append(mentions, presenter.Mention(id, name))
	}
	return n.send(ctx, n.presenter.Kickoff(mentions, kickoff.ChallengeMl))
}

func (n *Notifier) send(ctx context.Context, view presenter.View) error {
	if n.chatID == 0 {
		return errors.New("notification chat is not configured")
	}
	params := telegram.SendMessageParams{
		ChatID:      n.chatID,
		Text:        view.Text,
		ParseMode:   presenter.ParseModeHTML,
		ReplyMarkup: convertKeyboard(view.Keyboard),
	}

	if n.breaker == nil {
		_, err := n.sender.SendMessage(ctx, params)
		return err
	}
	return n.breaker.Execute(ctx, func(ctx context.Context) error {
		_, err := n.sender.SendMessage(ctx, params)
		return err
	})
}
