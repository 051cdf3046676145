// Package handler содержит обработчики команд бота.
// Обработчики не знают о клиенте Telegram: они возвращают Response,
// который отправляет бот.
package handler

import (
	"context"
	"strconv"
	"strings"

	"github.com/hydromate/hydromate-bot/internal/application/command"
	"github.com/hydromate/hydromate-bot/internal/application/query"
	"github.com/hydromate/hydromate-bot/internal/domain/hydration"
	"github.com/hydromate/hydromate-bot/internal/domain/shared"
	"github.com/hydromate/hydromate-bot/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// PORTS
// ══════════════════════════════════════════════════════════════════════════════

// LogWater - сценарий добавления воды.
type LogWater interface {
	Handle(ctx context.Context, cmd command.LogWaterCommand) (*command.LogWaterResult, error)
}

// SetGoal - сценарий изменения цели.
type SetGoal interface {
	Handle(ctx context.Context, cmd command.SetGoalCommand) (*command.SetGoalResult, error)
}

// ResetToday - сценарий сброса дня.
type ResetToday interface {
	Handle(ctx context.Context, cmd command.ResetTodayCommand) (*command.ResetTodayResult, error)
}

// DailyProgress - запрос дневного прогресса.
type DailyProgress interface {
	Handle(ctx context.Context, q query.GetDailyProgressQuery) (*query.DailyProgressDTO, error)
}

// Leaderboard - запрос рейтинга.
type Leaderboard interface {
	Handle(ctx context.Context, q query.GetLeaderboardQuery) (*query.LeaderboardDTO, error)
}

// Achievements - запрос достижений.
type Achievements interface {
	Handle(ctx context.Context, q query.GetAchievementsQuery) (*query.AchievementsDTO, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST / RESPONSE
// ══════════════════════════════════════════════════════════════════════════════

// Request - разобранная команда пользователя.
type Request struct {
	// UserID - идентификатор пользователя Telegram строкой.
	UserID string

	// DisplayName - имя для упоминаний.
	DisplayName string

	// Args - текст после /water.
	Args string

	// RequestID - идентификатор обновления для логов.
	RequestID string
}

// Response - ответ бота.
type Response struct {
	// Reply - ответ на сообщение пользователя.
	Reply presenter.View

	// Announcements - сообщения в общий чат после ответа
	// (поздравления, достижения, предупреждения).
	Announcements []presenter.View

	// IsError - ответ описывает ошибку пользователя.
	IsError bool
}

// ══════════════════════════════════════════════════════════════════════════════
// WATER HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// Deps - зависимости WaterHandler.
type Deps struct {
	LogWater     LogWater
	SetGoal      SetGoal
	ResetToday   ResetToday
	Progress     DailyProgress
	Leaderboard  Leaderboard
	Achievements Achievements
	Presenter    *presenter.WaterPresenter

	// Users - источник списка для общей панели.
	Users query.UserReader
}

// WaterHandler обрабатывает /water и кнопки быстрого добавления.
type WaterHandler struct {
	deps Deps
	p    *presenter.WaterPresenter
}

// NewWaterHandler создаёт обработчик.
func NewWaterHandler(deps Deps) *WaterHandler {
	if deps.Presenter == nil {
		deps.Presenter = presenter.NewWaterPresenter(nil, nil)
	}
	return &WaterHandler{deps: deps, p: deps.Presenter}
}

// Handle разбирает подкоманду и выполняет её.
func (h *WaterHandler) Handle(ctx context.Context, req Request) (*Response, error) {
	fields := strings.Fields(req.Args)
	sub := "help"
	var args []string
	if len(fields) > 0 {
		sub = strings.ToLower(fields[0])
		args = fields[1:]
	}

	switch sub {
	case "add", "log":
		return h.add(ctx, req, args, command.SourceCommand)
	case "goal":
		return h.goal(ctx, req, args)
	case "status", "progress":
		return h.Status(ctx, req)
	case "leaderboard", "lb":
		return h.leaderboard(ctx)
	case "achievements", "achieve":
		return h.achievements(ctx, req)
	case "reset", "clear":
		return h.reset(ctx, req)
	case "dashboard", "dash":
		return h.dashboard(ctx)
	case "quick":
		return &Response{Reply: h.p.QuickAdd()}, nil
	case "fact":
		return &Response{Reply: h.p.Fact()}, nil
	case "motivation", "quote":
		return &Response{Reply: h.p.Motivation()}, nil
	default:
		return &Response{Reply: h.p.Help()}, nil
	}
}

// QuickAdd обрабатывает нажатие кнопки "water_<ml>".
func (h *WaterHandler) QuickAdd(ctx context.Context, req Request, data string) (*Response, error) {
	amount, err := presenter.ParseQuickAddData(data)
	if err != nil {
		return &Response{Reply: h.p.InvalidAmount(), IsError: true}, nil
	}
	return h.log(ctx, req, amount, command.SourceButton)
}

// Quick - клавиатура быстрого добавления (сообщение "!").
func (h *WaterHandler) Quick() *Response {
	return &Response{Reply: h.p.QuickAdd()}
}

// Status - карточка прогресса пользователя.
func (h *WaterHandler) Status(ctx context.Context, req Request) (*Response, error) {
	dto, err := h.deps.Progress.Handle(ctx, query.GetDailyProgressQuery{UserID: req.UserID})
	if err != nil {
		return nil, err
	}
	return &Response{Reply: h.p.Status(dto, true)}, nil
}

func (h *WaterHandler) add(ctx context.Context, req Request, args []string, source string) (*Response, error) {
	if len(args) == 0 {
		return &Response{Reply: h.p.InvalidAmount(), IsError: true}, nil
	}
	amount, err := strconv.Atoi(strings.TrimSuffix(strings.ToLower(args[0]), "ml"))
	if err != nil || amount <= 0 {
		return &Response{Reply: h.p.InvalidAmount(), IsError: true}, nil
	}
	return h.log(ctx, req, amount, source)
}

func (h *WaterHandler) log(ctx context.Context, req Request, amount int, source string) (*Response, error) {
	res, err := h.deps.LogWater.Handle(ctx, command.LogWaterCommand{
		UserID:        req.UserID,
		AmountMl:      amount,
		Source:        source,
		CorrelationID: req.RequestID,
	})
	if err != nil && !command.IsPartial(err) {
		return h.failure(err, h.p.InvalidAmount())
	}

	resp := &Response{Reply: h.p.Logged(amount, res.Progress, res.User.StreakDays)}
	if res.GoalJustReached {
		resp.Announcements = append(resp.Announcements, h.p.Celebration(req.UserID, res.User.DisplayName, res.Progress.GoalMl))
	}
	for _, a := range res.Unlocked {
		resp.Announcements = append(resp.Announcements, h.p.Unlocked(req.UserID, res.User.DisplayName, a))
	}
	if !res.Persisted {
		resp.Announcements = append(resp.Announcements, h.p.NotSaved())
	}
	return resp, nil
}

func (h *WaterHandler) goal(ctx context.Context, req Request, args []string) (*Response, error) {
	if len(args) == 0 {
		return &Response{Reply: h.p.InvalidGoal(), IsError: true}, nil
	}
	goal, err := strconv.Atoi(strings.TrimSuffix(strings.ToLower(args[0]), "ml"))
	if err != nil || goal <= 0 {
		return &Response{Reply: h.p.InvalidGoal(), IsError: true}, nil
	}

	res, err := h.deps.SetGoal.Handle(ctx, command.SetGoalCommand{UserID: req.UserID, GoalMl: goal})
	if err != nil && !command.IsPartial(err) {
		return h.failure(err, h.p.InvalidGoal())
	}

	resp := &Response{Reply: h.p.GoalUpdated(res.User.DailyGoalMl)}
	if !res.Persisted {
		resp.Announcements = append(resp.Announcements, h.p.NotSaved())
	}
	return resp, nil
}

func (h *WaterHandler) reset(ctx context.Context, req Request) (*Response, error) {
	res, err := h.deps.ResetToday.Handle(ctx, command.ResetTodayCommand{UserID: req.UserID})
	if err != nil && !command.IsPartial(err) {
		return h.failure(err, h.p.InternalError())
	}

	resp := &Response{Reply: h.p.Reset()}
	if !res.Persisted {
		resp.Announcements = append(resp.Announcements, h.p.NotSaved())
	}
	return resp, nil
}

// failure превращает ошибку команды в ответ. Ошибки ввода и неизвестный
// пользователь отвечаются сообщением, остальное уходит наверх.
func (h *WaterHandler) failure(err error, invalid presenter.View) (*Response, error) {
	switch {
	case shared.IsValidation(err):
		return &Response{Reply: invalid, IsError: true}, nil
	case shared.IsNotFound(err):
		return &Response{Reply: h.p.Status(nil, false), IsError: true}, nil
	default:
		return nil, err
	}
}

func (h *WaterHandler) leaderboard(ctx context.Context) (*Response, error) {
	dto, err := h.deps.Leaderboard.Handle(ctx, query.GetLeaderboardQuery{})
	if err != nil {
		return nil, err
	}
	return &Response{Reply: h.p.Leaderboard(dto)}, nil
}

func (h *WaterHandler) achievements(ctx context.Context, req Request) (*Response, error) {
	dto, err := h.deps.Achievements.Handle(ctx, query.GetAchievementsQuery{UserID: req.UserID})
	if err != nil {
		return nil, err
	}
	return &Response{Reply: h.p.Achievements(dto)}, nil
}

func (h *WaterHandler) dashboard(ctx context.Context) (*Response, error) {
	var users []*hydration.UserRecord
	if h.deps.Users != nil {
		users = h.deps.Users.All()
	}

	items := make([]*query.DailyProgressDTO, 0, len(users))
	for _, u := range users {
		dto, err := h.deps.Progress.Handle(ctx, query.GetDailyProgressQuery{UserID: u.ID})
		if err != nil {
			return nil, err
		}
		items = append(items, dto)
	}
	return &Response{Reply: h.p.Dashboard(items)}, nil
}
