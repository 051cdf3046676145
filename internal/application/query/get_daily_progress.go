package query

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/hydromate/hydromate-bot/internal/domain/hydration"
	"github.com/hydromate/hydromate-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET DAILY PROGRESS QUERY
// Дневной прогресс пользователя: сколько выпито, цель, процент, серия
// и, по желанию, история последних дней.
// ══════════════════════════════════════════════════════════════════════════════

// GetDailyProgressQuery содержит параметры запроса дневного прогресса.
type GetDailyProgressQuery struct {
	// UserID - идентификатор пользователя.
	UserID string

	// Date - день для прогресса (пустая = сегодня).
	Date time.Time

	// HistoryDays - сколько прошлых дней включить (0 = без истории).
	HistoryDays int
}

// DayProgress - прогресс за один день истории.
type DayProgress struct {
	DayKey     string `json:"day_key"`
	CurrentMl  int    `json:"current_ml"`
	Percentage int    `json:"percentage"`
	GoalMet    bool   `json:"goal_met"`
}

// DailyProgressDTO - результат запроса.
type DailyProgressDTO struct {
	// Found == false, если пользователь неизвестен. Остальные поля пустые.
	Found bool `json:"found"`

	UserID      string `json:"user_id,omitempty"`
	DisplayName string `json:"name,omitempty"`
	DayKey      string `json:"day_key,omitempty"`

	CurrentMl   int  `json:"current_ml"`
	GoalMl      int  `json:"goal_ml"`
	RemainingMl int  `json:"remaining_ml"`
	Percentage  int  `json:"percentage"`
	GoalMet     bool `json:"goal_met"`
	NoGoalSet   bool `json:"no_goal_set,omitempty"`

	StreakDays int               `json:"streak_days"`
	Entries    []hydration.Entry `json:"entries,omitempty"`

	// History - прошлые дни от новых к старым.
	History []DayProgress `json:"history,omitempty"`
}

// GetDailyProgressHandler обрабатывает запрос прогресса.
type GetDailyProgressHandler struct {
	users  UserReader
	engine *hydration.Engine
	clock  shared.Clock
}

// NewGetDailyProgressHandler создаёт обработчик.
func NewGetDailyProgressHandler(users UserReader, engine *hydration.Engine, clock shared.Clock) *GetDailyProgressHandler {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &GetDailyProgressHandler{users: users, engine: engine, clock: clock}
}

// Handle выполняет запрос. Неизвестный пользователь - не ошибка, а Found == false.
func (h *GetDailyProgressHandler) Handle(ctx context.Context, q GetDailyProgressQuery) (*DailyProgressDTO, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	user, ok := h.users.Get(q.UserID)
	if !ok {
		return &DailyProgressDTO{Found: false}, nil
	}

	date := q.Date
	if date.IsZero() {
		date = h.clock.Now()
	}
	dayKey := h.engine.DayKey(date)

	progress, err := h.engine.ComputeProgress(user, dayKey)
	if err != nil && !errors.Is(err, shared.ErrNoGoalSet) {
		return nil, err
	}

	dto := &DailyProgressDTO{
		Found:       true,
		UserID:      user.ID,
		DisplayName: user.DisplayName,
		DayKey:      dayKey,
		CurrentMl:   progress.CurrentMl,
		GoalMl:      progress.GoalMl,
		RemainingMl: progress.RemainingMl(),
		Percentage:  progress.Percentage,
		GoalMet:     err == nil && progress.CurrentMl >= progress.GoalMl,
		NoGoalSet:   err != nil,
		StreakDays:  user.StreakDays,
	}
	if day, ok := user.Day(dayKey); ok {
		dto.Entries = day.Entries
	}

	if q.HistoryDays > 0 {
		dto.History = h.history(user, dayKey, q.HistoryDays)
	}
	return dto, nil
}

// history собирает до n дней перед dayKey, только дни с логом.
func (h *GetDailyProgressHandler) history(user *hydration.UserRecord, dayKey string, n int) []DayProgress {
	cal := h.engine.Calendar()
	out := make([]DayProgress, 0, n)

	key := dayKey
	for i := 0; i < n; i++ {
		key = cal.PreviousDayKey(key)
		if key == "" {
			break
		}
		day, ok := user.Day(key)
		if !ok {
			continue
		}
		pct, _ := hydration.Percentage(day.TotalMl, user.DailyGoalMl)
		out = append(out, DayProgress{
			DayKey:     key,
			CurrentMl:  day.TotalMl,
			Percentage: pct,
			GoalMet:    user.DailyGoalMl > 0 && day.TotalMl >= user.DailyGoalMl,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].DayKey > out[j].DayKey })
	return out
}
