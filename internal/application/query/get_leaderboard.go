package query

import (
	"context"
	"log/slog"
	"time"

	"github.com/hydromate/hydromate-bot/internal/domain/hydration"
	"github.com/hydromate/hydromate-bot/internal/domain/leaderboard"
	"github.com/hydromate/hydromate-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Рейтинг за день по проценту выполнения цели. Результат кэшируется
// (Redis), кэш сбрасывают команды, меняющие данные дня.
// ══════════════════════════════════════════════════════════════════════════════

// GetLeaderboardQuery содержит параметры запроса рейтинга.
type GetLeaderboardQuery struct {
	// Date - день рейтинга (пустая = сегодня).
	Date time.Time

	// Limit - максимум строк (0 = все).
	Limit int
}

// LeaderboardDTO - результат запроса.
type LeaderboardDTO struct {
	DayKey    string                 `json:"day_key"`
	Standings []leaderboard.Standing `json:"standings"`
	Total     int                    `json:"total"`
	FromCache bool                   `json:"from_cache"`
}

// GetLeaderboardHandler обрабатывает запрос рейтинга.
type GetLeaderboardHandler struct {
	users  UserReader
	engine *hydration.Engine
	clock  shared.Clock
	cache  LeaderboardCache
	logger *slog.Logger
}

// NewGetLeaderboardHandler создаёт обработчик. cache может быть nil.
func NewGetLeaderboardHandler(
	users UserReader,
	engine *hydration.Engine,
	clock shared.Clock,
	cache LeaderboardCache,
	logger *slog.Logger,
) *GetLeaderboardHandler {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GetLeaderboardHandler{users: users, engine: engine, clock: clock, cache: cache, logger: logger}
}

// Handle выполняет запрос.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, q GetLeaderboardQuery) (*LeaderboardDTO, error) {
	date := q.Date
	if date.IsZero() {
		date = h.clock.Now()
	}
	dayKey := h.engine.DayKey(date)

	dto := &LeaderboardDTO{DayKey: dayKey}

	// Ошибки кэша не ломают запрос, рейтинг считается заново.
	if h.cache != nil {
		standings, found, err := h.cache.Get(ctx, dayKey)
		switch {
		case err != nil:
			h.logger.Warn("leaderboard cache read failed", "day_key", dayKey, "error", err)
		case found:
			dto.Standings = standings
			dto.FromCache = true
		}
	}

	if !dto.FromCache {
		dto.Standings = leaderboard.Rank(h.users.All(), dayKey)
		if h.cache != nil {
			if err := h.cache.Set(ctx, dayKey, dto.Standings); err != nil {
				h.logger.Warn("leaderboard cache write failed", "day_key", dayKey, "error", err)
			}
		}
	}

	dto.Total = len(dto.Standings)
	dto.Standings = leaderboard.Top(dto.Standings, q.Limit)
	return dto, nil
}
