package command

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hydromate/hydromate-bot/internal/domain/hydration"
	"github.com/hydromate/hydromate-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESET TODAY COMMAND
// Clears today's log. The streak and unlocked achievements are kept.
// ══════════════════════════════════════════════════════════════════════════════

// ResetTodayCommand identifies whose day to reset.
type ResetTodayCommand struct {
	UserID string

	// At selects the day (defaults to now if zero).
	At time.Time
}

// Validate validates the command.
func (c ResetTodayCommand) Validate() error {
	if c.UserID == "" {
		return shared.ErrInvalidUserID
	}
	return nil
}

// ResetTodayResult contains the cleared day.
type ResetTodayResult struct {
	User      *hydration.UserRecord
	DayKey    string
	Persisted bool
}

// ResetTodayHandler handles the ResetTodayCommand.
type ResetTodayHandler struct {
	roster      UserRoster
	engine      *hydration.Engine
	clock       shared.Clock
	invalidator LeaderboardInvalidator
	metrics     Metrics
	logger      *slog.Logger
}

// NewResetTodayHandler creates a new ResetTodayHandler.
func NewResetTodayHandler(deps HandlerDeps) *ResetTodayHandler {
	deps = deps.withDefaults()
	return &ResetTodayHandler{
		roster:      deps.Roster,
		engine:      deps.Engine,
		clock:       deps.Clock,
		invalidator: deps.Invalidator,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
	}
}

// Handle executes the reset command.
func (h *ResetTodayHandler) Handle(ctx context.Context, cmd ResetTodayCommand) (*ResetTodayResult, error) {
	if err := cmd.Validate(); err != nil {
		h.metrics.CommandFailed("reset_today", err)
		return nil, err
	}

	at := cmd.At
	if at.IsZero() {
		at = h.clock.Now()
	}

	var dayKey string
	user, err := h.roster.Mutate(ctx, cmd.UserID, func(u *hydration.UserRecord) error {
		dayKey = h.engine.ResetToday(u, at)
		return nil
	})
	if user == nil {
		h.metrics.CommandFailed("reset_today", err)
		return nil, fmt.Errorf("reset_today: %w", err)
	}

	if invErr := h.invalidator.Invalidate(ctx, dayKey); invErr != nil {
		h.logger.Warn("failed to invalidate leaderboard cache", "day_key", dayKey, "error", invErr)
	}
	h.logger.Info("daily log reset", "user_id", cmd.UserID, "day_key", dayKey)

	result := &ResetTodayResult{User: user, DayKey: dayKey, Persisted: err == nil}
	if err != nil {
		h.metrics.CommandFailed("reset_today", err)
		return result, fmt.Errorf("reset_today: %w", err)
	}
	return result, nil
}
