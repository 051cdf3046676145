package command

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hydromate/hydromate-bot/internal/domain/hydration"
	"github.com/hydromate/hydromate-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SET GOAL COMMAND
// Changes the daily goal. Past totals stay as they are; only future progress
// computations see the new goal.
// ══════════════════════════════════════════════════════════════════════════════

// SetGoalCommand contains the new daily goal.
type SetGoalCommand struct {
	UserID string
	GoalMl int
}

// Validate validates the command.
func (c SetGoalCommand) Validate() error {
	if c.UserID == "" {
		return shared.ErrInvalidUserID
	}
	if c.GoalMl <= 0 || c.GoalMl > hydration.MaxGoalMl {
		return shared.ErrInvalidGoal
	}
	return nil
}

// SetGoalResult contains the updated user and today's progress.
type SetGoalResult struct {
	User      *hydration.UserRecord
	Progress  hydration.Progress
	Persisted bool
}

// SetGoalHandler handles the SetGoalCommand.
type SetGoalHandler struct {
	roster      UserRoster
	engine      *hydration.Engine
	clock       shared.Clock
	invalidator LeaderboardInvalidator
	metrics     Metrics
	logger      *slog.Logger
}

// NewSetGoalHandler creates a new SetGoalHandler.
func NewSetGoalHandler(deps HandlerDeps) *SetGoalHandler {
	deps = deps.withDefaults()
	return &SetGoalHandler{
		roster:      deps.Roster,
		engine:      deps.Engine,
		clock:       deps.Clock,
		invalidator: deps.Invalidator,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
	}
}

// Handle executes the set goal command.
func (h *SetGoalHandler) Handle(ctx context.Context, cmd SetGoalCommand) (*SetGoalResult, error) {
	if err := cmd.Validate(); err != nil {
		h.metrics.CommandFailed("set_goal", err)
		return nil, err
	}

	dayKey := h.engine.DayKey(h.clock.Now())
	user, err := h.roster.Mutate(ctx, cmd.UserID, func(u *hydration.UserRecord) error {
		return h.engine.SetGoal(u, cmd.GoalMl)
	})
	if user == nil {
		h.metrics.CommandFailed("set_goal", err)
		return nil, fmt.Errorf("set_goal: %w", err)
	}

	progress, _ := h.engine.ComputeProgress(user, dayKey)
	result := &SetGoalResult{User: user, Progress: progress, Persisted: err == nil}

	if invErr := h.invalidator.Invalidate(ctx, dayKey); invErr != nil {
		h.logger.Warn("failed to invalidate leaderboard cache", "day_key", dayKey, "error", invErr)
	}

	h.logger.Info("daily goal updated", "user_id", cmd.UserID, "goal_ml", cmd.GoalMl)

	if err != nil {
		h.metrics.CommandFailed("set_goal", err)
		return result, fmt.Errorf("set_goal: %w", err)
	}
	return result, nil
}
