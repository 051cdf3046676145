package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hydromate/hydromate-bot/internal/domain/achievement"
	"github.com/hydromate/hydromate-bot/internal/domain/hydration"
	"github.com/hydromate/hydromate-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LOG WATER COMMAND
// Appends a drink to the user's log, re-evaluates the streak and achievements
// and persists the roster. This is the main write path of the bot.
// ══════════════════════════════════════════════════════════════════════════════

// Log sources.
const (
	SourceCommand = "command"
	SourceButton  = "button"
	SourceAPI     = "api"
)

// LogWaterCommand contains the data to log a drink.
type LogWaterCommand struct {
	// UserID is the opaque user id (Telegram user id as string).
	UserID string

	// AmountMl must be in 1..hydration.MaxEntryMl.
	AmountMl int

	// At is when the drink happened (defaults to now if zero).
	At time.Time

	// Source is where the request came from (command, button, api).
	Source string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c LogWaterCommand) Validate() error {
	if c.UserID == "" {
		return shared.ErrInvalidUserID
	}
	if c.AmountMl <= 0 || c.AmountMl > hydration.MaxEntryMl {
		return shared.ErrInvalidAmount
	}
	return nil
}

// LogWaterResult contains the result of logging a drink.
type LogWaterResult struct {
	// User is a copy of the updated record.
	User *hydration.UserRecord

	// Append is the engine result (day key, day log, streak delta).
	Append hydration.AppendResult

	// Progress is today's progress after the append.
	Progress hydration.Progress

	// GoalJustReached is true when this drink moved the day over the goal.
	GoalJustReached bool

	// Unlocked contains achievements unlocked by this drink.
	Unlocked []achievement.Achievement

	// Persisted is false when the store write failed (memory is updated).
	Persisted bool
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// LogWaterHandler handles the LogWaterCommand.
type LogWaterHandler struct {
	roster      UserRoster
	engine      *hydration.Engine
	catalog     achievement.Catalog
	clock       shared.Clock
	invalidator LeaderboardInvalidator
	metrics     Metrics
	logger      *slog.Logger
}

// HandlerDeps contains the collaborators shared by the water-log handlers.
type HandlerDeps struct {
	Roster      UserRoster
	Engine      *hydration.Engine
	Catalog     achievement.Catalog
	Clock       shared.Clock
	Invalidator LeaderboardInvalidator
	Metrics     Metrics
	Logger      *slog.Logger
}

func (d HandlerDeps) withDefaults() HandlerDeps {
	if d.Catalog == nil {
		d.Catalog = achievement.DefaultCatalog()
	}
	if d.Clock == nil {
		d.Clock = shared.SystemClock{}
	}
	if d.Invalidator == nil {
		d.Invalidator = noopInvalidator{}
	}
	if d.Metrics == nil {
		d.Metrics = noopMetrics{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return d
}

// NewLogWaterHandler creates a new LogWaterHandler.
func NewLogWaterHandler(deps HandlerDeps) *LogWaterHandler {
	deps = deps.withDefaults()
	return &LogWaterHandler{
		roster:      deps.Roster,
		engine:      deps.Engine,
		catalog:     deps.Catalog,
		clock:       deps.Clock,
		invalidator: deps.Invalidator,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
	}
}

// Handle executes the log water command.
func (h *LogWaterHandler) Handle(ctx context.Context, cmd LogWaterCommand) (*LogWaterResult, error) {
	if err := cmd.Validate(); err != nil {
		h.metrics.CommandFailed("log_water", err)
		return nil, err
	}

	at := cmd.At
	if at.IsZero() {
		at = h.clock.Now()
	}
	if cmd.Source == "" {
		cmd.Source = SourceCommand
	}

	result := &LogWaterResult{}
	user, err := h.roster.Mutate(ctx, cmd.UserID, func(u *hydration.UserRecord) error {
		before, _ := u.Day(h.engine.DayKey(at))

		appended, err := h.engine.AppendEntry(u, cmd.AmountMl, at)
		if err != nil {
			return err
		}
		result.Append = appended
		result.GoalJustReached = before.TotalMl < u.DailyGoalMl && appended.GoalReached(u.DailyGoalMl)
		result.Unlocked = achievement.Evaluate(u, h.catalog, appended.DayKey)

		// A legacy record without a goal still gets its entry logged.
		result.Progress, _ = h.engine.ComputeProgress(u, appended.DayKey)
		return nil
	})
	if user == nil {
		h.metrics.CommandFailed("log_water", err)
		return nil, fmt.Errorf("log_water: %w", err)
	}

	result.User = user
	result.Persisted = err == nil

	h.metrics.WaterLogged(cmd.Source, cmd.AmountMl)
	for _, a := range result.Unlocked {
		h.metrics.AchievementUnlocked(string(a.ID))
	}

	if invErr := h.invalidator.Invalidate(ctx, result.Append.DayKey); invErr != nil {
		h.logger.Warn("failed to invalidate leaderboard cache",
			"day_key", result.Append.DayKey,
			"error", invErr,
		)
	}

	h.logger.Info("water logged",
		"user_id", cmd.UserID,
		"amount_ml", cmd.AmountMl,
		"day_key", result.Append.DayKey,
		"total_ml", result.Progress.CurrentMl,
		"streak_days", user.StreakDays,
		"unlocked", len(result.Unlocked),
		"source", cmd.Source,
		"correlation_id", cmd.CorrelationID,
	)

	if err != nil {
		h.metrics.CommandFailed("log_water", err)
		return result, fmt.Errorf("log_water: %w", err)
	}
	return result, nil
}

// IsPartial reports whether err came with a usable result
// (the change is applied in memory but was not persisted).
func IsPartial(err error) bool {
	return errors.Is(err, shared.ErrPersistence)
}
