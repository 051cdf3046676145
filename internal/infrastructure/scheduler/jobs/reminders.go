// Package jobs contains the scheduled jobs of HydroMate.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/hydromate/hydromate-bot/internal/application/command"
	"github.com/hydromate/hydromate-bot/internal/domain/hydration"
	"github.com/hydromate/hydromate-bot/internal/domain/reminder"
	"github.com/hydromate/hydromate-bot/internal/domain/shared"
	"github.com/hydromate/hydromate-bot/internal/infrastructure/scheduler"
)

// ══════════════════════════════════════════════════════════════════════════════
// PORTS
// ══════════════════════════════════════════════════════════════════════════════

// UserReader returns a copy of a user record.
type UserReader interface {
	Get(id string) (*hydration.UserRecord, bool)
}

// ReminderMarker records a delivered reminder.
type ReminderMarker interface {
	Handle(ctx context.Context, cmd command.MarkRemindedCommand) (*hydration.UserRecord, error)
}

// ReminderSender delivers a reminder to the chat.
type ReminderSender interface {
	SendReminder(ctx context.Context, user *hydration.UserRecord, progress hydration.Progress) error
}

// OutcomeRecorder counts reminder decisions. Optional.
type OutcomeRecorder interface {
	ReminderOutcome(outcome string)
}

// Reminder outcomes.
const (
	OutcomeSent    = "sent"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
	OutcomeUnknown = "unknown_user"
)

// ══════════════════════════════════════════════════════════════════════════════
// WATER REMINDERS JOB
// ══════════════════════════════════════════════════════════════════════════════

// WaterRemindersJob reminds every configured user whose reminder gate is open.
// The last-reminded time is updated only after a successful send.
type WaterRemindersJob struct {
	users    UserReader
	engine   *hydration.Engine
	sender   ReminderSender
	marker   ReminderMarker
	clock    shared.Clock
	recorder OutcomeRecorder
	logger   *slog.Logger
	config   WaterRemindersConfig

	lastStats atomic.Pointer[ReminderStats]
}

// WaterRemindersConfig contains configuration for the reminders job.
type WaterRemindersConfig struct {
	// UserIDs are the users to remind, in order.
	UserIDs []string

	// MinInterval is the minimum time between two reminders of the same user.
	MinInterval time.Duration

	// Timeout is the maximum duration of one run.
	Timeout time.Duration
}

// DefaultWaterRemindersConfig returns sensible defaults.
func DefaultWaterRemindersConfig() WaterRemindersConfig {
	return WaterRemindersConfig{
		MinInterval: reminder.DefaultInterval,
		Timeout:     2 * time.Minute,
	}
}

// ReminderStats contains statistics from one run.
type ReminderStats struct {
	RunID   string
	Checked int
	Sent    int
	Skipped int
	Failed  int
}

// WaterRemindersDeps groups the dependencies of the job.
type WaterRemindersDeps struct {
	Users    UserReader
	Engine   *hydration.Engine
	Sender   ReminderSender
	Marker   ReminderMarker
	Clock    shared.Clock
	Recorder OutcomeRecorder
	Logger   *slog.Logger
}

// NewWaterRemindersJob creates a new reminders job.
func NewWaterRemindersJob(deps WaterRemindersDeps, config WaterRemindersConfig) *WaterRemindersJob {
	if deps.Clock == nil {
		deps.Clock = shared.SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if config.MinInterval <= 0 {
		config.MinInterval = reminder.DefaultInterval
	}

	return &WaterRemindersJob{
		users:    deps.Users,
		engine:   deps.Engine,
		sender:   deps.Sender,
		marker:   deps.Marker,
		clock:    deps.Clock,
		recorder: deps.Recorder,
		logger:   deps.Logger,
		config:   config,
	}
}

// Name returns the job name.
func (j *WaterRemindersJob) Name() string {
	return "water_reminders"
}

// Description returns a human-readable description.
func (j *WaterRemindersJob) Description() string {
	return "Reminds configured users to drink water when their reminder gate is open"
}

// LastStats returns the statistics of the last run, or nil.
func (j *WaterRemindersJob) LastStats() *ReminderStats {
	return j.lastStats.Load()
}

// Run executes the reminders job.
func (j *WaterRemindersJob) Run(ctx context.Context) error {
	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	stats := &ReminderStats{RunID: scheduler.RunIDFromContext(ctx)}
	defer j.lastStats.Store(stats)

	var errs []error
	for _, id := range j.config.UserIDs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		stats.Checked++
		outcome, err := j.remind(ctx, id)
		j.record(outcome)

		switch outcome {
		case OutcomeSent:
			stats.Sent++
		case OutcomeFailed:
			stats.Failed++
			errs = append(errs, fmt.Errorf("remind %s: %w", id, err))
		default:
			stats.Skipped++
		}
	}

	j.logger.Info("water reminders processed",
		"run_id", stats.RunID,
		"checked", stats.Checked,
		"sent", stats.Sent,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
	)

	return errors.Join(errs...)
}

// remind handles one user.
func (j *WaterRemindersJob) remind(ctx context.Context, userID string) (string, error) {
	user, ok := j.users.Get(userID)
	if !ok {
		j.logger.Warn("reminder skipped: unknown user", "user_id", userID)
		return OutcomeUnknown, nil
	}

	now := j.clock.Now()
	if !reminder.ShouldRemind(user, now, j.config.MinInterval) {
		j.logger.Debug("reminder skipped: gate closed",
			"user_id", userID,
			"next_allowed_at", reminder.NextAllowedAt(user, j.config.MinInterval).Format(time.RFC3339),
		)
		return OutcomeSkipped, nil
	}

	// NoGoalSet still yields a usable zero-percent progress.
	progress, _ := j.engine.ComputeProgress(user, j.engine.DayKey(now))

	if err := j.sender.SendReminder(ctx, user, progress); err != nil {
		j.logger.Error("failed to send reminder", "user_id", userID, "error", err)
		return OutcomeFailed, err
	}

	if _, err := j.marker.Handle(ctx, command.MarkRemindedCommand{UserID: userID, At: now}); err != nil {
		// Delivered but not persisted; memory already holds the new time.
		if shared.IsPersistence(err) {
			j.logger.Warn("reminder sent but not persisted", "user_id", userID, "error", err)
			return OutcomeSent, nil
		}
		return OutcomeFailed, err
	}

	return OutcomeSent, nil
}

func (j *WaterRemindersJob) record(outcome string) {
	if j.recorder != nil {
		j.recorder.ReminderOutcome(outcome)
	}
}
