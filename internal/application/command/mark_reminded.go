package command

import (
	"context"
	"fmt"
	"time"

	"github.com/hydromate/hydromate-bot/internal/domain/hydration"
	"github.com/hydromate/hydromate-bot/internal/domain/reminder"
	"github.com/hydromate/hydromate-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// MARK REMINDED COMMAND
// Records that a reminder was delivered. Called by the reminder job only
// after the message was sent successfully.
// ══════════════════════════════════════════════════════════════════════════════

// MarkRemindedCommand contains the delivery time.
type MarkRemindedCommand struct {
	UserID string
	At     time.Time
}

// Validate validates the command.
func (c MarkRemindedCommand) Validate() error {
	if c.UserID == "" {
		return shared.ErrInvalidUserID
	}
	return nil
}

// MarkRemindedHandler handles the MarkRemindedCommand.
type MarkRemindedHandler struct {
	roster  UserRoster
	clock   shared.Clock
	metrics Metrics
}

// NewMarkRemindedHandler creates a new MarkRemindedHandler.
func NewMarkRemindedHandler(deps HandlerDeps) *MarkRemindedHandler {
	deps = deps.withDefaults()
	return &MarkRemindedHandler{roster: deps.Roster, clock: deps.Clock, metrics: deps.Metrics}
}

// Handle executes the command.
func (h *MarkRemindedHandler) Handle(ctx context.Context, cmd MarkRemindedCommand) (*hydration.UserRecord, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	at := cmd.At
	if at.IsZero() {
		at = h.clock.Now()
	}

	user, err := h.roster.Mutate(ctx, cmd.UserID, func(u *hydration.UserRecord) error {
		reminder.MarkReminded(u, at)
		return nil
	})
	if err != nil {
		h.metrics.CommandFailed("mark_reminded", err)
		return user, fmt.Errorf("mark_reminded: %w", err)
	}
	return user, nil
}
