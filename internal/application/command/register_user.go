package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/hydromate/hydromate-bot/internal/domain/hydration"
	"github.com/hydromate/hydromate-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER USER COMMAND
// Users are created on their first interaction with the bot and at startup
// for the configured reminder list. Registering an existing user is a no-op.
// ══════════════════════════════════════════════════════════════════════════════

// RegisterUserCommand contains the identity of the user.
type RegisterUserCommand struct {
	UserID      string
	DisplayName string
}

// Validate validates the command.
func (c RegisterUserCommand) Validate() error {
	if strings.TrimSpace(c.UserID) == "" {
		return shared.ErrInvalidUserID
	}
	return nil
}

// RegisterUserResult contains the user and whether it was just created.
type RegisterUserResult struct {
	User    *hydration.UserRecord
	Created bool
}

// RegisterUserHandler handles the RegisterUserCommand.
type RegisterUserHandler struct {
	roster  UserRoster
	metrics Metrics
}

// NewRegisterUserHandler creates a new RegisterUserHandler.
func NewRegisterUserHandler(deps HandlerDeps) *RegisterUserHandler {
	deps = deps.withDefaults()
	return &RegisterUserHandler{roster: deps.Roster, metrics: deps.Metrics}
}

// Handle executes the register command.
func (h *RegisterUserHandler) Handle(ctx context.Context, cmd RegisterUserCommand) (*RegisterUserResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	if u, ok := h.roster.Get(cmd.UserID); ok {
		return &RegisterUserResult{User: u}, nil
	}

	user, created, err := h.roster.EnsureUser(ctx, cmd.UserID, cmd.DisplayName)
	if user == nil {
		h.metrics.CommandFailed("register_user", err)
		return nil, fmt.Errorf("register_user: %w", err)
	}

	result := &RegisterUserResult{User: user, Created: created}
	if err != nil {
		h.metrics.CommandFailed("register_user", err)
		return result, fmt.Errorf("register_user: %w", err)
	}
	return result, nil
}
