// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"

	"github.com/hydromate/hydromate-bot/internal/application/roster"
	"github.com/hydromate/hydromate-bot/internal/domain/hydration"
)

// ══════════════════════════════════════════════════════════════════════════════
// PORTS
// Dependencies shared by all command handlers.
// ══════════════════════════════════════════════════════════════════════════════

// UserRoster is the part of roster.Roster the commands use.
type UserRoster interface {
	Get(id string) (*hydration.UserRecord, bool)
	EnsureUser(ctx context.Context, id, name string) (*hydration.UserRecord, bool, error)
	Mutate(ctx context.Context, id string, fn roster.MutateFunc) (*hydration.UserRecord, error)
}

// LeaderboardInvalidator drops cached rankings of a day after a mutation.
type LeaderboardInvalidator interface {
	Invalidate(ctx context.Context, dayKey string) error
}

// Metrics records command outcomes.
type Metrics interface {
	WaterLogged(source string, amountMl int)
	AchievementUnlocked(id string)
	CommandFailed(command string, err error)
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(context.Context, string) error { return nil }

type noopMetrics struct{}

func (noopMetrics) WaterLogged(string, int)     {}
func (noopMetrics) AchievementUnlocked(string)  {}
func (noopMetrics) CommandFailed(string, error) {}
