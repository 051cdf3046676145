// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"

	"github.com/hydromate/hydromate-bot/internal/domain/hydration"
	"github.com/hydromate/hydromate-bot/internal/domain/leaderboard"
)

// UserReader - чтение пользователей из roster. Возвращает копии.
type UserReader interface {
	Get(id string) (*hydration.UserRecord, bool)
	All() []*hydration.UserRecord
}

// LeaderboardCache - кэш рейтинга по ключу дня.
// found == false означает промах кэша.
type LeaderboardCache interface {
	Get(ctx context.Context, dayKey string) (standings []leaderboard.Standing, found bool, err error)
	Set(ctx context.Context, dayKey string, standings []leaderboard.Standing) error
}
