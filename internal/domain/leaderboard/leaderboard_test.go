package leaderboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydromate/hydromate-bot/internal/domain/hydration"
)

const key = "2024-05-01"

func user(id string, current, goal int) *hydration.UserRecord {
	u := &hydration.UserRecord{
		ID:          id,
		DisplayName: id,
		DailyGoalMl: goal,
		WaterLog:    map[string]hydration.DayLog{},
	}
	if current > 0 {
		u.WaterLog[key] = hydration.DayLog{
			TotalMl: current,
			Entries: []hydration.Entry{{AmountMl: current}},
		}
	}
	return u
}

func TestRank_ExcludesZeroAndSortsByPercentage(t *testing.T) {
	users := []*hydration.UserRecord{
		user("A", 1500, 2000),
		user("B", 0, 2000),
		user("C", 2000, 1000),
	}

	got := Rank(users, key)
	require.Len(t, got, 2)

	assert.Equal(t, "C", got[0].UserID)
	assert.Equal(t, 100, got[0].Percentage)
	assert.Equal(t, Position(1), got[0].Position)

	assert.Equal(t, "A", got[1].UserID)
	assert.Equal(t, 75, got[1].Percentage)
	assert.Equal(t, 1500, got[1].CurrentMl)
	assert.Equal(t, Position(2), got[1].Position)
}

func TestRank_StableOnTies(t *testing.T) {
	users := []*hydration.UserRecord{
		user("first", 1000, 2000),
		user("top", 2000, 2000),
		user("second", 500, 1000),
		user("third", 1500, 3000),
	}

	got := Rank(users, key)
	require.Len(t, got, 4)
	assert.Equal(t, "top", got[0].UserID)
	assert.Equal(t, "first", got[1].UserID)
	assert.Equal(t, "second", got[2].UserID)
	assert.Equal(t, "third", got[3].UserID)
}

func TestRank_OtherDayAndEmpty(t *testing.T) {
	users := []*hydration.UserRecord{user("A", 1500, 2000)}
	assert.Empty(t, Rank(users, "2024-05-02"))
	assert.Empty(t, Rank(nil, key))
}

func TestRank_ZeroGoalStillListed(t *testing.T) {
	got := Rank([]*hydration.UserRecord{user("A", 300, 0)}, key)
	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].Percentage)
}

func TestTopAndPositionOf(t *testing.T) {
	users := []*hydration.UserRecord{
		user("A", 100, 1000),
		user("B", 200, 1000),
		user("C", 300, 1000),
	}
	got := Rank(users, key)

	assert.Len(t, Top(got, 2), 2)
	assert.Len(t, Top(got, 0), 3)
	assert.Len(t, Top(got, 10), 3)

	pos, ok := PositionOf(got, "A")
	require.True(t, ok)
	assert.Equal(t, Position(3), pos)
	assert.Equal(t, "#3", pos.String())
	assert.Equal(t, "🥉", pos.Medal())
	assert.Equal(t, "", Position(4).Medal())

	_, ok = PositionOf(got, "Z")
	assert.False(t, ok)
}
