// Package leaderboard содержит рейтинг пользователей за день.
// Рейтинг - производное представление, ничего не хранит и ничего не меняет.
package leaderboard

import (
	"fmt"
	"sort"

	"github.com/hydromate/hydromate-bot/internal/domain/hydration"
)

// Position - место в рейтинге, начиная с 1.
type Position int

// String возвращает строковое представление места.
func (p Position) String() string {
	return fmt.Sprintf("#%d", p)
}

// Medal возвращает медаль для первых трёх мест.
func (p Position) Medal() string {
	switch p {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return ""
	}
}

// Standing - строка рейтинга.
type Standing struct {
	Position   Position `json:"position"`
	UserID     string   `json:"user_id"`
	Name       string   `json:"name"`
	CurrentMl  int      `json:"current_ml"`
	GoalMl     int      `json:"goal_ml"`
	Percentage int      `json:"percentage"`
}

// Rank строит рейтинг за dayKey.
// Пользователи без воды за день исключаются. Сортировка по проценту
// по убыванию, стабильная: при равенстве сохраняется порядок users.
func Rank(users []*hydration.UserRecord, dayKey string) []Standing {
	standings := make([]Standing, 0, len(users))
	for _, u := range users {
		day, ok := u.WaterLog[dayKey]
		if !ok || day.TotalMl == 0 {
			continue
		}
		// Цель <= 0 даёт 0%, пользователь всё равно попадает в рейтинг.
		pct, _ := hydration.Percentage(day.TotalMl, u.DailyGoalMl)
		standings = append(standings, Standing{
			UserID:     u.ID,
			Name:       u.DisplayName,
			CurrentMl:  day.TotalMl,
			GoalMl:     u.DailyGoalMl,
			Percentage: pct,
		})
	}

	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].Percentage > standings[j].Percentage
	})

	for i := range standings {
		standings[i].Position = Position(i + 1)
	}
	return standings
}

// Top возвращает первые n строк (все при n <= 0).
func Top(standings []Standing, n int) []Standing {
	if n <= 0 || n >= len(standings) {
		return standings
	}
	return standings[:n]
}

// PositionOf возвращает место пользователя в рейтинге.
func PositionOf(standings []Standing, userID string) (Position, bool) {
	for _, s := range standings {
		if s.UserID == userID {
			return s.Position, true
		}
	}
	return 0, false
}
