// Package achievement содержит движок достижений HydroMate.
//
// Достижения описываются данными: каждое имеет Criterion (вид условия и порог),
// который проверяет диспетчер Satisfied. Полученные достижения хранятся
// в UserRecord.UnlockedAchievements и сохраняются вместе с пользователем.
package achievement

import (
	"github.com/hydromate/hydromate-bot/internal/domain/hydration"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// ID - идентификатор достижения.
type ID string

const (
	// FirstGlass - первая запись воды.
	FirstGlass ID = "first_glass"
	// DailyGoal - дневная цель выполнена.
	DailyGoal ID = "daily_goal"
	// Streak3 - серия 3 дня.
	Streak3 ID = "streak_3"
	// Streak7 - серия 7 дней.
	Streak7 ID = "streak_7"
	// BigGulp - одна запись от 500 мл.
	BigGulp ID = "big_gulp"
)

// CriterionKind - вид условия достижения.
type CriterionKind string

const (
	// KindEverLogged - хоть раз залогировано больше Threshold мл за день.
	KindEverLogged CriterionKind = "ever_logged"
	// KindDailyGoalMet - сегодня выпито не меньше цели.
	KindDailyGoalMet CriterionKind = "daily_goal_met"
	// KindStreakAtLeast - серия не меньше Threshold дней.
	KindStreakAtLeast CriterionKind = "streak_at_least"
	// KindSingleEntryAtLeast - одна запись не меньше Threshold мл.
	KindSingleEntryAtLeast CriterionKind = "single_entry_at_least"
)

// Criterion - условие получения достижения.
type Criterion struct {
	Kind      CriterionKind `json:"kind"`
	Threshold int           `json:"threshold,omitempty"`
}

// Achievement описывает достижение каталога.
type Achievement struct {
	ID          ID        `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	Criterion   Criterion `json:"criterion"`
}

// Catalog - упорядоченный список достижений.
type Catalog []Achievement

// DefaultCatalog возвращает стандартный каталог достижений.
func DefaultCatalog() Catalog {
	return Catalog{
		{FirstGlass, "First Sip", "Log your first glass of water", "🥤", Criterion{Kind: KindEverLogged}},
		{DailyGoal, "Goal Crusher", "Reach your daily water goal", "🏆", Criterion{Kind: KindDailyGoalMet}},
		{Streak3, "Hydration Streak", "Meet your daily water goal for 3 days in a row", "🔥", Criterion{Kind: KindStreakAtLeast, Threshold: 3}},
		{Streak7, "Hydration Master", "Meet your daily water goal for 7 days in a row", "💯", Criterion{Kind: KindStreakAtLeast, Threshold: 7}},
		{BigGulp, "Big Gulp", "Drink at least 500ml of water in one go", "🐳", Criterion{Kind: KindSingleEntryAtLeast, Threshold: 500}},
	}
}

// Find возвращает достижение по ID.
func (c Catalog) Find(id ID) (Achievement, bool) {
	for _, a := range c {
		if a.ID == id {
			return a, true
		}
	}
	return Achievement{}, false
}

// ══════════════════════════════════════════════════════════════════════════════
// EVALUATION
// ══════════════════════════════════════════════════════════════════════════════

// Satisfied проверяет условие для пользователя на день dayKey.
// Чистая функция: запись не изменяется.
func Satisfied(c Criterion, user *hydration.UserRecord, dayKey string) bool {
	switch c.Kind {
	case KindEverLogged:
		for _, day := range user.WaterLog {
			if day.TotalMl > c.Threshold {
				return true
			}
		}
		return false
	case KindDailyGoalMet:
		if user.DailyGoalMl <= 0 {
			return false
		}
		day, ok := user.WaterLog[dayKey]
		return ok && day.TotalMl >= user.DailyGoalMl
	case KindStreakAtLeast:
		return user.StreakDays >= c.Threshold
	case KindSingleEntryAtLeast:
		return user.LargestEntryMl() >= c.Threshold
	default:
		return false
	}
}

// Evaluate возвращает новые достижения в порядке каталога и добавляет их
// в UserRecord.UnlockedAchievements. Уже полученные достижения не проверяются
// и повторно не возвращаются.
func Evaluate(user *hydration.UserRecord, catalog Catalog, dayKey string) []Achievement {
	var unlocked []Achievement
	for _, a := range catalog {
		if user.HasUnlocked(string(a.ID)) {
			continue
		}
		if !Satisfied(a.Criterion, user, dayKey) {
			continue
		}
		user.Unlock(string(a.ID))
		unlocked = append(unlocked, a)
	}
	return unlocked
}

// Status - достижение и признак получения.
type Status struct {
	Achievement Achievement
	Unlocked    bool
}

// ListWithStatus возвращает весь каталог с отметками о получении.
// Состояние пользователя не меняется.
func ListWithStatus(user *hydration.UserRecord, catalog Catalog) []Status {
	out := make([]Status, 0, len(catalog))
	for _, a := range catalog {
		out = append(out, Status{Achievement: a, Unlocked: user.HasUnlocked(string(a.ID))})
	}
	return out
}

// UnlockedCount возвращает количество полученных достижений из списка.
func UnlockedCount(statuses []Status) int {
	n := 0
	for _, s := range statuses {
		if s.Unlocked {
			n++
		}
	}
	return n
}
