package hydration

import (
	"strings"
	"time"

	"github.com/hydromate/hydromate-bot/internal/domain/shared"
)

// DefaultDailyGoalMl - цель нового пользователя (2 литра).
const DefaultDailyGoalMl = 2000

// Верхние границы ввода. Итог дня не может превысить MaxDayTotalMl,
// поэтому сумма и процент не переполняют int.
const (
	MaxEntryMl    = 10_000
	MaxGoalMl     = 20_000
	MaxDayTotalMl = 100_000
)

// Entry - одна запись о выпитой воде.
type Entry struct {
	At       time.Time `json:"time"`
	AmountMl int       `json:"amount"`
}

// DayLog - записи одного календарного дня.
// TotalMl всегда равен сумме Entries[].AmountMl.
type DayLog struct {
	TotalMl int     `json:"amount"`
	Entries []Entry `json:"entries"`
}

func (d *DayLog) append(e Entry) {
	d.Entries = append(d.Entries, e)
	d.TotalMl += e.AmountMl
}

// LargestEntryMl возвращает самую большую запись дня (0 для пустого дня).
func (d DayLog) LargestEntryMl() int {
	largest := 0
	for _, e := range d.Entries {
		if e.AmountMl > largest {
			largest = e.AmountMl
		}
	}
	return largest
}

func (d DayLog) clone() DayLog {
	out := DayLog{TotalMl: d.TotalMl, Entries: make([]Entry, len(d.Entries))}
	copy(out.Entries, d.Entries)
	return out
}

// UserRecord - отслеживаемый пользователь с полной историей воды.
type UserRecord struct {
	ID             string            `json:"id"`
	DisplayName    string            `json:"name"`
	DailyGoalMl    int               `json:"dailyGoal"`
	StreakDays     int               `json:"streakDays"`
	WaterLog       map[string]DayLog `json:"waterLog"`
	LastRemindedAt time.Time         `json:"lastReminded"`

	// UnlockedAchievements - полученные достижения в порядке получения.
	// Множество только растёт.
	UnlockedAchievements []string `json:"achievements,omitempty"`

	// LastStreakDay - ключ дня последнего изменения серии.
	LastStreakDay string `json:"lastStreakDay,omitempty"`
}

// NewUserRecord создаёт пользователя с целью по умолчанию и пустым логом
// на текущий день.
func NewUserRecord(id, name string, now time.Time, cal Calendar) (*UserRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, shared.ErrInvalidUserID
	}
	if name == "" {
		name = id
	}

	return &UserRecord{
		ID:             id,
		DisplayName:    name,
		DailyGoalMl:    DefaultDailyGoalMl,
		StreakDays:     0,
		WaterLog:       map[string]DayLog{cal.DayKey(now): {Entries: []Entry{}}},
		LastRemindedAt: now,
	}, nil
}

// Day возвращает DayLog по ключу дня.
func (u *UserRecord) Day(key string) (DayLog, bool) {
	day, ok := u.WaterLog[key]
	return day, ok
}

// HasUnlocked проверяет, получено ли достижение.
func (u *UserRecord) HasUnlocked(id string) bool {
	for _, unlocked := range u.UnlockedAchievements {
		if unlocked == id {
			return true
		}
	}
	return false
}

// Unlock добавляет достижение. Возвращает false, если оно уже было получено.
func (u *UserRecord) Unlock(id string) bool {
	if u.HasUnlocked(id) {
		return false
	}
	u.UnlockedAchievements = append(u.UnlockedAchievements, id)
	return true
}

// EverLogged возвращает true, если хотя бы в одном дне есть вода.
func (u *UserRecord) EverLogged() bool {
	for _, day := range u.WaterLog {
		if day.TotalMl > 0 {
			return true
		}
	}
	return false
}

// LargestEntryMl возвращает самую большую запись за всю историю.
func (u *UserRecord) LargestEntryMl() int {
	largest := 0
	for _, day := range u.WaterLog {
		if l := day.LargestEntryMl(); l > largest {
			largest = l
		}
	}
	return largest
}

// Normalize приводит запись из хранилища в порядок: создаёт пустые карты
// и пересчитывает TotalMl каждого дня по записям.
func (u *UserRecord) Normalize() {
	if u.WaterLog == nil {
		u.WaterLog = make(map[string]DayLog)
	}
	for key, day := range u.WaterLog {
		total := 0
		for _, e := range day.Entries {
			total += e.AmountMl
		}
		if day.Entries == nil {
			day.Entries = []Entry{}
		}
		day.TotalMl = total
		u.WaterLog[key] = day
	}
	if u.StreakDays < 0 {
		u.StreakDays = 0
	}
}

// Clone возвращает глубокую копию записи.
func (u *UserRecord) Clone() *UserRecord {
	if u == nil {
		return nil
	}
	out := *u
	out.WaterLog = make(map[string]DayLog, len(u.WaterLog))
	for key, day := range u.WaterLog {
		out.WaterLog[key] = day.clone()
	}
	if u.UnlockedAchievements != nil {
		out.UnlockedAchievements = append([]string(nil), u.UnlockedAchievements...)
	}
	return &out
}
