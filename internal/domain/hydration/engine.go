package hydration

import (
	"math/bits"
	"time"

	"github.com/hydromate/hydromate-bot/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// CALENDAR & POLICY
// ═══════════════════════════════════════════════════════════════════════════

// Calendar переводит время в ключ дня фиксированной опорной таймзоны.
type Calendar interface {
	DayKey(t time.Time) string
	PreviousDayKey(key string) string
}

// StreakPolicy выбирает правила серии. Нулевое значение повторяет
// исходное поведение бота.
type StreakPolicy struct {
	// StrictOncePerDay - не больше одного изменения серии за день.
	StrictOncePerDay bool

	// ResetOnMissedDay - серия начинается заново с 1, если вчера цель
	// не выполнена.
	ResetOnMissedDay bool
}

// ═══════════════════════════════════════════════════════════════════════════
// RESULTS
// ═══════════════════════════════════════════════════════════════════════════

// AppendResult - результат одного вызова AppendEntry.
type AppendResult struct {
	DayKey      string
	Day         DayLog
	StreakDelta int
}

// GoalReached проверяет, достигнута ли цель за день.
func (r AppendResult) GoalReached(goalMl int) bool {
	return goalMl > 0 && r.Day.TotalMl >= goalMl
}

// Progress - дневной прогресс к цели.
type Progress struct {
	DayKey     string
	CurrentMl  int
	GoalMl     int
	Percentage int
}

// RemainingMl возвращает, сколько осталось до цели (не меньше 0).
func (p Progress) RemainingMl() int {
	if p.CurrentMl >= p.GoalMl {
		return 0
	}
	return p.GoalMl - p.CurrentMl
}

// ═══════════════════════════════════════════════════════════════════════════
// ENGINE
// ═══════════════════════════════════════════════════════════════════════════

// Engine изменяет UserRecord. Состояния пользователей не хранит,
// доступ к одной записи сериализует вызывающий код.
type Engine struct {
	calendar Calendar
	policy   StreakPolicy
}

// NewEngine создаёт движок с заданным календарём.
func NewEngine(calendar Calendar, policy StreakPolicy) *Engine {
	return &Engine{calendar: calendar, policy: policy}
}

// Calendar возвращает календарь движка.
func (e *Engine) Calendar() Calendar {
	return e.calendar
}

// Policy возвращает текущую политику серий.
func (e *Engine) Policy() StreakPolicy {
	return e.policy
}

// DayKey - сокращение для Calendar().DayKey(t).
func (e *Engine) DayKey(t time.Time) string {
	return e.calendar.DayKey(t)
}

// AppendEntry добавляет запись amountMl на момент at и пересчитывает серию.
func (e *Engine) AppendEntry(user *UserRecord, amountMl int, at time.Time) (AppendResult, error) {
	if amountMl <= 0 || amountMl > MaxEntryMl {
		return AppendResult{}, shared.ErrInvalidAmount
	}
	if user.WaterLog == nil {
		user.WaterLog = make(map[string]DayLog)
	}

	key := e.calendar.DayKey(at)
	day, ok := user.WaterLog[key]
	if !ok {
		day = DayLog{Entries: []Entry{}}
	}
	if day.TotalMl > MaxDayTotalMl-amountMl {
		return AppendResult{}, shared.ErrInvalidAmount
	}
	day.append(Entry{At: at, AmountMl: amountMl})
	user.WaterLog[key] = day

	before := user.StreakDays
	e.evaluateStreak(user, key)

	return AppendResult{
		DayKey:      key,
		Day:         day.clone(),
		StreakDelta: user.StreakDays - before,
	}, nil
}

// evaluateStreak выполняет один шаг серии для сегодняшнего дня.
func (e *Engine) evaluateStreak(user *UserRecord, today string) {
	goal := user.DailyGoalMl
	if goal <= 0 || user.WaterLog[today].TotalMl < goal {
		return
	}
	if e.policy.StrictOncePerDay && user.LastStreakDay == today {
		return
	}

	before := user.StreakDays
	yesterday, hasYesterday := user.WaterLog[e.calendar.PreviousDayKey(today)]

	switch {
	case hasYesterday && yesterday.TotalMl >= goal:
		user.StreakDays++
	case !hasYesterday && (!e.policy.ResetOnMissedDay || user.StreakDays == 0):
		user.StreakDays++
	case e.policy.ResetOnMissedDay:
		user.StreakDays = 1
	}

	if user.StreakDays != before {
		user.LastStreakDay = today
	}
}

// ComputeProgress возвращает прогресс за dayKey. Отсутствующий день = 0 мл.
// При цели <= 0 возвращает ErrNoGoalSet вместе с прогрессом 0%.
func (e *Engine) ComputeProgress(user *UserRecord, dayKey string) (Progress, error) {
	p := Progress{DayKey: dayKey, GoalMl: user.DailyGoalMl}
	if day, ok := user.WaterLog[dayKey]; ok {
		p.CurrentMl = day.TotalMl
	}

	pct, err := Percentage(p.CurrentMl, p.GoalMl)
	p.Percentage = pct
	return p, err
}

// Percentage возвращает floor(min(100, current*100/goal)) без переполнения
// для любых неотрицательных значений.
func Percentage(currentMl, goalMl int) (int, error) {
	if goalMl <= 0 {
		return 0, shared.ErrNoGoalSet
	}
	if currentMl <= 0 {
		return 0, nil
	}
	if currentMl >= goalMl {
		return 100, nil
	}
	// current < goal, значит старшее слово произведения меньше goal.
	hi, lo := bits.Mul64(uint64(currentMl), 100)
	pct, _ := bits.Div64(hi, lo, uint64(goalMl))
	return int(pct), nil
}

// SetGoal меняет дневную цель. Прошлые дни не пересчитываются.
func (e *Engine) SetGoal(user *UserRecord, goalMl int) error {
	if goalMl <= 0 || goalMl > MaxGoalMl {
		return shared.ErrInvalidGoal
	}
	user.DailyGoalMl = goalMl
	return nil
}

// ResetToday очищает DayLog дня, в который попадает at. Серия не меняется.
// Отсутствующий день не создаётся: для серии "вчера нет записи" и
// "вчера цель не выполнена" - разные случаи.
func (e *Engine) ResetToday(user *UserRecord, at time.Time) string {
	key := e.calendar.DayKey(at)
	if _, ok := user.WaterLog[key]; ok {
		user.WaterLog[key] = DayLog{TotalMl: 0, Entries: []Entry{}}
	}
	return key
}
