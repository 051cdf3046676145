// Package hydration содержит доменную модель учёта воды HydroMate.
//
// Пакет определяет:
//
//   - Сущности (Entities): UserRecord, DayLog, Entry
//   - Engine: добавление записей, дневной прогресс, серии (streak)
//   - DocumentStore: интерфейс хранилища, реализуется в infrastructure
//
// # Ключ дня
//
// Каждая запись принадлежит DayLog своего календарного дня в фиксированной
// опорной таймзоне. Engine никогда не смотрит на таймзону хоста, ключи дня
// вычисляет Calendar, переданный при создании:
//
//	cal := timeutil.NewCalendar(loc)
//	engine := hydration.NewEngine(cal, hydration.StreakPolicy{})
//	res, err := engine.AppendEntry(user, 250, clock.Now())
//
// # Серии
//
// Шаг серии вычисляется один раз на каждый вызов AppendEntry, после добавления,
// и только если дневная цель достигнута. С нулевой StreakPolicy счётчик
// увеличивается на каждом таком вызове, если вчерашний день выполнил цель
// или вчерашнего лога нет совсем. Счётчик никогда не уменьшается.
// StrictOncePerDay и ResetOnMissedDay включают альтернативные правила.
package hydration
