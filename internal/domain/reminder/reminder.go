// Package reminder решает, пора ли напоминать пользователю о воде.
// Доставка напоминаний находится вне домена (scheduler/jobs).
package reminder

import (
	"time"

	"github.com/hydromate/hydromate-bot/internal/domain/hydration"
)

// DefaultInterval - минимальный интервал между напоминаниями (1.5 часа).
const DefaultInterval = 90 * time.Minute

// ShouldRemind возвращает true, если с последнего напоминания прошло
// строго больше minInterval. Чистая функция.
func ShouldRemind(user *hydration.UserRecord, now time.Time, minInterval time.Duration) bool {
	return now.Sub(user.LastRemindedAt) > minInterval
}

// MarkReminded фиксирует время напоминания.
// Вызывается только после успешной отправки.
func MarkReminded(user *hydration.UserRecord, now time.Time) {
	user.LastRemindedAt = now
}

// NextAllowedAt возвращает момент, после которого напоминание разрешено.
func NextAllowedAt(user *hydration.UserRecord, minInterval time.Duration) time.Time {
	return user.LastRemindedAt.Add(minInterval)
}
