package reminder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hydromate/hydromate-bot/internal/domain/hydration"
	"github.com/hydromate/hydromate-bot/internal/domain/shared"
)

func TestShouldRemind_Gate(t *testing.T) {
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	clock := shared.ClockFunc(func() time.Time { return now })
	u := &hydration.UserRecord{ID: "1"}

	MarkReminded(u, clock.Now())
	assert.False(t, ShouldRemind(u, clock.Now(), DefaultInterval))

	now = now.Add(DefaultInterval)
	assert.False(t, ShouldRemind(u, clock.Now(), DefaultInterval), "exactly the interval is not enough")

	now = now.Add(time.Second)
	assert.True(t, ShouldRemind(u, clock.Now(), DefaultInterval))

	MarkReminded(u, clock.Now())
	assert.False(t, ShouldRemind(u, clock.Now(), DefaultInterval))
}

func TestShouldRemind_ZeroLastReminded(t *testing.T) {
	u := &hydration.UserRecord{ID: "1"}
	assert.True(t, ShouldRemind(u, time.Now(), DefaultInterval))
}

func TestShouldRemind_CustomInterval(t *testing.T) {
	last := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	u := &hydration.UserRecord{ID: "1", LastRemindedAt: last}

	assert.True(t, ShouldRemind(u, last.Add(31*time.Minute), 30*time.Minute))
	assert.False(t, ShouldRemind(u, last.Add(29*time.Minute), 30*time.Minute))
	assert.Equal(t, last.Add(30*time.Minute), NextAllowedAt(u, 30*time.Minute))
}
