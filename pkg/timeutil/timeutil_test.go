package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalendar_DayKeyUsesReferenceZone(t *testing.T) {
	almaty := time.FixedZone("Asia/Almaty", 5*60*60)
	cal := NewCalendar(almaty)

	// 20:30 UTC is already the next day in UTC+5.
	at := time.Date(2024, 3, 10, 20, 30, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-11", cal.DayKey(at))
	assert.Equal(t, "2024-03-10", NewCalendar(time.UTC).DayKey(at))
}

func TestCalendar_NilLocationIsUTC(t *testing.T) {
	cal := NewCalendar(nil)
	assert.Equal(t, time.UTC, cal.Location())

	var zero Calendar
	assert.Equal(t, "2024-01-01", zero.DayKey(time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC)))
}

func TestCalendar_PreviousDayKey(t *testing.T) {
	cal := NewCalendar(time.UTC)

	tests := []struct {
		key  string
		want string
	}{
		{"2024-03-11", "2024-03-10"},
		{"2024-03-01", "2024-02-29"},
		{"2023-03-01", "2023-02-28"},
		{"2024-01-01", "2023-12-31"},
		{"not-a-date", ""},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, cal.PreviousDayKey(tt.key))
		})
	}
}

func TestCalendar_PreviousDayKeyAcrossDST(t *testing.T) {
	cal, err := LoadCalendar("Europe/Berlin")
	if err != nil {
		t.Skip("tzdata not available")
	}
	// 2024-03-31 is the spring-forward day in Berlin.
	assert.Equal(t, "2024-03-31", cal.PreviousDayKey("2024-04-01"))
	assert.Equal(t, "2024-03-30", cal.PreviousDayKey("2024-03-31"))
}

func TestLoadCalendar(t *testing.T) {
	cal, err := LoadCalendar("")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, cal.Location())

	_, err = LoadCalendar("Mars/Olympus_Mons")
	assert.Error(t, err)
}

func TestCalendar_DaysBetween(t *testing.T) {
	cal := NewCalendar(time.UTC)

	days, err := cal.DaysBetween("2024-02-27", "2024-03-02")
	require.NoError(t, err)
	assert.Equal(t, 4, days)

	_, err = cal.DaysBetween("bad", "2024-03-02")
	assert.Error(t, err)
}

func TestCalendar_StartOfDay(t *testing.T) {
	loc := time.FixedZone("UTC-3", -3*60*60)
	cal := NewCalendar(loc)

	start := cal.StartOfDay(time.Date(2024, 5, 2, 1, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, loc), start)
}
