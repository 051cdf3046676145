package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "UTC", cfg.App.Timezone)
	assert.Equal(t, time.UTC, cfg.App.Location)
	assert.Equal(t, StoreJSON, cfg.Store.Driver)
	assert.Equal(t, 2000, cfg.Tracking.DefaultGoalMl)
	assert.Equal(t, 90*time.Minute, cfg.Tracking.ReminderInterval)
	assert.Equal(t, []int{250, 500, 750, 1000}, cfg.Tracking.QuickAmounts)
	assert.False(t, cfg.Tracking.StrictStreak)
	assert.False(t, cfg.Redis.Enabled)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("APP_TIMEZONE", "Asia/Almaty")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/water")
	t.Setenv("TELEGRAM_WATER_CHAT_ID", "-100123")
	t.Setenv("TELEGRAM_REMINDER_USERS", "1:Alice, 2:Bob")
	t.Setenv("WATER_STRICT_STREAK", "true")
	t.Setenv("WATER_QUICK_AMOUNTS", "200,400")
	t.Setenv("WATER_REMINDER_INTERVAL", "45m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Asia/Almaty", cfg.App.Location.String())
	assert.Equal(t, StorePostgres, cfg.Store.Driver)
	assert.Equal(t, int64(-100123), cfg.Telegram.WaterChatID)
	assert.Equal(t, []string{"1", "2"}, cfg.ReminderUserIDs())
	assert.Equal(t, "Bob", cfg.Telegram.ReminderUsers[1].Name)
	assert.True(t, cfg.Tracking.StrictStreak)
	assert.Equal(t, []int{200, 400}, cfg.Tracking.QuickAmounts)
	assert.Equal(t, 45*time.Minute, cfg.Tracking.ReminderInterval)
}

func TestLoad_CollectsValidationErrors(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("APP_TIMEZONE", "Mars/Olympus")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("WATER_QUICK_AMOUNTS", "250,lots")

	_, err := Load()
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "TELEGRAM_BOT_TOKEN is required")
	assert.Contains(t, msg, "Mars/Olympus")
	assert.Contains(t, msg, "STORE_DRIVER")
	assert.Contains(t, msg, "WATER_QUICK_AMOUNTS")
}

func TestLoad_ReminderUsersNeedChat(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_REMINDER_USERS", "1:Alice")
	t.Setenv("TELEGRAM_WATER_CHAT_ID", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TELEGRAM_WATER_CHAT_ID")
}

func TestParseKnownUsers(t *testing.T) {
	users, err := ParseKnownUsers(" 10:Ann ,20, 10:Dup ,")
	require.NoError(t, err)
	assert.Equal(t, []KnownUser{{ID: "10", Name: "Ann"}, {ID: "20", Name: "20"}}, users)

	_, err = ParseKnownUsers("abc:Ann")
	assert.Error(t, err)

	users, err = ParseKnownUsers("")
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"debug", false},
		{"INFO", false},
		{"warning", false},
		{"error", false},
		{"verbose", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := ParseLogLevel(tt.in)
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
}
