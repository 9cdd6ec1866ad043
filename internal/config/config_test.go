package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, "Mentoring", cfg.AppName)
	assert.Equal(t, 5*time.Second, cfg.SendTimeout)
	assert.Equal(t, "0,15,30,45 * * * *", cfg.ReminderSchedule)
	assert.True(t, cfg.ReminderCronEnabled)
	assert.Equal(t, "user_devices", cfg.DynamoTables.Devices)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SEND_TIMEOUT", "1500ms")
	t.Setenv("BUS_WORKERS", "3")
	t.Setenv("REMINDER_CRON_ENABLED", "false")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg := Load()
	assert.Equal(t, 1500*time.Millisecond, cfg.SendTimeout)
	assert.Equal(t, 3, cfg.BusWorkers)
	assert.False(t, cfg.ReminderCronEnabled)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("SEND_TIMEOUT", "soon")
	t.Setenv("FANOUT_CONCURRENCY", "many")

	cfg := Load()
	assert.Equal(t, 5*time.Second, cfg.SendTimeout)
	assert.Equal(t, 16, cfg.FanoutConcurrency)
}

func TestLoad_SchedulerAccounts(t *testing.T) {
	t.Setenv("SCHEDULER_OIDC_AUDIENCE", "https://notifier.example.com")
	t.Setenv("SCHEDULER_SERVICE_ACCOUNTS", "a@p.iam.gserviceaccount.com,b@p.iam.gserviceaccount.com")

	cfg := Load()
	assert.Equal(t, "https://notifier.example.com", cfg.SchedulerAudience)
	assert.Len(t, cfg.SchedulerServiceAccounts, 2)
}
