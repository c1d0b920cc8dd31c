package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_FileAndDefaults(t *testing.T) {
	p := writeYAML(t, `
app:
  env: prod
  timezone: UTC
postgres:
  dsn: postgres://u:p@localhost:5432/parkaro?sslmode=disable
telegram:
  ops_chat_id: -1001
booking:
  reservation_ttl: 15m
`)

	c, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, "prod", c.App.Env)
	assert.Equal(t, "INR", c.App.Currency)
	assert.Equal(t, ":8080", c.HTTP.Addr)
	assert.Equal(t, int64(-1001), c.Telegram.OpsChatID)
	assert.Equal(t, 15*time.Minute, c.Booking.ReservationTTL)
	assert.Equal(t, 30*time.Minute, c.Booking.ReminderWindow)
	assert.Equal(t, 5*time.Second, c.Booking.NotifyTimeout)
	assert.Equal(t, "Overstay beyond booked time", c.Booking.OvertimeReason)
	assert.Equal(t, time.Minute, c.Sweep.Interval)
	assert.Equal(t, time.UTC, c.Location())
}

func TestLoad_EnvOverrides(t *testing.T) {
	p := writeYAML(t, "http:\n  addr: \":9000\"\n")
	t.Setenv("APP_HTTP_ADDR", ":7000")
	t.Setenv("APP_SWEEP_INTERVAL", "5m")

	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, ":7000", c.HTTP.Addr)
	assert.Equal(t, 5*time.Minute, c.Sweep.Interval)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "dev", c.App.Env)
	assert.Equal(t, 10*time.Minute, c.Booking.ReservationTTL)
}

func TestLoad_BadTimezone(t *testing.T) {
	p := writeYAML(t, "app:\n  timezone: Mars/Olympus\n")
	_, err := Load(p)
	assert.Error(t, err)
}
