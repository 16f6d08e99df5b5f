package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, "jwt:\n  secret: s3cret\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5001, cfg.Server.Port)
	assert.Equal(t, "0 0 1 * *", cfg.Business.AccrualSchedule)
	assert.Equal(t, "@hourly", cfg.Business.ExpirySweepSchedule)
	assert.Equal(t, map[int]int64{2: 700, 3: 1000}, cfg.Business.Rates())
	assert.Equal(t, 30*24*time.Hour, cfg.Business.AnnouncementTTL())
	assert.Equal(t, time.UTC, cfg.Business.Location())
	assert.Equal(t, StorageDriverLocal, cfg.Storage.Driver)
	assert.Equal(t, 720*time.Hour, cfg.JWT.Expiry())
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8080
jwt:
  secret: s3cret
business:
  dues_rates:
    "2": 750
    "3": 1100
  admin_emails:
    - treasurer@example.com
`)
	t.Setenv("SOCIETY_SERVER_PORT", "9090")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, map[int]int64{2: 750, 3: 1100}, cfg.Business.Rates())
	assert.Equal(t, []string{"treasurer@example.com"}, cfg.Business.AdminEmails)
}

func TestLoad_RequiresSecret(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 8080\n")

	_, err := Load(path)
	require.Error(t, err)
}

func TestBusinessConfig_RatesSkipsInvalidKeys(t *testing.T) {
	b := BusinessConfig{DuesRates: map[string]int64{"2": 700, "villa": 5000}}
	assert.Equal(t, map[int]int64{2: 700}, b.Rates())
}

func TestBusinessConfig_LocationFallback(t *testing.T) {
	b := BusinessConfig{Timezone: "Not/AZone"}
	assert.Equal(t, time.UTC, b.Location())
}
