package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
mode: test
port: 8080
name: petcare_settlement
mongodb:
  host: localhost
  port: 27017
  db: petcare
settlement:
  tax_rate: "0.05"
rate_limiter:
  default:
    interval: 1s
    limit: 5
`

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o600))
	return path
}

func TestNewConfig(t *testing.T) {
	cfg, err := NewConfig(writeConfig(t))
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Mode)
	assert.Equal(t, "localhost", cfg.MongodbConfig.Host)
	assert.Equal(t, "0.05", cfg.SettlementConfig.TaxRate)
	assert.Equal(t, 5, cfg.RateLimiterConfig.Default.Limit)

	// Defaults fill what the file leaves out.
	assert.Equal(t, 72, cfg.SettlementConfig.VoucherHours)
	assert.Equal(t, 20, cfg.WorkerConfig.Replayer.MaxAttempts)
	assert.Equal(t, 15000, cfg.LockerConfig.TTLMillis)
}

func TestNewConfig_EnvOverride(t *testing.T) {
	t.Setenv("MONGODB_HOST", "mongo")
	t.Setenv("SETTLEMENT_TAX_RATE", "0.1")

	cfg, err := NewConfig(writeConfig(t))
	require.NoError(t, err)
	assert.Equal(t, "mongo", cfg.MongodbConfig.Host)
	assert.Equal(t, "0.1", cfg.SettlementConfig.TaxRate)
}

func TestNewConfig_MissingFile(t *testing.T) {
	_, err := NewConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestNewRedisNamespace(t *testing.T) {
	ns := NewRedisNamespace(&AppConfig{Name: "petcare", Mode: "dev"})
	assert.Equal(t, RedisNamespace("petcare:dev:"), ns)
}
