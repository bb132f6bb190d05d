package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
http:
  address: ":9090"
storage:
  driver: memory
database:
  host: db
  port: 6543
  user: app
  password: from-file
  name: seats
  ssl_mode: require
kafka:
  brokers: ["k1:9092"]
cache:
  schedule_ttl_seconds: 5
`)
	t.Setenv("DB_PASSWORD", "from-env")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTP.Address)
	assert.Equal(t, StorageDriverMemory, cfg.Storage.Driver)
	assert.Equal(t, "from-env", cfg.Database.Password)
	assert.Equal(t, []string{"k1:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 5, cfg.Cache.ScheduleTTLSeconds)
	// untouched keys keep their defaults
	assert.Equal(t, "booking-events", cfg.Kafka.BookingTopic)
	assert.Equal(t, 10, cfg.Kafka.PublishTimeoutSeconds)
	assert.Equal(t, 10, cfg.Worker.ReconcileIntervalMinutes)
	assert.Equal(t, "host=db port=6543 user=app password=from-env dbname=seats sslmode=require", cfg.Database.DSN())
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := writeConfig(t, "storage:\n  driver: sqlite\nworker:\n  reconcile_interval_minutes: 0\n")
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.driver")
	assert.Contains(t, err.Error(), "reconcile_interval_minutes")
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read config")
}

func TestDatabaseDSN_MaxConns(t *testing.T) {
	d := DatabaseConfig{Host: "h", Port: 1, User: "u", Password: "p", Name: "n", SSLMode: "disable", MaxConns: 20}
	assert.Equal(t, "host=h port=1 user=u password=p dbname=n sslmode=disable pool_max_conns=20", d.DSN())
}
