package config

import (
	"path/filepath"
	"testing"
	"time"

	"foodconnect/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Equal(t, "http://localhost:9090", cfg.PublicBaseURL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.Equal(t, int64(5242880), cfg.MaxUploadBytes)
	assert.Nil(t, NewKafkaWriter(cfg))
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("QUERY_CACHE_TTL", "soon")

	_, err := Load()
	assert.ErrorContains(t, err, "QUERY_CACHE_TTL")
}

func TestNewKafkaWriter(t *testing.T) {
	w := NewKafkaWriter(&Config{KafkaBroker: "localhost:9092", KafkaTopic: "orders"})
	require.NotNil(t, w)
	assert.Equal(t, "orders", w.Topic)
	assert.Equal(t, 10*time.Millisecond, w.BatchTimeout)
}

func TestOpenDBMigrates(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	assert.True(t, db.Migrator().HasTable(&models.Order{}))
	assert.True(t, db.Migrator().HasTable(&models.VendorProfile{}))
	assert.True(t, db.Migrator().HasTable("storage_objects"))
}
