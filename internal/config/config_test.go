package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BOOKING_APP_ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8083", cfg.Port)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaConfig.Brokers)
	assert.Equal(t, "booking.notifications", cfg.KafkaConfig.NotificationsTopic)
	assert.Equal(t, 5, cfg.Notification.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Notification.InitialDelay)
	assert.Equal(t, "host=localhost port=5432 user=postgres password=postgres dbname=tour_booking sslmode=disable", cfg.DBConfig.DSN())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BOOKING_APP_ENV", "production")
	t.Setenv("BOOKING_JWT_SECRET", "s3cret")
	t.Setenv("BOOKING_SERVICE_PORT", ":9000")
	t.Setenv("BOOKING_KAFKA_BROKERS", "k1:9092, k2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaConfig.Brokers)
	assert.Equal(t, "s3cret", cfg.JWTConfig.Secret)
}

func TestLoad_RequiresSecretOutsideDevelopment(t *testing.T) {
	t.Setenv("BOOKING_APP_ENV", "production")
	t.Setenv("BOOKING_JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestDatabaseURL(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "n", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/n?sslmode=disable", c.DatabaseURL())
}
