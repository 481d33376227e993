package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN returns the key/value connection string used by the gorm postgres driver.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// DatabaseURL returns the URL form used by golang-migrate.
func (c DatabaseConfig) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// KafkaConfig holds broker settings.
type KafkaConfig struct {
	Brokers            []string
	GroupPrefix        string
	NotificationsTopic string
	PaymentTopic       string
}

// RedisConfig holds the realtime bus and rate-limit store settings.
// An empty URL runs the realtime channel in-process only.
type RedisConfig struct {
	URL string
}

// JWTConfig holds the secret used to verify staff tokens.
type JWTConfig struct {
	Secret string
}

// SMTPConfig configures e-mail notifications. Empty host disables them.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// TelegramConfig configures chat notifications. Empty token disables them.
type TelegramConfig struct {
	BotToken string
}

// NotificationConfig tunes the async dispatcher.
type NotificationConfig struct {
	Workers      int
	QueueSize    int
	MaxAttempts  int
	InitialDelay time.Duration
}

// LogConfig tunes the zap logger.
type LogConfig struct {
	Level    string
	FilePath string
}

// ServiceConfig holds all configuration for the booking service.
type ServiceConfig struct {
	Port           string
	AppEnv         string
	RateLimit      string
	DBConfig       DatabaseConfig
	KafkaConfig    KafkaConfig
	RedisConfig    RedisConfig
	JWTConfig      JWTConfig
	SMTPConfig     SMTPConfig
	TelegramConfig TelegramConfig
	Notification   NotificationConfig
	Log            LogConfig
}

// Load reads configuration from environment variables prefixed with BOOKING_.
// A .env file in the working directory is loaded first when present.
func Load() (*ServiceConfig, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("BOOKING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &ServiceConfig{
		Port:      normalizePort(v.GetString("SERVICE_PORT")),
		AppEnv:    v.GetString("APP_ENV"),
		RateLimit: v.GetString("RATE_LIMIT"),
		DBConfig: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		KafkaConfig: KafkaConfig{
			Brokers:            splitList(v.GetString("KAFKA_BROKERS")),
			GroupPrefix:        v.GetString("KAFKA_GROUP_PREFIX"),
			NotificationsTopic: v.GetString("KAFKA_NOTIFICATIONS_TOPIC"),
			PaymentTopic:       v.GetString("KAFKA_PAYMENT_TOPIC"),
		},
		RedisConfig: RedisConfig{URL: v.GetString("REDIS_URL")},
		JWTConfig:   JWTConfig{Secret: v.GetString("JWT_SECRET")},
		SMTPConfig: SMTPConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			Username: v.GetString("SMTP_USERNAME"),
			Password: v.GetString("SMTP_PASSWORD"),
			From:     v.GetString("SMTP_FROM"),
		},
		TelegramConfig: TelegramConfig{BotToken: v.GetString("TELEGRAM_BOT_TOKEN")},
		Notification: NotificationConfig{
			Workers:      v.GetInt("NOTIFY_WORKERS"),
			QueueSize:    v.GetInt("NOTIFY_QUEUE_SIZE"),
			MaxAttempts:  v.GetInt("NOTIFY_MAX_ATTEMPTS"),
			InitialDelay: v.GetDuration("NOTIFY_INITIAL_DELAY"),
		},
		Log: LogConfig{
			Level:    v.GetString("LOG_LEVEL"),
			FilePath: v.GetString("LOG_FILE"),
		},
	}

	if cfg.AppEnv != "development" && cfg.JWTConfig.Secret == "" {
		return nil, fmt.Errorf("BOOKING_JWT_SECRET is required outside development")
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVICE_PORT", "8083")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("RATE_LIMIT", "30-M")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "tour_booking")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_GROUP_PREFIX", "tourdesk-")
	v.SetDefault("KAFKA_NOTIFICATIONS_TOPIC", "booking.notifications")
	v.SetDefault("KAFKA_PAYMENT_TOPIC", "payment.events")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("NOTIFY_WORKERS", 4)
	v.SetDefault("NOTIFY_QUEUE_SIZE", 256)
	v.SetDefault("NOTIFY_MAX_ATTEMPTS", 5)
	v.SetDefault("NOTIFY_INITIAL_DELAY", "500ms")
}

func normalizePort(port string) string {
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
