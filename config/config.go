package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
	Mongo     MongoConfig     `yaml:"mongo"`
	Database  DatabaseConfig  `yaml:"database"`
	Storage   StorageConfig   `yaml:"storage"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	MPesa     MPesaConfig     `yaml:"mpesa"`
	Booking   BookingConfig   `yaml:"booking"`
	Session   SessionConfig   `yaml:"session"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type HTTPConfig struct {
	Address        string   `yaml:"address" env:"HTTP_ADDRESS"`
	AllowedOrigins []string `yaml:"allowed_origins" env:"HTTP_ALLOWED_ORIGINS" envSeparator:","`
	Docs           bool     `yaml:"docs" env:"HTTP_DOCS"`
}

type LogConfig struct {
	Env   string `yaml:"env" env:"LOG_ENV"`
	Level string `yaml:"level" env:"LOG_LEVEL"`
}

type MongoConfig struct {
	URI      string `yaml:"uri" env:"MONGO_URI"`
	Database string `yaml:"database" env:"MONGO_DATABASE"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host" env:"DB_HOST"`
	Port     int    `yaml:"port" env:"DB_PORT"`
	User     string `yaml:"user" env:"DB_USER"`
	Password string `yaml:"password" env:"DB_PASSWORD"`
	Name     string `yaml:"name" env:"DB_NAME"`
	SSLMode  string `yaml:"ssl_mode" env:"DB_SSL_MODE"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// StorageConfig selects the backend for booking records. Listings and
// reviews always live in Mongo.
type StorageConfig struct {
	Bookings string `yaml:"bookings" env:"STORAGE_BOOKINGS"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers" env:"KAFKA_BROKERS" envSeparator:","`
	BookingEventsTopic string   `yaml:"booking_events_topic" env:"KAFKA_BOOKING_EVENTS_TOPIC"`
	NotificationsTopic string   `yaml:"notifications_topic" env:"KAFKA_NOTIFICATIONS_TOPIC"`
	GroupID            string   `yaml:"group_id" env:"KAFKA_GROUP_ID"`
}

type MPesaConfig struct {
	BaseURL        string `yaml:"base_url" env:"MPESA_BASE_URL"`
	CallbackURL    string `yaml:"callback_url" env:"MPESA_CALLBACK_URL"`
	TimeoutSeconds int    `yaml:"timeout_seconds" env:"MPESA_TIMEOUT_SECONDS"`
}

type BookingConfig struct {
	ConfirmationTimeoutSeconds int `yaml:"confirmation_timeout_seconds" env:"BOOKING_CONFIRMATION_TIMEOUT_SECONDS"`
	SubmitLockSeconds          int `yaml:"submit_lock_seconds" env:"BOOKING_SUBMIT_LOCK_SECONDS"`
	ListingsCacheTTLSeconds    int `yaml:"listings_cache_ttl_seconds" env:"BOOKING_LISTINGS_CACHE_TTL_SECONDS"`
	ReceiptTTLMinutes          int `yaml:"receipt_ttl_minutes" env:"BOOKING_RECEIPT_TTL_MINUTES"`
}

func (b BookingConfig) ConfirmationTimeout() time.Duration {
	return time.Duration(b.ConfirmationTimeoutSeconds) * time.Second
}

func (b BookingConfig) SubmitLockTTL() time.Duration {
	return time.Duration(b.SubmitLockSeconds) * time.Second
}

func (b BookingConfig) ListingsCacheTTL() time.Duration {
	return time.Duration(b.ListingsCacheTTLSeconds) * time.Second
}

func (b BookingConfig) ReceiptTTL() time.Duration {
	return time.Duration(b.ReceiptTTLMinutes) * time.Minute
}

type SessionConfig struct {
	IdleTTLMinutes int `yaml:"idle_ttl_minutes" env:"SESSION_IDLE_TTL_MINUTES"`
	SweepMinutes   int `yaml:"sweep_minutes" env:"SESSION_SWEEP_MINUTES"`
}

type RateLimitConfig struct {
	PaymentsPerMinute int `yaml:"payments_per_minute" env:"RATE_LIMIT_PAYMENTS_PER_MINUTE"`
	Burst             int `yaml:"burst" env:"RATE_LIMIT_BURST"`
}

// LoadConfig reads the YAML file at path, applies environment overrides and
// fills in defaults. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse env: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":3004"
	}
	if c.Log.Env == "" {
		c.Log.Env = "development"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Mongo.URI == "" {
		c.Mongo.URI = "mongodb://localhost:27017"
	}
	if c.Mongo.Database == "" {
		c.Mongo.Database = "staybooking"
	}
	if c.Storage.Bookings == "" {
		c.Storage.Bookings = "mongo"
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "staybooking-worker"
	}
	if c.MPesa.TimeoutSeconds == 0 {
		c.MPesa.TimeoutSeconds = 10
	}
	if c.Booking.ConfirmationTimeoutSeconds == 0 {
		c.Booking.ConfirmationTimeoutSeconds = 180
	}
	if c.Booking.SubmitLockSeconds == 0 {
		c.Booking.SubmitLockSeconds = 30
	}
	if c.Booking.ListingsCacheTTLSeconds == 0 {
		c.Booking.ListingsCacheTTLSeconds = 60
	}
	if c.Booking.ReceiptTTLMinutes == 0 {
		c.Booking.ReceiptTTLMinutes = 24 * 60
	}
	if c.Session.IdleTTLMinutes == 0 {
		c.Session.IdleTTLMinutes = 30
	}
	if c.Session.SweepMinutes == 0 {
		c.Session.SweepMinutes = 1
	}
	if c.RateLimit.PaymentsPerMinute == 0 {
		c.RateLimit.PaymentsPerMinute = 6
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 3
	}
}
