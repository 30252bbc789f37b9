package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

type AuthConfig struct {
	AccessSecret string
	AccessTTL    time.Duration
}

type ExternalServicesConfig struct {
	AuthServiceURL   string
	AuthServiceToken string
}

type RedisConfig struct {
	URL string
	DB  int
}

type KafkaConfig struct {
	Brokers     string
	TicketTopic string
}

type LockConfig struct {
	TransitionTTL time.Duration
}

type DigestConfig struct {
	Schedule string
	Timezone string
}

type LogConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type Config struct {
	Environment      string
	HTTP             HTTPConfig
	DB               DBConfig
	Auth             AuthConfig
	ExternalServices ExternalServicesConfig
	Redis            RedisConfig
	Kafka            KafkaConfig
	Lock             LockConfig
	Digest           DigestConfig
	Log              LogConfig
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")

	v.AutomaticEnv()

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host: v.GetString("HTTP_HOST"),
			Port: v.GetInt("HTTP_PORT"),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
			AutoMigrate:     v.GetBool("DB_AUTO_MIGRATE"),
		},
		Auth: AuthConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
			AccessTTL:    v.GetDuration("JWT_ACCESS_TTL"),
		},
		ExternalServices: ExternalServicesConfig{
			AuthServiceURL:   v.GetString("AUTH_SERVICE_URL"),
			AuthServiceToken: v.GetString("AUTH_SERVICE_TOKEN"),
		},
		Redis: RedisConfig{
			URL: v.GetString("REDIS_URL"),
			DB:  v.GetInt("REDIS_DB"),
		},
		Kafka: KafkaConfig{
			Brokers:     v.GetString("KAFKA_BROKERS"),
			TicketTopic: v.GetString("KAFKA_TICKET_TOPIC"),
		},
		Lock: LockConfig{
			TransitionTTL: v.GetDuration("TRANSITION_LOCK_TTL"),
		},
		Digest: DigestConfig{
			Schedule: v.GetString("DIGEST_SCHEDULE"),
			Timezone: v.GetString("TIMEZONE"),
		},
		Log: LogConfig{
			Level:      v.GetString("LOG_LEVEL"),
			File:       v.GetString("LOG_FILE"),
			MaxSizeMB:  v.GetInt("LOG_MAX_SIZE_MB"),
			MaxBackups: v.GetInt("LOG_MAX_BACKUPS"),
			MaxAgeDays: v.GetInt("LOG_MAX_AGE_DAYS"),
		},
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Auth.AccessTTL == 0 {
		cfg.Auth.AccessTTL = 12 * time.Hour
	}
	if cfg.Lock.TransitionTTL == 0 {
		cfg.Lock.TransitionTTL = 30 * time.Second
	}
	if cfg.Kafka.TicketTopic == "" {
		cfg.Kafka.TicketTopic = "techservice.tickets"
	}
	if cfg.Digest.Schedule == "" {
		cfg.Digest.Schedule = "0 8 1 * *"
	}
	if cfg.Digest.Timezone == "" {
		cfg.Digest.Timezone = "UTC"
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = 100
	}
	if cfg.Log.MaxBackups == 0 {
		cfg.Log.MaxBackups = 5
	}
	if cfg.Log.MaxAgeDays == 0 {
		cfg.Log.MaxAgeDays = 30
	}
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if cfg.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if _, err := time.LoadLocation(cfg.Digest.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE is invalid: %w", err)
	}
	return nil
}

// Location returns the configured time zone for calendar-based reports.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Digest.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.HTTP.Host, c.HTTP.Port)
}
