// Package config loads the flat key-value environment map into a closed set of
// typed configuration structs. No dynamic or reflective binding: every recognized
// key is enumerated here by name, following the "closed enumeration of options"
// note in the design.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting the service reads from the environment.
type Config struct {
	MySQL      MySQLConfig
	Redis      RedisConfig
	Upstash    UpstashConfig
	Upstream   UpstreamConfig
	RateLimit  RateLimitConfig
	SyncCron   string
	SyncTZ     string
	LogLevel   string
	LogDir     string
	Port       string
}

// MySQLConfig holds the relational store connection settings.
type MySQLConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	Database string
}

// DSN builds a go-sql-driver/mysql compatible data source name, preferring an
// explicit MYSQL_URL if one was set.
func (m MySQLConfig) DSN() string {
	if m.URL != "" {
		return m.URL
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&loc=UTC",
		m.User, m.Password, m.Host, m.Port, m.Database)
}

// RedisConfig holds standard Redis connection settings, used when Upstash REST
// credentials are absent.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
}

// Addr returns host:port, or "" if unset.
func (r RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// UpstashConfig holds the HTTP-based Redis REST credentials, used as the
// key-value backend when running against Upstash instead of a standard Redis.
type UpstashConfig struct {
	RESTURL   string
	RESTToken string
}

// Enabled reports whether Upstash REST credentials were supplied.
func (u UpstashConfig) Enabled() bool {
	return u.RESTURL != "" && u.RESTToken != ""
}

// UpstreamConfig holds the mfapi-shaped upstream client settings.
type UpstreamConfig struct {
	BaseURL string
	Timeout time.Duration
}

// RateLimitConfig holds the three-bucket token bucket parameters.
type RateLimitConfig struct {
	PerSecond BucketConfig
	PerMinute BucketConfig
	PerHour   BucketConfig
}

// BucketConfig holds one bucket's capacity, refill rate, and refill interval.
type BucketConfig struct {
	Capacity    float64
	RefillRate  float64
	IntervalMS  int64
}

// Load reads a .env file if present (ignoring its absence) and then the process
// environment, filling in the documented defaults for anything unset.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		MySQL: MySQLConfig{
			URL:      os.Getenv("MYSQL_URL"),
			Host:     getEnv("MYSQL_HOST", "127.0.0.1"),
			Port:     getEnv("MYSQL_PORT", "3306"),
			User:     getEnv("MYSQL_USER", "mfnav"),
			Password: getEnv("MYSQL_PASSWORD", ""),
			Database: getEnv("MYSQL_DATABASE", "mfnav"),
		},
		Redis: RedisConfig{
			Host:     os.Getenv("REDIS_HOST"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		Upstash: UpstashConfig{
			RESTURL:   os.Getenv("UPSTASH_REDIS_REST_URL"),
			RESTToken: os.Getenv("UPSTASH_REDIS_REST_TOKEN"),
		},
		Upstream: UpstreamConfig{
			BaseURL: getEnv("MFAPI_BASE_URL", "https://api.mfapi.in/mf"),
			Timeout: getEnvDuration("MFAPI_TIMEOUT", 30*time.Second),
		},
		RateLimit: RateLimitConfig{
			PerSecond: BucketConfig{
				Capacity:   getEnvFloat("RATE_LIMIT_PER_SECOND_CAPACITY", 2),
				RefillRate: getEnvFloat("RATE_LIMIT_PER_SECOND_REFILL_RATE", 2),
				IntervalMS: getEnvInt64("RATE_LIMIT_PER_SECOND_INTERVAL_MS", 1000),
			},
			PerMinute: BucketConfig{
				Capacity:   getEnvFloat("RATE_LIMIT_PER_MINUTE_CAPACITY", 50),
				RefillRate: getEnvFloat("RATE_LIMIT_PER_MINUTE_REFILL_RATE", 50),
				IntervalMS: getEnvInt64("RATE_LIMIT_PER_MINUTE_INTERVAL_MS", 60_000),
			},
			PerHour: BucketConfig{
				Capacity:   getEnvFloat("RATE_LIMIT_PER_HOUR_CAPACITY", 300),
				RefillRate: getEnvFloat("RATE_LIMIT_PER_HOUR_REFILL_RATE", 300),
				IntervalMS: getEnvInt64("RATE_LIMIT_PER_HOUR_INTERVAL_MS", 3_600_000),
			},
		},
		SyncCron: getEnv("SYNC_CRON_SCHEDULE", "0 6 * * *"),
		SyncTZ:   getEnv("SYNC_TZ", "Asia/Kolkata"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogDir:   getEnv("LOG_DIR", "./logs"),
		Port:     getEnv("PORT", "8080"),
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return def
}
