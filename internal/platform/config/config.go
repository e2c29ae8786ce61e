package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config captures everything the enrollment client needs to reach its
// collaborators. Timing constants are deliberately absent: they live in
// internal/enrollment/models and are not configurable.
type Config struct {
	SensorURL      string
	BroadcastURL   string
	PersistenceURL string
	CSRFToken      string
	SessionCookie  string

	LockNamespace string
	Redis         RedisConfig

	LogLevel    string
	LogFormat   string
	MetricsAddr string
}

// RedisConfig configures the optional Redis-backed lock store.
// An empty URL selects the in-memory store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Load reads an optional dotenv file and then builds the config from the
// environment. A missing file is not an error; real env vars always win.
func Load(envFile string) Config {
	if envFile == "" {
		envFile = ".env"
	}
	_ = godotenv.Load(envFile)
	return FromEnv()
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		// The device default matches the sensor's factory LAN address.
		SensorURL:      getEnv("SENSOR_URL", "http://192.168.1.9"),
		BroadcastURL:   getEnv("BROADCAST_URL", "ws://localhost:8000"),
		PersistenceURL: getEnv("PERSISTENCE_URL", "http://localhost:8000/dashboard/api/biometric/"),
		CSRFToken:      os.Getenv("CSRF_TOKEN"),
		SessionCookie:  os.Getenv("SESSION_COOKIE"),
		LockNamespace:  getEnv("LOCK_NAMESPACE", "default"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 1),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),
		MetricsAddr: os.Getenv("METRICS_ADDR"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
