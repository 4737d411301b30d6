package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Mongo     MongoConfig
	Store     StoreConfig
	Auth      AuthConfig
	AI        AIConfig
	EventLog  EventLogConfig
	Dispatch  DispatchConfig
	RateLimit RateLimitConfig
	Geo       GeoConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// MongoConfig holds connection settings for the Mongo store backend.
type MongoConfig struct {
	URI      string
	Database string
}

// StoreConfig selects the document store backend.
type StoreConfig struct {
	// Driver: "postgres", "mongo" or "memory"
	Driver string
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// AIConfig holds configuration for the remote completion service used by triage.
type AIConfig struct {
	URL     string
	Model   string
	Enabled bool
	Timeout time.Duration
}

// EventLogConfig holds configuration for the EventStoreDB journal.
type EventLogConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Insecure bool
	Username string
	Password string
}

// DispatchConfig holds the dwell times for the ambulance dispatch simulator.
// The defaults mirror observed field timing and are not load-bearing.
type DispatchConfig struct {
	DispatchedDwell time.Duration
	EnRouteDwell    time.Duration
	ArrivedDwell    time.Duration
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// GeoConfig holds the fallback location used when a client supplies no
// coordinates (geolocation denied or unavailable on the client side).
type GeoConfig struct {
	FallbackLat float64
	FallbackLng float64
}

func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Port: getEnvInt("SERVER_PORT", 8080),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "zerowait"),
			Password: getEnv("DB_PASSWORD", "zerowait"),
			Database: getEnv("DB_NAME", "zerowait"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Mongo: MongoConfig{
			URI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGODB_DATABASE", "zerowait"),
		},
		Store: StoreConfig{
			Driver: getEnv("STORE_DRIVER", "postgres"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-in-prod"),
			TokenTTL:  getEnvDuration("JWT_TTL", 8*time.Hour),
		},
		AI: AIConfig{
			URL:     getEnv("AI_SERVICE_URL", "http://localhost:5000"),
			Model:   getEnv("AI_MODEL", "triage-default"),
			Enabled: getEnvBool("AI_ENABLED", true),
			Timeout: getEnvDuration("AI_TIMEOUT", 10*time.Second),
		},
		EventLog: EventLogConfig{
			Enabled:  getEnvBool("EVENTLOG_ENABLED", true),
			Host:     getEnv("EVENTLOG_HOST", "localhost"),
			Port:     getEnvInt("EVENTLOG_PORT", 2113),
			Insecure: getEnvBool("EVENTLOG_INSECURE", true),
			Username: getEnv("EVENTLOG_USERNAME", ""),
			Password: getEnv("EVENTLOG_PASSWORD", ""),
		},
		Dispatch: DispatchConfig{
			DispatchedDwell: getEnvDuration("DISPATCH_DISPATCHED_DWELL", 8*time.Second),
			EnRouteDwell:    getEnvDuration("DISPATCH_ENROUTE_DWELL", 12*time.Second),
			ArrivedDwell:    getEnvDuration("DISPATCH_ARRIVED_DWELL", 20*time.Second),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvFloat("RATE_LIMIT_RPS", 20),
			Burst:             getEnvInt("RATE_LIMIT_BURST", 40),
		},
		Geo: GeoConfig{
			FallbackLat: getEnvFloat("GEO_FALLBACK_LAT", 17.4065),
			FallbackLng: getEnvFloat("GEO_FALLBACK_LNG", 78.4772),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
