package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures environment driven configuration values for the hotel service.
type Config struct {
	HTTPPort    int
	SQLiteDSN   string
	LogLevel    string
	TimeZone    *time.Location
	CORSOrigins []string

	TokenSecret string
	TokenTTL    time.Duration

	RedisURL  string
	RateLimit RateLimitConfig

	AMQPURL   string
	AMQPQueue string
}

// RateLimitConfig controls the token bucket applied to the credential endpoints.
type RateLimitConfig struct {
	Capacity       int
	RefillInterval time.Duration
}

const minTokenSecretLength = 16

// DefaultEnvFile is read before the process environment when present.
const DefaultEnvFile = ".env"

// Load parses configuration values from DefaultEnvFile and the process environment.
func Load() (Config, error) {
	return LoadWithEnvFile(DefaultEnvFile)
}

// LoadWithEnvFile loads the given dotenv file (when it exists) and then parses
// the environment. Variables already present in the environment win over the file.
//
// Missing required values and malformed optional values are reported together
// so an operator can fix everything in one pass.
func LoadWithEnvFile(path string) (Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to read env file %s: %w", path, err)
		}
	}

	utc := time.UTC
	cfg := Config{
		HTTPPort:    8080,
		SQLiteDSN:   "hotel.db",
		LogLevel:    "info",
		TimeZone:    utc,
		CORSOrigins: []string{"*"},
		TokenTTL:    24 * time.Hour,
		RateLimit: RateLimitConfig{
			Capacity:       10,
			RefillInterval: time.Minute,
		},
		AMQPQueue: "hotel.reservations",
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 4)

	if portValue := env("HOTEL_HTTP_PORT"); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "HOTEL_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := env("HOTEL_SQLITE_DSN"); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if level := env("HOTEL_LOG_LEVEL"); level != "" {
		switch strings.ToLower(level) {
		case "debug", "info", "warn", "warning", "error":
			cfg.LogLevel = strings.ToLower(level)
		default:
			invalid = append(invalid, "HOTEL_LOG_LEVEL")
		}
	}

	if zone := env("HOTEL_TIMEZONE"); zone != "" {
		loc, err := time.LoadLocation(zone)
		if err != nil {
			invalid = append(invalid, "HOTEL_TIMEZONE")
		} else {
			cfg.TimeZone = loc
		}
	}

	if origins := env("HOTEL_CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitList(origins)
	}

	if secret := env("HOTEL_TOKEN_SECRET"); secret == "" {
		missing = append(missing, "HOTEL_TOKEN_SECRET")
	} else if len(secret) < minTokenSecretLength {
		invalid = append(invalid, "HOTEL_TOKEN_SECRET")
	} else {
		cfg.TokenSecret = secret
	}

	if ttlValue := env("HOTEL_TOKEN_TTL"); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "HOTEL_TOKEN_TTL")
		} else {
			cfg.TokenTTL = ttl
		}
	}

	cfg.RedisURL = env("HOTEL_REDIS_URL")

	if capacityValue := env("HOTEL_RATE_LIMIT_CAPACITY"); capacityValue != "" {
		capacity, err := strconv.Atoi(capacityValue)
		if err != nil || capacity <= 0 {
			invalid = append(invalid, "HOTEL_RATE_LIMIT_CAPACITY")
		} else {
			cfg.RateLimit.Capacity = capacity
		}
	}

	if refillValue := env("HOTEL_RATE_LIMIT_REFILL"); refillValue != "" {
		refill, err := time.ParseDuration(refillValue)
		if err != nil || refill <= 0 {
			invalid = append(invalid, "HOTEL_RATE_LIMIT_REFILL")
		} else {
			cfg.RateLimit.RefillInterval = refill
		}
	}

	cfg.AMQPURL = env("HOTEL_AMQP_URL")
	if queue := env("HOTEL_AMQP_QUEUE"); queue != "" {
		cfg.AMQPQueue = queue
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("environment variables have invalid values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// Addr returns the listen address derived from the HTTP port.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
