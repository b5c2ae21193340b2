package app

import (
	"os"
	"strconv"
	"time"

	"github.com/oriento/auth/pkg/ratelimit"
)

type Config struct {
	Issuer          string        // Issuer claim for access tokens (default: oriento)
	AccessTokenTTL  time.Duration // Access token lifetime (default: 15m)
	RefreshTokenTTL time.Duration // Refresh token lifetime (default: 360h / 15 days)
	PrivateKeyFile  string        // Optional: path to RSA private key PEM. Empty = ephemeral key per start.

	DatabaseFile string // Path to SQLite database file (default: ./auth.db)
	PepperFile   string // Path to file containing pepper for password hashing (default: ./pepper)

	DefaultPolicy ratelimit.Policy // Gate budget for every route
	LoginPolicy   ratelimit.Policy // Tighter gate budget for the login route
	BucketIdle    time.Duration    // Idle time before a bucket is evicted (default: 1h)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	return Config{
		Issuer:          getEnvOrDefault("AUTH_ISSUER", "oriento"),
		AccessTokenTTL:  getEnvDurationOrDefault("AUTH_ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL: getEnvDurationOrDefault("AUTH_REFRESH_TOKEN_TTL", 360*time.Hour),
		PrivateKeyFile:  os.Getenv("AUTH_PRIVATE_KEY_FILE"), // Optional: ephemeral when unset

		DatabaseFile: getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		PepperFile:   getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),

		DefaultPolicy: loadPolicyFromEnv("DEFAULT", ratelimit.Policy{
			Capacity:     100,
			RefillTokens: 100,
			RefillWindow: time.Minute,
		}),
		LoginPolicy: loadPolicyFromEnv("LOGIN", ratelimit.Policy{
			Capacity:     5,
			RefillTokens: 5,
			RefillWindow: 15 * time.Minute,
		}),
		BucketIdle: getEnvDurationOrDefault("BUCKET_IDLE_EVICTION", 1*time.Hour),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}
}

// loadPolicyFromEnv reads a rate limit policy from environment variables.
// Variables follow the pattern RATELIMIT_{prefix}_{field}, for example
// RATELIMIT_LOGIN_CAPACITY, RATELIMIT_LOGIN_REFILL_TOKENS,
// RATELIMIT_LOGIN_REFILL_WINDOW_SEC.
func loadPolicyFromEnv(prefix string, defaultPolicy ratelimit.Policy) ratelimit.Policy {
	p := defaultPolicy

	if val := os.Getenv("RATELIMIT_" + prefix + "_CAPACITY"); val != "" {
		if capacity, err := strconv.ParseInt(val, 10, 64); err == nil && capacity > 0 {
			p.Capacity = capacity
		}
	}

	if val := os.Getenv("RATELIMIT_" + prefix + "_REFILL_TOKENS"); val != "" {
		if tokens, err := strconv.ParseInt(val, 10, 64); err == nil && tokens > 0 {
			p.RefillTokens = tokens
		}
	}

	if val := os.Getenv("RATELIMIT_" + prefix + "_REFILL_WINDOW_SEC"); val != "" {
		if windowSec, err := strconv.Atoi(val); err == nil && windowSec > 0 {
			p.RefillWindow = time.Duration(windowSec) * time.Second
		}
	}

	return p
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
