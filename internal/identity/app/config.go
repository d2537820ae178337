package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Issuer         string        // Issuer claim for session tokens (default: cowrite-identity)
	DatabaseFile   string        // Path to SQLite database file (default: ./identity.db)
	PepperFile     string        // Path to file containing pepper for password hashing (default: ./pepper)
	SessionKeyFile string        // Optional: path to a PKCS#8 Ed25519 private key; ephemeral key when unset
	SessionTTL     time.Duration // Session token lifetime (default: 24h)
	ResetTokenTTL  time.Duration // Password reset token window (default: 2h)
	InvitationTTL  time.Duration // Default invitation window (default: 168h)
	AppURL         string        // Public URL of the web frontend, used in mailed links (default: http://localhost:3000)

	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

func LoadConfig() Config {
	return Config{
		Issuer:         getEnvOrDefault("IDENTITY_ISSUER", "cowrite-identity"),
		DatabaseFile:   getEnvOrDefault("IDENTITY_DATABASE_FILE", "identity.db"),
		PepperFile:     getEnvOrDefault("IDENTITY_PEPPER_FILE", "pepper"),
		SessionKeyFile: os.Getenv("IDENTITY_SESSION_KEY_FILE"),
		SessionTTL:     getEnvDurationOrDefault("IDENTITY_SESSION_TTL", 24*time.Hour),
		ResetTokenTTL:  getEnvDurationOrDefault("IDENTITY_RESET_TOKEN_TTL", 2*time.Hour),
		InvitationTTL:  getEnvDurationOrDefault("IDENTITY_INVITATION_TTL", 7*24*time.Hour),
		AppURL:         getEnvOrDefault("APP_URL", "http://localhost:3000"),

		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}
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

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
