package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultTimeZone = "Africa/Nairobi"

	DefaultLogFolder        = "./logs"
	DefaultLogMaxFileMB     = 20
	DefaultLogRetentionDays = 30

	DefaultGatewayPort   = 8081
	DefaultAcademicsPort = 6143
	DefaultMaxUploadMB   = 10

	DefaultSessionTimeoutMinutes = 120
	DefaultSessionSweepSchedule  = "*/5 * * * *"
	DefaultNotificationSchedule  = "0 * * * *"
	DefaultNotificationLimit     = 200
	DefaultNotificationRetention = 7 * 24 * time.Hour

	DefaultArchiveBucket = "imports"
	RecentImportsLimit   = 50
)

// Environment keys read from .env or the process environment.
const (
	EnvDBUser         = "DB_USER"
	EnvDBPassword     = "DB_PASSWORD"
	EnvDBHost         = "DB_HOST"
	EnvDBPort         = "DB_PORT"
	EnvDBName         = "DB_NAME"
	EnvDBSSLMode      = "DB_SSLMODE"
	EnvPassphraseHash = "PORTAL_PASSPHRASE_HASH"
	EnvStorageURL     = "SUPABASE_URL"
	EnvStorageKey     = "SUPABASE_SERVICE_ROLE_KEY"
	EnvStorageBucket  = "SUPABASE_BUCKET"
	EnvServicesFile   = "SERVICES_FILE"
)

// Env returns the environment value for key, or def when unset or blank.
func Env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// PostgresDSN builds a key/value connection string from the DB_* variables.
func PostgresDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s host=%s port=%s dbname=%s sslmode=%s",
		Env(EnvDBUser, "postgres"),
		Env(EnvDBPassword, ""),
		Env(EnvDBHost, "localhost"),
		Env(EnvDBPort, "5432"),
		Env(EnvDBName, "school"),
		Env(EnvDBSSLMode, "disable"),
	)
}

// IntFromConfig reads an integer from a services.yaml config map. YAML and
// JSON decode numbers differently, so int, int64, float64 and numeric
// strings are all accepted.
func IntFromConfig(cfg map[string]interface{}, key string, def int) int {
	if cfg == nil {
		return def
	}
	switch t := cfg[key].(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n
		}
	}
	return def
}

func StringFromConfig(cfg map[string]interface{}, key, def string) string {
	if cfg == nil {
		return def
	}
	if s, ok := cfg[key].(string); ok && strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s)
	}
	return def
}

func BoolFromConfig(cfg map[string]interface{}, key string, def bool) bool {
	if cfg == nil {
		return def
	}
	switch t := cfg[key].(type) {
	case bool:
		return t
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(t)); err == nil {
			return b
		}
	}
	return def
}

// DurationFromConfig accepts a Go duration string ("90s") or a number of
// seconds.
func DurationFromConfig(cfg map[string]interface{}, key string, def time.Duration) time.Duration {
	if cfg == nil {
		return def
	}
	switch t := cfg[key].(type) {
	case string:
		if d, err := time.ParseDuration(strings.TrimSpace(t)); err == nil {
			return d
		}
	case int:
		return time.Duration(t) * time.Second
	case float64:
		return time.Duration(t * float64(time.Second))
	}
	return def
}
