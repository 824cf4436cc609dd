package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the booking
// service.
type Config struct {
	SQLiteDSN           string
	Timezone            string
	OpeningHoursTTL     time.Duration
	PermissionsDisabled bool
	LogLevel            string
}

// Load parses configuration values from the current process environment,
// applying defaults for optional fields and validating the rest.
func Load() (Config, error) {
	cfg := Config{
		SQLiteDSN:       "file:varaamo.db?_foreign_keys=on",
		Timezone:        "Europe/Helsinki",
		OpeningHoursTTL: 5 * time.Minute,
		LogLevel:        "info",
	}

	invalid := make([]string, 0, 2)

	if dsn := strings.TrimSpace(os.Getenv("VARAAMO_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if tz := strings.TrimSpace(os.Getenv("VARAAMO_TIMEZONE")); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			invalid = append(invalid, "VARAAMO_TIMEZONE")
		} else {
			cfg.Timezone = tz
		}
	}

	if ttlValue := strings.TrimSpace(os.Getenv("VARAAMO_OPENING_HOURS_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "VARAAMO_OPENING_HOURS_TTL")
		} else {
			cfg.OpeningHoursTTL = ttl
		}
	}

	if disabled := strings.TrimSpace(os.Getenv("VARAAMO_PERMISSIONS_DISABLED")); disabled != "" {
		value, err := strconv.ParseBool(disabled)
		if err != nil {
			invalid = append(invalid, "VARAAMO_PERMISSIONS_DISABLED")
		} else {
			cfg.PermissionsDisabled = value
		}
	}

	if level := strings.TrimSpace(os.Getenv("VARAAMO_LOG_LEVEL")); level != "" {
		switch strings.ToLower(level) {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = strings.ToLower(level)
		default:
			invalid = append(invalid, "VARAAMO_LOG_LEVEL")
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// Location resolves the configured timezone.
func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}
