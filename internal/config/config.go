package config

import (
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"time"
	_ "time/tzdata" // PRACTICE_TIMEZONE must resolve on hosts without a zoneinfo database

	"github.com/spf13/viper"
)

type Config struct {
	Port                  string        `mapstructure:"PORT"`
	Env                   string        `mapstructure:"ENV"`
	DatabaseURL           string        `mapstructure:"DATABASE_URL"`
	DBSchema              string        `mapstructure:"DB_SCHEMA"`
	DBMaxConns            int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns            int32         `mapstructure:"DB_MIN_CONNS"`
	RedisURL              string        `mapstructure:"REDIS_URL"`
	SessionSecret         string        `mapstructure:"SESSION_SECRET"`
	SessionEncryptionKey  string        `mapstructure:"SESSION_ENCRYPTION_KEY"`
	SessionTTL            time.Duration `mapstructure:"SESSION_TTL"`
	CookieSecure          bool          `mapstructure:"COOKIE_SECURE"`
	GoogleClientID        string        `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret    string        `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL     string        `mapstructure:"GOOGLE_REDIRECT_URL"`
	CalendarEndpoint      string        `mapstructure:"GOOGLE_CALENDAR_ENDPOINT"`
	LoginRedirectURL      string        `mapstructure:"LOGIN_REDIRECT_URL"`
	AllowedDoctorEmails   []string      `mapstructure:"ALLOWED_DOCTOR_EMAILS"`
	DevDoctorEmail        string        `mapstructure:"DEV_DOCTOR_EMAIL"`
	PracticeTimezone      string        `mapstructure:"PRACTICE_TIMEZONE"`
	CORSOrigins           []string      `mapstructure:"CORS_ORIGINS"`
	RequestTimeout        time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	ContactRateLimitRPS   float64       `mapstructure:"CONTACT_RATE_LIMIT_RPS"`
	ContactRateLimitBurst int           `mapstructure:"CONTACT_RATE_LIMIT_BURST"`
}

var keys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_SCHEMA", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"REDIS_URL", "SESSION_SECRET", "SESSION_ENCRYPTION_KEY", "SESSION_TTL",
	"COOKIE_SECURE", "GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "GOOGLE_REDIRECT_URL",
	"GOOGLE_CALENDAR_ENDPOINT", "LOGIN_REDIRECT_URL", "ALLOWED_DOCTOR_EMAILS",
	"DEV_DOCTOR_EMAIL", "PRACTICE_TIMEZONE", "CORS_ORIGINS", "REQUEST_TIMEOUT",
	"CONTACT_RATE_LIMIT_RPS", "CONTACT_RATE_LIMIT_BURST",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_SCHEMA", "medici")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("SESSION_TTL", "720h")
	v.SetDefault("LOGIN_REDIRECT_URL", "/")
	v.SetDefault("PRACTICE_TIMEZONE", "Europe/Lisbon")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("CONTACT_RATE_LIMIT_RPS", 0.2)
	v.SetDefault("CONTACT_RATE_LIMIT_BURST", 5)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))
	cfg.AllowedDoctorEmails = splitList(v.GetString("ALLOWED_DOCTOR_EMAILS"))

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() && cfg.DevDoctorEmail != "" {
		log.Println("WARNING: ============================================================")
		log.Println("WARNING: DEV_DOCTOR_EMAIL is set in development mode.")
		log.Printf("WARNING: Requests without a session act as %s.\n", cfg.DevDoctorEmail)
		log.Println("WARNING: ============================================================")
	}

	return cfg, nil
}

// splitList turns a comma separated setting into trimmed, non-empty items.
func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// GoogleEnabled reports whether Google sign-in and calendar access are configured.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// Validate checks that the configuration is safe to run. Outside development
// the session keys and Google credentials are mandatory, and the dev doctor
// shortcut is refused.
func (c *Config) Validate() error {
	if c.PracticeTimezone == "" {
		return fmt.Errorf("PRACTICE_TIMEZONE must not be empty")
	}
	if _, err := time.LoadLocation(c.PracticeTimezone); err != nil {
		return fmt.Errorf("PRACTICE_TIMEZONE %q is not a known zone: %w", c.PracticeTimezone, err)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}

	if c.SessionEncryptionKey != "" {
		keyBytes, err := hex.DecodeString(c.SessionEncryptionKey)
		if err != nil {
			return fmt.Errorf("SESSION_ENCRYPTION_KEY is not valid hex: %w", err)
		}
		if len(keyBytes) != 32 {
			return fmt.Errorf("SESSION_ENCRYPTION_KEY must be 32 bytes (64 hex chars), got %d bytes", len(keyBytes))
		}
	}

	if c.IsDev() {
		return nil
	}

	if c.DevDoctorEmail != "" {
		return fmt.Errorf("DEV_DOCTOR_EMAIL is only allowed when ENV=development (current ENV=%q)", c.Env)
	}
	if len(c.SessionSecret) < 32 {
		return fmt.Errorf("SESSION_SECRET must be at least 32 characters outside development")
	}
	if c.SessionEncryptionKey == "" {
		return fmt.Errorf("SESSION_ENCRYPTION_KEY is required outside development")
	}
	if !c.GoogleEnabled() || c.GoogleRedirectURL == "" {
		return fmt.Errorf("GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET and GOOGLE_REDIRECT_URL are required outside development")
	}
	if c.IsProduction() && !c.CookieSecure {
		return fmt.Errorf("COOKIE_SECURE must be true in production")
	}
	return nil
}
