// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, the database path, the NG-day domain settings (deadline default,
// reminder offsets and schedule, time zone), chat delivery and observability.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // TIMEZONE must resolve on hosts without a zoneinfo database

	"github.com/go-playground/validator/v10"
	"github.com/teambition/rrule-go"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related response headers.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration `validate:"gte=0"`
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled  bool   // OTEL_ENABLED
	Endpoint string // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure bool   // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)

	// OTEL_SERVICE_NAME
	ServiceName string `validate:"required"`
	// OTEL_TRACES_SAMPLER_ARG in [0..1]
	SampleRatio float64 `validate:"gte=0,lte=1"`
}

// LineConfig configures the LINE Messaging API client.
type LineConfig struct {
	ChannelToken string        // required unless DryRun
	BaseURL      string        `validate:"required,url"`
	Timeout      time.Duration `validate:"gt=0"`
	RPS          float64       `validate:"gt=0"`
	Burst        int           `validate:"gte=1"`

	// DryRun logs messages instead of pushing them. Every push is reported
	// as a fatal failure so nothing counts as delivered.
	DryRun bool
}

// NotifyConfig configures delivery retries and the postponed-message queue.
type NotifyConfig struct {
	MaxRetries    int             `validate:"gte=0,lte=10"`
	RetryDelays   []time.Duration `validate:"min=1,dive,gte=0"`
	Queue         string          `validate:"oneof=memory store"`
	FlushInterval time.Duration   `validate:"gte=0"` // 0 disables the periodic flush
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        `validate:"required,numeric"`
	ReadTimeout       time.Duration `validate:"gt=0"`
	ReadHeaderTimeout time.Duration `validate:"gt=0"`
	WriteTimeout      time.Duration `validate:"gt=0"`
	IdleTimeout       time.Duration `validate:"gt=0"`
	MaxHeaderBytes    int           `validate:"gt=0"`
	GinMode           string        // debug|release|test

	// Logging
	LogLevel    string `validate:"oneof=debug info warn error fatal panic"`
	LogPretty   bool
	APIBasePath string

	// Storage
	DBPath string `validate:"required"`

	// Domain
	DefaultDeadlineDay int   `validate:"gte=1,lte=31"`
	ReminderDaysBefore []int `validate:"min=1,dive,gte=0"`
	Timezone           string
	ReminderRule       string `validate:"required"`

	// Admin API rate limiting
	RateRPS   float64 `validate:"gte=0"`
	RateBurst int     `validate:"gte=1"`

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	Line   LineConfig
	Notify NotifyConfig

	// Observability
	OTEL OTELConfig

	location *time.Location
}

// Location returns the loaded TIMEZONE (UTC when Load was bypassed).
func (c Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging
		LogLevel:    strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:   getbool("LOG_PRETTY", false),
		APIBasePath: normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Storage
		DBPath: getenv("DB_PATH", "ngshift.db"),

		// Domain
		DefaultDeadlineDay: getint("DEFAULT_DEADLINE_DAY", 10),
		Timezone:           getenv("TIMEZONE", "Asia/Tokyo"),
		ReminderRule:       getenv("REMINDER_RRULE", "FREQ=DAILY;BYHOUR=9;BYMINUTE=0;BYSECOND=0"),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 20.0),
		RateBurst: getint("RATE_BURST", 40),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		Line: LineConfig{
			ChannelToken: getenv("LINE_CHANNEL_ACCESS_TOKEN", ""),
			DryRun:       getbool("LINE_DRY_RUN", false),
			BaseURL:      getenv("LINE_API_BASE_URL", "https://api.line.me"),
			Timeout:      getdur("LINE_API_TIMEOUT", 10*time.Second),
			RPS:          getfloat("LINE_RPS", 50),
			Burst:        getint("LINE_BURST", 10),
		},
		Notify: NotifyConfig{
			MaxRetries:    getint("NOTIFY_MAX_RETRIES", 3),
			Queue:         strings.ToLower(getenv("NOTIFY_QUEUE", "store")),
			FlushInterval: getdur("QUEUE_FLUSH_INTERVAL", 5*time.Minute),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "ngday-shift-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	var err error
	if cfg.ReminderDaysBefore, err = getints("REMINDER_DAYS_BEFORE", []int{7, 3, 1}); err != nil {
		return cfg, err
	}
	if cfg.Notify.RetryDelays, err = getdurs("NOTIFY_RETRY_DELAYS", []time.Duration{time.Second, 2 * time.Second, 5 * time.Second}); err != nil {
		return cfg, err
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	if err := Validate(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate runs the struct-tag rules and the checks tags cannot express:
// the time zone must load, the reminder rule must parse and a LINE channel
// token is set unless dry-run was chosen.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if cfg.Line.ChannelToken == "" && !cfg.Line.DryRun {
		return errors.New("LINE_CHANNEL_ACCESS_TOKEN is required unless LINE_DRY_RUN=true")
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("TIMEZONE %q: %w", cfg.Timezone, err)
	}
	cfg.location = loc
	if _, err := rrule.StrToRRule(cfg.ReminderRule); err != nil {
		return fmt.Errorf("invalid REMINDER_RRULE: %w", err)
	}
	return nil
}

// ---- helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// getints parses a comma-separated integer list. Unlike the scalar helpers
// a malformed list is an error: silently falling back would change which
// days reminders go out.
func getints(k string, def []int) ([]int, error) {
	parts := splitCSV(getenv(k, ""))
	if len(parts) == 0 {
		return def, nil
	}
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		i, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not an integer", k, p)
		}
		out = append(out, i)
	}
	return out, nil
}

func getdurs(k string, def []time.Duration) ([]time.Duration, error) {
	parts := splitCSV(getenv(k, ""))
	if len(parts) == 0 {
		return def, nil
	}
	out := make([]time.Duration, 0, len(parts))
	for _, p := range parts {
		d, err := time.ParseDuration(p)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("%s: %q is not a duration", k, p), err)
		}
		out = append(out, d)
	}
	return out, nil
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
