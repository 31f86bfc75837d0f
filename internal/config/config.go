package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Settings backends.
const (
	BackendFile   = "file"
	BackendRemote = "remote"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type Config struct {
	Port string

	// Auth
	BionicAPIKey string

	// Settings persistence
	SettingsBackend string
	SettingsPath    string
	SettingsURL     string
	SettingsAPIKey  string
	SettingsKey     string
	RedisURL        string

	// Engine timing
	SettleDelay    time.Duration
	BootstrapDelay time.Duration

	// Page sessions
	PageTTL       time.Duration
	PageQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// HTTP edge
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int

	// PDF
	PDFFallbackPdftotext bool
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		BionicAPIKey: os.Getenv("BIONIC_API_KEY"),

		SettingsBackend: strings.ToLower(envOr("SETTINGS_BACKEND", BackendFile)),
		SettingsPath:    envOr("SETTINGS_PATH", "bionic-settings.json"),
		SettingsURL:     os.Getenv("SETTINGS_URL"),
		SettingsAPIKey:  os.Getenv("SETTINGS_API_KEY"),
		SettingsKey:     envOr("SETTINGS_KEY", "bionic/settings"),
		RedisURL:        envOr("REDIS_URL", "redis://localhost:6379/0"),

		SettleDelay:    envDuration("SETTLE_DELAY", 50*time.Millisecond),
		BootstrapDelay: envDuration("BOOTSTRAP_DELAY", 500*time.Millisecond),

		PageTTL:       envDuration("PAGE_TTL", 30*time.Minute),
		PageQueueSize: envInt("PAGE_QUEUE_SIZE", 64),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 10485760), // 10MB

		CORSOrigins:    envList("CORS_ORIGINS", []string{"*"}),
		RateLimitRPS:   envFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst: envInt("RATE_LIMIT_BURST", 40),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.SettleDelay < 0 {
		cfg.SettleDelay = 0
	}
	if cfg.BootstrapDelay < 0 {
		cfg.BootstrapDelay = 0
	}
	if cfg.PageTTL <= 0 {
		cfg.PageTTL = 30 * time.Minute
	}
	if cfg.PageQueueSize <= 0 {
		cfg.PageQueueSize = 64
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10485760
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 40
	}

	return cfg
}

func (c Config) Validate() error {
	if c.BionicAPIKey == "" {
		return fmt.Errorf("BIONIC_API_KEY is required")
	}
	switch c.SettingsBackend {
	case BackendFile, BackendMemory:
	case BackendRemote:
		if c.SettingsURL == "" {
			return fmt.Errorf("SETTINGS_URL is required for the remote settings backend")
		}
		if c.SettingsAPIKey == "" {
			return fmt.Errorf("SETTINGS_API_KEY is required for the remote settings backend")
		}
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis settings backend")
		}
	default:
		return fmt.Errorf("unknown SETTINGS_BACKEND %q", c.SettingsBackend)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// envList splits a comma-separated value, dropping empty entries.
func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
