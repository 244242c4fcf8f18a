package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dgallion1/layertree/internal/logging"
	"github.com/dgallion1/layertree/internal/walker"
)

// FileEnv names the optional YAML config file.
const FileEnv = "LAYERTREE_CONFIG"

type Config struct {
	Port string `yaml:"port"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Auth; empty disables it.
	APIKey string `yaml:"api_key"`

	// Walker
	BatchSize int            `yaml:"batch_size"`
	Defaults  walker.Options `yaml:"defaults"`

	// Option cache; empty RedisAddr keeps it in memory.
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisKey      string `yaml:"redis_key"`

	// Upload limits
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// Run state
	RunTTL time.Duration `yaml:"run_ttl"`

	// Per-panel outbound queue
	EventBuffer int `yaml:"event_buffer"`

	// PDF
	PDFFallbackPdftotext bool `yaml:"pdf_fallback_pdftotext"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Port:                 "8090",
		LogLevel:             "info",
		LogFormat:            logging.FormatJSON,
		BatchSize:            walker.DefaultBatchSize,
		Defaults:             walker.DefaultOptions(),
		RedisKey:             "layertree:options",
		MaxUploadBytes:       52428800, // 50MB
		RunTTL:               1 * time.Hour,
		EventBuffer:          64,
		PDFFallbackPdftotext: true,
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (or $LAYERTREE_CONFIG when path is empty), then environment variables.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path == "" {
		path = os.Getenv(FileEnv)
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	cfg = Config{
		Port: envOr("PORT", cfg.Port),

		LogLevel:  envOr("LOG_LEVEL", cfg.LogLevel),
		LogFormat: envOr("LOG_FORMAT", cfg.LogFormat),

		APIKey: envOr("API_KEY", cfg.APIKey),

		BatchSize: envInt("BATCH_SIZE", cfg.BatchSize),
		Defaults: walker.Options{
			SimpleNamesOnly: envBool("DEFAULT_SIMPLE_NAMES_ONLY", cfg.Defaults.SimpleNamesOnly),
			IncludeText:     envBool("DEFAULT_INCLUDE_TEXT", cfg.Defaults.IncludeText),
			HideHidden:      envBool("DEFAULT_HIDE_HIDDEN", cfg.Defaults.HideHidden),
		},

		RedisAddr:     envOr("REDIS_ADDR", cfg.RedisAddr),
		RedisPassword: envOr("REDIS_PASSWORD", cfg.RedisPassword),
		RedisDB:       envInt("REDIS_DB", cfg.RedisDB),
		RedisKey:      envOr("REDIS_KEY", cfg.RedisKey),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes),

		RunTTL: envDuration("RUN_TTL", cfg.RunTTL),

		EventBuffer: envInt("EVENT_BUFFER", cfg.EventBuffer),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", cfg.PDFFallbackPdftotext),
	}

	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.RunTTL <= 0 {
		cfg.RunTTL = 1 * time.Hour
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 64
	}
	if cfg.RedisKey == "" {
		cfg.RedisKey = "layertree:options"
	}

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c Config) Validate() error {
	if c.BatchSize < 1 {
		return fmt.Errorf("BATCH_SIZE must be at least 1, got %d", c.BatchSize)
	}
	if !logging.ValidFormat(c.LogFormat) {
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.LogFormat)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Port == "" {
		return errors.New("PORT is required")
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
