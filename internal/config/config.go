package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port        string        `yaml:"port"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`
	LogLevel    string        `yaml:"log_level"`

	Ingest IngestConfig `yaml:"ingest"`
	S3     S3Config     `yaml:"s3"`
	Cache  CacheConfig  `yaml:"cache"`

	CORSOrigins []string `yaml:"cors_origins"`
	SinkURL     string   `yaml:"sink_url"`
	SinkSecret  string   `yaml:"sink_secret"`
}

type IngestConfig struct {
	Workers       int           `yaml:"workers"`
	FooterMarkers []string      `yaml:"footer_markers"`
	SourceURLs    []string      `yaml:"source_urls"`
	MaxUploadMB   int64         `yaml:"max_upload_mb"`
	Retries       int           `yaml:"retries"`
	RetryBase     time.Duration `yaml:"retry_base"`
}

type S3Config struct {
	Bucket  string `yaml:"bucket"`
	Prefix  string `yaml:"prefix"`
	Region  string `yaml:"region"`
	Profile string `yaml:"profile"`
}

type CacheConfig struct {
	RedisURL string        `yaml:"redis_url"`
	TTL      time.Duration `yaml:"ttl"`
}

// Level maps LogLevel onto slog; unknown values mean info.
func (c Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func (c Config) MaxUploadBytes() int64 { return c.Ingest.MaxUploadMB << 20 }

// Load reads a YAML file. A missing file is not an error: the zero config
// is returned with defaults applied.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	cfg.applyDefaults()
	return cfg, nil
}

// FromEnv loads .env (if present), the YAML file named by CONFIG_PATH, and
// then lets environment variables override individual fields.
func FromEnv() (Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return Config{}, err
	}
	cfg.Port = envOr("PORT", cfg.Port)
	if v := os.Getenv("HTTP_TIMEOUT_SECONDS"); v != "" {
		if d, err := time.ParseDuration(v + "s"); err == nil {
			cfg.HTTPTimeout = d
		}
	}
	cfg.LogLevel = envOr("LOG_LEVEL", cfg.LogLevel)

	if v, err := strconv.Atoi(os.Getenv("INGEST_WORKERS")); err == nil && v > 0 {
		cfg.Ingest.Workers = v
	}
	if v := os.Getenv("SOURCE_URLS"); v != "" {
		cfg.Ingest.SourceURLs = splitList(v)
	}
	if v := os.Getenv("FOOTER_MARKERS"); v != "" {
		cfg.Ingest.FooterMarkers = splitList(v)
	}

	cfg.S3.Bucket = envOr("S3_BUCKET", cfg.S3.Bucket)
	cfg.S3.Prefix = envOr("S3_PREFIX", cfg.S3.Prefix)
	cfg.S3.Region = envOr("AWS_REGION", cfg.S3.Region)
	cfg.S3.Profile = envOr("AWS_PROFILE", cfg.S3.Profile)

	cfg.Cache.RedisURL = envOr("REDIS_URL", cfg.Cache.RedisURL)
	if v := os.Getenv("CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.TTL = d
		}
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitList(v)
	}
	cfg.SinkURL = envOr("SINK_URL", cfg.SinkURL)
	cfg.SinkSecret = envOr("SINK_SECRET", cfg.SinkSecret)
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Port == "" {
		c.Port = "8080"
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 15 * time.Second
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Ingest.Workers <= 0 {
		c.Ingest.Workers = 4
	}
	if len(c.Ingest.FooterMarkers) == 0 {
		c.Ingest.FooterMarkers = []string{"Totals", "Report Description"}
	}
	if c.Ingest.MaxUploadMB <= 0 {
		c.Ingest.MaxUploadMB = 32
	}
	if c.Ingest.Retries <= 0 {
		c.Ingest.Retries = 3
	}
	if c.Ingest.RetryBase <= 0 {
		c.Ingest.RetryBase = 100 * time.Millisecond
	}
	if c.S3.Region == "" {
		c.S3.Region = "us-east-1"
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = 5 * time.Minute
	}
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
