package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type Config struct {
	AppEnv         string   `yaml:"app_env"`
	LogLevel       string   `yaml:"log_level"`
	HTTPAddr       string   `yaml:"http_addr"`
	MetricsAddr    string   `yaml:"metrics_addr"`
	RedisAddr      string   `yaml:"redis_addr"`
	RedisDB        int      `yaml:"redis_db"`
	RedisPass      string   `yaml:"redis_password"`
	CacheTTLSec    int      `yaml:"cache_ttl_seconds"`
	MaxUploadMB    int      `yaml:"max_upload_mb"`
	FetchRPS       int      `yaml:"fetch_rps"`
	// FetchPrivate lets URL imports reach loopback and private networks.
	FetchPrivate   bool     `yaml:"fetch_allow_private"`
	Workers        int      `yaml:"ingest_workers"`
	CORSOrigins    []string `yaml:"cors_origins"`
	LoadDemoOnBoot bool     `yaml:"load_demo_on_start"`
}

func (c Config) CacheTTL() time.Duration { return time.Duration(c.CacheTTLSec) * time.Second }

func (c Config) MaxUploadBytes() int64 { return int64(c.MaxUploadMB) << 20 }

func defaults() Config {
	return Config{
		AppEnv:      "prod",
		LogLevel:    "info",
		HTTPAddr:    ":8080",
		MetricsAddr: "",
		RedisAddr:   "",
		CacheTTLSec: 900,
		MaxUploadMB: 10,
		FetchRPS:    5,
		Workers:     4,
		CORSOrigins: []string{"*"},
	}
}

// Load builds the config from defaults, then the YAML file named by
// REVIEWS_CONFIG (if any), then environment variables.
func Load() Config {
	c := defaults()

	if path := os.Getenv("REVIEWS_CONFIG"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("config file unreadable; using env only")
		} else if err := yaml.Unmarshal(b, &c); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("config file invalid; using env only")
			c = defaults()
		}
	}

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c.AppEnv = env("APP_ENV", c.AppEnv)
	c.LogLevel = env("LOG_LEVEL", c.LogLevel)
	c.HTTPAddr = env("HTTP_ADDR", c.HTTPAddr)
	c.MetricsAddr = env("METRICS_ADDR", c.MetricsAddr)
	c.RedisAddr = env("REDIS_ADDR", c.RedisAddr)
	c.RedisPass = env("REDIS_PASSWORD", c.RedisPass)
	c.RedisDB = atoi("REDIS_DB", c.RedisDB)
	c.CacheTTLSec = atoi("CACHE_TTL_SECONDS", c.CacheTTLSec)
	c.MaxUploadMB = atoi("MAX_UPLOAD_MB", c.MaxUploadMB)
	c.FetchRPS = atoi("FETCH_RPS", c.FetchRPS)
	c.Workers = atoi("INGEST_WORKERS", c.Workers)
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("FETCH_ALLOW_PRIVATE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.FetchPrivate = b
		}
	}
	if v := os.Getenv("LOAD_DEMO_ON_START"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.LoadDemoOnBoot = b
		}
	}

	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.MaxUploadMB <= 0 {
		c.MaxUploadMB = 10
	}
	if c.RedisAddr == "" {
		log.Info().Msg("REDIS_ADDR is empty; analytics cache disabled")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
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

