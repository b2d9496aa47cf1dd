package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/dgallion1/docloc/internal/locale"
)

type Config struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"logLevel"`

	// Auth
	APIKey string `yaml:"apiKey"`

	// Locales
	SourceLocale string `yaml:"sourceLocale"`
	TargetLocale string `yaml:"targetLocale"`

	// Machine translation
	MTEnabled        bool   `yaml:"mtEnabled"`
	AnthropicAPIKey  string `yaml:"anthropicApiKey"`
	AnthropicModel   string `yaml:"anthropicModel"`
	AnthropicBaseURL string `yaml:"anthropicBaseUrl"`
	MTBatchTokens    int    `yaml:"mtBatchTokens"`

	// Worker pool
	WorkerCount     int `yaml:"workerCount"`
	MaxQueueSize    int `yaml:"maxQueueSize"`
	MaxConcurrentMT int `yaml:"maxConcurrentMt"`

	// Upload limits
	MaxUploadBytes int64 `yaml:"maxUploadBytes"`

	// Segmentation defaults
	Segment         bool `yaml:"segment"`
	MinSegmentRunes int  `yaml:"minSegmentRunes"`

	// Job state
	JobTTL time.Duration `yaml:"jobTTL"`

	// PDF
	PDFFallbackPdftotext bool `yaml:"pdfFallbackPdftotext"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Port:     "8090",
		LogLevel: "info",

		SourceLocale: "en",

		AnthropicModel:   "claude-sonnet-4-5-20250929",
		AnthropicBaseURL: "https://api.anthropic.com",
		MTBatchTokens:    1500,

		WorkerCount:     4,
		MaxQueueSize:    100,
		MaxConcurrentMT: 5,

		MaxUploadBytes: 52428800, // 50MB

		Segment: true,

		JobTTL: 1 * time.Hour,

		PDFFallbackPdftotext: true,
	}
}

// Load reads the configuration from the environment.
func Load() Config {
	cfg := Defaults()
	cfg.applyEnv()
	cfg.normalize()
	return cfg
}

// LoadFile reads a YAML file, then applies environment overrides. A
// missing file is not an error.
func LoadFile(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	cfg.applyEnv()
	cfg.normalize()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Port = envOr("PORT", c.Port)
	c.LogLevel = envOr("LOG_LEVEL", c.LogLevel)

	c.APIKey = envOr("DOCLOC_API_KEY", c.APIKey)

	c.SourceLocale = envOr("SOURCE_LOCALE", c.SourceLocale)
	c.TargetLocale = envOr("TARGET_LOCALE", c.TargetLocale)

	c.MTEnabled = envBool("MT_ENABLED", c.MTEnabled)
	c.AnthropicAPIKey = envOr("ANTHROPIC_API_KEY", c.AnthropicAPIKey)
	c.AnthropicModel = envOr("ANTHROPIC_MODEL", c.AnthropicModel)
	c.AnthropicBaseURL = envOr("ANTHROPIC_BASE_URL", c.AnthropicBaseURL)
	c.MTBatchTokens = envInt("MT_BATCH_TOKENS", c.MTBatchTokens)

	c.WorkerCount = envInt("WORKER_COUNT", c.WorkerCount)
	c.MaxQueueSize = envInt("MAX_QUEUE_SIZE", c.MaxQueueSize)
	c.MaxConcurrentMT = envInt("MAX_CONCURRENT_MT", c.MaxConcurrentMT)

	c.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", c.MaxUploadBytes)

	c.Segment = envBool("SEGMENT", c.Segment)
	c.MinSegmentRunes = envInt("MIN_SEGMENT_RUNES", c.MinSegmentRunes)

	c.JobTTL = envDuration("JOB_TTL", c.JobTTL)

	c.PDFFallbackPdftotext = envBool("PDF_FALLBACK_PDFTOTEXT", c.PDFFallbackPdftotext)
}

func (c *Config) normalize() {
	d := Defaults()
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = d.MaxQueueSize
	}
	if c.MaxConcurrentMT <= 0 {
		c.MaxConcurrentMT = d.MaxConcurrentMT
	}
	if c.MTBatchTokens <= 0 {
		c.MTBatchTokens = d.MTBatchTokens
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = d.MaxUploadBytes
	}
	if c.MinSegmentRunes < 0 {
		c.MinSegmentRunes = 0
	}
	if c.JobTTL <= 0 {
		c.JobTTL = d.JobTTL
	}
}

// Validate checks the settings the server needs.
func (c Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a number between 1 and 65535, got %q", c.Port)
	}
	if c.WorkerCount <= 0 {
		return fmt.Errorf("WORKER_COUNT must be positive, got %d", c.WorkerCount)
	}
	if c.APIKey == "" {
		return fmt.Errorf("DOCLOC_API_KEY is required")
	}
	if c.MTEnabled && c.AnthropicAPIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required when MT_ENABLED is set")
	}
	if _, err := locale.Parse(c.SourceLocale); err != nil {
		return fmt.Errorf("SOURCE_LOCALE: %w", err)
	}
	if _, err := locale.Parse(c.TargetLocale); err != nil {
		return fmt.Errorf("TARGET_LOCALE: %w", err)
	}
	return nil
}

// Source returns the parsed source locale.
func (c Config) Source() locale.ID {
	id, _ := locale.Parse(c.SourceLocale)
	return id
}

// Target returns the parsed default target locale, possibly empty.
func (c Config) Target() locale.ID {
	id, _ := locale.Parse(c.TargetLocale)
	return id
}

// YAML renders the configuration with secrets masked.
func (c Config) YAML() ([]byte, error) {
	c.APIKey = mask(c.APIKey)
	c.AnthropicAPIKey = mask(c.AnthropicAPIKey)
	return yaml.MarshalWithOptions(c, yaml.CustomMarshaler[time.Duration](
		func(d time.Duration) ([]byte, error) {
			return yaml.Marshal(d.String())
		},
	))
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
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
