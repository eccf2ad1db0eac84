package common

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string         `toml:"environment"` // "development" or "production"
	Server      ServerConfig   `toml:"server"`
	Storage     StorageConfig  `toml:"storage"`
	Logging     LoggingConfig  `toml:"logging"`
	Queue       QueueConfig    `toml:"queue"`
	Pipeline    PipelineConfig `toml:"pipeline"`
	Linker      LinkerConfig   `toml:"linker"`
	LLM         LLMConfig      `toml:"llm"`
	Gemini      GeminiConfig   `toml:"gemini"`
	Claude      ClaudeConfig   `toml:"claude"`
	Images      ImagesConfig   `toml:"images"`
	Crawler     CrawlerConfig  `toml:"crawler"`
	NATS        NATSConfig     `toml:"nats"`
	Metrics     MetricsConfig  `toml:"metrics"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"min=1,max=65535"`
	Host string `toml:"host" validate:"required"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig contains BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"`
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup (development only)
}

type LoggingConfig struct {
	Level  string   `toml:"level" validate:"oneof=trace debug info warn error"`
	Output []string `toml:"output"` // "stdout", "console", "file"
}

// QueueConfig controls the job queue and its worker pool
type QueueConfig struct {
	Concurrency      int    `toml:"concurrency" validate:"min=1,max=64"`
	PollInterval     string `toml:"poll_interval"`     // e.g. "2s"
	LeaseTimeout     string `toml:"lease_timeout"`     // PROCESSING jobs older than this are reclaimed
	RecoverySchedule string `toml:"recovery_schedule"` // cron expression for the recovery sweep
	RecoverOnRead    bool   `toml:"recover_on_read"`   // Run the recovery sweep lazily on status reads
	LinkGraphLimit   int    `toml:"link_graph_limit" validate:"min=0"`
}

// PipelineConfig holds the pipeline quality thresholds and timeouts
type PipelineConfig struct {
	CallTimeout          string  `toml:"call_timeout"`
	ResearchTimeout      string  `toml:"research_timeout"`
	ToneTolerance        float64 `toml:"tone_tolerance" validate:"gt=0,lte=1"`
	SEOTolerance         float64 `toml:"seo_tolerance" validate:"gt=0,lte=1"`
	ParagraphWordCeiling int     `toml:"paragraph_word_ceiling" validate:"min=20"`
	SectionMissingLimit  int     `toml:"section_missing_limit" validate:"min=1"`
	DedupWindowRatio     float64 `toml:"dedup_window_ratio" validate:"gt=0,lt=1"`
	DedupCutoffRatio     float64 `toml:"dedup_cutoff_ratio" validate:"gt=0,lte=1"`
	DedupMinWindow       int     `toml:"dedup_min_window" validate:"min=10"`
}

// LinkerConfig controls the post-publish internal linker
type LinkerConfig struct {
	Enabled          bool    `toml:"enabled"`
	Window           int     `toml:"window" validate:"min=1"`
	MinTargets       int     `toml:"min_targets" validate:"min=1"`
	MaxTargets       int     `toml:"max_targets" validate:"min=1,gtefield=MinTargets"`
	MinLengthRatio   float64 `toml:"min_length_ratio" validate:"gt=0,lte=1"`
	SelectionTimeout string  `toml:"selection_timeout"`
}

// LLMProvider identifies a text generation backend
type LLMProvider string

const (
	LLMProviderGemini LLMProvider = "gemini"
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig contains provider selection and process-wide rate limiting
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider" validate:"oneof=gemini claude"`
	RateLimit       float64     `toml:"rate_limit" validate:"gte=0"` // Calls per second, 0 disables
	RateBurst       int         `toml:"rate_burst" validate:"min=1"`
	MaxRetries      int         `toml:"max_retries" validate:"min=0"`
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Temperature float32 `toml:"temperature"`
	Timeout     string  `toml:"timeout"`
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Temperature float32 `toml:"temperature"`
	Timeout     string  `toml:"timeout"`
}

// ImagesConfig controls featured image generation
type ImagesConfig struct {
	Enabled bool   `toml:"enabled"`
	Model   string `toml:"model"`
	Dir     string `toml:"dir"`
	BaseURL string `toml:"base_url"`
	Timeout string `toml:"timeout"`
}

// CrawlerConfig controls site crawling for brand context
type CrawlerConfig struct {
	UserAgent          string `toml:"user_agent"`
	RequestTimeout     string `toml:"request_timeout"`
	MaxPages           int    `toml:"max_pages" validate:"min=0"`
	EnableJavaScript   bool   `toml:"enable_javascript"`
	JavaScriptWaitTime string `toml:"javascript_wait_time"`
}

// NATSConfig controls the published-article event sink
type NATSConfig struct {
	Enabled bool   `toml:"enabled"`
	URL     string `toml:"url"`
	Subject string `toml:"subject"`
	Name    string `toml:"name"`
}

type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

// NewDefaultConfig creates a configuration with default values
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in scribe.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/scribe.badger",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Queue: QueueConfig{
			Concurrency:      2,
			PollInterval:     "2s",
			LeaseTimeout:     "15m",
			RecoverySchedule: "@every 1m",
			RecoverOnRead:    true,
			LinkGraphLimit:   30,
		},
		Pipeline: PipelineConfig{
			CallTimeout:          "3m",
			ResearchTimeout:      "90s",
			ToneTolerance:        0.70,
			SEOTolerance:         0.70,
			ParagraphWordCeiling: 150,
			SectionMissingLimit:  2,
			DedupWindowRatio:     0.30,
			DedupCutoffRatio:     0.70,
			DedupMinWindow:       200,
		},
		Linker: LinkerConfig{
			Enabled:          true,
			Window:           30,
			MinTargets:       3,
			MaxTargets:       5,
			MinLengthRatio:   0.85,
			SelectionTimeout: "60s",
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
			RateLimit:       1,
			RateBurst:       2,
			MaxRetries:      5,
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.5-flash",
			Temperature: 0.7,
			Timeout:     "5m",
		},
		Claude: ClaudeConfig{
			Model:       "claude-sonnet-4-5",
			Temperature: 0.7,
			Timeout:     "5m",
		},
		Images: ImagesConfig{
			Enabled: true,
			Model:   "imagen-4.0-generate-001",
			Dir:     "./data/images",
			BaseURL: "/images",
			Timeout: "2m",
		},
		Crawler: CrawlerConfig{
			UserAgent:          "Mozilla/5.0 (compatible; ScribeBot/1.0)",
			RequestTimeout:     "20s",
			MaxPages:           20,
			EnableJavaScript:   false,
			JavaScriptWaitTime: "2s",
		},
		NATS: NATSConfig{
			Enabled: false,
			URL:     "nats://localhost:4222",
			Subject: "article.published",
			Name:    "scribe",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// LoadFromFile loads configuration from a single file
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration with priority: defaults -> files (in order) -> .env -> env vars.
// Later files override earlier ones; CLI flags are applied by the caller afterwards.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// loadDotEnv populates the process environment from .env without overriding existing variables.
func loadDotEnv() error {
	path := os.Getenv("SCRIBE_ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies SCRIBE_* environment variables to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("SCRIBE_ENV"); env != "" {
		config.Environment = env
	}

	// Server
	if port := os.Getenv("SCRIBE_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("SCRIBE_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage
	if badgerPath := os.Getenv("SCRIBE_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Logging
	if level := os.Getenv("SCRIBE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("SCRIBE_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Queue
	if concurrency := os.Getenv("SCRIBE_QUEUE_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil {
			config.Queue.Concurrency = c
		}
	}
	if v := os.Getenv("SCRIBE_QUEUE_POLL_INTERVAL"); v != "" {
		config.Queue.PollInterval = v
	}
	if v := os.Getenv("SCRIBE_QUEUE_LEASE_TIMEOUT"); v != "" {
		config.Queue.LeaseTimeout = v
	}
	if v := os.Getenv("SCRIBE_QUEUE_RECOVERY_SCHEDULE"); v != "" {
		config.Queue.RecoverySchedule = v
	}

	// Pipeline
	if v := os.Getenv("SCRIBE_PIPELINE_CALL_TIMEOUT"); v != "" {
		config.Pipeline.CallTimeout = v
	}

	// LLM
	if provider := os.Getenv("SCRIBE_LLM_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(provider)
	}
	if v := os.Getenv("SCRIBE_LLM_RATE_LIMIT"); v != "" {
		if r, err := strconv.ParseFloat(v, 64); err == nil {
			config.LLM.RateLimit = r
		}
	}

	// Gemini
	if apiKey := os.Getenv("SCRIBE_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if model := os.Getenv("SCRIBE_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}

	// Claude
	if apiKey := os.Getenv("SCRIBE_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if model := os.Getenv("SCRIBE_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}

	// Images
	if v := os.Getenv("SCRIBE_IMAGES_ENABLED"); v != "" {
		config.Images.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("SCRIBE_IMAGES_DIR"); v != "" {
		config.Images.Dir = v
	}
	if v := os.Getenv("SCRIBE_IMAGES_BASE_URL"); v != "" {
		config.Images.BaseURL = v
	}

	// NATS
	if v := os.Getenv("SCRIBE_NATS_ENABLED"); v != "" {
		config.NATS.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("SCRIBE_NATS_URL"); v != "" {
		config.NATS.URL = v
	}
	if v := os.Getenv("SCRIBE_NATS_SUBJECT"); v != "" {
		config.NATS.Subject = v
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
// Flags have the highest priority
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

var configValidator = validator.New()

// Validate checks struct constraints and duration strings
func (c *Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	durations := map[string]string{
		"queue.poll_interval":          c.Queue.PollInterval,
		"queue.lease_timeout":          c.Queue.LeaseTimeout,
		"pipeline.call_timeout":        c.Pipeline.CallTimeout,
		"pipeline.research_timeout":    c.Pipeline.ResearchTimeout,
		"linker.selection_timeout":     c.Linker.SelectionTimeout,
		"crawler.request_timeout":      c.Crawler.RequestTimeout,
		"crawler.javascript_wait_time": c.Crawler.JavaScriptWaitTime,
	}
	for name, value := range durations {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid configuration: %s=%q: %w", name, value, err)
		}
	}

	return nil
}

// ParseDuration parses value, returning fallback when empty or invalid
func ParseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Environment)
	return env == "production" || env == "prod"
}

// ResolveAPIKey returns the configured key, falling back to the named environment variables.
func ResolveAPIKey(configValue string, envNames ...string) (string, error) {
	if strings.TrimSpace(configValue) != "" {
		return configValue, nil
	}
	for _, name := range envNames {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("API key not configured (set it in config or one of %s)", strings.Join(envNames, ", "))
}
