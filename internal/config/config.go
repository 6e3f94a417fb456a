// Package config loads runtime configuration from hunt.yaml and the environment.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/huntworks/hunt/internal/secrets"
)

// Config holds all runtime configuration for the hunt service.
type Config struct {
	Listen      string `mapstructure:"listen"`
	DatabaseURL string `mapstructure:"database-url"`
	RedisURL    string `mapstructure:"redis-url"`

	Crawl     *CrawlConfig     `mapstructure:"crawl"`
	LLM       *LLMConfig       `mapstructure:"llm"`
	Embedding *EmbeddingConfig `mapstructure:"embedding"`
	Match     *MatchConfig     `mapstructure:"match"`
	Email     *EmailConfig     `mapstructure:"email"`
	Pipeline  *PipelineConfig  `mapstructure:"pipeline"`
	Discovery *DiscoveryConfig `mapstructure:"discovery"`
}

// CrawlConfig controls the fetcher and maintenance cadence.
type CrawlConfig struct {
	UserAgent         string `mapstructure:"user-agent"`
	UserAgentPool     []string
	TimeoutSeconds    int                  `mapstructure:"timeout-seconds"`
	RenderTimeoutSecs int                  `mapstructure:"render-timeout-seconds"`
	BrowserServiceURL string               `mapstructure:"browser-service-url"`
	RetryAfterCapSecs int                  `mapstructure:"retry-after-cap-seconds"`
	VerifyRefreshDays int                  `mapstructure:"verify-refresh-days"`
	RateLimits        map[string]RateLimit `mapstructure:"rate-limits"`
}

// RateLimit is a token bucket configuration, keyed by host or ATS type.
type RateLimit struct {
	PerSecond float64 `mapstructure:"per-second"`
	Burst     int     `mapstructure:"burst"`
}

// LLMConfig configures the Gemini-backed fallback extractor.
type LLMConfig struct {
	APIKey      string `mapstructure:"api-key"`
	APIKeyFile  string `mapstructure:"api-key-file"`
	Model       string `mapstructure:"model"`
	MaxInputLen int    `mapstructure:"max-input-length"`
}

// EmbeddingConfig configures the embedder.
type EmbeddingConfig struct {
	Model        string `mapstructure:"model"`
	ModelVersion string `mapstructure:"model-version"`
	Dim          int    `mapstructure:"dim"`
	BatchSize    int    `mapstructure:"batch-size"`
}

// MatchConfig configures the matcher.
type MatchConfig struct {
	TopK           int     `mapstructure:"top-k"`
	MinSimilarity  float64 `mapstructure:"min-similarity"`
	ScoreThreshold float64 `mapstructure:"score-threshold"`
}

// EmailConfig configures the digest notifier.
type EmailConfig struct {
	APIKey string `mapstructure:"api-key"`
	From   string `mapstructure:"from"`
}

// PipelineConfig configures orchestration.
type PipelineConfig struct {
	Workers       int `mapstructure:"workers"`
	IntervalHours int `mapstructure:"interval-hours"`
	CrawlBatch    int `mapstructure:"crawl-batch"`
}

// DiscoveryConfig configures discovery sources.
type DiscoveryConfig struct {
	Sources          []string     `mapstructure:"sources"`
	Limit            int          `mapstructure:"limit"`
	RetryCap         int          `mapstructure:"retry-cap"`
	Seeds            []SeedEntry  `mapstructure:"seeds"`
	ProbeIdentifiers []string     `mapstructure:"probe-identifiers"`
	Geography        []string     `mapstructure:"geography"`
	Industries       IndustryRule `mapstructure:"industries"`
}

// SeedEntry is a curated seed company from the config file.
type SeedEntry struct {
	Name       string `mapstructure:"name"`
	Domain     string `mapstructure:"domain"`
	CareersURL string `mapstructure:"careers-url"`
}

// IndustryRule lists industries excluded from intake.
type IndustryRule struct {
	Exclude []string `mapstructure:"exclude"`
}

const (
	defaultUserAgent     = "HuntBot/1.0 (+https://hunt.dev/bot)"
	defaultEmbeddingDim  = 384
	defaultIntervalHours = 6
)

func bindEnv() error {
	bindings := map[string]string{
		"database-url":              "DATABASE_URL",
		"redis-url":                 "REDIS_URL",
		"crawl.user-agent":          "CRAWL_USER_AGENT",
		"crawl.browser-service-url": "BROWSER_SERVICE_URL",
		"crawl.verify-refresh-days": "VERIFY_REFRESH_DAYS",
		"llm.api-key":               "GEMINI_API_KEY",
		"llm.api-key-file":          "GEMINI_API_KEY_FILE",
		"llm.model":                 "LLM_MODEL",
		"embedding.dim":             "EMBEDDING_DIM",
		"embedding.model-version":   "EMBEDDING_MODEL_VERSION",
		"email.api-key":             "RESEND_API_KEY",
		"pipeline.workers":          "MAX_CONCURRENT_WORKERS",
		"pipeline.interval-hours":   "DEFAULT_CRAWL_INTERVAL_HOURS",
	}
	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			return fmt.Errorf("binding %s: %w", env, err)
		}
	}
	return nil
}

// Load unmarshals the viper state into a validated Config with defaults applied.
func Load() (*Config, error) {
	if err := bindEnv(); err != nil {
		return nil, err
	}

	var cfg *Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg == nil {
		cfg = &Config{}
	}

	cfg.applyDefaults()

	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, fmt.Errorf("database-url is required (set DATABASE_URL)")
	}

	return cfg, nil
}

// GeminiKey resolves the Gemini API key from the file or inline value.
func (c *Config) GeminiKey() (string, error) {
	return secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: c.LLM.APIKey,
		File:  c.LLM.APIKeyFile,
	})
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":8000"
	}

	if c.Crawl == nil {
		c.Crawl = &CrawlConfig{}
	}
	if c.Crawl.UserAgent == "" {
		c.Crawl.UserAgent = defaultUserAgent
	}
	if len(c.Crawl.UserAgentPool) == 0 {
		c.Crawl.UserAgentPool = []string{c.Crawl.UserAgent}
	}
	if c.Crawl.TimeoutSeconds <= 0 {
		c.Crawl.TimeoutSeconds = 30
	}
	if c.Crawl.RenderTimeoutSecs <= 0 {
		c.Crawl.RenderTimeoutSecs = 60
	}
	if c.Crawl.RetryAfterCapSecs <= 0 {
		c.Crawl.RetryAfterCapSecs = 120
	}
	if c.Crawl.VerifyRefreshDays <= 0 {
		c.Crawl.VerifyRefreshDays = 7
	}
	if c.Crawl.RateLimits == nil {
		c.Crawl.RateLimits = map[string]RateLimit{}
	}
	// Conservative defaults: slow for unknown hosts, faster for vendor APIs.
	if _, ok := c.Crawl.RateLimits["default"]; !ok {
		c.Crawl.RateLimits["default"] = RateLimit{PerSecond: 1, Burst: 2}
	}
	for _, ats := range []string{"greenhouse", "lever", "ashby"} {
		if _, ok := c.Crawl.RateLimits[ats]; !ok {
			c.Crawl.RateLimits[ats] = RateLimit{PerSecond: 5, Burst: 10}
		}
	}

	if c.LLM == nil {
		c.LLM = &LLMConfig{}
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gemini-2.0-flash"
	}
	if c.LLM.MaxInputLen <= 0 {
		c.LLM.MaxInputLen = 30000
	}

	if c.Embedding == nil {
		c.Embedding = &EmbeddingConfig{}
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-004"
	}
	if c.Embedding.ModelVersion == "" {
		c.Embedding.ModelVersion = "1"
	}
	if c.Embedding.Dim <= 0 {
		c.Embedding.Dim = defaultEmbeddingDim
	}
	if c.Embedding.BatchSize <= 0 {
		c.Embedding.BatchSize = 32
	}

	if c.Match == nil {
		c.Match = &MatchConfig{}
	}
	if c.Match.TopK <= 0 {
		c.Match.TopK = 200
	}
	if c.Match.MinSimilarity <= 0 {
		c.Match.MinSimilarity = 0.5
	}

	if c.Email == nil {
		c.Email = &EmailConfig{}
	}
	if c.Email.From == "" {
		c.Email.From = "Hunt <jobs@hunt.dev>"
	}

	if c.Pipeline == nil {
		c.Pipeline = &PipelineConfig{}
	}
	if c.Pipeline.Workers <= 0 {
		c.Pipeline.Workers = 8
	}
	if c.Pipeline.IntervalHours <= 0 {
		c.Pipeline.IntervalHours = defaultIntervalHours
	}
	if c.Pipeline.CrawlBatch <= 0 {
		c.Pipeline.CrawlBatch = 500
	}

	if c.Discovery == nil {
		c.Discovery = &DiscoveryConfig{}
	}
	if c.Discovery.Limit <= 0 {
		c.Discovery.Limit = 200
	}
	if c.Discovery.RetryCap <= 0 {
		c.Discovery.RetryCap = 3
	}
}
