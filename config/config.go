package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/pevans/newsprobe/logging"
)

// DefaultCategoryURL is the Wikipedia category listing news websites by
// country.
const DefaultCategoryURL = "https://en.wikipedia.org/wiki/Category:News_websites_by_country"

// Config is the effective configuration of every pipeline stage.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Log      logging.Config `yaml:"log"`
	Validate ValidateConfig `yaml:"validate"`
	Crawl    CrawlConfig    `yaml:"crawl"`
	Extract  ExtractConfig  `yaml:"extract"`
	Store    StoreConfig    `yaml:"store"`
	Serve    ServeConfig    `yaml:"serve"`
}

// HTTPConfig applies to every outbound request.
type HTTPConfig struct {
	// Per request timeout; there are no retries.
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

// ValidateConfig holds the validator's worker pool size.
type ValidateConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// CrawlConfig holds the Wikipedia crawler settings.
type CrawlConfig struct {
	CategoryURL string `yaml:"category_url"`
	// Minimum spacing between Wikipedia requests; zero disables the limit.
	Delay time.Duration `yaml:"delay"`
}

// ExtractConfig holds the article extraction worker pool sizes.
type ExtractConfig struct {
	FeedWorkers    int `yaml:"feed_workers"`
	ArticleWorkers int `yaml:"article_workers"`
}

// StoreConfig locates the SQLite database runs are recorded in. An empty DSN
// disables recording.
type StoreConfig struct {
	DSN string `yaml:"dsn"`
}

// ServeConfig holds the listen address of the record API.
type ServeConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultConcurrency mirrors the usual thread pool default: one worker per
// CPU plus four, capped at 32.
func DefaultConcurrency() int {
	return min(32, runtime.NumCPU()+4)
}

// Default returns the built in configuration.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:   5 * time.Second,
			UserAgent: "newsprobe/1.0 (news source validator)",
		},
		Log: logging.DefaultConfig(),
		Validate: ValidateConfig{
			Concurrency: DefaultConcurrency(),
		},
		Crawl: CrawlConfig{
			CategoryURL: DefaultCategoryURL,
		},
		Extract: ExtractConfig{
			FeedWorkers:    3,
			ArticleWorkers: 5,
		},
		Serve: ServeConfig{
			Addr: "localhost:8080",
		},
	}
}

// Load resolves configuration with precedence: environment variables over
// the config file over defaults. A missing config file is not an error.
func Load() (*Config, error) {
	cfg := Default()

	file, err := LoadConfigFile()
	if err != nil {
		return nil, err
	}
	if file != nil {
		cfg.Merge(file)
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	return cfg, cfg.Check()
}

// Merge copies every non zero field of other into c.
func (c *Config) Merge(other *Config) {
	if other.HTTP.Timeout != 0 {
		c.HTTP.Timeout = other.HTTP.Timeout
	}
	if other.HTTP.UserAgent != "" {
		c.HTTP.UserAgent = other.HTTP.UserAgent
	}
	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
	if other.Log.Format != "" {
		c.Log.Format = other.Log.Format
	}
	if other.Log.File != "" {
		c.Log.File = other.Log.File
	}
	if other.Log.Console {
		c.Log.Console = true
	}
	if other.Validate.Concurrency != 0 {
		c.Validate.Concurrency = other.Validate.Concurrency
	}
	if other.Crawl.CategoryURL != "" {
		c.Crawl.CategoryURL = other.Crawl.CategoryURL
	}
	if other.Crawl.Delay != 0 {
		c.Crawl.Delay = other.Crawl.Delay
	}
	if other.Extract.FeedWorkers != 0 {
		c.Extract.FeedWorkers = other.Extract.FeedWorkers
	}
	if other.Extract.ArticleWorkers != 0 {
		c.Extract.ArticleWorkers = other.Extract.ArticleWorkers
	}
	if other.Store.DSN != "" {
		c.Store.DSN = other.Store.DSN
	}
	if other.Serve.Addr != "" {
		c.Serve.Addr = other.Serve.Addr
	}
}

// ApplyEnv overrides fields from NEWSPROBE_* environment variables.
func (c *Config) ApplyEnv() error {
	if val := os.Getenv("NEWSPROBE_HTTP_TIMEOUT"); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid NEWSPROBE_HTTP_TIMEOUT: %w", err)
		}
		c.HTTP.Timeout = d
	}
	if val := os.Getenv("NEWSPROBE_USER_AGENT"); val != "" {
		c.HTTP.UserAgent = val
	}
	if val := os.Getenv("NEWSPROBE_LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("NEWSPROBE_LOG_FILE"); val != "" {
		c.Log.File = val
	}
	if val := os.Getenv("NEWSPROBE_CONCURRENCY"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid NEWSPROBE_CONCURRENCY: %w", err)
		}
		c.Validate.Concurrency = n
	}
	if val := os.Getenv("NEWSPROBE_STORE_DSN"); val != "" {
		c.Store.DSN = val
	}
	return nil
}

// Check rejects settings no stage can run with.
func (c *Config) Check() error {
	if c.HTTP.Timeout <= 0 {
		return errors.New("http.timeout must be positive")
	}
	if c.Validate.Concurrency < 1 {
		return errors.New("validate.concurrency must be at least 1")
	}
	if c.Extract.FeedWorkers < 1 || c.Extract.ArticleWorkers < 1 {
		return errors.New("extract workers must be at least 1")
	}
	if c.Crawl.Delay < 0 {
		return errors.New("crawl.delay must not be negative")
	}
	return nil
}
