package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds settings for both the discovery and extraction pipelines.
type Config struct {
	// Discovery pipeline.
	ListURL   string        // listing/shelf page to paginate through
	MaxURLs   int           // stop once this many unique detail URLs are collected
	PageDelay time.Duration // fixed sleep between listing pages
	URLsFile  string        // line-delimited URL artifact path

	// Extraction pipeline.
	InputFile     string        // URL list consumed by the batch scraper
	MaxAttempts   int           // total tries per detail page
	RetryWait     time.Duration // fixed wait between tries, no backoff
	DelayMin      time.Duration // courtesy jitter lower bound between pages
	DelayMax      time.Duration // courtesy jitter upper bound
	MaxGenres     int           // cap on collected genres, 0 means unbounded
	DedupeMaxSize int           // bound on the seen-title cache
	OutputBase    string        // store base path, extension added per format
	OutputFormat  string        // json, csv, or dual

	// Shared.
	Timeout          time.Duration
	UserAgent        string
	MetricsAddr      string
	Verbose          bool
	RespectRobotsTxt bool
}

// DefaultConfig returns conservative defaults mirroring the original
// scraping scripts: three tries with a two second wait, one to three
// seconds of jitter between detail pages, twenty URLs per discovery run.
func DefaultConfig() *Config {
	return &Config{
		ListURL:       "",
		MaxURLs:       20,
		PageDelay:     2 * time.Second,
		URLsFile:      "urls.txt",
		InputFile:     "urls.txt",
		MaxAttempts:   3,
		RetryWait:     2 * time.Second,
		DelayMin:      1 * time.Second,
		DelayMax:      3 * time.Second,
		MaxGenres:     0,
		DedupeMaxSize: 10000,
		OutputBase:    "books",
		OutputFormat:  "dual",
		Timeout:       10 * time.Second,
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
			"(KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
		MetricsAddr:      "",
		Verbose:          false,
		RespectRobotsTxt: false,
	}
}

// ValidateDiscover checks the settings the discovery crawler depends on.
func (c *Config) ValidateDiscover() error {
	if c.ListURL == "" {
		return fmt.Errorf("listing URL cannot be empty")
	}
	parsed, err := url.Parse(c.ListURL)
	if err != nil {
		return fmt.Errorf("invalid listing URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("listing URL must be absolute with scheme and host")
	}
	if c.MaxURLs <= 0 {
		return fmt.Errorf("max URLs must be positive")
	}
	if c.PageDelay < 0 {
		return fmt.Errorf("page delay cannot be negative")
	}
	if c.URLsFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	return c.validateShared()
}

// ValidateScrape checks the settings the extraction batch depends on.
func (c *Config) ValidateScrape() error {
	if c.InputFile == "" {
		return fmt.Errorf("input file cannot be empty")
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts must be positive")
	}
	if c.RetryWait < 0 {
		return fmt.Errorf("retry wait cannot be negative")
	}
	if c.DelayMin < 0 || c.DelayMax < 0 {
		return fmt.Errorf("delay bounds cannot be negative")
	}
	if c.DelayMax < c.DelayMin {
		return fmt.Errorf("delay max (%s) cannot be below delay min (%s)", c.DelayMax, c.DelayMin)
	}
	if c.MaxGenres < 0 {
		return fmt.Errorf("max genres cannot be negative")
	}
	if c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe max size must be positive")
	}
	if c.OutputBase == "" {
		return fmt.Errorf("output base cannot be empty")
	}
	switch strings.ToLower(c.OutputFormat) {
	case "json", "csv", "dual":
	default:
		return fmt.Errorf("output format must be json, csv, or dual")
	}
	return c.validateShared()
}

func (c *Config) validateShared() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	return nil
}

// EnvString reads a non-empty string environment override.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return "", false
	}
	return value, true
}

// EnvInt reads an integer environment override.
func EnvInt(key string) (int, bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return 0, false, nil
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, false, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return parsed, true, nil
}
