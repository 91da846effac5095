package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "seoaudit"

	// DefaultTimeout bounds a single fetch, including redirects and body read.
	DefaultTimeout = 30 * time.Second

	// DefaultConcurrency is the number of fetches allowed in flight at once.
	DefaultConcurrency = 8

	// DefaultMaxRetries is how many times a transient fetch failure is retried.
	DefaultMaxRetries = 1

	// DefaultMaxPages is the crawl budget. Zero means no budget.
	DefaultMaxPages = 0

	// DefaultCrawlDelay is the minimum delay between two requests to the same host.
	DefaultCrawlDelay = 0

	// DefaultUserAgent identifies seoaudit in HTTP requests and is the agent
	// name matched against robots.txt groups.
	DefaultUserAgent = "seoaudit/1.0 (+https://github.com/nao1215/seoaudit)"

	// DefaultMaxBodySize limits the maximum response body size to read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultOutputPath is where the result artifact is written.
	DefaultOutputPath = "out/results.csv"

	// DefaultProgressPath is where the progress snapshot is written.
	DefaultProgressPath = "out/progress.json"

	// DefaultOutputFormat is the result artifact format.
	DefaultOutputFormat = FormatCSV
)

// Output formats accepted by the result sink.
const (
	FormatCSV      = "csv"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatXLSX     = "xlsx"
)

// Config holds all configuration options for one audit session.
// It is populated from CLI flags and passed down explicitly; nothing
// reads configuration from global state.
type Config struct {
	// StartURL is the absolute http(s) URL the crawl starts from.
	// Its host defines the audited registrable domain.
	StartURL string

	// OutputPath is the file the result artifact is written to.
	OutputPath string

	// OutputFormat is one of csv, json, markdown or xlsx.
	OutputFormat string

	// ProgressPath is the file the progress snapshot is written to.
	// Empty disables progress reporting.
	ProgressPath string

	// Concurrency is the maximum number of fetches in flight.
	Concurrency int

	// Timeout is the per-fetch timeout.
	Timeout time.Duration

	// MaxRetries is the retry budget for transient fetch failures.
	MaxRetries int

	// MaxPages stops admitting new URLs once this many were admitted.
	// A value of 0 means no budget.
	MaxPages int

	// CrawlDelay is the minimum delay between requests to the same host.
	CrawlDelay time.Duration

	// RateLimit caps requests per second per host. Zero means unlimited.
	RateLimit float64

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	// Set to 0 to use the default (5MB).
	MaxBodySize int64

	// RespectRobots makes the fetcher honor robots.txt disallow rules.
	RespectRobots bool

	// FlagEmptyDuplicates makes two pages with an empty title (or h1)
	// count as duplicates of each other.
	FlagEmptyDuplicates bool

	// CaseInsensitiveDuplicates compares titles and h1s with case folding.
	CaseInsensitiveDuplicates bool

	// Verbose enables detailed log output using slog.LevelDebug.
	Verbose bool

	// JSONLog switches the log output to JSON lines.
	JSONLog bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, FindConfigFile searches the default locations.
	ConfigFilePath string

	// SiteConfigs holds site-specific configurations loaded from the config file.
	SiteConfigs *File

	// DBDir is the directory path for storing the audit history database.
	// Defaults to XDG data directory (~/.local/share/seoaudit on Linux).
	DBDir string

	// SaveToDB indicates whether to save finished audits to the database.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
// Many defaults are non-zero, so callers should start from here instead of
// a zero Config.
func NewConfig() *Config {
	return &Config{
		OutputPath:          DefaultOutputPath,
		OutputFormat:        DefaultOutputFormat,
		ProgressPath:        DefaultProgressPath,
		Concurrency:         DefaultConcurrency,
		Timeout:             DefaultTimeout,
		MaxRetries:          DefaultMaxRetries,
		MaxPages:            DefaultMaxPages,
		CrawlDelay:          DefaultCrawlDelay,
		UserAgent:           DefaultUserAgent,
		MaxBodySize:         DefaultMaxBodySize,
		RespectRobots:       true,
		FlagEmptyDuplicates: true,
	}
}

// XDGDataDir returns the XDG data directory for seoaudit.
// On Linux: ~/.local/share/seoaudit
// On macOS: ~/Library/Application Support/seoaudit
// On Windows: %LOCALAPPDATA%\seoaudit
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for seoaudit.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// ParseStartURL parses raw as a crawl start URL.
// It accepts only absolute http and https URLs that carry a host.
func ParseStartURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrNoStartURL
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStartURL, err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStartURL, raw)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: %q has no host", ErrInvalidStartURL, raw)
	}

	return u, nil
}

// IsKnownFormat reports whether format is an accepted output format.
func IsKnownFormat(format string) bool {
	switch format {
	case FormatCSV, FormatJSON, FormatMarkdown, FormatXLSX:
		return true
	default:
		return false
	}
}

// Validate checks if the configuration is valid.
// It returns the first problem found, wrapped around one of the sentinel
// errors in errors.go. This runs once after CLI parsing, before any fetch.
func (c *Config) Validate() error {
	if _, err := ParseStartURL(c.StartURL); err != nil {
		return err
	}

	if c.OutputPath == "" {
		return ErrNoOutputPath
	}

	if !IsKnownFormat(c.OutputFormat) {
		return fmt.Errorf("%w: %q", ErrUnknownOutputFormat, c.OutputFormat)
	}

	// Timeout must be positive; zero timeout would cause immediate failures
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.MaxRetries < 0 {
		return ErrInvalidRetries
	}

	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}

	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}

	if c.RateLimit < 0 {
		return ErrInvalidRateLimit
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	return nil
}

// EffectiveMaxPages returns the page budget for host, preferring a
// site-specific override from the config file.
func (c *Config) EffectiveMaxPages(host string) int {
	if site := c.SiteConfigs.GetSiteConfig(host); site.MaxPages > 0 {
		return site.MaxPages
	}
	return c.MaxPages
}
