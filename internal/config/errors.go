package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoStartURL is returned when no start URL was given.
	ErrNoStartURL = errors.New("no start URL specified: provide an absolute http(s) URL")

	// ErrInvalidStartURL is returned when the start URL is not an absolute
	// http or https URL with a host. The crawl never starts in this case.
	ErrInvalidStartURL = errors.New("invalid start URL: must be an absolute http or https URL")

	// ErrInvalidTimeout is returned when the per-fetch timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidConcurrency is returned when the concurrency limit is not positive.
	// A limit of zero would mean no fetch could ever be dispatched.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidRetries is returned when the retry budget is negative.
	ErrInvalidRetries = errors.New("invalid retry budget: must be non-negative")

	// ErrInvalidCrawlDelay is returned when the crawl delay is negative.
	ErrInvalidCrawlDelay = errors.New("invalid crawl delay: must be non-negative")

	// ErrInvalidRateLimit is returned when the per-host rate limit is negative.
	ErrInvalidRateLimit = errors.New("invalid rate limit: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidMaxPages is returned when the page budget is negative.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be non-negative")

	// ErrNoOutputPath is returned when the output artifact path is empty.
	ErrNoOutputPath = errors.New("no output path specified")

	// ErrInvalidSiteConfig is returned by LoadConfigFile when a site entry
	// has a malformed host key, glob pattern or page budget.
	ErrInvalidSiteConfig = errors.New("invalid site configuration")

	// ErrUnknownOutputFormat is returned for an output format other than
	// csv, json, markdown or xlsx.
	ErrUnknownOutputFormat = errors.New("unknown output format: use csv, json, markdown or xlsx")
)
