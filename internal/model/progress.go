package model

import "time"

// ProgressStatus is the lifecycle state of a crawl session.
type ProgressStatus string

const (
	// ProgressRunning is set when the crawl starts.
	ProgressRunning ProgressStatus = "RUNNING"

	// ProgressFinished is set when the frontier drained normally.
	ProgressFinished ProgressStatus = "FINISHED"

	// ProgressFailed is set when the session was cancelled or aborted.
	ProgressFailed ProgressStatus = "FAILED"
)

// ProgressSnapshot is the progress artifact read by external monitors.
// It is replaced wholesale on every update.
type ProgressSnapshot struct {
	// ItemsScraped counts terminal outcomes that produced a record.
	ItemsScraped int `json:"items_scraped"`

	// SitemapTotal is the number of http(s) <loc> entries of the first
	// sitemap seen. Nil until a sitemap has been parsed.
	SitemapTotal *int `json:"sitemap_total"`

	// LastURL is the URL of the most recent terminal outcome.
	LastURL string `json:"last_url"`

	// Status is the session lifecycle state.
	Status ProgressStatus `json:"status"`

	// Timestamp is when the snapshot was produced.
	Timestamp time.Time `json:"ts"`
}

// IsTerminal reports whether no further updates will follow.
func (s ProgressSnapshot) IsTerminal() bool {
	return s.Status == ProgressFinished || s.Status == ProgressFailed
}
