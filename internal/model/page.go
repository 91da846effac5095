package model

import (
	"mime"
	"strings"
	"time"
)

// Page represents a fetched HTTP response.
// The body is already decompressed and converted to UTF-8 by the fetcher.
//
// Design decision: We keep the raw body rather than a parsed document because:
// 1. robots.txt and sitemap targets are not HTML
// 2. The extractor owns parsing and may choose its own selectors
// 3. The body is bounded by MaxPageSize, so memory stays predictable
type Page struct {
	// URL is the URL that was requested.
	URL string `json:"url"`

	// FinalURL is the URL after redirects. Relative links resolve against it.
	FinalURL string `json:"final_url"`

	// StatusCode is the HTTP response status code.
	StatusCode int `json:"status_code"`

	// Headers contains all HTTP response headers.
	Headers map[string][]string `json:"headers"`

	// ContentType is the raw Content-Type header value.
	ContentType string `json:"content_type"`

	// Body contains the decoded response body.
	Body []byte `json:"-"`

	// FetchedAt is when the response finished downloading.
	FetchedAt time.Time `json:"fetched_at"`
}

// MaxPageSize is the maximum size of a response body the fetcher keeps.
const MaxPageSize = 5 * 1024 * 1024 // 5 MB

// GetHeader returns the first value of the specified header.
// Returns empty string if the header is not present.
func (p *Page) GetHeader(name string) string {
	if values, ok := p.Headers[name]; ok && len(values) > 0 {
		return values[0]
	}
	return ""
}

// MediaType returns the lower-cased media type without parameters.
func (p *Page) MediaType() string {
	ct := strings.TrimSpace(p.ContentType)
	if ct == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		// Fall back to everything before the first ';'
		mediaType, _, _ = strings.Cut(ct, ";")
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

// IsHTML returns true if the content type starts with text/html.
func (p *Page) IsHTML() bool {
	return strings.HasPrefix(p.MediaType(), "text/html")
}

// IsSuccess returns true for 2xx status codes.
func (p *Page) IsSuccess() bool {
	return p.StatusCode >= 200 && p.StatusCode < 300
}

// BaseURL returns the URL relative links should resolve against.
func (p *Page) BaseURL() string {
	if p.FinalURL != "" {
		return p.FinalURL
	}
	return p.URL
}
