package model

import (
	"strconv"
)

// Status values used in PageRecord.Status for rows without an HTTP status.
const (
	// StatusSkipped marks targets that were deliberately not fetched or not audited.
	StatusSkipped = "skipped"

	// StatusFailed marks targets whose fetch failed.
	StatusFailed = "failed"
)

// Notes attached to degraded records.
const (
	NoteRobotsBlocked   = "blocked by robots.txt"
	NoteExternalLink    = "external or off-domain link"
	NoteNonHTMLPrefix   = "skipped non-HTML resource: "
	NoteUnsupportedLink = "unsupported scheme: "
)

// SentinelMessage is the only cell of the row written when a run audited nothing.
const SentinelMessage = "Empty: run was not completed"

// MaxRobotsTextLength is the number of characters of robots.txt kept in a record.
const MaxRobotsTextLength = 5000

// Columns is the exact header of the record-oriented output artifact.
var Columns = []string{
	"url",
	"status",
	"title",
	"h1",
	"canonical",
	"robots_meta",
	"hreflang_count",
	"duplicate_title",
	"duplicate_h1",
	"note",
}

// PageRecord is one audit row.
// Records are created by the extractor or the classifier and are not
// modified once handed to the result sink.
type PageRecord struct {
	// URL is the audited URL as it was dispatched.
	URL string `json:"url"`

	// Status is the HTTP status code, or StatusSkipped / StatusFailed.
	Status string `json:"status"`

	// Title is the trimmed text of the first <title>.
	Title string `json:"title"`

	// H1 is the trimmed text of the first <h1>, descendants included.
	H1 string `json:"h1"`

	// Canonical is the href of <link rel="canonical">.
	Canonical string `json:"canonical"`

	// RobotsMeta is the comma-joined content of all <meta name="robots">.
	RobotsMeta string `json:"robots_meta"`

	// HreflangCount counts <link rel="alternate" hreflang>.
	HreflangCount int `json:"hreflang_count"`

	// DuplicateTitle is true when an earlier record had the same title.
	DuplicateTitle bool `json:"duplicate_title"`

	// DuplicateH1 is true when an earlier record had the same h1.
	DuplicateH1 bool `json:"duplicate_h1"`

	// Note is an optional diagnostic.
	Note string `json:"note,omitempty"`

	// Degraded is true for records that carry no extracted signals.
	// Degraded records never take part in duplicate detection.
	Degraded bool `json:"-"`
}

// StatusCode formats an HTTP status code for PageRecord.Status.
func StatusCode(code int) string {
	return strconv.Itoa(code)
}

// NewDegradedRecord creates a record with all SEO fields empty.
func NewDegradedRecord(url, status, note string) PageRecord {
	return PageRecord{
		URL:      url,
		Status:   status,
		Note:     note,
		Degraded: true,
	}
}

// NewSentinelRecord creates the placeholder row for a run without records.
func NewSentinelRecord() PageRecord {
	return PageRecord{URL: SentinelMessage, Degraded: true}
}

// IsSentinel reports whether r is the incomplete-run placeholder.
func (r PageRecord) IsSentinel() bool {
	return r.URL == SentinelMessage && r.Status == "" && r.Note == ""
}

// Row returns the record's cells in Columns order.
// The sentinel record carries its message in the url cell and leaves the
// other cells empty, so strict CSV readers accept it.
func (r PageRecord) Row() []string {
	if r.IsSentinel() {
		row := make([]string, len(Columns))
		row[0] = SentinelMessage
		return row
	}
	return []string{
		r.URL,
		r.Status,
		r.Title,
		r.H1,
		r.Canonical,
		r.RobotsMeta,
		strconv.Itoa(r.HreflangCount),
		strconv.FormatBool(r.DuplicateTitle),
		strconv.FormatBool(r.DuplicateH1),
		r.Note,
	}
}

// IsFailure reports whether the record describes a failed fetch.
func (r PageRecord) IsFailure() bool {
	return r.Status == StatusFailed
}

// IsSkipped reports whether the record describes a skipped target.
func (r PageRecord) IsSkipped() bool {
	return r.Status == StatusSkipped
}

// TruncateRunes returns at most n runes of s.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
