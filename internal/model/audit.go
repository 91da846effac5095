package model

import (
	"time"

	"github.com/google/uuid"
)

// AuditReport is the ordered output of one crawl session.
type AuditReport struct {
	// SessionID uniquely identifies the crawl session.
	SessionID string `json:"session_id"`

	// StartURL is the seed URL of the session.
	StartURL string `json:"start_url"`

	// Domain is the registrable domain bounding the crawl.
	Domain string `json:"domain"`

	// Records holds the audit rows in arrival order.
	Records []PageRecord `json:"records"`

	// Completed is true when the frontier drained without cancellation.
	Completed bool `json:"completed"`

	// StartedAt is when the session was created.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the report was finalized.
	FinishedAt time.Time `json:"finished_at"`
}

// NewAuditReport creates an empty report with a fresh session ID.
func NewAuditReport(startURL string) *AuditReport {
	return &AuditReport{
		SessionID: uuid.NewString(),
		StartURL:  startURL,
		Records:   make([]PageRecord, 0),
		StartedAt: time.Now(),
	}
}

// IsEmpty reports whether no real records were produced.
func (r *AuditReport) IsEmpty() bool {
	for _, rec := range r.Records {
		if !rec.IsSentinel() {
			return false
		}
	}
	return true
}

// OutputRecords returns the rows to write: the records, or exactly one
// sentinel row when there are none.
func (r *AuditReport) OutputRecords() []PageRecord {
	if r.IsEmpty() {
		return []PageRecord{NewSentinelRecord()}
	}
	return r.Records
}

// Summary contains counts derived from an AuditReport.
type Summary struct {
	Total           int `json:"total"`
	Audited         int `json:"audited"`
	Skipped         int `json:"skipped"`
	Failed          int `json:"failed"`
	DuplicateTitles int `json:"duplicate_titles"`
	DuplicateH1s    int `json:"duplicate_h1s"`
	MissingTitles   int `json:"missing_titles"`
}

// Summarize computes counts over the report's records.
func (r *AuditReport) Summarize() Summary {
	var s Summary
	for _, rec := range r.Records {
		if rec.IsSentinel() {
			continue
		}
		s.Total++
		switch {
		case rec.IsFailure():
			s.Failed++
		case rec.IsSkipped():
			s.Skipped++
		case !rec.Degraded:
			s.Audited++
			if rec.Title == "" {
				s.MissingTitles++
			}
		}
		if rec.DuplicateTitle {
			s.DuplicateTitles++
		}
		if rec.DuplicateH1 {
			s.DuplicateH1s++
		}
	}
	return s
}
