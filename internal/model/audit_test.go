package model

import "testing"

// TestAuditReportOutputRecords tests the fail-safe output rule.
func TestAuditReportOutputRecords(t *testing.T) {
	t.Parallel()

	t.Run("empty report yields exactly one sentinel", func(t *testing.T) {
		t.Parallel()

		report := NewAuditReport("https://example.com")
		out := report.OutputRecords()
		if len(out) != 1 {
			t.Fatalf("expected 1 record, got %d", len(out))
		}
		if !out[0].IsSentinel() {
			t.Error("expected sentinel record")
		}
	})

	t.Run("non-empty report yields records without sentinel", func(t *testing.T) {
		t.Parallel()

		report := NewAuditReport("https://example.com")
		report.Records = append(report.Records,
			PageRecord{URL: "https://example.com/", Status: "200"},
			NewDegradedRecord("https://example.com/x.pdf", "200", NoteNonHTMLPrefix+"application/pdf"),
		)

		out := report.OutputRecords()
		if len(out) != 2 {
			t.Fatalf("expected 2 records, got %d", len(out))
		}
		for _, rec := range out {
			if rec.IsSentinel() {
				t.Error("unexpected sentinel record")
			}
		}
	})

	t.Run("session IDs are unique", func(t *testing.T) {
		t.Parallel()

		a := NewAuditReport("https://example.com")
		b := NewAuditReport("https://example.com")
		if a.SessionID == "" || a.SessionID == b.SessionID {
			t.Errorf("expected distinct non-empty session IDs, got %q and %q", a.SessionID, b.SessionID)
		}
	})
}

// TestAuditReportSummarize tests summary counts.
func TestAuditReportSummarize(t *testing.T) {
	t.Parallel()

	report := NewAuditReport("https://example.com")
	report.Records = []PageRecord{
		{URL: "https://example.com/", Status: "200", Title: "Home"},
		{URL: "https://example.com/about", Status: "200", Title: "Home", DuplicateTitle: true},
		{URL: "https://example.com/empty", Status: "200", DuplicateH1: true},
		NewDegradedRecord("https://other.com/", StatusSkipped, NoteExternalLink),
		NewDegradedRecord("https://example.com/down", StatusFailed, "connection refused"),
	}

	s := report.Summarize()
	if s.Total != 5 {
		t.Errorf("expected total 5, got %d", s.Total)
	}
	if s.Audited != 3 {
		t.Errorf("expected 3 audited, got %d", s.Audited)
	}
	if s.Skipped != 1 {
		t.Errorf("expected 1 skipped, got %d", s.Skipped)
	}
	if s.Failed != 1 {
		t.Errorf("expected 1 failed, got %d", s.Failed)
	}
	if s.DuplicateTitles != 1 {
		t.Errorf("expected 1 duplicate title, got %d", s.DuplicateTitles)
	}
	if s.DuplicateH1s != 1 {
		t.Errorf("expected 1 duplicate h1, got %d", s.DuplicateH1s)
	}
	if s.MissingTitles != 1 {
		t.Errorf("expected 1 missing title, got %d", s.MissingTitles)
	}
}
