package main

import (
	"bytes"
	"context"
	"encoding/json"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/seoaudit/internal/database"
	"github.com/nao1215/seoaudit/internal/model"
)

func newAudit(domain string, startedAt time.Time, records ...model.PageRecord) *model.AuditReport {
	r := model.NewAuditReport("https://" + domain + "/")
	r.Domain = domain
	r.StartedAt = startedAt
	r.FinishedAt = startedAt.Add(time.Minute)
	r.Completed = true
	r.Records = append(r.Records, records...)
	return r
}

func page(url, status, title string, dupTitle bool) model.PageRecord {
	return model.PageRecord{URL: url, Status: status, Title: title, DuplicateTitle: dupTitle}
}

// seedHistory stores the given audits in a database under a temp directory
// and returns the directory.
func seedHistory(t *testing.T, audits ...*model.AuditReport) string {
	t.Helper()

	dir := t.TempDir()
	db, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	for _, a := range audits {
		if _, err := db.SaveAudit(context.Background(), a); err != nil {
			t.Fatalf("failed to save audit: %v", err)
		}
	}
	return dir
}

func TestNewHistoryCmd(t *testing.T) {
	t.Parallel()

	cmd := NewHistoryCmd()

	if cmd.Use != "history [domain]" {
		t.Errorf("unexpected Use: got %q", cmd.Use)
	}

	flagsWithShort := map[string]string{
		"list":         "l",
		"list-domains": "L",
		"with-id":      "i",
		"json":         "j",
		"markdown":     "m",
	}
	for flag, shorthand := range flagsWithShort {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			t.Errorf("expected flag %q to exist", flag)
			continue
		}
		if f.Shorthand != shorthand {
			t.Errorf("flag %q: expected shorthand %q, got %q", flag, shorthand, f.Shorthand)
		}
	}

	if cmd.Flags().Lookup("db-dir") != nil {
		t.Error("db-dir flag should not exist")
	}
}

func TestNormalizeDomain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		arg     string
		want    string
		wantErr bool
	}{
		{name: "bare domain", arg: "example.com", want: "example.com"},
		{name: "subdomain", arg: "www.Example.com", want: "example.com"},
		{name: "url", arg: "https://blog.example.co.uk/post", want: "example.co.uk"},
		{name: "trailing dot", arg: "example.com.", want: "example.com"},
		{name: "ip address", arg: "http://127.0.0.1:8080/", want: "127.0.0.1"},
		{name: "empty", arg: "  ", wantErr: true},
		{name: "url without host", arg: "https:///path", wantErr: true},
		{name: "path", arg: "example.com/path", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := normalizeDomain(tt.arg)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestCompareAudits(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	previous := newAudit("example.com", base,
		page("https://example.com/", "200", "Home", false),
		page("https://example.com/old", "200", "Home", true),
		page("https://example.com/moved", "200", "Moved", false),
		page("https://example.com/same", "200", "Home", true),
	)
	current := newAudit("example.com", base.Add(24*time.Hour),
		page("https://example.com/", "200", "Home", false),
		page("https://example.com/moved", "404", "Moved", false),
		page("https://example.com/same", "200", "Same", false),
		page("https://example.com/new", "200", "Home", true),
		model.NewSentinelRecord(),
	)

	result := compareAudits(previous, current)

	if result.Domain != "example.com" {
		t.Errorf("unexpected domain: %q", result.Domain)
	}
	if !slices.Equal(result.NewURLs, []string{"https://example.com/new"}) {
		t.Errorf("unexpected new URLs: %v", result.NewURLs)
	}
	if !slices.Equal(result.RemovedURLs, []string{"https://example.com/old"}) {
		t.Errorf("unexpected removed URLs: %v", result.RemovedURLs)
	}
	if len(result.StatusChanges) != 1 || result.StatusChanges[0] != (StatusChange{
		URL: "https://example.com/moved", Previous: "200", Current: "404",
	}) {
		t.Errorf("unexpected status changes: %v", result.StatusChanges)
	}
	if !slices.Equal(result.NewDuplicateTitles, []string{"https://example.com/new"}) {
		t.Errorf("unexpected new duplicate titles: %v", result.NewDuplicateTitles)
	}
	if !slices.Equal(result.ResolvedDuplicateTitles, []string{"https://example.com/old", "https://example.com/same"}) {
		t.Errorf("unexpected resolved duplicate titles: %v", result.ResolvedDuplicateTitles)
	}
	if result.Previous.Summary.DuplicateTitles != 2 || result.Current.Summary.DuplicateTitles != 1 {
		t.Errorf("unexpected summaries: %+v / %+v", result.Previous.Summary, result.Current.Summary)
	}
}

func TestCalculateTrend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		previous model.Summary
		current  model.Summary
		want     string
	}{
		{name: "fewer failures", previous: model.Summary{Failed: 2}, current: model.Summary{Failed: 1}, want: trendImproved},
		{name: "more duplicates", previous: model.Summary{DuplicateTitles: 1}, current: model.Summary{DuplicateTitles: 3}, want: trendWorsened},
		{name: "same score", previous: model.Summary{DuplicateH1s: 1}, current: model.Summary{MissingTitles: 1}, want: trendUnchanged},
		{name: "failure outweighs duplicates", previous: model.Summary{DuplicateTitles: 3}, current: model.Summary{Failed: 1}, want: trendWorsened},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := calculateTrend(tt.previous, tt.current); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestFormatDelta(t *testing.T) {
	t.Parallel()

	tests := map[int]string{3: "+3", 0: "0", -2: "-2"}
	for delta, want := range tests {
		if got := formatDelta(delta); got != want {
			t.Errorf("formatDelta(%d) = %q, want %q", delta, got, want)
		}
	}
}

func TestFormatSummary(t *testing.T) {
	t.Parallel()

	if got := formatSummary(model.Summary{}); got != "no rows" {
		t.Errorf("unexpected empty summary: %q", got)
	}
	got := formatSummary(model.Summary{Total: 5, Failed: 1, DuplicateTitles: 2})
	if got != "rows:5 failed:1 dup-title:2" {
		t.Errorf("unexpected summary: %q", got)
	}
}

func TestRunHistory(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	dir := seedHistory(t,
		newAudit("example.com", base,
			page("https://example.com/", "200", "Home", false),
			page("https://example.com/broken", "500", "", false),
		),
		newAudit("example.com", base.Add(time.Hour),
			page("https://example.com/", "200", "Home", false),
			page("https://example.com/broken", "200", "Fixed", false),
		),
		newAudit("example.org", base,
			page("https://example.org/", "200", "Org", false),
		),
	)
	ctx := context.Background()

	t.Run("list domains", func(t *testing.T) {
		var buf bytes.Buffer
		if err := runHistory(ctx, dir, historyOptions{listDomains: true}, &buf); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := buf.String()
		if !strings.Contains(out, "Audited domains (2)") ||
			!strings.Contains(out, "example.com") || !strings.Contains(out, "example.org") {
			t.Errorf("unexpected output: %q", out)
		}
	})

	t.Run("list audits", func(t *testing.T) {
		var buf bytes.Buffer
		if err := runHistory(ctx, dir, historyOptions{domain: "example.com", list: true}, &buf); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := buf.String()
		if !strings.Contains(out, "example.com (2 audits)") {
			t.Errorf("unexpected output: %q", out)
		}
		if !strings.Contains(out, "2026-01-01 01:00:00") {
			t.Errorf("expected newest audit in listing: %q", out)
		}
	})

	t.Run("compare as JSON", func(t *testing.T) {
		var buf bytes.Buffer
		if err := runHistory(ctx, dir, historyOptions{domain: "example.com", json: true}, &buf); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var result ComparisonResult
		if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(result.StatusChanges) != 1 || result.StatusChanges[0].Current != "200" {
			t.Errorf("unexpected status changes: %v", result.StatusChanges)
		}
		if !result.Current.StartedAt.After(result.Previous.StartedAt) {
			t.Errorf("expected current audit to be newer: %+v", result)
		}
	})

	t.Run("compare as text", func(t *testing.T) {
		var buf bytes.Buffer
		if err := runHistory(ctx, dir, historyOptions{domain: "example.com"}, &buf); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := buf.String()
		if !strings.Contains(out, "Audit Comparison: example.com") ||
			!strings.Contains(out, "https://example.com/broken: 500 -> 200") {
			t.Errorf("unexpected output: %q", out)
		}
	})

	t.Run("compare as markdown", func(t *testing.T) {
		var buf bytes.Buffer
		if err := runHistory(ctx, dir, historyOptions{domain: "example.com", markdown: true}, &buf); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := buf.String()
		if !strings.Contains(out, "# Audit Comparison: example.com") ||
			!strings.Contains(out, "| Metric | Previous | Current | Change |") {
			t.Errorf("unexpected output: %q", out)
		}
	})

	t.Run("single audit cannot be compared", func(t *testing.T) {
		err := runHistory(ctx, dir, historyOptions{domain: "example.org"}, &bytes.Buffer{})
		if err == nil || !strings.Contains(err.Error(), "at least 2 audits") {
			t.Errorf("expected comparison error, got %v", err)
		}
	})

	t.Run("unknown domain", func(t *testing.T) {
		err := runHistory(ctx, dir, historyOptions{domain: "example.net"}, &bytes.Buffer{})
		if err == nil {
			t.Error("expected error for a domain without audits")
		}
	})

	t.Run("with id of another domain", func(t *testing.T) {
		// IDs are assigned in insertion order; 3 belongs to example.org.
		err := runHistory(ctx, dir, historyOptions{domain: "example.com", withID: 3}, &bytes.Buffer{})
		if err == nil || !strings.Contains(err.Error(), "belongs to example.org") {
			t.Errorf("expected domain mismatch error, got %v", err)
		}
	})

	t.Run("with missing id", func(t *testing.T) {
		err := runHistory(ctx, dir, historyOptions{domain: "example.com", withID: 99}, &bytes.Buffer{})
		if err == nil || !strings.Contains(err.Error(), "not found") {
			t.Errorf("expected not found error, got %v", err)
		}
	})
}

func TestRunHistoryCmd_RequiresDomain(t *testing.T) {
	t.Parallel()

	cmd := NewHistoryCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "domain is required") {
		t.Errorf("expected domain error, got %v", err)
	}
}
