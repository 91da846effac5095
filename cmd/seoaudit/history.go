package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/seoaudit/internal/config"
	"github.com/nao1215/seoaudit/internal/crawler"
	"github.com/nao1215/seoaudit/internal/database"
	"github.com/nao1215/seoaudit/internal/model"
)

// Constants for trend direction.
const (
	trendWorsened  = "worsened"
	trendImproved  = "improved"
	trendUnchanged = "unchanged"
)

// NewHistoryCmd creates the history command.
// This command lists and compares audits stored in the database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [domain]",
		Short: "List and compare stored audits",
		Long: `History shows audits saved by previous crawls.

Without flags it compares the two most recent audits of a domain and shows:
- URLs that appeared or disappeared
- URLs whose status changed
- Pages that became, or stopped being, duplicate titles
- Whether the overall issue count improved or worsened

The domain may be given as a host or a URL; it is reduced to its registrable
domain (www.example.com and https://example.com/ both mean example.com).

Examples:
  # Compare the latest two audits
  seoaudit history example.com

  # List the audits of a domain
  seoaudit history --list example.com

  # Compare the latest audit with a specific one
  seoaudit history --with-id 3 example.com

  # List all audited domains
  seoaudit history --list-domains

  # Output the comparison as JSON
  seoaudit history --json example.com`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list", "l", false,
		"List stored audits for the specified domain")
	cmd.Flags().BoolP("list-domains", "L", false,
		"List all audited domains in the database")
	cmd.Flags().Int64P("with-id", "i", 0,
		"Compare the latest audit with a specific audit by ID (use --list to see IDs)")
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")

	return cmd
}

// historyOptions holds the parsed flags of the history command.
type historyOptions struct {
	domain      string
	list        bool
	listDomains bool
	withID      int64
	json        bool
	markdown    bool
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	var opts historyOptions
	var err error

	if opts.listDomains, err = cmd.Flags().GetBool("list-domains"); err != nil {
		return err
	}
	if opts.list, err = cmd.Flags().GetBool("list"); err != nil {
		return err
	}
	if opts.withID, err = cmd.Flags().GetInt64("with-id"); err != nil {
		return err
	}
	if opts.json, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	if opts.markdown, err = cmd.Flags().GetBool("markdown"); err != nil {
		return err
	}

	// Validate arguments before opening the database.
	if !opts.listDomains {
		if len(args) == 0 {
			return errors.New("domain is required (use --list-domains to see audited domains)")
		}
		if opts.domain, err = normalizeDomain(args[0]); err != nil {
			return err
		}
	}

	return runHistory(cmd.Context(), config.XDGDataDir(), opts, cmd.OutOrStdout())
}

// runHistory opens the database in dbDir and runs the requested operation.
func runHistory(ctx context.Context, dbDir string, opts historyOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	switch {
	case opts.listDomains:
		return listDomains(ctx, db, out)
	case opts.list:
		return listAudits(ctx, db, opts.domain, out)
	default:
		return runComparison(ctx, db, opts, out)
	}
}

// normalizeDomain reduces a host or URL argument to its registrable domain.
func normalizeDomain(arg string) (string, error) {
	host := strings.TrimSpace(arg)
	if strings.Contains(host, "://") {
		u, err := url.Parse(host)
		if err != nil || u.Hostname() == "" {
			return "", fmt.Errorf("invalid domain: %q", arg)
		}
		host = u.Hostname()
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "" || strings.ContainsAny(host, "/ ") {
		return "", fmt.Errorf("invalid domain: %q", arg)
	}
	return crawler.RegistrableDomain(host), nil
}

// listDomains lists all domains that have audits in the database.
func listDomains(ctx context.Context, db *database.AuditDB, out io.Writer) error {
	domains, err := db.ListDomains(ctx)
	if err != nil {
		return fmt.Errorf("failed to list domains: %w", err)
	}

	if len(domains) == 0 {
		fmt.Fprintln(out, "No audited domains found in the database.")
		fmt.Fprintln(out, "\nUse 'seoaudit crawl <url>' to audit a site.")
		return nil
	}

	fmt.Fprintf(out, "Audited domains (%d):\n\n", len(domains))
	for _, domain := range domains {
		fmt.Fprintf(out, "  • %s\n", domain)
	}
	fmt.Fprintln(out, "\nUse 'seoaudit history --list <domain>' to see the audits of a domain.")

	return nil
}

// listAudits lists all stored audits of a domain.
func listAudits(ctx context.Context, db *database.AuditDB, domain string, out io.Writer) error {
	audits, err := db.GetAuditHistory(ctx, domain)
	if err != nil {
		return fmt.Errorf("failed to get audit history: %w", err)
	}

	if len(audits) == 0 {
		fmt.Fprintf(out, "No audits found for %s\n", domain)
		fmt.Fprintln(out, "\nUse 'seoaudit crawl' to audit this site.")
		return nil
	}

	fmt.Fprintf(out, "Audit history for %s (%d audits):\n\n", domain, len(audits))
	fmt.Fprintf(out, "  %-6s  %-20s  %-10s  %s\n", "ID", "Date", "Status", "Summary")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 70))

	for _, meta := range audits {
		status := "complete"
		if !meta.Completed {
			status = "partial"
		}
		fmt.Fprintf(out, "  %-6d  %-20s  %-10s  %s\n",
			meta.ID,
			meta.StartedAt.Format("2006-01-02 15:04:05"),
			status,
			formatSummary(meta.Summary),
		)
	}

	fmt.Fprintln(out, "\nUse 'seoaudit history <domain>' to compare the latest two audits.")
	fmt.Fprintln(out, "Use 'seoaudit history --with-id <id> <domain>' to compare with a specific audit.")

	return nil
}

// formatSummary formats audit counts into a compact string.
func formatSummary(s model.Summary) string {
	if s.Total == 0 {
		return "no rows"
	}

	parts := []string{fmt.Sprintf("rows:%d", s.Total)}
	if s.Failed > 0 {
		parts = append(parts, fmt.Sprintf("failed:%d", s.Failed))
	}
	if s.DuplicateTitles > 0 {
		parts = append(parts, fmt.Sprintf("dup-title:%d", s.DuplicateTitles))
	}
	if s.DuplicateH1s > 0 {
		parts = append(parts, fmt.Sprintf("dup-h1:%d", s.DuplicateH1s))
	}
	if s.MissingTitles > 0 {
		parts = append(parts, fmt.Sprintf("no-title:%d", s.MissingTitles))
	}
	return strings.Join(parts, " ")
}

// runComparison compares the latest audit with the previous or a chosen one.
func runComparison(ctx context.Context, db *database.AuditDB, opts historyOptions, out io.Writer) error {
	reports, err := db.GetLatestAudits(ctx, opts.domain, 2)
	if err != nil {
		return fmt.Errorf("failed to get audit history: %w", err)
	}
	if len(reports) == 0 {
		return fmt.Errorf("no audit history found for %s", opts.domain)
	}

	current := reports[0]
	var previous *model.AuditReport

	if opts.withID > 0 {
		previous, err = db.GetAuditByID(ctx, opts.withID)
		if err != nil {
			return fmt.Errorf("failed to get audit with ID %d: %w", opts.withID, err)
		}
		if previous == nil {
			return fmt.Errorf("audit with ID %d not found", opts.withID)
		}
		if previous.Domain != opts.domain {
			return fmt.Errorf("audit ID %d belongs to %s, not %s", opts.withID, previous.Domain, opts.domain)
		}
	} else {
		if len(reports) < 2 {
			return fmt.Errorf("at least 2 audits are required for comparison (found %d)", len(reports))
		}
		previous = reports[1]
	}

	comparison := compareAudits(previous, current)

	switch {
	case opts.json:
		return outputComparisonJSON(out, comparison)
	case opts.markdown:
		return outputComparisonMarkdown(out, comparison)
	default:
		return outputComparisonText(out, comparison)
	}
}

// ComparisonResult holds the result of comparing two audits.
type ComparisonResult struct {
	// Domain is the audited registrable domain.
	Domain string `json:"domain"`

	// Previous contains metadata about the older audit.
	Previous AuditInfo `json:"previous"`

	// Current contains metadata about the newer audit.
	Current AuditInfo `json:"current"`

	// NewURLs are URLs present only in the current audit.
	NewURLs []string `json:"new_urls,omitempty"`

	// RemovedURLs are URLs present only in the previous audit.
	RemovedURLs []string `json:"removed_urls,omitempty"`

	// StatusChanges lists URLs whose status differs between the audits.
	StatusChanges []StatusChange `json:"status_changes,omitempty"`

	// NewDuplicateTitles are URLs flagged as duplicate titles only now.
	NewDuplicateTitles []string `json:"new_duplicate_titles,omitempty"`

	// ResolvedDuplicateTitles are URLs no longer flagged as duplicate titles.
	ResolvedDuplicateTitles []string `json:"resolved_duplicate_titles,omitempty"`

	// Trend is "improved", "worsened", or "unchanged".
	Trend string `json:"trend"`
}

// AuditInfo contains metadata about an audit for comparison display.
type AuditInfo struct {
	SessionID string        `json:"session_id"`
	StartedAt time.Time     `json:"started_at"`
	Completed bool          `json:"completed"`
	Summary   model.Summary `json:"summary"`
}

// StatusChange is a URL whose status differs between two audits.
type StatusChange struct {
	URL      string `json:"url"`
	Previous string `json:"previous"`
	Current  string `json:"current"`
}

// compareAudits compares two audits and generates a comparison result.
// List fields are sorted by URL.
func compareAudits(previous, current *model.AuditReport) *ComparisonResult {
	result := &ComparisonResult{
		Domain:   current.Domain,
		Previous: auditInfo(previous),
		Current:  auditInfo(current),
	}

	prev := recordsByURL(previous)
	curr := recordsByURL(current)

	for u, rec := range curr {
		old, ok := prev[u]
		if !ok {
			result.NewURLs = append(result.NewURLs, u)
			if rec.DuplicateTitle {
				result.NewDuplicateTitles = append(result.NewDuplicateTitles, u)
			}
			continue
		}
		if old.Status != rec.Status {
			result.StatusChanges = append(result.StatusChanges, StatusChange{URL: u, Previous: old.Status, Current: rec.Status})
		}
		switch {
		case rec.DuplicateTitle && !old.DuplicateTitle:
			result.NewDuplicateTitles = append(result.NewDuplicateTitles, u)
		case !rec.DuplicateTitle && old.DuplicateTitle:
			result.ResolvedDuplicateTitles = append(result.ResolvedDuplicateTitles, u)
		}
	}
	for u, old := range prev {
		if _, ok := curr[u]; !ok {
			result.RemovedURLs = append(result.RemovedURLs, u)
			if old.DuplicateTitle {
				result.ResolvedDuplicateTitles = append(result.ResolvedDuplicateTitles, u)
			}
		}
	}

	slices.Sort(result.NewURLs)
	slices.Sort(result.RemovedURLs)
	slices.Sort(result.NewDuplicateTitles)
	slices.Sort(result.ResolvedDuplicateTitles)
	slices.SortFunc(result.StatusChanges, func(a, b StatusChange) int {
		return strings.Compare(a.URL, b.URL)
	})

	result.Trend = calculateTrend(result.Previous.Summary, result.Current.Summary)
	return result
}

func auditInfo(r *model.AuditReport) AuditInfo {
	return AuditInfo{
		SessionID: r.SessionID,
		StartedAt: r.StartedAt,
		Completed: r.Completed,
		Summary:   r.Summarize(),
	}
}

// recordsByURL indexes the real records of a report. The first record of a
// URL wins.
func recordsByURL(r *model.AuditReport) map[string]model.PageRecord {
	m := make(map[string]model.PageRecord, len(r.Records))
	for _, rec := range r.Records {
		if rec.IsSentinel() {
			continue
		}
		if _, ok := m[rec.URL]; !ok {
			m[rec.URL] = rec
		}
	}
	return m
}

// issueScore weights the counts of an audit; failures weigh most.
func issueScore(s model.Summary) int {
	return s.Failed*10 + s.DuplicateTitles*3 + s.DuplicateH1s*2 + s.MissingTitles*2
}

// calculateTrend compares the weighted issue scores of two audits.
func calculateTrend(previous, current model.Summary) string {
	p, c := issueScore(previous), issueScore(current)
	switch {
	case c < p:
		return trendImproved
	case c > p:
		return trendWorsened
	default:
		return trendUnchanged
	}
}

// outputComparisonJSON outputs the comparison result in JSON format.
func outputComparisonJSON(out io.Writer, result *ComparisonResult) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// outputComparisonMarkdown outputs the comparison result in Markdown format.
func outputComparisonMarkdown(out io.Writer, result *ComparisonResult) error {
	p, c := result.Previous.Summary, result.Current.Summary

	fmt.Fprintf(out, "# Audit Comparison: %s\n\n", result.Domain)
	fmt.Fprintln(out, "## Summary")
	fmt.Fprintf(out, "\n**Trend:** %s\n\n", formatTrend(result.Trend))

	fmt.Fprintln(out, "| Metric | Previous | Current | Change |")
	fmt.Fprintln(out, "|--------|----------|---------|--------|")
	fmt.Fprintf(out, "| Date | %s | %s | - |\n",
		result.Previous.StartedAt.Format("2006-01-02 15:04"),
		result.Current.StartedAt.Format("2006-01-02 15:04"))
	for _, row := range summaryRows(p, c) {
		fmt.Fprintf(out, "| %s | %d | %d | %s |\n", row.label, row.previous, row.current, formatDelta(row.current-row.previous))
	}

	writeMarkdownList(out, "New URLs", result.NewURLs)
	writeMarkdownList(out, "Removed URLs", result.RemovedURLs)
	if len(result.StatusChanges) > 0 {
		fmt.Fprintf(out, "\n## Status Changes (%d)\n\n", len(result.StatusChanges))
		for _, sc := range result.StatusChanges {
			fmt.Fprintf(out, "- `%s`: %s → %s\n", sc.URL, sc.Previous, sc.Current)
		}
	}
	writeMarkdownList(out, "New Duplicate Titles", result.NewDuplicateTitles)
	writeMarkdownList(out, "Resolved Duplicate Titles", result.ResolvedDuplicateTitles)

	return nil
}

func writeMarkdownList(out io.Writer, title string, urls []string) {
	if len(urls) == 0 {
		return
	}
	fmt.Fprintf(out, "\n## %s (%d)\n\n", title, len(urls))
	for _, u := range urls {
		fmt.Fprintf(out, "- `%s`\n", u)
	}
}

// outputComparisonText outputs the comparison result in human-readable text format.
func outputComparisonText(out io.Writer, result *ComparisonResult) error {
	p, c := result.Previous.Summary, result.Current.Summary

	fmt.Fprintf(out, "Audit Comparison: %s\n", result.Domain)
	fmt.Fprintln(out, strings.Repeat("=", 60))
	fmt.Fprintf(out, "\nTrend: %s\n", formatTrend(result.Trend))

	fmt.Fprintf(out, "\nPrevious audit: %s\n", result.Previous.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Current audit:  %s\n", result.Current.StartedAt.Format("2006-01-02 15:04:05"))

	fmt.Fprintln(out, "\nSummary:")
	fmt.Fprintf(out, "  %-18s  %-10s  %-10s  %-10s\n", "Metric", "Previous", "Current", "Change")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 55))
	for _, row := range summaryRows(p, c) {
		fmt.Fprintf(out, "  %-18s  %-10d  %-10d  %-10s\n", row.label, row.previous, row.current, formatDelta(row.current-row.previous))
	}

	writeTextList(out, "New URLs", "+", result.NewURLs)
	writeTextList(out, "Removed URLs", "-", result.RemovedURLs)
	if len(result.StatusChanges) > 0 {
		fmt.Fprintf(out, "\nStatus Changes (%d):\n", len(result.StatusChanges))
		for _, sc := range result.StatusChanges {
			fmt.Fprintf(out, "  [~] %s: %s -> %s\n", sc.URL, sc.Previous, sc.Current)
		}
	}
	writeTextList(out, "New Duplicate Titles", "+", result.NewDuplicateTitles)
	writeTextList(out, "Resolved Duplicate Titles", "-", result.ResolvedDuplicateTitles)

	return nil
}

func writeTextList(out io.Writer, title, marker string, urls []string) {
	if len(urls) == 0 {
		return
	}
	fmt.Fprintf(out, "\n%s (%d):\n", title, len(urls))
	for _, u := range urls {
		fmt.Fprintf(out, "  [%s] %s\n", marker, u)
	}
}

type summaryRow struct {
	label             string
	previous, current int
}

func summaryRows(p, c model.Summary) []summaryRow {
	return []summaryRow{
		{"Rows", p.Total, c.Total},
		{"Audited", p.Audited, c.Audited},
		{"Failed", p.Failed, c.Failed},
		{"Duplicate titles", p.DuplicateTitles, c.DuplicateTitles},
		{"Duplicate h1s", p.DuplicateH1s, c.DuplicateH1s},
		{"Missing titles", p.MissingTitles, c.MissingTitles},
	}
}

// formatTrend formats the trend for display.
func formatTrend(trend string) string {
	switch trend {
	case trendImproved:
		return "IMPROVED (fewer issues)"
	case trendWorsened:
		return "WORSENED (more issues)"
	default:
		return "UNCHANGED"
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}
