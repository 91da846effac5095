package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/seoaudit/internal/model"
)

// SummaryWriter outputs a short human-readable summary for the terminal.
type SummaryWriter struct {
	baseWriter

	// verbose lists every duplicate and failed URL.
	verbose bool
}

// SummaryWriterOption configures a SummaryWriter.
type SummaryWriterOption func(*SummaryWriter)

// WithVerbose enables listing of the affected URLs.
func WithVerbose(verbose bool) SummaryWriterOption {
	return func(w *SummaryWriter) {
		w.verbose = verbose
	}
}

// NewSummaryWriter creates a SummaryWriter that outputs to the given writer.
func NewSummaryWriter(output io.Writer, opts ...SummaryWriterOption) *SummaryWriter {
	w := &SummaryWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the summary.
func (w *SummaryWriter) Write(report *model.AuditReport) (int, error) {
	var sb strings.Builder
	s := report.Summarize()

	sb.WriteString(strings.Repeat("=", 60) + "\n")
	sb.WriteString("SEO AUDIT SUMMARY\n")
	sb.WriteString(strings.Repeat("=", 60) + "\n")
	fmt.Fprintf(&sb, "Start URL:        %s\n", report.StartURL)
	if report.Completed {
		sb.WriteString("Status:           complete\n")
	} else {
		sb.WriteString("Status:           interrupted (partial results)\n")
	}

	if s.Total == 0 {
		fmt.Fprintf(&sb, "\n%s\n", model.SentinelMessage)
		return w.output.Write([]byte(sb.String()))
	}

	fmt.Fprintf(&sb, "Rows:             %d\n", s.Total)
	fmt.Fprintf(&sb, "Audited pages:    %d\n", s.Audited)
	fmt.Fprintf(&sb, "Skipped:          %d\n", s.Skipped)
	fmt.Fprintf(&sb, "Failed:           %d\n", s.Failed)
	fmt.Fprintf(&sb, "Duplicate titles: %d\n", s.DuplicateTitles)
	fmt.Fprintf(&sb, "Duplicate h1s:    %d\n", s.DuplicateH1s)
	fmt.Fprintf(&sb, "Missing titles:   %d\n", s.MissingTitles)

	if w.verbose {
		w.writeList(&sb, "DUPLICATE TITLES", report, func(r model.PageRecord) bool { return r.DuplicateTitle })
		w.writeList(&sb, "DUPLICATE H1S", report, func(r model.PageRecord) bool { return r.DuplicateH1 })
		w.writeList(&sb, "FAILED", report, model.PageRecord.IsFailure)
	}

	return w.output.Write([]byte(sb.String()))
}

func (w *SummaryWriter) writeList(sb *strings.Builder, title string, report *model.AuditReport, match func(model.PageRecord) bool) {
	var urls []string
	for _, rec := range report.Records {
		if match(rec) {
			urls = append(urls, rec.URL)
		}
	}
	if len(urls) == 0 {
		return
	}

	fmt.Fprintf(sb, "\n%s\n", title)
	sb.WriteString(strings.Repeat("-", 40) + "\n")
	for _, u := range urls {
		fmt.Fprintf(sb, "  - %s\n", u)
	}
}
