package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/seoaudit/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.AuditReport) (int, error) {
	md := markdown.NewMarkdown(w.output)
	summary := report.Summarize()

	w.writeHeader(md, report)
	w.writeSummary(md, summary)
	w.writeRecords(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with session information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.AuditReport) {
	md.H1("SEO Audit Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Start URL", "`" + report.StartURL + "`"},
			{"Domain", report.Domain},
			{"Session", report.SessionID},
			{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Status", statusText(report)},
		},
	})
	md.PlainText("")
}

func statusText(report *model.AuditReport) string {
	if report.Completed {
		return "✅ Complete"
	}
	return "⚠️ Interrupted (partial results)"
}

// writeSummary writes the counts table, a status chart and an alert.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, s model.Summary) {
	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"Rows", strconv.Itoa(s.Total)},
			{"Audited pages", strconv.Itoa(s.Audited)},
			{"Skipped", strconv.Itoa(s.Skipped)},
			{"Failed", strconv.Itoa(s.Failed)},
			{"Duplicate titles", strconv.Itoa(s.DuplicateTitles)},
			{"Duplicate h1s", strconv.Itoa(s.DuplicateH1s)},
			{"Missing titles", strconv.Itoa(s.MissingTitles)},
		},
	})
	md.PlainText("")

	if s.Total > 0 {
		w.writePieChart(md, s)
	}
	w.writeAlert(md, s)
}

// writePieChart writes a mermaid pie chart of row outcomes.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, s model.Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Row Outcomes"),
		piechart.WithShowData(true),
	)

	other := s.Total - s.Audited - s.Skipped - s.Failed
	if s.Audited > 0 {
		chart.LabelAndIntValue("Audited", uint64(s.Audited))
	}
	if s.Skipped > 0 {
		chart.LabelAndIntValue("Skipped", uint64(s.Skipped))
	}
	if s.Failed > 0 {
		chart.LabelAndIntValue("Failed", uint64(s.Failed))
	}
	if other > 0 {
		chart.LabelAndIntValue("Other", uint64(other))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert matching the most serious finding.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, s model.Summary) {
	switch {
	case s.Total == 0:
		md.Cautionf("%s", model.SentinelMessage)
	case s.Failed > 0:
		md.Warningf("%d URL(s) could not be fetched.", s.Failed)
	case s.DuplicateTitles > 0 || s.DuplicateH1s > 0:
		md.Importantf(
			"%d duplicate title(s) and %d duplicate h1(s) found.",
			s.DuplicateTitles, s.DuplicateH1s,
		)
	case s.MissingTitles > 0:
		md.Note(fmt.Sprintf("%d page(s) have no title.", s.MissingTitles))
	default:
		md.Tip("No indexability issues detected.")
	}
	md.PlainText("")
}

// writeRecords writes the record table.
func (w *MarkdownWriter) writeRecords(md *markdown.Markdown, report *model.AuditReport) {
	md.H2("Records")
	md.PlainText("")

	if report.IsEmpty() {
		md.PlainText(model.SentinelMessage)
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(report.Records))
	for _, rec := range report.Records {
		row := rec.Row()
		for i := range row {
			row[i] = truncateString(row[i], 80)
		}
		rows = append(rows, row)
	}

	md.Table(markdown.TableSet{
		Header: model.Columns,
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [seoaudit](https://github.com/nao1215/seoaudit)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
