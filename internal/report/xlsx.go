package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/nao1215/seoaudit/internal/model"
)

const (
	recordsSheet = "Records"
	summarySheet = "Summary"
)

// XLSXWriter outputs reports as an Excel workbook.
// The "Records" sheet holds the record table with a frozen header row and
// the "Summary" sheet holds session metadata and counts.
type XLSXWriter struct {
	baseWriter
}

// NewXLSXWriter creates an XLSXWriter that outputs to the given writer.
func NewXLSXWriter(output io.Writer) *XLSXWriter {
	return &XLSXWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the report as an .xlsx workbook.
func (w *XLSXWriter) Write(report *model.AuditReport) (int, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", recordsSheet); err != nil {
		return 0, fmt.Errorf("failed to rename sheet: %w", err)
	}
	if err := w.writeRecords(f, report); err != nil {
		return 0, err
	}
	if err := w.writeSummary(f, report); err != nil {
		return 0, err
	}

	cw := &countingWriter{w: w.output}
	if err := f.Write(cw); err != nil {
		return cw.n, fmt.Errorf("failed to write workbook: %w", err)
	}
	return cw.n, nil
}

func (w *XLSXWriter) writeRecords(f *excelize.File, report *model.AuditReport) error {
	header := make([]any, len(model.Columns))
	for i, c := range model.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(recordsSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, rec := range report.OutputRecords() {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := recordCells(rec)
		if err := f.SetSheetRow(recordsSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	return f.SetPanes(recordsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// recordCells returns typed cells so that counts and flags stay numeric
// and boolean in the workbook.
func recordCells(rec model.PageRecord) []any {
	if rec.IsSentinel() {
		return []any{model.SentinelMessage}
	}
	return []any{
		rec.URL,
		rec.Status,
		rec.Title,
		rec.H1,
		rec.Canonical,
		rec.RobotsMeta,
		rec.HreflangCount,
		rec.DuplicateTitle,
		rec.DuplicateH1,
		rec.Note,
	}
}

func (w *XLSXWriter) writeSummary(f *excelize.File, report *model.AuditReport) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	s := report.Summarize()
	rows := [][]any{
		{"Start URL", report.StartURL},
		{"Domain", report.Domain},
		{"Session", report.SessionID},
		{"Completed", report.Completed},
		{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
		{"Rows", s.Total},
		{"Audited pages", s.Audited},
		{"Skipped", s.Skipped},
		{"Failed", s.Failed},
		{"Duplicate titles", s.DuplicateTitles},
		{"Duplicate h1s", s.DuplicateH1s},
		{"Missing titles", s.MissingTitles},
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}
	return nil
}
