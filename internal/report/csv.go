package report

import (
	"encoding/csv"
	"io"

	"github.com/nao1215/seoaudit/internal/model"
)

// CSVWriter writes the record table as CSV.
// The header is model.Columns. A report without records is written as the
// header followed by the sentinel row, whose message fills the url column.
type CSVWriter struct {
	baseWriter
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer) *CSVWriter {
	return &CSVWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the report's records as CSV.
func (w *CSVWriter) Write(report *model.AuditReport) (int, error) {
	cw := &countingWriter{w: w.output}
	out := csv.NewWriter(cw)

	if err := out.Write(model.Columns); err != nil {
		return cw.n, err
	}
	for _, rec := range report.OutputRecords() {
		if err := out.Write(rec.Row()); err != nil {
			return cw.n, err
		}
	}
	out.Flush()
	return cw.n, out.Error()
}
