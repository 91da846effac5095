// Package report turns the records of a crawl session into output artifacts.
//
// Writers format a model.AuditReport:
//   - CSVWriter: the record table with the fixed column header (default)
//   - JSONWriter: the report with session metadata and a summary
//   - MarkdownWriter: a human-readable report with a records table
//   - XLSXWriter: an Excel workbook with records and summary sheets
//   - SummaryWriter: a short text summary for the terminal
//
// Sink collects records while the crawl runs and writes the artifact once,
// atomically, when it is finalized. A session that produced no records still
// yields an artifact holding a single sentinel row.
package report
