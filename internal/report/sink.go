package report

import (
	"bytes"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/seoaudit/internal/fileutil"
	"github.com/nao1215/seoaudit/internal/model"
)

// Sink buffers the records of one crawl session and writes the output
// artifact when the session ends.
//
// Finalize is idempotent and is expected to run on every exit path,
// including invalid input and cancellation. A session that produced no
// records is written as exactly one sentinel row.
type Sink struct {
	path   string
	format string
	logger *slog.Logger

	mu        sync.Mutex
	report    *model.AuditReport
	finalized bool

	once sync.Once
	err  error
}

// SinkOption configures a Sink.
type SinkOption func(*Sink)

// WithSinkLogger sets the logger for the sink.
func WithSinkLogger(logger *slog.Logger) SinkOption {
	return func(s *Sink) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSink creates a sink that writes the report for startURL to path
// in the given output format.
func NewSink(path, format, startURL string, opts ...SinkOption) *Sink {
	s := &Sink{
		path:   path,
		format: format,
		logger: slog.Default(),
		report: model.NewAuditReport(startURL),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add appends a record. Records added after Finalize are dropped.
func (s *Sink) Add(rec model.PageRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finalized {
		s.logger.Warn("record added after finalize", "url", rec.URL)
		return
	}
	s.report.Records = append(s.report.Records, rec)
}

// SetDomain records the registrable domain of the session.
func (s *Sink) SetDomain(domain string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.report.Domain = domain
}

// MarkCompleted records that the frontier drained without cancellation.
func (s *Sink) MarkCompleted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.report.Completed = true
}

// Len returns the number of records buffered so far.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.report.Records)
}

// Report returns the session report. After Finalize it no longer changes.
func (s *Sink) Report() *model.AuditReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report
}

// Finalize writes the artifact once. Later calls return the first result.
func (s *Sink) Finalize() error {
	s.once.Do(func() {
		s.mu.Lock()
		s.finalized = true
		s.report.FinishedAt = time.Now()
		report := s.report
		s.mu.Unlock()

		s.err = s.write(report)
		if s.err != nil {
			s.logger.Error("failed to write report", "path", s.path, "error", s.err)
			return
		}
		s.logger.Debug("report written", "path", s.path, "records", len(report.Records))
	})
	return s.err
}

func (s *Sink) write(report *model.AuditReport) error {
	// A formatting error must leave any previous artifact untouched.
	var buf bytes.Buffer
	w, err := NewWriter(s.format, &buf)
	if err != nil {
		return err
	}
	if _, err := w.Write(report); err != nil {
		return err
	}

	return fileutil.WriteFileAtomic(s.path, func(out io.Writer) error {
		_, err := buf.WriteTo(out)
		return err
	})
}
