package progress

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/seoaudit/internal/fileutil"
	"github.com/nao1215/seoaudit/internal/model"
)

// Tracker owns the progress snapshot of one crawl session.
// It is safe for concurrent use.
type Tracker struct {
	path   string
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	snapshot model.ProgressSnapshot
	done     bool
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger used to report persistence failures.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithClock overrides the time source of snapshot timestamps.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// NewTracker creates a tracker that persists to path and writes the initial
// RUNNING snapshot. An empty path keeps the snapshot in memory only.
func NewTracker(path string, opts ...Option) (*Tracker, error) {
	t := &Tracker{
		path:   path,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.snapshot = model.ProgressSnapshot{Status: model.ProgressRunning, Timestamp: t.now()}
	if err := t.persistLocked(); err != nil {
		return nil, err
	}
	return t, nil
}

// OnSeenSitemap records the number of page URLs of a parsed sitemap.
// Only the first reported total is kept.
func (t *Tracker) OnSeenSitemap(count int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done || t.snapshot.SitemapTotal != nil {
		return
	}
	t.snapshot.SitemapTotal = &count
	t.update()
}

// OnTerminalOutcome counts one emitted record for url.
func (t *Tracker) OnTerminalOutcome(url string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return
	}
	t.snapshot.ItemsScraped++
	t.snapshot.LastURL = url
	t.update()
}

// Finish writes the terminal snapshot. Only the first call has an effect.
func (t *Tracker) Finish(status model.ProgressStatus) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return nil
	}
	t.done = true
	t.snapshot.Status = status
	t.snapshot.Timestamp = t.now()
	return t.persistLocked()
}

// Snapshot returns a copy of the current snapshot.
func (t *Tracker) Snapshot() model.ProgressSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.snapshot
	if s.SitemapTotal != nil {
		total := *s.SitemapTotal
		s.SitemapTotal = &total
	}
	return s
}

// update refreshes the timestamp and persists. A failed write is logged and
// the crawl goes on; the next update retries with the full state.
func (t *Tracker) update() {
	t.snapshot.Timestamp = t.now()
	if err := t.persistLocked(); err != nil {
		t.logger.Warn("failed to write progress", "path", t.path, "error", err)
	}
}

func (t *Tracker) persistLocked() error {
	if t.path == "" {
		return nil
	}

	data, err := json.Marshal(t.snapshot)
	if err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(t.path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}
