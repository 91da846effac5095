package crawler

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/nao1215/seoaudit/internal/model"
)

// Fetcher retrieves one crawl target. Implementations must fold transport
// errors into the returned outcome and must honor ctx cancellation.
type Fetcher interface {
	Fetch(ctx context.Context, target model.CrawlTarget) model.FetchOutcome
}

// RecordSink receives audit records in emission order.
type RecordSink interface {
	Add(record model.PageRecord)
}

// ProgressObserver is told about sitemap totals and every emitted record.
type ProgressObserver interface {
	OnSeenSitemap(count int)
	OnTerminalOutcome(url string)
}

// Stats summarizes a finished Run.
type Stats struct {
	// Dispatched is the number of fetches started.
	Dispatched int

	// Records is the number of records emitted to the sink.
	Records int

	// SitemapLocs is the number of http(s) locs read from sitemaps.
	SitemapLocs int
}

// Engine drives one crawl session: it seeds the frontier, dispatches
// bounded concurrent fetches and turns every outcome into records.
//
// All crawl logic (classification, extraction, duplicate detection,
// enqueueing and emission) runs on the goroutine that called Run. Only
// fetches run concurrently.
type Engine struct {
	fetcher     Fetcher
	sink        RecordSink
	progress    ProgressObserver
	dedup       *DuplicateDetector
	concurrency int
	frontierOps []FrontierOption
	logger      *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithConcurrency sets the maximum number of fetches in flight.
func WithConcurrency(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithProgress sets the progress observer.
func WithProgress(p ProgressObserver) EngineOption {
	return func(e *Engine) {
		e.progress = p
	}
}

// WithDuplicateDetector replaces the default duplicate detector.
func WithDuplicateDetector(d *DuplicateDetector) EngineOption {
	return func(e *Engine) {
		if d != nil {
			e.dedup = d
		}
	}
}

// WithFrontierOptions passes options to the session frontier.
func WithFrontierOptions(opts ...FrontierOption) EngineOption {
	return func(e *Engine) {
		e.frontierOps = append(e.frontierOps, opts...)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an engine that fetches with fetcher and emits to sink.
func NewEngine(fetcher Fetcher, sink RecordSink, opts ...EngineOption) *Engine {
	e := &Engine{
		fetcher:     fetcher,
		sink:        sink,
		progress:    nopProgress{},
		dedup:       NewDuplicateDetector(),
		concurrency: 8,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// session is the mutable state of one Run.
type session struct {
	frontier *Frontier
	stats    Stats
}

// Run crawls from startURL until the frontier is exhausted and no fetch is
// in flight, or until ctx is canceled. It returns ErrInvalidStartURL before
// any fetch when startURL is not an absolute http(s) URL, and ctx.Err()
// when the session was canceled. Records emitted before a cancellation stay
// in the sink.
func (e *Engine) Run(ctx context.Context, startURL string) (Stats, error) {
	frontier, err := NewFrontier(startURL, e.frontierOps...)
	if err != nil {
		return Stats{}, err
	}
	if err := frontier.Seed(startURL); err != nil {
		return Stats{}, err
	}

	s := &session{frontier: frontier}
	e.logger.Info("crawl started", "url", startURL, "domain", frontier.Domain(), "concurrency", e.concurrency)

	sem := semaphore.NewWeighted(int64(e.concurrency))
	g, fetchCtx := errgroup.WithContext(ctx)

	// Buffered to the concurrency limit so a fetch goroutine never blocks
	// on send, even after the dispatcher has stopped receiving.
	results := make(chan model.FetchOutcome, e.concurrency)
	inflight := 0

	var runErr error
loop:
	for {
		for ctx.Err() == nil && frontier.Len() > 0 && sem.TryAcquire(1) {
			target, ok := frontier.Next()
			if !ok {
				sem.Release(1)
				break
			}
			inflight++
			s.stats.Dispatched++
			e.logger.Debug("dispatch", "url", target.URL, "kind", target.Kind.String())
			g.Go(func() error {
				results <- e.fetcher.Fetch(fetchCtx, target)
				return nil
			})
		}

		if inflight == 0 {
			runErr = ctx.Err()
			break
		}

		select {
		case outcome := <-results:
			inflight--
			e.handle(s, outcome)
			sem.Release(1)
		case <-ctx.Done():
			runErr = ctx.Err()
			break loop
		}
	}

	// Fetch goroutines see the canceled context and return promptly.
	_ = g.Wait()

	if runErr != nil {
		e.logger.Warn("crawl interrupted", "error", runErr, "records", s.stats.Records)
		return s.stats, runErr
	}

	e.logger.Info("crawl finished", "records", s.stats.Records, "dispatched", s.stats.Dispatched)
	return s.stats, nil
}

// handle processes one completed fetch on the dispatcher goroutine.
func (e *Engine) handle(s *session, outcome model.FetchOutcome) {
	c := Classify(outcome)

	switch c.Disposition {
	case DispositionDiscard:
		return
	case DispositionSitemap:
		e.discoverSitemap(s, outcome)
	case DispositionAudit:
		e.audit(s, outcome, c.Record)
	default:
		e.emit(s, c.Record)
	}
}

// audit completes an HTML page record and enqueues its links.
func (e *Engine) audit(s *session, outcome model.FetchOutcome, rec model.PageRecord) {
	signals := Extract(outcome.Page)

	rec.Title = signals.Title
	rec.H1 = signals.H1
	rec.Canonical = signals.Canonical
	rec.RobotsMeta = signals.RobotsMeta
	rec.HreflangCount = signals.HreflangCount
	rec.DuplicateTitle, rec.DuplicateH1 = e.dedup.CheckAndRecord(rec.Title, rec.H1)

	e.emit(s, rec)

	for _, link := range signals.Links {
		e.enqueue(s, link, rec.URL, model.KindPage)
	}
}

// discoverSitemap enqueues the pages and child sitemaps of a sitemap.
func (e *Engine) discoverSitemap(s *session, outcome model.FetchOutcome) {
	sitemap, err := ParseSitemap(outcome.Page.Body)
	if err != nil {
		e.emit(s, model.NewDegradedRecord(outcome.Target.URL, model.StatusCode(outcome.Page.StatusCode), err.Error()))
		return
	}

	count := sitemap.HTTPLocCount()
	s.stats.SitemapLocs += count
	if len(sitemap.Children) == 0 {
		// A sitemap index lists sitemaps, not pages; its total is unknown
		// until a child urlset is read.
		e.progress.OnSeenSitemap(count)
	}
	e.logger.Debug("sitemap parsed", "url", outcome.Target.URL, "locs", count, "children", len(sitemap.Children))

	for _, child := range sitemap.Children {
		e.enqueue(s, child, outcome.Target.URL, model.KindSitemap)
	}
	for _, loc := range sitemap.Locs {
		e.enqueue(s, loc, outcome.Target.URL, model.KindPage)
	}
}

// enqueue offers a discovered URL to the frontier. An out-of-scope URL is
// turned into an external-link outcome and classified like any other.
func (e *Engine) enqueue(s *session, rawURL, parent string, kind model.Kind) {
	decision := s.frontier.Enqueue(rawURL, parent, kind)
	if decision.Verdict != VerdictRejected {
		return
	}

	target := model.CrawlTarget{URL: decision.URL, DiscoveredFrom: parent, Kind: kind}
	e.handle(s, model.NewExternalLinkOutcome(target, decision.Reason))
}

// emit hands a record to the sink and reports it to the progress observer.
func (e *Engine) emit(s *session, rec model.PageRecord) {
	e.sink.Add(rec)
	e.progress.OnTerminalOutcome(rec.URL)
	s.stats.Records++
}

type nopProgress struct{}

func (nopProgress) OnSeenSitemap(int)        {}
func (nopProgress) OnTerminalOutcome(string) {}
