package fetch

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"

	"github.com/nao1215/seoaudit/internal/config"
	"github.com/nao1215/seoaudit/internal/model"
)

// DefaultRetryBackoff is the base wait before a retry; attempt n waits n times this.
const DefaultRetryBackoff = 500 * time.Millisecond

// HTTPFetcher fetches crawl targets over HTTP and folds every result,
// including transport failures, into a model.FetchOutcome.
// It is safe for concurrent use.
type HTTPFetcher struct {
	// client performs the requests. Its Timeout is not used; every fetch
	// gets its own deadline from timeout.
	client *http.Client

	// robots evaluates robots.txt. Nil disables robots checks.
	robots *RobotsAgent

	// limiter enforces per-host politeness. Nil never blocks.
	limiter *HostLimiter

	// sites holds per-host cookie and header overrides.
	sites *config.File

	respectRobots bool
	userAgent     string
	timeout       time.Duration
	maxRetries    int
	retryBackoff  time.Duration
	maxBodySize   int64
	logger        *slog.Logger
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithUserAgent sets the User-Agent header and the robots.txt agent name.
func WithUserAgent(ua string) Option {
	return func(f *HTTPFetcher) {
		f.userAgent = ua
	}
}

// WithTimeout sets the per-fetch deadline.
func WithTimeout(d time.Duration) Option {
	return func(f *HTTPFetcher) {
		f.timeout = d
	}
}

// WithMaxRetries sets how many times a transient failure is retried.
func WithMaxRetries(n int) Option {
	return func(f *HTTPFetcher) {
		if n < 0 {
			n = 0
		}
		f.maxRetries = n
	}
}

// WithRetryBackoff sets the base wait between retries.
func WithRetryBackoff(d time.Duration) Option {
	return func(f *HTTPFetcher) {
		f.retryBackoff = d
	}
}

// WithMaxBodySize sets the maximum number of body bytes kept per response.
// Longer bodies are truncated.
func WithMaxBodySize(size int64) Option {
	return func(f *HTTPFetcher) {
		f.maxBodySize = size
	}
}

// WithRespectRobots enables or disables robots.txt checks.
func WithRespectRobots(respect bool) Option {
	return func(f *HTTPFetcher) {
		f.respectRobots = respect
	}
}

// WithHostLimiter sets the per-host politeness limiter.
func WithHostLimiter(l *HostLimiter) Option {
	return func(f *HTTPFetcher) {
		f.limiter = l
	}
}

// WithSiteConfigs sets the per-host cookie and header overrides.
func WithSiteConfigs(sites *config.File) Option {
	return func(f *HTTPFetcher) {
		f.sites = sites
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *HTTPFetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewHTTPFetcher creates a fetcher. If client is nil a client with sane
// transport timeouts is created.
func NewHTTPFetcher(client *http.Client, opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		respectRobots: true,
		userAgent:     config.DefaultUserAgent,
		timeout:       config.DefaultTimeout,
		maxRetries:    config.DefaultMaxRetries,
		retryBackoff:  DefaultRetryBackoff,
		maxBodySize:   config.DefaultMaxBodySize,
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		opt(f)
	}

	if client == nil {
		client = &http.Client{Transport: defaultTransport()}
	}
	wrapped := *client
	wrapped.Transport = newSiteTransport(client.Transport, f.sites)
	f.client = &wrapped

	if f.respectRobots {
		f.robots = NewRobotsAgent(f.client, f.userAgent, f.logger)
		f.robots.SetTimeout(f.timeout)
	}

	return f
}

// NewFromConfig creates a fetcher from the session configuration.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) *HTTPFetcher {
	return NewHTTPFetcher(nil,
		WithUserAgent(cfg.UserAgent),
		WithTimeout(cfg.Timeout),
		WithMaxRetries(cfg.MaxRetries),
		WithMaxBodySize(cfg.MaxBodySize),
		WithRespectRobots(cfg.RespectRobots),
		WithHostLimiter(NewHostLimiter(cfg.CrawlDelay, cfg.RateLimit)),
		WithSiteConfigs(cfg.SiteConfigs),
		WithLogger(logger),
	)
}

func defaultTransport() *http.Transport {
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// Fetch retrieves target and returns its outcome. It never panics on
// transport errors and never returns them; see model.FetchOutcome.
func (f *HTTPFetcher) Fetch(ctx context.Context, target model.CrawlTarget) model.FetchOutcome {
	u, err := url.Parse(target.URL)
	if err != nil {
		return model.NewFailedOutcome(target, model.ErrorKindOther, err.Error())
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return model.NewFailedOutcome(target, model.ErrorKindOther,
			fmt.Sprintf("%v: %s", ErrUnsupportedScheme, u.Scheme))
	}

	if f.robots != nil && target.Kind != model.KindRobots && !f.robots.Allowed(ctx, u) {
		f.logger.Debug("disallowed by robots.txt", "url", target.URL)
		return model.NewFailedOutcome(target, model.ErrorKindRobots, ErrRobotsDisallowed.Error())
	}

	var lastErr *Error
	attempts := 0
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		attempts++

		if err := f.limiter.Wait(ctx, u.Host); err != nil {
			lastErr = newError(target.URL, err)
			break
		}

		page, err := f.fetchOnce(ctx, u)
		if err == nil {
			outcome := model.NewSuccessOutcome(target, page)
			outcome.Attempts = attempts
			return outcome
		}

		lastErr = newError(target.URL, err)
		if ctx.Err() != nil {
			lastErr.Kind = Classify(ctx.Err())
			break
		}
		if !lastErr.Kind.Retryable() || attempt == f.maxRetries {
			break
		}

		f.logger.Debug("retrying fetch",
			"url", target.URL,
			"attempt", attempts,
			"kind", lastErr.Kind.String(),
			"error", err,
		)
		if err := sleepContext(ctx, f.retryBackoff*time.Duration(attempt+1)); err != nil {
			lastErr = newError(target.URL, err)
			break
		}
	}

	outcome := model.NewFailedOutcome(target, lastErr.Kind, lastErr.Err.Error())
	outcome.Attempts = attempts
	return outcome
}

// fetchOnce performs a single GET under its own deadline.
func (f *HTTPFetcher) fetchOnce(ctx context.Context, u *url.URL) (*model.Page, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, truncated, err := f.readBody(resp)
	if err != nil {
		return nil, err
	}
	if truncated {
		f.logger.Debug("response body truncated", "url", u.String(), "limit", f.maxBodySize)
	}

	finalURL := u.String()
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	page := &model.Page{
		URL:         u.String(),
		FinalURL:    finalURL,
		StatusCode:  resp.StatusCode,
		Headers:     resp.Header.Clone(),
		ContentType: resp.Header.Get("Content-Type"),
		FetchedAt:   time.Now(),
	}
	if page.IsHTML() {
		body = toUTF8(body, page.ContentType)
	}
	page.Body = body

	return page, nil
}

// readBody decodes the content encoding and reads at most maxBodySize bytes.
func (f *HTTPFetcher) readBody(resp *http.Response) ([]byte, bool, error) {
	if resp == nil || resp.Body == nil {
		return nil, false, ErrEmptyResponse
	}

	reader := io.Reader(resp.Body)
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, false, fmt.Errorf("gzip decode: %w", err)
		}
		defer gz.Close()
		reader = gz
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "deflate":
		fl := flate.NewReader(resp.Body)
		defer fl.Close()
		reader = fl
	}

	limit := f.maxBodySize
	if limit <= 0 {
		limit = model.MaxPageSize
	}

	body, err := io.ReadAll(io.LimitReader(reader, limit+1))
	if err != nil {
		return nil, false, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > limit {
		return body[:limit], true, nil
	}
	return body, false, nil
}

// toUTF8 converts an HTML body to UTF-8 using the Content-Type charset,
// a <meta charset> declaration, or content sniffing. The body is returned
// unchanged if conversion fails.
func toUTF8(body []byte, contentType string) []byte {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return body
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return body
	}
	return decoded
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
