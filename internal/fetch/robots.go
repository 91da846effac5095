package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultRobotsTTL is how long parsed robots.txt rules stay cached per host.
	DefaultRobotsTTL = 30 * time.Minute

	// DefaultRobotsTimeout bounds one robots.txt lookup.
	DefaultRobotsTimeout = 10 * time.Second

	// robotsFailureTTL is how long a failed lookup is remembered as allow-all,
	// so an unresponsive robots.txt costs one timeout per host per window.
	robotsFailureTTL = time.Minute
)

// RobotsAgent evaluates robots.txt rules with a per-host cache.
// Rules are fetched lazily on the first Allowed call for a host.
type RobotsAgent struct {
	client    *http.Client
	userAgent string
	ttl       time.Duration
	timeout   time.Duration
	logger    *slog.Logger

	// group collapses concurrent lookups of the same host into one request.
	group singleflight.Group

	mu    sync.Mutex
	cache map[string]robotsEntry
}

type robotsEntry struct {
	expires time.Time
	rules   *robotstxt.RobotsData // nil for a failed lookup
}

// NewRobotsAgent creates an agent that fetches robots.txt with client and
// matches groups against userAgent.
func NewRobotsAgent(client *http.Client, userAgent string, logger *slog.Logger) *RobotsAgent {
	if client == nil {
		client = &http.Client{Timeout: DefaultRobotsTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RobotsAgent{
		client:    client,
		userAgent: userAgent,
		ttl:       DefaultRobotsTTL,
		timeout:   DefaultRobotsTimeout,
		logger:    logger,
		cache:     make(map[string]robotsEntry),
	}
}

// Allowed reports whether target may be fetched.
// Errors while fetching or parsing robots.txt fail open.
func (a *RobotsAgent) Allowed(ctx context.Context, target *url.URL) bool {
	if target == nil || !target.IsAbs() {
		return false
	}

	// robots.txt itself is always fetchable
	if target.Path == "/robots.txt" {
		return true
	}

	rules, err := a.rules(ctx, target)
	if err != nil {
		a.logger.Debug("robots.txt unavailable, allowing", "host", target.Host, "error", err)
		return true
	}
	if rules == nil {
		return true
	}

	path := target.EscapedPath()
	if path == "" {
		path = "/"
	}
	if target.RawQuery != "" {
		path += "?" + target.RawQuery
	}
	return rules.TestAgent(path, a.userAgent)
}

// SetTimeout sets the deadline of one robots.txt lookup. Non-positive
// values are ignored.
func (a *RobotsAgent) SetTimeout(d time.Duration) {
	if d > 0 {
		a.timeout = d
	}
}

// rules returns the cached rules of target's host, fetching them on a miss.
// A nil result with a nil error means an earlier lookup failed recently.
func (a *RobotsAgent) rules(ctx context.Context, target *url.URL) (*robotstxt.RobotsData, error) {
	host := strings.ToLower(target.Host)

	a.mu.Lock()
	entry, ok := a.cache[host]
	a.mu.Unlock()
	if ok && time.Now().Before(entry.expires) {
		return entry.rules, nil
	}

	v, err, _ := a.group.Do(host, func() (any, error) {
		data, err := a.fetchRules(ctx, target.Scheme, target.Host)

		entry := robotsEntry{expires: time.Now().Add(a.ttl), rules: data}
		if err != nil {
			entry = robotsEntry{expires: time.Now().Add(robotsFailureTTL)}
		}
		a.mu.Lock()
		a.cache[host] = entry
		a.mu.Unlock()

		return data, err
	})
	if err != nil {
		return nil, err
	}
	return v.(*robotstxt.RobotsData), nil
}

// fetchRules downloads and parses robots.txt under the lookup deadline.
func (a *RobotsAgent) fetchRules(ctx context.Context, scheme, host string) (*robotstxt.RobotsData, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	robotsURL := scheme + "://" + host + "/robots.txt"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build robots request: %w", err)
	}
	if a.userAgent != "" {
		req.Header.Set("User-Agent", a.userAgent)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("robots returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return nil, fmt.Errorf("read robots.txt: %w", err)
	}

	// 4xx means there are no rules: allow all.
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}
	return data, nil
}

// Purge evicts cached robots rules for a host.
func (a *RobotsAgent) Purge(host string) {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return
	}
	a.mu.Lock()
	delete(a.cache, host)
	a.mu.Unlock()
}
