package crawler

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/net/publicsuffix"

	"github.com/nao1215/seoaudit/internal/config"
	"github.com/nao1215/seoaudit/internal/model"
)

// ErrInvalidStartURL is returned when the crawl cannot be seeded.
var ErrInvalidStartURL = config.ErrInvalidStartURL

// Verdict is the frontier's answer to an Enqueue call.
type Verdict int

const (
	// VerdictAccepted means the URL was new and is now pending.
	VerdictAccepted Verdict = iota

	// VerdictDuplicate means the URL was already visited, or already reported
	// as rejected. Nothing needs to be done.
	VerdictDuplicate

	// VerdictFiltered means the URL is in scope but was dropped by an
	// ignore/follow pattern or the page budget. It is not reported.
	VerdictFiltered

	// VerdictRejected means the URL is out of scope (another registrable
	// domain or a non-http(s) scheme). It is reported once as skipped and
	// never fetched.
	VerdictRejected
)

// Decision describes what happened to one enqueued URL.
type Decision struct {
	Verdict Verdict

	// URL is the normalized URL, or the raw input if it could not be parsed.
	URL string

	// Reason is the skip note for VerdictRejected.
	Reason string
}

// Frontier holds the pending queue and the visited set of one crawl session.
// Insertion into the visited set is the dedup gate, so a URL is dispatched at
// most once. All methods are safe for concurrent use.
type Frontier struct {
	// domain is the registrable domain of the start URL (e.g. "example.com").
	domain string

	// ignorePatterns are URL path patterns to skip during crawling.
	// Patterns use glob syntax (e.g., "/admin/*", "*.pdf").
	ignorePatterns []string

	// followPatterns are URL path patterns to follow during crawling.
	// If set, only URLs matching these patterns are crawled.
	followPatterns []string

	// maxPages limits the number of PAGE targets admitted. 0 means no limit.
	maxPages int

	mu       sync.Mutex
	visited  map[string]struct{}
	reported map[string]struct{}
	pending  []model.CrawlTarget
	pages    int
}

// FrontierOption configures a Frontier.
type FrontierOption func(*Frontier)

// WithIgnorePatterns sets URL path patterns to skip during crawling.
// Patterns use glob syntax (e.g., "/admin/*", "*.pdf", "/logout*").
func WithIgnorePatterns(patterns []string) FrontierOption {
	return func(f *Frontier) {
		f.ignorePatterns = patterns
	}
}

// WithFollowPatterns sets URL path patterns to follow during crawling.
// If set, only URLs matching at least one pattern are crawled.
func WithFollowPatterns(patterns []string) FrontierOption {
	return func(f *Frontier) {
		f.followPatterns = patterns
	}
}

// WithMaxPages limits how many PAGE targets are admitted. 0 means no limit.
func WithMaxPages(maxPages int) FrontierOption {
	return func(f *Frontier) {
		f.maxPages = maxPages
	}
}

// NewFrontier creates a frontier scoped to the registrable domain of startURL.
func NewFrontier(startURL string, opts ...FrontierOption) (*Frontier, error) {
	u, err := config.ParseStartURL(startURL)
	if err != nil {
		if errors.Is(err, config.ErrNoStartURL) {
			return nil, fmt.Errorf("%w: empty", ErrInvalidStartURL)
		}
		return nil, err
	}

	f := &Frontier{
		domain:   RegistrableDomain(u.Hostname()),
		visited:  make(map[string]struct{}),
		reported: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Domain returns the registrable domain the crawl is scoped to.
func (f *Frontier) Domain() string {
	return f.domain
}

// Seed enqueues the start page, /robots.txt and /sitemap.xml, the latter two
// resolved against the start URL's origin.
func (f *Frontier) Seed(startURL string) error {
	u, err := config.ParseStartURL(startURL)
	if err != nil {
		return err
	}
	origin := strings.ToLower(u.Scheme) + "://" + u.Host

	f.Enqueue(u.String(), "", model.KindPage)
	f.Enqueue(origin+"/robots.txt", "", model.KindRobots)
	f.Enqueue(origin+"/sitemap.xml", "", model.KindSitemap)
	return nil
}

// Enqueue offers rawURL to the frontier. Acceptance atomically marks the
// URL visited and appends it to the pending queue.
func (f *Frontier) Enqueue(rawURL, parent string, kind model.Kind) Decision {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return f.reject(rawURL, model.NoteExternalLink)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return f.reject(rawURL, model.NoteUnsupportedLink+scheme)
	}

	normalized := normalizeURL(u)
	if !f.inScope(u.Hostname()) {
		return f.reject(normalized, model.NoteExternalLink)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.visited[normalized]; ok {
		return Decision{Verdict: VerdictDuplicate, URL: normalized}
	}

	if kind == model.KindPage {
		if !f.shouldCrawl(u) {
			return Decision{Verdict: VerdictFiltered, URL: normalized}
		}
		if f.maxPages > 0 && f.pages >= f.maxPages {
			return Decision{Verdict: VerdictFiltered, URL: normalized}
		}
		f.pages++
	}

	f.visited[normalized] = struct{}{}
	f.pending = append(f.pending, model.CrawlTarget{
		URL:            normalized,
		DiscoveredFrom: parent,
		Kind:           kind,
	})
	return Decision{Verdict: VerdictAccepted, URL: normalized}
}

// reject reports an out-of-scope URL the first time it is seen.
func (f *Frontier) reject(key, reason string) Decision {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.reported[key]; ok {
		return Decision{Verdict: VerdictDuplicate, URL: key}
	}
	f.reported[key] = struct{}{}
	return Decision{Verdict: VerdictRejected, URL: key, Reason: reason}
}

// Next pops the oldest pending target.
func (f *Frontier) Next() (model.CrawlTarget, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.pending) == 0 {
		return model.CrawlTarget{}, false
	}
	target := f.pending[0]
	f.pending[0] = model.CrawlTarget{}
	f.pending = f.pending[1:]
	return target, true
}

// Len returns the number of pending targets.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

// Visited returns the number of URLs ever accepted.
func (f *Frontier) Visited() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.visited)
}

func (f *Frontier) inScope(host string) bool {
	if host == "" {
		return false
	}
	return RegistrableDomain(host) == f.domain
}

// RegistrableDomain returns the eTLD+1 of host ("blog.example.co.uk" ->
// "example.co.uk"). IP addresses, single-label hosts and hosts that are
// themselves public suffixes are returned lower-cased as they are.
func RegistrableDomain(host string) string {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if net.ParseIP(host) != nil {
		return host
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}

// normalizeURL normalizes a URL for deduplication: scheme and host are
// lower-cased, the fragment is dropped and an empty path becomes "/".
// The query string is kept because it can select different content.
func normalizeURL(u *url.URL) string {
	n := *u
	n.Fragment = ""
	n.RawFragment = ""
	n.Scheme = strings.ToLower(n.Scheme)
	n.Host = strings.ToLower(n.Host)
	if n.Path == "" {
		n.Path = "/"
		n.RawPath = ""
	}
	return n.String()
}

// shouldCrawl checks if a URL should be crawled based on ignore/follow patterns.
//
// Logic:
//  1. If URL matches any ignorePattern, skip it (return false)
//  2. If followPatterns is set and URL matches none, skip it (return false)
//  3. Otherwise, crawl it (return true)
func (f *Frontier) shouldCrawl(u *url.URL) bool {
	path := u.Path
	if path == "" {
		path = "/"
	}

	for _, pattern := range f.ignorePatterns {
		if matchPattern(pattern, path) {
			return false
		}
	}

	if len(f.followPatterns) == 0 {
		return true
	}
	for _, pattern := range f.followPatterns {
		if matchPattern(pattern, path) {
			return true
		}
	}
	return false
}

// matchPattern checks if a path matches a glob pattern.
// Patterns can use:
//   - * to match any sequence of non-separator characters
//   - ? to match any single character
//   - a trailing "/*" to match everything below a directory
//
// Examples:
//   - "/admin/*" matches "/admin/dashboard", "/admin/users/edit"
//   - "*.pdf" matches "/docs/file.pdf"
//   - "/api/v?" matches "/api/v1", "/api/v2"
func matchPattern(pattern, path string) bool {
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if strings.HasPrefix(path, prefix+"/") || path == prefix {
			return true
		}
	}

	if strings.HasPrefix(pattern, "*.") {
		if strings.HasSuffix(path, strings.TrimPrefix(pattern, "*")) {
			return true
		}
	}

	matched, err := filepath.Match(pattern, path)
	if err != nil {
		return false
	}
	if matched {
		return true
	}

	// Patterns without a slash also match the last path segment.
	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		matched, err := filepath.Match(pattern, filepath.Base(path))
		if err == nil && matched {
			return true
		}
	}

	return false
}
