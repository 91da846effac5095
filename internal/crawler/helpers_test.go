package crawler

import (
	"context"
	"sync"
	"time"

	"github.com/nao1215/seoaudit/internal/model"
)

// fakeResponse is a canned answer of fakeFetcher.
type fakeResponse struct {
	status      int
	contentType string
	body        string
	errKind     model.ErrorKind
	message     string
}

func htmlPage(body string) fakeResponse {
	return fakeResponse{status: 200, contentType: "text/html; charset=utf-8", body: body}
}

// fakeFetcher serves canned responses by URL and records how often each URL
// was fetched and how many fetches overlapped.
type fakeFetcher struct {
	responses map[string]fakeResponse
	delay     time.Duration

	mu          sync.Mutex
	calls       map[string]int
	inflight    int
	maxInflight int
}

func newFakeFetcher(responses map[string]fakeResponse) *fakeFetcher {
	return &fakeFetcher{responses: responses, calls: make(map[string]int)}
}

func (f *fakeFetcher) Fetch(ctx context.Context, target model.CrawlTarget) model.FetchOutcome {
	f.mu.Lock()
	f.calls[target.URL]++
	f.inflight++
	if f.inflight > f.maxInflight {
		f.maxInflight = f.inflight
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inflight--
		f.mu.Unlock()
	}()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return model.NewFailedOutcome(target, model.ErrorKindCanceled, ctx.Err().Error())
		}
	}

	resp, ok := f.responses[target.URL]
	if !ok {
		resp = fakeResponse{status: 404, contentType: "text/html", body: "<title>Not Found</title>"}
	}
	if resp.errKind != model.ErrorKindNone {
		return model.NewFailedOutcome(target, resp.errKind, resp.message)
	}

	page := &model.Page{
		URL:         target.URL,
		FinalURL:    target.URL,
		StatusCode:  resp.status,
		ContentType: resp.contentType,
		Body:        []byte(resp.body),
		FetchedAt:   time.Now(),
	}
	return model.NewSuccessOutcome(target, page)
}

func (f *fakeFetcher) callCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

func (f *fakeFetcher) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

// memorySink collects records in emission order.
type memorySink struct {
	mu      sync.Mutex
	records []model.PageRecord
}

func (s *memorySink) Add(r model.PageRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
}

func (s *memorySink) byURL() map[string]model.PageRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := make(map[string]model.PageRecord, len(s.records))
	for _, r := range s.records {
		m[r.URL] = r
	}
	return m
}

func (s *memorySink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// recordingProgress records every progress call.
type recordingProgress struct {
	mu            sync.Mutex
	sitemapCounts []int
	terminal      []string
}

func (p *recordingProgress) OnSeenSitemap(count int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sitemapCounts = append(p.sitemapCounts, count)
}

func (p *recordingProgress) OnTerminalOutcome(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.terminal = append(p.terminal, url)
}
