// Package crawler is the crawl orchestration engine of seoaudit.
//
// # Architecture
//
// One Engine.Run call is one audit session. The session owns every piece of
// mutable state; nothing in this package is process-wide.
//
//   - Frontier: the pending queue and visited set, scoped to the registrable
//     domain of the start URL. Insertion into the visited set is the dedup
//     gate, so every URL is dispatched at most once.
//   - Classify: the single state machine that maps a fetch outcome to a
//     report row, a sitemap discovery step, or an audit of an HTML page.
//   - Extract: reads title, h1, canonical, robots meta, hreflang count and
//     links from an HTML page with goquery.
//   - DuplicateDetector: flags titles and h1s that were seen on an earlier page.
//
// # Concurrency
//
// Fetches run concurrently, bounded by a weighted semaphore and owned by an
// errgroup. Everything else runs on the dispatcher goroutine that called
// Run, which makes record emission order deterministic for a given
// completion order.
//
// # Scope
//
// Links to another registrable domain, or with a scheme other than http and
// https, are reported once as skipped and never fetched. In-domain URLs
// excluded by ignore/follow patterns or the page budget are dropped silently.
//
// # Usage
//
//	engine := crawler.NewEngine(fetcher, sink,
//	    crawler.WithConcurrency(8),
//	    crawler.WithProgress(tracker),
//	)
//	stats, err := engine.Run(ctx, "https://example.com/")
package crawler
