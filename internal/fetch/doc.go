// Package fetch is the HTTP collaborator of the audit crawler.
//
// HTTPFetcher turns one crawl target into one model.FetchOutcome. It never
// returns a Go error to the engine: transport problems are folded into a
// failed outcome whose ErrorKind tells the classifier how to report it.
//
// # Responsibilities
//
//   - robots.txt evaluation through RobotsAgent (temoto/robotstxt). A
//     disallowed URL becomes a failure of kind ErrorKindRobots and is never
//     retried.
//   - Per-host politeness through HostLimiter (fixed delay plus an optional
//     token bucket from golang.org/x/time/rate).
//   - Per-fetch deadlines and a bounded retry budget for transient failures.
//   - Body decoding: gzip, deflate and brotli content encodings, a size cap,
//     and charset conversion of HTML to UTF-8.
//   - Per-site cookie and header injection from the .seoaudit file.
package fetch
