// Package model defines the core data structures used throughout seoaudit.
//
// This package contains the following main types:
//   - CrawlTarget: A URL discovered by the frontier, tagged with its kind
//   - Page: A fetched HTTP response with its decoded body
//   - FetchOutcome: The tagged result of dispatching one CrawlTarget
//   - PageRecord: One audit row in the output artifact
//   - ProgressSnapshot: The progress artifact read by external monitors
//   - AuditReport: The ordered records of one crawl session
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The crawler, fetch, report and database packages all exchange
// these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model
