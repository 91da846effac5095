// Package database provides SQLite-based storage for seoaudit.
//
// This package implements the AuditDB, which stores:
//   - One row per finalized crawl session with its summary counts
//   - Every audit record of the session, in arrival order
//
// The history lets `seoaudit history` list past audits of a domain and
// compare the two most recent ones.
//
// SQLite via modernc.org/sqlite keeps the store a single CGO-free file in
// the XDG data directory.
package database
