// Package main provides the entry point for the seoaudit CLI.
//
// seoaudit crawls one website from a start URL, stays inside its
// registrable domain, and records the indexability signals of every page
// (title, h1, canonical, robots meta, hreflang, duplicates) in a report.
//
// Usage:
//
//	seoaudit crawl https://example.com/
//	seoaudit history example.com
//
// See --help for all available options.
package main

// main is the entry point for seoaudit.
func main() {
	Execute()
}
