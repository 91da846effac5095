// Package config provides configuration structures and utilities for seoaudit.
// It defines the crawl session parameters, per-site overrides loaded from a
// YAML file, and the validation that runs before any fetch is made.
package config
