package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".seoaudit"

// xdgConfigFile is the file name looked up in the XDG config directory.
const xdgConfigFile = "config.yaml"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// LoadConfigFile loads site configurations from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound.
// Callers should handle this error appropriately based on whether
// the config file path was explicitly specified by the user.
//
// Site keys are normalized to bare lower-case host names, so
// "https://Example.com/" and "example.com" name the same site. A site entry
// with a malformed glob pattern or a negative page budget is rejected with
// ErrInvalidSiteConfig before any crawl starts.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	// Validate defaults first; their patterns apply to every site.
	if err := validateSiteConfig("defaults", cf.Defaults); err != nil {
		return nil, err
	}

	sites := make(map[string]SiteConfig, len(cf.Sites))
	for key, site := range cf.Sites {
		host := normalizeSiteKey(key)
		if host == "" {
			return nil, fmt.Errorf("%w: %q is not a host name", ErrInvalidSiteConfig, key)
		}
		if err := validateSiteConfig(host, site); err != nil {
			return nil, err
		}
		if _, dup := sites[host]; dup {
			return nil, fmt.Errorf("%w: %s is configured more than once", ErrInvalidSiteConfig, host)
		}
		sites[host] = site
	}
	cf.Sites = sites

	return &cf, nil
}

// normalizeSiteKey reduces a sites key to a lower-case host name.
// Keys may be written as URLs; scheme, path and trailing dot are dropped.
func normalizeSiteKey(key string) string {
	key = strings.TrimSpace(key)
	if strings.Contains(key, "://") {
		u, err := url.Parse(key)
		if err != nil {
			return ""
		}
		key = u.Host
	}
	key = strings.TrimSuffix(strings.TrimSuffix(key, "/"), ".")
	if strings.ContainsAny(key, "/ ") {
		return ""
	}
	return strings.ToLower(key)
}

// validateSiteConfig checks the patterns and page budget of one entry.
func validateSiteConfig(name string, site SiteConfig) error {
	if site.MaxPages < 0 {
		return fmt.Errorf("%w: %s: maxPages must be non-negative", ErrInvalidSiteConfig, name)
	}
	for _, patterns := range [][]string{site.IgnorePatterns, site.FollowPatterns} {
		for _, p := range patterns {
			if _, err := filepath.Match(p, ""); err != nil {
				return fmt.Errorf("%w: %s: bad pattern %q: %v", ErrInvalidSiteConfig, name, p, err)
			}
		}
	}
	return nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .seoaudit in the current directory (per-project site settings)
// 3. Look for config.yaml in the XDG config directory
// 4. Look for .seoaudit in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	// An explicit path is never substituted by a discovered file.
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	candidates := make([]string, 0, 3)

	// Check current directory
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}

	// Check XDG config directory
	candidates = append(candidates, filepath.Join(XDGConfigDir(), xdgConfigFile))

	// Check home directory
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return ""
}
