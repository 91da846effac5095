package config

import "strings"

// SiteConfig holds site-specific configuration for a single host.
// This allows customizing crawl behavior per audited domain.
type SiteConfig struct {
	// Cookie is an HTTP cookie to send when crawling this site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// MaxPages overrides the global page budget for this site.
	// If zero, the global MaxPages is used.
	MaxPages int `yaml:"maxPages,omitempty"`

	// IgnorePatterns are URL path patterns to skip during crawling.
	// Patterns are matched against the URL path using glob syntax.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns are URL path patterns to follow during crawling.
	// If specified, only URLs matching these patterns are crawled.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`
}

// File represents the structure of the .seoaudit configuration file.
type File struct {
	// Sites maps host names to their site-specific configurations.
	// Keys are host names without scheme (e.g., "www.example.com").
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains default site configuration applied to all sites
	// unless overridden in the site-specific configuration.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for a host merged over the defaults.
// A host without an exact entry also matches an entry for the same host
// with or without the "www." prefix.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	if cf == nil {
		return SiteConfig{}
	}

	host = strings.ToLower(strings.TrimSpace(host))
	siteConfig, ok := cf.Sites[host]
	if !ok {
		alt := "www." + host
		if strings.HasPrefix(host, "www.") {
			alt = strings.TrimPrefix(host, "www.")
		}
		siteConfig, ok = cf.Sites[alt]
	}
	if !ok {
		return cf.Defaults
	}

	return MergeSiteConfig(cf.Defaults, siteConfig)
}

// MergeSiteConfig merges default config with site-specific overrides.
// Non-zero override values win; headers are merged key by key.
func MergeSiteConfig(defaults, override SiteConfig) SiteConfig {
	result := defaults

	if override.Cookie != "" {
		result.Cookie = override.Cookie
	}
	if override.MaxPages > 0 {
		result.MaxPages = override.MaxPages
	}
	if len(override.Headers) > 0 {
		merged := make(map[string]string, len(defaults.Headers)+len(override.Headers))
		for k, v := range defaults.Headers {
			merged[k] = v
		}
		for k, v := range override.Headers {
			merged[k] = v
		}
		result.Headers = merged
	}
	if len(override.IgnorePatterns) > 0 {
		result.IgnorePatterns = override.IgnorePatterns
	}
	if len(override.FollowPatterns) > 0 {
		result.FollowPatterns = override.FollowPatterns
	}

	return result
}
