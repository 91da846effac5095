package model

// Kind identifies what a CrawlTarget is expected to contain.
// The kind decides how the outcome classifier treats a successful fetch.
type Kind int

const (
	// KindPage is an ordinary page whose SEO signals are extracted.
	KindPage Kind = iota

	// KindRobots is the site's /robots.txt. Its raw text is recorded.
	KindRobots

	// KindSitemap is an XML sitemap. Its <loc> entries feed the frontier.
	KindSitemap
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindPage:
		return "page"
	case KindRobots:
		return "robots"
	case KindSitemap:
		return "sitemap"
	default:
		return "unknown"
	}
}

// CrawlTarget is a URL waiting to be fetched.
// It is created by the frontier and never modified afterwards.
type CrawlTarget struct {
	// URL is the normalized absolute URL.
	URL string `json:"url"`

	// DiscoveredFrom is the URL of the page that linked here.
	// Empty for seed targets.
	DiscoveredFrom string `json:"discovered_from,omitempty"`

	// Kind tells the classifier how to treat the response.
	Kind Kind `json:"kind"`
}

// IsSeed reports whether the target was created by seeding rather than discovery.
func (t CrawlTarget) IsSeed() bool {
	return t.DiscoveredFrom == ""
}
