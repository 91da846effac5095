package fetch

import (
	"net/http"
	"strings"

	"github.com/nao1215/seoaudit/internal/config"
)

// siteTransport wraps an http.RoundTripper to inject the cookie and headers
// configured for the request's host in the .seoaudit file.
//
// Injection happens at the transport level so that redirects and robots.txt
// fetches carry the same credentials as page fetches.
type siteTransport struct {
	base  http.RoundTripper
	sites *config.File
}

// newSiteTransport returns base unchanged when there is nothing to inject.
func newSiteTransport(base http.RoundTripper, sites *config.File) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	if sites == nil {
		return base
	}
	return &siteTransport{base: base, sites: sites}
}

// RoundTrip implements http.RoundTripper.
func (t *siteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	site := t.sites.GetSiteConfig(req.URL.Hostname())
	if site.Cookie == "" && len(site.Headers) == 0 {
		return t.base.RoundTrip(req)
	}

	// Clone the request to avoid modifying the original
	clone := req.Clone(req.Context())

	if site.Cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+site.Cookie)
		} else {
			clone.Header.Set("Cookie", site.Cookie)
		}
	}

	for key, value := range site.Headers {
		if strings.TrimSpace(key) == "" {
			continue
		}
		clone.Header.Set(key, value)
	}

	return t.base.RoundTrip(clone)
}
