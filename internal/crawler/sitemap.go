package crawler

import (
	"bytes"
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrNotSitemap is returned for a document with neither a <urlset> nor a
// <sitemapindex> root.
var ErrNotSitemap = errors.New("not a sitemap document")

// Sitemap is the parsed content of a sitemap.xml document.
type Sitemap struct {
	// Locs are the page URLs listed in a <urlset>.
	Locs []string

	// Children are the nested sitemap URLs listed in a <sitemapindex>.
	Children []string
}

// HTTPLocCount returns the number of page locs with an http(s) scheme.
func (s Sitemap) HTTPLocCount() int {
	n := 0
	for _, loc := range s.Locs {
		if isHTTPURL(loc) {
			n++
		}
	}
	return n
}

// ParseSitemap reads the <loc> entries of a sitemap or sitemap index.
func ParseSitemap(body []byte) (Sitemap, error) {
	var sitemap Sitemap

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return sitemap, err
	}

	urlset := doc.Find("urlset")
	index := doc.Find("sitemapindex")
	if urlset.Length() == 0 && index.Length() == 0 {
		return sitemap, ErrNotSitemap
	}

	urlset.Find("url > loc").Each(func(_ int, s *goquery.Selection) {
		if loc := strings.TrimSpace(s.Text()); loc != "" {
			sitemap.Locs = append(sitemap.Locs, loc)
		}
	})
	index.Find("sitemap > loc").Each(func(_ int, s *goquery.Selection) {
		if loc := strings.TrimSpace(s.Text()); loc != "" {
			sitemap.Children = append(sitemap.Children, loc)
		}
	})

	return sitemap, nil
}

func isHTTPURL(raw string) bool {
	lower := strings.ToLower(raw)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
