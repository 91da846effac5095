package crawler

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/seoaudit/internal/model"
)

// Signals are the SEO signals of one HTML page.
type Signals struct {
	// Title is the text of the first <title>, trimmed.
	Title string

	// H1 is the full text of the first <h1> including descendants, trimmed.
	H1 string

	// Canonical is the href of the first <link rel="canonical">.
	Canonical string

	// RobotsMeta is the comma-joined content of every <meta name="robots">.
	RobotsMeta string

	// HreflangCount is the number of <link rel="alternate" hreflang="...">.
	HreflangCount int

	// Links are the absolute URLs of every <a href>, resolved against the
	// page's final URL, in document order.
	Links []string
}

// Extract reads the SEO signals and outgoing links of an HTML page.
// Missing or malformed elements yield empty values, never an error.
func Extract(page *model.Page) Signals {
	var signals Signals
	if page == nil {
		return signals
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return signals
	}

	signals.Title = strings.TrimSpace(doc.Find("title").First().Text())
	signals.H1 = strings.TrimSpace(doc.Find("h1").First().Text())

	doc.Find("link[rel][href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if hasRel(s, "canonical") {
			signals.Canonical = strings.TrimSpace(s.AttrOr("href", ""))
			return false
		}
		return true
	})

	var robots []string
	doc.Find("meta[name]").Each(func(_ int, s *goquery.Selection) {
		if !strings.EqualFold(strings.TrimSpace(s.AttrOr("name", "")), "robots") {
			return
		}
		if content, ok := s.Attr("content"); ok {
			robots = append(robots, content)
		}
	})
	signals.RobotsMeta = strings.Join(robots, ",")

	doc.Find("link[rel][hreflang]").Each(func(_ int, s *goquery.Selection) {
		if hasRel(s, "alternate") {
			signals.HreflangCount++
		}
	})

	base, err := url.Parse(page.BaseURL())
	if err != nil {
		return signals
	}
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if link := resolveLink(base, s.AttrOr("href", "")); link != "" {
			signals.Links = append(signals.Links, link)
		}
	})

	return signals
}

// hasRel reports whether the rel attribute of s contains value as one of
// its space-separated tokens, ignoring case.
func hasRel(s *goquery.Selection, value string) bool {
	for _, token := range strings.Fields(s.AttrOr("rel", "")) {
		if strings.EqualFold(token, value) {
			return true
		}
	}
	return false
}

// resolveLink resolves href against base.
// In-page anchors and pseudo links (javascript:, mailto:, tel:, data:) are
// not navigations and resolve to "".
func resolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}

	lower := strings.ToLower(href)
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(lower, prefix) {
			return ""
		}
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}
