package crawler

import (
	"errors"
	"reflect"
	"testing"
)

// TestParseSitemap tests reading sitemap and sitemap index documents.
func TestParseSitemap(t *testing.T) {
	t.Parallel()

	t.Run("urlset", func(t *testing.T) {
		t.Parallel()

		body := `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc> https://example.com/a </loc><lastmod>2024-01-01</lastmod></url>
  <url><loc>https://example.com/b</loc></url>
  <url><loc>/relative</loc></url>
  <url><loc></loc></url>
</urlset>`
		sm, err := ParseSitemap([]byte(body))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{"https://example.com/a", "https://example.com/b", "/relative"}
		if !reflect.DeepEqual(sm.Locs, want) {
			t.Errorf("Locs = %v, want %v", sm.Locs, want)
		}
		if sm.HTTPLocCount() != 2 {
			t.Errorf("expected 2 http locs, got %d", sm.HTTPLocCount())
		}
		if len(sm.Children) != 0 {
			t.Errorf("expected no children, got %v", sm.Children)
		}
	})

	t.Run("sitemap index", func(t *testing.T) {
		t.Parallel()

		body := `<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>https://example.com/posts.xml</loc></sitemap>
  <sitemap><loc>https://example.com/pages.xml</loc></sitemap>
</sitemapindex>`
		sm, err := ParseSitemap([]byte(body))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{"https://example.com/posts.xml", "https://example.com/pages.xml"}
		if !reflect.DeepEqual(sm.Children, want) {
			t.Errorf("Children = %v, want %v", sm.Children, want)
		}
		if len(sm.Locs) != 0 {
			t.Errorf("expected no page locs, got %v", sm.Locs)
		}
	})

	t.Run("html soft 404 is not a sitemap", func(t *testing.T) {
		t.Parallel()

		_, err := ParseSitemap([]byte(`<html><body><h1>Page not found</h1></body></html>`))
		if !errors.Is(err, ErrNotSitemap) {
			t.Errorf("expected ErrNotSitemap, got %v", err)
		}
	})
}
