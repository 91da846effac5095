package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/seoaudit/internal/config"
	"github.com/nao1215/seoaudit/internal/database"
	"github.com/nao1215/seoaudit/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func readCSVRows(t *testing.T, path string) [][]string {
	t.Helper()

	f, err := os.Open(path) //nolint:gosec // test file path
	if err != nil {
		t.Fatalf("failed to open result: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse result: %v", err)
	}
	return rows
}

// testConfig returns a configuration that writes into dir and keeps
// history out of the user's data directory.
func testConfig(dir, startURL string) *config.Config {
	cfg := config.NewConfig()
	cfg.StartURL = startURL
	cfg.OutputPath = filepath.Join(dir, "out", "results.csv")
	cfg.ProgressPath = filepath.Join(dir, "out", "progress.json")
	cfg.Timeout = 5 * time.Second
	cfg.MaxRetries = 0
	cfg.Concurrency = 4
	cfg.DBDir = filepath.Join(dir, "db")
	cfg.SaveToDB = false
	cfg.SiteConfigs = &config.File{}
	return cfg
}

func newTestSite(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "User-agent: *\nDisallow: /private\n")
	})
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9"></urlset>`)
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><head><title>Home</title></head><body><h1>About</h1></body></html>`)
	})
	mux.HandleFunc("/private", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<title>Secret</title>`)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><head>
<title>Home</title>
<link rel="canonical" href="/">
<meta name="robots" content="index,follow">
</head><body>
<h1>Welcome</h1>
<a href="/about">About</a>
<a href="/private">Private</a>
<a href="http://other.invalid/page">Elsewhere</a>
</body></html>`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// TestRunCrawl tests a crawl end to end against a local site.
func TestRunCrawl(t *testing.T) {
	t.Parallel()

	srv := newTestSite(t)
	dir := t.TempDir()
	cfg := testConfig(dir, srv.URL+"/")

	var out bytes.Buffer
	if err := runCrawl(context.Background(), cfg, discardLogger(), &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows := readCSVRows(t, cfg.OutputPath)
	if strings.Join(rows[0], ",") != strings.Join(model.Columns, ",") {
		t.Errorf("unexpected header: %v", rows[0])
	}

	byURL := make(map[string][]string)
	for _, row := range rows[1:] {
		byURL[row[0]] = row
	}

	home, ok := byURL[srv.URL+"/"]
	if !ok {
		t.Fatalf("expected a row for the start URL, got %v", rows)
	}
	if home[1] != "200" || home[2] != "Home" || home[3] != "Welcome" {
		t.Errorf("unexpected start URL row: %v", home)
	}

	about, ok := byURL[srv.URL+"/about"]
	if !ok {
		t.Fatal("expected a row for /about")
	}
	if about[7] != "true" {
		t.Errorf("expected /about to duplicate the home title, got %v", about)
	}

	private, ok := byURL[srv.URL+"/private"]
	if !ok {
		t.Fatal("expected a row for the robots-blocked URL")
	}
	if private[1] != model.StatusSkipped || private[9] != model.NoteRobotsBlocked {
		t.Errorf("unexpected blocked row: %v", private)
	}

	external, ok := byURL["http://other.invalid/page"]
	if !ok {
		t.Fatal("expected a row for the external link")
	}
	if external[1] != model.StatusSkipped {
		t.Errorf("unexpected external row: %v", external)
	}

	data, err := os.ReadFile(cfg.ProgressPath)
	if err != nil {
		t.Fatalf("failed to read progress: %v", err)
	}
	var snapshot model.ProgressSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		t.Fatalf("invalid progress JSON: %v", err)
	}
	if snapshot.Status != model.ProgressFinished {
		t.Errorf("expected FINISHED, got %s", snapshot.Status)
	}
	if snapshot.ItemsScraped == 0 {
		t.Error("expected items_scraped to be counted")
	}

	if !strings.Contains(out.String(), "Crawl completed") {
		t.Errorf("unexpected output: %q", out.String())
	}
}

// TestRunCrawl_InvalidStartURL tests that an invalid start URL still
// writes the sentinel artifact.
func TestRunCrawl_InvalidStartURL(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := testConfig(dir, "ftp://example.com/")

	err := runCrawl(context.Background(), cfg, discardLogger(), io.Discard)
	if !errors.Is(err, config.ErrInvalidStartURL) {
		t.Fatalf("expected ErrInvalidStartURL, got %v", err)
	}

	rows := readCSVRows(t, cfg.OutputPath)
	if len(rows) != 2 || len(rows[1]) != len(model.Columns) || rows[1][0] != model.SentinelMessage {
		t.Errorf("expected header and sentinel row, got %v", rows)
	}
}

// TestRunCrawl_UnknownFormat tests that an unknown format is rejected and
// the artifact falls back to CSV.
func TestRunCrawl_UnknownFormat(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := testConfig(dir, "https://example.com/")
	cfg.OutputFormat = "yaml"

	err := runCrawl(context.Background(), cfg, discardLogger(), io.Discard)
	if !errors.Is(err, config.ErrUnknownOutputFormat) {
		t.Fatalf("expected ErrUnknownOutputFormat, got %v", err)
	}

	rows := readCSVRows(t, cfg.OutputPath)
	if len(rows) != 2 || rows[1][0] != model.SentinelMessage {
		t.Errorf("expected sentinel CSV, got %v", rows)
	}
}

// TestRunCrawl_Canceled tests that a canceled crawl still writes its
// artifacts and reports FAILED progress.
func TestRunCrawl_Canceled(t *testing.T) {
	t.Parallel()

	srv := newTestSite(t)
	dir := t.TempDir()
	cfg := testConfig(dir, srv.URL+"/")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runCrawl(ctx, cfg, discardLogger(), io.Discard)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	if _, err := os.Stat(cfg.OutputPath); err != nil {
		t.Errorf("expected result artifact: %v", err)
	}

	data, err := os.ReadFile(cfg.ProgressPath)
	if err != nil {
		t.Fatalf("failed to read progress: %v", err)
	}
	var snapshot model.ProgressSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		t.Fatalf("invalid progress JSON: %v", err)
	}
	if snapshot.Status != model.ProgressFailed {
		t.Errorf("expected FAILED, got %s", snapshot.Status)
	}
}

// TestRunCrawl_SavesHistory tests that a finished crawl is stored in the
// history database.
func TestRunCrawl_SavesHistory(t *testing.T) {
	t.Parallel()

	srv := newTestSite(t)
	dir := t.TempDir()
	cfg := testConfig(dir, srv.URL+"/")
	cfg.SaveToDB = true

	if err := runCrawl(context.Background(), cfg, discardLogger(), io.Discard); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	domains, err := db.ListDomains(context.Background())
	if err != nil {
		t.Fatalf("failed to list domains: %v", err)
	}
	if len(domains) != 1 || domains[0] != "127.0.0.1" {
		t.Errorf("expected [127.0.0.1], got %v", domains)
	}
}

// TestNewCrawlCmd tests the crawl command flags.
func TestNewCrawlCmd(t *testing.T) {
	t.Parallel()

	cmd := NewCrawlCmd()
	if cmd.Use != "crawl <start-url>" {
		t.Errorf("unexpected Use: %q", cmd.Use)
	}

	flagsWithShort := map[string]string{
		"output":      "o",
		"format":      "f",
		"progress":    "p",
		"concurrency": "n",
		"timeout":     "t",
		"retries":     "r",
		"max-pages":   "m",
		"user-agent":  "u",
		"config":      "c",
	}
	for name, shorthand := range flagsWithShort {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			t.Errorf("expected flag %q", name)
			continue
		}
		if f.Shorthand != shorthand {
			t.Errorf("flag %q: expected shorthand %q, got %q", name, shorthand, f.Shorthand)
		}
	}

	for _, name := range []string{"delay", "rate", "max-body-size", "ignore-robots",
		"no-empty-duplicates", "case-insensitive", "json-log", "no-history"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected flag %q", name)
		}
	}
}

// TestBuildConfig tests flag parsing into a Config.
func TestBuildConfig(t *testing.T) {
	t.Parallel()

	cmd := NewCrawlCmd()
	cmd.Flags().Bool("verbose", false, "")
	if err := cmd.ParseFlags([]string{
		"-f", "json",
		"-n", "3",
		"--ignore-robots",
		"--no-empty-duplicates",
		"--case-insensitive",
		"--no-history",
		"--rate", "2.5",
		"--verbose",
	}); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}

	cfg, err := buildConfig(cmd, []string{"https://example.com/"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.StartURL != "https://example.com/" {
		t.Errorf("unexpected start URL: %q", cfg.StartURL)
	}
	if cfg.OutputFormat != config.FormatJSON {
		t.Errorf("expected json format, got %q", cfg.OutputFormat)
	}
	if cfg.Concurrency != 3 {
		t.Errorf("expected concurrency 3, got %d", cfg.Concurrency)
	}
	if cfg.RespectRobots || cfg.FlagEmptyDuplicates || !cfg.CaseInsensitiveDuplicates || cfg.SaveToDB {
		t.Errorf("unexpected boolean settings: %+v", cfg)
	}
	if cfg.RateLimit != 2.5 {
		t.Errorf("expected rate 2.5, got %v", cfg.RateLimit)
	}
	if !cfg.Verbose {
		t.Error("expected verbose")
	}
	if cfg.SiteConfigs != nil {
		t.Error("expected site configs to be loaded by runCrawl")
	}
}

// TestRunCrawl_MissingConfigFile tests that a missing explicit config file
// fails the run and still writes the sentinel artifact.
func TestRunCrawl_MissingConfigFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := testConfig(dir, "https://example.com/")
	cfg.SiteConfigs = nil
	cfg.ConfigFilePath = filepath.Join(dir, "missing.yaml")

	err := runCrawl(context.Background(), cfg, discardLogger(), io.Discard)
	if err == nil || !strings.Contains(err.Error(), "configuration file not found") {
		t.Fatalf("expected missing config error, got %v", err)
	}

	rows := readCSVRows(t, cfg.OutputPath)
	if len(rows) != 2 || rows[1][0] != model.SentinelMessage {
		t.Errorf("expected sentinel CSV, got %v", rows)
	}
}

// TestCrawlCmd_MissingConfigFile tests the same failure through the command.
func TestCrawlCmd_MissingConfigFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	outputPath := filepath.Join(dir, "results.csv")

	cmd := NewRootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{
		"crawl",
		"-c", filepath.Join(dir, "missing.yaml"),
		"-o", outputPath,
		"-p", "",
		"--no-history",
		"ftp://example.com",
	})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for a missing config file")
	}

	rows := readCSVRows(t, outputPath)
	if len(rows) != 2 || rows[1][0] != model.SentinelMessage {
		t.Errorf("expected sentinel CSV, got %v", rows)
	}
}
