package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for seoaudit.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seoaudit",
		Short: "Crawl a website and audit its indexability signals",
		Long: `seoaudit crawls a website from a start URL and audits every page it can
reach inside the same registrable domain.

For each URL it records the HTTP status, title, first h1, canonical link,
robots meta directives, hreflang alternates and whether the title or h1
duplicates an earlier page. robots.txt and sitemap.xml are read as well.
The result is written as CSV (default), JSON, Markdown or XLSX, and a
progress snapshot is kept up to date while the crawl runs.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
