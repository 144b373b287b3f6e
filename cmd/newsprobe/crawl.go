package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/pevans/newsprobe/config"
	"github.com/pevans/newsprobe/probe"
	"github.com/pevans/newsprobe/wikipedia"
)

func handleCrawl(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("crawl", flag.ExitOnError)
	output := fs.String("output", "news_websites(wikipedia).csv", "Output CSV file")
	category := fs.String("category", "", "Category page URL (overrides config)")
	delay := fs.Duration("delay", -1, "Minimum delay between requests (overrides config)")
	common := addCommonFlags(fs)
	fs.Parse(args)

	cfg, closer := loadConfig(func(cfg *config.Config) {
		common.apply(cfg)
		if *category != "" {
			cfg.Crawl.CategoryURL = *category
		}
		if *delay >= 0 {
			cfg.Crawl.Delay = *delay
		}
	})
	defer closer.Close()

	crawler, err := wikipedia.NewCrawler(probe.NewHTTPClient(cfg.HTTP.Timeout), wikipedia.Config{
		UserAgent: cfg.HTTP.UserAgent,
		Delay:     cfg.Crawl.Delay,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	f, err := os.Create(*output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create output file: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	writer, err := wikipedia.NewSiteWriter(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Collecting news website links from all countries...")
	started := time.Now()

	stats, err := crawler.Run(ctx, cfg.Crawl.CategoryURL, writer)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: crawl failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("✓ Finished collecting news websites")
	fmt.Printf("  Countries: %d (%d failed)\n", stats.Countries, stats.Failed)
	fmt.Printf("  Sites: %d (%d with a website)\n", stats.Sites, stats.Resolved)
	fmt.Printf("  Output: %s\n", *output)
	fmt.Printf("  Total time taken: %.2f seconds\n", time.Since(started).Seconds())
}
