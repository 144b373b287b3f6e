package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/pevans/newsprobe/config"
	"github.com/pevans/newsprobe/merge"
	"github.com/pevans/newsprobe/probe"
	"github.com/pevans/newsprobe/table"
)

func handleMerge(args []string) {
	fs := flag.NewFlagSet("merge", flag.ExitOnError)
	initialPath := fs.String("initial", "initial_sources_filtered.csv", "Initial sources CSV")
	processedPath := fs.String("processed", "processed_sources.csv", "Processed sources CSV")
	output := fs.String("output", "final_sources.csv", "Output CSV file")
	common := addCommonFlags(fs)
	fs.Parse(args)

	_, closer := loadConfig(common.apply)
	defer closer.Close()

	initial := mustReadTable(*initialPath)
	processed := mustReadTable(*processedPath)

	merged, stats, err := merge.Final(initial, processed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to merge: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Initial Sources dataset duplicate count: %d\n", stats.InitialDuplicates)
	fmt.Printf("Newly processed dataset duplicate count: %d\n", stats.ProcessedDuplicates)
	fmt.Printf("Merged dataset duplicate count: %d\n", stats.MergedDuplicates)

	if err := merged.WriteFile(*output); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to write output: %v\n", err)
		os.Exit(1)
	}

	log.Info().Int("rows", stats.Rows).Int("usable", stats.Usable).Str("output", *output).Msg("Merged sources")
	fmt.Printf("Merged Sources dataset length: %d\n", stats.Rows)
	fmt.Printf("✓ Written to %s\n", *output)
}

func handleCrossCheck(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("crosscheck", flag.ExitOnError)
	wikiPath := fs.String("wiki", "news_websites(wikipedia).csv", "Crawled sites CSV (Name, Link, Country)")
	initialPath := fs.String("initial", "initial_sources.csv", "Initial sources CSV")
	concurrency := fs.Int("concurrency", 0, "Number of workers (overrides config)")
	common := addCommonFlags(fs)
	fs.Parse(args)

	cfg, closer := loadConfig(func(cfg *config.Config) {
		common.apply(cfg)
		if *concurrency > 0 {
			cfg.Validate.Concurrency = *concurrency
		}
	})
	defer closer.Close()

	wiki := mustReadTable(*wikiPath)
	initial := mustReadTable(*initialPath)

	prober := probe.NewProber(probe.NewHTTPClient(cfg.HTTP.Timeout), probe.Config{UserAgent: cfg.HTTP.UserAgent})
	report, err := merge.NewCrossCheck(prober, cfg.Validate.Concurrency).Run(ctx, wiki, initial)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cross check failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Number of sources with a web URL (& non-duplicates): %d / %d\n", report.WithURL, report.Sources)
	fmt.Printf("Number of common sources: %d\n", report.CommonDomains)
	fmt.Printf("Number of valid URLs: %d\n", report.Valid)

	if len(report.Failures) == 0 {
		return
	}

	fmt.Println()
	fmt.Println("Error examples:")
	rows := make([][]string, 0, len(report.Failures))
	for _, f := range report.Failures {
		rows = append(rows, []string{f.Reason, fmt.Sprint(f.Count), f.Example})
	}
	printTable([]string{"REASON", "COUNT", "EXAMPLE"}, rows, 60)
}

// mustReadTable reads a CSV table or exits.
func mustReadTable(path string) *table.Table {
	t, err := table.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to read %s: %v\n", path, err)
		os.Exit(1)
	}
	return t
}
