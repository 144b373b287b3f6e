package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/pevans/newsprobe/config"
	"github.com/pevans/newsprobe/probe"
	"github.com/pevans/newsprobe/sources"
	"github.com/pevans/newsprobe/validator"
)

func handleValidate(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	input := fs.String("input", "news_websites_modded.csv", "Candidate sources CSV (publisher_name, link, country)")
	output := fs.String("output", "processed_sources.csv", "Output CSV file")
	concurrency := fs.Int("concurrency", 0, "Number of workers (overrides config)")
	dbPath := fs.String("db", "", "SQLite database to record the run in (overrides config)")
	quiet := fs.Bool("quiet", false, "Do not print a line per source")
	common := addCommonFlags(fs)
	fs.Parse(args)

	cfg, closer := loadConfig(func(cfg *config.Config) {
		common.apply(cfg)
		if *concurrency > 0 {
			cfg.Validate.Concurrency = *concurrency
		}
		if *dbPath != "" {
			cfg.Store.DSN = *dbPath
		}
	})
	defer closer.Close()

	in, err := os.Open(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open input: %v\n", err)
		os.Exit(1)
	}
	candidates, err := sources.ReadCandidates(in)
	in.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to read candidates: %v\n", err)
		os.Exit(1)
	}

	out, err := os.Create(*output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create output file: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()
	writer := sources.NewRecordWriter(out)

	var store *sources.RecordStore
	var run *sources.Run
	if cfg.Store.DSN != "" {
		store, err = sources.NewRecordStore(cfg.Store.DSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to open record store: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		run, err = store.CreateRun(*input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	prober := probe.NewProber(probe.NewHTTPClient(cfg.HTTP.Timeout), probe.Config{UserAgent: cfg.HTTP.UserAgent})
	v := validator.New(prober, validator.Config{Concurrency: cfg.Validate.Concurrency})

	fmt.Printf("Processing %d sources with %d workers...\n\n", len(candidates), cfg.Validate.Concurrency)

	summary, runErr := v.Run(ctx, candidates, func(r sources.Record) error {
		if err := writer.Write(r); err != nil {
			return err
		}
		if store != nil {
			if err := store.SaveRecord(run.RunID, r); err != nil {
				return err
			}
		}
		if !*quiet {
			printRecordLine(r)
		}
		return nil
	})

	// Whatever finished is kept, even when the run was interrupted.
	if err := writer.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to write output: %v\n", err)
		os.Exit(1)
	}
	if store != nil {
		if err := store.FinishRun(run.RunID, int(summary.Processed), int(summary.Usable)); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to finish run: %v\n", err)
			os.Exit(1)
		}
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: validation stopped: %v\n", runErr)
		os.Exit(1)
	}

	printValidationSummary(summary)
	fmt.Printf("  Output: %s\n", *output)
	if run != nil {
		fmt.Printf("  Run ID: %s\n", run.RunID)
	}
}
