package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/pevans/newsprobe/config"
	"github.com/pevans/newsprobe/sources"
)

func handleRecordsCommand(action string, args []string) {
	switch action {
	case "runs":
		handleRecordsRuns(args)
	case "list":
		handleRecordsList(args)
	case "help", "--help", "-h":
		printRecordsUsage()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown records command: %s\n\n", action)
		printRecordsUsage()
		os.Exit(1)
	}
}

func printRecordsUsage() {
	fmt.Println("newsprobe records - Inspect stored validation runs")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  newsprobe records <action> [arguments]")
	fmt.Println()
	fmt.Println("Actions:")
	fmt.Println("  runs       List validation runs")
	fmt.Println("  list       List the records of a run (latest by default)")
	fmt.Println("  help       Show this help message")
}

// openRecordStore opens the store named by -db or the configuration.
func openRecordStore(dbFlag string) *sources.RecordStore {
	dsn := dbFlag
	if dsn == "" {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
			os.Exit(1)
		}
		dsn = cfg.Store.DSN
	}
	if dsn == "" {
		fmt.Fprintln(os.Stderr, "Error: no record store configured")
		fmt.Fprintln(os.Stderr, "Set store.dsn, NEWSPROBE_STORE_DSN or pass -db")
		os.Exit(1)
	}

	store, err := sources.NewRecordStore(dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open record store: %v\n", err)
		os.Exit(1)
	}
	return store
}

func handleRecordsRuns(args []string) {
	fs := flag.NewFlagSet("records runs", flag.ExitOnError)
	dbPath := fs.String("db", "", "SQLite database (overrides config)")
	fs.Parse(args)

	store := openRecordStore(*dbPath)
	defer store.Close()

	runs, err := store.ListRuns()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to list runs: %v\n", err)
		os.Exit(1)
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		finished := "running"
		if run.FinishedAt != nil {
			finished = run.FinishedAt.Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{
			run.RunID.String(),
			run.StartedAt.Format("2006-01-02 15:04"),
			finished,
			fmt.Sprintf("%d/%d", run.Usable, run.Total),
			run.InputPath,
		})
	}
	printTable([]string{"RUN ID", "STARTED", "FINISHED", "USABLE", "INPUT"}, rows, 50)
}

func handleRecordsList(args []string) {
	fs := flag.NewFlagSet("records list", flag.ExitOnError)
	dbPath := fs.String("db", "", "SQLite database (overrides config)")
	runFlag := fs.String("run", "", "Run ID (default: latest run)")
	usableOnly := fs.Bool("usable", false, "Only usable sources")
	unusableOnly := fs.Bool("unusable", false, "Only unusable sources")
	country := fs.String("country", "", "Only sources of this country")
	limit := fs.Int("limit", 0, "Maximum number of records")
	format := fs.String("format", "table", "Output format: table, csv")
	fs.Parse(args)

	if *usableOnly && *unusableOnly {
		fmt.Fprintln(os.Stderr, "Error: -usable and -unusable are mutually exclusive")
		os.Exit(1)
	}

	store := openRecordStore(*dbPath)
	defer store.Close()

	var run *sources.Run
	var err error
	if *runFlag != "" {
		runID, parseErr := uuid.Parse(*runFlag)
		if parseErr != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid run ID: %v\n", parseErr)
			os.Exit(1)
		}
		run, err = store.GetRun(runID)
	} else {
		run, err = store.LatestRun()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	filter := sources.RecordFilter{Limit: *limit}
	if *usableOnly || *unusableOnly {
		usable := *usableOnly
		filter.Usable = &usable
	}
	if *country != "" {
		filter.Country = country
	}

	records, err := store.ListRecords(run.RunID, filter)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to list records: %v\n", err)
		os.Exit(1)
	}

	switch strings.ToLower(*format) {
	case "csv":
		w := sources.NewRecordWriter(os.Stdout)
		for _, r := range records {
			if err := w.Write(r); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}
		if err := w.Flush(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "table":
		if len(records) == 0 {
			fmt.Println("No records to display.")
			return
		}
		fmt.Printf("Run %s (%s)\n\n", run.RunID, run.InputPath)
		printRecordsTable(records)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown format: %s\n", *format)
		os.Exit(1)
	}
}
