package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pevans/newsprobe/config"
	"github.com/pevans/newsprobe/logging"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	subcommand := os.Args[1]
	args := os.Args[2:]

	switch subcommand {
	case "crawl":
		handleCrawl(ctx, args)
	case "validate":
		handleValidate(ctx, args)
	case "crosscheck":
		handleCrossCheck(ctx, args)
	case "merge":
		handleMerge(args)
	case "extract":
		handleExtract(ctx, args)
	case "records":
		if len(args) < 1 {
			printRecordsUsage()
			os.Exit(1)
		}
		handleRecordsCommand(args[0], args[1:])
	case "serve":
		handleServe(ctx, args)
	case "init":
		handleInit(args)
	case "config":
		handleConfigShow(args)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command: %s\n\n", subcommand)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("newsprobe - News source list builder and validator")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  newsprobe <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  crawl       Crawl Wikipedia for news websites by country")
	fmt.Println("  validate    Check liveness, feeds and robots.txt of candidate sources")
	fmt.Println("  crosscheck  Compare the crawled list with the initial sources")
	fmt.Println("  merge       Merge usable processed sources into the initial sources")
	fmt.Println("  extract     Test article extraction on the final source list")
	fmt.Println("  records     Inspect stored validation runs")
	fmt.Println("  serve       Serve stored validation runs over HTTP")
	fmt.Println("  init        Write the default config file")
	fmt.Println("  config      Show the effective configuration")
	fmt.Println("  help        Show this help message")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  NEWSPROBE_CONFIG        Path to config file (default: ~/.newsprobe/config.yaml)")
	fmt.Println("  NEWSPROBE_HTTP_TIMEOUT  Per request timeout (default: 5s)")
	fmt.Println("  NEWSPROBE_USER_AGENT    User-Agent sent with every request")
	fmt.Println("  NEWSPROBE_LOG_LEVEL     Log level (default: info)")
	fmt.Println("  NEWSPROBE_LOG_FILE      Log file (default: newsprobe.log)")
	fmt.Println("  NEWSPROBE_CONCURRENCY   Validator workers (default: CPUs + 4, at most 32)")
	fmt.Println("  NEWSPROBE_STORE_DSN     SQLite database validation runs are recorded in")
}

// commonFlags are accepted by every pipeline command and override the
// loaded configuration.
type commonFlags struct {
	timeout   time.Duration
	userAgent string
	logLevel  string
	logFile   string
	verbose   bool
}

func addCommonFlags(fs *flag.FlagSet) *commonFlags {
	cf := &commonFlags{}
	fs.DurationVar(&cf.timeout, "timeout", 0, "Per request timeout (overrides config)")
	fs.StringVar(&cf.userAgent, "user-agent", "", "User-Agent header (overrides config)")
	fs.StringVar(&cf.logLevel, "log-level", "", "Log level (overrides config)")
	fs.StringVar(&cf.logFile, "log-file", "", "Log file (overrides config)")
	fs.BoolVar(&cf.verbose, "verbose", false, "Also write log lines to stderr")
	return cf
}

func (cf *commonFlags) apply(cfg *config.Config) {
	if cf.timeout != 0 {
		cfg.HTTP.Timeout = cf.timeout
	}
	if cf.userAgent != "" {
		cfg.HTTP.UserAgent = cf.userAgent
	}
	if cf.logLevel != "" {
		cfg.Log.Level = cf.logLevel
	}
	if cf.logFile != "" {
		cfg.Log.File = cf.logFile
	}
	if cf.verbose {
		cfg.Log.Console = true
	}
}

// loadConfig resolves the configuration, lets override adjust it from
// flags, and installs the logger. The returned closer releases the log file.
func loadConfig(override func(*config.Config)) (*config.Config, io.Closer) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	if override != nil {
		override(cfg)
	}
	if err := cfg.Check(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration: %v\n", err)
		os.Exit(1)
	}

	closer, err := logging.Setup(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to set up logging: %v\n", err)
		os.Exit(1)
	}

	return cfg, closer
}
