package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/pevans/newsprobe/config"
	"github.com/pevans/newsprobe/logging"
	"github.com/pevans/newsprobe/sources"
)

func handleServe(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", "", "Listen address (overrides config)")
	dbPath := fs.String("db", "", "SQLite database (overrides config)")
	cf := addCommonFlags(fs)
	fs.Parse(args)

	cfg, closer := loadConfig(func(cfg *config.Config) {
		cf.apply(cfg)
		if *addr != "" {
			cfg.Serve.Addr = *addr
		}
		if *dbPath != "" {
			cfg.Store.DSN = *dbPath
		}
	})
	defer closer.Close()

	store := openRecordStore(cfg.Store.DSN)
	defer store.Close()

	log := logging.GetLogger("api")
	e := sources.NewRecordAPIServer(store, log).SetupRouter()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("address", cfg.Serve.Addr).Msg("Starting record API")
		errCh <- e.Start(cfg.Serve.Addr)
	}()

	fmt.Printf("Serving validation runs on http://%s/api/v1/runs\n", cfg.Serve.Addr)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "Error: server failed: %v\n", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		log.Info().Msg("Shutting down record API")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: forced shutdown: %v\n", err)
			os.Exit(1)
		}
	}
}
