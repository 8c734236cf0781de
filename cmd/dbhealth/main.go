package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/joseph-ayodele/pdf-text-extractor/internal/common"
	repo "github.com/joseph-ayodele/pdf-text-extractor/internal/repository"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/server"
)

func main() {
	configPath := flag.String("config", "", "YAML config file")
	dsn := flag.String("db", "", "store: SQLite file path or postgres:// URL")
	flag.Parse()

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if *dsn != "" {
		cfg.Database.DSN = *dsn
	}
	logger := common.NewLogger(cfg.Log, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	db, err := server.ConnectDB(ctx, cfg.Database, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "DB open: FAIL (%v)\n", err)
		os.Exit(1)
	}
	defer server.CloseDB(db, logger)

	if err := server.PingDB(ctx, db, logger, time.Second); err != nil {
		fmt.Fprintf(os.Stderr, "DB health: FAIL (%v)\n", err)
		os.Exit(1)
	}
	fmt.Println("DB health: OK")

	st, err := repo.NewResultRepository(db, logger).Stats(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "stats: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("results: %d (%d ok, %d failed)\n", st.Total, st.Successful, st.Failed)
	for m, n := range st.ByMethod {
		fmt.Printf("- %s: %d\n", m, n)
	}
}
