// Command import-csv loads seed CSV dumps into the datastore. It expects the
// fixed file layout documented on storage.CSVImporter: users.csv,
// category.csv, genre.csv, titles.csv, genre_title.csv, review.csv and
// comments.csv inside the given directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"reviewdeck/internal/observability/logging"
	"reviewdeck/internal/storage"
)

func main() {
	var (
		dir         string
		jsonPath    string
		postgresDSN string
		logLevel    string
	)

	flag.StringVar(&dir, "dir", "data/csv", "directory containing the CSV dump")
	flag.StringVar(&jsonPath, "json", "", "path to the JSON datastore")
	flag.StringVar(&postgresDSN, "postgres-dsn", "", "Postgres connection string")
	flag.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	logger := logging.Init(logging.Config{Level: logLevel})

	if jsonPath == "" && postgresDSN == "" {
		fatalf("either --json or --postgres-dsn must be provided")
	}
	if jsonPath != "" && postgresDSN != "" {
		fatalf("only one datastore option may be provided")
	}
	if strings.TrimSpace(dir) == "" {
		fatalf("--dir is required")
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		fatalf("--dir %q is not a readable directory", dir)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := openRepository(ctx, jsonPath, postgresDSN)
	if err != nil {
		fatalf("open datastore: %v", err)
	}
	defer closeRepository(repo)

	importer := storage.CSVImporter{
		Repo:   repo,
		Dir:    dir,
		Logger: logging.WithComponent(logger, "csv-import"),
	}
	start := time.Now()
	if err := importer.Run(ctx); err != nil {
		logger.Error("import aborted", "error", err)
		os.Exit(1)
	}
	logger.Info("import completed", "dir", dir, "duration", time.Since(start).Round(time.Millisecond).String())
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func openRepository(ctx context.Context, jsonPath, postgresDSN string) (storage.Repository, error) {
	if jsonPath != "" {
		return storage.NewStorage(jsonPath)
	}
	return storage.NewPostgresRepository(ctx, storage.PostgresConfig{DSN: postgresDSN})
}

func closeRepository(repo storage.Repository) {
	if closer, ok := repo.(interface{ Close(context.Context) error }); ok {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = closer.Close(ctx)
	}
}
