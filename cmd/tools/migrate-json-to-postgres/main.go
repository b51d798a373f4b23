// Command migrate-json-to-postgres copies a JSON datastore into Postgres.
// It is meant for promoting a development installation to the production
// driver; the target database receives the schema migration on open.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"reviewdeck/internal/models"
	"reviewdeck/internal/observability/logging"
	"reviewdeck/internal/storage"
)

func main() {
	jsonPath := flag.String("json", "data/reviewdeck.json", "path to the JSON datastore to migrate")
	postgresDSN := flag.String("postgres-dsn", "", "Postgres connection string")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	logger := logging.Init(logging.Config{Level: *logLevel})

	dsn := strings.TrimSpace(*postgresDSN)
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("REVIEWDECK_POSTGRES_DSN"))
	}
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}
	if dsn == "" {
		logger.Error("postgres DSN required", "hint", "set --postgres-dsn, REVIEWDECK_POSTGRES_DSN, or DATABASE_URL")
		os.Exit(1)
	}

	ctx := context.Background()

	source, err := storage.NewStorage(*jsonPath)
	if err != nil {
		logger.Error("failed to open JSON datastore", "error", err)
		os.Exit(1)
	}

	snap, err := loadSnapshot(ctx, source)
	if err != nil {
		logger.Error("failed to read JSON datastore", "error", err)
		os.Exit(1)
	}
	logger.Info("loaded JSON datastore", "path", *jsonPath,
		"users", len(snap.Users), "titles", len(snap.Titles), "reviews", len(snap.Reviews))

	repo, err := storage.NewPostgresRepository(ctx, storage.PostgresConfig{DSN: dsn})
	if err != nil {
		logger.Error("failed to open postgres repository", "error", err)
		os.Exit(1)
	}
	defer func() { _ = repo.Close(context.Background()) }()

	if err := importSnapshot(ctx, repo, snap); err != nil {
		logger.Error("failed to import snapshot", "error", err)
		os.Exit(1)
	}

	if err := verifyCounts(ctx, dsn, snap); err != nil {
		logger.Error("verification failed", "error", err)
		os.Exit(1)
	}

	logger.Info("migration completed",
		"users", len(snap.Users),
		"categories", len(snap.Categories),
		"genres", len(snap.Genres),
		"titles", len(snap.Titles),
		"reviews", len(snap.Reviews),
		"comments", len(snap.Comments))
}

// snapshot holds everything the JSON datastore contains, in import order.
type snapshot struct {
	Users      []models.User
	Categories []models.Category
	Genres     []models.Genre
	Titles     []models.Title
	Reviews    []models.Review
	Comments   []models.Comment
}

func loadSnapshot(ctx context.Context, source storage.Repository) (snapshot, error) {
	var snap snapshot
	var err error

	if snap.Users, err = source.ListUsers(ctx); err != nil {
		return snapshot{}, fmt.Errorf("list users: %w", err)
	}
	if snap.Categories, err = source.ListCategories(ctx); err != nil {
		return snapshot{}, fmt.Errorf("list categories: %w", err)
	}
	if snap.Genres, err = source.ListGenres(ctx); err != nil {
		return snapshot{}, fmt.Errorf("list genres: %w", err)
	}
	if snap.Titles, err = source.ListTitles(ctx, storage.TitleFilter{}); err != nil {
		return snapshot{}, fmt.Errorf("list titles: %w", err)
	}
	for _, title := range snap.Titles {
		reviews, err := source.ListReviews(ctx, title.ID)
		if err != nil {
			return snapshot{}, fmt.Errorf("list reviews for title %s: %w", title.ID, err)
		}
		snap.Reviews = append(snap.Reviews, reviews...)
	}
	for _, review := range snap.Reviews {
		comments, err := source.ListComments(ctx, review.ID)
		if err != nil {
			return snapshot{}, fmt.Errorf("list comments for review %s: %w", review.ID, err)
		}
		snap.Comments = append(snap.Comments, comments...)
	}
	return snap, nil
}

func importSnapshot(ctx context.Context, repo storage.Repository, snap snapshot) error {
	if err := repo.ImportUsers(ctx, snap.Users); err != nil {
		return fmt.Errorf("import users: %w", err)
	}
	if err := repo.ImportCategories(ctx, snap.Categories); err != nil {
		return fmt.Errorf("import categories: %w", err)
	}
	if err := repo.ImportGenres(ctx, snap.Genres); err != nil {
		return fmt.Errorf("import genres: %w", err)
	}
	if err := repo.ImportTitles(ctx, snap.Titles); err != nil {
		return fmt.Errorf("import titles: %w", err)
	}
	if err := repo.ImportReviews(ctx, snap.Reviews); err != nil {
		return fmt.Errorf("import reviews: %w", err)
	}
	if err := repo.ImportComments(ctx, snap.Comments); err != nil {
		return fmt.Errorf("import comments: %w", err)
	}
	return nil
}

// verifyCounts re-counts the target tables over a fresh connection so a
// silently skipped batch cannot pass as a successful migration.
func verifyCounts(ctx context.Context, dsn string, snap snapshot) error {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return fmt.Errorf("parse verification config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open verification connection: %w", err)
	}
	defer pool.Close()

	checks := []struct {
		name     string
		query    string
		expected int
	}{
		{"users", "SELECT COUNT(*) FROM users", len(snap.Users)},
		{"categories", "SELECT COUNT(*) FROM categories", len(snap.Categories)},
		{"genres", "SELECT COUNT(*) FROM genres", len(snap.Genres)},
		{"titles", "SELECT COUNT(*) FROM titles", len(snap.Titles)},
		{"reviews", "SELECT COUNT(*) FROM reviews", len(snap.Reviews)},
		{"comments", "SELECT COUNT(*) FROM comments", len(snap.Comments)},
	}

	for _, check := range checks {
		var actual int
		if err := pool.QueryRow(ctx, check.query).Scan(&actual); err != nil {
			return fmt.Errorf("query %s: %w", check.name, err)
		}
		if actual != check.expected {
			return fmt.Errorf("mismatch for %s: expected %d, got %d", check.name, check.expected, actual)
		}
	}
	return nil
}
