package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"reviewdeck/internal/models"
	"reviewdeck/internal/observability/metrics"
)

// CSVImporter loads seed data dumps into a Repository. It expects the
// fixed-name files users.csv, category.csv, genre.csv, titles.csv,
// review.csv and comments.csv in Dir, plus an optional genre_title.csv
// carrying the title/genre join. Foreign-key columns reference the numeric
// primary keys of the dump and are resolved before rows are built; a bad row
// is logged and skipped, while an integrity violation aborts that file's
// batch only.
type CSVImporter struct {
	Repo   Repository
	Dir    string
	Logger *slog.Logger
}

func (imp *CSVImporter) logger() *slog.Logger {
	if imp.Logger != nil {
		return imp.Logger
	}
	return slog.Default()
}

// Run processes every known file in dependency order. Missing files are
// reported and skipped so partial dumps still load.
func (imp *CSVImporter) Run(ctx context.Context) error {
	users := imp.loadUsers(ctx)
	categories := imp.loadCategories(ctx)
	genres := imp.loadGenres(ctx)
	titles := imp.loadTitles(ctx, categories, genres)
	reviews := imp.loadReviews(ctx, titles, users)
	imp.loadComments(ctx, reviews, users)
	return ctx.Err()
}

func (imp *CSVImporter) readRows(name string) ([]map[string]string, bool) {
	path := filepath.Join(imp.Dir, name)
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			imp.logger().Warn("csv file missing, skipping", "file", name)
		} else {
			imp.logger().Error("open csv file", "file", name, "error", err)
		}
		return nil, false
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		imp.logger().Error("read csv header", "file", name, "error", err)
		return nil, false
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []map[string]string
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			// The reader resumes on the record after a parse error, so a
			// single malformed row costs only itself.
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				imp.logger().Warn("malformed csv row", "file", name, "line", parseErr.Line, "error", parseErr.Err)
				continue
			}
			imp.logger().Error("read csv file", "file", name, "error", err)
			break
		}
		if len(record) != len(header) {
			imp.logger().Warn("malformed csv row", "file", name, "line", line)
			continue
		}
		row := make(map[string]string, len(header))
		for i, column := range header {
			row[column] = record[i]
		}
		rows = append(rows, row)
	}
	metrics.ObserveImportRows(name, len(rows))
	return rows, true
}

func parsePubDate(value string) time.Time {
	parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}
	}
	return parsed.UTC()
}

// loadUsers returns the set of imported user ids keyed by dump pk.
func (imp *CSVImporter) loadUsers(ctx context.Context) map[string]string {
	rows, ok := imp.readRows("users.csv")
	if !ok {
		return nil
	}
	users := make([]models.User, 0, len(rows))
	ids := make(map[string]string, len(rows))
	for _, row := range rows {
		id := strings.TrimSpace(row["id"])
		if id == "" {
			imp.logger().Warn("user row without id, skipping", "username", row["username"])
			continue
		}
		users = append(users, models.User{
			ID:        id,
			Username:  row["username"],
			Email:     row["email"],
			Role:      strings.TrimSpace(row["role"]),
			Bio:       row["bio"],
			FirstName: row["first_name"],
			LastName:  row["last_name"],
		})
		ids[id] = id
	}
	if err := imp.Repo.ImportUsers(ctx, users); err != nil {
		imp.logger().Error("import users batch failed", "rows", len(users), "error", err)
		return nil
	}
	imp.logger().Info("imported users", "rows", len(users))
	return ids
}

// loadCategories returns dump pk → slug for foreign-key resolution.
func (imp *CSVImporter) loadCategories(ctx context.Context) map[string]string {
	rows, ok := imp.readRows("category.csv")
	if !ok {
		return nil
	}
	categories := make([]models.Category, 0, len(rows))
	slugs := make(map[string]string, len(rows))
	for _, row := range rows {
		id := strings.TrimSpace(row["id"])
		slug := strings.TrimSpace(row["slug"])
		if id == "" || slug == "" {
			imp.logger().Warn("category row missing id or slug, skipping", "name", row["name"])
			continue
		}
		categories = append(categories, models.Category{Name: row["name"], Slug: slug})
		slugs[id] = slug
	}
	if err := imp.Repo.ImportCategories(ctx, categories); err != nil {
		imp.logger().Error("import categories batch failed", "rows", len(categories), "error", err)
		return nil
	}
	imp.logger().Info("imported categories", "rows", len(categories))
	return slugs
}

func (imp *CSVImporter) loadGenres(ctx context.Context) map[string]string {
	rows, ok := imp.readRows("genre.csv")
	if !ok {
		return nil
	}
	genres := make([]models.Genre, 0, len(rows))
	slugs := make(map[string]string, len(rows))
	for _, row := range rows {
		id := strings.TrimSpace(row["id"])
		slug := strings.TrimSpace(row["slug"])
		if id == "" || slug == "" {
			imp.logger().Warn("genre row missing id or slug, skipping", "name", row["name"])
			continue
		}
		genres = append(genres, models.Genre{Name: row["name"], Slug: slug})
		slugs[id] = slug
	}
	if err := imp.Repo.ImportGenres(ctx, genres); err != nil {
		imp.logger().Error("import genres batch failed", "rows", len(genres), "error", err)
		return nil
	}
	imp.logger().Info("imported genres", "rows", len(genres))
	return slugs
}

func (imp *CSVImporter) loadTitles(ctx context.Context, categories, genres map[string]string) map[string]string {
	rows, ok := imp.readRows("titles.csv")
	if !ok {
		return nil
	}
	titles := make([]models.Title, 0, len(rows))
	index := make(map[string]int, len(rows))
	for _, row := range rows {
		id := strings.TrimSpace(row["id"])
		if id == "" {
			imp.logger().Warn("title row without id, skipping", "name", row["name"])
			continue
		}
		year, err := strconv.Atoi(strings.TrimSpace(row["year"]))
		if err != nil {
			imp.logger().Warn("title row with bad year, skipping", "id", id, "year", row["year"])
			continue
		}
		title := models.Title{ID: id, Name: row["name"], Year: year}
		if pk := strings.TrimSpace(row["category"]); pk != "" {
			slug, resolved := categories[pk]
			if !resolved {
				imp.logger().Warn("title references unknown category, skipping", "id", id, "category", pk)
				continue
			}
			title.CategorySlug = &slug
		}
		titles = append(titles, title)
		index[id] = len(titles) - 1
	}

	// The join file is optional; when present it attaches genres before the
	// titles batch is inserted.
	if rows, ok := imp.readRows("genre_title.csv"); ok {
		for _, row := range rows {
			pos, resolved := index[strings.TrimSpace(row["title_id"])]
			if !resolved {
				imp.logger().Warn("genre link references unknown title, skipping", "title_id", row["title_id"])
				continue
			}
			slug, resolved := genres[strings.TrimSpace(row["genre_id"])]
			if !resolved {
				imp.logger().Warn("genre link references unknown genre, skipping", "genre_id", row["genre_id"])
				continue
			}
			titles[pos].GenreSlugs = append(titles[pos].GenreSlugs, slug)
		}
	}

	if err := imp.Repo.ImportTitles(ctx, titles); err != nil {
		imp.logger().Error("import titles batch failed", "rows", len(titles), "error", err)
		return nil
	}
	imp.logger().Info("imported titles", "rows", len(titles))
	ids := make(map[string]string, len(titles))
	for _, title := range titles {
		ids[title.ID] = title.ID
	}
	return ids
}

func (imp *CSVImporter) loadReviews(ctx context.Context, titles, users map[string]string) map[string]string {
	rows, ok := imp.readRows("review.csv")
	if !ok {
		return nil
	}
	reviews := make([]models.Review, 0, len(rows))
	ids := make(map[string]string, len(rows))
	for _, row := range rows {
		id := strings.TrimSpace(row["id"])
		if id == "" {
			imp.logger().Warn("review row without id, skipping")
			continue
		}
		titleID, resolved := titles[strings.TrimSpace(row["title_id"])]
		if !resolved {
			imp.logger().Warn("review references unknown title, skipping", "id", id, "title_id", row["title_id"])
			continue
		}
		authorID, resolved := users[strings.TrimSpace(row["author"])]
		if !resolved {
			imp.logger().Warn("review references unknown author, skipping", "id", id, "author", row["author"])
			continue
		}
		score, err := strconv.Atoi(strings.TrimSpace(row["score"]))
		if err != nil {
			imp.logger().Warn("review row with bad score, skipping", "id", id, "score", row["score"])
			continue
		}
		reviews = append(reviews, models.Review{
			ID:        id,
			TitleID:   titleID,
			AuthorID:  authorID,
			Text:      row["text"],
			Score:     score,
			CreatedAt: parsePubDate(row["pub_date"]),
		})
		ids[id] = id
	}
	if err := imp.Repo.ImportReviews(ctx, reviews); err != nil {
		imp.logger().Error("import reviews batch failed", "rows", len(reviews), "error", err)
		return nil
	}
	imp.logger().Info("imported reviews", "rows", len(reviews))
	return ids
}

func (imp *CSVImporter) loadComments(ctx context.Context, reviews, users map[string]string) {
	rows, ok := imp.readRows("comments.csv")
	if !ok {
		return
	}
	comments := make([]models.Comment, 0, len(rows))
	for _, row := range rows {
		id := strings.TrimSpace(row["id"])
		if id == "" {
			imp.logger().Warn("comment row without id, skipping")
			continue
		}
		reviewID, resolved := reviews[strings.TrimSpace(row["review_id"])]
		if !resolved {
			imp.logger().Warn("comment references unknown review, skipping", "id", id, "review_id", row["review_id"])
			continue
		}
		authorID, resolved := users[strings.TrimSpace(row["author"])]
		if !resolved {
			imp.logger().Warn("comment references unknown author, skipping", "id", id, "author", row["author"])
			continue
		}
		comments = append(comments, models.Comment{
			ID:        id,
			ReviewID:  reviewID,
			AuthorID:  authorID,
			Text:      row["text"],
			CreatedAt: parsePubDate(row["pub_date"]),
		})
	}
	if err := imp.Repo.ImportComments(ctx, comments); err != nil {
		imp.logger().Error("import comments batch failed", "rows", len(comments), "error", err)
		return
	}
	imp.logger().Info("imported comments", "rows", len(comments))
}
