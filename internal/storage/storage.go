package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"reviewdeck/internal/models"
)

type dataset struct {
	Users      map[string]models.User     `json:"users"`
	Categories map[string]models.Category `json:"categories"`
	Genres     map[string]models.Genre    `json:"genres"`
	Titles     map[string]models.Title    `json:"titles"`
	Reviews    map[string]models.Review   `json:"reviews"`
	Comments   map[string]models.Comment  `json:"comments"`
}

// Storage is the JSON-file Repository implementation. The write lock is the
// transaction scope: every mutation validates, applies its changes to the
// in-memory dataset (or a clone for multi-record cascades), persists, and
// only then becomes visible to readers.
type Storage struct {
	mu       sync.RWMutex
	filePath string
	data     dataset
	// persistOverride allows tests to intercept persist operations.
	persistOverride func(dataset) error
}

var _ Repository = (*Storage)(nil)

func newDataset() dataset {
	return dataset{
		Users:      make(map[string]models.User),
		Categories: make(map[string]models.Category),
		Genres:     make(map[string]models.Genre),
		Titles:     make(map[string]models.Title),
		Reviews:    make(map[string]models.Review),
		Comments:   make(map[string]models.Comment),
	}
}

func (s *Storage) ensureDatasetInitializedLocked() {
	if s.data.Users == nil {
		s.data.Users = make(map[string]models.User)
	}
	if s.data.Categories == nil {
		s.data.Categories = make(map[string]models.Category)
	}
	if s.data.Genres == nil {
		s.data.Genres = make(map[string]models.Genre)
	}
	if s.data.Titles == nil {
		s.data.Titles = make(map[string]models.Title)
	}
	if s.data.Reviews == nil {
		s.data.Reviews = make(map[string]models.Review)
	}
	if s.data.Comments == nil {
		s.data.Comments = make(map[string]models.Comment)
	}
}

// NewStorage opens (or creates) the JSON datastore at path.
func NewStorage(path string) (*Storage, error) {
	store := &Storage{filePath: path}
	if err := store.load(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *Storage) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	file, err := os.Open(s.filePath)
	if errors.Is(err, os.ErrNotExist) {
		s.data = newDataset()
		return nil
	} else if err != nil {
		return fmt.Errorf("open store file: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&s.data); err != nil {
		if errors.Is(err, io.EOF) {
			s.data = newDataset()
			return nil
		}
		return fmt.Errorf("decode store file: %w", err)
	}

	s.ensureDatasetInitializedLocked()

	return nil
}

// Ping reports datastore liveness. The JSON store is always reachable once
// loaded.
func (s *Storage) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Storage) persist() error {
	return s.persistDataset(s.data)
}

func (s *Storage) persistDataset(data dataset) error {
	// Tests intercept persistence here; the override fully replaces the
	// file write.
	if s.persistOverride != nil {
		return s.persistOverride(data)
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "store-*.json")
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}
	tmpPath := tmpFile.Name()
	success := false
	defer func() {
		if !success {
			_ = tmpFile.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	encoder := json.NewEncoder(tmpFile)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encode store file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("flush store file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp store file: %w", err)
	}

	if err := os.Rename(tmpPath, s.filePath); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}
	success = true
	return nil
}

func cloneDataset(src dataset) dataset {
	clone := newDataset()

	for id, user := range src.Users {
		clone.Users[id] = user
	}
	for slug, category := range src.Categories {
		clone.Categories[slug] = category
	}
	for slug, genre := range src.Genres {
		clone.Genres[slug] = genre
	}
	for id, title := range src.Titles {
		cloned := title
		if title.CategorySlug != nil {
			category := *title.CategorySlug
			cloned.CategorySlug = &category
		}
		if title.GenreSlugs != nil {
			cloned.GenreSlugs = append([]string(nil), title.GenreSlugs...)
		}
		clone.Titles[id] = cloned
	}
	for id, review := range src.Reviews {
		clone.Reviews[id] = review
	}
	for id, comment := range src.Comments {
		clone.Comments[id] = comment
	}

	return clone
}

func generateID() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
