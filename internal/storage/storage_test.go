package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	dir := t.TempDir()
	store, err := NewStorage(filepath.Join(dir, "store.json"))
	if err != nil {
		t.Fatalf("NewStorage error: %v", err)
	}
	return store
}

func TestCreateUserValidation(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		params CreateUserParams
	}{
		{name: "empty username", params: CreateUserParams{Email: "a@example.com"}},
		{name: "reserved username", params: CreateUserParams{Username: "me", Email: "a@example.com"}},
		{name: "reserved username uppercase", params: CreateUserParams{Username: "Me", Email: "a@example.com"}},
		{name: "illegal characters", params: CreateUserParams{Username: "bad name!", Email: "a@example.com"}},
		{name: "missing email", params: CreateUserParams{Username: "alice"}},
		{name: "malformed email", params: CreateUserParams{Username: "alice", Email: "not-an-email"}},
		{name: "unknown role", params: CreateUserParams{Username: "alice", Email: "a@example.com", Role: "owner"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := store.CreateUser(ctx, tc.params); !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestCreateUserUniqueness(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	if _, err := store.CreateUser(ctx, CreateUserParams{Username: "alice", Email: "alice@example.com"}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := store.CreateUser(ctx, CreateUserParams{Username: "alice", Email: "other@example.com"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected username conflict, got %v", err)
	}
	if _, err := store.CreateUser(ctx, CreateUserParams{Username: "bob", Email: "alice@example.com"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected email conflict, got %v", err)
	}
}

func TestGetOrCreateUser(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	user, created, err := store.GetOrCreateUser(ctx, "alice", "alice@example.com")
	if err != nil {
		t.Fatalf("GetOrCreateUser: %v", err)
	}
	if !created {
		t.Fatal("expected first signup to create the account")
	}
	if user.Role != "user" {
		t.Fatalf("expected default role user, got %q", user.Role)
	}

	again, created, err := store.GetOrCreateUser(ctx, "alice", "alice@example.com")
	if err != nil {
		t.Fatalf("repeat GetOrCreateUser: %v", err)
	}
	if created {
		t.Fatal("expected exact repeat to be idempotent")
	}
	if again.ID != user.ID {
		t.Fatalf("expected same account, got %s and %s", user.ID, again.ID)
	}

	if _, _, err := store.GetOrCreateUser(ctx, "alice", "elsewhere@example.com"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected username conflict, got %v", err)
	}
	if _, _, err := store.GetOrCreateUser(ctx, "alice2", "alice@example.com"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected email conflict, got %v", err)
	}
}

func TestGetOrCreateUserNormalizesEmail(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	first, _, err := store.GetOrCreateUser(ctx, "alice", "Alice@Example.COM")
	if err != nil {
		t.Fatalf("GetOrCreateUser: %v", err)
	}
	if first.Email != "alice@example.com" {
		t.Fatalf("expected lowercased email, got %q", first.Email)
	}
	_, created, err := store.GetOrCreateUser(ctx, "alice", "alice@example.com")
	if err != nil {
		t.Fatalf("repeat GetOrCreateUser: %v", err)
	}
	if created {
		t.Fatal("expected normalised repeat to match the existing account")
	}
}

func TestUpdateUserRoleAndConflicts(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	alice, err := store.CreateUser(ctx, CreateUserParams{Username: "alice", Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("CreateUser alice: %v", err)
	}
	if _, err := store.CreateUser(ctx, CreateUserParams{Username: "bob", Email: "bob@example.com"}); err != nil {
		t.Fatalf("CreateUser bob: %v", err)
	}

	role := "moderator"
	updated, err := store.UpdateUser(ctx, alice.ID, UserUpdate{Role: &role})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if updated.Role != "moderator" {
		t.Fatalf("expected role moderator, got %q", updated.Role)
	}

	taken := "bob"
	if _, err := store.UpdateUser(ctx, alice.ID, UserUpdate{Username: &taken}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected username conflict, got %v", err)
	}
	bad := "owner"
	if _, err := store.UpdateUser(ctx, alice.ID, UserUpdate{Role: &bad}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown role, got %v", err)
	}
}

func TestDeleteUserCascades(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	author, err := store.CreateUser(ctx, CreateUserParams{Username: "author", Email: "author@example.com"})
	if err != nil {
		t.Fatalf("CreateUser author: %v", err)
	}
	commenter, err := store.CreateUser(ctx, CreateUserParams{Username: "commenter", Email: "commenter@example.com"})
	if err != nil {
		t.Fatalf("CreateUser commenter: %v", err)
	}
	if _, err := store.CreateGenre(ctx, "Drama", ""); err != nil {
		t.Fatalf("CreateGenre: %v", err)
	}
	title, err := store.CreateTitle(ctx, TitleParams{Name: "The Film", Year: 2000, GenreSlugs: []string{"drama"}})
	if err != nil {
		t.Fatalf("CreateTitle: %v", err)
	}
	review, err := store.CreateReview(ctx, ReviewParams{TitleID: title.ID, AuthorID: author.ID, Text: "fine", Score: 7})
	if err != nil {
		t.Fatalf("CreateReview: %v", err)
	}
	comment, err := store.CreateComment(ctx, CommentParams{ReviewID: review.ID, AuthorID: commenter.ID, Text: "agreed"})
	if err != nil {
		t.Fatalf("CreateComment: %v", err)
	}

	if err := store.DeleteUser(ctx, author.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, err := store.GetReview(ctx, title.ID, review.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected review to be removed, got %v", err)
	}
	if _, err := store.GetComment(ctx, review.ID, comment.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected comment on removed review to be gone, got %v", err)
	}
	if _, err := store.GetUser(ctx, commenter.ID); err != nil {
		t.Fatalf("expected commenter account to survive: %v", err)
	}
}

func TestStoragePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.json")
	ctx := context.Background()

	store, err := NewStorage(path)
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	if _, err := store.CreateUser(ctx, CreateUserParams{Username: "alice", Email: "alice@example.com"}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	reopened, err := NewStorage(path)
	if err != nil {
		t.Fatalf("reopen NewStorage: %v", err)
	}
	if _, err := reopened.GetUserByUsername(ctx, "alice"); err != nil {
		t.Fatalf("expected persisted user after reopen: %v", err)
	}
}

func TestPersistFailureRollsBack(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	store.persistOverride = func(dataset) error { return errors.New("disk full") }
	if _, err := store.CreateUser(ctx, CreateUserParams{Username: "alice", Email: "alice@example.com"}); err == nil {
		t.Fatal("expected persist failure to surface")
	}
	store.persistOverride = nil
	if _, err := store.GetUserByUsername(ctx, "alice"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected failed create to leave no record, got %v", err)
	}
}

func TestPersistOverrideReplacesFileWrite(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	var intercepted bool
	store.persistOverride = func(dataset) error {
		intercepted = true
		return nil
	}
	if _, err := store.CreateUser(ctx, CreateUserParams{Username: "alice", Email: "alice@example.com"}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if !intercepted {
		t.Fatal("expected the override to be invoked")
	}
	if _, err := os.Stat(store.filePath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected no file write when the override succeeds, got %v", err)
	}
}
