// Command create-admin seeds or promotes an administrator account in the
// datastore. Admins created here can then manage the catalogue and other
// accounts through the API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"reviewdeck/internal/models"
	"reviewdeck/internal/storage"
)

func main() {
	var (
		jsonPath    string
		postgresDSN string
		username    string
		email       string
		firstName   string
		lastName    string
	)

	flag.StringVar(&jsonPath, "json", "", "path to the JSON datastore")
	flag.StringVar(&postgresDSN, "postgres-dsn", "", "Postgres connection string")
	flag.StringVar(&username, "username", "", "username for the admin account")
	flag.StringVar(&email, "email", "", "email address for the admin account")
	flag.StringVar(&firstName, "first-name", "", "first name for the admin account")
	flag.StringVar(&lastName, "last-name", "", "last name for the admin account")
	flag.Parse()

	if jsonPath == "" && postgresDSN == "" {
		fatalf("either --json or --postgres-dsn must be provided")
	}
	if jsonPath != "" && postgresDSN != "" {
		fatalf("only one datastore option may be provided")
	}
	if strings.TrimSpace(username) == "" {
		fatalf("--username is required")
	}
	if strings.TrimSpace(email) == "" {
		fatalf("--email is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, err := openRepository(ctx, jsonPath, postgresDSN)
	if err != nil {
		fatalf("open datastore: %v", err)
	}
	defer closeRepository(repo)

	user, created, err := ensureAdmin(ctx, repo, storage.CreateUserParams{
		Username:  strings.TrimSpace(username),
		Email:     strings.TrimSpace(email),
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
	})
	if err != nil {
		fatalf("ensure admin: %v", err)
	}

	state := "promoted"
	if created {
		state = "created"
	}
	fmt.Printf("Admin account %s (%s) %s successfully.\n", user.Username, user.Email, state)
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

// ensureAdmin creates the account with the admin role, or promotes an
// existing account matched by username. Promotion also sets the superuser
// flag so a later role edit cannot silently drop admin rights.
func ensureAdmin(ctx context.Context, repo storage.Repository, params storage.CreateUserParams) (models.User, bool, error) {
	existing, err := repo.GetUserByUsername(ctx, params.Username)
	switch {
	case err == nil:
		return promoteAdmin(ctx, repo, existing)
	case errors.Is(err, storage.ErrNotFound):
	default:
		return models.User{}, false, err
	}

	params.Role = models.RoleAdmin
	params.Superuser = true
	user, err := repo.CreateUser(ctx, params)
	if err != nil {
		return models.User{}, false, err
	}
	return user, true, nil
}

func promoteAdmin(ctx context.Context, repo storage.Repository, existing models.User) (models.User, bool, error) {
	if existing.IsAdmin() && existing.Superuser {
		return existing, false, nil
	}
	role := models.RoleAdmin
	superuser := true
	updated, err := repo.UpdateUser(ctx, existing.ID, storage.UserUpdate{
		Role:      &role,
		Superuser: &superuser,
	})
	if err != nil {
		return models.User{}, false, err
	}
	return updated, false, nil
}
