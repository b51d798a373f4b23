package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"reviewdeck/internal/models"
)

const userColumns = `id, username, email, first_name, last_name, bio, role, is_superuser, is_staff, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.Bio,
		&user.Role,
		&user.Superuser,
		&user.Staff,
		&user.CreatedAt,
	)
	return user, err
}

func (r *PostgresRepository) insertUser(ctx context.Context, user models.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, username, email, first_name, last_name, bio, role, is_superuser, is_staff, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		user.ID, user.Username, user.Email, user.FirstName, user.LastName,
		user.Bio, user.Role, user.Superuser, user.Staff, user.CreatedAt,
	)
	return translatePgError(err)
}

func (r *PostgresRepository) CreateUser(ctx context.Context, params CreateUserParams) (models.User, error) {
	username := strings.TrimSpace(params.Username)
	email := normalizeEmail(params.Email)
	if err := validateUsername(username); err != nil {
		return models.User{}, err
	}
	if err := validateEmail(email); err != nil {
		return models.User{}, err
	}
	role := params.Role
	if role == "" {
		role = models.RoleUser
	}
	if err := validateRole(role); err != nil {
		return models.User{}, err
	}
	if err := validateProfileFields(params.FirstName, params.LastName, params.Bio); err != nil {
		return models.User{}, err
	}

	id, err := generateID()
	if err != nil {
		return models.User{}, err
	}
	user := models.User{
		ID:        id,
		Username:  username,
		Email:     email,
		FirstName: params.FirstName,
		LastName:  params.LastName,
		Bio:       params.Bio,
		Role:      role,
		Superuser: params.Superuser,
		Staff:     params.Staff,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.insertUser(ctx, user); err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *PostgresRepository) GetOrCreateUser(ctx context.Context, username, email string) (models.User, bool, error) {
	username = strings.TrimSpace(username)
	email = normalizeEmail(email)
	if err := validateUsername(username); err != nil {
		return models.User{}, false, err
	}
	if err := validateEmail(email); err != nil {
		return models.User{}, false, err
	}

	user, err := r.GetUserByUsername(ctx, username)
	switch {
	case err == nil:
		if user.Email == email {
			return user, false, nil
		}
		return models.User{}, false, fmt.Errorf("username %q %w", username, ErrConflict)
	case !errors.Is(err, ErrNotFound):
		return models.User{}, false, err
	}

	id, err := generateID()
	if err != nil {
		return models.User{}, false, err
	}
	created := models.User{
		ID:        id,
		Username:  username,
		Email:     email,
		Role:      models.RoleUser,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.insertUser(ctx, created); err != nil {
		// The email unique index fires when the address belongs to another
		// username; a concurrent signup of the same username lands here too.
		return models.User{}, false, err
	}
	return created, true, nil
}

func (r *PostgresRepository) GetUser(ctx context.Context, id string) (models.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if noRows(err) {
		return models.User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("select user: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	user, err := scanUser(row)
	if noRows(err) {
		return models.User{}, fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("select user: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (r *PostgresRepository) UpdateUser(ctx context.Context, id string, update UserUpdate) (models.User, error) {
	user, err := r.GetUser(ctx, id)
	if err != nil {
		return models.User{}, err
	}

	updated := user
	if update.Username != nil {
		username := strings.TrimSpace(*update.Username)
		if err := validateUsername(username); err != nil {
			return models.User{}, err
		}
		updated.Username = username
	}
	if update.Email != nil {
		email := normalizeEmail(*update.Email)
		if err := validateEmail(email); err != nil {
			return models.User{}, err
		}
		updated.Email = email
	}
	if update.FirstName != nil {
		updated.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		updated.LastName = *update.LastName
	}
	if update.Bio != nil {
		updated.Bio = *update.Bio
	}
	if update.Role != nil {
		if err := validateRole(*update.Role); err != nil {
			return models.User{}, err
		}
		updated.Role = *update.Role
	}
	if update.Superuser != nil {
		updated.Superuser = *update.Superuser
	}
	if update.Staff != nil {
		updated.Staff = *update.Staff
	}
	if err := validateProfileFields(updated.FirstName, updated.LastName, updated.Bio); err != nil {
		return models.User{}, err
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET username = $2, email = $3, first_name = $4, last_name = $5, bio = $6,
			role = $7, is_superuser = $8, is_staff = $9
		WHERE id = $1`,
		id, updated.Username, updated.Email, updated.FirstName, updated.LastName,
		updated.Bio, updated.Role, updated.Superuser, updated.Staff,
	)
	if err != nil {
		return models.User{}, translatePgError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return updated, nil
}

func (r *PostgresRepository) DeleteUser(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return translatePgError(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return nil
}
