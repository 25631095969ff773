package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/spotdiff/internal/models"
	"github.com/desertthunder/spotdiff/internal/shared"
)

// UserRepository persists [models.User] display names.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new [UserRepository] with the given database connection
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Get retrieves a user by ID. Returns [shared.ErrUserNotFound] when absent.
func (r *UserRepository) Get(ctx context.Context, id string) (*models.User, error) {
	var user models.User

	err := r.db.QueryRowContext(ctx, `SELECT id, display_name FROM users WHERE id = ?`, id).
		Scan(&user.ID, &user.DisplayName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrUserNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	return &user, nil
}

// Upsert inserts user or replaces the display name of an existing record.
func (r *UserRepository) Upsert(ctx context.Context, user models.User) error {
	if user.ID == "" {
		return fmt.Errorf("%w: user id is required", shared.ErrInvalidInput)
	}

	query := `
		INSERT INTO users (id, display_name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET display_name = excluded.display_name
	`

	if _, err := r.db.ExecContext(ctx, query, user.ID, user.DisplayName); err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	return nil
}

// List retrieves all users ordered by display name.
func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, display_name FROM users ORDER BY display_name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.DisplayName); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return users, nil
}
