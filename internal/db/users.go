package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/marketing-hub/internal/store"
	"github.com/jonathan/marketing-hub/internal/types"
)

const userColumns = `id, email, name, phone, role, preferences, created_at, updated_at`

func scanUser(row pgx.Row) (*types.User, error) {
	var (
		u     types.User
		prefs []byte
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Phone, &u.Role, &prefs, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	if err := unjsonb(prefs, &u.Preferences); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUser retrieves a user by ID
func (db *DB) GetUser(ctx context.Context, id uuid.UUID) (*types.User, error) {
	u, err := scanUser(db.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", id, notFound(err))
	}
	return u, nil
}

// GetUserByEmail retrieves a user by email, ignoring case
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	u, err := scanUser(db.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email))
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", notFound(err))
	}
	return u, nil
}

// CreateUser inserts a new user
func (db *DB) CreateUser(ctx context.Context, u *types.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}
	if u.Role == "" {
		u.Role = types.RoleUser
	}
	prefs, err := jsonb(u.Preferences)
	if err != nil {
		return err
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO users (id, email, name, phone, role, preferences, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, u.Email, u.Name, u.Phone, u.Role, prefs, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// UpdateUser updates a user's profile fields and role
func (db *DB) UpdateUser(ctx context.Context, u *types.User) error {
	prefs, err := jsonb(u.Preferences)
	if err != nil {
		return err
	}
	u.UpdatedAt = time.Now().UTC()

	err = db.pool.QueryRow(ctx,
		`UPDATE users SET email = $2, name = $3, phone = $4, role = $5, preferences = $6, updated_at = $7
		 WHERE id = $1 RETURNING created_at`,
		u.ID, u.Email, u.Name, u.Phone, u.Role, prefs, u.UpdatedAt).Scan(&u.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to update user %s: %w", u.ID, notFound(err))
	}
	return nil
}

// ListUsers returns every user, oldest first
func (db *DB) ListUsers(ctx context.Context) ([]*types.User, error) {
	rows, err := db.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, email`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []*types.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

var _ store.UserStore = (*DB)(nil)
