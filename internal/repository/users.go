package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"barangay-portal/internal/models"
)

const userColumns = "id, first_name, last_name, email, phone, address, password_hash, type, created_at, updated_at"

func scanUser(s rowScanner) (*models.User, error) {
	u := &models.User{}
	err := s.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Phone, &u.Address,
		&u.PasswordHash, &u.Type, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (r *Repository) CreateUser(ctx context.Context, u *models.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`,
		u.ID, u.FirstName, u.LastName, strings.ToLower(u.Email), u.Phone, u.Address,
		u.PasswordHash, u.Type, u.CreatedAt)
	if err != nil {
		return wrapInsert(err, "user")
	}
	return nil
}

func (r *Repository) getUser(ctx context.Context, column, value string) (*models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE "+column+" = $1", value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, value)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get user: %v", ErrQueryFailed, err)
	}
	return u, nil
}

func (r *Repository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return r.getUser(ctx, "id", id)
}

// GetUserByEmail matches case-insensitively; emails are stored lower-case.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getUser(ctx, "email", strings.ToLower(strings.TrimSpace(email)))
}

func (r *Repository) ListUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("%w: list users: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	out := make([]*models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan user: %v", ErrQueryFailed, err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *Repository) UpdateUserType(ctx context.Context, id string, t models.UserType, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET type = $1, updated_at = $2 WHERE id = $3", t, at, id)
	if err != nil {
		return fmt.Errorf("%w: update user type: %v", ErrQueryFailed, err)
	}
	return expectOneRow(res, "user", id)
}

// GetContact returns the email and phone used for notifications.
func (r *Repository) GetContact(ctx context.Context, userID string) (email, phone string, err error) {
	err = r.db.QueryRowContext(ctx, "SELECT email, phone FROM users WHERE id = $1", userID).Scan(&email, &phone)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	if err != nil {
		return "", "", fmt.Errorf("%w: get contact: %v", ErrQueryFailed, err)
	}
	return email, phone, nil
}
