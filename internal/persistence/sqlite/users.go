package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"example.com/habittracker/internal/domain"
)

const userColumns = `id, name, email, password_hash, refresh_token_hash, created_at, updated_at`

// CreateUser implements domain.UserRepository.
func (r *Repository) CreateUser(ctx context.Context, user domain.User) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Name, user.Email, user.PasswordHash, user.RefreshTokenHash, formatTime(user.CreatedAt), formatTime(user.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: email %s", domain.ErrConflict, user.Email)
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

// GetUser implements domain.UserRepository.
func (r *Repository) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return r.findUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, userID)
}

// GetUserByEmail implements domain.UserRepository.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

// SetRefreshTokenHash implements domain.UserRepository.
func (r *Repository) SetRefreshTokenHash(ctx context.Context, userID, hash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET refresh_token_hash = ?, updated_at = ? WHERE id = ?`, hash, formatTime(r.clock()), userID)
	if err != nil {
		return fmt.Errorf("updating refresh token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: user %s", domain.ErrNotFound, userID)
	}
	return nil
}

func (r *Repository) findUser(ctx context.Context, query, arg string) (*domain.User, error) {
	var (
		user                 domain.User
		createdAt, updatedAt string
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.RefreshTokenHash, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if user.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if user.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &user, nil
}
