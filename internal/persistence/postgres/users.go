package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"example.com/habittracker/internal/domain"
)

const userColumns = `id, name, email, password_hash, refresh_token_hash, created_at, updated_at`

// CreateUser implements domain.UserRepository.
func (r *Repository) CreateUser(ctx context.Context, user domain.User) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO users (`+userColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		user.ID, user.Name, user.Email, user.PasswordHash, user.RefreshTokenHash, user.CreatedAt.UTC(), user.UpdatedAt.UTC())
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
	return r.findUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
}

// GetUserByEmail implements domain.UserRepository.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// SetRefreshTokenHash implements domain.UserRepository.
func (r *Repository) SetRefreshTokenHash(ctx context.Context, userID, hash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET refresh_token_hash = $2, updated_at = $3 WHERE id = $1`, userID, hash, r.clock().UTC())
	if err != nil {
		return fmt.Errorf("updating refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %s", domain.ErrNotFound, userID)
	}
	return nil
}

func (r *Repository) findUser(ctx context.Context, query string, arg string) (*domain.User, error) {
	var user domain.User
	err := r.pool.QueryRow(ctx, query, arg).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.RefreshTokenHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	return &user, nil
}
