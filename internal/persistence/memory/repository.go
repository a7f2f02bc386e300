// Package memory provides an in-process store for tests and local development.
package memory

import (
	"context"
	"fmt"
	"sync"

	"example.com/habittracker/internal/domain"
	"example.com/habittracker/internal/persistence"
)

// Repository keeps activities and users in maps guarded by a RWMutex.
type Repository struct {
	mu         sync.RWMutex
	activities map[string]domain.Activity
	users      map[string]domain.User
	emails     map[string]string
}

// NewRepository constructs an empty Repository.
func NewRepository() *Repository {
	return &Repository{
		activities: make(map[string]domain.Activity),
		users:      make(map[string]domain.User),
		emails:     make(map[string]string),
	}
}

// Create implements domain.ActivityRepository.
func (r *Repository) Create(ctx context.Context, activity domain.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.activities[activity.ID]; exists {
		return fmt.Errorf("%w: activity %s already exists", domain.ErrConflict, activity.ID)
	}
	r.activities[activity.ID] = activity
	return nil
}

// Get implements domain.ActivityRepository.
func (r *Repository) Get(ctx context.Context, activityID string) (*domain.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	activity, ok := r.activities[activityID]
	if !ok {
		return nil, nil
	}
	return &activity, nil
}

// Delete implements domain.ActivityRepository.
func (r *Repository) Delete(ctx context.Context, activity domain.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.activities[activity.ID]
	if !ok || stored.OwnerID != activity.OwnerID {
		return fmt.Errorf("%w: activity %s", domain.ErrNotFound, activity.ID)
	}
	delete(r.activities, activity.ID)
	return nil
}

// ListByOwner implements domain.ActivityRepository.
func (r *Repository) ListByOwner(ctx context.Context, ownerID string, query domain.ListQuery) ([]domain.Activity, *domain.Cursor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]domain.Activity, 0)
	for _, activity := range r.activities {
		if activity.OwnerID != ownerID || !query.Matches(activity) || !persistence.Before(activity, query.Cursor) {
			continue
		}
		results = append(results, activity)
	}
	persistence.SortNewestFirst(results)
	page, next := persistence.Page(results, query.Limit)
	return page, next, nil
}

// CreateUser implements domain.UserRepository.
func (r *Repository) CreateUser(ctx context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.emails[user.Email]; taken {
		return fmt.Errorf("%w: email %s", domain.ErrConflict, user.Email)
	}
	r.users[user.ID] = user
	r.emails[user.Email] = user.ID
	return nil
}

// GetUser implements domain.UserRepository.
func (r *Repository) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[userID]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

// GetUserByEmail implements domain.UserRepository.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.emails[email]
	if !ok {
		return nil, nil
	}
	user := r.users[id]
	return &user, nil
}

// SetRefreshTokenHash implements domain.UserRepository.
func (r *Repository) SetRefreshTokenHash(ctx context.Context, userID, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return fmt.Errorf("%w: user %s", domain.ErrNotFound, userID)
	}
	user.RefreshTokenHash = hash
	r.users[userID] = user
	return nil
}
