package domain

import (
	"context"
	"time"
)

// Activity is a timed entry logged by its owner. CreatedAt is the record's
// logical time and is always UTC.
type Activity struct {
	ID          string
	OwnerID     string
	Name        string
	DurationMin int
	Category    Category
	CreatedAt   time.Time
}

// Cursor models the pagination token for newest-first listings.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// ListQuery narrows an owner's activities. Zero Start/End leave that side
// unbounded; End is inclusive. Limit <= 0 returns every match.
type ListQuery struct {
	Category Category
	Start    time.Time
	End      time.Time
	Cursor   *Cursor
	Limit    int
}

// Matches reports whether a satisfies the category and time bounds of q.
func (q ListQuery) Matches(a Activity) bool {
	if q.Category != "" && a.Category != q.Category {
		return false
	}
	if !q.Start.IsZero() && a.CreatedAt.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && a.CreatedAt.After(q.End) {
		return false
	}
	return true
}

// ActivityRepository captures persistence operations for activities.
// Get returns (nil, nil) when the id is unknown.
type ActivityRepository interface {
	Create(ctx context.Context, activity Activity) error
	Get(ctx context.Context, activityID string) (*Activity, error)
	Delete(ctx context.Context, activity Activity) error
	ListByOwner(ctx context.Context, ownerID string, query ListQuery) ([]Activity, *Cursor, error)
}
