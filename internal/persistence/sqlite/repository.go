package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"example.com/habittracker/internal/domain"
	"example.com/habittracker/internal/persistence"
)

// timeLayout is fixed width so lexical order in TEXT columns matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const activityColumns = `id, owner_id, name, duration_min, category, created_at`

// Repository implements the activity and user repositories on *sql.DB.
type Repository struct {
	db    *sql.DB
	clock func() time.Time
}

// NewRepository constructs a Repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, clock: time.Now}
}

// Create implements domain.ActivityRepository.
func (r *Repository) Create(ctx context.Context, activity domain.Activity) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO activities (`+activityColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		activity.ID,
		activity.OwnerID,
		activity.Name,
		activity.DurationMin,
		string(activity.Category),
		formatTime(activity.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: activity %s already exists", domain.ErrConflict, activity.ID)
		}
		return fmt.Errorf("inserting activity: %w", err)
	}
	return nil
}

// Get implements domain.ActivityRepository.
func (r *Repository) Get(ctx context.Context, activityID string) (*domain.Activity, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+activityColumns+` FROM activities WHERE id = ?`, activityID)
	activity, err := scanActivity(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &activity, nil
}

// Delete implements domain.ActivityRepository.
func (r *Repository) Delete(ctx context.Context, activity domain.Activity) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM activities WHERE id = ? AND owner_id = ?`, activity.ID, activity.OwnerID)
	if err != nil {
		return fmt.Errorf("deleting activity: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: activity %s", domain.ErrNotFound, activity.ID)
	}
	return nil
}

// ListByOwner implements domain.ActivityRepository.
func (r *Repository) ListByOwner(ctx context.Context, ownerID string, query domain.ListQuery) ([]domain.Activity, *domain.Cursor, error) {
	clauses := []string{"owner_id = ?"}
	args := []interface{}{ownerID}

	if query.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, string(query.Category))
	}
	if !query.Start.IsZero() {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, formatTime(query.Start))
	}
	if !query.End.IsZero() {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, formatTime(query.End))
	}
	if query.Cursor != nil {
		cursorAt := formatTime(query.Cursor.CreatedAt)
		clauses = append(clauses, "(created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, cursorAt, cursorAt, query.Cursor.ID)
	}

	stmt := `SELECT ` + activityColumns + ` FROM activities WHERE ` + strings.Join(clauses, " AND ") +
		` ORDER BY created_at DESC, id DESC`
	if query.Limit > 0 {
		stmt += " LIMIT ?"
		args = append(args, query.Limit)
	}

	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("listing activities: %w", err)
	}
	defer rows.Close()

	results := make([]domain.Activity, 0)
	for rows.Next() {
		activity, err := scanActivity(rows)
		if err != nil {
			return nil, nil, err
		}
		results = append(results, activity)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	page, next := persistence.Page(results, query.Limit)
	return page, next, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanActivity(row scanner) (domain.Activity, error) {
	var (
		activity  domain.Activity
		category  string
		createdAt string
	)
	if err := row.Scan(&activity.ID, &activity.OwnerID, &activity.Name, &activity.DurationMin, &category, &createdAt); err != nil {
		return domain.Activity{}, err
	}
	ts, err := parseTime(createdAt)
	if err != nil {
		return domain.Activity{}, fmt.Errorf("parsing created_at for %s: %w", activity.ID, err)
	}
	activity.Category = domain.Category(category)
	activity.CreatedAt = ts
	return activity, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
