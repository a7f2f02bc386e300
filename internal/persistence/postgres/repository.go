// Package postgres stores activities and accounts in PostgreSQL and records
// outbox events in the same transaction as each activity mutation.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/habittracker/internal/domain"
	"example.com/habittracker/internal/events"
	"example.com/habittracker/internal/persistence"
)

const uniqueViolation = "23505"

const activityColumns = `id, owner_id, name, duration_min, category, created_at`

// Repository provides Postgres-backed persistence for activities, users and outbox events.
type Repository struct {
	pool  *pgxpool.Pool
	clock func() time.Time
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, clock: time.Now}
}

// Create persists the activity and its activity.created event inside a single transaction.
func (r *Repository) Create(ctx context.Context, activity domain.Activity) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	_, err = tx.Exec(ctx, `INSERT INTO activities (`+activityColumns+`) VALUES ($1,$2,$3,$4,$5,$6)`,
		activity.ID,
		activity.OwnerID,
		activity.Name,
		activity.DurationMin,
		string(activity.Category),
		activity.CreatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: activity %s already exists", domain.ErrConflict, activity.ID)
		}
		return fmt.Errorf("inserting activity: %w", err)
	}

	if err = insertOutbox(ctx, tx, activity, events.TypeActivityCreated, events.ActivityCreated{
		ActivityID:  activity.ID,
		OwnerID:     activity.OwnerID,
		Name:        activity.Name,
		Category:    string(activity.Category),
		DurationMin: activity.DurationMin,
		CreatedAt:   activity.CreatedAt.UTC(),
		Version:     events.SchemaVersion,
	}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Delete removes the activity when it still belongs to activity.OwnerID and
// records an activity.deleted event.
func (r *Repository) Delete(ctx context.Context, activity domain.Activity) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	tag, err := tx.Exec(ctx, `DELETE FROM activities WHERE id = $1 AND owner_id = $2`, activity.ID, activity.OwnerID)
	if err != nil {
		return fmt.Errorf("deleting activity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		err = fmt.Errorf("%w: activity %s", domain.ErrNotFound, activity.ID)
		return err
	}

	if err = insertOutbox(ctx, tx, activity, events.TypeActivityDeleted, events.ActivityDeleted{
		ActivityID: activity.ID,
		OwnerID:    activity.OwnerID,
		DeletedAt:  r.clock().UTC(),
	}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func insertOutbox(ctx context.Context, tx pgx.Tx, activity domain.Activity, eventType string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	meta, err := lookupEvent(eventType)
	if err != nil {
		return err
	}

	const stmt = `INSERT INTO outbox (owner_id, aggregate_type, aggregate_id, event_type, topic, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	_, err = tx.Exec(ctx, stmt,
		activity.OwnerID,
		"activity",
		activity.ID,
		eventType,
		meta.Topic,
		meta.PartitionKeyFn(activity),
		body,
		fmt.Sprintf("%s:%s", activity.ID, eventType),
	)
	if err != nil {
		return fmt.Errorf("inserting outbox event %s: %w", eventType, err)
	}
	return nil
}

// Get retrieves an activity by ID regardless of owner; callers check ownership.
func (r *Repository) Get(ctx context.Context, activityID string) (*domain.Activity, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+activityColumns+` FROM activities WHERE id = $1`, activityID)
	activity, err := scanActivity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &activity, nil
}

// ListByOwner returns the owner's activities newest first.
func (r *Repository) ListByOwner(ctx context.Context, ownerID string, query domain.ListQuery) ([]domain.Activity, *domain.Cursor, error) {
	clauses := []string{"owner_id = $1"}
	args := []interface{}{ownerID}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if query.Category != "" {
		clauses = append(clauses, "category = "+arg(string(query.Category)))
	}
	if !query.Start.IsZero() {
		clauses = append(clauses, "created_at >= "+arg(query.Start.UTC()))
	}
	if !query.End.IsZero() {
		clauses = append(clauses, "created_at <= "+arg(query.End.UTC()))
	}
	if query.Cursor != nil {
		clauses = append(clauses, fmt.Sprintf("(created_at, id) < (%s, %s)", arg(query.Cursor.CreatedAt.UTC()), arg(query.Cursor.ID)))
	}

	sql := `SELECT ` + activityColumns + ` FROM activities WHERE ` + strings.Join(clauses, " AND ") +
		` ORDER BY created_at DESC, id DESC`
	if query.Limit > 0 {
		sql += " LIMIT " + arg(query.Limit)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
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

func scanActivity(row pgx.Row) (domain.Activity, error) {
	var (
		activity domain.Activity
		category string
	)
	if err := row.Scan(&activity.ID, &activity.OwnerID, &activity.Name, &activity.DurationMin, &category, &activity.CreatedAt); err != nil {
		return domain.Activity{}, err
	}
	activity.Category = domain.Category(category)
	activity.CreatedAt = activity.CreatedAt.UTC()
	return activity, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
