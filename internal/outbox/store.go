package outbox

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultClaimTimeout is how long a claimed but unpublished row stays reserved
// for the dispatcher that claimed it.
const DefaultClaimTimeout = 5 * time.Minute

// PGStore reads and updates the outbox table in Postgres.
type PGStore struct {
	pool         *pgxpool.Pool
	claimTimeout time.Duration
}

// StoreOption configures optional behaviour for the PGStore.
type StoreOption func(*PGStore)

// WithClaimTimeout overrides DefaultClaimTimeout.
func WithClaimTimeout(d time.Duration) StoreOption {
	return func(s *PGStore) {
		if d > 0 {
			s.claimTimeout = d
		}
	}
}

// NewPGStore constructs a PGStore.
func NewPGStore(pool *pgxpool.Pool, opts ...StoreOption) *PGStore {
	s := &PGStore{pool: pool, claimTimeout: DefaultClaimTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Claim reserves up to limit unpublished rows. Rows locked by another transaction,
// or claimed by another dispatcher within the claim timeout, are skipped.
func (s *PGStore) Claim(ctx context.Context, limit int) (messages []Message, err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	const query = `SELECT event_id, COALESCE(origin_event_id, 0), retry_count, owner_id, aggregate_type, aggregate_id, event_type, topic, partition_key, payload
        FROM outbox
        WHERE published_at IS NULL
          AND (claimed_at IS NULL OR claimed_at < NOW() - $2::interval)
        ORDER BY event_id
        LIMIT $1
        FOR UPDATE SKIP LOCKED`

	rows, err := tx.Query(ctx, query, limit, s.claimTimeout)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0)
	for rows.Next() {
		var msg Message
		if err = rows.Scan(&msg.EventID, &msg.OriginEventID, &msg.RetryCount, &msg.OwnerID, &msg.AggregateType, &msg.AggregateID, &msg.EventType, &msg.Topic, &msg.PartitionKey, &msg.Payload); err != nil {
			rows.Close()
			return nil, err
		}
		messages = append(messages, msg)
		ids = append(ids, msg.EventID)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		_ = tx.Rollback(ctx)
		return nil, nil
	}

	if _, err = tx.Exec(ctx, `UPDATE outbox SET claimed_at = NOW() WHERE event_id = ANY($1)`, ids); err != nil {
		return nil, err
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	return messages, nil
}

// MarkPublished stamps published_at on the given rows.
func (s *PGStore) MarkPublished(ctx context.Context, messages []Message) error {
	if len(messages) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(messages))
	for _, msg := range messages {
		ids = append(ids, msg.EventID)
	}
	_, err := s.pool.Exec(ctx, `UPDATE outbox SET published_at = NOW() WHERE event_id = ANY($1)`, ids)
	return err
}
