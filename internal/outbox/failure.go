package outbox

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DLQWriter persists failed events for investigation and replay.
type DLQWriter struct {
	pool       *pgxpool.Pool
	retryDelay time.Duration
}

// DLQWriterOption configures optional behaviour for the DLQWriter.
type DLQWriterOption func(*DLQWriter)

// WithRetryDelay sets the base delay before a message that already failed after
// a replay becomes eligible again. It doubles with every replay, capped at one hour.
func WithRetryDelay(d time.Duration) DLQWriterOption {
	return func(w *DLQWriter) {
		w.retryDelay = d
	}
}

// NewDLQWriter initialises a writer backed by the provided connection pool.
func NewDLQWriter(pool *pgxpool.Pool, opts ...DLQWriterOption) *DLQWriter {
	w := &DLQWriter{pool: pool}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write records a failed outbox message in the DLQ alongside the supplied reason.
// The entry keeps the event's original id and replay count; a first failure is
// eligible for replay immediately.
func (w *DLQWriter) Write(ctx context.Context, msg Message, reason string) error {
	_, err := w.pool.Exec(ctx,
		`INSERT INTO outbox_dlq (event_id, owner_id, aggregate_type, aggregate_id, event_type, topic, partition_key, payload, reason, retry_count, last_attempt_at, next_retry_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10, NOW(), NOW() + $11::interval)`,
		msg.originID(), msg.OwnerID, msg.AggregateType, msg.AggregateID, msg.EventType, msg.Topic, msg.PartitionKey, msg.Payload, reason,
		msg.RetryCount, w.nextRetryDelay(msg.RetryCount),
	)
	return err
}

func (w *DLQWriter) nextRetryDelay(retryCount int) time.Duration {
	if retryCount == 0 || w.retryDelay <= 0 {
		return 0
	}
	return backoff(w.retryDelay, retryCount)
}
