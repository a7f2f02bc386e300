//go:build integration

package consumer_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/habittracker/internal/consumer"
	"example.com/habittracker/internal/testsupport"
)

func TestPersistenceHandlerStoresEventOnce(t *testing.T) {
	ctx := context.Background()
	pool := testsupport.StartPostgres(ctx, t)

	handler := consumer.NewPersistenceHandler(pool)
	msg := consumer.Message{
		Topic:      "activity_events",
		Partition:  2,
		Offset:     17,
		Timestamp:  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		EventType:  "activity.created",
		EventID:    "101",
		OwnerID:    "owner-1",
		ActivityID: "act-1",
		Payload:    json.RawMessage(`{"activity_id":"act-1","owner_id":"owner-1"}`),
	}

	require.NoError(t, handler.Handle(ctx, msg))
	require.NoError(t, handler.Handle(ctx, msg))

	var (
		count     int
		eventType string
		offset    int64
		payload   []byte
	)
	err := pool.QueryRow(ctx,
		`SELECT COUNT(*) OVER (), event_type, kafka_offset, payload FROM activity_event_log WHERE owner_id = $1`,
		"owner-1",
	).Scan(&count, &eventType, &offset, &payload)
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.Equal(t, "activity.created", eventType)
	require.Equal(t, int64(17), offset)
	require.JSONEq(t, string(msg.Payload), string(payload))
}
