package outbox

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// Kafka headers attached to every published event.
const (
	HeaderEventType = "event_type"
	HeaderOwnerID   = "owner_id"
	HeaderEventID   = "event_id"
)

// Message represents a row fetched from outbox. A row re-queued from the DLQ
// keeps the id of the first attempt in OriginEventID and carries RetryCount
// replays so far.
type Message struct {
	EventID       int64
	OriginEventID int64
	RetryCount    int
	OwnerID       string
	AggregateType string
	AggregateID   string
	EventType     string
	Topic         string
	PartitionKey  string
	Payload       json.RawMessage
}

// Store claims unpublished outbox rows and marks them delivered.
type Store interface {
	Claim(ctx context.Context, limit int) ([]Message, error)
	MarkPublished(ctx context.Context, messages []Message) error
}

// DeadLetterWriter records messages that could not be delivered.
type DeadLetterWriter interface {
	Write(ctx context.Context, msg Message, reason string) error
}

// MessageWriter publishes records to a topic.
type MessageWriter interface {
	WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error
}

// originID is the id every attempt of this event is published and dead-lettered under.
func (m Message) originID() int64 {
	if m.OriginEventID != 0 {
		return m.OriginEventID
	}
	return m.EventID
}

// toKafka builds the record for msg: JSON value, owner key, routing headers.
func toKafka(msg Message, at time.Time) kafka.Message {
	return kafka.Message{
		Key:   []byte(msg.PartitionKey),
		Value: []byte(msg.Payload),
		Time:  at,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(msg.EventType)},
			{Key: HeaderOwnerID, Value: []byte(msg.OwnerID)},
			{Key: HeaderEventID, Value: []byte(strconv.FormatInt(msg.originID(), 10))},
		},
	}
}
