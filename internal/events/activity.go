// Package events defines the payloads published when activities change.
package events

import "time"

// Event type names carried in the outbox and the Kafka "event_type" header.
const (
	TypeActivityCreated = "activity.created"
	TypeActivityDeleted = "activity.deleted"
)

// ActivityCreated is emitted when an activity is logged.
type ActivityCreated struct {
	ActivityID  string    `json:"activity_id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"activity_name"`
	Category    string    `json:"category"`
	DurationMin int       `json:"duration_min"`
	CreatedAt   time.Time `json:"created_at"`
	Version     string    `json:"version"`
}

// ActivityDeleted is emitted when an owner removes an activity.
type ActivityDeleted struct {
	ActivityID string    `json:"activity_id"`
	OwnerID    string    `json:"owner_id"`
	DeletedAt  time.Time `json:"deleted_at"`
}

// SchemaVersion is stamped on every ActivityCreated payload.
const SchemaVersion = "v1"
