package postgres

import (
	"fmt"

	"example.com/habittracker/internal/domain"
	"example.com/habittracker/internal/events"
)

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic          string
	PartitionKeyFn func(domain.Activity) string
}

// Topics that activity events are published to.
const (
	TopicActivityEvents = "activity_events"
)

var eventCatalog = map[string]EventMetadata{
	events.TypeActivityCreated: {
		Topic:          TopicActivityEvents,
		PartitionKeyFn: ownerKey,
	},
	events.TypeActivityDeleted: {
		Topic:          TopicActivityEvents,
		PartitionKeyFn: ownerKey,
	},
}

// ownerKey keeps one owner's events ordered on a single partition.
func ownerKey(a domain.Activity) string {
	return a.OwnerID
}

func lookupEvent(eventType string) (EventMetadata, error) {
	meta, ok := eventCatalog[eventType]
	if !ok || meta.Topic == "" {
		return EventMetadata{}, fmt.Errorf("unknown event type: %s", eventType)
	}
	return meta, nil
}
