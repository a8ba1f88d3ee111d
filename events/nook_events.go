package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// MembersAddedEvent is emitted by the REST API when users are added to a nook,
// so the relay can announce them to connected room subscribers.
type MembersAddedEvent struct {
	NookID    string    `json:"nook_id"`
	AddedBy   string    `json:"added_by"`
	UserIDs   []string  `json:"user_ids"`
	UserNames []string  `json:"user_names"`
	Timestamp time.Time `json:"timestamp"`
}

// ProfileUpdatedEvent is emitted when a user's display name changes outside
// the realtime connection (REST profile update).
type ProfileUpdatedEvent struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"`
}

// Event definitions for the nook domain.
var (
	MembersAddedV1 = helper.EventDefinition[MembersAddedEvent](
		"nook",
		"MembersAdded",
		"v1",
	)

	ProfileUpdatedV1 = helper.EventDefinition[ProfileUpdatedEvent](
		"nook",
		"ProfileUpdated",
		"v1",
	)
)
