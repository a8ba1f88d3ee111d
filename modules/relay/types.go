package relay

import (
	"encoding/json"

	"github.com/poornimasewak/nook/domain/message"
)

// Inbound event types.
const (
	EventJoinNook       = "join_nook"
	EventLeaveNook      = "leave_nook"
	EventSendMessage    = "send_message"
	EventTypingStart    = "typing_start"
	EventTypingStop     = "typing_stop"
	EventUpdateUsername = "update_username"
)

// Outbound event types.
const (
	EventOnlineUsers       = "online_users_updated"
	EventNookMessages      = "nook_messages"
	EventNewMessage        = "new_message"
	EventUserJoined        = "user_joined_nook"
	EventUserLeft          = "user_left_nook"
	EventUserWentOffline   = "user_went_offline"
	EventMemberAdded       = "member_added"
	EventActiveUsers       = "active_users_in_room"
	EventUserTyping        = "user_typing"
	EventUserStoppedTyping = "user_stopped_typing"
	EventError             = "error"
)

// Event is the wire envelope for both directions of the realtime connection.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// newEvent marshals payload into an envelope. Marshal failures are
// programming errors on our own types, so they collapse to an error event.
func newEvent(eventType string, payload any) Event {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{Type: EventError, Error: "failed to encode payload"}
	}
	return Event{Type: eventType, Payload: data}
}

// JoinPayload is the payload for join_nook, leave_nook and typing events.
type JoinPayload struct {
	NookID string `json:"nook_id"`
}

// SendMessagePayload is the payload for send_message.
type SendMessagePayload struct {
	NookID      string  `json:"nook_id"`
	Content     string  `json:"content"`
	MessageType string  `json:"message_type,omitempty"`
	ReplyTo     *string `json:"reply_to,omitempty"`
}

// UpdateUsernamePayload is the payload for update_username.
type UpdateUsernamePayload struct {
	Name string `json:"name"`
}

// NookMessagesPayload carries a room's recent history to a joining connection.
type NookMessagesPayload struct {
	NookID   string            `json:"nook_id"`
	Messages []message.Message `json:"messages"`
}

// MembershipNotice announces a membership event together with its synthetic
// system message.
type MembershipNotice struct {
	UserID   string          `json:"user_id"`
	UserName string          `json:"user_name"`
	NookID   string          `json:"nook_id"`
	Message  message.Message `json:"message"`
}

// ActiveUsersPayload lists the identities currently subscribed to a room.
type ActiveUsersPayload struct {
	NookID        string   `json:"nook_id"`
	ActiveUserIDs []string `json:"active_user_ids"`
}

// TypingPayload is broadcast to other room subscribers while a user types.
type TypingPayload struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name,omitempty"`
	NookID   string `json:"nook_id"`
}

// ErrorPayload carries an error message to the originating connection only.
type ErrorPayload struct {
	Message string `json:"message"`
}
