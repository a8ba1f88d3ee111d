package relay

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/poornimasewak/nook/domain/message"
	"github.com/poornimasewak/nook/domain/user"
)

// historyLimit caps the number of messages replayed to a joining connection.
const historyLimit = 50

// touchTimeout bounds the background last-activity update after a message.
const touchTimeout = 5 * time.Second

// Store is the persistence surface the relay needs. A nil Store puts the
// relay in ephemeral mode: membership checks pass, nothing is persisted and
// history replays empty.
type Store interface {
	IsNookMember(ctx context.Context, nookID, userID string) (bool, error)
	UserNookIDs(ctx context.Context, userID string) ([]string, error)
	InsertMessage(ctx context.Context, msg *message.Message) error
	RecentMessages(ctx context.Context, nookID string, limit int) ([]message.Message, error)
	TouchNookActivity(ctx context.Context, nookID string) error
	UpdateUserName(ctx context.Context, id, name string) error
	SetUserOnline(ctx context.Context, id string, online bool) error
}

// Session is the per-connection state threaded through event handling.
type Session struct {
	ConnID  string
	Profile user.Profile
	client  *Client
}

// Relay owns the hub and the presence registry and implements the realtime
// event semantics on top of them.
type Relay struct {
	hub      *Hub
	registry *Registry
	store    Store
	logger   types.Logger
	history  singleflight.Group
}

// NewRelay creates a relay. store may be nil for ephemeral mode.
func NewRelay(store Store, logger types.Logger) *Relay {
	return &Relay{
		hub:      NewHub(),
		registry: NewRegistry(),
		store:    store,
		logger:   logger,
	}
}

// Hub exposes the hub for event consumers and tests.
func (r *Relay) Hub() *Hub { return r.hub }

// Registry exposes the presence registry.
func (r *Relay) Registry() *Registry { return r.registry }

// Connect registers a new authenticated connection. If the same identity is
// already connected the previous connection is displaced and closed; the new
// connection always wins. The updated presence roster is broadcast to every
// connection.
func (r *Relay) Connect(ctx context.Context, conn Conn, profile user.Profile) *Session {
	connID := uuid.NewString()
	client := NewClient(connID, profile.ID, conn)
	r.hub.Register(client)

	profile.IsOnline = true
	if displaced := r.registry.Register(connID, profile); displaced != "" {
		r.logger.Info("displacing previous connection", "user_id", profile.ID, "conn_id", displaced)
		r.hub.CloseConn(displaced)
	}

	if r.store != nil {
		if err := r.store.SetUserOnline(ctx, profile.ID, true); err != nil {
			r.logger.Warn("failed to mark user online", "user_id", profile.ID, "error", err)
		}
	}

	r.logger.Info("client connected", "user_id", profile.ID, "conn_id", connID)
	r.broadcastPresence()

	return &Session{ConnID: connID, Profile: profile, client: client}
}

// Disconnect tears down a connection: drops its room subscriptions, removes
// its presence entry when it still owns one, and announces the departure. It
// is idempotent, and a displaced connection disconnecting leaves the
// successor's presence untouched.
func (r *Relay) Disconnect(ctx context.Context, s *Session) {
	subscribed := r.hub.Unregister(s.ConnID)
	for _, topic := range subscribed {
		r.broadcastActiveUsers(topic)
	}

	if !r.registry.Unregister(s.Profile.ID, s.ConnID) {
		return
	}

	name := r.displayName(s)
	if r.store != nil {
		if err := r.store.SetUserOnline(ctx, s.Profile.ID, false); err != nil {
			r.logger.Warn("failed to mark user offline", "user_id", s.Profile.ID, "error", err)
		}
		nookIDs, err := r.store.UserNookIDs(ctx, s.Profile.ID)
		if err != nil {
			r.logger.Warn("failed to load user nooks on disconnect", "user_id", s.Profile.ID, "error", err)
		}
		for _, nookID := range nookIDs {
			r.hub.BroadcastTopic(nookID, newEvent(EventUserWentOffline, MembershipNotice{
				UserID:   s.Profile.ID,
				UserName: name,
				NookID:   nookID,
				Message:  offlineNotice(nookID, name),
			}))
		}
	} else {
		for _, topic := range subscribed {
			r.hub.BroadcastTopic(topic, newEvent(EventUserWentOffline, MembershipNotice{
				UserID:   s.Profile.ID,
				UserName: name,
				NookID:   topic,
				Message:  offlineNotice(topic, name),
			}))
		}
	}

	r.logger.Info("client disconnected", "user_id", s.Profile.ID, "conn_id", s.ConnID)
	r.broadcastPresence()
}

// HandleEvent dispatches one inbound event from the connection's read loop.
// Unknown event types and malformed payloads produce an error event on the
// originating connection only.
func (r *Relay) HandleEvent(ctx context.Context, s *Session, event Event) {
	switch event.Type {
	case EventJoinNook:
		var p JoinPayload
		if !r.decode(s, event.Payload, &p) {
			return
		}
		r.handleJoin(ctx, s, p.NookID)
	case EventLeaveNook:
		var p JoinPayload
		if !r.decode(s, event.Payload, &p) {
			return
		}
		r.handleLeave(s, p.NookID)
	case EventSendMessage:
		var p SendMessagePayload
		if !r.decode(s, event.Payload, &p) {
			return
		}
		r.handleSendMessage(ctx, s, p)
	case EventTypingStart:
		var p JoinPayload
		if !r.decode(s, event.Payload, &p) {
			return
		}
		r.handleTyping(s, p.NookID, true)
	case EventTypingStop:
		var p JoinPayload
		if !r.decode(s, event.Payload, &p) {
			return
		}
		r.handleTyping(s, p.NookID, false)
	case EventUpdateUsername:
		var p UpdateUsernamePayload
		if !r.decode(s, event.Payload, &p) {
			return
		}
		r.handleUpdateUsername(ctx, s, p.Name)
	default:
		r.sendError(s, "unknown event type: "+event.Type)
	}
}

func (r *Relay) handleJoin(ctx context.Context, s *Session, nookID string) {
	if nookID == "" {
		r.sendError(s, "nook_id is required")
		return
	}
	if r.store != nil {
		ok, err := r.store.IsNookMember(ctx, nookID, s.Profile.ID)
		if err != nil {
			r.logger.Error("membership check failed", "nook_id", nookID, "user_id", s.Profile.ID, "error", err)
			r.sendError(s, "failed to join nook")
			return
		}
		if !ok {
			r.sendError(s, "you are not a member of this nook")
			return
		}
	}

	alreadyIn := r.hub.IsSubscribed(s.ConnID, nookID)
	if !r.hub.Subscribe(s.ConnID, nookID) {
		return
	}

	history, err := r.fetchHistory(ctx, nookID)
	if err != nil {
		r.logger.Error("failed to load history", "nook_id", nookID, "error", err)
		history = []message.Message{}
	}
	r.hub.SendToConn(s.ConnID, newEvent(EventNookMessages, NookMessagesPayload{
		NookID:   nookID,
		Messages: history,
	}))

	// A re-join from the same connection only replays history.
	if !alreadyIn {
		name := r.displayName(s)
		r.hub.BroadcastTopicExcept(nookID, s.ConnID, newEvent(EventUserJoined, MembershipNotice{
			UserID:   s.Profile.ID,
			UserName: name,
			NookID:   nookID,
			Message:  joinedNotice(nookID, name),
		}))
	}
	r.broadcastActiveUsers(nookID)
}

func (r *Relay) handleLeave(s *Session, nookID string) {
	if !r.hub.Unsubscribe(s.ConnID, nookID) {
		return
	}
	name := r.displayName(s)
	r.hub.BroadcastTopic(nookID, newEvent(EventUserLeft, MembershipNotice{
		UserID:   s.Profile.ID,
		UserName: name,
		NookID:   nookID,
		Message:  leftNotice(nookID, name),
	}))
	r.broadcastActiveUsers(nookID)
}

func (r *Relay) handleSendMessage(ctx context.Context, s *Session, p SendMessagePayload) {
	if !r.hub.IsSubscribed(s.ConnID, p.NookID) {
		r.sendError(s, "join the nook before sending messages")
		return
	}
	content := strings.TrimSpace(p.Content)
	if content == "" {
		r.sendError(s, "message content is required")
		return
	}

	msgType := p.MessageType
	if msgType == "" {
		msgType = message.TypeText
	}
	msg := message.Message{
		NookID:      p.NookID,
		SenderID:    s.Profile.ID,
		Content:     content,
		MessageType: msgType,
		ReplyTo:     p.ReplyTo,
	}

	if r.store != nil {
		if err := r.store.InsertMessage(ctx, &msg); err != nil {
			r.logger.Error("failed to persist message", "nook_id", p.NookID, "error", err)
			r.sendError(s, "failed to send message")
			return
		}
		go r.touchActivity(p.NookID)
	} else {
		msg.ID = uuid.NewString()
		msg.Timestamp = time.Now().UTC()
		msg.Sender = r.sessionProfile(s)
	}

	r.hub.BroadcastTopic(p.NookID, newEvent(EventNewMessage, msg))
}

func (r *Relay) handleTyping(s *Session, nookID string, start bool) {
	if !r.hub.IsSubscribed(s.ConnID, nookID) {
		return
	}
	eventType := EventUserStoppedTyping
	if start {
		eventType = EventUserTyping
	}
	payload := TypingPayload{UserID: s.Profile.ID, NookID: nookID}
	if start {
		payload.UserName = r.displayName(s)
	}
	r.hub.BroadcastTopicExcept(nookID, s.ConnID, newEvent(eventType, payload))
}

func (r *Relay) handleUpdateUsername(ctx context.Context, s *Session, name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		r.sendError(s, "name is required")
		return
	}
	if r.store != nil {
		if err := r.store.UpdateUserName(ctx, s.Profile.ID, name); err != nil {
			r.logger.Error("failed to update username", "user_id", s.Profile.ID, "error", err)
			r.sendError(s, "failed to update username")
			return
		}
	}
	s.Profile.Name = name
	r.registry.UpdateName(s.Profile.ID, name)
	r.broadcastPresence()
}

// NotifyMembersAdded announces newly added members to a room's live
// subscribers. Driven by the membership event published from the REST API.
func (r *Relay) NotifyMembersAdded(nookID string, userIDs, userNames []string) {
	for i, userID := range userIDs {
		name := "User"
		if i < len(userNames) && userNames[i] != "" {
			name = userNames[i]
		}
		r.hub.BroadcastTopic(nookID, newEvent(EventMemberAdded, MembershipNotice{
			UserID:   userID,
			UserName: name,
			NookID:   nookID,
			Message:  addedNotice(nookID, name),
		}))
	}
}

// NotifyProfileUpdated refreshes a renamed user's presence entry and pushes
// the roster to every connection.
func (r *Relay) NotifyProfileUpdated(userID, name string) {
	if name == "" {
		return
	}
	r.registry.UpdateName(userID, name)
	r.broadcastPresence()
}

// Shutdown closes every live connection.
func (r *Relay) Shutdown() {
	r.hub.CloseAll()
}

// fetchHistory loads recent room history. Concurrent joins into the same room
// collapse into a single storage query.
func (r *Relay) fetchHistory(ctx context.Context, nookID string) ([]message.Message, error) {
	if r.store == nil {
		return []message.Message{}, nil
	}
	v, err, _ := r.history.Do(nookID, func() (any, error) {
		return r.store.RecentMessages(ctx, nookID, historyLimit)
	})
	if err != nil {
		return nil, err
	}
	msgs := v.([]message.Message)
	if msgs == nil {
		msgs = []message.Message{}
	}
	return msgs, nil
}

func (r *Relay) touchActivity(nookID string) {
	ctx, cancel := context.WithTimeout(context.Background(), touchTimeout)
	defer cancel()
	if err := r.store.TouchNookActivity(ctx, nookID); err != nil {
		r.logger.Warn("failed to touch nook activity", "nook_id", nookID, "error", err)
	}
}

func (r *Relay) broadcastPresence() {
	r.hub.BroadcastAll(newEvent(EventOnlineUsers, r.registry.Snapshot()))
}

func (r *Relay) broadcastActiveUsers(nookID string) {
	r.hub.BroadcastTopic(nookID, newEvent(EventActiveUsers, ActiveUsersPayload{
		NookID:        nookID,
		ActiveUserIDs: r.hub.TopicUserIDs(nookID),
	}))
}

// displayName resolves the user's current name, preferring the live presence
// entry over the name captured at connect time.
func (r *Relay) displayName(s *Session) string {
	if profile, ok := r.registry.Lookup(s.Profile.ID); ok && profile.Name != "" {
		return profile.Name
	}
	return s.Profile.Name
}

func (r *Relay) sessionProfile(s *Session) user.Profile {
	if profile, ok := r.registry.Lookup(s.Profile.ID); ok {
		return profile
	}
	return s.Profile
}

func (r *Relay) decode(s *Session, raw json.RawMessage, dst any) bool {
	if len(raw) == 0 {
		r.sendError(s, "payload is required")
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		r.sendError(s, "invalid payload")
		return false
	}
	return true
}

func (r *Relay) sendError(s *Session, msg string) {
	r.hub.SendToConn(s.ConnID, newEvent(EventError, ErrorPayload{Message: msg}))
}
