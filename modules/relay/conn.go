package relay

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gofiber/contrib/websocket"

	"github.com/poornimasewak/nook/domain/user"
)

// wsConn adapts a fiber websocket connection to the Conn interface. Event
// handlers and consumers write from multiple goroutines while the read loop
// owns reads, so writes are serialized through a mutex.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newWSConn(conn *websocket.Conn) *wsConn {
	return &wsConn{conn: conn}
}

func (w *wsConn) Send(event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

func (w *wsConn) Close() error {
	return w.conn.Close()
}

// ServeConn runs the session for one upgraded websocket connection: it
// registers the connection, reads events until the peer goes away and then
// tears the session down. The caller resolves the profile before the upgrade.
func (r *Relay) ServeConn(c *websocket.Conn, profile user.Profile) {
	ctx := context.Background()
	session := r.Connect(ctx, newWSConn(c), profile)
	defer r.Disconnect(ctx, session)

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				r.logger.Warn("websocket read error", "user_id", session.Profile.ID, "error", err)
			}
			return
		}

		var event Event
		if err := json.Unmarshal(data, &event); err != nil {
			r.sendError(session, "invalid message format")
			continue
		}
		r.HandleEvent(ctx, session, event)
	}
}
