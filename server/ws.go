package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/farmandfork/evelyn/companion"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10
)

// TranscriptUpdate is pushed to websocket subscribers after every committed
// transcript change.
type TranscriptUpdate struct {
	Type      string           `json:"type"`
	SessionID string           `json:"sessionId"`
	Timestamp time.Time        `json:"timestamp"`
	Turns     []companion.Turn `json:"turns"`
}

type wsConnection struct {
	conn      *websocket.Conn
	sessionID string
	updates   <-chan []companion.Turn
	cancel    func()
}

// handleWebSocket upgrades the request and streams transcript snapshots
// until either side goes away.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "error", err)
		return
	}

	updates, cancel := sess.Subscribe()
	wsConn := &wsConnection{
		conn:      conn,
		sessionID: sess.ID().String(),
		updates:   updates,
		cancel:    cancel,
	}

	// Seed the subscriber with the current transcript before deltas flow.
	if err := wsConn.write(sess.Transcript()); err != nil {
		cancel()
		conn.Close()
		return
	}

	go wsConn.writePump()
	go wsConn.readPump()
}

func (c *wsConnection) write(turns []companion.Turn) error {
	update := TranscriptUpdate{
		Type:      "transcript",
		SessionID: c.sessionID,
		Timestamp: time.Now(),
		Turns:     turns,
	}
	data, err := json.Marshal(update)
	if err != nil {
		return err
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConnection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.cancel()
		c.conn.Close()
	}()

	for {
		select {
		case turns, ok := <-c.updates:
			if !ok {
				// Session closed; tell the peer and go away.
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(turns); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsConnection) readPump() {
	defer func() {
		c.cancel()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket read error", "error", err)
			}
			break
		}
	}
}
