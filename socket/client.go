package socket

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"kolabdok/pkg/logger"
	"kolabdok/pkg/metrics"
)

const (
	sendBufferSize = 256
	pingPeriod     = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client is one live transport connection. It belongs to at most one
// document room at a time, chosen by its join message.
type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	UserID string
	Send   chan []byte

	// room is set on join and only touched by this client's readPump.
	room *room
}

// ServeWs upgrades the HTTP connection and starts the read/write pumps. The
// caller has already authenticated the session token; which document the
// client subscribes to is decided by its join message.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Sugar.Error(err)
		return
	}

	client := &Client{
		Hub:    hub,
		Conn:   conn,
		UserID: userID,
		Send:   make(chan []byte, sendBufferSize),
	}
	metrics.ConnectedClients.Inc()

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		if c.room != nil {
			c.Hub.leave(c, c.room)
		}
		c.Conn.Close()
		// leave already removed c from the room under its lock, so no
		// broadcast can still be targeting this channel.
		close(c.Send)
		metrics.ConnectedClients.Dec()
	}()

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Sugar.Errorf("error: %v", err)
			}
			break
		}
		c.handleMessage(raw)
	}
}

// handleMessage processes one inbound message. Errors terminate only this
// message, never the connection.
func (c *Client) handleMessage(raw []byte) {
	msg, err := decodeInbound(raw)
	if err != nil {
		logger.Sugar.Warnf("Dropping message from user %s: %v", c.UserID, err)
		return
	}

	switch m := msg.(type) {
	case JoinMessage:
		if c.room != nil {
			logger.Sugar.Warnf("User %s already joined document %s, ignoring join", c.UserID, c.room.id)
			return
		}
		c.room = c.Hub.join(c, m.DocumentID)
	case ContentChangeMessage:
		if c.room == nil {
			logger.Sugar.Warnf("Content change from user %s before join, dropping", c.UserID)
			return
		}
		// The connection's joined document and authenticated user are
		// authoritative over whatever the message body claims.
		c.Hub.contentChange(c.room, c, m.Content)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
