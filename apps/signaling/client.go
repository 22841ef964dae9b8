package signaling

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10 // SDP payloads
	sendBufferSize = 256
)

// Client is a single WebSocket connection.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	authID string

	// owned by the hub goroutine
	room   string
	userID string
}

func newClient(h *Hub, conn *websocket.Conn, authID string) *Client {
	return &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		authID: authID,
		userID: authID,
	}
}

// readPump decodes the frames of the connection and passes them to the hub.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("unexpected websocket close", zap.String("user_id", c.authID), zap.Error(err))
			}
			return
		}
		c.handle(data)
	}
}

func (c *Client) handle(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.reply(errorFrame("malformed message"))
		return
	}

	switch msg.Event {
	case EventJoinRoom:
		var jr JoinRoom
		if err := json.Unmarshal(msg.Data, &jr); err != nil || jr.RoomID == "" {
			c.reply(errorFrame("room_id is required"))
			return
		}
		if jr.UserID == "" {
			jr.UserID = c.authID
		}
		c.hub.submit(command{kind: cmdJoin, client: c, roomID: jr.RoomID, userID: jr.UserID})

	case EventOffer, EventAnswer, EventICECandidate:
		var r route
		if err := json.Unmarshal(msg.Data, &r); err != nil {
			c.reply(errorFrame("malformed " + msg.Event + " payload"))
			return
		}
		frame, err := json.Marshal(msg)
		if err != nil {
			c.reply(errorFrame("malformed " + msg.Event + " payload"))
			return
		}
		c.hub.submit(command{kind: cmdRelay, client: c, to: r.target(msg.Event), frame: frame})

	default:
		c.reply(errorFrame("unknown event: " + msg.Event))
	}
}

func (c *Client) reply(frame []byte) {
	c.hub.submit(command{kind: cmdReply, client: c, frame: frame})
}

// writePump sends queued frames and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
