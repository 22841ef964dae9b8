// Package signaling relays WebRTC signaling messages between peers of the same room over WebSockets.
package signaling

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type (
	// Hub owns rooms and clients; all of its state is touched by the Run goroutine only.
	Hub struct {
		logger   *zap.Logger
		upgrader websocket.Upgrader

		clients map[*Client]bool
		rooms   map[string]map[*Client]bool

		register   chan *Client
		unregister chan *Client
		inbound    chan command

		stopOnce sync.Once
		stop     chan struct{}
		done     chan struct{}
	}

	commandKind int

	command struct {
		kind   commandKind
		client *Client
		roomID string
		userID string
		to     string
		frame  []byte
	}
)

const (
	cmdJoin commandKind = iota
	cmdRelay
	cmdReply
)

// NewHub returns a Hub accepting WebSocket handshakes from allowedOrigins ("*" allows any).
func NewHub(logger *zap.Logger, allowedOrigins ...string) *Hub {
	h := &Hub{
		logger:     logger,
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan command, 64),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // not a browser
		}
		for _, o := range allowed {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

// Run processes hub events until Stop is called.
func (h *Hub) Run() {
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
		case c := <-h.unregister:
			h.remove(c)
		case cmd := <-h.inbound:
			h.handle(cmd)
		case <-h.stop:
			for c := range h.clients {
				h.remove(c)
			}
			h.logger.Info("signaling hub stopped")
			return
		}
	}
}

// Stop disconnects every client and waits for Run to return.
func (h *Hub) Stop(ctx context.Context) error {
	h.stopOnce.Do(func() { close(h.stop) })
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ServeWS upgrades the request and attaches the connection to the hub as userID.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err // the upgrader already replied
	}

	c := newClient(h, conn, userID)
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return nil
	}

	go c.writePump()
	go c.readPump()
	return nil
}

// submit hands a command to Run; it is dropped once the hub is stopped.
func (h *Hub) submit(cmd command) {
	select {
	case h.inbound <- cmd:
	case <-h.done:
	}
}

func (h *Hub) handle(cmd command) {
	c := cmd.client
	if !h.clients[c] {
		return
	}

	switch cmd.kind {
	case cmdJoin:
		h.leave(c)
		c.room, c.userID = cmd.roomID, cmd.userID
		room, ok := h.rooms[c.room]
		if !ok {
			room = make(map[*Client]bool)
			h.rooms[c.room] = room
		}
		room[c] = true
		h.broadcast(c, encode(EventUserConnected, c.userID))
		h.logger.Debug("peer joined room", zap.String("room_id", c.room), zap.String("user_id", c.userID))

	case cmdRelay:
		if c.room == "" {
			h.deliver(c, errorFrame("join a room before signaling"))
			return
		}
		if cmd.to == "" {
			h.broadcast(c, cmd.frame)
			return
		}
		var dropped []*Client
		var found bool
		for peer := range h.rooms[c.room] {
			if peer == c || peer.userID != cmd.to {
				continue
			}
			found = true
			if !h.deliver(peer, cmd.frame) {
				dropped = append(dropped, peer)
			}
		}
		h.drop(dropped)
		if !found {
			h.deliver(c, errorFrame("peer "+cmd.to+" is not in the room"))
		}

	case cmdReply:
		if !h.deliver(c, cmd.frame) {
			h.remove(c)
		}
	}
}

// broadcast sends frame to every peer in from's room but from itself.
func (h *Hub) broadcast(from *Client, frame []byte) {
	var dropped []*Client
	for peer := range h.rooms[from.room] {
		if peer != from && !h.deliver(peer, frame) {
			dropped = append(dropped, peer)
		}
	}
	h.drop(dropped)
}

// deliver queues frame on c without blocking; false means c is too slow to keep.
func (h *Hub) deliver(c *Client, frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (h *Hub) drop(clients []*Client) {
	for _, c := range clients {
		h.logger.Warn("dropping slow client", zap.String("user_id", c.userID))
		h.remove(c)
	}
}

func (h *Hub) leave(c *Client) {
	if c.room == "" {
		return
	}
	room := h.rooms[c.room]
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, c.room)
	} else {
		h.broadcast(c, encode(EventUserDisconnected, c.userID))
	}
	c.room = ""
}

func (h *Hub) remove(c *Client) {
	if !h.clients[c] {
		return
	}
	delete(h.clients, c)
	h.leave(c)
	close(c.send)
}
