package signaling

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()

	hub := NewHub(zap.NewNop(), "*")
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.ServeWS(w, r, r.URL.Query().Get("uid"))
	}))
	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = hub.Stop(ctx)
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, uid string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?uid=" + uid
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, event string, data string) {
	t.Helper()
	frame := `{"event":"` + event + `"`
	if data != "" {
		frame += `,"data":` + data
	}
	frame += "}"
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
}

func receive(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func assertSilent(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	_, data, err := conn.ReadMessage()
	assert.Error(t, err, "unexpected frame: %s", data)
}

// synced waits until every frame previously sent on conn went through the hub.
func synced(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	send(t, conn, "sync", "")
	msg := receive(t, conn)
	require.Equal(t, EventError, msg.Event)
}

func TestHub_JoinRoom(t *testing.T) {
	_, srv := startHub(t)
	alice := dial(t, srv, "alice")
	bob := dial(t, srv, "bob")

	send(t, alice, EventJoinRoom, `{"room_id":"r1","user_id":"alice"}`)
	synced(t, alice)

	// user_id defaults to the authenticated user
	send(t, bob, EventJoinRoom, `{"room_id":"r1"}`)
	msg := receive(t, alice)
	assert.Equal(t, EventUserConnected, msg.Event)
	assert.JSONEq(t, `"bob"`, string(msg.Data))

	assertSilent(t, bob)
}

func TestHub_RelayToAddressedPeerOnly(t *testing.T) {
	_, srv := startHub(t)
	alice := dial(t, srv, "alice")
	bob := dial(t, srv, "bob")
	carol := dial(t, srv, "carol")
	dave := dial(t, srv, "dave")

	send(t, dave, EventJoinRoom, `{"room_id":"r2"}`)
	synced(t, dave)
	for _, c := range []*websocket.Conn{alice, bob, carol} {
		send(t, c, EventJoinRoom, `{"room_id":"r1"}`)
		synced(t, c)
	}
	// drain user-connected frames
	receive(t, alice)
	receive(t, alice)
	receive(t, bob)

	offer := `{"user_to_signal":"bob","user_id":"alice","signal":{"type":"offer","sdp":"v=0 x"},"room_id":"r1"}`
	send(t, alice, EventOffer, offer)
	msg := receive(t, bob)
	assert.Equal(t, EventOffer, msg.Event)
	assert.JSONEq(t, offer, string(msg.Data))

	answer := `{"signal":{"type":"answer","sdp":"v=0 y"},"to":"alice","room_id":"r1"}`
	send(t, bob, EventAnswer, answer)
	msg = receive(t, alice)
	assert.Equal(t, EventAnswer, msg.Event)
	assert.JSONEq(t, answer, string(msg.Data))

	assertSilent(t, carol)
	assertSilent(t, dave)
}

func TestHub_RelayWithoutTargetGoesToRoom(t *testing.T) {
	_, srv := startHub(t)
	alice := dial(t, srv, "alice")
	bob := dial(t, srv, "bob")

	send(t, alice, EventJoinRoom, `{"room_id":"r1"}`)
	synced(t, alice)
	send(t, bob, EventJoinRoom, `{"room_id":"r1"}`)
	receive(t, alice) // user-connected

	candidate := `{"candidate":{"candidate":"candidate:1 1 UDP 1 10.0.0.1 5000 typ host"},"room_id":"r1"}`
	send(t, bob, EventICECandidate, candidate)
	msg := receive(t, alice)
	assert.Equal(t, EventICECandidate, msg.Event)
	assert.JSONEq(t, candidate, string(msg.Data))
}

func TestHub_Errors(t *testing.T) {
	_, srv := startHub(t)
	alice := dial(t, srv, "alice")

	tests := []struct {
		name  string
		frame string
		want  string
	}{
		{"malformed frame", `{not json`, "malformed message"},
		{"unknown event", `{"event":"dance"}`, "unknown event: dance"},
		{"join without room", `{"event":"join-room","data":{}}`, "room_id is required"},
		{"relay outside of a room", `{"event":"offer","data":{"user_to_signal":"bob"}}`, "join a room before signaling"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte(tc.frame)))
			msg := receive(t, alice)
			assert.Equal(t, EventError, msg.Event)
			assert.JSONEq(t, `{"message":"`+tc.want+`"}`, string(msg.Data))
		})
	}

	// the connection survives errors
	send(t, alice, EventJoinRoom, `{"room_id":"r1"}`)
	send(t, alice, EventOffer, `{"user_to_signal":"bob"}`)
	msg := receive(t, alice)
	assert.JSONEq(t, `{"message":"peer bob is not in the room"}`, string(msg.Data))
}

func TestHub_Disconnect(t *testing.T) {
	_, srv := startHub(t)
	alice := dial(t, srv, "alice")
	bob := dial(t, srv, "bob")

	send(t, alice, EventJoinRoom, `{"room_id":"r1"}`)
	synced(t, alice)
	send(t, bob, EventJoinRoom, `{"room_id":"r1"}`)
	receive(t, alice) // user-connected

	require.NoError(t, bob.Close())
	msg := receive(t, alice)
	assert.Equal(t, EventUserDisconnected, msg.Event)
	assert.JSONEq(t, `"bob"`, string(msg.Data))
}

func TestHub_ChangeRoom(t *testing.T) {
	_, srv := startHub(t)
	alice := dial(t, srv, "alice")
	bob := dial(t, srv, "bob")

	send(t, alice, EventJoinRoom, `{"room_id":"r1"}`)
	synced(t, alice)
	send(t, bob, EventJoinRoom, `{"room_id":"r1"}`)
	receive(t, alice) // user-connected

	send(t, bob, EventJoinRoom, `{"room_id":"r2"}`)
	msg := receive(t, alice)
	assert.Equal(t, EventUserDisconnected, msg.Event)
}

func TestHub_Stop(t *testing.T) {
	hub, srv := startHub(t)
	alice := dial(t, srv, "alice")
	synced(t, alice)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, hub.Stop(ctx))

	require.NoError(t, alice.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := alice.ReadMessage()
	assert.Error(t, err)
}
