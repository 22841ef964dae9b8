package signaling

import "encoding/json"

// Events
const (
	EventJoinRoom         = "join-room"
	EventUserConnected    = "user-connected"
	EventUserDisconnected = "user-disconnected"
	EventOffer            = "offer"
	EventAnswer           = "answer"
	EventICECandidate     = "ice-candidate"
	EventError            = "error"
)

// Message is a frame on the wire. Data is kept raw so relayed payloads reach the peer untouched.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type JoinRoom struct {
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
}

// route holds the addressing fields of offer, answer and ice-candidate payloads.
type route struct {
	UserToSignal string `json:"user_to_signal"`
	To           string `json:"to"`
}

func (r route) target(event string) string {
	if event == EventOffer {
		return r.UserToSignal
	}
	return r.To
}

type errorData struct {
	Message string `json:"message"`
}

func encode(event string, data interface{}) []byte {
	raw, err := json.Marshal(data)
	if err != nil {
		raw = nil
	}
	frame, _ := json.Marshal(Message{Event: event, Data: raw})
	return frame
}

func errorFrame(msg string) []byte {
	return encode(EventError, errorData{Message: msg})
}
