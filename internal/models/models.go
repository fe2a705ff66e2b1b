package models

// Inbound event names. These are the wire contract the existing web client
// speaks, so they must not be renamed.
const (
	EventJoin          = "join"
	EventSendMessage   = "sendMessage"
	EventCanvasData    = "canvas-data"
	EventUserEvent     = "userEvent"
	EventContentChange = "contentChange"
)

// Outbound event names.
const (
	EventMessage        = "message"
	EventRoomData       = "roomData"
	EventAck            = "ack"
	EventError          = "error"
	EventServerShutdown = "server-shutdown"
)

// Frame is the envelope for every WebSocket message in both directions.
// Ack is a client-chosen id; when non-zero the server replies with an "ack"
// frame carrying the same id once the event has been handled.
type Frame struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
	Ack  int64  `json:"ack,omitempty"`
}

// Session binds a connection to a display name and a room. ID is the opaque
// connection identifier assigned at upgrade time.
type Session struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Room string `json:"room"`
}

// JoinRequest is the payload of a "join" event.
type JoinRequest struct {
	Name string `json:"name"`
	Room string `json:"room"`
}

// ChatMessage is the payload of an outbound "message" event.
type ChatMessage struct {
	User string `json:"user"`
	Text string `json:"text"`
}

// RoomData is the payload of an outbound "roomData" event: the current
// roster of a room in join order.
type RoomData struct {
	Room  string     `json:"room"`
	Users []*Session `json:"users"`
}

// EditorUser is one entry in the shared editor's presence map.
type EditorUser struct {
	Username string `json:"username"`
}

// EditorJoinRequest is the payload of an inbound "userEvent" event.
type EditorJoinRequest struct {
	Username string `json:"username"`
}

// EditorRoster is the payload of an outbound "userEvent" event, keyed by
// connection id.
type EditorRoster struct {
	Users        map[string]EditorUser `json:"users"`
	UserActivity []string              `json:"userActivity"`
}

// ContentChange is the payload of an inbound "contentChange" event.
type ContentChange struct {
	Content string `json:"content"`
}

// EditorContent is the payload of an outbound "contentChange" event.
type EditorContent struct {
	EditorContent string   `json:"editorContent"`
	UserActivity  []string `json:"userActivity"`
}

// Ack is the payload of an "ack" frame. Error is empty on success.
type Ack struct {
	Error string `json:"error,omitempty"`
}
