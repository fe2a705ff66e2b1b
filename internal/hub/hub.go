// Package hub is the event-broadcast core: it owns the connected-client
// table, the session registry, and the shared editor state, and resolves
// the fan-out target for every inbound event.
package hub

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/bhushan-patil0603/group-study-backend/internal/metrics"
	"github.com/bhushan-patil0603/group-study-backend/internal/models"
	"github.com/bhushan-patil0603/group-study-backend/internal/registry"
)

// System chat messages are attributed to these names. The capitalization
// difference between join and leave notices is part of the wire contract
// the client already renders.
const (
	adminJoin  = "admin"
	adminLeave = "Admin"
)

// unknownEditorUser is a display placeholder for log output only; it never
// reaches the activity log.
const unknownEditorUser = "Unknown user"

// Notifier receives session lifecycle notifications, e.g. for cross-instance
// presence sync. Implementations must not block.
type Notifier interface {
	UserJoined(room, name string)
	UserLeft(room, name string)
	EditorJoined(username string)
	EditorLeft(username string)
}

// Hub routes inbound events to their recipients. All shared state is
// mutated under a single mutex so each handler's side effects are atomic
// with respect to other handlers; outbound writes happen against a
// snapshot taken under that mutex.
type Hub struct {
	log      *zap.Logger
	registry *registry.Registry
	notifier Notifier

	mu      sync.Mutex
	clients map[string]*Client
	editor  editorState
}

// New constructs a hub around the given registry. notifier may be nil.
func New(log *zap.Logger, reg *registry.Registry, notifier Notifier) *Hub {
	return &Hub{
		log:      log,
		registry: reg,
		notifier: notifier,
		clients:  make(map[string]*Client),
		editor:   newEditorState(),
	}
}

// Register adds a connection to the hub. It must be called before any
// event for that connection is dispatched.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	total := len(h.clients)
	h.mu.Unlock()

	metrics.ConnOpened()
	h.log.Info("user connected", zap.String("connId", c.ID), zap.Int("total", total))
}

// Join validates the request through the registry and, on success, sends
// the welcome message, notifies the room, and pushes the updated roster.
// The returned error (always a *registry.ValidationError) is what the
// transport adapter must deliver through the acknowledgement; nothing is
// broadcast on the failure path.
func (h *Hub) Join(c *Client, name, room string) error {
	h.mu.Lock()
	session, err := h.registry.AddUser(c.ID, name, room)
	if err != nil {
		h.mu.Unlock()
		h.log.Info("join rejected", zap.String("connId", c.ID), zap.Error(err))
		return err
	}
	peers := h.roomClientsLocked(session.Room, c)
	roster := h.registry.GetUsersInRoom(session.Room)
	h.mu.Unlock()

	metrics.SessionAdded()
	h.log.Info("user joined room",
		zap.String("connId", c.ID),
		zap.String("name", session.Name),
		zap.String("room", session.Room))

	c.Send(models.Frame{Type: models.EventMessage, Data: models.ChatMessage{
		User: adminJoin,
		Text: fmt.Sprintf("%s, welcome to room %s.", session.Name, session.Room),
	}})
	joined := models.Frame{Type: models.EventMessage, Data: models.ChatMessage{
		User: adminJoin,
		Text: fmt.Sprintf("%s has joined!", session.Name),
	}}
	sendAll(peers, joined)

	roomData := models.Frame{Type: models.EventRoomData, Data: models.RoomData{
		Room:  session.Room,
		Users: roster,
	}}
	sendAll(peers, roomData)
	c.Send(roomData)
	metrics.FramesSent(models.EventMessage, len(peers)+1)
	metrics.FramesSent(models.EventRoomData, len(peers)+1)

	if h.notifier != nil {
		h.notifier.UserJoined(session.Room, session.Name)
	}
	return nil
}

// SendMessage room-casts a chat message attributed to the sender's session.
// A sender with no session is a benign no-op.
func (h *Hub) SendMessage(c *Client, text string) {
	h.mu.Lock()
	session, ok := h.registry.GetUser(c.ID)
	if !ok {
		h.mu.Unlock()
		h.log.Debug("message from unregistered connection dropped", zap.String("connId", c.ID))
		return
	}
	recipients := h.roomClientsLocked(session.Room, nil)
	h.mu.Unlock()

	sendAll(recipients, models.Frame{Type: models.EventMessage, Data: models.ChatMessage{
		User: session.Name,
		Text: text,
	}})
	metrics.FramesSent(models.EventMessage, len(recipients))
}

// CanvasData relays a drawing payload to every other connection. No session
// is required; the whiteboard has no room scoping.
func (h *Hub) CanvasData(sender *Client, payload any) {
	h.mu.Lock()
	recipients := h.allClientsLocked(sender)
	h.mu.Unlock()

	sendAll(recipients, models.Frame{Type: models.EventCanvasData, Data: payload})
	metrics.FramesSent(models.EventCanvasData, len(recipients))
}

// EditorJoin records editor presence for the connection, broadcasts the
// updated roster and activity log to everyone, and sends the current
// document content to the joining connection only.
func (h *Hub) EditorJoin(c *Client, username string) {
	h.mu.Lock()
	h.editor.users[c.ID] = models.EditorUser{Username: username}
	h.editor.activity = append(h.editor.activity, username+" joined the document")
	users, activity := h.editor.snapshot()
	content := h.editor.content
	everyone := h.allClientsLocked(nil)
	h.mu.Unlock()

	h.log.Info("editor user joined", zap.String("connId", c.ID), zap.String("username", username))

	sendAll(everyone, models.Frame{Type: models.EventUserEvent, Data: models.EditorRoster{
		Users:        users,
		UserActivity: activity,
	}})
	c.Send(models.Frame{Type: models.EventContentChange, Data: models.EditorContent{
		EditorContent: content,
		UserActivity:  activity,
	}})
	metrics.FramesSent(models.EventUserEvent, len(everyone))
	metrics.FramesSent(models.EventContentChange, 1)

	if h.notifier != nil {
		h.notifier.EditorJoined(username)
	}
}

// ContentChange overwrites the shared document (last write wins) and
// broadcasts the new content to every connection, the sender included.
func (h *Hub) ContentChange(c *Client, content string) {
	h.mu.Lock()
	h.editor.content = content
	_, activity := h.editor.snapshot()
	everyone := h.allClientsLocked(nil)
	h.mu.Unlock()

	sendAll(everyone, models.Frame{Type: models.EventContentChange, Data: models.EditorContent{
		EditorContent: content,
		UserActivity:  activity,
	}})
	metrics.FramesSent(models.EventContentChange, len(everyone))
}

// Disconnect runs the full cleanup flow for a closed connection: the chat
// session is removed and its room notified, and any editor presence is
// retired with a departure entry in the activity log. Both halves tolerate
// the connection never having joined.
func (h *Hub) Disconnect(c *Client) {
	h.mu.Lock()
	_, wasRegistered := h.clients[c.ID]
	delete(h.clients, c.ID)

	session, hadSession := h.registry.RemoveUser(c.ID)
	var roomRecipients []*Client
	var roster []*models.Session
	if hadSession {
		roomRecipients = h.roomClientsLocked(session.Room, nil)
		roster = h.registry.GetUsersInRoom(session.Room)
	}

	editorUser, hadEditor := h.editor.users[c.ID]
	username := unknownEditorUser
	var users map[string]models.EditorUser
	var activity []string
	var everyone []*Client
	if hadEditor {
		username = editorUser.Username
		delete(h.editor.users, c.ID)
		h.editor.activity = append(h.editor.activity, username+" left the document")
		users, activity = h.editor.snapshot()
		everyone = h.allClientsLocked(nil)
	}
	total := len(h.clients)
	h.mu.Unlock()

	if wasRegistered {
		metrics.ConnClosed()
	}
	h.log.Info("user disconnected",
		zap.String("connId", c.ID),
		zap.String("editorUser", username),
		zap.Int("total", total))

	if hadSession {
		metrics.SessionRemoved()
		sendAll(roomRecipients, models.Frame{Type: models.EventMessage, Data: models.ChatMessage{
			User: adminLeave,
			Text: fmt.Sprintf("%s has left.", session.Name),
		}})
		sendAll(roomRecipients, models.Frame{Type: models.EventRoomData, Data: models.RoomData{
			Room:  session.Room,
			Users: roster,
		}})
		metrics.FramesSent(models.EventMessage, len(roomRecipients))
		metrics.FramesSent(models.EventRoomData, len(roomRecipients))

		if h.notifier != nil {
			h.notifier.UserLeft(session.Room, session.Name)
		}
	}

	if hadEditor {
		sendAll(everyone, models.Frame{Type: models.EventUserEvent, Data: models.EditorRoster{
			Users:        users,
			UserActivity: activity,
		}})
		metrics.FramesSent(models.EventUserEvent, len(everyone))

		if h.notifier != nil {
			h.notifier.EditorLeft(username)
		}
	}
}

// Close notifies every connected client that the server is going away and
// closes their connections.
func (h *Hub) Close() {
	h.mu.Lock()
	everyone := h.allClientsLocked(nil)
	h.clients = make(map[string]*Client)
	h.mu.Unlock()

	shutdown := models.Frame{Type: models.EventServerShutdown, Data: map[string]string{
		"message": "Server is shutting down. Please reconnect.",
	}}
	for _, c := range everyone {
		c.Send(shutdown)
		c.Close()
	}
	h.log.Info("hub closed", zap.Int("connections", len(everyone)))
}

// ClientCount reports the number of registered connections.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// roomClientsLocked resolves the connections for every session in room, in
// join order, optionally excluding one client. Callers must hold h.mu.
func (h *Hub) roomClientsLocked(room string, exclude *Client) []*Client {
	sessions := h.registry.GetUsersInRoom(room)
	out := make([]*Client, 0, len(sessions))
	for _, s := range sessions {
		c, ok := h.clients[s.ID]
		if !ok || c == exclude {
			continue
		}
		out = append(out, c)
	}
	return out
}

// allClientsLocked snapshots every connection, optionally excluding one.
// Callers must hold h.mu.
func (h *Hub) allClientsLocked(exclude *Client) []*Client {
	out := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		if c == exclude {
			continue
		}
		out = append(out, c)
	}
	return out
}

func sendAll(clients []*Client, frame models.Frame) {
	for _, c := range clients {
		c.Send(frame)
	}
}
