package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bhushan-patil0603/group-study-backend/internal/hub"
	"github.com/bhushan-patil0603/group-study-backend/internal/models"
	"github.com/bhushan-patil0603/group-study-backend/internal/registry"
)

const testOrigin = "http://localhost:3000"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	studyHub := hub.New(zap.NewNop(), registry.New(), nil)
	h := New(zap.NewNop(), studyHub, testOrigin)
	server := httptest.NewServer(http.HandlerFunc(h.StudyWS))
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) models.Frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame models.Frame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

// readUntil reads frames until one of the wanted type arrives, returning it
// and every frame seen along the way.
func readUntil(t *testing.T, conn *websocket.Conn, eventType string) (models.Frame, []models.Frame) {
	t.Helper()
	var seen []models.Frame
	for i := 0; i < 10; i++ {
		frame := readFrame(t, conn)
		seen = append(seen, frame)
		if frame.Type == eventType {
			return frame, seen
		}
	}
	t.Fatalf("no %q frame among %#v", eventType, seen)
	return models.Frame{}, nil
}

func dataMap(t *testing.T, frame models.Frame) map[string]any {
	t.Helper()
	m, ok := frame.Data.(map[string]any)
	require.True(t, ok, "expected object payload, got %#v", frame.Data)
	return m
}

func sendJoin(t *testing.T, conn *websocket.Conn, name, room string, ack int64) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(models.Frame{
		Type: models.EventJoin,
		Data: models.JoinRequest{Name: name, Room: room},
		Ack:  ack,
	}))
}

func TestJoinOverWire(t *testing.T) {
	server := newTestServer(t)
	conn := dial(t, server)

	sendJoin(t, conn, "alice", "r1", 1)

	ackFrame, seen := readUntil(t, conn, models.EventAck)
	assert.Equal(t, int64(1), ackFrame.Ack)
	assert.Empty(t, dataMap(t, ackFrame)["error"])

	var sawWelcome, sawRoster bool
	for _, frame := range seen {
		switch frame.Type {
		case models.EventMessage:
			m := dataMap(t, frame)
			assert.Equal(t, "admin", m["user"])
			assert.Contains(t, m["text"], "alice")
			assert.Contains(t, m["text"], "r1")
			sawWelcome = true
		case models.EventRoomData:
			m := dataMap(t, frame)
			assert.Equal(t, "r1", m["room"])
			sawRoster = true
		}
	}
	assert.True(t, sawWelcome, "missing welcome message: %#v", seen)
	assert.True(t, sawRoster, "missing roster: %#v", seen)
}

func TestJoinRejectionComesBackThroughAck(t *testing.T) {
	server := newTestServer(t)
	connA := dial(t, server)
	connB := dial(t, server)

	sendJoin(t, connA, "alice", "r1", 1)
	readUntil(t, connA, models.EventAck)

	sendJoin(t, connB, "alice", "r1", 7)
	ackFrame, seen := readUntil(t, connB, models.EventAck)

	assert.Equal(t, int64(7), ackFrame.Ack)
	assert.Equal(t, "username is taken", dataMap(t, ackFrame)["error"])
	// The rejected join must produce nothing besides the ack.
	assert.Len(t, seen, 1)
}

func TestJoinValidationOverWire(t *testing.T) {
	server := newTestServer(t)
	conn := dial(t, server)

	sendJoin(t, conn, "   ", "r1", 3)
	ackFrame, _ := readUntil(t, conn, models.EventAck)

	assert.Equal(t, "name and room are required", dataMap(t, ackFrame)["error"])
}

func TestSendMessageOverWire(t *testing.T) {
	server := newTestServer(t)
	connA := dial(t, server)
	connB := dial(t, server)

	sendJoin(t, connA, "alice", "r1", 1)
	readUntil(t, connA, models.EventAck)
	sendJoin(t, connB, "bob", "r1", 1)
	readUntil(t, connB, models.EventAck)
	// drain alice's view of bob's join
	readUntil(t, connA, models.EventRoomData)

	require.NoError(t, connA.WriteJSON(models.Frame{
		Type: models.EventSendMessage,
		Data: "hi",
		Ack:  2,
	}))

	for name, conn := range map[string]*websocket.Conn{"alice": connA, "bob": connB} {
		frame, _ := readUntil(t, conn, models.EventMessage)
		m := dataMap(t, frame)
		assert.Equal(t, "alice", m["user"], "%s saw wrong author", name)
		assert.Equal(t, "hi", m["text"], "%s saw wrong text", name)
	}
}

func TestEditorFlowOverWire(t *testing.T) {
	server := newTestServer(t)
	connA := dial(t, server)

	require.NoError(t, connA.WriteJSON(models.Frame{
		Type: models.EventContentChange,
		Data: models.ContentChange{Content: "hello"},
	}))
	readUntil(t, connA, models.EventContentChange)

	connB := dial(t, server)
	require.NoError(t, connB.WriteJSON(models.Frame{
		Type: models.EventUserEvent,
		Data: models.EditorJoinRequest{Username: "bob"},
	}))

	rosterFrame, _ := readUntil(t, connB, models.EventUserEvent)
	activity, ok := dataMap(t, rosterFrame)["userActivity"].([]any)
	require.True(t, ok)
	assert.Contains(t, activity, "bob joined the document")

	contentFrame, _ := readUntil(t, connB, models.EventContentChange)
	assert.Equal(t, "hello", dataMap(t, contentFrame)["editorContent"])
}

func TestUnknownEventType(t *testing.T) {
	server := newTestServer(t)
	conn := dial(t, server)

	require.NoError(t, conn.WriteJSON(models.Frame{Type: "bogus"}))

	frame := readFrame(t, conn)
	assert.Equal(t, models.EventError, frame.Type)
	assert.Equal(t, "unknown_type", frame.Data)
}

func TestDisconnectNotifiesRoomOverWire(t *testing.T) {
	server := newTestServer(t)
	connA := dial(t, server)
	connB := dial(t, server)

	sendJoin(t, connA, "alice", "r1", 1)
	readUntil(t, connA, models.EventAck)
	sendJoin(t, connB, "bob", "r1", 1)
	readUntil(t, connB, models.EventAck)
	readUntil(t, connA, models.EventRoomData)

	require.NoError(t, connA.Close())

	frame, _ := readUntil(t, connB, models.EventMessage)
	m := dataMap(t, frame)
	assert.Equal(t, "Admin", m["user"])
	assert.Equal(t, "alice has left.", m["text"])

	rosterFrame, _ := readUntil(t, connB, models.EventRoomData)
	users, ok := dataMap(t, rosterFrame)["users"].([]any)
	require.True(t, ok)
	require.Len(t, users, 1)
	user, ok := users[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "bob", user["name"])
}

func TestOriginCheck(t *testing.T) {
	server := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{
		"Origin": []string{"http://evil.example"},
	})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, http.Header{
		"Origin": []string{testOrigin},
	})
	require.NoError(t, err)
	conn.Close()
}

func TestHealth(t *testing.T) {
	studyHub := hub.New(zap.NewNop(), registry.New(), nil)
	h := New(zap.NewNop(), studyHub, testOrigin)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	h.Health(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}
