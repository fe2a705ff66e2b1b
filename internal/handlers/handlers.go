// Package handlers adapts the HTTP and WebSocket surface onto the hub.
// Each connection gets a read loop that decodes frames and dispatches them;
// hub results are translated into ack frames on the same connection.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/bhushan-patil0603/group-study-backend/internal/hub"
	"github.com/bhushan-patil0603/group-study-backend/internal/metrics"
	"github.com/bhushan-patil0603/group-study-backend/internal/models"
)

type Handlers struct {
	log      *zap.Logger
	hub      *hub.Hub
	upgrader websocket.Upgrader
}

// New builds the handler set. clientOrigin gates which browsers may open
// the WebSocket; requests without an Origin header (non-browser clients,
// tests) are accepted.
func New(log *zap.Logger, h *hub.Hub, clientOrigin string) *Handlers {
	return &Handlers{
		log: log,
		hub: h,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origin == clientOrigin
			},
		},
	}
}

func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// StudyWS upgrades the connection and runs its event loop until the peer
// goes away. Connection close, clean or not, triggers the disconnect flow.
func (h *Handlers) StudyWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	client := hub.NewClient(uuid.New().String(), conn)
	h.hub.Register(client)
	defer h.hub.Disconnect(client)

	for {
		var frame models.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Warn("websocket read error", zap.String("connId", client.ID), zap.Error(err))
			}
			return
		}
		h.dispatch(client, frame)
	}
}

func (h *Handlers) dispatch(c *hub.Client, frame models.Frame) {
	metrics.EventReceived(frame.Type)

	switch frame.Type {
	case models.EventJoin:
		var req models.JoinRequest
		decode(frame.Data, &req)
		err := h.hub.Join(c, req.Name, req.Room)
		h.ack(c, frame, err)

	case models.EventSendMessage:
		var text string
		decode(frame.Data, &text)
		h.hub.SendMessage(c, text)
		h.ack(c, frame, nil)

	case models.EventCanvasData:
		h.hub.CanvasData(c, frame.Data)

	case models.EventUserEvent:
		var req models.EditorJoinRequest
		decode(frame.Data, &req)
		h.hub.EditorJoin(c, req.Username)

	case models.EventContentChange:
		var req models.ContentChange
		decode(frame.Data, &req)
		h.hub.ContentChange(c, req.Content)

	default:
		h.log.Debug("unknown event type", zap.String("connId", c.ID), zap.String("type", frame.Type))
		c.Send(models.Frame{Type: models.EventError, Data: "unknown_type"})
	}
}

// ack answers a request frame exactly once. Frames without an ack id get no
// reply; join failures travel back as the ack's error field.
func (h *Handlers) ack(c *hub.Client, frame models.Frame, err error) {
	if frame.Ack == 0 {
		return
	}
	payload := models.Ack{}
	if err != nil {
		payload.Error = err.Error()
	}
	c.Send(models.Frame{Type: models.EventAck, Ack: frame.Ack, Data: payload})
}

func decode(in any, out any) {
	b, _ := json.Marshal(in)
	_ = json.Unmarshal(b, out)
}
