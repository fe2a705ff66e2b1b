// Package presence fans session lifecycle events out to sibling service
// instances over Redis pub/sub. It carries no durable state: chat history,
// document content, and rosters stay in process memory, and a single
// instance behaves identically with presence disabled.
package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bhushan-patil0603/group-study-backend/internal/metrics"
)

// Channel is the pub/sub channel presence events travel on.
const Channel = "groupstudy:presence"

// Event types.
const (
	TypeUserJoined   = "user-joined"
	TypeUserLeft     = "user-left"
	TypeEditorJoined = "editor-joined"
	TypeEditorLeft   = "editor-left"
)

// Event is one presence notification. Room is empty for editor events;
// the shared editor is global.
type Event struct {
	Type       string    `json:"type"`
	Room       string    `json:"room,omitempty"`
	Name       string    `json:"name"`
	InstanceID string    `json:"instanceId"`
	Timestamp  time.Time `json:"timestamp"`
}

// Bus publishes local presence events and consumes remote ones. Each bus
// carries a unique instance id so it can ignore its own publications.
type Bus struct {
	log        *zap.Logger
	rdb        *redis.Client
	instanceID string
	ctx        context.Context
	cancel     context.CancelFunc
}

// New starts a bus on the given Redis client and begins consuming remote
// events in the background.
func New(log *zap.Logger, rdb *redis.Client) *Bus {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Bus{
		log:        log,
		rdb:        rdb,
		instanceID: uuid.New().String(),
		ctx:        ctx,
		cancel:     cancel,
	}
	go b.subscribe()
	log.Info("presence bus started", zap.String("instanceId", b.instanceID))
	return b
}

// InstanceID returns the unique id of this bus.
func (b *Bus) InstanceID() string { return b.instanceID }

// UserJoined publishes a chat join for cross-instance observation.
func (b *Bus) UserJoined(room, name string) { b.publish(TypeUserJoined, room, name) }

// UserLeft publishes a chat departure.
func (b *Bus) UserLeft(room, name string) { b.publish(TypeUserLeft, room, name) }

// EditorJoined publishes an editor presence arrival.
func (b *Bus) EditorJoined(username string) { b.publish(TypeEditorJoined, "", username) }

// EditorLeft publishes an editor presence departure.
func (b *Bus) EditorLeft(username string) { b.publish(TypeEditorLeft, "", username) }

func (b *Bus) publish(eventType, room, name string) {
	if err := b.Publish(&Event{Type: eventType, Room: room, Name: name}); err != nil {
		b.log.Warn("presence publish failed", zap.String("type", eventType), zap.Error(err))
	}
}

// Publish stamps the event with this instance's id and current time and
// sends it on the presence channel.
func (b *Bus) Publish(event *Event) error {
	event.InstanceID = b.instanceID
	event.Timestamp = time.Now()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal presence event: %w", err)
	}
	return b.rdb.Publish(b.ctx, Channel, data).Err()
}

func (b *Bus) subscribe() {
	pubsub := b.rdb.Subscribe(b.ctx, Channel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-b.ctx.Done():
			b.log.Info("stopping presence subscriber", zap.String("instanceId", b.instanceID))
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.log.Warn("failed to unmarshal presence event", zap.Error(err))
				continue
			}
			if event.InstanceID == b.instanceID {
				continue
			}
			b.handleRemoteEvent(&event)
		}
	}
}

// handleRemoteEvent records presence activity from other instances. Local
// room and editor state is never mutated from here; each instance owns the
// connections it serves.
func (b *Bus) handleRemoteEvent(event *Event) {
	metrics.PresenceRemoteEvent(event.Type)
	b.log.Info("remote presence event",
		zap.String("type", event.Type),
		zap.String("room", event.Room),
		zap.String("name", event.Name),
		zap.String("fromInstance", event.InstanceID))
}

// Close stops the subscriber and releases the Redis client.
func (b *Bus) Close() {
	b.cancel()
	_ = b.rdb.Close()
}
