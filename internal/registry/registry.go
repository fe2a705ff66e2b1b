// Package registry tracks which connection belongs to which room and
// validates join requests. It is the authoritative source of room
// membership for chat fan-out.
package registry

import (
	"strings"
	"sync"

	"github.com/bhushan-patil0603/group-study-backend/internal/models"
)

// ValidationError is the only error surfaced to clients; it is delivered
// through the acknowledgement of the request that triggered it.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Registry holds one session per active connection. Sessions are kept in
// join order so roster queries and collision checks are deterministic.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
	order    []string
}

func New() *Registry {
	return &Registry{sessions: make(map[string]*models.Session)}
}

// AddUser validates and registers a session for connID. Name and room are
// trimmed before validation and compared case-insensitively against existing
// sessions; the stored session keeps the caller's original spelling for
// display. The scan runs in join order and rejects on the first collision.
func (r *Registry) AddUser(connID, name, room string) (*models.Session, error) {
	name = strings.TrimSpace(name)
	room = strings.TrimSpace(room)
	if name == "" || room == "" {
		return nil, &ValidationError{Reason: "name and room are required"}
	}

	lowerName := strings.ToLower(name)
	lowerRoom := strings.ToLower(room)

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.order {
		s := r.sessions[id]
		if strings.ToLower(s.Room) == lowerRoom && strings.ToLower(s.Name) == lowerName {
			return nil, &ValidationError{Reason: "username is taken"}
		}
	}

	session := &models.Session{ID: connID, Name: name, Room: room}
	if _, exists := r.sessions[connID]; exists {
		r.removeFromOrder(connID)
	}
	r.sessions[connID] = session
	r.order = append(r.order, connID)
	return session, nil
}

// RemoveUser deletes and returns the session for connID. It is idempotent:
// a second call for the same id is a no-op reporting false.
func (r *Registry) RemoveUser(connID string) (*models.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[connID]
	if !ok {
		return nil, false
	}
	delete(r.sessions, connID)
	r.removeFromOrder(connID)
	return session, true
}

// GetUser looks up the session for connID without mutating anything.
func (r *Registry) GetUser(connID string) (*models.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[connID]
	return session, ok
}

// GetUsersInRoom returns the sessions whose room matches (case-insensitive)
// in join order. A room with no members yields an empty slice.
func (r *Registry) GetUsersInRoom(room string) []*models.Session {
	lowerRoom := strings.ToLower(strings.TrimSpace(room))

	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]*models.Session, 0)
	for _, id := range r.order {
		s := r.sessions[id]
		if strings.ToLower(s.Room) == lowerRoom {
			users = append(users, s)
		}
	}
	return users
}

// Count returns the number of active sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) removeFromOrder(connID string) {
	for i, id := range r.order {
		if id == connID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}
