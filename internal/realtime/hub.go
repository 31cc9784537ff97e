// Package realtime pushes task events to the websocket clients of the users
// a task concerns.
package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"task-tracker-api/internal/models"

	"github.com/sirupsen/logrus"
)

// Event types.
const (
	EventTaskCreated    = "task_created"
	EventTaskUpdated    = "task_updated"
	EventTaskDeleted    = "task_deleted"
	EventSupportCreated = "support_created"
	EventTasksDelayed   = "tasks_delayed"
)

// Client represents a single websocket client connection.
// The network conn is managed in the ws handler.
type Client interface {
	Send(message []byte) bool
	Close()
}

// Event is the JSON message sent to clients.
type Event struct {
	Type  string         `json:"type"`
	Task  *models.Task   `json:"task,omitempty"`
	Tasks []*models.Task `json:"tasks,omitempty"`
	Actor string         `json:"actor,omitempty"`
	At    time.Time      `json:"at"`
}

// Hub maintains active user connections and broadcasts events to them.
type Hub struct {
	mu              sync.RWMutex
	userIDToClients map[string]map[Client]struct{}
	log             logrus.FieldLogger
}

// NewHub creates an empty hub.
func NewHub(log logrus.FieldLogger) *Hub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Hub{userIDToClients: make(map[string]map[Client]struct{}), log: log}
}

// Register adds a client under a user ID.
func (h *Hub) Register(userID string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.userIDToClients[userID]; !ok {
		h.userIDToClients[userID] = make(map[Client]struct{})
	}
	h.userIDToClients[userID][client] = struct{}{}
}

// Unregister removes a client; if user has no more clients, cleans up map.
func (h *Hub) Unregister(userID string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.userIDToClients[userID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.userIDToClients, userID)
		}
	}
}

// Connected reports how many clients userID has open.
func (h *Hub) Connected(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userIDToClients[userID])
}

// Broadcast sends a message to all clients of a user. Failed writes are
// cleaned up by the handler owning the connection.
func (h *Hub) Broadcast(userID string, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.userIDToClients[userID] {
		c.Send(message)
	}
}

// Publish sends ev once to every recipient of the tasks it carries: their
// owners, assigners and supporters.
func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		h.log.WithError(err).WithField("event", ev.Type).Error("realtime: encode event")
		return
	}
	tasks := ev.Tasks
	if ev.Task != nil {
		tasks = append([]*models.Task{ev.Task}, tasks...)
	}
	for _, userID := range Recipients(tasks...) {
		h.Broadcast(userID, payload)
	}
}

// Recipients lists the distinct users interested in tasks, in first-seen order.
func Recipients(tasks ...*models.Task) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, t := range tasks {
		if t == nil {
			continue
		}
		add(t.Owner)
		add(t.AssignedBy)
		for _, s := range t.Supporters {
			add(s)
		}
	}
	return out
}
