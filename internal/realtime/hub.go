package realtime

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/crosswordsmith/rebusgen/internal/db"
	"github.com/crosswordsmith/rebusgen/pkg/puzzle"
)

// MessageType defines the type of WebSocket message sent to a job's
// subscribers.
type MessageType string

const (
	MsgAttemptFailed MessageType = "attempt_failed"
	MsgJobSucceeded  MessageType = "job_succeeded"
	MsgJobFailed     MessageType = "job_failed"
	MsgError         MessageType = "error"
)

// Message is the envelope every event sent down a job's event stream
// is wrapped in.
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AttemptFailedPayload reports one retryable failure of the
// orchestrator's retry loop, per spec.md §4.6.
type AttemptFailedPayload struct {
	Attempt int    `json:"attempt"`
	Kind    string `json:"kind"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// Hub fans out generation-job progress to every client subscribed to
// that job's event stream. Unlike the teacher's room-based hub, there
// is no shared mutable puzzle state here: the hub only relays events
// the orchestrator (driven from internal/api) pushes in.
type Hub struct {
	db         *db.Database
	clients    map[string]map[*Client]bool // jobID -> subscribed clients
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
}

func NewHub(database *db.Database) *Hub {
	return &Hub{
		db:         database,
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			if h.clients[client.JobID] == nil {
				h.clients[client.JobID] = make(map[*Client]bool)
			}
			h.clients[client.JobID][client] = true
			h.mutex.Unlock()
			log.Printf("client subscribed to job %s", client.JobID)

		case client := <-h.unregister:
			h.mutex.Lock()
			if subs, ok := h.clients[client.JobID]; ok {
				if _, ok := subs[client]; ok {
					delete(subs, client)
					close(client.Send)
				}
				if len(subs) == 0 {
					delete(h.clients, client.JobID)
				}
			}
			h.mutex.Unlock()
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// PublishProgress broadcasts a single attempt failure to every client
// subscribed to jobID's event stream.
func (h *Hub) PublishProgress(jobID string, record puzzle.AttemptRecord) {
	h.broadcast(jobID, MsgAttemptFailed, AttemptFailedPayload{
		Attempt: record.Attempt,
		Kind:    string(record.Kind),
	})
}

// PublishSucceeded announces that jobID's sealed puzzle is ready.
func (h *Hub) PublishSucceeded(jobID, puzzleID string) {
	h.broadcast(jobID, MsgJobSucceeded, map[string]string{"puzzleId": puzzleID})
}

// PublishFailed announces jobID's terminal failure.
func (h *Hub) PublishFailed(jobID, reason string) {
	h.broadcast(jobID, MsgJobFailed, map[string]string{"error": reason})
}

func (h *Hub) broadcast(jobID string, msgType MessageType, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	msgData, err := json.Marshal(Message{Type: msgType, Payload: data})
	if err != nil {
		return
	}

	h.mutex.RLock()
	defer h.mutex.RUnlock()
	for client := range h.clients[jobID] {
		select {
		case client.Send <- msgData:
		default:
			// Channel full, skip message
		}
	}
}

func (h *Hub) sendError(client *Client, message string) {
	data, err := json.Marshal(ErrorPayload{Message: message})
	if err != nil {
		return
	}
	msgData, err := json.Marshal(Message{Type: MsgError, Payload: data})
	if err != nil {
		return
	}
	select {
	case client.Send <- msgData:
	default:
	}
}
