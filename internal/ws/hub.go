package ws

import (
	"encoding/json"
	"sync"
)

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Event types pushed while the worker processes a job.
const (
	EventJobStarted  = "job.started"
	EventJobProgress = "job.progress"
	EventJobFinished = "job.finished"
)

// jobEvent is an internal struct for routing events to one job's watchers
type jobEvent struct {
	JobID int64
	Event Event
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Registered clients by job ID
	rooms map[int64]map[*Client]bool

	// Inbound messages from clients (register/unregister)
	register   chan *Client
	unregister chan *Client

	// Outbound messages to broadcast
	broadcast chan *jobEvent

	// Mutex for thread-safe room access
	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[int64]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *jobEvent, 256),
	}
}

// Run starts the hub's main loop
// This should be called as a goroutine: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.jobID] == nil {
				h.rooms[client.jobID] = make(map[*Client]bool)
			}
			h.rooms[client.jobID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.jobID]; ok {
				if _, exists := clients[client]; exists {
					delete(clients, client)
					close(client.send)
					// Clean up empty rooms
					if len(clients) == 0 {
						delete(h.rooms, client.jobID)
					}
				}
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.mu.Lock()
			clients := h.rooms[event.JobID]

			// Marshal event to JSON once
			message, err := json.Marshal(event.Event)
			if err != nil {
				h.mu.Unlock()
				continue
			}

			// Send to all clients watching this job
			for client := range clients {
				select {
				case client.send <- message:
				default:
					// Client's send buffer is full, close and unregister
					close(client.send)
					delete(h.rooms[event.JobID], client)
					if len(h.rooms[event.JobID]) == 0 {
						delete(h.rooms, event.JobID)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastToJob sends an event to all clients watching a specific job
// This is the public API for the worker to publish job progress
func (h *Hub) BroadcastToJob(jobID int64, event Event) {
	h.broadcast <- &jobEvent{
		JobID: jobID,
		Event: event,
	}
}
