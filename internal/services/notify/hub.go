// Package notify fans ingest progress events out to websocket subscribers.
package notify

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

/*
LEARNING: BROADCAST HUB

One goroutine owns the subscriber set. Everything else talks to it over
channels:
- register / unregister add and remove clients
- broadcast carries already-encoded events

Each client has a buffered Send channel drained by its own WritePump. A
client whose buffer is full is dropped instead of stalling the batch that
publishes the events.
*/

// EventType names a progress event.
type EventType string

const (
	EventBatchStarted  EventType = "batch_started"
	EventFileExtracted EventType = "file_extracted"
	EventFileSkipped   EventType = "file_skipped"
	EventFileEmbedded  EventType = "file_embedded"
	EventBatchDone     EventType = "batch_done"
	EventBatchFailed   EventType = "batch_failed"
)

// Event is one progress notification.
type Event struct {
	Type    EventType `json:"type"`
	RunID   string    `json:"run_id,omitempty"`
	File    string    `json:"file,omitempty"`
	Chunks  int       `json:"chunks,omitempty"`
	Message string    `json:"message,omitempty"`
	Time    time.Time `json:"time"`
}

// Hub manages all progress subscribers
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	mu         sync.RWMutex

	done     chan struct{}
	stopOnce sync.Once
}

// NewHub creates a hub. Call Start before publishing.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
	}
}

// Start begins the hub event loop
func (h *Hub) Start() {
	log.Println("🔄 Starting progress hub...")

	go func() {
		for {
			select {
			case <-h.done:
				return

			case c := <-h.register:
				h.mu.Lock()
				h.clients[c] = true
				h.mu.Unlock()
				log.Printf("  Progress subscriber %s connected (total: %d)", c.ID, h.ClientCount())

			case c := <-h.unregister:
				h.remove(c)

			case msg := <-h.broadcast:
				h.handleBroadcast(msg)
			}
		}
	}()

	log.Println("✓ Progress hub started")
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.Send)
		log.Printf("  Progress subscriber %s left (remaining: %d)", c.ID, len(h.clients))
	}
}

// handleBroadcast runs on the hub goroutine, so it may drop clients directly.
func (h *Hub) handleBroadcast(msg []byte) {
	h.mu.RLock()
	var slow []*Client
	for c := range h.clients {
		select {
		case c.Send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		log.Printf("⚠️  Progress subscriber %s buffer full, dropping", c.ID)
		h.remove(c)
	}
}

// Publish queues an event for every subscriber. It never blocks: when the
// queue is full or the hub is stopped the event is dropped.
func (h *Hub) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	msg, err := json.Marshal(ev)
	if err != nil {
		log.Printf("⚠️  Failed to encode progress event: %v", err)
		return
	}

	select {
	case <-h.done:
	case h.broadcast <- msg:
	default:
		log.Printf("⚠️  Progress queue full, dropping %s event", ev.Type)
	}
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown gracefully closes all connections
func (h *Hub) Shutdown() {
	h.stopOnce.Do(func() {
		log.Println("🛑 Shutting down progress hub...")
		close(h.done)

		h.mu.Lock()
		defer h.mu.Unlock()
		for c := range h.clients {
			close(c.Send)
			c.Conn.Close()
		}
		h.clients = make(map[*Client]bool)
		log.Println("✓ Progress hub shutdown complete")
	})
}
