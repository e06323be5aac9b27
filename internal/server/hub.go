package server

import (
	"context"
	"sync"

	"github.com/rewired-gh/quickodds/internal/logger"
	"github.com/rewired-gh/quickodds/internal/models"
)

// Message is one websocket frame.
type Message struct {
	Type     string           `json:"type"`
	Snapshot *models.Snapshot `json:"snapshot,omitempty"`
	Expiry   *models.Expiry   `json:"expiry,omitempty"`
}

func snapshotMessage(s models.Snapshot) *Message { return &Message{Type: "snapshot", Snapshot: &s} }
func expiryMessage(e models.Expiry) *Message     { return &Message{Type: "expired", Expiry: &e} }
func closedMessage() *Message                    { return &Message{Type: "closed"} }

// Hub fans messages out to websocket clients. Newly registered clients get
// the latest snapshot first.
type Hub struct {
	clients    map[*Client]struct{}
	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu     sync.RWMutex
	latest *Message
	count  int
}

func newHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan *Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Publish queues msg for every client. It never blocks; when the queue is
// full the message is dropped.
func (h *Hub) Publish(msg *Message) {
	h.mu.Lock()
	switch msg.Type {
	case "snapshot":
		h.latest = msg
	case "closed":
		h.latest = nil
	}
	h.mu.Unlock()

	select {
	case h.broadcast <- msg:
	default:
		logger.Debug("Websocket broadcast queue full, dropped %s message", msg.Type)
	}
}

// Connections returns the number of connected clients.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

func (h *Hub) run(ctx context.Context) {
	defer func() {
		close(h.done)
		for c := range h.clients {
			close(c.send)
		}
		h.clients = map[*Client]struct{}{}
		h.setCount(0)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.setCount(len(h.clients))
			h.mu.RLock()
			latest := h.latest
			h.mu.RUnlock()
			if latest != nil {
				c.send <- latest
			}

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.setCount(len(h.clients))
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// slow consumer
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.setCount(len(h.clients))
		}
	}
}

func (h *Hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
}
