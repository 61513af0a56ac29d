package api

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"epinet/internal"
	"epinet/ports"

	"github.com/gin-gonic/gin"
)

// SSEClient represents a connected SSE client
type SSEClient struct {
	BatchID string
	Channel chan ports.ProgressEvent
}

// SSEHub fans batch progress events out to Server-Sent Events clients
type SSEHub struct {
	clients    map[string]map[chan ports.ProgressEvent]bool
	clientsMu  sync.RWMutex
	register   chan SSEClient
	unregister chan SSEClient
	broadcast  chan ports.ProgressEvent
	done       chan struct{}
	closeOnce  sync.Once
	logger     *internal.Logger

	// KeepAlive is the ping interval on idle streams
	KeepAlive time.Duration
}

// NewSSEHub creates a new SSE hub and starts its dispatch loop
func NewSSEHub(logger *internal.Logger) *SSEHub {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	hub := &SSEHub{
		clients:    make(map[string]map[chan ports.ProgressEvent]bool),
		register:   make(chan SSEClient, 10),
		unregister: make(chan SSEClient, 10),
		broadcast:  make(chan ports.ProgressEvent, 100),
		done:       make(chan struct{}),
		logger:     logger.WithComponent("sse"),
		KeepAlive:  30 * time.Second,
	}

	go hub.run()
	return hub
}

// run processes SSE hub operations
func (h *SSEHub) run() {
	for {
		select {
		case <-h.done:
			return

		case client := <-h.register:
			h.clientsMu.Lock()
			if h.clients[client.BatchID] == nil {
				h.clients[client.BatchID] = make(map[chan ports.ProgressEvent]bool)
			}
			h.clients[client.BatchID][client.Channel] = true
			h.logger.Debug("client registered for batch %s (total clients: %d)",
				client.BatchID, len(h.clients[client.BatchID]))
			h.clientsMu.Unlock()

		case client := <-h.unregister:
			h.clientsMu.Lock()
			if clients, exists := h.clients[client.BatchID]; exists {
				delete(clients, client.Channel)
				close(client.Channel)
				h.logger.Debug("client unregistered from batch %s (remaining clients: %d)",
					client.BatchID, len(clients))
				if len(clients) == 0 {
					delete(h.clients, client.BatchID)
				}
			}
			h.clientsMu.Unlock()

		case event := <-h.broadcast:
			h.clientsMu.RLock()
			if clients, exists := h.clients[event.BatchID.String()]; exists {
				for clientChan := range clients {
					select {
					case clientChan <- event:
					default:
						h.logger.Warn("client channel full for batch %s, skipping event", event.BatchID)
					}
				}
			}
			h.clientsMu.RUnlock()
		}
	}
}

// Publish implements ports.ProgressListener. It never blocks the batch.
func (h *SSEHub) Publish(event ports.ProgressEvent) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("broadcast channel full, dropping event: %s", event.Kind)
	}
}

// Subscribe registers a client channel for batchID; call the returned func to leave
func (h *SSEHub) Subscribe(batchID string) (<-chan ports.ProgressEvent, func(), bool) {
	ch := make(chan ports.ProgressEvent, 10)
	client := SSEClient{BatchID: batchID, Channel: ch}
	select {
	case h.register <- client:
	default:
		return nil, nil, false
	}
	leave := func() {
		select {
		case h.unregister <- client:
		default:
		}
	}
	return ch, leave, true
}

// Close stops the dispatch loop
func (h *SSEHub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// HandleSSE streams progress for the batch named by the :id path parameter.
// The stream ends after the batch finishes or fails.
func (h *SSEHub) HandleSSE(c *gin.Context) {
	batchID := c.Param("id")
	if batchID == "" {
		c.JSON(400, gin.H{"error": "batch id required"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	events, leave, ok := h.Subscribe(batchID)
	if !ok {
		c.JSON(500, gin.H{"error": "SSE hub registration failed"})
		return
	}
	defer leave()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case event, open := <-events:
			if !open {
				return false
			}
			eventJSON, err := json.Marshal(event)
			if err != nil {
				h.logger.Error("failed to marshal event: %v", err)
				return true
			}
			c.SSEvent(event.Kind, string(eventJSON))
			return event.Kind != ports.EventBatchFinished && event.Kind != ports.EventBatchFailed

		case <-time.After(h.KeepAlive):
			c.SSEvent("ping", `{"status": "alive", "timestamp": "`+time.Now().Format(time.RFC3339)+`"}`)
			return true

		case <-ctx.Done():
			return false
		}
	})
}

// GetActiveBatches returns batches with connected clients
func (h *SSEHub) GetActiveBatches() []string {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()

	batches := make([]string, 0, len(h.clients))
	for batchID := range h.clients {
		batches = append(batches, batchID)
	}
	return batches
}

// GetClientCount returns the number of active clients for a batch
func (h *SSEHub) GetClientCount(batchID string) int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()

	if clients, exists := h.clients[batchID]; exists {
		return len(clients)
	}
	return 0
}
