package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/patrickmlong/Data-Intensive-PML/internal/infrastructure"
	"github.com/patrickmlong/Data-Intensive-PML/internal/store"
)

// Message types
const (
	TypeConnection = "connection"
	TypeRunStatus  = "run:status"
)

// Message is the envelope of everything sent to clients
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	running bool
	quit    chan struct{}
	done    chan struct{}

	metrics *infrastructure.PipelineMetrics
	logger  *slog.Logger
}

// NewHub creates a hub. metrics may be nil.
func NewHub(metrics *infrastructure.PipelineMetrics, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		metrics:    metrics,
		logger:     logger.With(slog.String("component", "websocket.hub")),
	}
}

// Start runs the hub loop in the background
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	h.running = true
	go h.run()
}

// Stop disconnects every client and ends the hub loop
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)
	<-h.done
}

func (h *Hub) run() {
	defer close(h.done)
	ctx := context.Background()

	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for client := range h.clients {
				h.drop(ctx, client)
			}
			h.mu.Unlock()
			h.logger.Info("Hub shutting down")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			if h.metrics != nil {
				h.metrics.WSConnections.Add(ctx, 1)
			}

			h.logger.InfoContext(infrastructure.WithTraceID(ctx, client.traceID), "Client registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))

			if data, err := encode(TypeConnection, map[string]string{
				"status":    "connected",
				"client_id": client.id,
			}, client.traceID); err == nil {
				client.send <- data
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if h.clients[client] {
				h.drop(ctx, client)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
					if h.metrics != nil {
						h.metrics.WSMessagesSent.Add(ctx, 1)
					}
				default:
					h.logger.Warn("Client send buffer full, disconnecting",
						slog.String("client_id", client.id))
					h.drop(ctx, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// drop removes client. Callers hold h.mu.
func (h *Hub) drop(ctx context.Context, client *Client) {
	delete(h.clients, client)
	close(client.send)
	if h.metrics != nil {
		h.metrics.WSConnections.Add(ctx, -1)
	}
	h.logger.InfoContext(ctx, "Client unregistered",
		slog.Int("total_clients", len(h.clients)),
		slog.String("client_id", client.id),
		slog.Duration("connection_duration", time.Since(client.connectedAt)))
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues a message for every client. Messages sent while the hub
// is stopped are discarded.
func (h *Hub) Broadcast(ctx context.Context, msgType string, data interface{}) {
	h.mu.RLock()
	running := h.running
	h.mu.RUnlock()
	if !running {
		return
	}

	payload, err := encode(msgType, data, infrastructure.GetTraceID(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "Error marshaling message",
			slog.String("error", err.Error()),
			slog.String("message_type", msgType))
		return
	}

	select {
	case h.broadcast <- payload:
	case <-h.quit:
	}
}

// PublishRun broadcasts the current state of a run
func (h *Hub) PublishRun(ctx context.Context, rec *store.RunRecord) {
	h.Broadcast(ctx, TypeRunStatus, rec)
}

func encode(msgType string, data interface{}, traceID string) ([]byte, error) {
	return json.Marshal(Message{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().UTC(),
		TraceID:   traceID,
	})
}
