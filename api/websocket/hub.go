package websocket

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/OldStager01/genomerx/internal/logger"
	"github.com/OldStager01/genomerx/pkg/config"
)

// Settings are the per-connection limits derived from config.
type Settings struct {
	MaxConnections  int
	PingInterval    time.Duration
	WriteTimeout    time.Duration
	PongTimeout     time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	BroadcastBuffer int
	ClientBuffer    int
}

func NewSettings(cfg *config.WebSocketConfig) Settings {
	s := Settings{
		MaxConnections:  1000,
		PingInterval:    54 * time.Second,
		WriteTimeout:    10 * time.Second,
		PongTimeout:     60 * time.Second,
		MaxMessageSize:  512,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		BroadcastBuffer: 256,
		ClientBuffer:    256,
	}
	if cfg == nil {
		return s
	}
	if cfg.MaxConnections > 0 {
		s.MaxConnections = cfg.MaxConnections
	}
	if cfg.PongTimeout > 0 {
		s.PongTimeout = cfg.PongTimeout
	}
	if cfg.PingInterval > 0 && cfg.PingInterval < s.PongTimeout {
		s.PingInterval = cfg.PingInterval
	} else {
		s.PingInterval = s.PongTimeout * 9 / 10
	}
	if cfg.WriteTimeout > 0 {
		s.WriteTimeout = cfg.WriteTimeout
	}
	if cfg.MaxMessageSize > 0 {
		s.MaxMessageSize = cfg.MaxMessageSize
	}
	if cfg.ReadBufferSize > 0 {
		s.ReadBufferSize = cfg.ReadBufferSize
	}
	if cfg.WriteBufferSize > 0 {
		s.WriteBufferSize = cfg.WriteBufferSize
	}
	if cfg.BroadcastBuffer > 0 {
		s.BroadcastBuffer = cfg.BroadcastBuffer
	}
	if cfg.ClientBuffer > 0 {
		s.ClientBuffer = cfg.ClientBuffer
	}
	return s
}

type broadcast struct {
	pathogen string
	message  []byte
}

// Hub tracks connected clients and delivers prediction messages to those
// watching the message's pathogen (or watching everything).
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan broadcast
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	settings   Settings
}

func NewHub(cfg *config.WebSocketConfig) *Hub {
	settings := NewSettings(cfg)
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan broadcast, settings.BroadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		settings:   settings,
	}
}

func (h *Hub) Settings() Settings { return h.settings }

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			logger.Infof("WebSocket client connected (total: %d)", h.ClientCount())

		case client := <-h.unregister:
			h.remove(client)
			logger.Infof("WebSocket client disconnected (total: %d)", h.ClientCount())

		case b := <-h.broadcast:
			h.deliver(b)
		}
	}
}

func (h *Hub) deliver(b broadcast) {
	var slow []*Client

	h.mu.RLock()
	for client := range h.clients {
		if !client.wants(b.pathogen) {
			continue
		}
		select {
		case client.send <- b.message:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.remove(client)
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}

// Broadcast queues a message for every client subscribed to pathogen.
// An empty pathogen reaches every client.
func (h *Hub) Broadcast(pathogen string, message []byte) {
	select {
	case h.broadcast <- broadcast{pathogen: pathogen, message: message}:
	default:
		logger.Warn("Broadcast channel full, dropping message")
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Full() bool {
	return h.ClientCount() >= h.settings.MaxConnections
}

// Register and Unregister are no-ops once Run has returned.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func samePathogen(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
