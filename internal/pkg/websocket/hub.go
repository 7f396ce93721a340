package websocket

import (
	"context"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
)

// Notification types pushed to connected clients
const (
	TypeQueueAvailable = "queue.available"
	TypeLoanOverdue    = "loan.overdue"
	TypeFineUpdated    = "fine.updated"
	TypeBookingReady   = "booking.ready"
)

const outboxSize = 256

// Notification is one event delivered to a user's open connections
type Notification struct {
	Type      string         `json:"type"`
	UserID    int64          `json:"userId"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Hub keeps the open connections per user and fans notifications out to them
type Hub struct {
	// Registered clients organized by user ID
	clients map[int64]map[*Client]bool

	outbox     chan *Notification
	register   chan *Client
	unregister chan *Client

	mu     sync.RWMutex
	logger zerolog.Logger
}

// NewHub creates a new Hub instance
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[int64]map[*Client]bool),
		outbox:     make(chan *Notification, outboxSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger.With().Str("component", "ws-hub").Logger(),
	}
}

// Run handles registrations and deliveries until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case n := <-h.outbox:
			h.deliver(n)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.userID]; !ok {
		h.clients[client.userID] = make(map[*Client]bool)
	}
	h.clients[client.userID][client] = true

	h.logger.Info().Int64("userID", client.userID).Msg("Client registered")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

func (h *Hub) removeLocked(client *Client) {
	set, ok := h.clients[client.userID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	close(client.send)
	if len(set) == 0 {
		delete(h.clients, client.userID)
	}
	h.logger.Info().Int64("userID", client.userID).Msg("Client unregistered")
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, set := range h.clients {
		for client := range set {
			h.removeLocked(client)
		}
	}
}

// deliver writes n to every connection of its user. Clients whose buffer is
// full are dropped.
func (h *Hub) deliver(n *Notification) {
	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(n)
	if err != nil {
		h.logger.Error().Err(err).Str("type", n.Type).Msg("Failed to marshal notification")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[n.UserID]
	if !ok {
		h.logger.Debug().Int64("userID", n.UserID).Str("type", n.Type).Msg("User not connected, notification dropped")
		return
	}
	for client := range set {
		select {
		case client.send <- data:
		default:
			h.removeLocked(client)
		}
	}
}

// Notify queues n for delivery. It never blocks; when the outbox is full the
// notification is dropped and logged.
func (h *Hub) Notify(n *Notification) {
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}
	select {
	case h.outbox <- n:
	default:
		h.logger.Warn().Int64("userID", n.UserID).Str("type", n.Type).Msg("Notification outbox full")
	}
}

// GetClientsCount returns the number of open connections for a user
func (h *Hub) GetClientsCount(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
