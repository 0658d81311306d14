// Package realtime tracks open notification connections per user and delivers pushes to them.
package realtime

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/slicehouse/pizzeria/internal/observability"
)

// Conn is the write side of a realtime connection.
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

// Envelope is the message pushed to clients.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ConnectionRegistry maps users to their open connections.
type ConnectionRegistry interface {
	Register(userID string, conn Conn)
	Unregister(userID string, conn Conn)
	Send(ctx context.Context, userID string, msg Envelope) error
	Count(userID string) int
}

// client serializes writes to a single connection.
type client struct {
	mu   sync.Mutex
	conn Conn
}

func (c *client) write(msg Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(msg)
}

// Hub is the process-local registry.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[Conn]*client
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger, metrics *observability.Metrics) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[string]map[Conn]*client),
		logger:  logger,
		metrics: metrics,
	}
}

func (h *Hub) Register(userID string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.clients[userID]
	if !ok {
		conns = make(map[Conn]*client)
		h.clients[userID] = conns
	}
	if _, exists := conns[conn]; exists {
		return
	}
	conns[conn] = &client{conn: conn}
	h.metrics.ConnectionOpened()
}

func (h *Hub) Unregister(userID string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(userID, conn)
}

// remove expects h.mu to be held.
func (h *Hub) remove(userID string, conn Conn) {
	conns, ok := h.clients[userID]
	if !ok {
		return
	}
	if _, exists := conns[conn]; !exists {
		return
	}
	delete(conns, conn)
	if len(conns) == 0 {
		delete(h.clients, userID)
	}
	h.metrics.ConnectionClosed()
}

// Send writes msg to every open connection of the user. Connections whose write fails are
// closed and dropped. A user without connections is not an error.
func (h *Hub) Send(_ context.Context, userID string, msg Envelope) error {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients[userID]))
	for _, c := range h.clients[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	var failed []*client
	for _, c := range targets {
		if err := c.write(msg); err != nil {
			h.logger.Debug("dropping realtime connection", zap.String("user_id", userID), zap.Error(err))
			failed = append(failed, c)
		}
	}

	if len(failed) > 0 {
		h.mu.Lock()
		for _, c := range failed {
			h.remove(userID, c.conn)
		}
		h.mu.Unlock()
		for _, c := range failed {
			_ = c.conn.Close()
		}
	}
	return nil
}

func (h *Hub) Count(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
