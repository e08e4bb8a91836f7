package signal

import (
	"encoding/json"
	"fmt"
	"sync"

	"medrelay/internal/core/domain"
	"medrelay/internal/core/ports"

	"go.uber.org/zap"
)

// Hub owns the live client connections and implements ports.Sender.
// Delivery is fire-and-forget: a client whose outbound buffer is full
// loses the message rather than stalling the sender.
type Hub struct {
	clients map[domain.ConnectionID]*Client
	mu      sync.RWMutex

	logger *zap.SugaredLogger
}

func NewHub(logger *zap.SugaredLogger) *Hub {
	return &Hub{
		clients: make(map[domain.ConnectionID]*Client),
		logger:  logger,
	}
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if current, exists := h.clients[client.ID]; exists && current == client {
		delete(h.clients, client.ID)
	}
}

func (h *Hub) Send(id domain.ConnectionID, message interface{}) error {
	h.mu.RLock()
	client, exists := h.clients[id]
	h.mu.RUnlock()

	if !exists {
		return fmt.Errorf("connection %s not connected", id)
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	select {
	case client.send <- data:
		return nil
	default:
		h.logger.Warnw("dropping message, client buffer full", "connection_id", id)
		return fmt.Errorf("connection %s send buffer full", id)
	}
}

func (h *Hub) IsConnected(id domain.ConnectionID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, exists := h.clients[id]
	return exists
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

var _ ports.Sender = (*Hub)(nil)
