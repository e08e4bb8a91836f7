package memory

import (
	"context"
	"sync"
	"time"

	"medrelay/internal/core/domain"
	"medrelay/internal/core/ports"
)

// ConnectionRegistry is the in-memory ports.ConnectionRegistry. All
// relay state is volatile: rooms are ephemeral signaling contexts, a
// restart loses nothing durable.
type ConnectionRegistry struct {
	connections map[domain.ConnectionID]*domain.Connection
	mu          sync.RWMutex
}

func NewConnectionRegistry() ports.ConnectionRegistry {
	return &ConnectionRegistry{
		connections: make(map[domain.ConnectionID]*domain.Connection),
	}
}

func (r *ConnectionRegistry) Register(ctx context.Context, id domain.ConnectionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.connections[id]; exists {
		return nil
	}
	r.connections[id] = &domain.Connection{
		ID:          id,
		Identity:    domain.GuestIdentity(),
		ConnectedAt: time.Now(),
	}
	return nil
}

func (r *ConnectionRegistry) Authenticate(ctx context.Context, id domain.ConnectionID, identity domain.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, exists := r.connections[id]
	if !exists {
		conn = &domain.Connection{
			ID:          id,
			ConnectedAt: time.Now(),
		}
		r.connections[id] = conn
	}
	conn.Identity = identity
	return nil
}

func (r *ConnectionRegistry) RecordRoom(ctx context.Context, id domain.ConnectionID, roomID domain.RoomID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, exists := r.connections[id]
	if !exists {
		return domain.ErrConnectionNotFound
	}
	conn.RoomID = roomID
	return nil
}

func (r *ConnectionRegistry) ClearRoom(ctx context.Context, id domain.ConnectionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, exists := r.connections[id]
	if !exists {
		return nil
	}
	conn.RoomID = ""
	return nil
}

func (r *ConnectionRegistry) Lookup(ctx context.Context, id domain.ConnectionID) (*domain.Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, exists := r.connections[id]
	if !exists {
		return nil, domain.ErrConnectionNotFound
	}

	// Copy so callers never alias registry-owned state.
	c := *conn
	return &c, nil
}

func (r *ConnectionRegistry) Remove(ctx context.Context, id domain.ConnectionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.connections, id)
	return nil
}

func (r *ConnectionRegistry) Count(ctx context.Context) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.connections)
}
