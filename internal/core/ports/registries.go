package ports

import (
	"context"

	"medrelay/internal/core/domain"
)

// ConnectionRegistry maps each live connection to its most recently
// asserted identity and room assignment.
type ConnectionRegistry interface {
	// Register creates an entry with the guest sentinel identity.
	Register(ctx context.Context, id domain.ConnectionID) error
	// Authenticate stores or overwrites the identity fields. It never
	// rejects; an unregistered connection is registered on the fly.
	Authenticate(ctx context.Context, id domain.ConnectionID, identity domain.Identity) error
	// RecordRoom associates the connection with a room.
	RecordRoom(ctx context.Context, id domain.ConnectionID, roomID domain.RoomID) error
	// ClearRoom drops the connection's room assignment.
	ClearRoom(ctx context.Context, id domain.ConnectionID) error
	Lookup(ctx context.Context, id domain.ConnectionID) (*domain.Connection, error)
	Remove(ctx context.Context, id domain.ConnectionID) error
	Count(ctx context.Context) int
}

// RoomDirectory tracks, per room id, the set of currently joined
// connections. A room exists iff it has at least one member; empty
// rooms are reclaimed on removal of the last member.
type RoomDirectory interface {
	Join(ctx context.Context, roomID domain.RoomID, member domain.Member) (*domain.JoinResult, error)
	// Leave removes the connection if present. Leaving a room one is
	// not a member of, or an unknown room, is a no-op, not an error.
	Leave(ctx context.Context, roomID domain.RoomID, id domain.ConnectionID) (*domain.LeaveResult, error)
	Members(ctx context.Context, roomID domain.RoomID) ([]domain.Member, error)
	Exists(ctx context.Context, roomID domain.RoomID) bool
	Snapshot(ctx context.Context, roomID domain.RoomID) (*domain.RoomInfo, []domain.Member, error)
	List(ctx context.Context) []domain.RoomInfo
	Count(ctx context.Context) int
}
