package ports

import (
	"context"
	"encoding/json"

	"medrelay/internal/core/domain"
)

// Sender delivers an outbound message to a single connection. Delivery
// is best effort and fire-and-forget; there is no acknowledgment.
type Sender interface {
	Send(id domain.ConnectionID, message interface{}) error
	IsConnected(id domain.ConnectionID) bool
}

// PresencePublisher mirrors room membership to an external store so
// the platform's CRUD layer can observe live consultation presence.
// The mirror is advisory: failures must never affect the signaling
// path, and the in-memory directory stays authoritative.
type PresencePublisher interface {
	MemberJoined(ctx context.Context, roomID domain.RoomID, id domain.ConnectionID, identity domain.Identity) error
	MemberLeft(ctx context.Context, roomID domain.RoomID, id domain.ConnectionID) error
	RoomDestroyed(ctx context.Context, roomID domain.RoomID) error
}

// MetricsRecorder receives relay lifecycle and traffic events.
type MetricsRecorder interface {
	ConnectionOpened()
	ConnectionClosed()
	RoomCreated()
	RoomDestroyed()
	MemberJoined()
	MemberLeft()
	MessageRelayed(messageType string, fanout int)
	ErrorReported(code string)
}

// RelayService drives the join/leave protocol and message fan-out on
// top of the registry, directory and sender.
type RelayService interface {
	Connect(ctx context.Context, id domain.ConnectionID) error
	Authenticate(ctx context.Context, id domain.ConnectionID, identity domain.Identity) error
	// Join adds the connection to a room, asserting identity fields
	// carried in the join message. A zero identity keeps whatever the
	// registry already holds.
	Join(ctx context.Context, id domain.ConnectionID, roomID domain.RoomID, identity domain.Identity) error
	Leave(ctx context.Context, id domain.ConnectionID, roomID domain.RoomID) error
	Disconnect(ctx context.Context, id domain.ConnectionID) error

	RelayToTarget(ctx context.Context, messageType domain.MessageType, sender domain.ConnectionID, roomID domain.RoomID, target domain.ConnectionID, payload json.RawMessage) error
	BroadcastChat(ctx context.Context, sender domain.ConnectionID, roomID domain.RoomID, payload json.RawMessage, encrypted bool, timestamp int64) error
	BroadcastMediaState(ctx context.Context, sender domain.ConnectionID, roomID domain.RoomID, audioEnabled, videoEnabled bool) error
	BroadcastScreenShare(ctx context.Context, messageType domain.MessageType, sender domain.ConnectionID, roomID domain.RoomID) error
}
