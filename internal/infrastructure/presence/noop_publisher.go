package presence

import (
	"context"

	"medrelay/internal/core/domain"
	"medrelay/internal/core/ports"
)

// NoopPublisher is used when the Redis mirror is disabled.
type NoopPublisher struct{}

func NewNoopPublisher() ports.PresencePublisher {
	return NoopPublisher{}
}

func (NoopPublisher) MemberJoined(ctx context.Context, roomID domain.RoomID, id domain.ConnectionID, identity domain.Identity) error {
	return nil
}

func (NoopPublisher) MemberLeft(ctx context.Context, roomID domain.RoomID, id domain.ConnectionID) error {
	return nil
}

func (NoopPublisher) RoomDestroyed(ctx context.Context, roomID domain.RoomID) error {
	return nil
}
