package signal

import (
	"encoding/json"

	"medrelay/internal/core/domain"
)

// Envelope is the inbound wire frame. RoomID and TargetConnectionID
// sit on the envelope; type-specific fields travel in Payload.
type Envelope struct {
	Type               domain.MessageType  `json:"type"`
	RoomID             domain.RoomID       `json:"roomId,omitempty"`
	TargetConnectionID domain.ConnectionID `json:"targetConnectionId,omitempty"`
	Payload            json.RawMessage     `json:"payload,omitempty"`
}

// AuthenticatePayload carries the client-asserted identity. The relay
// trusts it as-is; token verification happens in the platform's HTTP
// auth layer before the client ever connects here.
type AuthenticatePayload struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Role     string `json:"role"`
}

// JoinRoomPayload optionally re-asserts identity at join time.
type JoinRoomPayload struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Role     string `json:"role"`
}

// ChatPayload wraps an opaque, possibly end-to-end encrypted message.
type ChatPayload struct {
	Message   json.RawMessage `json:"message"`
	Encrypted bool            `json:"encrypted"`
	Timestamp int64           `json:"timestamp"`
}

// MediaStatePayload announces the sender's mute state.
type MediaStatePayload struct {
	AudioEnabled bool `json:"audioEnabled"`
	VideoEnabled bool `json:"videoEnabled"`
}
