package domain

import "time"

type (
	ConnectionID string
	RoomID       string
)

// Role is the part a participant plays in a consultation. It is
// asserted by the client at authenticate time and not verified here;
// token verification belongs to the platform's HTTP auth layer.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleGuest   Role = "guest"
)

// NormalizeRole maps an asserted role string onto the known set,
// falling back to guest.
func NormalizeRole(s string) Role {
	switch Role(s) {
	case RolePatient, RoleDoctor, RoleGuest:
		return Role(s)
	default:
		return RoleGuest
	}
}

// Identity is the client-asserted identity attached to a connection.
type Identity struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Role     Role   `json:"role"`
}

// GuestIdentity is the sentinel used for connections that never sent
// an authenticate message.
func GuestIdentity() Identity {
	return Identity{
		UserID:   "unknown",
		UserName: "Guest",
		Role:     RoleGuest,
	}
}

// Connection is one live transport session tracked by the registry.
// RoomID is empty until the connection joins a room.
type Connection struct {
	ID          ConnectionID
	Identity    Identity
	RoomID      RoomID
	ConnectedAt time.Time
}
