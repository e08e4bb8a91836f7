package domain

import "time"

// Member is a room's view of a joined connection: an identity snapshot
// plus the join time.
type Member struct {
	ConnectionID ConnectionID `json:"connectionId"`
	Identity     Identity     `json:"identity"`
	JoinedAt     time.Time    `json:"joinedAt"`
}

// EncryptionAdvertisement describes the end-to-end encryption scheme
// advertised to room joiners. Informational only: the relay forwards
// opaque payloads and never enforces or applies encryption itself.
type EncryptionAdvertisement struct {
	Algorithm   string `json:"algorithm"`
	KeyExchange string `json:"keyExchange"`
}

// RoomInfo is a read-only summary of a room for inspection surfaces.
type RoomInfo struct {
	ID          RoomID    `json:"roomId"`
	CreatedAt   time.Time `json:"createdAt"`
	MemberCount int       `json:"memberCount"`
}

// JoinResult is the outcome of inserting a connection into a room.
type JoinResult struct {
	Room       RoomInfo
	Encryption EncryptionAdvertisement
	// Others lists the members present before this join, excluding
	// the joiner itself. This is the snapshot the joiner receives.
	Others []Member
	// Created reports that the join created the room.
	Created bool
	// Rejoined reports that the connection was already a member; the
	// join refreshed its record without re-announcing.
	Rejoined bool
}

// LeaveResult is the outcome of removing a connection from a room.
type LeaveResult struct {
	// Removed reports that the connection was actually a member.
	Removed bool
	// Destroyed reports that the room became empty and was reclaimed.
	Destroyed bool
	// Remaining lists the members left after the removal.
	Remaining []Member
}
