package domain

import (
	"encoding/json"
	"time"

	"github.com/pion/webrtc/v3"
)

// MessageType identifies a message in the signaling vocabulary.
type MessageType string

const (
	// client -> server
	MsgAuthenticate     MessageType = "authenticate"
	MsgJoinRoom         MessageType = "join-room"
	MsgLeaveRoom        MessageType = "leave-room"
	MsgOffer            MessageType = "offer"
	MsgAnswer           MessageType = "answer"
	MsgICECandidate     MessageType = "ice-candidate"
	MsgChatMessage      MessageType = "chat-message"
	MsgMediaStateChange MessageType = "media-state-change"
	MsgScreenShareStart MessageType = "screen-share-start"
	MsgScreenShareStop  MessageType = "screen-share-stop"

	// server -> client
	MsgAuthenticated MessageType = "authenticated"
	MsgRoomJoined    MessageType = "room-joined"
	MsgUserJoined    MessageType = "user-joined"
	MsgUserLeft      MessageType = "user-left"
	MsgError         MessageType = "error"
)

// Participant is the identity of a room member as exposed to clients.
type Participant struct {
	ConnectionID ConnectionID `json:"connectionId"`
	UserID       string       `json:"userId"`
	UserName     string       `json:"userName"`
	Role         Role         `json:"role"`
}

// ParticipantFromMember flattens a member record for the wire.
func ParticipantFromMember(m Member) Participant {
	return Participant{
		ConnectionID: m.ConnectionID,
		UserID:       m.Identity.UserID,
		UserName:     m.Identity.UserName,
		Role:         m.Identity.Role,
	}
}

// AuthenticatedEvent acknowledges an authenticate message.
type AuthenticatedEvent struct {
	Type         MessageType  `json:"type"`
	ConnectionID ConnectionID `json:"connectionId"`
	UserID       string       `json:"userId"`
	UserName     string       `json:"userName"`
	Role         Role         `json:"role"`
}

// RoomJoinedEvent is the reply to a successful join. Participants
// lists the other current members so the joiner can initiate a peer
// connection to each of them.
type RoomJoinedEvent struct {
	Type         MessageType             `json:"type"`
	RoomID       RoomID                  `json:"roomId"`
	CreatedAt    time.Time               `json:"createdAt"`
	Participants []Participant           `json:"participants"`
	Encryption   EncryptionAdvertisement `json:"encryption"`
	ICEServers   []webrtc.ICEServer      `json:"iceServers,omitempty"`
}

// UserJoinedEvent announces a new member to the rest of the room.
type UserJoinedEvent struct {
	Type         MessageType  `json:"type"`
	RoomID       RoomID       `json:"roomId"`
	ConnectionID ConnectionID `json:"connectionId"`
	UserID       string       `json:"userId"`
	UserName     string       `json:"userName"`
	Role         Role         `json:"role"`
}

// UserLeftEvent announces a departed member to the rest of the room.
type UserLeftEvent struct {
	Type         MessageType  `json:"type"`
	RoomID       RoomID       `json:"roomId"`
	ConnectionID ConnectionID `json:"connectionId"`
	UserID       string       `json:"userId"`
	UserName     string       `json:"userName"`
	Role         Role         `json:"role"`
}

// SignalRelayEvent carries a relayed offer, answer or ICE candidate.
// The payload is forwarded verbatim; the sender's connection id is set
// by the relay, never taken from the payload.
type SignalRelayEvent struct {
	Type               MessageType     `json:"type"`
	SenderConnectionID ConnectionID    `json:"senderConnectionId"`
	RoomID             RoomID          `json:"roomId"`
	Payload            json.RawMessage `json:"payload"`
}

// ChatEvent is a chat message fanned out to every room member,
// including the sender. The payload is opaque and may be ciphertext;
// the Encrypted flag and Timestamp are relayed as received.
type ChatEvent struct {
	Type               MessageType     `json:"type"`
	SenderConnectionID ConnectionID    `json:"senderConnectionId"`
	RoomID             RoomID          `json:"roomId"`
	UserID             string          `json:"userId"`
	UserName           string          `json:"userName"`
	Payload            json.RawMessage `json:"payload"`
	Encrypted          bool            `json:"encrypted"`
	Timestamp          int64           `json:"timestamp"`
}

// MediaStateEvent announces a member's audio/video mute state.
type MediaStateEvent struct {
	Type               MessageType  `json:"type"`
	SenderConnectionID ConnectionID `json:"senderConnectionId"`
	RoomID             RoomID       `json:"roomId"`
	UserID             string       `json:"userId"`
	AudioEnabled       bool         `json:"audioEnabled"`
	VideoEnabled       bool         `json:"videoEnabled"`
}

// ScreenShareEvent announces screen share start or stop.
type ScreenShareEvent struct {
	Type               MessageType  `json:"type"`
	SenderConnectionID ConnectionID `json:"senderConnectionId"`
	RoomID             RoomID       `json:"roomId"`
	UserID             string       `json:"userId"`
}

// ErrorEvent is sent to the offending sender only. Errors are local
// to the message being processed and never close the connection.
type ErrorEvent struct {
	Type    MessageType `json:"type"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
}
