package http

import (
	"net/http"

	"medrelay/internal/core/domain"
	"medrelay/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v3"
)

// RoomsHandler exposes a read-only view of live signaling state for
// the platform's backoffice. It never mutates relay state: rooms are
// created and destroyed only by the join/leave protocol.
type RoomsHandler struct {
	directory  ports.RoomDirectory
	registry   ports.ConnectionRegistry
	iceServers []webrtc.ICEServer
}

func NewRoomsHandler(directory ports.RoomDirectory, registry ports.ConnectionRegistry, iceServers []webrtc.ICEServer) *RoomsHandler {
	return &RoomsHandler{
		directory:  directory,
		registry:   registry,
		iceServers: iceServers,
	}
}

func (h *RoomsHandler) ListRooms(c *gin.Context) {
	rooms := h.directory.List(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"rooms":       rooms,
		"connections": h.registry.Count(c.Request.Context()),
	})
}

func (h *RoomsHandler) GetRoom(c *gin.Context) {
	roomID := domain.RoomID(c.Param("id"))

	info, members, err := h.directory.Snapshot(c.Request.Context(), roomID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}

	participants := make([]domain.Participant, 0, len(members))
	for _, m := range members {
		participants = append(participants, domain.ParticipantFromMember(m))
	}

	c.JSON(http.StatusOK, gin.H{
		"room":         info,
		"participants": participants,
	})
}

// GetICEServers hands out the STUN/TURN configuration clients should
// use when building their peer connections.
func (h *RoomsHandler) GetICEServers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"iceServers": h.iceServers,
	})
}
