package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"medrelay/internal/core/domain"
	"medrelay/internal/infrastructure/registry/memory"

	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandlerFixture(t *testing.T) (*gin.Engine, *RoomsHandler) {
	t.Helper()

	directory := memory.NewRoomDirectory(domain.EncryptionAdvertisement{
		Algorithm:   "AES-256-GCM",
		KeyExchange: "ECDH-P256",
	})
	registry := memory.NewConnectionRegistry()

	ctx := context.Background()
	require.NoError(t, registry.Register(ctx, "c1"))
	require.NoError(t, registry.Authenticate(ctx, "c2", domain.Identity{
		UserID:   "u2",
		UserName: "Dr. B",
		Role:     domain.RoleDoctor,
	}))

	base := time.Now()
	_, err := directory.Join(ctx, "room-42", domain.Member{
		ConnectionID: "c1",
		Identity:     domain.GuestIdentity(),
		JoinedAt:     base,
	})
	require.NoError(t, err)
	_, err = directory.Join(ctx, "room-42", domain.Member{
		ConnectionID: "c2",
		Identity:     domain.Identity{UserID: "u2", UserName: "Dr. B", Role: domain.RoleDoctor},
		JoinedAt:     base.Add(time.Second),
	})
	require.NoError(t, err)

	handler := NewRoomsHandler(directory, registry, []webrtc.ICEServer{
		{URLs: []string{"stun:stun.example.org:3478"}},
	})

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/rooms", handler.ListRooms)
	router.GET("/rooms/:id", handler.GetRoom)
	router.GET("/ice", handler.GetICEServers)
	return router, handler
}

func TestRoomsHandler_ListRooms(t *testing.T) {
	router, _ := newHandlerFixture(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/rooms", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Rooms       []domain.RoomInfo `json:"rooms"`
		Connections int               `json:"connections"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Rooms, 1)
	assert.Equal(t, domain.RoomID("room-42"), body.Rooms[0].ID)
	assert.Equal(t, 2, body.Rooms[0].MemberCount)
	assert.Equal(t, 2, body.Connections)
}

func TestRoomsHandler_GetRoom(t *testing.T) {
	router, _ := newHandlerFixture(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/rooms/room-42", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Room         domain.RoomInfo      `json:"room"`
		Participants []domain.Participant `json:"participants"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, domain.RoomID("room-42"), body.Room.ID)
	require.Len(t, body.Participants, 2)
	// Ordered by join time.
	assert.Equal(t, domain.ConnectionID("c1"), body.Participants[0].ConnectionID)
	assert.Equal(t, domain.ConnectionID("c2"), body.Participants[1].ConnectionID)
	assert.Equal(t, domain.RoleDoctor, body.Participants[1].Role)
}

func TestRoomsHandler_GetRoomNotFound(t *testing.T) {
	router, _ := newHandlerFixture(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/rooms/no-such-room", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRoomsHandler_GetICEServers(t *testing.T) {
	router, _ := newHandlerFixture(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ice", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		ICEServers []webrtc.ICEServer `json:"iceServers"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.ICEServers, 1)
	assert.Equal(t, []string{"stun:stun.example.org:3478"}, body.ICEServers[0].URLs)
}
