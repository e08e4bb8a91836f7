package services

import (
	"context"
	"encoding/json"
	"time"

	"medrelay/internal/core/domain"
	"medrelay/internal/core/ports"
	apperrors "medrelay/pkg/errors"
	"medrelay/pkg/tracing"

	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"
)

// relayService implements ports.RelayService. Membership mutations and
// their notifications run under a per-room lock so every member
// observes join/leave events in an order consistent with the actual
// membership changes; per-connection locks serialize the lifecycle of
// a single connection (a leave racing a disconnect, a join racing an
// authenticate). Unrelated rooms and connections proceed concurrently.
type relayService struct {
	registry  ports.ConnectionRegistry
	directory ports.RoomDirectory
	sender    ports.Sender
	presence  ports.PresencePublisher
	metrics   ports.MetricsRecorder

	iceServers []webrtc.ICEServer

	roomLocks lockShards
	connLocks lockShards

	logger *zap.SugaredLogger
}

func NewRelayService(
	registry ports.ConnectionRegistry,
	directory ports.RoomDirectory,
	sender ports.Sender,
	presence ports.PresencePublisher,
	metrics ports.MetricsRecorder,
	iceServers []webrtc.ICEServer,
	logger *zap.SugaredLogger,
) ports.RelayService {
	return &relayService{
		registry:   registry,
		directory:  directory,
		sender:     sender,
		presence:   presence,
		metrics:    metrics,
		iceServers: iceServers,
		logger:     logger,
	}
}

func (s *relayService) Connect(ctx context.Context, id domain.ConnectionID) error {
	if err := s.registry.Register(ctx, id); err != nil {
		return err
	}
	s.metrics.ConnectionOpened()
	s.logger.Infow("connection registered", "connection_id", id)
	return nil
}

func (s *relayService) Authenticate(ctx context.Context, id domain.ConnectionID, identity domain.Identity) error {
	unlock := s.connLocks.lock(string(id))
	defer unlock()

	identity.Role = domain.NormalizeRole(string(identity.Role))
	if err := s.registry.Authenticate(ctx, id, identity); err != nil {
		return err
	}

	s.logger.Infow("connection authenticated",
		"connection_id", id,
		"user_id", identity.UserID,
		"role", identity.Role,
	)

	s.send(id, domain.AuthenticatedEvent{
		Type:         domain.MsgAuthenticated,
		ConnectionID: id,
		UserID:       identity.UserID,
		UserName:     identity.UserName,
		Role:         identity.Role,
	})
	return nil
}

func (s *relayService) Join(ctx context.Context, id domain.ConnectionID, roomID domain.RoomID, identity domain.Identity) error {
	ctx, span := tracing.TraceRoomOperation(ctx, "join", string(roomID))
	defer span.End()

	unlockConn := s.connLocks.lock(string(id))
	defer unlockConn()

	if identity != (domain.Identity{}) {
		identity.Role = domain.NormalizeRole(string(identity.Role))
		if err := s.registry.Authenticate(ctx, id, identity); err != nil {
			return err
		}
	}

	conn, err := s.registry.Lookup(ctx, id)
	if err != nil {
		// Transport never registered the connection; tolerate it.
		if err := s.registry.Authenticate(ctx, id, domain.GuestIdentity()); err != nil {
			return err
		}
		if conn, err = s.registry.Lookup(ctx, id); err != nil {
			return err
		}
	}

	previous := conn.RoomID
	var unlockRooms func()
	if previous != "" && previous != roomID {
		unlockRooms = s.roomLocks.lockPair(string(previous), string(roomID))
	} else {
		unlockRooms = s.roomLocks.lock(string(roomID))
	}
	defer unlockRooms()

	// A connection holds at most one active room: joining a new room
	// leaves the previous one first, so no stale membership can leak
	// notifications across rooms.
	if previous != "" && previous != roomID {
		s.removeFromRoom(ctx, previous, conn.ID, conn.Identity)
	}

	member := domain.Member{
		ConnectionID: id,
		Identity:     conn.Identity,
		JoinedAt:     time.Now(),
	}
	result, err := s.directory.Join(ctx, roomID, member)
	if err != nil {
		tracing.RecordError(ctx, err)
		return err
	}
	if err := s.registry.RecordRoom(ctx, id, roomID); err != nil {
		return err
	}

	if result.Created {
		s.metrics.RoomCreated()
		s.logger.Infow("room created", "room_id", roomID)
	}

	if !result.Rejoined {
		s.metrics.MemberJoined()
		announcement := domain.UserJoinedEvent{
			Type:         domain.MsgUserJoined,
			RoomID:       roomID,
			ConnectionID: id,
			UserID:       conn.Identity.UserID,
			UserName:     conn.Identity.UserName,
			Role:         conn.Identity.Role,
		}
		for _, other := range result.Others {
			s.send(other.ConnectionID, announcement)
		}
		if err := s.presence.MemberJoined(ctx, roomID, id, conn.Identity); err != nil {
			s.logger.Warnw("presence mirror update failed", "room_id", roomID, "error", err)
		}
	}

	participants := make([]domain.Participant, 0, len(result.Others))
	for _, other := range result.Others {
		participants = append(participants, domain.ParticipantFromMember(other))
	}
	s.send(id, domain.RoomJoinedEvent{
		Type:         domain.MsgRoomJoined,
		RoomID:       roomID,
		CreatedAt:    result.Room.CreatedAt,
		Participants: participants,
		Encryption:   result.Encryption,
		ICEServers:   s.iceServers,
	})

	s.logger.Infow("connection joined room",
		"connection_id", id,
		"room_id", roomID,
		"members", result.Room.MemberCount,
		"rejoined", result.Rejoined,
	)
	return nil
}

func (s *relayService) Leave(ctx context.Context, id domain.ConnectionID, roomID domain.RoomID) error {
	ctx, span := tracing.TraceRoomOperation(ctx, "leave", string(roomID))
	defer span.End()

	unlockConn := s.connLocks.lock(string(id))
	defer unlockConn()

	identity := domain.GuestIdentity()
	conn, err := s.registry.Lookup(ctx, id)
	if err == nil {
		identity = conn.Identity
	}

	unlockRoom := s.roomLocks.lock(string(roomID))
	defer unlockRoom()

	s.removeFromRoom(ctx, roomID, id, identity)

	if conn != nil && conn.RoomID == roomID {
		if err := s.registry.ClearRoom(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *relayService) Disconnect(ctx context.Context, id domain.ConnectionID) error {
	unlockConn := s.connLocks.lock(string(id))
	defer unlockConn()

	conn, err := s.registry.Lookup(ctx, id)
	if err != nil {
		// Never registered, or a concurrent disconnect already ran.
		return nil
	}

	if conn.RoomID != "" {
		unlockRoom := s.roomLocks.lock(string(conn.RoomID))
		s.removeFromRoom(ctx, conn.RoomID, id, conn.Identity)
		unlockRoom()
	}

	if err := s.registry.Remove(ctx, id); err != nil {
		return err
	}
	s.metrics.ConnectionClosed()
	s.logger.Infow("connection removed", "connection_id", id, "room_id", conn.RoomID)
	return nil
}

// removeFromRoom drops the connection from the room's member set and
// notifies the remaining members. A no-op when the room is unknown or
// the connection is not a member. Callers hold the room lock.
func (s *relayService) removeFromRoom(ctx context.Context, roomID domain.RoomID, id domain.ConnectionID, identity domain.Identity) {
	result, err := s.directory.Leave(ctx, roomID, id)
	if err != nil || !result.Removed {
		return
	}

	s.metrics.MemberLeft()

	announcement := domain.UserLeftEvent{
		Type:         domain.MsgUserLeft,
		RoomID:       roomID,
		ConnectionID: id,
		UserID:       identity.UserID,
		UserName:     identity.UserName,
		Role:         identity.Role,
	}
	for _, remaining := range result.Remaining {
		s.send(remaining.ConnectionID, announcement)
	}

	if err := s.presence.MemberLeft(ctx, roomID, id); err != nil {
		s.logger.Warnw("presence mirror update failed", "room_id", roomID, "error", err)
	}

	if result.Destroyed {
		s.metrics.RoomDestroyed()
		if err := s.presence.RoomDestroyed(ctx, roomID); err != nil {
			s.logger.Warnw("presence mirror cleanup failed", "room_id", roomID, "error", err)
		}
		s.logger.Infow("room destroyed", "room_id", roomID)
	}
}

func (s *relayService) RelayToTarget(ctx context.Context, messageType domain.MessageType, sender domain.ConnectionID, roomID domain.RoomID, target domain.ConnectionID, payload json.RawMessage) error {
	if !s.directory.Exists(ctx, roomID) {
		s.metrics.ErrorReported(string(apperrors.ErrCodeRoomNotFound))
		return apperrors.NewRoomNotFoundError(string(roomID))
	}

	// Sender and target membership is intentionally not checked: the
	// relay forwards to the named connection as long as the room is
	// live. See the trust model notes in DESIGN.md.
	if !s.sender.IsConnected(target) {
		s.metrics.ErrorReported(string(apperrors.ErrCodeTargetNotConnected))
		return apperrors.NewTargetNotConnectedError(string(target))
	}

	s.send(target, domain.SignalRelayEvent{
		Type:               messageType,
		SenderConnectionID: sender,
		RoomID:             roomID,
		Payload:            payload,
	})
	s.metrics.MessageRelayed(string(messageType), 1)
	return nil
}

func (s *relayService) BroadcastChat(ctx context.Context, sender domain.ConnectionID, roomID domain.RoomID, payload json.RawMessage, encrypted bool, timestamp int64) error {
	identity := domain.GuestIdentity()
	if conn, err := s.registry.Lookup(ctx, sender); err == nil {
		identity = conn.Identity
	}

	unlockRoom := s.roomLocks.lock(string(roomID))
	defer unlockRoom()

	members, err := s.directory.Members(ctx, roomID)
	if err != nil {
		s.metrics.ErrorReported(string(apperrors.ErrCodeRoomNotFound))
		return apperrors.NewRoomNotFoundError(string(roomID))
	}

	event := domain.ChatEvent{
		Type:               domain.MsgChatMessage,
		SenderConnectionID: sender,
		RoomID:             roomID,
		UserID:             identity.UserID,
		UserName:           identity.UserName,
		Payload:            payload,
		Encrypted:          encrypted,
		Timestamp:          timestamp,
	}

	// Chat goes to every member including the sender, so all clients
	// render messages through one code path.
	for _, member := range members {
		s.send(member.ConnectionID, event)
	}
	s.metrics.MessageRelayed(string(domain.MsgChatMessage), len(members))
	return nil
}

func (s *relayService) BroadcastMediaState(ctx context.Context, sender domain.ConnectionID, roomID domain.RoomID, audioEnabled, videoEnabled bool) error {
	identity := domain.GuestIdentity()
	if conn, err := s.registry.Lookup(ctx, sender); err == nil {
		identity = conn.Identity
	}

	event := domain.MediaStateEvent{
		Type:               domain.MsgMediaStateChange,
		SenderConnectionID: sender,
		RoomID:             roomID,
		UserID:             identity.UserID,
		AudioEnabled:       audioEnabled,
		VideoEnabled:       videoEnabled,
	}
	return s.broadcastToOthers(ctx, domain.MsgMediaStateChange, sender, roomID, event)
}

func (s *relayService) BroadcastScreenShare(ctx context.Context, messageType domain.MessageType, sender domain.ConnectionID, roomID domain.RoomID) error {
	identity := domain.GuestIdentity()
	if conn, err := s.registry.Lookup(ctx, sender); err == nil {
		identity = conn.Identity
	}

	event := domain.ScreenShareEvent{
		Type:               messageType,
		SenderConnectionID: sender,
		RoomID:             roomID,
		UserID:             identity.UserID,
	}
	return s.broadcastToOthers(ctx, messageType, sender, roomID, event)
}

func (s *relayService) broadcastToOthers(ctx context.Context, messageType domain.MessageType, sender domain.ConnectionID, roomID domain.RoomID, event interface{}) error {
	unlockRoom := s.roomLocks.lock(string(roomID))
	defer unlockRoom()

	members, err := s.directory.Members(ctx, roomID)
	if err != nil {
		s.metrics.ErrorReported(string(apperrors.ErrCodeRoomNotFound))
		return apperrors.NewRoomNotFoundError(string(roomID))
	}

	fanout := 0
	for _, member := range members {
		if member.ConnectionID == sender {
			continue
		}
		s.send(member.ConnectionID, event)
		fanout++
	}
	s.metrics.MessageRelayed(string(messageType), fanout)
	return nil
}

// send is fire-and-forget: a slow or vanished recipient never fails
// the operation being processed.
func (s *relayService) send(id domain.ConnectionID, message interface{}) {
	if err := s.sender.Send(id, message); err != nil {
		s.logger.Debugw("message delivery skipped", "connection_id", id, "error", err)
	}
}
