package signal

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"medrelay/internal/core/domain"
	"medrelay/internal/core/ports"
	apperrors "medrelay/pkg/errors"
	"medrelay/pkg/logger"
	"medrelay/pkg/tracing"
	"medrelay/pkg/validation"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Options configures the WebSocket server.
type Options struct {
	PingInterval   time.Duration
	PongTimeout    time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxMessageSize int64
	SendBufferSize int
	AllowedOrigins []string

	// Per-connection inbound message rate limiting; zero disables it.
	MessagesPerSecond float64
	MessageBurst      int
}

// Server upgrades HTTP requests to WebSocket connections and routes
// inbound signaling messages into the relay service.
type Server struct {
	hub      *Hub
	relay    ports.RelayService
	opts     Options
	upgrader websocket.Upgrader

	logger *zap.SugaredLogger
	ctxlog *logger.ContextLogger
}

func NewServer(hub *Hub, relay ports.RelayService, opts Options, log *zap.SugaredLogger) *Server {
	s := &Server{
		hub:    hub,
		relay:  relay,
		opts:   opts,
		logger: log,
		ctxlog: logger.NewContextLogger(log.Desugar()),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.opts.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// HandleSignaling is the Gin handler for GET /ws.
func (s *Server) HandleSignaling(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Errorw("websocket upgrade failed", "error", err)
		return
	}

	id := domain.ConnectionID(uuid.New().String())

	var limiter *rate.Limiter
	if s.opts.MessagesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.opts.MessagesPerSecond), s.opts.MessageBurst)
	}

	client := newClient(id, conn, s.opts.SendBufferSize, limiter)
	s.hub.register(client)

	if err := s.relay.Connect(context.Background(), id); err != nil {
		s.logger.Errorw("failed to register connection", "connection_id", id, "error", err)
		s.hub.unregister(client)
		client.close()
		return
	}

	s.logger.Infow("client connected", "connection_id", id, "remote_addr", c.Request.RemoteAddr)

	go client.writePump(s.opts.PingInterval, s.opts.WriteTimeout)
	s.readPump(client)

	// Cleanup on transport loss or close: unregister first so no new
	// messages are enqueued, then run the disconnect protocol.
	s.hub.unregister(client)
	client.close()
	if err := s.relay.Disconnect(context.Background(), id); err != nil {
		s.logger.Errorw("disconnect cleanup failed", "connection_id", id, "error", err)
	}
	s.logger.Infow("client disconnected", "connection_id", id)
}

func (s *Server) readPump(client *Client) {
	client.conn.SetReadLimit(s.opts.MaxMessageSize)
	client.conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))
		return nil
	})

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.Infow("read error", "connection_id", client.ID, "error", err)
			}
			return
		}
		client.conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))

		if client.limiter != nil && !client.limiter.Allow() {
			s.sendError(client.ID, apperrors.NewRateLimitError())
			continue
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			s.sendError(client.ID, apperrors.NewMalformedMessageError("invalid JSON envelope"))
			continue
		}

		ctx := context.WithValue(context.Background(), logger.ContextKeyConnectionID, string(client.ID))
		if env.RoomID != "" {
			ctx = context.WithValue(ctx, logger.ContextKeyRoomID, string(env.RoomID))
		}

		ctx, span := tracing.TraceSignalMessage(ctx, string(env.Type), string(client.ID))
		err = s.handleMessage(ctx, client.ID, env)
		span.End()
		if err != nil {
			s.ctxlog.LogWarn(ctx, "error handling message",
				zap.String("message_type", string(env.Type)),
				zap.Error(err),
			)
			s.sendError(client.ID, err)
		}
	}
}

func (s *Server) handleMessage(ctx context.Context, id domain.ConnectionID, env Envelope) error {
	if env.Type == "" {
		return apperrors.NewMalformedMessageError("message type is required")
	}

	switch env.Type {
	case domain.MsgAuthenticate:
		return s.handleAuthenticate(ctx, id, env)
	case domain.MsgJoinRoom:
		return s.handleJoinRoom(ctx, id, env)
	case domain.MsgLeaveRoom:
		if err := validation.ValidateRoomID(string(env.RoomID)); err != nil {
			return apperrors.NewMalformedMessageError(err.Error())
		}
		return s.relay.Leave(ctx, id, env.RoomID)
	case domain.MsgOffer, domain.MsgAnswer, domain.MsgICECandidate:
		return s.handleRelay(ctx, id, env)
	case domain.MsgChatMessage:
		return s.handleChat(ctx, id, env)
	case domain.MsgMediaStateChange:
		return s.handleMediaState(ctx, id, env)
	case domain.MsgScreenShareStart, domain.MsgScreenShareStop:
		if err := validation.ValidateRoomID(string(env.RoomID)); err != nil {
			return apperrors.NewMalformedMessageError(err.Error())
		}
		return s.relay.BroadcastScreenShare(ctx, env.Type, id, env.RoomID)
	default:
		return apperrors.NewMalformedMessageError("unknown message type: " + string(env.Type))
	}
}

func (s *Server) handleAuthenticate(ctx context.Context, id domain.ConnectionID, env Envelope) error {
	var payload AuthenticatePayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return apperrors.NewMalformedMessageError("invalid authenticate payload")
	}

	return s.relay.Authenticate(ctx, id, domain.Identity{
		UserID:   payload.UserID,
		UserName: payload.UserName,
		Role:     domain.NormalizeRole(payload.Role),
	})
}

func (s *Server) handleJoinRoom(ctx context.Context, id domain.ConnectionID, env Envelope) error {
	if err := validation.ValidateRoomID(string(env.RoomID)); err != nil {
		return apperrors.NewMalformedMessageError(err.Error())
	}

	var identity domain.Identity
	if len(env.Payload) > 0 {
		var payload JoinRoomPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return apperrors.NewMalformedMessageError("invalid join-room payload")
		}
		if payload.UserID != "" || payload.UserName != "" || payload.Role != "" {
			identity = domain.Identity{
				UserID:   payload.UserID,
				UserName: payload.UserName,
				Role:     domain.NormalizeRole(payload.Role),
			}
		}
	}

	return s.relay.Join(ctx, id, env.RoomID, identity)
}

func (s *Server) handleRelay(ctx context.Context, id domain.ConnectionID, env Envelope) error {
	if err := validation.ValidateRoomID(string(env.RoomID)); err != nil {
		return apperrors.NewMalformedMessageError(err.Error())
	}
	if err := validation.ValidateConnectionID(string(env.TargetConnectionID)); err != nil {
		return apperrors.NewMalformedMessageError("targetConnectionId: " + err.Error())
	}

	return s.relay.RelayToTarget(ctx, env.Type, id, env.RoomID, env.TargetConnectionID, env.Payload)
}

func (s *Server) handleChat(ctx context.Context, id domain.ConnectionID, env Envelope) error {
	if err := validation.ValidateRoomID(string(env.RoomID)); err != nil {
		return apperrors.NewMalformedMessageError(err.Error())
	}

	var payload ChatPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return apperrors.NewMalformedMessageError("invalid chat-message payload")
	}
	if len(payload.Message) == 0 {
		return apperrors.NewMalformedMessageError("message is required")
	}

	return s.relay.BroadcastChat(ctx, id, env.RoomID, payload.Message, payload.Encrypted, payload.Timestamp)
}

func (s *Server) handleMediaState(ctx context.Context, id domain.ConnectionID, env Envelope) error {
	if err := validation.ValidateRoomID(string(env.RoomID)); err != nil {
		return apperrors.NewMalformedMessageError(err.Error())
	}

	var payload MediaStatePayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return apperrors.NewMalformedMessageError("invalid media-state-change payload")
	}

	return s.relay.BroadcastMediaState(ctx, id, env.RoomID, payload.AudioEnabled, payload.VideoEnabled)
}

func (s *Server) sendError(id domain.ConnectionID, err error) {
	event := domain.ErrorEvent{
		Type:    domain.MsgError,
		Code:    string(apperrors.ErrCodeInternal),
		Message: "internal error",
	}
	if appErr := apperrors.GetAppError(err); appErr != nil {
		event.Code = string(appErr.Code)
		event.Message = appErr.Message
	}

	if sendErr := s.hub.Send(id, event); sendErr != nil {
		s.logger.Debugw("error reply not delivered", "connection_id", id, "error", sendErr)
	}
}
