package presence

import (
	"context"
	"fmt"
	"time"

	"medrelay/internal/core/domain"
	"medrelay/internal/core/ports"
	"medrelay/pkg/circuitbreaker"
	"medrelay/pkg/retry"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisPublisher mirrors room membership into Redis sets so the
// platform's appointment/CRUD services can see who is currently in a
// consultation without talking to the relay. The mirror is advisory:
// the in-memory directory stays authoritative and every key carries a
// TTL as a backstop against missed cleanup. A circuit breaker stops
// the relay from paying connection timeouts on every membership change
// while Redis is down.
type RedisPublisher struct {
	client   *redis.Client
	ttl      time.Duration
	retryCfg retry.Config
	breaker  *circuitbreaker.CircuitBreaker
	logger   *zap.SugaredLogger
}

type RedisOptions struct {
	Address  string
	Password string
	DB       int
	PoolSize int
	TTL      time.Duration
}

func NewRedisPublisher(ctx context.Context, opts RedisOptions, logger *zap.SugaredLogger) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Address,
		Password: opts.Password,
		DB:       opts.DB,
		PoolSize: opts.PoolSize,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	cfg := retry.DefaultConfig()
	cfg.MaxAttempts = 2
	cfg.MaxDelay = time.Second

	breaker := circuitbreaker.New(circuitbreaker.DefaultConfig())
	breaker.OnStateChange(func(from, to circuitbreaker.State) {
		logger.Warnw("presence mirror circuit state changed", "from", from.String(), "to", to.String())
	})

	return &RedisPublisher{
		client:   client,
		ttl:      opts.TTL,
		retryCfg: cfg,
		breaker:  breaker,
		logger:   logger,
	}, nil
}

func membersKey(roomID domain.RoomID) string {
	return "presence:room:" + string(roomID) + ":members"
}

func (p *RedisPublisher) MemberJoined(ctx context.Context, roomID domain.RoomID, id domain.ConnectionID, identity domain.Identity) error {
	key := membersKey(roomID)
	return p.publish(ctx, func() error {
		pipe := p.client.TxPipeline()
		pipe.SAdd(ctx, key, string(id))
		pipe.Expire(ctx, key, p.ttl)
		_, err := pipe.Exec(ctx)
		return err
	})
}

func (p *RedisPublisher) MemberLeft(ctx context.Context, roomID domain.RoomID, id domain.ConnectionID) error {
	return p.publish(ctx, func() error {
		return p.client.SRem(ctx, membersKey(roomID), string(id)).Err()
	})
}

func (p *RedisPublisher) RoomDestroyed(ctx context.Context, roomID domain.RoomID) error {
	return p.publish(ctx, func() error {
		return p.client.Del(ctx, membersKey(roomID)).Err()
	})
}

// publish runs one mirror update through the breaker, retrying
// transient failures while the circuit is closed.
func (p *RedisPublisher) publish(ctx context.Context, fn func() error) error {
	return p.breaker.Execute(ctx, func() error {
		return retry.Retry(ctx, p.retryCfg, fn)
	})
}

// HealthCheck pings Redis; used by the readiness endpoint.
func (p *RedisPublisher) HealthCheck(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

var _ ports.PresencePublisher = (*RedisPublisher)(nil)
