package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"medreport-backend/internal/reports"
	"medreport-backend/internal/shared/telemetry"
	"medreport-backend/internal/shared/util"
)

// MemoryGuard allows one upload per session within this process.
type MemoryGuard struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{active: make(map[string]struct{})}
}

func (g *MemoryGuard) Acquire(ctx context.Context, sessionID string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.active[sessionID]; busy {
		return nil, reports.ErrUploadInFlight
	}
	g.active[sessionID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.active, sessionID)
			g.mu.Unlock()
		})
	}, nil
}

// releaseScript deletes the lock only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

const redisReleaseTimeout = 2 * time.Second

// RedisGuard allows one upload per session across replicas. The TTL bounds
// how long a crashed holder can block the session.
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisGuard connects to redisURL and verifies it with a ping.
func NewRedisGuard(ctx context.Context, redisURL string, ttl time.Duration) (*RedisGuard, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisGuardWithClient(client, ttl), nil
}

func NewRedisGuardWithClient(client *redis.Client, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisGuard{client: client, ttl: ttl}
}

func (g *RedisGuard) Acquire(ctx context.Context, sessionID string) (func(), error) {
	token, err := newLockToken()
	if err != nil {
		return nil, err
	}
	key := lockKey(sessionID)
	ok, err := g.client.SetNX(ctx, key, token, g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire upload lock: %w", err)
	}
	if !ok {
		return nil, reports.ErrUploadInFlight
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), redisReleaseTimeout)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, g.client, []string{key}, token).Err(); err != nil {
				telemetry.Warn("session.lock_release_failed", map[string]any{
					"session_id": sessionID,
					"error":      err.Error(),
				})
			}
		})
	}, nil
}

// Ping checks the Redis connection.
func (g *RedisGuard) Ping(ctx context.Context) error {
	return g.client.Ping(ctx).Err()
}

func (g *RedisGuard) Close() error {
	return g.client.Close()
}

func lockKey(sessionID string) string {
	return "medreport:upload-lock:" + util.HashKey(sessionID)
}

func newLockToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("lock token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

var (
	_ reports.InFlightGuard = (*MemoryGuard)(nil)
	_ reports.InFlightGuard = (*RedisGuard)(nil)
)
