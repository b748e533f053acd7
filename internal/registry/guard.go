package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ReleaseFunc gives a held submit lock back.
type ReleaseFunc func(ctx context.Context) error

// SubmitGuard lets only one submission of a session be in flight at a time.
// Acquire returns ErrLocked when another holder has it.
type SubmitGuard interface {
	Acquire(ctx context.Context, sessionID string) (ReleaseFunc, error)
}

// LocalGuard guards submissions within one process.
type LocalGuard struct {
	mu   sync.Mutex
	held map[string]bool
}

func NewLocalGuard() *LocalGuard {
	return &LocalGuard{held: make(map[string]bool)}
}

func (g *LocalGuard) Acquire(_ context.Context, sessionID string) (ReleaseFunc, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held[sessionID] {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrLocked)
	}
	g.held[sessionID] = true
	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, sessionID)
			g.mu.Unlock()
		})
		return nil
	}, nil
}

// DefaultLockTTL bounds how long a crashed client can block a session.
const DefaultLockTTL = 30 * time.Second

// RedisGuard guards submissions across every client sharing one Redis.
type RedisGuard struct {
	locker *redislock.Client
	ttl    time.Duration
}

func NewRedisGuard(client *redis.Client, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &RedisGuard{locker: redislock.New(client), ttl: ttl}
}

func (g *RedisGuard) Acquire(ctx context.Context, sessionID string) (ReleaseFunc, error) {
	lock, err := g.locker.Obtain(ctx, "storecount:submit:"+sessionID, g.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrLocked)
	}
	if err != nil {
		return nil, fmt.Errorf("obtain submit lock: %w", err)
	}
	return func(ctx context.Context) error {
		err := lock.Release(ctx)
		if err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			return fmt.Errorf("release submit lock: %w", err)
		}
		return nil
	}, nil
}
