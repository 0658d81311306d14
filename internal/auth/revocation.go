package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationStore remembers logged-out session ids until they would have expired anyway.
type RevocationStore interface {
	Revoke(ctx context.Context, sessionID string, until time.Time) error
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}

const revokedKeyPrefix = "pizzeria:session:revoked:"

type redisRevocations struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisRevocationStore stores revoked ids as expiring redis keys.
func NewRedisRevocationStore(client *redis.Client) RevocationStore {
	return &redisRevocations{client: client, now: time.Now}
}

func (r *redisRevocations) Revoke(ctx context.Context, sessionID string, until time.Time) error {
	ttl := until.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, revokedKeyPrefix+sessionID, "1", ttl).Err()
}

func (r *redisRevocations) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	err := r.client.Get(ctx, revokedKeyPrefix+sessionID).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

type memoryRevocations struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevocationStore keeps revoked ids in process memory.
func NewMemoryRevocationStore() RevocationStore {
	return &memoryRevocations{revoked: make(map[string]time.Time), now: time.Now}
}

func (m *memoryRevocations) Revoke(_ context.Context, sessionID string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for id, exp := range m.revoked {
		if !exp.After(now) {
			delete(m.revoked, id)
		}
	}
	if until.After(now) {
		m.revoked[sessionID] = until
	}
	return nil
}

func (m *memoryRevocations) IsRevoked(_ context.Context, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.revoked[sessionID]
	return ok && exp.After(m.now()), nil
}
