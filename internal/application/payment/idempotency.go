package payment

import (
	"context"
	"sync"
	"time"
)

// IdempotencyStore deduplicates gateway callbacks. Claim returns true
// exactly once per key within the TTL; Forget releases a claim so a
// failed settlement can be retried by the next callback.
type IdempotencyStore interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Forget(ctx context.Context, key string) error
}

// MemoryIdempotencyStore keeps claims in process memory. Suitable for a
// single instance; multi-instance deployments use the redis-backed store.
type MemoryIdempotencyStore struct {
	mu     sync.Mutex
	claims map[string]time.Time
}

// NewMemoryIdempotencyStore creates an in-memory idempotency store
func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{
		claims: make(map[string]time.Time),
	}
}

// Claim records the key if unclaimed or expired
func (s *MemoryIdempotencyStore) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if expiry, ok := s.claims[key]; ok && expiry.After(now) {
		return false, nil
	}
	s.claims[key] = now.Add(ttl)
	return true, nil
}

// Forget releases a claim
func (s *MemoryIdempotencyStore) Forget(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.claims, key)
	return nil
}

var _ IdempotencyStore = (*MemoryIdempotencyStore)(nil)
