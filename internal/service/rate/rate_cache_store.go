package rate

import (
	"context"
	"sync"
	"time"

	"github.com/krobus00/deelrate-service/internal/entity"
)

type RateCacheStore interface {
	Get(ctx context.Context, key string) (entity.ExchangeRate, bool, error)
	Set(ctx context.Context, key string, rate entity.ExchangeRate, ttl time.Duration) error
}

type cachedRate struct {
	rate      entity.ExchangeRate
	expiresAt time.Time
}

// MemoryRateCacheStore keeps rates in process. Concurrent writers to one key race and the
// last write wins.
type MemoryRateCacheStore struct {
	mu    sync.RWMutex
	rates map[string]cachedRate
	now   func() time.Time
}

func NewMemoryRateCacheStore() *MemoryRateCacheStore {
	return &MemoryRateCacheStore{
		rates: make(map[string]cachedRate),
		now:   time.Now,
	}
}

func (s *MemoryRateCacheStore) Get(_ context.Context, key string) (entity.ExchangeRate, bool, error) {
	s.mu.RLock()
	cached, ok := s.rates[key]
	s.mu.RUnlock()

	if !ok || !s.now().Before(cached.expiresAt) {
		return entity.ExchangeRate{}, false, nil
	}

	return cached.rate, true, nil
}

func (s *MemoryRateCacheStore) Set(_ context.Context, key string, rate entity.ExchangeRate, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rates[key] = cachedRate{rate: rate, expiresAt: s.now().Add(ttl)}
	s.evictExpired()

	return nil
}

// evictExpired must be called with mu held.
func (s *MemoryRateCacheStore) evictExpired() {
	now := s.now()
	for key, cached := range s.rates {
		if !now.Before(cached.expiresAt) {
			delete(s.rates, key)
		}
	}
}
