package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/you/clientcore/domain"
)

// MemoryOTPChallengeStore implements domain.OTPChallengeStore in process
// memory. It is used when no Redis address is configured and is only
// correct for a single instance.
type MemoryOTPChallengeStore struct {
	mu        sync.Mutex
	cache     *ttlcache.Cache[string, domain.OTPChallenge]
	throttle  *ttlcache.Cache[string, struct{}]
	retention time.Duration
}

// NewMemoryOTPChallengeStore creates an in-memory challenge store with
// automatic cleanup. Call Close to stop the cleanup goroutines.
func NewMemoryOTPChallengeStore(retention time.Duration) *MemoryOTPChallengeStore {
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, domain.OTPChallenge](),
	)
	throttle := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, struct{}](),
	)

	go cache.Start()
	go throttle.Start()

	return &MemoryOTPChallengeStore{
		cache:     cache,
		throttle:  throttle,
		retention: retention,
	}
}

// Save implements domain.OTPChallengeStore
func (s *MemoryOTPChallengeStore) Save(_ context.Context, challenge *domain.OTPChallenge) error {
	ttl := challenge.ExpiresAt.Sub(challenge.IssuedAt) + s.retention
	if ttl <= 0 {
		ttl = time.Second
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Set(challenge.Target, *challenge, ttl)
	return nil
}

// Reserve implements domain.OTPChallengeStore
func (s *MemoryOTPChallengeStore) Reserve(_ context.Context, target string, now time.Time) (*domain.OTPChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.cache.Get(target)
	if item == nil {
		return nil, domain.ErrOTPNotFound
	}

	challenge := item.Value()
	if challenge.Consumed {
		return nil, domain.ErrOTPNotFound
	}
	if challenge.Expired(now) {
		s.cache.Delete(target)
		return nil, domain.ErrOTPExpired
	}
	if challenge.AttemptsLeft <= 0 {
		s.cache.Delete(target)
		return nil, domain.ErrOTPMaxAttempts
	}

	challenge.AttemptsLeft--
	remaining := time.Until(item.ExpiresAt())
	if remaining <= 0 {
		// ttlcache treats zero as "use the default", which is no expiry
		remaining = time.Millisecond
	}
	s.cache.Set(target, challenge, remaining)

	return &challenge, nil
}

// Consume implements domain.OTPChallengeStore
func (s *MemoryOTPChallengeStore) Consume(_ context.Context, target string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.cache.Get(target)
	if item == nil || item.Value().Consumed {
		return false, nil
	}
	s.cache.Delete(target)
	return true, nil
}

// Delete implements domain.OTPChallengeStore
func (s *MemoryOTPChallengeStore) Delete(_ context.Context, target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Delete(target)
	return nil
}

// Throttle implements domain.OTPChallengeStore
func (s *MemoryOTPChallengeStore) Throttle(_ context.Context, target string, window time.Duration) (bool, error) {
	if window <= 0 {
		return true, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.throttle.Get(target) != nil {
		return false, nil
	}
	s.throttle.Set(target, struct{}{}, window)
	return true, nil
}

// ReleaseThrottle implements domain.OTPChallengeStore
func (s *MemoryOTPChallengeStore) ReleaseThrottle(_ context.Context, target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.throttle.Delete(target)
	return nil
}

// Close stops the cleanup goroutines
func (s *MemoryOTPChallengeStore) Close() error {
	s.cache.Stop()
	s.throttle.Stop()
	return nil
}

// Compile-time interface compliance verification
var _ domain.OTPChallengeStore = (*MemoryOTPChallengeStore)(nil)
