package repositories

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/you/clientcore/domain"
)

const (
	reserveNotFound  = 0
	reserveExpired   = 1
	reserveExhausted = 2
	reserveOK        = 3
)

// reserveScript takes one attempt from a challenge hash in a single step.
// KEYS[1] = challenge key, ARGV[1] = now in unix milliseconds.
var reserveScript = redis.NewScript(`
local v = redis.call('HMGET', KEYS[1], 'code_hash', 'issued_at', 'expires_at', 'attempts')
if not v[1] then
  return {0}
end
if tonumber(v[3]) < tonumber(ARGV[1]) then
  redis.call('DEL', KEYS[1])
  return {1}
end
local attempts = tonumber(v[4])
if attempts <= 0 then
  redis.call('DEL', KEYS[1])
  return {2}
end
redis.call('HSET', KEYS[1], 'attempts', attempts - 1)
return {3, v[1], v[2], v[3], attempts - 1}
`)

// OTPChallengeRepositoryImpl implements domain.OTPChallengeStore using Redis
type OTPChallengeRepositoryImpl struct {
	client         *redis.Client
	prefix         string
	throttlePrefix string
	retention      time.Duration
}

// NewOTPChallengeRepository creates a Redis-backed challenge store. Keys
// outlive the challenge by retention so late verifies report expiry
// instead of a missing challenge.
func NewOTPChallengeRepository(client *redis.Client, retention time.Duration) domain.OTPChallengeStore {
	return &OTPChallengeRepositoryImpl{
		client:         client,
		prefix:         "otp:challenge:",
		throttlePrefix: "otp:res:",
		retention:      retention,
	}
}

// Save implements domain.OTPChallengeStore
func (r *OTPChallengeRepositoryImpl) Save(ctx context.Context, challenge *domain.OTPChallenge) error {
	key := r.prefix + challenge.Target
	ttl := challenge.ExpiresAt.Sub(challenge.IssuedAt) + r.retention
	if ttl <= 0 {
		ttl = time.Second
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			"code_hash", challenge.CodeHash,
			"issued_at", challenge.IssuedAt.UnixMilli(),
			"expires_at", challenge.ExpiresAt.UnixMilli(),
			"attempts", challenge.AttemptsLeft,
		)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store otp challenge: %w", err)
	}
	return nil
}

// Reserve implements domain.OTPChallengeStore
func (r *OTPChallengeRepositoryImpl) Reserve(ctx context.Context, target string, now time.Time) (*domain.OTPChallenge, error) {
	res, err := reserveScript.Run(ctx, r.client, []string{r.prefix + target}, now.UnixMilli()).Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to reserve otp attempt: %w", err)
	}
	if len(res) == 0 {
		return nil, fmt.Errorf("unexpected reserve reply")
	}

	status, _ := res[0].(int64)
	switch status {
	case reserveNotFound:
		return nil, domain.ErrOTPNotFound
	case reserveExpired:
		return nil, domain.ErrOTPExpired
	case reserveExhausted:
		return nil, domain.ErrOTPMaxAttempts
	case reserveOK:
	default:
		return nil, fmt.Errorf("unexpected reserve status %d", status)
	}

	if len(res) != 5 {
		return nil, fmt.Errorf("unexpected reserve reply length %d", len(res))
	}
	codeHash, _ := res[1].(string)
	issuedAt, err := millis(res[2])
	if err != nil {
		return nil, err
	}
	expiresAt, err := millis(res[3])
	if err != nil {
		return nil, err
	}
	left, _ := res[4].(int64)

	return &domain.OTPChallenge{
		Target:       target,
		CodeHash:     codeHash,
		IssuedAt:     issuedAt,
		ExpiresAt:    expiresAt,
		AttemptsLeft: int(left),
	}, nil
}

// Consume implements domain.OTPChallengeStore
func (r *OTPChallengeRepositoryImpl) Consume(ctx context.Context, target string) (bool, error) {
	n, err := r.client.Del(ctx, r.prefix+target).Result()
	if err != nil {
		return false, fmt.Errorf("failed to consume otp challenge: %w", err)
	}
	return n == 1, nil
}

// Delete implements domain.OTPChallengeStore
func (r *OTPChallengeRepositoryImpl) Delete(ctx context.Context, target string) error {
	return r.client.Del(ctx, r.prefix+target).Err()
}

// Throttle implements domain.OTPChallengeStore
func (r *OTPChallengeRepositoryImpl) Throttle(ctx context.Context, target string, window time.Duration) (bool, error) {
	if window <= 0 {
		return true, nil
	}
	ok, err := r.client.SetNX(ctx, r.throttlePrefix+target, 1, window).Result()
	if err != nil {
		return false, fmt.Errorf("failed to set resend throttle: %w", err)
	}
	return ok, nil
}

// ReleaseThrottle implements domain.OTPChallengeStore
func (r *OTPChallengeRepositoryImpl) ReleaseThrottle(ctx context.Context, target string) error {
	if err := r.client.Del(ctx, r.throttlePrefix+target).Err(); err != nil {
		return fmt.Errorf("failed to release resend throttle: %w", err)
	}
	return nil
}

func millis(v interface{}) (time.Time, error) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("unexpected timestamp type %T", v)
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("corrupt timestamp %q: %w", s, err)
	}
	return time.UnixMilli(ms), nil
}
