package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goPerm/permission"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss is returned by Get when no entry exists for the user.
	ErrCacheMiss = errors.New("permission cache miss")
	// ErrCorruptEntry is returned by Get when the stored value cannot be decoded.
	ErrCorruptEntry = errors.New("permission cache entry corrupt")
	// ErrRedisUnavailable wraps every Redis transport or server error.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// Store reads and writes effective-permission entries.
type Store struct {
	redis   redis.UniversalClient
	prefix  string
	ttl     time.Duration
	timeout time.Duration
}

// NewStore returns a store writing keys under prefix with the given TTL. A
// positive timeout bounds every Redis call.
func NewStore(
	redis redis.UniversalClient,
	prefix string,
	ttl time.Duration,
	timeout time.Duration,
) *Store {
	return &Store{
		redis:   redis,
		prefix:  prefix,
		ttl:     ttl,
		timeout: timeout,
	}
}

// Key returns the Redis key of userID.
func (s *Store) Key(userID string) string {
	return s.prefix + ":" + userID
}

// TTL returns the expiry applied on Set.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

func (s *Store) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Get returns the cached permissions of userID.
func (s *Store) Get(ctx context.Context, userID string) (*permission.EffectivePermissions, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	data, err := s.redis.Get(ctx, s.Key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var perms permission.EffectivePermissions
	if err := json.Unmarshal(data, &perms); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptEntry, err)
	}
	if perms.Permissions == nil {
		perms.Permissions = map[string]permission.FeatureGrant{}
	}

	return &perms, nil
}

// Set stores perms for userID with the store TTL.
func (s *Store) Set(ctx context.Context, userID string, perms *permission.EffectivePermissions) error {
	if perms == nil {
		return errors.New("cache: nil permissions")
	}

	data, err := json.Marshal(perms)
	if err != nil {
		return err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if err := s.redis.Set(ctx, s.Key(userID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Delete removes the entry of userID. Deleting a missing key succeeds.
func (s *Store) Delete(ctx context.Context, userID string) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if err := s.redis.Del(ctx, s.Key(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Ping reports the round-trip time to Redis.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
