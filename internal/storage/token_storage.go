// Package storage implements the Redis-backed bookkeeping for issued tokens:
// the single refresh-token pointer kept per user and the blacklist of revoked
// access tokens.  It owns the key naming scheme and the TTL policy; callers
// only ever see the package's own error taxonomy, never transport errors.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key prefixes.  auth:refresh:<user_id> holds the jti of the only currently
// valid refresh token for that user; auth:revoked:<jti> marks an access
// token revoked before its natural expiry.
const (
	refreshKeyPrefix = "auth:refresh:"
	revokedKeyPrefix = "auth:revoked:"
)

// defaultOpTimeout bounds every round-trip to the store.  A timed-out call
// surfaces as ErrStorageUnavailable, never as "token invalid".
const defaultOpTimeout = 3 * time.Second

var (
	// ErrStorageUnavailable wraps any transport-level failure talking to the
	// store.  Handlers map it to 424 Failed Dependency; it is safe for
	// clients to retry after backoff.
	ErrStorageUnavailable = errors.New("token storage unavailable")

	// ErrInvalidToken means the presented refresh token is not the one
	// currently on record: either the pointer is gone (session was torn
	// down) or it points at a newer token (reuse of a superseded one).
	ErrInvalidToken = errors.New("invalid refresh token")
)

// TokenStorage is the interface the accounts service and the authorization
// gate depend on.  It exists so tests can substitute the Redis implementation.
type TokenStorage interface {
	SetRefreshToken(ctx context.Context, jti string, userID uint64) error
	ValidateRefreshToken(ctx context.Context, jti string, userID uint64) error
	InvalidateCurrentRefreshToken(ctx context.Context, userID uint64) error
	IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error)
	InvalidateTokenPair(ctx context.Context, accessJTI string, userID uint64, remaining time.Duration) error
}

// RedisTokenStorage implements TokenStorage on top of a shared Redis client.
// The client is injected by the caller; the storage never owns a global
// connection.
type RedisTokenStorage struct {
	client     *redis.Client
	refreshTTL time.Duration
	opTimeout  time.Duration
}

// NewRedisTokenStorage builds a storage around an existing client.
// refreshTTL bounds how long a refresh pointer may live; it should equal the
// refresh token's own lifetime so abandoned sessions expire on their own.
func NewRedisTokenStorage(client *redis.Client, refreshTTL time.Duration) *RedisTokenStorage {
	return &RedisTokenStorage{
		client:     client,
		refreshTTL: refreshTTL,
		opTimeout:  defaultOpTimeout,
	}
}

func refreshKey(userID uint64) string {
	return refreshKeyPrefix + strconv.FormatUint(userID, 10)
}

func revokedKey(jti string) string {
	return revokedKeyPrefix + jti
}

// SetRefreshToken unconditionally overwrites the stored refresh-token jti for
// the user.  The previous value is discarded, which is how rotation
// invalidates the prior token.
func (s *RedisTokenStorage) SetRefreshToken(ctx context.Context, jti string, userID uint64) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if err := s.client.Set(ctx, refreshKey(userID), jti, s.refreshTTL).Err(); err != nil {
		return fmt.Errorf("%w: set refresh pointer: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// ValidateRefreshToken checks the presented jti against the stored pointer.
// An absent pointer means the session was previously invalidated (reuse after
// revocation); a mismatch means the token was superseded by a later rotation.
// Both return ErrInvalidToken.  Transport failures return
// ErrStorageUnavailable so the caller never confuses "store down" with
// "token invalid".
func (s *RedisTokenStorage) ValidateRefreshToken(ctx context.Context, jti string, userID uint64) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	current, err := s.client.Get(ctx, refreshKey(userID)).Result()
	if err == redis.Nil {
		return ErrInvalidToken
	}
	if err != nil {
		return fmt.Errorf("%w: get refresh pointer: %v", ErrStorageUnavailable, err)
	}
	if current != jti {
		return ErrInvalidToken
	}
	return nil
}

// InvalidateCurrentRefreshToken deletes the refresh pointer for the user.
// Deleting an absent pointer is not an error.
func (s *RedisTokenStorage) InvalidateCurrentRefreshToken(ctx context.Context, userID uint64) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if err := s.client.Del(ctx, refreshKey(userID)).Err(); err != nil {
		return fmt.Errorf("%w: delete refresh pointer: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// IsAccessTokenRevoked reports whether the access token's jti is present in
// the blacklist.  Presence means revoked.
func (s *RedisTokenStorage) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	n, err := s.client.Exists(ctx, revokedKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: check blacklist: %v", ErrStorageUnavailable, err)
	}
	return n > 0, nil
}

// InvalidateTokenPair atomically blacklists the access token and deletes the
// user's refresh pointer.  Both commands run in a single transactional
// pipeline: a partial application would leave the pair half-revoked, so
// either both take effect or neither does.
//
// remaining is the access token's remaining validity window at the time of
// the call; the blacklist entry self-expires with it, bounding memory use.
// An already-expired access token needs no blacklist entry, only the pointer
// delete.
func (s *RedisTokenStorage) InvalidateTokenPair(ctx context.Context, accessJTI string, userID uint64, remaining time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	pipe := s.client.TxPipeline()
	if remaining > 0 {
		pipe.Set(ctx, revokedKey(accessJTI), strconv.FormatUint(userID, 10), remaining)
	}
	pipe.Del(ctx, refreshKey(userID))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: invalidate token pair: %v", ErrStorageUnavailable, err)
	}
	return nil
}
