// Package sessions keeps the list of revoked access tokens in Redis.
package sessions

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedPrefix = "prioridades:revoked:"

var (
	mu              sync.RWMutex
	blacklistClient redis.Cmdable
)

// SetBlacklistClient sets the Redis client backing the revocation list. nil
// disables revocation: lookups report false and writes are dropped.
func SetBlacklistClient(c *redis.Client) {
	mu.Lock()
	defer mu.Unlock()
	if c == nil {
		blacklistClient = nil
		return
	}
	blacklistClient = c
}

func client() redis.Cmdable {
	mu.RLock()
	defer mu.RUnlock()
	return blacklistClient
}

// RevokedKey is the Redis key of token. Only a digest is stored so a dump
// of Redis never exposes usable bearer tokens.
func RevokedKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return revokedPrefix + hex.EncodeToString(sum[:])
}

// BlacklistAccessToken marks token as revoked for ttl.
func BlacklistAccessToken(ctx context.Context, token string, ttl time.Duration) error {
	c := client()
	if c == nil {
		return nil
	}
	return c.Set(ctx, RevokedKey(token), "1", ttl).Err()
}

// IsAccessTokenBlacklisted reports whether token was revoked and has not yet
// expired from the list.
func IsAccessTokenBlacklisted(ctx context.Context, token string) (bool, error) {
	c := client()
	if c == nil {
		return false, nil
	}
	n, err := c.Exists(ctx, RevokedKey(token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
