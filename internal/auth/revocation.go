package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationList records the jti of tokens invalidated by logout. Entries
// expire with the token itself, so the list stays small.
type RevocationList struct {
	redis *redis.Client
}

// NewRevocationList creates a revocation list backed by client.
func NewRevocationList(client *redis.Client) *RevocationList {
	return &RevocationList{redis: client}
}

func revocationKey(jti string) string {
	return "revoked_tokens:" + jti
}

// Revoke marks a token as revoked until it would have expired anyway.
func (l *RevocationList) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil // already expired, nothing to record
	}
	if err := l.redis.Set(ctx, revocationKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether a token's jti is on the list.
func (l *RevocationList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := l.redis.Exists(ctx, revocationKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}
	return n > 0, nil
}
