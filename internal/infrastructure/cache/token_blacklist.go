package cache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

const tokenBlacklistPrefix = "auth:blacklist:"

// TokenBlacklist 已注销的 token（按 jti 记录），过期时间与 token 剩余有效期一致
type TokenBlacklist struct {
	client *redis.Client
}

func NewTokenBlacklist(client *redis.Client) *TokenBlacklist {
	return &TokenBlacklist{client: client}
}

func (b *TokenBlacklist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return b.client.Set(ctx, tokenBlacklistPrefix+jti, 1, ttl).Err()
}

func (b *TokenBlacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := b.client.Exists(ctx, tokenBlacklistPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
