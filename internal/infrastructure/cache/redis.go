package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"societyhub/internal/config"

	"github.com/go-redis/redis/v8"
)

// InitRedis 初始化 Redis 连接，未配置 host 时返回 nil
func InitRedis(cfg *config.RedisConfig) *redis.Client {
	if cfg.Host == "" {
		log.Println("未配置 Redis，分布式锁和 token 黑名单不启用")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("连接 Redis 失败: %v", err)
	}

	log.Println("Redis 连接成功")
	return client
}
