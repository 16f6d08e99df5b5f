package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ============================================================================
// 分布式锁
// ============================================================================
//
// 多实例部署时，记账任务和缴费审核需要跨进程互斥。
// 数据正确性由数据库事务保证，这把锁只用来尽早拒绝并发的重复操作。
//
// 加锁：SET key value NX EX timeout
// 释放：Lua 脚本比较 value 后删除，避免删掉别人的锁
//
// ============================================================================

var (
	ErrLockFailed = errors.New("获取分布式锁失败")
)

var unlockScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

// DistributedLock 分布式锁
type DistributedLock struct {
	client     *redis.Client
	key        string        // 锁的 key
	value      string        // 锁的持有者
	expiration time.Duration // 锁的过期时间
}

// NewDistributedLock 创建分布式锁
func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

func (l *DistributedLock) Key() string {
	return l.key
}

// TryLock 尝试获取锁（非阻塞）
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	return l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
}

// Lock 阻塞式获取锁（带重试）
func (l *DistributedLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		success, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if success {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return ErrLockFailed
}

// Unlock 释放锁，只删除自己持有的锁
func (l *DistributedLock) Unlock(ctx context.Context) error {
	return unlockScript.Run(ctx, l.client, []string{l.key}, l.value).Err()
}

// NewJobLock 定时任务锁，同一任务同一时刻只允许一个实例执行
func NewJobLock(client *redis.Client, jobName, owner string) *DistributedLock {
	key := fmt.Sprintf("job:lock:%s", jobName)
	return NewDistributedLock(client, key, owner, 10*time.Minute)
}

// NewPaymentReviewLock 缴费审核锁（按缴费单维度）
func NewPaymentReviewLock(client *redis.Client, paymentID int64, owner string) *DistributedLock {
	key := fmt.Sprintf("payment:lock:review:%d", paymentID)
	return NewDistributedLock(client, key, owner, 30*time.Second)
}
