package job

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"societyhub/internal/config"
	"societyhub/internal/model"
	"societyhub/internal/repository"

	"gorm.io/gorm"
)

// MessageSender 消息投递，生产环境为 Kafka 同步生产者
type MessageSender interface {
	SendMessage(topic, key, value string) error
}

// OutboxSender 把业务事务里写入 outbox 的邮件通知转发到 Kafka
//
// 每条消息的 payload 是 model.Notification（收件人、标题、正文），key 用于去重，
// 例如 "PMT...:approved"、"announcement:12"。邮件由 cmd/notifier 消费后发送。
// 投递失败累计重试次数，达到 business.max_retry_count 后标记为 failed；
// payload 无法解析或没有收件人的消息重试也没有意义，直接标记为 failed。
type OutboxSender struct {
	outboxRepo *repository.OutboxRepository
	sender     MessageSender
	maxRetries int
	interval   time.Duration
	batchSize  int
	stopCh     chan struct{}
}

func NewOutboxSender(db *gorm.DB, sender MessageSender, cfg *config.Config) *OutboxSender {
	maxRetries := cfg.Business.MaxRetryCount
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &OutboxSender{
		outboxRepo: repository.NewOutboxRepository(db),
		sender:     sender,
		maxRetries: maxRetries,
		interval:   time.Second,
		batchSize:  100,
		stopCh:     make(chan struct{}),
	}
}

// Start 阻塞运行，ctx 取消或调用 Stop 后退出
func (s *OutboxSender) Start(ctx context.Context) {
	log.Printf("[OutboxSender] 通知转发启动: interval=%s, batch=%d", s.interval, s.batchSize)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[OutboxSender] 收到停止信号，任务退出")
			return
		case <-s.stopCh:
			log.Println("[OutboxSender] 任务停止")
			return
		case <-ticker.C:
			s.relayPending(ctx)
		}
	}
}

func (s *OutboxSender) Stop() {
	close(s.stopCh)
}

// relayPending 转发一批待发送的通知，返回成功条数
func (s *OutboxSender) relayPending(ctx context.Context) int {
	messages, err := s.outboxRepo.GetPendingMessages(ctx, s.batchSize)
	if err != nil {
		log.Printf("[OutboxSender] 查询待发送通知失败: %v", err)
		return 0
	}

	relayed := 0
	for _, msg := range messages {
		if s.relay(ctx, msg) {
			relayed++
		}
	}
	if len(messages) > 0 {
		log.Printf("[OutboxSender] 本轮转发 %d/%d 条通知", relayed, len(messages))
	}
	return relayed
}

func (s *OutboxSender) relay(ctx context.Context, msg *model.OutboxMessage) bool {
	var n model.Notification
	if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil || len(n.To) == 0 {
		log.Printf("[OutboxSender] 通知内容无效，不再重试: id=%d, key=%s, err=%v", msg.ID, msg.MessageKey, err)
		s.markFailed(ctx, msg)
		return false
	}

	if err := s.sender.SendMessage(msg.Topic, msg.MessageKey, msg.Payload); err != nil {
		log.Printf("[OutboxSender] 投递失败: id=%d, key=%s, 第 %d 次, err=%v", msg.ID, msg.MessageKey, msg.RetryCount+1, err)
		if err := s.outboxRepo.IncrementRetryCount(ctx, msg.ID); err != nil {
			log.Printf("[OutboxSender] 记录重试次数失败: id=%d, err=%v", msg.ID, err)
		}
		if msg.RetryCount+1 >= s.maxRetries {
			s.markFailed(ctx, msg)
		}
		return false
	}

	if err := s.outboxRepo.MarkAsSent(ctx, msg.ID); err != nil {
		// 下一轮会重复投递，notifier 按 key 记录日志
		log.Printf("[OutboxSender] 更新通知状态失败: id=%d, err=%v", msg.ID, err)
		return false
	}
	return true
}

func (s *OutboxSender) markFailed(ctx context.Context, msg *model.OutboxMessage) {
	if err := s.outboxRepo.MarkAsFailed(ctx, msg.ID); err != nil {
		log.Printf("[OutboxSender] 标记失败状态出错: id=%d, err=%v", msg.ID, err)
		return
	}
	log.Printf("[OutboxSender] 通知已放弃: id=%d, key=%s, topic=%s", msg.ID, msg.MessageKey, msg.Topic)
}
