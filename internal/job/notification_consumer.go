package job

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"societyhub/internal/infrastructure/mail"
	"societyhub/internal/model"

	"github.com/IBM/sarama"
)

// NotificationConsumer 消费通知消息并发送邮件
//
// 每个收件人单独发送一封，避免住户之间互相看到邮箱
// 消息体无法解析时记录日志后直接确认，不阻塞后续消息
type NotificationConsumer struct {
	mailer mail.Mailer
}

func NewNotificationConsumer(mailer mail.Mailer) *NotificationConsumer {
	return &NotificationConsumer{mailer: mailer}
}

func (c *NotificationConsumer) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (c *NotificationConsumer) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (c *NotificationConsumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			c.handleMessage(session.Context(), msg)
			session.MarkMessage(msg, "")
		case <-session.Context().Done():
			return nil
		}
	}
}

// handleMessage 返回成功发送的邮件数
func (c *NotificationConsumer) handleMessage(ctx context.Context, msg *sarama.ConsumerMessage) int {
	var n model.Notification
	if err := json.Unmarshal(msg.Value, &n); err != nil {
		log.Printf("[NotificationConsumer] 消息格式错误，已跳过: partition=%d, offset=%d, err=%v", msg.Partition, msg.Offset, err)
		return 0
	}
	if len(n.To) == 0 {
		log.Printf("[NotificationConsumer] 收件人为空，已跳过: key=%s", string(msg.Key))
		return 0
	}

	sent := 0
	for _, to := range n.To {
		if err := c.mailer.Send(ctx, []string{to}, n.Subject, n.Body); err != nil {
			log.Printf("[NotificationConsumer] 发送邮件失败: key=%s, to=%s, err=%v", string(msg.Key), to, err)
			continue
		}
		sent++
	}
	log.Printf("[NotificationConsumer] 通知已发送: key=%s, %d/%d", string(msg.Key), sent, len(n.To))
	return sent
}

// RunConsumerGroup 持续消费直到 ctx 取消，重平衡后自动重新加入
func RunConsumerGroup(ctx context.Context, group sarama.ConsumerGroup, topics []string, handler sarama.ConsumerGroupHandler) {
	go func() {
		for err := range group.Errors() {
			log.Printf("[NotificationConsumer] 消费者组错误: %v", err)
		}
	}()

	for {
		if err := group.Consume(ctx, topics, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return
			}
			log.Printf("[NotificationConsumer] 消费失败: %v", err)
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
		if ctx.Err() != nil {
			log.Println("[NotificationConsumer] 收到停止信号，退出")
			return
		}
	}
}
