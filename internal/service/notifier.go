package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"societyhub/internal/config"
	"societyhub/internal/model"
	"societyhub/internal/repository"

	"gorm.io/gorm"
)

// Notifier 把通知邮件写入本地消息表，由 OutboxSender 异步投递
type Notifier struct {
	accountRepo *repository.AccountRepository
	outboxRepo  *repository.OutboxRepository
	cfg         *config.Config
}

func NewNotifier(db *gorm.DB, cfg *config.Config) *Notifier {
	return &Notifier{
		accountRepo: repository.NewAccountRepository(db),
		outboxRepo:  repository.NewOutboxRepository(db),
		cfg:         cfg,
	}
}

// AdminContacts 管理员联系人：配置的邮箱 + 所有正常状态的管理员账户，去重
// 必须在事务外调用
func (n *Notifier) AdminContacts(ctx context.Context) ([]string, error) {
	emails, err := n.accountRepo.ListActiveEmails(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("查询管理员邮箱失败: %w", err)
	}
	return dedupeEmails(append(append([]string{}, n.cfg.Business.AdminEmails...), emails...)), nil
}

// ResidentContacts 所有正常状态账户的邮箱
func (n *Notifier) ResidentContacts(ctx context.Context) ([]string, error) {
	emails, err := n.accountRepo.ListActiveEmails(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("查询住户邮箱失败: %w", err)
	}
	return dedupeEmails(emails), nil
}

// Enqueue 写入一条通知，tx 不为空时与业务数据同一事务
// 收件人为空时只记录告警，不影响业务
func (n *Notifier) Enqueue(ctx context.Context, tx *gorm.DB, key string, to []string, subject, body string) error {
	if len(to) == 0 {
		log.Printf("[Notifier] 收件人为空，跳过通知: key=%s, subject=%s", key, subject)
		return nil
	}

	payload, err := json.Marshal(model.Notification{To: to, Subject: subject, Body: body})
	if err != nil {
		return fmt.Errorf("序列化通知失败: %w", err)
	}

	msg := &model.OutboxMessage{
		MessageKey: key,
		Topic:      n.cfg.Kafka.Topic.Notification,
		Payload:    string(payload),
		Status:     model.OutboxStatusPending,
	}
	if err := n.outboxRepo.Create(ctx, tx, msg); err != nil {
		return fmt.Errorf("写入通知消息失败: %w", err)
	}
	return nil
}

func dedupeEmails(emails []string) []string {
	seen := make(map[string]struct{}, len(emails))
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		k := strings.ToLower(e)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, e)
	}
	return out
}
