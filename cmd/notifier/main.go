package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"societyhub/internal/config"
	"societyhub/internal/infrastructure/mail"
	"societyhub/internal/infrastructure/mq"
	"societyhub/internal/job"
)

// 消费通知 topic，逐个收件人发送邮件
func main() {
	path := "config/config.yaml"
	if p := os.Getenv("SOCIETY_CONFIG"); p != "" {
		path = p
	}
	cfg := config.LoadConfig(path)

	group, err := mq.NewConsumerGroup(&cfg.Kafka)
	if err != nil {
		log.Fatalf("创建 Kafka 消费者组失败: %v", err)
	}
	defer func() {
		if err := group.Close(); err != nil {
			log.Printf("关闭消费者组失败: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer := job.NewNotificationConsumer(mail.NewSMTPMailer(cfg.SMTP))
	log.Printf("通知服务启动: topic=%s, group=%s", cfg.Kafka.Topic.Notification, cfg.Kafka.ConsumerGroup)
	job.RunConsumerGroup(ctx, group, []string{cfg.Kafka.Topic.Notification}, consumer)

	log.Println("通知服务已关闭")
}
