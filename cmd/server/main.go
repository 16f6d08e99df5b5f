package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"societyhub/internal/config"
	"societyhub/internal/handler"
	"societyhub/internal/infrastructure/cache"
	"societyhub/internal/infrastructure/database"
	"societyhub/internal/infrastructure/mq"
	"societyhub/internal/infrastructure/storage"
	"societyhub/internal/job"
	"societyhub/internal/service"
	"societyhub/pkg/idgen"

	"github.com/gin-gonic/gin"
)

func main() {
	// 加载配置
	cfg := config.LoadConfig(configPath())

	// 初始化 ID 生成器
	idgen.Init(1)

	// 初始化 MySQL（含自动迁移）
	db := database.InitMySQL(&cfg.MySQL)

	// 初始化 Redis，可为 nil
	redisClient := cache.InitRedis(&cfg.Redis)
	var blacklist service.TokenBlacklist
	if redisClient != nil {
		blacklist = cache.NewTokenBlacklist(redisClient)
	}

	// 文件存储
	store, err := storage.New(&cfg.Storage, cfg.Business.Location())
	if err != nil {
		log.Fatalf("初始化文件存储失败: %v", err)
	}

	// 初始化 Kafka
	producer := mq.InitKafka(&cfg.Kafka)
	defer mq.CloseKafka()

	// 创建上下文（用于优雅关闭）
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 启动后台任务
	outboxSender := job.NewOutboxSender(db, producer, cfg)
	go outboxSender.Start(ctx)

	notifier := service.NewNotifier(db, cfg)
	accrual := service.NewAccrualService(db, redisClient, cfg)
	content := service.NewContentService(db, cfg, store, notifier)
	scheduler, err := job.NewScheduler(cfg, accrual, job.NewAnnouncementExpiryJob(content))
	if err != nil {
		log.Fatalf("创建定时任务失败: %v", err)
	}
	scheduler.Start(ctx)

	// 设置路由
	gin.SetMode(gin.ReleaseMode)
	router := handler.SetupRouter(handler.NewHandler(db, redisClient, cfg, store, blacklist))

	// 启动 HTTP 服务
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 在 goroutine 中启动服务器
	go func() {
		log.Printf("服务启动，监听端口: %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("正在关闭服务...")

	// 取消上下文，停止后台任务
	cancel()
	scheduler.Stop()
	outboxSender.Stop()

	// 关闭 HTTP 服务（等待最多5秒）
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("服务关闭异常: %v", err)
	}

	log.Println("服务已关闭")
}

// configPath 可通过 SOCIETY_CONFIG 指定配置文件
func configPath() string {
	if p := os.Getenv("SOCIETY_CONFIG"); p != "" {
		return p
	}
	return "config/config.yaml"
}
