package job

import (
	"context"
	"fmt"
	"log"
	"os"

	"societyhub/internal/config"
	"societyhub/internal/service"

	"github.com/robfig/cron/v3"
)

// DuesAccruer 每月物业费累加
type DuesAccruer interface {
	Run(ctx context.Context) (*service.AccrualResult, error)
}

// Scheduler 定时任务调度：每月累加物业费，定期清理过期公告
// 时间表达式按业务时区解释
type Scheduler struct {
	cron    *cron.Cron
	accrual DuesAccruer
	expiry  *AnnouncementExpiryJob
	ctx     context.Context
}

func NewScheduler(cfg *config.Config, accrual DuesAccruer, expiry *AnnouncementExpiryJob) (*Scheduler, error) {
	logger := cron.PrintfLogger(log.New(os.Stdout, "[Scheduler] ", log.LstdFlags))
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(cfg.Business.Location()),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		accrual: accrual,
		expiry:  expiry,
		ctx:     context.Background(),
	}

	if _, err := s.cron.AddFunc(cfg.Business.AccrualSchedule, s.runAccrual); err != nil {
		return nil, fmt.Errorf("物业费累加时间表达式无效 %q: %w", cfg.Business.AccrualSchedule, err)
	}
	if _, err := s.cron.AddFunc(cfg.Business.ExpirySweepSchedule, s.runExpiry); err != nil {
		return nil, fmt.Errorf("公告清理时间表达式无效 %q: %w", cfg.Business.ExpirySweepSchedule, err)
	}
	return s, nil
}

// Start ctx 取消后正在执行的任务会收到取消信号
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
	log.Printf("[Scheduler] 定时任务启动，共 %d 个", len(s.cron.Entries()))
}

// Stop 停止调度并等待正在执行的任务结束
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Println("[Scheduler] 定时任务已停止")
}

func (s *Scheduler) runAccrual() {
	result, err := s.accrual.Run(s.ctx)
	if err != nil {
		log.Printf("[AccrualJob] 定时执行失败: %v", err)
		return
	}
	if result.Skipped {
		return
	}
	log.Printf("[AccrualJob] 定时执行完成: month=%s", result.Month)
}

func (s *Scheduler) runExpiry() {
	s.expiry.Run(s.ctx)
}
