package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"societyhub/internal/config"
	"societyhub/internal/infrastructure/lock"
	"societyhub/internal/model"
	"societyhub/internal/repository"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccrualResult 一次物业费累加的执行结果
type AccrualResult struct {
	Skipped bool            `json:"skipped"`
	Month   string          `json:"month"`
	Updated map[int]int64   `json:"updated,omitempty"` // 户型 -> 更新账户数
	Flagged []model.Account `json:"flagged,omitempty"` // 户型不在费率表中的账户
	RanAt   time.Time       `json:"ranAt"`
}

// AccrualService 每月按户型给正常状态的账户累加应缴物业费
//
// 【幂等】job_logs 中记录上次成功执行的时间，同一个自然月（业务时区）只执行一次
// 读取执行记录、累加欠费、写回执行记录在同一事务中，失败整体回滚，重试不会重复累加
type AccrualService struct {
	db          *gorm.DB
	redisClient *redis.Client
	cfg         *config.Config
	accountRepo *repository.AccountRepository
	jobLogRepo  *repository.JobLogRepository
	now         func() time.Time
}

func NewAccrualService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *AccrualService {
	return &AccrualService{
		db:          db,
		redisClient: redisClient,
		cfg:         cfg,
		accountRepo: repository.NewAccountRepository(db),
		jobLogRepo:  repository.NewJobLogRepository(db),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func sameMonth(a, b time.Time, loc *time.Location) bool {
	a, b = a.In(loc), b.In(loc)
	return a.Year() == b.Year() && a.Month() == b.Month()
}

func (s *AccrualService) Run(ctx context.Context) (*AccrualResult, error) {
	if s.redisClient != nil {
		jobLock := lock.NewJobLock(s.redisClient, model.JobNameAccumulateDues, uuid.NewString())
		ok, err := jobLock.TryLock(ctx)
		if err != nil {
			return nil, fmt.Errorf("获取任务锁失败: %w", err)
		}
		if !ok {
			return nil, conflictError("物业费累加任务正在执行")
		}
		defer jobLock.Unlock(ctx)
	}

	if err := s.jobLogRepo.Ensure(ctx, model.JobNameAccumulateDues); err != nil {
		return nil, fmt.Errorf("初始化任务记录失败: %w", err)
	}

	loc := s.cfg.Business.Location()
	now := s.now()
	result := &AccrualResult{Month: now.In(loc).Format("2006-01"), RanAt: now}
	rates := s.cfg.Business.Rates()
	houseTypes := make([]int, 0, len(rates))
	for houseType := range rates {
		houseTypes = append(houseTypes, houseType)
	}
	sort.Ints(houseTypes)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		jobLog, err := s.jobLogRepo.GetForUpdate(ctx, tx, model.JobNameAccumulateDues)
		if err != nil {
			return err
		}
		if jobLog.LastRun != nil && sameMonth(*jobLog.LastRun, now, loc) {
			result.Skipped = true
			return nil
		}

		result.Updated = make(map[int]int64, len(houseTypes))
		for _, houseType := range houseTypes {
			n, err := s.accountRepo.AccrueDues(ctx, tx, houseType, rates[houseType])
			if err != nil {
				return fmt.Errorf("累加户型 %d 物业费失败: %w", houseType, err)
			}
			result.Updated[houseType] = n
		}

		result.Flagged, err = s.accountRepo.ListActiveWithoutRate(ctx, tx, houseTypes)
		if err != nil {
			return fmt.Errorf("查询未配置费率的账户失败: %w", err)
		}

		return s.jobLogRepo.MarkRun(ctx, tx, model.JobNameAccumulateDues, now)
	})
	if err != nil {
		if errors.Is(err, repository.ErrJobLogNotFound) {
			return nil, inconsistentError("任务记录不存在", err)
		}
		log.Printf("[AccrualJob] 执行失败已回滚: err=%v", err)
		return nil, inconsistentError("物业费累加失败，所有修改已回滚", err)
	}

	if result.Skipped {
		log.Printf("[AccrualJob] 本月已执行，跳过: month=%s", result.Month)
		return result, nil
	}
	for _, a := range result.Flagged {
		log.Printf("[AccrualJob] 户型未配置费率，需人工处理: accountID=%d, house=%s, houseType=%d", a.ID, a.HouseNumber, a.HouseType)
	}
	log.Printf("[AccrualJob] 执行完成: month=%s, updated=%v, flagged=%d", result.Month, result.Updated, len(result.Flagged))
	return result, nil
}
