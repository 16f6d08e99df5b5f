package repository

import (
	"context"
	"time"

	"societyhub/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type JobLogRepository struct {
	db *gorm.DB
}

func NewJobLogRepository(db *gorm.DB) *JobLogRepository {
	return &JobLogRepository{db: db}
}

// Ensure 保证任务记录存在，之后才能用行锁串行化同一任务
func (r *JobLogRepository) Ensure(ctx context.Context, jobName string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "job_name"}},
			DoNothing: true,
		}).
		Create(&model.JobLog{JobName: jobName}).Error
}

func (r *JobLogRepository) Get(ctx context.Context, jobName string) (*model.JobLog, error) {
	var log model.JobLog
	err := r.db.WithContext(ctx).Where("job_name = ?", jobName).First(&log).Error
	if err != nil {
		return nil, notFound(err, ErrJobLogNotFound)
	}
	return &log, nil
}

func (r *JobLogRepository) GetForUpdate(ctx context.Context, tx *gorm.DB, jobName string) (*model.JobLog, error) {
	var log model.JobLog
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("job_name = ?", jobName).
		First(&log).Error
	if err != nil {
		return nil, notFound(err, ErrJobLogNotFound)
	}
	return &log, nil
}

// MarkRun 记录最近一次成功执行时间
func (r *JobLogRepository) MarkRun(ctx context.Context, tx *gorm.DB, jobName string, lastRun time.Time) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "job_name"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_run", "updated_at"}),
		}).
		Create(&model.JobLog{JobName: jobName, LastRun: &lastRun}).Error
}
