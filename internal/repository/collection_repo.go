package repository

import (
	"context"
	"time"

	"societyhub/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CollectionRepository 物业费累计金额（单行表）
//
// 【关键点】所有修改都是单条 SQL 的原子操作，不做"读-改-写"
// 并发审核时不会丢失更新
type CollectionRepository struct {
	db *gorm.DB
}

func NewCollectionRepository(db *gorm.DB) *CollectionRepository {
	return &CollectionRepository{db: db}
}

func (r *CollectionRepository) Get(ctx context.Context) (*model.TotalMoneyCollected, error) {
	var total model.TotalMoneyCollected
	err := r.db.WithContext(ctx).Where("id = ?", model.TotalMoneyCollectedID).First(&total).Error
	if err != nil {
		return nil, notFound(err, ErrTotalNotFound)
	}
	return &total, nil
}

// Add 累加金额，记录不存在时创建
// MySQL: INSERT ... ON DUPLICATE KEY UPDATE total_amount = total_amount + ?
func (r *CollectionRepository) Add(ctx context.Context, tx *gorm.DB, amount int64) error {
	if tx == nil {
		tx = r.db
	}
	now := time.Now().UTC()
	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"total_amount": gorm.Expr("total_amount + ?", amount),
				"updated_at":   now,
			}),
		}).
		Create(&model.TotalMoneyCollected{
			ID:          model.TotalMoneyCollectedID,
			TotalAmount: amount,
			UpdatedAt:   now,
		}).Error
}

// Subtract 扣减金额，记录不存在时不做处理
func (r *CollectionRepository) Subtract(ctx context.Context, tx *gorm.DB, amount int64) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Model(&model.TotalMoneyCollected{}).
		Where("id = ?", model.TotalMoneyCollectedID).
		Updates(map[string]interface{}{
			"total_amount": gorm.Expr("total_amount - ?", amount),
		}).Error
}

// Set 设置为绝对值
func (r *CollectionRepository) Set(ctx context.Context, amount int64) (*model.TotalMoneyCollected, error) {
	now := time.Now().UTC()
	total := &model.TotalMoneyCollected{
		ID:          model.TotalMoneyCollectedID,
		TotalAmount: amount,
		UpdatedAt:   now,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"total_amount", "updated_at"}),
		}).
		Create(total).Error
	if err != nil {
		return nil, err
	}
	return total, nil
}
