package repository

import (
	"context"
	"time"

	"societyhub/internal/model"
	"societyhub/internal/query"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, tx *gorm.DB, payment *model.Payment) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(payment).Error
}

// GetByID 附带缴费人信息
func (r *PaymentRepository) GetByID(ctx context.Context, id int64) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.WithContext(ctx).Preload("Account").Where("id = ?", id).First(&payment).Error
	if err != nil {
		return nil, notFound(err, ErrPaymentNotFound)
	}
	payment.Sanitize()
	return &payment, nil
}

func (r *PaymentRepository) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id int64) (*model.Payment, error) {
	var payment model.Payment
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&payment).Error
	if err != nil {
		return nil, notFound(err, ErrPaymentNotFound)
	}
	return &payment, nil
}

// UpdateStatus 更新缴费状态（带状态校验）
//
// 【关键点】WHERE status = fromStatus 保证状态只能流转一次
// 并发审核同一笔缴费时，只有一个请求能更新成功
func (r *PaymentRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, id int64, fromStatus, toStatus string, reviewedAt time.Time) error {
	if !model.CanTransitionTo(fromStatus, toStatus) {
		return ErrPaymentStatusInvalid
	}
	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).
		Model(&model.Payment{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(map[string]interface{}{
			"status":      toStatus,
			"reviewed_at": reviewedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPaymentStatusInvalid
	}
	return nil
}

func (r *PaymentRepository) Delete(ctx context.Context, tx *gorm.DB, id int64) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).Where("id = ?", id).Delete(&model.Payment{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

// DeleteByAccount 删除账户下全部缴费，返回需要清理的文件（收入记录仍在引用的文件除外）
func (r *PaymentRepository) DeleteByAccount(ctx context.Context, tx *gorm.DB, accountID int64) ([]string, error) {
	if tx == nil {
		tx = r.db
	}
	var refs []string
	if err := tx.WithContext(ctx).
		Model(&model.Payment{}).
		Where("account_id = ? AND file_ref <> ''", accountID).
		Where("file_ref NOT IN (?)", tx.Model(&model.Earning{}).Select("file_ref").Where("file_ref <> ''")).
		Pluck("file_ref", &refs).Error; err != nil {
		return nil, err
	}
	if err := tx.WithContext(ctx).Where("account_id = ?", accountID).Delete(&model.Payment{}).Error; err != nil {
		return nil, err
	}
	return refs, nil
}

// List scopes 用于限定范围，如只查询某个账户或待审核的缴费
func (r *PaymentRepository) List(ctx context.Context, params query.Params, scopes ...func(*gorm.DB) *gorm.DB) (*query.Page[model.Payment], error) {
	return query.Find[model.Payment](ctx, r.db, PaymentSchema, params, scopes...)
}

func ByAccount(accountID int64) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Where("payments.account_id = ?", accountID)
	}
}

func ByPaymentStatus(status string) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Where("payments.status = ?", status)
	}
}
