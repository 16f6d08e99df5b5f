package repository

import (
	"context"
	"errors"

	"societyhub/internal/model"
	"societyhub/internal/query"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ExpenditureRepository struct {
	db *gorm.DB
}

func NewExpenditureRepository(db *gorm.DB) *ExpenditureRepository {
	return &ExpenditureRepository{db: db}
}

func (r *ExpenditureRepository) Create(ctx context.Context, e *model.Expenditure) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *ExpenditureRepository) GetByID(ctx context.Context, id int64) (*model.Expenditure, error) {
	var e model.Expenditure
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		return nil, notFound(err, ErrExpenditureNotFound)
	}
	return &e, nil
}

func (r *ExpenditureRepository) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&model.Expenditure{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (r *ExpenditureRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Expenditure{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrExpenditureNotFound
	}
	return nil
}

func (r *ExpenditureRepository) List(ctx context.Context, params query.Params) (*query.Page[model.Expenditure], error) {
	return query.Find[model.Expenditure](ctx, r.db, ExpenditureSchema, params)
}

type EarningRepository struct {
	db *gorm.DB
}

func NewEarningRepository(db *gorm.DB) *EarningRepository {
	return &EarningRepository{db: db}
}

// Create 同一笔缴费重复生成收入时返回 ErrEarningExists
func (r *EarningRepository) Create(ctx context.Context, tx *gorm.DB, e *model.Earning) error {
	if tx == nil {
		tx = r.db
	}
	err := tx.WithContext(ctx).Create(e).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrEarningExists
	}
	return err
}

func (r *EarningRepository) GetByID(ctx context.Context, id int64) (*model.Earning, error) {
	var e model.Earning
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		return nil, notFound(err, ErrEarningNotFound)
	}
	return &e, nil
}

func (r *EarningRepository) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id int64) (*model.Earning, error) {
	var e model.Earning
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&e).Error
	if err != nil {
		return nil, notFound(err, ErrEarningNotFound)
	}
	return &e, nil
}

func (r *EarningRepository) CountByPayment(ctx context.Context, paymentID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Earning{}).Where("payment_id = ?", paymentID).Count(&count).Error
	return count, err
}

// DetachPayment 缴费删除前解除收入记录的关联，凭证文件随收入记录保留，返回解除的条数
func (r *EarningRepository) DetachPayment(ctx context.Context, tx *gorm.DB, paymentID int64) (int64, error) {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).Model(&model.Earning{}).
		Where("payment_id = ?", paymentID).
		Update("payment_id", nil)
	return result.RowsAffected, result.Error
}

// DetachAccountPayments 删除账户前解除其全部缴费生成的收入记录关联
func (r *EarningRepository) DetachAccountPayments(ctx context.Context, tx *gorm.DB, accountID int64) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Model(&model.Earning{}).
		Where("payment_id IN (?)", tx.Model(&model.Payment{}).Select("id").Where("account_id = ?", accountID)).
		Update("payment_id", nil).Error
}

func (r *EarningRepository) Update(ctx context.Context, tx *gorm.DB, id int64, updates map[string]interface{}) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Model(&model.Earning{}).Where("id = ?", id).Updates(updates).Error
}

func (r *EarningRepository) Delete(ctx context.Context, tx *gorm.DB, id int64) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).Where("id = ?", id).Delete(&model.Earning{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrEarningNotFound
	}
	return nil
}

func (r *EarningRepository) List(ctx context.Context, params query.Params) (*query.Page[model.Earning], error) {
	return query.Find[model.Earning](ctx, r.db, EarningSchema, params)
}
