package repository

import (
	"context"
	"errors"
	"time"

	"societyhub/internal/model"
	"societyhub/internal/query"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, account *model.Account) error {
	err := r.db.WithContext(ctx).Create(account).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateAccount
	}
	return err
}

func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*model.Account, error) {
	var account model.Account
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error
	if err != nil {
		return nil, notFound(err, ErrAccountNotFound)
	}
	return &account, nil
}

// GetByIDWithPayments 详情页，附带缴费记录（按日期倒序）
func (r *AccountRepository) GetByIDWithPayments(ctx context.Context, id int64) (*model.Account, error) {
	var account model.Account
	err := r.db.WithContext(ctx).
		Preload("Payments", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("date DESC").Order("id DESC")
		}).
		Where("id = ?", id).
		First(&account).Error
	if err != nil {
		return nil, notFound(err, ErrAccountNotFound)
	}
	return &account, nil
}

func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id int64) (*model.Account, error) {
	var account model.Account
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&account).Error
	if err != nil {
		return nil, notFound(err, ErrAccountNotFound)
	}
	return &account, nil
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	var account model.Account
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&account).Error
	if err != nil {
		return nil, notFound(err, ErrAccountNotFound)
	}
	return &account, nil
}

// GetByResetToken 按重置 token 的哈希查找，且 token 未过期
func (r *AccountRepository) GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*model.Account, error) {
	var account model.Account
	err := r.db.WithContext(ctx).
		Where("reset_token_hash = ? AND reset_expires_at > ?", tokenHash, now).
		First(&account).Error
	if err != nil {
		return nil, notFound(err, ErrAccountNotFound)
	}
	return &account, nil
}

// EmailTaken 邮箱是否已被其他账户使用，excludeID 为 0 表示不排除
func (r *AccountRepository) EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Account{}).
		Where("email = ? AND id <> ?", email, excludeID).
		Count(&count).Error
	return count > 0, err
}

// HouseTaken 同户型同房号是否已被其他账户使用
func (r *AccountRepository) HouseTaken(ctx context.Context, houseType int, houseNumber string, excludeID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Account{}).
		Where("house_type = ? AND house_number = ? AND id <> ?", houseType, houseNumber, excludeID).
		Count(&count).Error
	return count > 0, err
}

func (r *AccountRepository) Update(ctx context.Context, tx *gorm.DB, id int64, updates map[string]interface{}) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.Account{}).
		Where("id = ?", id).
		Updates(updates)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return ErrDuplicateAccount
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		// 值未变化时 MySQL 也会返回 0，需要再确认一次
		var count int64
		if err := tx.WithContext(ctx).Model(&model.Account{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrAccountNotFound
		}
	}
	return nil
}

// DecreaseDues 缴费审核通过后扣减欠款
func (r *AccountRepository) DecreaseDues(ctx context.Context, tx *gorm.DB, id int64, amount int64) error {
	result := tx.WithContext(ctx).
		Model(&model.Account{}).
		Where("id = ?", id).
		UpdateColumn("dues", gorm.Expr("dues - ?", amount))

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// AccrueDues 按户型批量累加应缴金额，仅作用于正常状态的账户
func (r *AccountRepository) AccrueDues(ctx context.Context, tx *gorm.DB, houseType int, amount int64) (int64, error) {
	result := tx.WithContext(ctx).
		Model(&model.Account{}).
		Where("house_type = ? AND status = ?", houseType, model.AccountStatusActive).
		UpdateColumn("dues", gorm.Expr("dues + ?", amount))
	return result.RowsAffected, result.Error
}

// ListActiveWithoutRate 户型不在费率表中的正常账户
func (r *AccountRepository) ListActiveWithoutRate(ctx context.Context, tx *gorm.DB, houseTypes []int) ([]model.Account, error) {
	if tx == nil {
		tx = r.db
	}
	var accounts []model.Account
	q := tx.WithContext(ctx).
		Select("id", "name", "house_number", "house_type").
		Where("status = ?", model.AccountStatusActive)
	if len(houseTypes) > 0 {
		q = q.Where("house_type NOT IN ?", houseTypes)
	}
	err := q.Order("id ASC").Find(&accounts).Error
	return accounts, err
}

// ListActiveEmails 正常状态账户的邮箱，onlyAdmin 为 true 时只返回管理员
func (r *AccountRepository) ListActiveEmails(ctx context.Context, onlyAdmin bool) ([]string, error) {
	var emails []string
	q := r.db.WithContext(ctx).
		Model(&model.Account{}).
		Where("status = ?", model.AccountStatusActive)
	if onlyAdmin {
		q = q.Where("is_admin = ?", true)
	}
	err := q.Order("id ASC").Pluck("email", &emails).Error
	return emails, err
}

func (r *AccountRepository) Delete(ctx context.Context, tx *gorm.DB, id int64) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).Where("id = ?", id).Delete(&model.Account{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) List(ctx context.Context, params query.Params) (*query.Page[model.Account], error) {
	return query.Find[model.Account](ctx, r.db, AccountSchema, params)
}
