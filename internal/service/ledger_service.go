package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"societyhub/internal/infrastructure/storage"
	"societyhub/internal/model"
	"societyhub/internal/query"
	"societyhub/internal/repository"

	"gorm.io/gorm"
)

// LedgerService 支出、收入流水及物业费总收款
type LedgerService struct {
	db              *gorm.DB
	store           storage.Store
	expenditureRepo *repository.ExpenditureRepository
	earningRepo     *repository.EarningRepository
	collectionRepo  *repository.CollectionRepository
	now             func() time.Time
}

func NewLedgerService(db *gorm.DB, store storage.Store) *LedgerService {
	return &LedgerService{
		db:              db,
		store:           store,
		expenditureRepo: repository.NewExpenditureRepository(db),
		earningRepo:     repository.NewEarningRepository(db),
		collectionRepo:  repository.NewCollectionRepository(db),
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// LedgerEntry 新建流水的参数，Name 只用于收入；Date 为零值时取当前时间
type LedgerEntry struct {
	Name        string
	Category    string
	Description string
	Amount      int64
	Date        time.Time
	File        *Upload
}

// LedgerUpdate 为 nil 的字段不修改；File 不为空时替换原文件
type LedgerUpdate struct {
	Name        *string
	Category    *string
	Description *string
	Amount      *int64
	Date        *time.Time
	File        *Upload
}

func validateEntry(in *LedgerEntry, withName bool) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	in.Description = strings.TrimSpace(in.Description)

	verr := &ValidationError{}
	if withName && in.Name == "" {
		verr.Add("name", "名称不能为空")
	}
	if in.Category == "" {
		verr.Add("category", "分类不能为空")
	}
	if in.Description == "" {
		verr.Add("description", "描述不能为空")
	}
	if in.Amount <= 0 {
		verr.Add("amount", "金额必须大于 0")
	}
	return verr.orNil()
}

// updates 把非空字段转换成列更新
func (u *LedgerUpdate) updates(withName bool) (map[string]interface{}, error) {
	updates := map[string]interface{}{}
	verr := &ValidationError{}
	if withName && u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" {
			verr.Add("name", "名称不能为空")
		}
		updates["name"] = name
	}
	if u.Category != nil {
		category := strings.TrimSpace(*u.Category)
		if category == "" {
			verr.Add("category", "分类不能为空")
		}
		updates["category"] = category
	}
	if u.Description != nil {
		description := strings.TrimSpace(*u.Description)
		if description == "" {
			verr.Add("description", "描述不能为空")
		}
		updates["description"] = description
	}
	if u.Amount != nil {
		if *u.Amount <= 0 {
			verr.Add("amount", "金额必须大于 0")
		}
		updates["amount"] = *u.Amount
	}
	if u.Date != nil {
		updates["date"] = u.Date.UTC()
	}
	return updates, verr.orNil()
}

func isMaintenance(category string) bool {
	return strings.EqualFold(strings.TrimSpace(category), model.PaymentCategoryMaintenance)
}

// maintenanceAmount 该笔收入计入总收款的金额
func maintenanceAmount(category string, amount int64) int64 {
	if isMaintenance(category) {
		return amount
	}
	return 0
}

// ---------------------------------------------------------------------------
// 支出
// ---------------------------------------------------------------------------

func (s *LedgerService) CreateExpenditure(ctx context.Context, in LedgerEntry) (*model.Expenditure, error) {
	if err := validateEntry(&in, false); err != nil {
		return nil, err
	}
	if in.Date.IsZero() {
		in.Date = s.now()
	}

	fileRef, err := saveUpload(ctx, s.store, storage.DirExpenditures, in.File)
	if err != nil {
		return nil, err
	}
	e := &model.Expenditure{
		Category:    in.Category,
		Description: in.Description,
		Amount:      in.Amount,
		Date:        in.Date.UTC(),
		FileRef:     fileRef,
	}
	if err := s.expenditureRepo.Create(ctx, e); err != nil {
		removeBlob(ctx, s.store, fileRef)
		return nil, fmt.Errorf("创建支出记录失败: %w", err)
	}
	return e, nil
}

func (s *LedgerService) UpdateExpenditure(ctx context.Context, id int64, in LedgerUpdate) (*model.Expenditure, error) {
	updates, err := in.updates(false)
	if err != nil {
		return nil, err
	}
	current, err := s.expenditureRepo.GetByID(ctx, id)
	if err != nil {
		return nil, translateRepoError(err)
	}

	fileRef, err := saveUpload(ctx, s.store, storage.DirExpenditures, in.File)
	if err != nil {
		return nil, err
	}
	if fileRef != "" {
		updates["file_ref"] = fileRef
	}
	if len(updates) > 0 {
		if err := s.expenditureRepo.Update(ctx, id, updates); err != nil {
			removeBlob(ctx, s.store, fileRef)
			return nil, translateRepoError(err)
		}
	}
	if fileRef != "" {
		removeBlob(ctx, s.store, current.FileRef)
	}
	return s.GetExpenditure(ctx, id)
}

func (s *LedgerService) GetExpenditure(ctx context.Context, id int64) (*model.Expenditure, error) {
	e, err := s.expenditureRepo.GetByID(ctx, id)
	if err != nil {
		return nil, translateRepoError(err)
	}
	return e, nil
}

func (s *LedgerService) ListExpenditures(ctx context.Context, params query.Params) (*query.Page[model.Expenditure], error) {
	return s.expenditureRepo.List(ctx, params)
}

func (s *LedgerService) OpenExpenditureFile(ctx context.Context, id int64) (*FileDownload, error) {
	e, err := s.GetExpenditure(ctx, id)
	if err != nil {
		return nil, err
	}
	return openBlob(ctx, s.store, e.FileRef)
}

func (s *LedgerService) DeleteExpenditure(ctx context.Context, id int64) error {
	e, err := s.GetExpenditure(ctx, id)
	if err != nil {
		return err
	}
	if err := s.expenditureRepo.Delete(ctx, id); err != nil {
		return translateRepoError(err)
	}
	removeBlob(ctx, s.store, e.FileRef)
	return nil
}

// ---------------------------------------------------------------------------
// 收入
//
// 分类为 maintenance 的收入计入物业费总收款：新建累加，修改按差额调整，删除扣减
// 收入记录和总收款在同一事务内修改
// ---------------------------------------------------------------------------

func (s *LedgerService) CreateEarning(ctx context.Context, in LedgerEntry) (*model.Earning, error) {
	if err := validateEntry(&in, true); err != nil {
		return nil, err
	}
	if in.Date.IsZero() {
		in.Date = s.now()
	}

	fileRef, err := saveUpload(ctx, s.store, storage.DirEarnings, in.File)
	if err != nil {
		return nil, err
	}
	e := &model.Earning{
		Name:        in.Name,
		Category:    in.Category,
		Description: in.Description,
		Amount:      in.Amount,
		Date:        in.Date.UTC(),
		FileRef:     fileRef,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.earningRepo.Create(ctx, tx, e); err != nil {
			return fmt.Errorf("创建收入记录失败: %w", err)
		}
		if delta := maintenanceAmount(e.Category, e.Amount); delta > 0 {
			return s.collectionRepo.Add(ctx, tx, delta)
		}
		return nil
	})
	if err != nil {
		removeBlob(ctx, s.store, fileRef)
		return nil, inconsistentError("创建收入记录失败", err)
	}
	return e, nil
}

func (s *LedgerService) UpdateEarning(ctx context.Context, id int64, in LedgerUpdate) (*model.Earning, error) {
	updates, err := in.updates(true)
	if err != nil {
		return nil, err
	}
	current, err := s.earningRepo.GetByID(ctx, id)
	if err != nil {
		return nil, translateRepoError(err)
	}

	fileRef, err := saveUpload(ctx, s.store, storage.DirEarnings, in.File)
	if err != nil {
		return nil, err
	}
	if fileRef != "" {
		updates["file_ref"] = fileRef
	}
	if len(updates) == 0 {
		return current, nil
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		locked, err := s.earningRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		category, amount := locked.Category, locked.Amount
		if in.Category != nil {
			category = updates["category"].(string)
		}
		if in.Amount != nil {
			amount = *in.Amount
		}
		if err := s.earningRepo.Update(ctx, tx, id, updates); err != nil {
			return err
		}

		delta := maintenanceAmount(category, amount) - maintenanceAmount(locked.Category, locked.Amount)
		switch {
		case delta > 0:
			return s.collectionRepo.Add(ctx, tx, delta)
		case delta < 0:
			return s.collectionRepo.Subtract(ctx, tx, -delta)
		}
		return nil
	})
	if err != nil {
		removeBlob(ctx, s.store, fileRef)
		if repository.IsNotFound(err) {
			return nil, translateRepoError(err)
		}
		return nil, inconsistentError("修改收入记录失败", err)
	}
	if fileRef != "" && current.FileRef != fileRef {
		s.removeEarningBlob(ctx, current)
	}
	return s.GetEarning(ctx, id)
}

func (s *LedgerService) GetEarning(ctx context.Context, id int64) (*model.Earning, error) {
	e, err := s.earningRepo.GetByID(ctx, id)
	if err != nil {
		return nil, translateRepoError(err)
	}
	return e, nil
}

func (s *LedgerService) ListEarnings(ctx context.Context, params query.Params) (*query.Page[model.Earning], error) {
	return s.earningRepo.List(ctx, params)
}

func (s *LedgerService) OpenEarningFile(ctx context.Context, id int64) (*FileDownload, error) {
	e, err := s.GetEarning(ctx, id)
	if err != nil {
		return nil, err
	}
	return openBlob(ctx, s.store, e.FileRef)
}

func (s *LedgerService) DeleteEarning(ctx context.Context, id int64) error {
	var deleted *model.Earning
	err := s.db.Transaction(func(tx *gorm.DB) error {
		e, err := s.earningRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := s.earningRepo.Delete(ctx, tx, id); err != nil {
			return err
		}
		if delta := maintenanceAmount(e.Category, e.Amount); delta > 0 {
			if err := s.collectionRepo.Subtract(ctx, tx, delta); err != nil {
				return fmt.Errorf("扣减总收款失败: %w", err)
			}
		}
		deleted = e
		return nil
	})
	if err != nil {
		if repository.IsNotFound(err) {
			return translateRepoError(err)
		}
		return inconsistentError("删除收入记录失败", err)
	}
	s.removeEarningBlob(ctx, deleted)
	log.Printf("[LedgerService] 收入已删除: id=%d, category=%s, amount=%d", id, deleted.Category, deleted.Amount)
	return nil
}

// removeEarningBlob 审核生成的收入与缴费共用凭证文件，由缴费记录负责清理
func (s *LedgerService) removeEarningBlob(ctx context.Context, e *model.Earning) {
	if e.PaymentID != nil {
		return
	}
	removeBlob(ctx, s.store, e.FileRef)
}

// ---------------------------------------------------------------------------
// 物业费总收款
// ---------------------------------------------------------------------------

func (s *LedgerService) GetTotal(ctx context.Context) (*model.TotalMoneyCollected, error) {
	total, err := s.collectionRepo.Get(ctx)
	if err != nil {
		return nil, translateRepoError(err)
	}
	return total, nil
}

func (s *LedgerService) SetTotal(ctx context.Context, amount int64) (*model.TotalMoneyCollected, error) {
	if amount < 0 {
		return nil, NewValidationError("totalAmount", "总收款不能为负数")
	}
	total, err := s.collectionRepo.Set(ctx, amount)
	if err != nil {
		return nil, fmt.Errorf("更新总收款失败: %w", err)
	}
	log.Printf("[LedgerService] 总收款已设置: amount=%d", amount)
	return total, nil
}
