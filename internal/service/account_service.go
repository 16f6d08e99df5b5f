package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"societyhub/internal/infrastructure/storage"
	"societyhub/internal/model"
	"societyhub/internal/query"
	"societyhub/internal/repository"

	"gorm.io/gorm"
)

type AccountService struct {
	db          *gorm.DB
	store       storage.Store
	accountRepo *repository.AccountRepository
	paymentRepo *repository.PaymentRepository
	earningRepo *repository.EarningRepository
}

func NewAccountService(db *gorm.DB, store storage.Store) *AccountService {
	return &AccountService{
		db:          db,
		store:       store,
		accountRepo: repository.NewAccountRepository(db),
		paymentRepo: repository.NewPaymentRepository(db),
		earningRepo: repository.NewEarningRepository(db),
	}
}

// AccountUpdate 为 nil 的字段不修改；Dues、Status、IsAdmin 只允许管理员修改
type AccountUpdate struct {
	Name         *string
	Email        *string
	MobileNumber *string
	HouseNumber  *string
	HouseType    *int
	Dues         *int64
	Status       *string
	IsAdmin      *bool
}

// GetDetail 账户详情（含缴费记录）
func (s *AccountService) GetDetail(ctx context.Context, id int64) (*model.Account, error) {
	account, err := s.accountRepo.GetByIDWithPayments(ctx, id)
	if err != nil {
		return nil, translateRepoError(err)
	}
	account.Sanitize()
	return account, nil
}

func (s *AccountService) List(ctx context.Context, params query.Params) (*query.Page[model.Account], error) {
	return s.accountRepo.List(ctx, params)
}

// UpdateProfile 住户修改自己的资料
func (s *AccountService) UpdateProfile(ctx context.Context, id int64, in AccountUpdate) (*model.Account, error) {
	in.Dues, in.Status, in.IsAdmin = nil, nil, nil
	return s.update(ctx, id, in)
}

// AdminUpdate 管理员修改账户
func (s *AccountService) AdminUpdate(ctx context.Context, id int64, in AccountUpdate) (*model.Account, error) {
	return s.update(ctx, id, in)
}

func (s *AccountService) SetStatus(ctx context.Context, id int64, status string) (*model.Account, error) {
	return s.update(ctx, id, AccountUpdate{Status: &status})
}

func (s *AccountService) update(ctx context.Context, id int64, in AccountUpdate) (*model.Account, error) {
	current, err := s.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, translateRepoError(err)
	}

	updates := map[string]interface{}{}
	verr := &ValidationError{}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			verr.Add("name", "姓名不能为空")
		}
		updates["name"] = name
	}
	email := ""
	if in.Email != nil {
		email = normalizeEmail(*in.Email)
		if email == "" {
			verr.Add("email", "邮箱不能为空")
		}
		updates["email"] = email
	}
	if in.MobileNumber != nil {
		if !isMobileNumber(*in.MobileNumber) {
			verr.Add("mobileNumber", "手机号必须是 10 位数字")
		}
		updates["mobile_number"] = *in.MobileNumber
	}
	houseType, houseNumber := current.HouseType, current.HouseNumber
	houseChanged := false
	if in.HouseType != nil {
		if !model.IsValidHouseType(*in.HouseType) {
			verr.Add("houseType", "户型只能是 2 或 3")
		}
		houseType, houseChanged = *in.HouseType, true
		updates["house_type"] = houseType
	}
	if in.HouseNumber != nil {
		houseNumber, houseChanged = strings.TrimSpace(*in.HouseNumber), true
		if houseNumber == "" {
			verr.Add("houseNumber", "房号不能为空")
		}
		updates["house_number"] = houseNumber
	}
	if in.Dues != nil {
		updates["dues"] = *in.Dues
	}
	if in.Status != nil {
		if !model.IsValidAccountStatus(*in.Status) {
			verr.Add("status", "状态只能是 active 或 inactive")
		}
		updates["status"] = *in.Status
	}
	if in.IsAdmin != nil {
		updates["is_admin"] = *in.IsAdmin
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		current.Sanitize()
		return current, nil
	}

	if !houseChanged {
		houseNumber = ""
	}
	if err := ensureUniqueAccount(ctx, s.accountRepo, email, houseType, houseNumber, id); err != nil {
		return nil, err
	}

	if err := s.accountRepo.Update(ctx, nil, id, updates); err != nil {
		return nil, translateRepoError(err)
	}

	updated, err := s.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, translateRepoError(err)
	}
	updated.Sanitize()
	return updated, nil
}

// Delete 删除账户及其全部缴费记录，提交后再清理文件
func (s *AccountService) Delete(ctx context.Context, id int64) error {
	var refs []string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.accountRepo.GetByIDForUpdate(ctx, tx, id); err != nil {
			return err
		}
		if err := s.earningRepo.DetachAccountPayments(ctx, tx, id); err != nil {
			return fmt.Errorf("解除收入记录关联失败: %w", err)
		}
		var err error
		refs, err = s.paymentRepo.DeleteByAccount(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("删除缴费记录失败: %w", err)
		}
		return s.accountRepo.Delete(ctx, tx, id)
	})
	if err != nil {
		if repository.IsNotFound(err) {
			return translateRepoError(err)
		}
		return inconsistentError("删除账户失败", err)
	}

	for _, ref := range refs {
		removeBlob(ctx, s.store, ref)
	}
	log.Printf("[AccountService] 账户已删除: id=%d, 清理文件 %d 个", id, len(refs))
	return nil
}

var exportHeader = []string{"name", "email", "mobileNumber", "houseNumber", "houseType", "dues", "status"}

// ExportCSV 按筛选条件导出全部账户（忽略分页参数）
func (s *AccountService) ExportCSV(ctx context.Context, params query.Params, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}

	params.Select = nil
	params.Limit = query.MaxLimit
	for page := 1; ; page++ {
		params.Page = page
		result, err := s.accountRepo.List(ctx, params)
		if err != nil {
			return err
		}
		for _, a := range result.Data {
			if err := cw.Write([]string{
				a.Name,
				a.Email,
				a.MobileNumber,
				a.HouseNumber,
				strconv.Itoa(a.HouseType),
				strconv.FormatInt(a.Dues, 10),
				a.Status,
			}); err != nil {
				return err
			}
		}
		if result.Pagination.Next == nil {
			break
		}
	}

	cw.Flush()
	return cw.Error()
}
