package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"societyhub/internal/config"
	"societyhub/internal/infrastructure/lock"
	"societyhub/internal/infrastructure/storage"
	"societyhub/internal/model"
	"societyhub/internal/query"
	"societyhub/internal/repository"
	"societyhub/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Principal 当前请求的登录身份
type Principal struct {
	AccountID int64
	IsAdmin   bool
}

type PaymentService struct {
	db             *gorm.DB
	redisClient    *redis.Client
	cfg            *config.Config
	store          storage.Store
	notifier       *Notifier
	accountRepo    *repository.AccountRepository
	paymentRepo    *repository.PaymentRepository
	earningRepo    *repository.EarningRepository
	collectionRepo *repository.CollectionRepository
	now            func() time.Time
}

// NewPaymentService redisClient 为 nil 时审核不加分布式锁，依靠数据库行锁保证正确性
func NewPaymentService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config, store storage.Store, notifier *Notifier) *PaymentService {
	return &PaymentService{
		db:             db,
		redisClient:    redisClient,
		cfg:            cfg,
		store:          store,
		notifier:       notifier,
		accountRepo:    repository.NewAccountRepository(db),
		paymentRepo:    repository.NewPaymentRepository(db),
		earningRepo:    repository.NewEarningRepository(db),
		collectionRepo: repository.NewCollectionRepository(db),
		now:            func() time.Time { return time.Now().UTC() },
	}
}

type SubmitPaymentInput struct {
	Amount            int64
	Category          string
	OtherCategoryType string
	Description       string
	File              *Upload
}

func validatePaymentInput(in *SubmitPaymentInput) error {
	in.Category = strings.ToLower(strings.TrimSpace(in.Category))
	in.OtherCategoryType = strings.TrimSpace(in.OtherCategoryType)

	verr := &ValidationError{}
	if in.Amount <= 0 {
		verr.Add("amount", "金额必须大于 0")
	}
	if !model.IsValidPaymentCategory(in.Category) {
		verr.Add("category", "缴费类型只能是 maintenance、fund 或 other")
	}
	if in.Category == model.PaymentCategoryOther && in.OtherCategoryType == "" {
		verr.Add("otherCategoryType", "类型为 other 时必须填写具体类型")
	}
	if in.Category != model.PaymentCategoryOther {
		in.OtherCategoryType = ""
	}
	return verr.orNil()
}

// Submit 住户提交缴费凭证，生成待审核记录并通知管理员
func (s *PaymentService) Submit(ctx context.Context, accountID int64, in SubmitPaymentInput) (*model.Payment, error) {
	if err := validatePaymentInput(&in); err != nil {
		return nil, err
	}

	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, translateRepoError(err)
	}
	admins, err := s.notifier.AdminContacts(ctx)
	if err != nil {
		return nil, err
	}

	fileRef, err := saveUpload(ctx, s.store, storage.DirPayments, in.File)
	if err != nil {
		return nil, err
	}

	payment := &model.Payment{
		PaymentNo:         idgen.GeneratePaymentNo(),
		AccountID:         accountID,
		Amount:            in.Amount,
		Category:          in.Category,
		OtherCategoryType: in.OtherCategoryType,
		Description:       in.Description,
		FileRef:           fileRef,
		Status:            model.PaymentStatusPending,
		Date:              s.now(),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.paymentRepo.Create(ctx, tx, payment); err != nil {
			return fmt.Errorf("创建缴费记录失败: %w", err)
		}
		subject := fmt.Sprintf("[%s] 缴费待审核 %s", s.cfg.Business.SocietyName, payment.PaymentNo)
		body := fmt.Sprintf("住户 %s（%d-%s）提交了一笔缴费：\n单号：%s\n类型：%s\n金额：%d\n说明：%s\n请登录后台审核。",
			account.Name, account.HouseType, account.HouseNumber,
			payment.PaymentNo, payment.EarningCategory(), payment.Amount, payment.Description)
		return s.notifier.Enqueue(ctx, tx, payment.PaymentNo, admins, subject, body)
	})
	if err != nil {
		removeBlob(ctx, s.store, fileRef)
		return nil, err
	}

	log.Printf("[PaymentService] 缴费已提交: paymentNo=%s, accountID=%d, amount=%d", payment.PaymentNo, accountID, payment.Amount)
	return payment, nil
}

// ListOwn 住户自己的缴费记录
func (s *PaymentService) ListOwn(ctx context.Context, accountID int64, params query.Params) (*query.Page[model.Payment], error) {
	return s.paymentRepo.List(ctx, params, repository.ByAccount(accountID))
}

func (s *PaymentService) List(ctx context.Context, params query.Params) (*query.Page[model.Payment], error) {
	return s.paymentRepo.List(ctx, params)
}

func (s *PaymentService) ListPending(ctx context.Context, params query.Params) (*query.Page[model.Payment], error) {
	return s.paymentRepo.List(ctx, params, repository.ByPaymentStatus(model.PaymentStatusPending))
}

// Get 只有缴费人本人或管理员可以查看
func (s *PaymentService) Get(ctx context.Context, who Principal, id int64) (*model.Payment, error) {
	payment, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, translateRepoError(err)
	}
	if !who.IsAdmin && payment.AccountID != who.AccountID {
		return nil, forbiddenError("无权查看该缴费记录")
	}
	return payment, nil
}

func (s *PaymentService) OpenFile(ctx context.Context, who Principal, id int64) (*FileDownload, error) {
	payment, err := s.Get(ctx, who, id)
	if err != nil {
		return nil, err
	}
	return openBlob(ctx, s.store, payment.FileRef)
}

// Approve 审核通过
//
// 同一事务内：锁定缴费行 -> 状态 pending->approved -> 扣减住户欠费
// -> 物业费累加到总收款 -> 生成收入记录 -> 写入通知
// 任何一步失败整体回滚，不会出现只扣了欠费却没有收入记录的情况
func (s *PaymentService) Approve(ctx context.Context, id int64) (*model.Payment, error) {
	return s.review(ctx, id, model.PaymentStatusApproved)
}

// Reject 审核拒绝，只改状态并通知住户
func (s *PaymentService) Reject(ctx context.Context, id int64) (*model.Payment, error) {
	return s.review(ctx, id, model.PaymentStatusRejected)
}

func (s *PaymentService) review(ctx context.Context, id int64, target string) (*model.Payment, error) {
	if s.redisClient != nil {
		reviewLock := lock.NewPaymentReviewLock(s.redisClient, id, uuid.NewString())
		if err := reviewLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
			if errors.Is(err, lock.ErrLockFailed) {
				return nil, conflictError("该缴费正在审核中，请稍后重试")
			}
			return nil, fmt.Errorf("获取审核锁失败: %w", err)
		}
		defer reviewLock.Unlock(ctx)
	}

	// 收件人在事务外查询
	current, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, translateRepoError(err)
	}
	if current.Status != model.PaymentStatusPending {
		return nil, conflictError(fmt.Sprintf("缴费状态为 %s，不能重复审核", current.Status))
	}
	var recipients []string
	if current.Account != nil && current.Account.Email != "" {
		recipients = []string{current.Account.Email}
	}

	reviewedAt := s.now()
	var payment *model.Payment
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		payment, err = s.paymentRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if payment.Status != model.PaymentStatusPending {
			return repository.ErrPaymentStatusInvalid
		}
		if err := s.paymentRepo.UpdateStatus(ctx, tx, id, model.PaymentStatusPending, target, reviewedAt); err != nil {
			return err
		}
		payment.Status = target
		payment.ReviewedAt = &reviewedAt

		var subject, body string
		if target == model.PaymentStatusApproved {
			account, err := s.settle(ctx, tx, payment)
			if err != nil {
				return err
			}
			subject = fmt.Sprintf("[%s] 缴费已确认 %s", s.cfg.Business.SocietyName, payment.PaymentNo)
			body = fmt.Sprintf("%s 您好，您提交的缴费（单号 %s，金额 %d）已审核通过。当前欠费：%d。",
				account.Name, payment.PaymentNo, payment.Amount, account.Dues-payment.Amount)
		} else {
			subject = fmt.Sprintf("[%s] 缴费未通过 %s", s.cfg.Business.SocietyName, payment.PaymentNo)
			body = fmt.Sprintf("您提交的缴费（单号 %s，金额 %d）未通过审核，如有疑问请联系物业。",
				payment.PaymentNo, payment.Amount)
		}
		return s.notifier.Enqueue(ctx, tx, payment.PaymentNo+":"+target, recipients, subject, body)
	})
	if err != nil {
		if errors.Is(err, repository.ErrPaymentStatusInvalid) || repository.IsNotFound(err) {
			return nil, translateRepoError(err)
		}
		log.Printf("[PaymentService] 审核失败已回滚: paymentID=%d, target=%s, err=%v", id, target, err)
		return nil, inconsistentError("审核失败，所有修改已回滚", err)
	}

	log.Printf("[PaymentService] 审核完成: paymentNo=%s, status=%s", payment.PaymentNo, target)
	payment.Account = current.Account
	if target == model.PaymentStatusApproved && payment.Account != nil {
		payment.Account.Dues -= payment.Amount
	}
	return payment, nil
}

// settle 审核通过后的账务处理，返回扣减前的账户
func (s *PaymentService) settle(ctx context.Context, tx *gorm.DB, payment *model.Payment) (*model.Account, error) {
	account, err := s.accountRepo.GetByIDForUpdate(ctx, tx, payment.AccountID)
	if err != nil {
		return nil, err
	}
	if err := s.accountRepo.DecreaseDues(ctx, tx, account.ID, payment.Amount); err != nil {
		return nil, fmt.Errorf("扣减欠费失败: %w", err)
	}

	if payment.Category == model.PaymentCategoryMaintenance {
		if err := s.collectionRepo.Add(ctx, tx, payment.Amount); err != nil {
			return nil, fmt.Errorf("累加总收款失败: %w", err)
		}
	}

	paymentID := payment.ID
	earning := &model.Earning{
		Name:        account.Name,
		Category:    payment.EarningCategory(),
		Description: payment.Description,
		Amount:      payment.Amount,
		Date:        payment.Date,
		FileRef:     payment.FileRef,
		PaymentID:   &paymentID,
	}
	if err := s.earningRepo.Create(ctx, tx, earning); err != nil {
		return nil, fmt.Errorf("生成收入记录失败: %w", err)
	}
	return account, nil
}

// Delete 删除缴费记录，文件删除失败只记日志
// 已审核通过的缴费，凭证文件转归生成的收入记录，不删除
func (s *PaymentService) Delete(ctx context.Context, id int64) error {
	payment, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		return translateRepoError(err)
	}

	var detached int64
	err = s.db.Transaction(func(tx *gorm.DB) error {
		n, err := s.earningRepo.DetachPayment(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("解除收入记录关联失败: %w", err)
		}
		detached = n
		return s.paymentRepo.Delete(ctx, tx, id)
	})
	if err != nil {
		if repository.IsNotFound(err) {
			return translateRepoError(err)
		}
		return inconsistentError("删除缴费记录失败", err)
	}

	if detached == 0 {
		removeBlob(ctx, s.store, payment.FileRef)
	}
	log.Printf("[PaymentService] 缴费已删除: paymentNo=%s, 保留给收入记录=%t", payment.PaymentNo, detached > 0)
	return nil
}
