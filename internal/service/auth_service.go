package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"societyhub/internal/config"
	"societyhub/internal/model"
	"societyhub/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 6

type AuthService struct {
	db          *gorm.DB
	cfg         *config.Config
	tokens      *TokenManager
	blacklist   TokenBlacklist
	notifier    *Notifier
	accountRepo *repository.AccountRepository
	now         func() time.Time
}

// NewAuthService blacklist 为 nil 时注销只在客户端生效
func NewAuthService(db *gorm.DB, cfg *config.Config, tokens *TokenManager, blacklist TokenBlacklist, notifier *Notifier) *AuthService {
	return &AuthService{
		db:          db,
		cfg:         cfg,
		tokens:      tokens,
		blacklist:   blacklist,
		notifier:    notifier,
		accountRepo: repository.NewAccountRepository(db),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

type RegisterInput struct {
	Name         string
	Email        string
	Password     string
	HouseNumber  string
	HouseType    int
	MobileNumber string
	AccessCode   string
}

type AuthResult struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expiresAt"`
	Account   *model.Account `json:"user"`
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	in.HouseNumber = strings.TrimSpace(in.HouseNumber)

	verr := &ValidationError{}
	if in.Name == "" {
		verr.Add("name", "姓名不能为空")
	}
	if len(in.Password) < minPasswordLength {
		verr.Add("password", fmt.Sprintf("密码至少 %d 位", minPasswordLength))
	}
	if !model.IsValidHouseType(in.HouseType) {
		verr.Add("houseType", "户型只能是 2 或 3")
	}
	if !isMobileNumber(in.MobileNumber) {
		verr.Add("mobileNumber", "手机号必须是 10 位数字")
	} else if in.AccessCode != in.MobileNumber[len(in.MobileNumber)-4:] {
		verr.Add("accessCode", "访问码必须是手机号后 4 位")
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	if err := s.ensureUnique(ctx, in.Email, in.HouseType, in.HouseNumber, 0); err != nil {
		return nil, err
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	account := &model.Account{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		MobileNumber: in.MobileNumber,
		HouseNumber:  in.HouseNumber,
		HouseType:    in.HouseType,
		Status:       model.AccountStatusActive,
	}
	if err := s.accountRepo.Create(ctx, account); err != nil {
		return nil, translateRepoError(err)
	}

	log.Printf("[AuthService] 新住户注册: id=%d, house=%d-%s", account.ID, account.HouseType, account.HouseNumber)
	return s.issue(account)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	account, err := s.accountRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, unauthorizedError("邮箱或密码错误")
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return nil, unauthorizedError("邮箱或密码错误")
	}
	if !account.IsActive() {
		return nil, forbiddenError("账户已停用")
	}
	return s.issue(account)
}

// Authenticate 校验 token，并以数据库中的账户状态为准
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*Claims, *model.Account, error) {
	claims, err := s.tokens.Parse(tokenString)
	if err != nil {
		return nil, nil, err
	}

	if s.blacklist != nil {
		revoked, err := s.blacklist.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("查询 token 黑名单失败: %w", err)
		}
		if revoked {
			return nil, nil, unauthorizedError("token 已注销")
		}
	}

	account, err := s.accountRepo.GetByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, nil, unauthorizedError("账户不存在")
		}
		return nil, nil, err
	}
	if !account.IsActive() {
		return nil, nil, forbiddenError("账户已停用")
	}
	account.Sanitize()
	return claims, account, nil
}

// Logout 将 token 加入黑名单直到其过期
func (s *AuthService) Logout(ctx context.Context, claims *Claims) error {
	if s.blacklist == nil || claims == nil || claims.ExpiresAt == nil {
		return nil
	}
	ttl := claims.ExpiresAt.Time.Sub(s.now())
	if err := s.blacklist.Revoke(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("注销 token 失败: %w", err)
	}
	return nil
}

// ForgotPassword 生成重置 token（只保存哈希），通过邮件发送重置链接
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	account, err := s.accountRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return notFoundError("该邮箱未注册")
		}
		return err
	}

	token := uuid.NewString()
	expiresAt := s.now().Add(s.cfg.Business.ResetTokenTTL())
	link := s.cfg.Business.ResetURL + token

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.accountRepo.Update(ctx, tx, account.ID, map[string]interface{}{
			"reset_token_hash": hashToken(token),
			"reset_expires_at": expiresAt,
		}); err != nil {
			return fmt.Errorf("保存重置 token 失败: %w", err)
		}

		body := fmt.Sprintf("您好 %s，\n\n请在 %d 分钟内打开以下链接重置密码：\n%s\n\n如果不是您本人操作，请忽略此邮件。",
			account.Name, s.cfg.Business.ResetTokenTTLMinutes, link)
		return s.notifier.Enqueue(ctx, tx, fmt.Sprintf("reset:%d", account.ID), []string{account.Email},
			s.cfg.Business.SocietyName+" 密码重置", body)
	})
}

// ResetPassword 校验重置 token 并设置新密码，token 一次性有效
func (s *AuthService) ResetPassword(ctx context.Context, token, password, confirm string) error {
	if err := validateNewPassword(password, confirm); err != nil {
		return err
	}

	account, err := s.accountRepo.GetByResetToken(ctx, hashToken(token), s.now())
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return NewValidationError("token", "重置链接无效或已过期")
		}
		return err
	}

	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	if err := s.accountRepo.Update(ctx, nil, account.ID, map[string]interface{}{
		"password_hash":    hash,
		"reset_token_hash": nil,
		"reset_expires_at": nil,
	}); err != nil {
		return translateRepoError(err)
	}

	log.Printf("[AuthService] 密码已重置: accountID=%d", account.ID)
	return nil
}

func (s *AuthService) ChangePassword(ctx context.Context, accountID int64, oldPassword, newPassword, confirm string) error {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return translateRepoError(err)
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(oldPassword)) != nil {
		return NewValidationError("oldPassword", "原密码错误")
	}
	if err := validateNewPassword(newPassword, confirm); err != nil {
		return err
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	return translateRepoError(s.accountRepo.Update(ctx, nil, accountID, map[string]interface{}{"password_hash": hash}))
}

func (s *AuthService) issue(account *model.Account) (*AuthResult, error) {
	token, expiresAt, err := s.tokens.Generate(account)
	if err != nil {
		return nil, err
	}
	account.Sanitize()
	return &AuthResult{Token: token, ExpiresAt: expiresAt, Account: account}, nil
}

func (s *AuthService) ensureUnique(ctx context.Context, email string, houseType int, houseNumber string, excludeID int64) error {
	return ensureUniqueAccount(ctx, s.accountRepo, email, houseType, houseNumber, excludeID)
}

func ensureUniqueAccount(ctx context.Context, repo *repository.AccountRepository, email string, houseType int, houseNumber string, excludeID int64) error {
	if email != "" {
		taken, err := repo.EmailTaken(ctx, email, excludeID)
		if err != nil {
			return err
		}
		if taken {
			return conflictError("该邮箱已被注册")
		}
	}
	if houseNumber != "" {
		taken, err := repo.HouseTaken(ctx, houseType, houseNumber, excludeID)
		if err != nil {
			return err
		}
		if taken {
			return conflictError("该房号已被注册")
		}
	}
	return nil
}

func validateNewPassword(password, confirm string) error {
	verr := &ValidationError{}
	if len(password) < minPasswordLength {
		verr.Add("password", fmt.Sprintf("密码至少 %d 位", minPasswordLength))
	}
	if password != confirm {
		verr.Add("confirmPassword", "两次输入的密码不一致")
	}
	return verr.orNil()
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("密码加密失败: %w", err)
	}
	return string(hash), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isMobileNumber(s string) bool {
	if len(s) != 10 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
