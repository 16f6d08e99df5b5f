package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"societyhub/internal/config"
	"societyhub/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims 登录 token 载荷
type Claims struct {
	AccountID int64 `json:"uid"`
	IsAdmin   bool  `json:"adm"`
	jwt.RegisteredClaims
}

// TokenBlacklist 注销后的 token 记录，为 nil 时不支持注销
type TokenBlacklist interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// TokenManager HS256 签发和校验
type TokenManager struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

func NewTokenManager(cfg config.JWTConfig) *TokenManager {
	expiry := cfg.Expiry()
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &TokenManager{
		secret: []byte(cfg.Secret),
		expiry: expiry,
		now:    time.Now,
	}
}

func (m *TokenManager) Generate(account *model.Account) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.expiry)
	claims := Claims{
		AccountID: account.ID,
		IsAdmin:   account.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(account.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("签发 token 失败: %w", err)
	}
	return signed, expiresAt, nil
}

func (m *TokenManager) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, newError(ErrUnauthorized, "登录已过期，请重新登录", err)
		}
		return nil, newError(ErrUnauthorized, "token 无效", err)
	}
	if claims.AccountID == 0 || claims.ID == "" {
		return nil, unauthorizedError("token 无效")
	}
	return claims, nil
}
