package handler

import (
	"log"
	"net/http"
	"strings"
	"time"

	"societyhub/internal/model"
	"societyhub/internal/service"
	"societyhub/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	ctxClaims  = "claims"
	ctxAccount = "account"
)

// LoggerMiddleware 日志中间件
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if query != "" {
			path = path + "?" + query
		}

		log.Printf("[HTTP] %d | %13v | %15s | %-7s %s",
			status,
			latency,
			c.ClientIP(),
			c.Request.Method,
			path,
		)
	}
}

// RecoveryMiddleware 恢复中间件，防止 panic 导致服务崩溃
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("[PANIC] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
				response.ServerError(c, "服务器内部错误")
			}
		}()
		c.Next()
	}
}

// CORSMiddleware 跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, X-Request-ID")
		c.Header("Access-Control-Expose-Headers", "Content-Disposition")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// AuthMiddleware 校验 Bearer token，账户状态以数据库为准
func AuthMiddleware(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			response.Unauthorized(c, "请先登录")
			return
		}

		claims, account, err := auth.Authenticate(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			respondError(c, err)
			return
		}

		c.Set(ctxClaims, claims)
		c.Set(ctxAccount, account)
		c.Next()
	}
}

// RequireAdmin 必须在 AuthMiddleware 之后使用
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		account := currentAccount(c)
		if account == nil || !account.IsAdmin {
			response.Forbidden(c, "需要管理员权限")
			return
		}
		c.Next()
	}
}

func currentAccount(c *gin.Context) *model.Account {
	v, ok := c.Get(ctxAccount)
	if !ok {
		return nil
	}
	account, _ := v.(*model.Account)
	return account
}

func currentClaims(c *gin.Context) *service.Claims {
	v, ok := c.Get(ctxClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*service.Claims)
	return claims
}

func principal(c *gin.Context) service.Principal {
	account := currentAccount(c)
	if account == nil {
		return service.Principal{}
	}
	return service.Principal{AccountID: account.ID, IsAdmin: account.IsAdmin}
}
