package handler

import (
	"errors"
	"fmt"
	"log"
	"mime"
	"mime/multipart"
	"net/http"
	"path"
	"strconv"
	"time"

	"societyhub/internal/config"
	"societyhub/internal/infrastructure/storage"
	"societyhub/internal/query"
	"societyhub/internal/service"
	"societyhub/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	cfg      *config.Config
	auth     *service.AuthService
	accounts *service.AccountService
	payments *service.PaymentService
	ledger   *service.LedgerService
	content  *service.ContentService
	accrual  *service.AccrualService
}

// NewHandler rdb 为 nil 时不启用分布式锁和 token 黑名单
func NewHandler(db *gorm.DB, rdb *redis.Client, cfg *config.Config, store storage.Store, blacklist service.TokenBlacklist) *Handler {
	notifier := service.NewNotifier(db, cfg)
	return &Handler{
		cfg:      cfg,
		auth:     service.NewAuthService(db, cfg, service.NewTokenManager(cfg.JWT), blacklist, notifier),
		accounts: service.NewAccountService(db, store),
		payments: service.NewPaymentService(db, rdb, cfg, store, notifier),
		ledger:   service.NewLedgerService(db, store),
		content:  service.NewContentService(db, cfg, store, notifier),
		accrual:  service.NewAccrualService(db, rdb, cfg),
	}
}

// respondError 业务错误按分类映射状态码，其他错误只记录日志并返回通用提示
func respondError(c *gin.Context, err error) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		fields := make([]response.FieldError, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			fields = append(fields, response.FieldError{Field: f.Field, Message: f.Message})
		}
		response.ParamError(c, service.ErrValidation.Error(), fields...)
		return
	}

	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		switch {
		case errors.Is(svcErr.Kind, service.ErrNotFound):
			response.NotFound(c, svcErr.Message)
		case errors.Is(svcErr.Kind, service.ErrUnauthorized):
			response.Unauthorized(c, svcErr.Message)
		case errors.Is(svcErr.Kind, service.ErrForbidden):
			response.Forbidden(c, svcErr.Message)
		case errors.Is(svcErr.Kind, service.ErrConflict):
			response.Conflict(c, svcErr.Message)
		default:
			log.Printf("[HTTP] %s %s 失败: %v", c.Request.Method, c.Request.URL.Path, err)
			response.ServerError(c, svcErr.Message)
		}
		return
	}

	log.Printf("[HTTP] %s %s 内部错误: %v", c.Request.Method, c.Request.URL.Path, err)
	response.ServerError(c, "服务器内部错误")
}

// bindError 请求体解析或校验失败
func bindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		response.ParamError(c, service.ErrValidation.Error(), validationFields(verrs)...)
		return
	}
	response.ParamError(c, "请求格式错误")
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.ParamError(c, "id 参数错误", response.FieldError{Field: "id", Message: "必须是正整数"})
		return 0, false
	}
	return id, true
}

func listParams(c *gin.Context) query.Params {
	return query.ParseParams(c.Request.URL.Query())
}

// parseDate 支持 2006-01-02 和 RFC3339，空字符串返回 nil
func parseDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, service.NewValidationError("date", "日期格式应为 YYYY-MM-DD")
	}
	return &t, nil
}

// formFile 读取可选的上传文件，未上传时返回 nil
// 调用方负责执行返回的 close
func (h *Handler) formFile(c *gin.Context, field string) (*service.Upload, func(), error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, func() {}, nil
		}
		return nil, func() {}, service.NewValidationError(field, "文件读取失败")
	}
	if limit := h.cfg.Server.MaxUploadMB << 20; limit > 0 && fh.Size > limit {
		return nil, func() {}, service.NewValidationError(field, fmt.Sprintf("文件不能超过 %dMB", h.cfg.Server.MaxUploadMB))
	}
	f, err := fh.Open()
	if err != nil {
		return nil, func() {}, fmt.Errorf("打开上传文件失败: %w", err)
	}
	return &service.Upload{
		Filename:    fh.Filename,
		ContentType: contentType(fh),
		Body:        f,
	}, func() { f.Close() }, nil
}

func contentType(fh *multipart.FileHeader) string {
	if ct := fh.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// serveFile 以附件形式返回文件
func serveFile(c *gin.Context, file *service.FileDownload, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	defer file.Body.Close()

	ct := mime.TypeByExtension(path.Ext(file.Name))
	if ct == "" {
		ct = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, -1, ct, file.Body, map[string]string{
		"Content-Disposition": mime.FormatMediaType("attachment", map[string]string{"filename": file.Name}),
	})
}

func (h *Handler) Health(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok"})
}
