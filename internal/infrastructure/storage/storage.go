package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"societyhub/internal/config"
	"societyhub/pkg/idgen"
)

// 上传文件按业务分目录存放
const (
	DirPayments      = "payments"
	DirExpenditures  = "expenditures"
	DirEarnings      = "earnings"
	DirAnnouncements = "announcements"
	DirDocuments     = "documents"
)

var (
	ErrObjectNotFound = errors.New("文件不存在")
	ErrInvalidRef     = errors.New("非法的文件引用")
)

// Store 文件存储，ref 形如 payments/2024-01-15_14-30-52_12345678.png
type Store interface {
	Save(ctx context.Context, dir, originalName, contentType string, r io.Reader) (string, error)
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	Delete(ctx context.Context, ref string) error
}

// New 按配置创建存储实现
func New(cfg *config.StorageConfig, loc *time.Location) (Store, error) {
	switch cfg.Driver {
	case "", config.StorageDriverLocal:
		return NewLocalStore(cfg.LocalRoot, loc)
	case config.StorageDriverOSS:
		return NewOSSStore(&cfg.OSS, loc)
	default:
		return nil, fmt.Errorf("不支持的存储类型: %s", cfg.Driver)
	}
}

func newRef(dir, originalName string, loc *time.Location) (string, error) {
	if dir == "" || strings.ContainsAny(dir, `/\.`) {
		return "", ErrInvalidRef
	}
	return dir + "/" + idgen.GenerateFileName(loc, path.Base(strings.ReplaceAll(originalName, `\`, "/"))), nil
}

// cleanRef 校验引用，拒绝绝对路径和目录穿越
func cleanRef(ref string) (string, error) {
	if ref == "" || strings.Contains(ref, `\`) || strings.HasPrefix(ref, "/") {
		return "", ErrInvalidRef
	}
	cleaned := path.Clean(ref)
	if cleaned != ref || cleaned == "." || strings.HasPrefix(cleaned, "..") || strings.Contains(cleaned, "/../") {
		return "", ErrInvalidRef
	}
	if !strings.Contains(cleaned, "/") {
		return "", ErrInvalidRef
	}
	return cleaned, nil
}
