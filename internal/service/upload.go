package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path"

	"societyhub/internal/infrastructure/storage"
)

// Upload 上传的文件
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// FileDownload 下载的文件，调用方负责关闭 Body
type FileDownload struct {
	Name string
	Body io.ReadCloser
}

func saveUpload(ctx context.Context, store storage.Store, dir string, up *Upload) (string, error) {
	if up == nil {
		return "", nil
	}
	ref, err := store.Save(ctx, dir, up.Filename, up.ContentType, up.Body)
	if err != nil {
		return "", fmt.Errorf("保存文件失败: %w", err)
	}
	return ref, nil
}

// removeBlob 删除文件失败只记录日志
func removeBlob(ctx context.Context, store storage.Store, ref string) {
	if ref == "" {
		return
	}
	if err := store.Delete(ctx, ref); err != nil {
		log.Printf("[Storage] 删除文件失败: ref=%s, err=%v", ref, err)
	}
}

func openBlob(ctx context.Context, store storage.Store, ref string) (*FileDownload, error) {
	if ref == "" {
		return nil, notFoundError("没有上传文件")
	}
	body, err := store.Open(ctx, ref)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) || errors.Is(err, storage.ErrInvalidRef) {
			return nil, notFoundError("文件不存在")
		}
		return nil, fmt.Errorf("读取文件失败: %w", err)
	}
	return &FileDownload{Name: path.Base(ref), Body: body}, nil
}
