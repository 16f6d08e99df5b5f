package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// LocalStore 本地磁盘存储
type LocalStore struct {
	root string
	loc  *time.Location
}

func NewLocalStore(root string, loc *time.Location) (*LocalStore, error) {
	if root == "" {
		root = "uploads"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("创建上传目录失败: %w", err)
	}
	return &LocalStore{root: root, loc: loc}, nil
}

func (s *LocalStore) Save(ctx context.Context, dir, originalName, contentType string, r io.Reader) (string, error) {
	ref, err := newRef(dir, originalName, s.loc)
	if err != nil {
		return "", err
	}

	full := filepath.Join(s.root, filepath.FromSlash(ref))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("创建目录失败: %w", err)
	}

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("创建文件失败: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = os.Remove(full)
		return "", fmt.Errorf("写入文件失败: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(full)
		return "", fmt.Errorf("写入文件失败: %w", err)
	}
	return ref, nil
}

func (s *LocalStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	ref, err := cleanRef(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.root, filepath.FromSlash(ref)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrObjectNotFound
	}
	return f, err
}

// Delete 文件不存在视为成功
func (s *LocalStore) Delete(ctx context.Context, ref string) error {
	ref, err := cleanRef(ref)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.root, filepath.FromSlash(ref)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
