package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"societyhub/internal/config"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

// OSSStore 阿里云 OSS 存储，对象 key = prefix + ref
type OSSStore struct {
	bucket *oss.Bucket
	prefix string
	loc    *time.Location
}

func NewOSSStore(cfg *config.OSSConfig, loc *time.Location) (*OSSStore, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New("OSS endpoint 和 bucket 不能为空")
	}
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("oss.New: %w", err)
	}
	bucket, err := client.Bucket(cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("client.Bucket: %w", err)
	}
	return &OSSStore{
		bucket: bucket,
		prefix: normalizePrefix(cfg.Prefix),
		loc:    loc,
	}, nil
}

func normalizePrefix(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

func (s *OSSStore) Save(ctx context.Context, dir, originalName, contentType string, r io.Reader) (string, error) {
	ref, err := newRef(dir, originalName, s.loc)
	if err != nil {
		return "", err
	}
	opts := []oss.Option{oss.WithContext(ctx)}
	if contentType != "" {
		opts = append(opts, oss.ContentType(contentType))
	}
	if err := s.bucket.PutObject(s.prefix+ref, r, opts...); err != nil {
		return "", fmt.Errorf("上传 OSS 失败: %w", err)
	}
	return ref, nil
}

func (s *OSSStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	ref, err := cleanRef(ref)
	if err != nil {
		return nil, err
	}
	body, err := s.bucket.GetObject(s.prefix+ref, oss.WithContext(ctx))
	if err != nil {
		var se oss.ServiceError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return nil, ErrObjectNotFound
		}
		return nil, err
	}
	return body, nil
}

func (s *OSSStore) Delete(ctx context.Context, ref string) error {
	ref, err := cleanRef(ref)
	if err != nil {
		return err
	}
	return s.bucket.DeleteObject(s.prefix+ref, oss.WithContext(ctx))
}
