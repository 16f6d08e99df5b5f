package repository

import (
	"context"
	"time"

	"societyhub/internal/model"
	"societyhub/internal/query"

	"gorm.io/gorm"
)

type AnnouncementRepository struct {
	db *gorm.DB
}

func NewAnnouncementRepository(db *gorm.DB) *AnnouncementRepository {
	return &AnnouncementRepository{db: db}
}

func (r *AnnouncementRepository) Create(ctx context.Context, tx *gorm.DB, a *model.Announcement) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(a).Error
}

// GetActive 未过期的公告
func (r *AnnouncementRepository) GetActive(ctx context.Context, id int64, now time.Time) (*model.Announcement, error) {
	var a model.Announcement
	err := r.db.WithContext(ctx).Where("id = ? AND expires_at > ?", id, now).First(&a).Error
	if err != nil {
		return nil, notFound(err, ErrAnnouncementNotFound)
	}
	return &a, nil
}

func (r *AnnouncementRepository) GetByID(ctx context.Context, id int64) (*model.Announcement, error) {
	var a model.Announcement
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, notFound(err, ErrAnnouncementNotFound)
	}
	return &a, nil
}

func (r *AnnouncementRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Announcement{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAnnouncementNotFound
	}
	return nil
}

// GetExpired 查询已过期的公告，供清理任务使用
func (r *AnnouncementRepository) GetExpired(ctx context.Context, now time.Time, limit int) ([]*model.Announcement, error) {
	var list []*model.Announcement
	err := r.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

// DeleteExpired 删除指定的过期公告，再次校验过期时间
func (r *AnnouncementRepository) DeleteExpired(ctx context.Context, id int64, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND expires_at <= ?", id, now).
		Delete(&model.Announcement{})
	return result.RowsAffected > 0, result.Error
}

func (r *AnnouncementRepository) ListActive(ctx context.Context, params query.Params, now time.Time) (*query.Page[model.Announcement], error) {
	return query.Find[model.Announcement](ctx, r.db, AnnouncementSchema, params, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("announcements.expires_at > ?", now)
	})
}

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, d *model.Document) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *DocumentRepository) GetByID(ctx context.Context, id int64) (*model.Document, error) {
	var d model.Document
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&d).Error; err != nil {
		return nil, notFound(err, ErrDocumentNotFound)
	}
	return &d, nil
}

func (r *DocumentRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Document{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

func (r *DocumentRepository) List(ctx context.Context, params query.Params) (*query.Page[model.Document], error) {
	return query.Find[model.Document](ctx, r.db, DocumentSchema, params)
}
