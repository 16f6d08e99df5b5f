package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"societyhub/internal/config"
	"societyhub/internal/infrastructure/storage"
	"societyhub/internal/model"
	"societyhub/internal/query"
	"societyhub/internal/repository"

	"gorm.io/gorm"
)

// ContentService 公告和公开文档
type ContentService struct {
	db               *gorm.DB
	cfg              *config.Config
	store            storage.Store
	notifier         *Notifier
	announcementRepo *repository.AnnouncementRepository
	documentRepo     *repository.DocumentRepository
	now              func() time.Time
}

func NewContentService(db *gorm.DB, cfg *config.Config, store storage.Store, notifier *Notifier) *ContentService {
	return &ContentService{
		db:               db,
		cfg:              cfg,
		store:            store,
		notifier:         notifier,
		announcementRepo: repository.NewAnnouncementRepository(db),
		documentRepo:     repository.NewDocumentRepository(db),
		now:              func() time.Time { return time.Now().UTC() },
	}
}

type ContentInput struct {
	Name        string
	Description string
	File        *Upload
}

func (in *ContentInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	verr := &ValidationError{}
	if in.Name == "" {
		verr.Add("name", "标题不能为空")
	}
	if in.Description == "" {
		verr.Add("description", "描述不能为空")
	}
	return verr.orNil()
}

// CreateAnnouncement 发布公告并邮件通知所有住户
func (s *ContentService) CreateAnnouncement(ctx context.Context, in ContentInput) (*model.Announcement, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	residents, err := s.notifier.ResidentContacts(ctx)
	if err != nil {
		return nil, err
	}
	fileRef, err := saveUpload(ctx, s.store, storage.DirAnnouncements, in.File)
	if err != nil {
		return nil, err
	}

	now := s.now()
	a := &model.Announcement{
		Name:        in.Name,
		Description: in.Description,
		FileRef:     fileRef,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.cfg.Business.AnnouncementTTL()),
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.announcementRepo.Create(ctx, tx, a); err != nil {
			return fmt.Errorf("创建公告失败: %w", err)
		}
		subject := fmt.Sprintf("[%s] 新公告：%s", s.cfg.Business.SocietyName, a.Name)
		return s.notifier.Enqueue(ctx, tx, fmt.Sprintf("announcement:%d", a.ID), residents, subject, a.Description)
	})
	if err != nil {
		removeBlob(ctx, s.store, fileRef)
		return nil, err
	}

	log.Printf("[ContentService] 公告已发布: id=%d, 通知 %d 人", a.ID, len(residents))
	return a, nil
}

func (s *ContentService) ListAnnouncements(ctx context.Context, params query.Params) (*query.Page[model.Announcement], error) {
	return s.announcementRepo.ListActive(ctx, params, s.now())
}

func (s *ContentService) OpenAnnouncementFile(ctx context.Context, id int64) (*FileDownload, error) {
	a, err := s.announcementRepo.GetActive(ctx, id, s.now())
	if err != nil {
		return nil, translateRepoError(err)
	}
	return openBlob(ctx, s.store, a.FileRef)
}

func (s *ContentService) DeleteAnnouncement(ctx context.Context, id int64) error {
	a, err := s.announcementRepo.GetByID(ctx, id)
	if err != nil {
		return translateRepoError(err)
	}
	if err := s.announcementRepo.Delete(ctx, id); err != nil {
		return translateRepoError(err)
	}
	removeBlob(ctx, s.store, a.FileRef)
	return nil
}

// PurgeExpiredAnnouncements 删除已过期的公告及其文件，返回删除数量
func (s *ContentService) PurgeExpiredAnnouncements(ctx context.Context, limit int) (int, error) {
	now := s.now()
	expired, err := s.announcementRepo.GetExpired(ctx, now, limit)
	if err != nil {
		return 0, fmt.Errorf("查询过期公告失败: %w", err)
	}

	purged := 0
	for _, a := range expired {
		deleted, err := s.announcementRepo.DeleteExpired(ctx, a.ID, now)
		if err != nil {
			log.Printf("[ContentService] 删除过期公告失败: id=%d, err=%v", a.ID, err)
			continue
		}
		if !deleted {
			continue
		}
		removeBlob(ctx, s.store, a.FileRef)
		purged++
	}
	return purged, nil
}

// UploadDocument 上传公开文档，必须带文件
func (s *ContentService) UploadDocument(ctx context.Context, in ContentInput) (*model.Document, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.File == nil {
		return nil, NewValidationError("file", "请上传文件")
	}
	fileRef, err := saveUpload(ctx, s.store, storage.DirDocuments, in.File)
	if err != nil {
		return nil, err
	}

	d := &model.Document{
		Name:        in.Name,
		Description: in.Description,
		FileRef:     fileRef,
		UploadedAt:  s.now(),
	}
	if err := s.documentRepo.Create(ctx, d); err != nil {
		removeBlob(ctx, s.store, fileRef)
		return nil, fmt.Errorf("保存文档失败: %w", err)
	}
	return d, nil
}

func (s *ContentService) ListDocuments(ctx context.Context, params query.Params) (*query.Page[model.Document], error) {
	return s.documentRepo.List(ctx, params)
}

func (s *ContentService) GetDocument(ctx context.Context, id int64) (*model.Document, error) {
	d, err := s.documentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, translateRepoError(err)
	}
	return d, nil
}

func (s *ContentService) OpenDocumentFile(ctx context.Context, id int64) (*FileDownload, error) {
	d, err := s.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	return openBlob(ctx, s.store, d.FileRef)
}

func (s *ContentService) DeleteDocument(ctx context.Context, id int64) error {
	d, err := s.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	if err := s.documentRepo.Delete(ctx, id); err != nil {
		return translateRepoError(err)
	}
	removeBlob(ctx, s.store, d.FileRef)
	return nil
}
