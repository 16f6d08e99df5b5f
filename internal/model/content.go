package model

import (
	"time"
)

// Announcement 公告，到期后由清理任务删除
type Announcement struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"type:varchar(200);not null;index" json:"name"`
	Description string    `gorm:"type:text;not null" json:"description"`
	FileRef     string    `gorm:"type:varchar(255)" json:"fileRef,omitempty"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
	ExpiresAt   time.Time `gorm:"not null;index" json:"expiresAt"`
}

func (Announcement) TableName() string {
	return "announcements"
}

// Document 公开文档
type Document struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"type:varchar(200);not null;index" json:"name"`
	Description string    `gorm:"type:text;not null" json:"description"`
	FileRef     string    `gorm:"type:varchar(255);not null" json:"fileRef"`
	UploadedAt  time.Time `gorm:"not null;index" json:"uploadedAt"`
}

func (Document) TableName() string {
	return "documents"
}
