package model

import (
	"time"
)

const (
	AccountStatusActive   = "active"
	AccountStatusInactive = "inactive"
)

// 支持的户型，决定每月应缴金额
const (
	HouseType2 = 2
	HouseType3 = 3
)

func IsValidHouseType(houseType int) bool {
	return houseType == HouseType2 || houseType == HouseType3
}

func IsValidAccountStatus(status string) bool {
	return status == AccountStatusActive || status == AccountStatusInactive
}

// Account 住户账户表
// Dues 是住户当前欠缴金额：每月记账任务累加，缴费审核通过后扣减，允许为负（多缴）
type Account struct {
	ID             int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name           string     `gorm:"type:varchar(100);not null;index" json:"name"`
	Email          string     `gorm:"type:varchar(191);uniqueIndex;not null" json:"email"`
	PasswordHash   string     `gorm:"type:varchar(100);not null" json:"-"`
	MobileNumber   string     `gorm:"type:varchar(20);not null" json:"mobileNumber"`
	HouseNumber    string     `gorm:"type:varchar(32);not null;uniqueIndex:uk_house,priority:2" json:"houseNumber"`
	HouseType      int        `gorm:"not null;uniqueIndex:uk_house,priority:1" json:"houseType"`
	Dues           int64      `gorm:"not null;default:0" json:"dues"`
	Status         string     `gorm:"type:varchar(16);not null;default:active;index" json:"status"`
	IsAdmin        bool       `gorm:"not null;default:false" json:"isAdmin"`
	ResetTokenHash *string    `gorm:"type:varchar(64);uniqueIndex" json:"-"`
	ResetExpiresAt *time.Time `json:"-"`
	Payments       []Payment  `gorm:"foreignKey:AccountID" json:"payments,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Account) TableName() string {
	return "accounts"
}

// Sanitize 清除敏感字段，任何对外返回的账户都必须经过这里
func (a *Account) Sanitize() {
	a.PasswordHash = ""
	a.ResetTokenHash = nil
	a.ResetExpiresAt = nil
	for i := range a.Payments {
		a.Payments[i].Sanitize()
	}
}

func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}
