package model

import (
	"time"
)

const (
	PaymentStatusPending  = "pending"
	PaymentStatusApproved = "approved"
	PaymentStatusRejected = "rejected"
)

const (
	PaymentCategoryMaintenance = "maintenance"
	PaymentCategoryFund        = "fund"
	PaymentCategoryOther       = "other"
)

// 状态只能单向流转：pending -> approved / rejected
var ValidStatusTransitions = map[string][]string{
	PaymentStatusPending: {PaymentStatusApproved, PaymentStatusRejected},
}

func CanTransitionTo(currentStatus, targetStatus string) bool {
	allowedStatuses, exists := ValidStatusTransitions[currentStatus]
	if !exists {
		return false
	}
	for _, s := range allowedStatuses {
		if s == targetStatus {
			return true
		}
	}
	return false
}

func IsValidPaymentCategory(category string) bool {
	switch category {
	case PaymentCategoryMaintenance, PaymentCategoryFund, PaymentCategoryOther:
		return true
	}
	return false
}

// Payment 住户缴费记录，提交后待管理员审核
type Payment struct {
	ID                int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	PaymentNo         string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"paymentNo"`
	AccountID         int64      `gorm:"index;not null" json:"accountId"`
	Account           *Account   `gorm:"foreignKey:AccountID" json:"user,omitempty"`
	Amount            int64      `gorm:"not null" json:"amount"`
	Category          string     `gorm:"type:varchar(32);not null;index" json:"category"`
	OtherCategoryType string     `gorm:"type:varchar(100)" json:"otherCategoryType,omitempty"`
	Description       string     `gorm:"type:varchar(500)" json:"description"`
	FileRef           string     `gorm:"type:varchar(255)" json:"fileRef,omitempty"`
	Status            string     `gorm:"type:varchar(20);index;not null;default:pending" json:"status"`
	ReviewedAt        *time.Time `json:"reviewedAt,omitempty"`
	Date              time.Time  `gorm:"not null;index" json:"date"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Payment) TableName() string {
	return "payments"
}

// EarningCategory 审核通过后生成收入记录使用的分类
func (p *Payment) EarningCategory() string {
	if p.Category == PaymentCategoryOther && p.OtherCategoryType != "" {
		return p.OtherCategoryType
	}
	return p.Category
}

func (p *Payment) Sanitize() {
	if p.Account != nil {
		p.Account.Sanitize()
	}
}
