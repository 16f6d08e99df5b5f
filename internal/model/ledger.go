package model

import (
	"time"
)

// Expenditure 支出流水
type Expenditure struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Category    string    `gorm:"type:varchar(100);not null;index" json:"category"`
	Description string    `gorm:"type:varchar(500);not null" json:"description"`
	Amount      int64     `gorm:"not null" json:"amount"`
	Date        time.Time `gorm:"not null;index" json:"date"`
	FileRef     string    `gorm:"type:varchar(255)" json:"fileRef,omitempty"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Expenditure) TableName() string {
	return "expenditures"
}

// Earning 收入流水
// PaymentID 不为空表示由缴费审核自动生成，唯一索引保证一笔缴费最多生成一条收入
type Earning struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"type:varchar(100);not null;index" json:"name"`
	Category    string    `gorm:"type:varchar(100);not null;index" json:"category"`
	Description string    `gorm:"type:varchar(500);not null" json:"description"`
	Amount      int64     `gorm:"not null" json:"amount"`
	Date        time.Time `gorm:"not null;index" json:"date"`
	FileRef     string    `gorm:"type:varchar(255)" json:"fileRef,omitempty"`
	PaymentID   *int64    `gorm:"uniqueIndex" json:"paymentId,omitempty"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Earning) TableName() string {
	return "earnings"
}

// TotalMoneyCollectedID 汇总表只有一行
const TotalMoneyCollectedID = 1

// TotalMoneyCollected 已审核的物业费累计金额
type TotalMoneyCollected struct {
	ID          int64     `gorm:"primaryKey" json:"-"`
	TotalAmount int64     `gorm:"not null;default:0" json:"totalAmount"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (TotalMoneyCollected) TableName() string {
	return "total_money_collected"
}

const JobNameAccumulateDues = "accumulateDues"

// JobLog 定时任务最近一次成功执行时间，每个任务一行
type JobLog struct {
	ID        int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	JobName   string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"jobName"`
	LastRun   *time.Time `json:"lastRun"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (JobLog) TableName() string {
	return "job_logs"
}
