package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrAccountNotFound      = errors.New("账户不存在")
	ErrPaymentNotFound      = errors.New("缴费记录不存在")
	ErrExpenditureNotFound  = errors.New("支出记录不存在")
	ErrEarningNotFound      = errors.New("收入记录不存在")
	ErrTotalNotFound        = errors.New("累计金额尚未设置")
	ErrJobLogNotFound       = errors.New("任务记录不存在")
	ErrAnnouncementNotFound = errors.New("公告不存在")
	ErrDocumentNotFound     = errors.New("文档不存在")

	ErrPaymentStatusInvalid = errors.New("缴费状态不允许此操作")
	ErrDuplicateAccount     = errors.New("邮箱或房号已被注册")
	ErrEarningExists        = errors.New("该缴费已生成收入记录")
)

// IsNotFound 判断是否为记录不存在类错误
func IsNotFound(err error) bool {
	for _, target := range []error{
		ErrAccountNotFound,
		ErrPaymentNotFound,
		ErrExpenditureNotFound,
		ErrEarningNotFound,
		ErrTotalNotFound,
		ErrJobLogNotFound,
		ErrAnnouncementNotFound,
		ErrDocumentNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func notFound(err, target error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return target
	}
	return err
}
