package service

import (
	"errors"
	"strings"

	"societyhub/internal/repository"
)

// 错误分类，handler 按分类映射 HTTP 状态码
var (
	ErrValidation        = errors.New("参数校验失败")
	ErrNotFound          = errors.New("资源不存在")
	ErrUnauthorized      = errors.New("未登录或登录已过期")
	ErrForbidden         = errors.New("没有权限")
	ErrConflict          = errors.New("资源冲突")
	ErrInconsistentState = errors.New("数据状态不一致")
)

// Error 带分类的业务错误，Message 直接返回给调用方
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func newError(kind error, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func notFoundError(message string) error     { return newError(ErrNotFound, message, nil) }
func conflictError(message string) error     { return newError(ErrConflict, message, nil) }
func forbiddenError(message string) error    { return newError(ErrForbidden, message, nil) }
func unauthorizedError(message string) error { return newError(ErrUnauthorized, message, nil) }

// inconsistentError 多步写操作未能整体提交，事务已回滚
func inconsistentError(message string, cause error) error {
	return newError(ErrInconsistentState, message, cause)
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError 字段级校验错误
type ValidationError struct {
	Fields []FieldError
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// orNil 没有字段错误时返回 nil
func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// translateRepoError 仓储层哨兵错误转换为业务错误分类
func translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var svcErr *Error
	var valErr *ValidationError
	if errors.As(err, &svcErr) || errors.As(err, &valErr) {
		return err
	}
	switch {
	case repository.IsNotFound(err):
		return newError(ErrNotFound, rootMessage(err), err)
	case errors.Is(err, repository.ErrPaymentStatusInvalid),
		errors.Is(err, repository.ErrDuplicateAccount),
		errors.Is(err, repository.ErrEarningExists):
		return newError(ErrConflict, rootMessage(err), err)
	}
	return err
}

func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
