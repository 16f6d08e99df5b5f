package handler

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"societyhub/internal/model"
	"societyhub/pkg/response"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// RegisterValidators 注册自定义校验规则，字段名使用 json/form 标签
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return f.Name
		})
		_ = v.RegisterValidation("housetype", func(fl validator.FieldLevel) bool {
			return model.IsValidHouseType(int(fl.Field().Int()))
		})
		_ = v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
			return isTenDigits(fl.Field().String())
		})
		_ = v.RegisterValidation("paymentcategory", func(fl validator.FieldLevel) bool {
			return model.IsValidPaymentCategory(strings.ToLower(strings.TrimSpace(fl.Field().String())))
		})
		v.RegisterStructValidation(validateRegister, RegisterRequest{})
	})
}

func isTenDigits(s string) bool {
	if len(s) != 10 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// validateRegister 访问码必须是手机号后 4 位
func validateRegister(sl validator.StructLevel) {
	req := sl.Current().Interface().(RegisterRequest)
	if !isTenDigits(req.MobileNumber) || req.AccessCode == "" {
		return
	}
	if req.AccessCode != req.MobileNumber[len(req.MobileNumber)-4:] {
		sl.ReportError(req.AccessCode, "accessCode", "AccessCode", "accesscode", "")
	}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "不能为空"
	case "email":
		return "邮箱格式不正确"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("长度不能少于 %s", fe.Param())
		}
		return fmt.Sprintf("不能小于 %s", fe.Param())
	case "gt":
		return fmt.Sprintf("必须大于 %s", fe.Param())
	case "gte":
		return fmt.Sprintf("不能小于 %s", fe.Param())
	case "len":
		return fmt.Sprintf("长度必须为 %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("只能是 %s 之一", fe.Param())
	case "housetype":
		return "户型只能是 2 或 3"
	case "mobile":
		return "手机号必须是 10 位数字"
	case "accesscode":
		return "访问码必须是手机号后 4 位"
	case "paymentcategory":
		return "缴费类型只能是 maintenance、fund 或 other"
	case "eqfield":
		return fmt.Sprintf("必须与 %s 一致", fe.Param())
	}
	return "格式不正确"
}

func validationFields(errs validator.ValidationErrors) []response.FieldError {
	fields := make([]response.FieldError, 0, len(errs))
	for _, fe := range errs {
		fields = append(fields, response.FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return fields
}
