package domain

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// 错误里用 json 字段名
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate 按 validate 标签校验实体，返回第一个失败字段对应的 domain 错误。
// 字符串长度按 rune 计。
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) || len(ves) == 0 {
		return ErrInvalidField.Wrap(err)
	}
	fe := ves[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return ErrFieldRequired.OnField(field).Withf("%s is required", field)
	case "max":
		return ErrFieldTooLong.OnField(field).Withf("%s exceeds max length %s", field, fe.Param())
	case "oneof":
		return ErrInvalidEnum.OnField(field).Withf("%s must be one of [%s]", field, fe.Param())
	case "email":
		return ErrInvalidEmail.OnField(field).Withf("%s is not a valid email", field)
	}
	return ErrInvalidField.OnField(field).Withf("%s is invalid (%s)", field, fe.Tag())
}
