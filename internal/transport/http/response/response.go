package response

import (
	"errors"

	"bugboard/internal/domain"
)

type Resp struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Kind string      `json:"kind,omitempty"`
	Data interface{} `json:"data"`
}

// New 构造函数（保证 data 不为 null）
func New(code int, msg string, data interface{}) Resp {
	if data == nil {
		data = struct{}{}
	}
	return Resp{Code: code, Msg: msg, Data: data}
}

// OK 成功响应
func OK(data interface{}) Resp {
	return New(CodeOK, CodeMsgMap[CodeOK], data)
}

// Error 失败响应（可以传自定义 msg 覆盖默认）
func Error(code int, customMsg string) Resp {
	msg := CodeMsgMap[code]
	if customMsg != "" {
		msg = customMsg
	}
	return New(code, msg, struct{}{})
}

// ErrData 失败时 data 里带的细节
type ErrData struct {
	Error     string `json:"error"`
	Field     string `json:"field,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

var kindCodes = map[domain.Kind]int{
	domain.KindValidation:   CodeBadRequest,
	domain.KindUnauthorized: CodeUnauthorized,
	domain.KindForbidden:    CodeForbidden,
	domain.KindNotFound:     CodeNotFound,
	domain.KindConflict:     CodeConflict,
	domain.KindStorage:      CodeUnavailable,
}

// CodeOf domain 错误大类 → 错误码，其它一律 500
func CodeOf(err error) int {
	if c, ok := kindCodes[domain.KindOf(err)]; ok {
		return c
	}
	return CodeServerError
}

// FromErr 业务错误 → 响应；非 domain 错误不暴露内部信息
func FromErr(err error) Resp {
	var de *domain.Error
	if !errors.As(err, &de) {
		return Error(CodeServerError, "")
	}
	r := New(CodeOf(err), de.Msg, ErrData{Error: de.Code, Field: de.Field, Retryable: de.Retryable})
	r.Kind = string(de.Kind)
	return r
}
