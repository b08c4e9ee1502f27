package domain

import (
	"errors"
	"fmt"
)

// Kind 错误大类，transport 层据此映射状态码
type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindStorage      Kind = "storage"
	KindForbidden    Kind = "forbidden"
	KindUnauthorized Kind = "unauthorized"
)

// Error 统一业务错误。errors.Is 按 Code 比较，Msg 可以按场景改写。
type Error struct {
	Kind      Kind
	Code      string
	Msg       string
	Field     string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Withf 复制一份并替换 msg
func (e *Error) Withf(format string, args ...any) *Error {
	cp := *e
	cp.Msg = fmt.Sprintf(format, args...)
	return &cp
}

// OnField 复制一份并标记字段
func (e *Error) OnField(field string) *Error {
	cp := *e
	cp.Field = field
	return &cp
}

// Wrap 复制一份并挂上底层错误
func (e *Error) Wrap(err error) *Error {
	cp := *e
	cp.Err = err
	return &cp
}

func newErr(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Msg: msg}
}

var (
	// 附件
	ErrAttachmentTooLarge  = newErr(KindValidation, "attachment_too_large", fmt.Sprintf("attachment exceeds max size of %d bytes", MaxAttachmentBytes))
	ErrAttachmentParent    = newErr(KindValidation, "attachment_parent", "attachment must belong to exactly one of issue or comment")
	ErrFileTypeNotAllowed  = newErr(KindValidation, "file_type_not_allowed", "file type not allowed")
	ErrExtensionMismatch   = newErr(KindValidation, "extension_mismatch", "file extension does not match its mime type")
	ErrContentMismatch     = newErr(KindValidation, "content_mismatch", "file content does not match its mime type")
	ErrTooManyAttachments  = newErr(KindValidation, "too_many_attachments", fmt.Sprintf("too many attachments, max %d", MaxAttachmentsPerParent))
	ErrStoredNameCollision = &Error{Kind: KindConflict, Code: "stored_name_collision", Msg: "stored filename collision, retry the upload", Retryable: true}
	ErrStorageIO           = &Error{Kind: KindStorage, Code: "storage_io", Msg: "file storage failure", Retryable: true}

	// 通用校验
	ErrFieldRequired = newErr(KindValidation, "field_required", "field is required")
	ErrFieldTooLong  = newErr(KindValidation, "field_too_long", "field is too long")
	ErrInvalidEnum   = newErr(KindValidation, "invalid_enum", "invalid enum value")
	ErrInvalidEmail  = newErr(KindValidation, "invalid_email", "invalid email")
	ErrInvalidField  = newErr(KindValidation, "invalid_field", "invalid field")

	// 唯一约束
	ErrDuplicateEmail       = newErr(KindConflict, "duplicate_email", "email already registered")
	ErrDuplicateProjectName = newErr(KindConflict, "duplicate_project_name", "project name already exists")
	ErrDuplicateExternalID  = newErr(KindConflict, "duplicate_external_id", "external identity already linked")
	ErrUserHasContent       = newErr(KindConflict, "user_has_content", "user has authored issues or comments")

	// 不存在
	ErrUserNotFound       = newErr(KindNotFound, "user_not_found", "user not found")
	ErrProjectNotFound    = newErr(KindNotFound, "project_not_found", "project not found")
	ErrIssueNotFound      = newErr(KindNotFound, "issue_not_found", "issue not found")
	ErrCommentNotFound    = newErr(KindNotFound, "comment_not_found", "comment not found")
	ErrAttachmentNotFound = newErr(KindNotFound, "attachment_not_found", "attachment not found")

	// 权限
	ErrForbidden    = newErr(KindForbidden, "forbidden", "forbidden")
	ErrSelfDelete   = newErr(KindForbidden, "self_delete", "cannot delete yourself")
	ErrUnauthorized = newErr(KindUnauthorized, "unauthorized", "unauthorized")
	ErrBadPassword  = newErr(KindUnauthorized, "invalid_credentials", "invalid credentials")
)

// KindOf 取错误大类，非 domain 错误返回空串
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// TooManyAttachments 生成带具体数量的超限错误
func TooManyAttachments(existing, incoming, max int) *Error {
	return ErrTooManyAttachments.Withf(
		"too many attachments: %d existing + %d new exceeds max %d",
		existing, incoming, max,
	)
}
