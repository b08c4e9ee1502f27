package domain

import (
	"mime"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gorm.io/gorm"

	"bugboard/pkg/utils"
)

const (
	MaxAttachmentBytes      int64 = 5 << 20 // 5 MiB，含边界
	MaxAttachmentsPerParent       = 3
)

// 允许的 MIME 及对应扩展名
var allowedTypes = map[string][]string{
	"image/jpeg":      {".jpg", ".jpeg"},
	"image/png":       {".png"},
	"application/pdf": {".pdf"},
}

// Attachment 只属于一个 issue 或一个 comment，存储层落成两个可空外键
type Attachment struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	OriginalName string    `gorm:"size:255;not null" json:"originalName" validate:"required,max=255"`
	StoredName   string    `gorm:"uniqueIndex;size:255;not null" json:"storedName" validate:"required,max=255"`
	StoragePath  string    `gorm:"size:1024;not null" json:"-" validate:"required,max=1024"`
	MimeType     string    `gorm:"size:100;not null" json:"mimeType" validate:"required,max=100"`
	SizeBytes    int64     `gorm:"not null" json:"sizeBytes"`
	ContentHash  *string   `gorm:"size:64" json:"contentHash,omitempty"`
	IssueID      *string   `gorm:"size:36;index" json:"issueId,omitempty"`
	CommentID    *string   `gorm:"size:36;index" json:"commentId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (Attachment) TableName() string { return "attachments" }

func (a *Attachment) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = utils.NewID()
	}
	return nil
}

// BeforeSave 在写入所在的事务里复核大小、归属与类型
func (a *Attachment) BeforeSave(*gorm.DB) error {
	if err := ValidateAttachment(a.Descriptor()); err != nil {
		return err
	}
	if _, err := CheckFileType(a.OriginalName, a.MimeType); err != nil {
		return err
	}
	return Validate(a)
}

func (a *Attachment) Descriptor() AttachmentDescriptor {
	return AttachmentDescriptor{
		SizeBytes:  a.SizeBytes,
		MimeType:   a.MimeType,
		Filename:   a.OriginalName,
		IssueRef:   a.IssueID,
		CommentRef: a.CommentID,
	}
}

// Parent 还原归属；行数据违反互斥时返回 ErrAttachmentParent
func (a *Attachment) Parent() (AttachmentParent, error) {
	hasIssue, hasComment := isSet(a.IssueID), isSet(a.CommentID)
	switch {
	case hasIssue && !hasComment:
		return IssueParent(*a.IssueID), nil
	case hasComment && !hasIssue:
		return CommentParent(*a.CommentID), nil
	}
	return AttachmentParent{}, ErrAttachmentParent
}

type ParentKind uint8

const (
	ParentIssue ParentKind = iota + 1
	ParentComment
)

func (k ParentKind) String() string {
	switch k {
	case ParentIssue:
		return "issue"
	case ParentComment:
		return "comment"
	}
	return "none"
}

// AttachmentParent = Issue(id) | Comment(id)
type AttachmentParent struct {
	kind ParentKind
	id   string
}

func IssueParent(id string) AttachmentParent   { return AttachmentParent{kind: ParentIssue, id: id} }
func CommentParent(id string) AttachmentParent { return AttachmentParent{kind: ParentComment, id: id} }

func (p AttachmentParent) Kind() ParentKind { return p.kind }
func (p AttachmentParent) ID() string       { return p.id }
func (p AttachmentParent) IsZero() bool     { return p.kind == 0 || p.id == "" }

// Apply 把归属写回两个外键列
func (p AttachmentParent) Apply(a *Attachment) {
	a.IssueID, a.CommentID = nil, nil
	id := p.id
	switch p.kind {
	case ParentIssue:
		a.IssueID = &id
	case ParentComment:
		a.CommentID = &id
	}
}

// AttachmentDescriptor 待校验的附件描述
type AttachmentDescriptor struct {
	SizeBytes  int64
	MimeType   string
	Filename   string
	IssueRef   *string
	CommentRef *string
}

// ValidateAttachment 纯函数：先查大小，再查 issue/comment 互斥
func ValidateAttachment(d AttachmentDescriptor) error {
	if d.SizeBytes < 0 {
		return ErrInvalidField.OnField("sizeBytes").Withf("sizeBytes must not be negative")
	}
	if d.SizeBytes > MaxAttachmentBytes {
		return ErrAttachmentTooLarge.OnField("sizeBytes").Withf(
			"attachment size %d exceeds max %d bytes", d.SizeBytes, MaxAttachmentBytes)
	}
	if isSet(d.IssueRef) == isSet(d.CommentRef) {
		return ErrAttachmentParent
	}
	return nil
}

// CheckFileType 校验 MIME 白名单以及扩展名与 MIME 一致，返回规范化后的 MIME
func CheckFileType(filename, mimeType string) (string, error) {
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return "", ErrFileTypeNotAllowed.OnField("mimeType").Withf("file type %q not allowed", mimeType)
	}
	mt = strings.ToLower(mt)
	exts, ok := allowedTypes[mt]
	if !ok {
		return "", ErrFileTypeNotAllowed.OnField("mimeType").Withf("file type %q not allowed", mt)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if slices.Contains(exts, ext) {
		return mt, nil
	}
	if !knownExtension(ext) {
		return "", ErrFileTypeNotAllowed.OnField("filename").Withf("file extension %q not allowed", ext)
	}
	return "", ErrExtensionMismatch.OnField("filename").Withf(
		"file extension %q does not match mime type %q", ext, mt)
}

// ExtensionFor 给存储文件名用的扩展名
func ExtensionFor(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

func knownExtension(ext string) bool {
	for _, exts := range allowedTypes {
		if slices.Contains(exts, ext) {
			return true
		}
	}
	return false
}

func isSet(p *string) bool { return p != nil && *p != "" }
