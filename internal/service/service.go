package service

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"bugboard/internal/core/cache"
	"bugboard/internal/domain"
	"bugboard/internal/upload"
)

// Actor 发起请求的本地用户
type Actor struct {
	UserID string
	Role   domain.Role
}

func (a Actor) IsAdmin() bool { return a.Role == domain.RoleAdmin }

// can 资源所有者或管理员
func (a Actor) can(ownerID string) bool { return a.IsAdmin() || (a.UserID != "" && a.UserID == ownerID) }

const (
	DeleteCascade = "cascade"
	DeleteBlock   = "block"
)

type Options struct {
	// UserDeletePolicy cascade | block
	UserDeletePolicy string
	PrincipalTTL     time.Duration
}

// Services 全部应用服务，transport 层只依赖这里
type Services struct {
	Users       *UserService
	Projects    *ProjectService
	Issues      *IssueService
	Comments    *CommentService
	Attachments *AttachmentService
	Principals  *PrincipalService
}

func New(db *gorm.DB, pipe *upload.Pipeline, c *cache.Cache, l *zap.Logger, opt Options) *Services {
	if l == nil {
		l = zap.NewNop()
	}
	if opt.UserDeletePolicy == "" {
		opt.UserDeletePolicy = DeleteCascade
	}
	if opt.PrincipalTTL <= 0 {
		opt.PrincipalTTL = 5 * time.Minute
	}
	principals := &PrincipalService{db: db, cache: c, ttl: opt.PrincipalTTL, log: l.Named("principal")}
	return &Services{
		Users:       &UserService{db: db, pipe: pipe, principals: principals, policy: opt.UserDeletePolicy, log: l.Named("users")},
		Projects:    &ProjectService{db: db, pipe: pipe, log: l.Named("projects")},
		Issues:      &IssueService{db: db, pipe: pipe, log: l.Named("issues")},
		Comments:    &CommentService{db: db, pipe: pipe, log: l.Named("comments")},
		Attachments: &AttachmentService{db: db, pipe: pipe, log: l.Named("attachments")},
		Principals:  principals,
	}
}
