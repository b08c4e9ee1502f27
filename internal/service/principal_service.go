package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"bugboard/internal/core/auth"
	"bugboard/internal/core/cache"
	"bugboard/internal/domain"
	"bugboard/internal/repo"
)

// PrincipalService 把已认证身份映射成本地 User，结果可缓存在 redis
type PrincipalService struct {
	db    *gorm.DB
	cache *cache.Cache
	ttl   time.Duration
	log   *zap.Logger
}

func principalKey(p auth.Principal) string {
	if p.UserID != "" {
		return "principal:uid:" + p.UserID
	}
	return "principal:sub:" + p.Subject
}

// Resolve 本地 token 直接按 uid 查；外部身份先按 subject 查，再按 email 关联，都没有则创建
func (s *PrincipalService) Resolve(ctx context.Context, p auth.Principal) (*domain.User, error) {
	if p.UserID == "" && p.Subject == "" {
		return nil, domain.ErrUnauthorized.Withf("principal has no subject")
	}
	u, err := cache.GetOrLoadJSON(s.cache, ctx, principalKey(p), s.ttl, func(ctx context.Context) (*domain.User, error) {
		return s.load(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (s *PrincipalService) load(ctx context.Context, p auth.Principal) (*domain.User, error) {
	users := repo.NewUserRepo(s.db)
	if p.UserID != "" {
		return users.FindByID(ctx, p.UserID)
	}
	u, err := users.FindByExternalID(ctx, p.Subject)
	if err == nil || !errors.Is(err, domain.ErrUserNotFound) {
		return u, err
	}
	if p.Email == "" {
		return nil, domain.ErrUnauthorized.Withf("unknown principal without email")
	}
	if u, err = users.FindByEmail(ctx, p.Email); err == nil {
		if err := users.LinkExternalID(ctx, u.ID, p.Subject); err != nil {
			return nil, err
		}
		u.ExternalID = &p.Subject
		s.log.Info("principal linked", zap.String("user_id", u.ID), zap.String("subject", p.Subject))
		return u, nil
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}
	return s.create(ctx, p)
}

func (s *PrincipalService) create(ctx context.Context, p auth.Principal) (*domain.User, error) {
	name, surname := splitName(p.Name, p.Email)
	role := domain.RoleStandard
	if domain.Role(p.Role) == domain.RoleAdmin {
		role = domain.RoleAdmin
	}
	sub := p.Subject
	u := &domain.User{Name: name, Surname: surname, Email: p.Email, Role: role, ExternalID: &sub}
	err := repo.NewUserRepo(s.db).Create(ctx, u)
	if errors.Is(err, domain.ErrDuplicateEmail) || errors.Is(err, domain.ErrDuplicateExternalID) {
		// 并发首次登录：另一个请求已经建好
		return repo.NewUserRepo(s.db).FindByExternalID(ctx, p.Subject)
	}
	if err != nil {
		return nil, err
	}
	s.log.Info("principal provisioned", zap.String("user_id", u.ID), zap.String("subject", p.Subject))
	return u, nil
}

// Forget 用户删除后清掉缓存的映射
func (s *PrincipalService) Forget(ctx context.Context, u *domain.User) {
	if u == nil {
		return
	}
	keys := []string{"principal:uid:" + u.ID}
	if u.ExternalID != nil {
		keys = append(keys, "principal:sub:"+*u.ExternalID)
	}
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		s.log.Warn("principal cache invalidate failed", zap.String("user_id", u.ID), zap.Error(err))
	}
}

func splitName(full, email string) (string, string) {
	full = strings.TrimSpace(full)
	if full == "" {
		full, _, _ = strings.Cut(email, "@")
	}
	name, surname, _ := strings.Cut(full, " ")
	if surname == "" {
		surname = "-"
	}
	return name, strings.TrimSpace(surname)
}
