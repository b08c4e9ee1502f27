package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"bugboard/internal/domain"
	"bugboard/internal/repo"
	"bugboard/internal/upload"
	"bugboard/pkg/utils"
)

type UserService struct {
	db         *gorm.DB
	pipe       *upload.Pipeline
	principals *PrincipalService
	policy     string
	log        *zap.Logger
}

type RegisterInput struct {
	Name     string      `json:"name"`
	Surname  string      `json:"surname"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
}

// Register 只有管理员能调用（路由层保证）
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	if strings.TrimSpace(in.Password) == "" {
		return nil, domain.ErrFieldRequired.OnField("password").Withf("password is required")
	}
	if len(in.Password) > 72 {
		return nil, domain.ErrFieldTooLong.OnField("password").Withf("password exceeds max length 72")
	}
	if in.Role == "" {
		in.Role = domain.RoleStandard
	}
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &domain.User{
		Name:         strings.TrimSpace(in.Name),
		Surname:      strings.TrimSpace(in.Surname),
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
	}
	if err := repo.NewUserRepo(s.db).Create(ctx, u); err != nil {
		return nil, err
	}
	s.log.Info("user registered", zap.String("user_id", u.ID), zap.String("role", string(u.Role)))
	return u, nil
}

// Authenticate 本地账号密码登录
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	u, err := repo.NewUserRepo(s.db).FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrBadPassword
		}
		return nil, err
	}
	if !utils.CheckPassword(password, u.PasswordHash) {
		return nil, domain.ErrBadPassword
	}
	return u, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	return repo.NewUserRepo(s.db).FindByID(ctx, id)
}

func (s *UserService) List(ctx context.Context, p repo.Page) ([]domain.User, int64, error) {
	return repo.NewUserRepo(s.db).List(ctx, p)
}

// Delete 不能删自己；block 策略下有内容的用户拒绝删除，cascade 策略连同其内容一起删
func (s *UserService) Delete(ctx context.Context, actor Actor, id string) error {
	if actor.UserID == id {
		return domain.ErrSelfDelete
	}
	var (
		victim *domain.User
		names  []string
	)
	err := repo.Tx(ctx, s.db, func(tx *gorm.DB) error {
		users := repo.NewUserRepo(tx)
		u, err := users.FindByID(ctx, id)
		if err != nil {
			return err
		}
		victim = u
		if s.policy == DeleteBlock {
			issues, comments, err := users.AuthoredCounts(ctx, id)
			if err != nil {
				return err
			}
			if issues+comments > 0 {
				return domain.ErrUserHasContent.Withf(
					"user has %d issues and %d comments; delete them first", issues, comments)
			}
		}
		names, err = repo.NewCascade(tx).DeleteUserTree(ctx, id)
		return err
	})
	if err != nil {
		return err
	}
	s.pipe.Remove(ctx, names...)
	s.principals.Forget(ctx, victim)
	s.log.Info("user deleted", zap.String("user_id", id), zap.Int("files", len(names)))
	return nil
}
