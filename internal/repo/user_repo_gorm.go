package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bugboard/internal/core/database"
	"bugboard/internal/domain"
)

type UserRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

// Create 先查重再写；并发下由唯一索引兜底
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if err := domain.Validate(u); err != nil {
		return err
	}
	db := r.db.WithContext(ctx)
	if taken, err := exists(db, &domain.User{}, "email = ?", u.Email); err != nil {
		return err
	} else if taken {
		return domain.ErrDuplicateEmail.Withf("email %q already registered", u.Email)
	}
	if u.ExternalID != nil {
		if taken, err := exists(db, &domain.User{}, "external_id = ?", *u.ExternalID); err != nil {
			return err
		} else if taken {
			return domain.ErrDuplicateExternalID
		}
	}
	if err := db.Omit(clause.Associations).Create(u).Error; err != nil {
		if database.IsDuplicateKey(err) {
			return domain.ErrDuplicateEmail.Wrap(err)
		}
		return err
	}
	return nil
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, notFound(err, domain.ErrUserNotFound)
	}
	return &u, nil
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).First(&u, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if err != nil {
		return nil, notFound(err, domain.ErrUserNotFound)
	}
	return &u, nil
}

func (r *UserRepo) FindByExternalID(ctx context.Context, ext string) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).First(&u, "external_id = ?", ext).Error; err != nil {
		return nil, notFound(err, domain.ErrUserNotFound)
	}
	return &u, nil
}

func (r *UserRepo) List(ctx context.Context, p Page) ([]domain.User, int64, error) {
	p = p.norm()
	var users []domain.User
	tx := r.db.WithContext(ctx).Model(&domain.User{})
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := tx.Offset(p.Offset).Limit(p.Limit).Order("created_at desc").Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// LinkExternalID 把身份提供方的 subject 绑定到已有用户
func (r *UserRepo) LinkExternalID(ctx context.Context, id, ext string) error {
	res := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Update("external_id", ext)
	if res.Error != nil {
		if database.IsDuplicateKey(res.Error) {
			return domain.ErrDuplicateExternalID.Wrap(res.Error)
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// AuthoredCounts 用户创建的 issue 数与 comment 数
func (r *UserRepo) AuthoredCounts(ctx context.Context, id string) (issues, comments int64, err error) {
	db := r.db.WithContext(ctx)
	if err = db.Model(&domain.Issue{}).Where("creator_id = ?", id).Count(&issues).Error; err != nil {
		return 0, 0, err
	}
	if err = db.Model(&domain.Comment{}).Where("author_id = ?", id).Count(&comments).Error; err != nil {
		return 0, 0, err
	}
	return issues, comments, nil
}
