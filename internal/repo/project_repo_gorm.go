package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bugboard/internal/core/database"
	"bugboard/internal/domain"
)

type ProjectRepo struct{ db *gorm.DB }

func NewProjectRepo(db *gorm.DB) *ProjectRepo { return &ProjectRepo{db: db} }

func (r *ProjectRepo) Create(ctx context.Context, p *domain.Project) error {
	if err := domain.Validate(p); err != nil {
		return err
	}
	db := r.db.WithContext(ctx)
	if taken, err := exists(db, &domain.Project{}, "name = ?", p.Name); err != nil {
		return err
	} else if taken {
		return domain.ErrDuplicateProjectName.Withf("project %q already exists", p.Name)
	}
	if err := db.Omit(clause.Associations).Create(p).Error; err != nil {
		if database.IsDuplicateKey(err) {
			return domain.ErrDuplicateProjectName.Wrap(err)
		}
		return err
	}
	return nil
}

func (r *ProjectRepo) FindByID(ctx context.Context, id string) (*domain.Project, error) {
	var p domain.Project
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, notFound(err, domain.ErrProjectNotFound)
	}
	return &p, nil
}

func (r *ProjectRepo) List(ctx context.Context, p Page) ([]domain.Project, int64, error) {
	p = p.norm()
	var out []domain.Project
	tx := r.db.WithContext(ctx).Model(&domain.Project{})
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := tx.Offset(p.Offset).Limit(p.Limit).Order("name asc").Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
