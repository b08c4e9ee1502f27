package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bugboard/internal/domain"
)

type IssueRepo struct{ db *gorm.DB }

func NewIssueRepo(db *gorm.DB) *IssueRepo { return &IssueRepo{db: db} }

// Create 校验字段、项目与创建者存在后写入；附件另行写入
func (r *IssueRepo) Create(ctx context.Context, is *domain.Issue) error {
	if is.Status == "" {
		is.Status = domain.IssueStatusTodo
	}
	if err := domain.Validate(is); err != nil {
		return err
	}
	db := r.db.WithContext(ctx)
	if ok, err := exists(db, &domain.Project{}, "id = ?", is.ProjectID); err != nil {
		return err
	} else if !ok {
		return domain.ErrProjectNotFound
	}
	if ok, err := exists(db, &domain.User{}, "id = ?", is.CreatorID); err != nil {
		return err
	} else if !ok {
		return domain.ErrUserNotFound
	}
	return db.Omit(clause.Associations).Create(is).Error
}

func (r *IssueRepo) FindByID(ctx context.Context, id string) (*domain.Issue, error) {
	var is domain.Issue
	err := r.db.WithContext(ctx).
		Preload("Attachments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc") }).
		First(&is, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, domain.ErrIssueNotFound)
	}
	return &is, nil
}

func (r *IssueRepo) List(ctx context.Context, projectID string, f domain.IssueFilter, p Page) ([]domain.Issue, int64, error) {
	p = p.norm()
	tx := r.db.WithContext(ctx).Model(&domain.Issue{}).Where("project_id = ?", projectID)
	if f.Type != "" {
		tx = tx.Where("type = ?", f.Type)
	}
	if f.Status != "" {
		tx = tx.Where("status = ?", f.Status)
	}
	if f.Priority != "" {
		tx = tx.Where("priority = ?", f.Priority)
	}
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []domain.Issue
	if err := tx.Offset(p.Offset).Limit(p.Limit).Order("created_at desc").Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *IssueRepo) Update(ctx context.Context, is *domain.Issue) error {
	if err := domain.Validate(is); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(is).Error
}
