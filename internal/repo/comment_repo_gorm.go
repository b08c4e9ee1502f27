package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bugboard/internal/domain"
)

type CommentRepo struct{ db *gorm.DB }

func NewCommentRepo(db *gorm.DB) *CommentRepo { return &CommentRepo{db: db} }

func (r *CommentRepo) Create(ctx context.Context, cm *domain.Comment) error {
	if err := domain.Validate(cm); err != nil {
		return err
	}
	db := r.db.WithContext(ctx)
	if ok, err := exists(db, &domain.Issue{}, "id = ?", cm.IssueID); err != nil {
		return err
	} else if !ok {
		return domain.ErrIssueNotFound
	}
	if ok, err := exists(db, &domain.User{}, "id = ?", cm.AuthorID); err != nil {
		return err
	} else if !ok {
		return domain.ErrUserNotFound
	}
	return db.Omit(clause.Associations).Create(cm).Error
}

func (r *CommentRepo) FindByID(ctx context.Context, id string) (*domain.Comment, error) {
	var cm domain.Comment
	if err := r.db.WithContext(ctx).Preload("Attachments").First(&cm, "id = ?", id).Error; err != nil {
		return nil, notFound(err, domain.ErrCommentNotFound)
	}
	return &cm, nil
}

func (r *CommentRepo) ListByIssue(ctx context.Context, issueID string, p Page) ([]domain.Comment, int64, error) {
	p = p.norm()
	tx := r.db.WithContext(ctx).Model(&domain.Comment{}).Where("issue_id = ?", issueID)
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []domain.Comment
	err := tx.Preload("Attachments").Offset(p.Offset).Limit(p.Limit).Order("created_at asc").Find(&out).Error
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
