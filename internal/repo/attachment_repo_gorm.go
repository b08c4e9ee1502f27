package repo

import (
	"context"

	"gorm.io/gorm"

	"bugboard/internal/core/database"
	"bugboard/internal/domain"
)

type AttachmentRepo struct{ db *gorm.DB }

func NewAttachmentRepo(db *gorm.DB) *AttachmentRepo { return &AttachmentRepo{db: db} }

// CreateBatch 写入附件行；每行的归属必须已经落库。
// BeforeSave 钩子在同一事务里复核大小、互斥与类型。
func (r *AttachmentRepo) CreateBatch(ctx context.Context, atts []domain.Attachment) error {
	if len(atts) == 0 {
		return nil
	}
	db := r.db.WithContext(ctx)
	checked := map[string]bool{}
	for i := range atts {
		p, err := atts[i].Parent()
		if err != nil {
			return err
		}
		key := p.Kind().String() + ":" + p.ID()
		if checked[key] {
			continue
		}
		if err := parentExists(db, p); err != nil {
			return err
		}
		checked[key] = true
	}
	if err := db.Create(&atts).Error; err != nil {
		if database.IsDuplicateKey(err) {
			return domain.ErrStoredNameCollision.Wrap(err)
		}
		return err
	}
	return nil
}

func parentExists(db *gorm.DB, p domain.AttachmentParent) error {
	switch p.Kind() {
	case domain.ParentIssue:
		ok, err := exists(db, &domain.Issue{}, "id = ?", p.ID())
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrIssueNotFound
		}
	case domain.ParentComment:
		ok, err := exists(db, &domain.Comment{}, "id = ?", p.ID())
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrCommentNotFound
		}
	default:
		return domain.ErrAttachmentParent
	}
	return nil
}

func (r *AttachmentRepo) FindByID(ctx context.Context, id string) (*domain.Attachment, error) {
	var a domain.Attachment
	if err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, notFound(err, domain.ErrAttachmentNotFound)
	}
	return &a, nil
}

// Count 父实体上已有的附件数
func (r *AttachmentRepo) Count(ctx context.Context, p domain.AttachmentParent) (int, error) {
	col := "issue_id"
	if p.Kind() == domain.ParentComment {
		col = "comment_id"
	}
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Attachment{}).Where(col+" = ?", p.ID()).Count(&n).Error
	return int(n), err
}

// Delete 删除单个附件行，返回其 stored name
func (r *AttachmentRepo) Delete(ctx context.Context, id string) (string, error) {
	a, err := r.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	if err := r.db.WithContext(ctx).Delete(&domain.Attachment{}, "id = ?", id).Error; err != nil {
		return "", err
	}
	return a.StoredName, nil
}

// StoredNames 全部被引用的 stored name，给存储清扫用
func (r *AttachmentRepo) StoredNames(ctx context.Context) (map[string]struct{}, error) {
	var names []string
	if err := r.db.WithContext(ctx).Model(&domain.Attachment{}).Pluck("stored_name", &names).Error; err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set, nil
}
