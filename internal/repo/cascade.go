package repo

import (
	"context"

	"gorm.io/gorm"

	"bugboard/internal/domain"
)

// Cascade 显式自上而下删除：Attachment → Comment → Issue → Project/User。
// 所有方法都必须在事务里调用，返回被删附件的 stored name，物理文件由调用方在提交后清理。
// 表结构上的 ON DELETE CASCADE 只是兜底，不依赖它。
type Cascade struct{ db *gorm.DB }

func NewCascade(tx *gorm.DB) *Cascade { return &Cascade{db: tx} }

func (c *Cascade) DeleteProjectTree(ctx context.Context, projectID string) ([]string, error) {
	db := c.db.WithContext(ctx)
	if ok, err := exists(db, &domain.Project{}, "id = ?", projectID); err != nil {
		return nil, err
	} else if !ok {
		return nil, domain.ErrProjectNotFound
	}
	var issueIDs []string
	if err := db.Model(&domain.Issue{}).Where("project_id = ?", projectID).Pluck("id", &issueIDs).Error; err != nil {
		return nil, err
	}
	names, err := deleteIssues(db, issueIDs)
	if err != nil {
		return nil, err
	}
	if err := db.Delete(&domain.Project{}, "id = ?", projectID).Error; err != nil {
		return nil, err
	}
	return names, nil
}

func (c *Cascade) DeleteIssueTree(ctx context.Context, issueID string) ([]string, error) {
	db := c.db.WithContext(ctx)
	if ok, err := exists(db, &domain.Issue{}, "id = ?", issueID); err != nil {
		return nil, err
	} else if !ok {
		return nil, domain.ErrIssueNotFound
	}
	return deleteIssues(db, []string{issueID})
}

func (c *Cascade) DeleteCommentTree(ctx context.Context, commentID string) ([]string, error) {
	db := c.db.WithContext(ctx)
	if ok, err := exists(db, &domain.Comment{}, "id = ?", commentID); err != nil {
		return nil, err
	} else if !ok {
		return nil, domain.ErrCommentNotFound
	}
	return deleteComments(db, []string{commentID})
}

// DeleteUserTree 删除用户创建的 issue（整棵树）和他在别人 issue 下的 comment，最后删用户
func (c *Cascade) DeleteUserTree(ctx context.Context, userID string) ([]string, error) {
	db := c.db.WithContext(ctx)
	if ok, err := exists(db, &domain.User{}, "id = ?", userID); err != nil {
		return nil, err
	} else if !ok {
		return nil, domain.ErrUserNotFound
	}
	var issueIDs []string
	if err := db.Model(&domain.Issue{}).Where("creator_id = ?", userID).Pluck("id", &issueIDs).Error; err != nil {
		return nil, err
	}
	names, err := deleteIssues(db, issueIDs)
	if err != nil {
		return nil, err
	}
	var commentIDs []string
	if err := db.Model(&domain.Comment{}).Where("author_id = ?", userID).Pluck("id", &commentIDs).Error; err != nil {
		return nil, err
	}
	more, err := deleteComments(db, commentIDs)
	if err != nil {
		return nil, err
	}
	if err := db.Delete(&domain.User{}, "id = ?", userID).Error; err != nil {
		return nil, err
	}
	return append(names, more...), nil
}

func deleteIssues(db *gorm.DB, issueIDs []string) ([]string, error) {
	if len(issueIDs) == 0 {
		return nil, nil
	}
	var commentIDs []string
	if err := db.Model(&domain.Comment{}).Where("issue_id IN ?", issueIDs).Pluck("id", &commentIDs).Error; err != nil {
		return nil, err
	}
	names, err := deleteComments(db, commentIDs)
	if err != nil {
		return nil, err
	}
	var own []string
	if err := db.Model(&domain.Attachment{}).Where("issue_id IN ?", issueIDs).Pluck("stored_name", &own).Error; err != nil {
		return nil, err
	}
	if err := db.Where("issue_id IN ?", issueIDs).Delete(&domain.Attachment{}).Error; err != nil {
		return nil, err
	}
	if err := db.Where("id IN ?", issueIDs).Delete(&domain.Issue{}).Error; err != nil {
		return nil, err
	}
	return append(names, own...), nil
}

func deleteComments(db *gorm.DB, commentIDs []string) ([]string, error) {
	if len(commentIDs) == 0 {
		return nil, nil
	}
	var names []string
	if err := db.Model(&domain.Attachment{}).Where("comment_id IN ?", commentIDs).Pluck("stored_name", &names).Error; err != nil {
		return nil, err
	}
	if err := db.Where("comment_id IN ?", commentIDs).Delete(&domain.Attachment{}).Error; err != nil {
		return nil, err
	}
	if err := db.Where("id IN ?", commentIDs).Delete(&domain.Comment{}).Error; err != nil {
		return nil, err
	}
	return names, nil
}
