package service

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"bugboard/internal/domain"
	"bugboard/internal/repo"
	"bugboard/internal/upload"
)

type CommentService struct {
	db   *gorm.DB
	pipe *upload.Pipeline
	log  *zap.Logger
}

func (s *CommentService) Create(ctx context.Context, actor Actor, issueID, text string, parts []upload.Part) (*domain.Comment, error) {
	cm := &domain.Comment{Text: text, IssueID: issueID, AuthorID: actor.UserID}
	if err := domain.Validate(cm); err != nil {
		return nil, err
	}
	err := s.pipe.Run(ctx, parts, 0, func(b *upload.Batch) error {
		return repo.Tx(ctx, s.db, func(tx *gorm.DB) error {
			if err := repo.NewCommentRepo(tx).Create(ctx, cm); err != nil {
				return err
			}
			atts := b.Bind(domain.CommentParent(cm.ID))
			if err := repo.NewAttachmentRepo(tx).CreateBatch(ctx, atts); err != nil {
				return err
			}
			cm.Attachments = atts
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug("comment created", zap.String("comment_id", cm.ID), zap.Int("files", len(cm.Attachments)))
	return cm, nil
}

func (s *CommentService) List(ctx context.Context, issueID string, p repo.Page) ([]domain.Comment, int64, error) {
	if _, err := repo.NewIssueRepo(s.db).FindByID(ctx, issueID); err != nil {
		return nil, 0, err
	}
	return repo.NewCommentRepo(s.db).ListByIssue(ctx, issueID, p)
}

// Delete 作者或管理员
func (s *CommentService) Delete(ctx context.Context, actor Actor, id string) error {
	cm, err := repo.NewCommentRepo(s.db).FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !actor.can(cm.AuthorID) {
		return domain.ErrForbidden.Withf("only the author or an administrator can delete this comment")
	}
	var names []string
	err = repo.Tx(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		names, err = repo.NewCascade(tx).DeleteCommentTree(ctx, id)
		return err
	})
	if err != nil {
		return err
	}
	s.pipe.Remove(ctx, names...)
	return nil
}
