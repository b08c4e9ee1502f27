package service

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"bugboard/internal/domain"
	"bugboard/internal/repo"
	"bugboard/internal/upload"
)

type IssueService struct {
	db   *gorm.DB
	pipe *upload.Pipeline
	log  *zap.Logger
}

// IssueInput 创建 issue 的表单字段
type IssueInput struct {
	Title       string `form:"title" json:"title"`
	Description string `form:"description" json:"description"`
	Type        string `form:"type" json:"type"`
	Status      string `form:"status" json:"status"`
	Priority    string `form:"priority" json:"priority"`
}

// IssuePatch 未出现的字段保持不变；priority 传空串表示清空
type IssuePatch struct {
	Title       *string `form:"title" json:"title"`
	Description *string `form:"description" json:"description"`
	Type        *string `form:"type" json:"type"`
	Status      *string `form:"status" json:"status"`
	Priority    *string `form:"priority" json:"priority"`
}

func priorityOf(s string) *domain.IssuePriority {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	p := domain.IssuePriority(s)
	return &p
}

func (in IssueInput) issue() *domain.Issue {
	is := &domain.Issue{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Type:        domain.IssueType(in.Type),
		Status:      domain.IssueStatus(in.Status),
		Priority:    priorityOf(in.Priority),
	}
	if is.Status == "" {
		is.Status = domain.IssueStatusTodo
	}
	return is
}

func (p IssuePatch) apply(is *domain.Issue) {
	if p.Title != nil {
		is.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		is.Description = *p.Description
	}
	if p.Type != nil {
		is.Type = domain.IssueType(*p.Type)
	}
	if p.Status != nil {
		is.Status = domain.IssueStatus(*p.Status)
	}
	if p.Priority != nil {
		is.Priority = priorityOf(*p.Priority)
	}
}

// Create 字段先校验，再暂存文件，最后 issue 与附件行同一事务写入
func (s *IssueService) Create(ctx context.Context, actor Actor, projectID string, in IssueInput, parts []upload.Part) (*domain.Issue, error) {
	is := in.issue()
	is.ProjectID, is.CreatorID = projectID, actor.UserID
	if err := domain.Validate(is); err != nil {
		return nil, err
	}
	err := s.pipe.Run(ctx, parts, 0, func(b *upload.Batch) error {
		return repo.Tx(ctx, s.db, func(tx *gorm.DB) error {
			if err := repo.NewIssueRepo(tx).Create(ctx, is); err != nil {
				return err
			}
			atts := b.Bind(domain.IssueParent(is.ID))
			if err := repo.NewAttachmentRepo(tx).CreateBatch(ctx, atts); err != nil {
				return err
			}
			is.Attachments = atts
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("issue created", zap.String("issue_id", is.ID), zap.Int("files", len(is.Attachments)))
	return is, nil
}

// Update 创建者或管理员；新文件数与已有附件数合计不能超过上限
func (s *IssueService) Update(ctx context.Context, actor Actor, id string, in IssuePatch, parts []upload.Part) (*domain.Issue, error) {
	is, err := repo.NewIssueRepo(s.db).FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.can(is.CreatorID) {
		return nil, domain.ErrForbidden.Withf("only the creator or an administrator can edit this issue")
	}
	in.apply(is)
	if err := domain.Validate(is); err != nil {
		return nil, err
	}
	err = s.pipe.Run(ctx, parts, len(is.Attachments), func(b *upload.Batch) error {
		return repo.Tx(ctx, s.db, func(tx *gorm.DB) error {
			atts := repo.NewAttachmentRepo(tx)
			// 事务内重新计数，防止并发追加
			n, err := atts.Count(ctx, domain.IssueParent(id))
			if err != nil {
				return err
			}
			if err := s.pipe.CheckCount(n, b.Len()); err != nil {
				return err
			}
			if err := repo.NewIssueRepo(tx).Update(ctx, is); err != nil {
				return err
			}
			bound := b.Bind(domain.IssueParent(id))
			if err := atts.CreateBatch(ctx, bound); err != nil {
				return err
			}
			is.Attachments = append(is.Attachments, bound...)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return is, nil
}

func (s *IssueService) Get(ctx context.Context, id string) (*domain.Issue, error) {
	return repo.NewIssueRepo(s.db).FindByID(ctx, id)
}

func (s *IssueService) List(ctx context.Context, projectID string, f domain.IssueFilter, p repo.Page) ([]domain.Issue, int64, error) {
	if err := checkFilter(f); err != nil {
		return nil, 0, err
	}
	if _, err := repo.NewProjectRepo(s.db).FindByID(ctx, projectID); err != nil {
		return nil, 0, err
	}
	return repo.NewIssueRepo(s.db).List(ctx, projectID, f, p)
}

func checkFilter(f domain.IssueFilter) error {
	probe := domain.Issue{Title: "-", Type: domain.IssueTypeBug, Status: domain.IssueStatusTodo, CreatorID: "-", ProjectID: "-"}
	if f.Type != "" {
		probe.Type = f.Type
	}
	if f.Status != "" {
		probe.Status = f.Status
	}
	if f.Priority != "" {
		probe.Priority = &f.Priority
	}
	return domain.Validate(&probe)
}

// Delete 创建者或管理员；issue 下的 comment 与附件一并删除
func (s *IssueService) Delete(ctx context.Context, actor Actor, id string) error {
	is, err := repo.NewIssueRepo(s.db).FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !actor.can(is.CreatorID) {
		return domain.ErrForbidden.Withf("only the creator or an administrator can delete this issue")
	}
	var names []string
	err = repo.Tx(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		names, err = repo.NewCascade(tx).DeleteIssueTree(ctx, id)
		return err
	})
	if err != nil {
		return err
	}
	s.pipe.Remove(ctx, names...)
	return nil
}
