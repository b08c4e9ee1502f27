package service

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"bugboard/internal/domain"
	"bugboard/internal/repo"
	"bugboard/internal/storage"
	"bugboard/internal/upload"
)

type AttachmentService struct {
	db   *gorm.DB
	pipe *upload.Pipeline
	log  *zap.Logger
}

func (s *AttachmentService) Get(ctx context.Context, id string) (*domain.Attachment, error) {
	return repo.NewAttachmentRepo(s.db).FindByID(ctx, id)
}

// Open 返回元数据与文件内容，调用方负责 Close
func (s *AttachmentService) Open(ctx context.Context, id string) (*domain.Attachment, io.ReadCloser, error) {
	a, err := repo.NewAttachmentRepo(s.db).FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.pipe.Store().Open(ctx, a.StoredName)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			s.log.Warn("attachment file missing", zap.String("attachment_id", id), zap.String("stored_name", a.StoredName))
			return nil, nil, domain.ErrAttachmentNotFound.Withf("attachment file is missing")
		}
		return nil, nil, domain.ErrStorageIO.Wrap(err)
	}
	return a, rc, nil
}

// Delete 附件所属 issue 的创建者、comment 的作者或管理员
func (s *AttachmentService) Delete(ctx context.Context, actor Actor, id string) error {
	var name string
	err := repo.Tx(ctx, s.db, func(tx *gorm.DB) error {
		atts := repo.NewAttachmentRepo(tx)
		a, err := atts.FindByID(ctx, id)
		if err != nil {
			return err
		}
		owner, err := ownerOf(ctx, tx, a)
		if err != nil {
			return err
		}
		if !actor.can(owner) {
			return domain.ErrForbidden.Withf("only the owner or an administrator can delete this attachment")
		}
		name, err = atts.Delete(ctx, id)
		return err
	})
	if err != nil {
		return err
	}
	s.pipe.Remove(ctx, name)
	return nil
}

func ownerOf(ctx context.Context, tx *gorm.DB, a *domain.Attachment) (string, error) {
	p, err := a.Parent()
	if err != nil {
		return "", err
	}
	if p.Kind() == domain.ParentComment {
		cm, err := repo.NewCommentRepo(tx).FindByID(ctx, p.ID())
		if err != nil {
			return "", err
		}
		return cm.AuthorID, nil
	}
	is, err := repo.NewIssueRepo(tx).FindByID(ctx, p.ID())
	if err != nil {
		return "", err
	}
	return is.CreatorID, nil
}

// SweepResult 存储清扫结果
type SweepResult struct {
	Scanned  int
	Orphaned []string
}

// Sweep 删除没有任何附件行引用的物理文件；dryRun 只列出不删
func (s *AttachmentService) Sweep(ctx context.Context, dryRun bool) (*SweepResult, error) {
	names, err := s.pipe.Store().List(ctx)
	if err != nil {
		return nil, domain.ErrStorageIO.Wrap(err)
	}
	referenced, err := repo.NewAttachmentRepo(s.db).StoredNames(ctx)
	if err != nil {
		return nil, err
	}
	res := &SweepResult{Scanned: len(names)}
	for _, n := range names {
		if _, ok := referenced[n]; !ok {
			res.Orphaned = append(res.Orphaned, n)
		}
	}
	if !dryRun {
		s.pipe.Remove(ctx, res.Orphaned...)
	}
	s.log.Info("storage sweep", zap.Int("scanned", res.Scanned), zap.Int("orphaned", len(res.Orphaned)), zap.Bool("dry_run", dryRun))
	return res, nil
}
