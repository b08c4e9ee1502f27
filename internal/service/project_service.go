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

type ProjectService struct {
	db   *gorm.DB
	pipe *upload.Pipeline
	log  *zap.Logger
}

func (s *ProjectService) Create(ctx context.Context, name string) (*domain.Project, error) {
	p := &domain.Project{Name: strings.TrimSpace(name)}
	if err := repo.NewProjectRepo(s.db).Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProjectService) Get(ctx context.Context, id string) (*domain.Project, error) {
	return repo.NewProjectRepo(s.db).FindByID(ctx, id)
}

func (s *ProjectService) List(ctx context.Context, p repo.Page) ([]domain.Project, int64, error) {
	return repo.NewProjectRepo(s.db).List(ctx, p)
}

// Delete 行级删除在一个事务里完成；提交后再尽力删物理文件，失败只记录
func (s *ProjectService) Delete(ctx context.Context, id string) error {
	var names []string
	err := repo.Tx(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		names, err = repo.NewCascade(tx).DeleteProjectTree(ctx, id)
		return err
	})
	if err != nil {
		return err
	}
	s.pipe.Remove(ctx, names...)
	s.log.Info("project deleted", zap.String("project_id", id), zap.Int("files", len(names)))
	return nil
}
