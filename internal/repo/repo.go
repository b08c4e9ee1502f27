package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"bugboard/internal/domain"
)

// Page 分页参数（offset/limit）
type Page struct {
	Offset int
	Limit  int
}

func (p Page) norm() Page {
	if p.Limit <= 0 || p.Limit > 100 {
		p.Limit = 20
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// PageOf 页码（从 1 开始）+ 每页条数 → Page
func PageOf(page, size int) Page {
	if page < 1 {
		page = 1
	}
	p := Page{Limit: size}.norm()
	p.Offset = (page - 1) * p.Limit
	return p
}

// Tx 在一个事务里执行 fn；fn 内只能使用 tx
func Tx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.WithContext(ctx).Transaction(fn)
}

func notFound(err error, nf *domain.Error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nf
	}
	return err
}

func exists(db *gorm.DB, model any, query string, args ...any) (bool, error) {
	var n int64
	if err := db.Model(model).Where(query, args...).Limit(1).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}
