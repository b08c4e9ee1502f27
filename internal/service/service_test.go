package service_test

import (
	"bytes"
	"context"
	"errors"
	"io"

	qt "github.com/frankban/quicktest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"

	"bugboard/internal/core/database/dbtest"
	"bugboard/internal/domain"
	"bugboard/internal/service"
	"bugboard/internal/storage"
	"bugboard/internal/upload"
)

var ctx = context.Background()

var pngHead = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type env struct {
	db    *gorm.DB
	store storage.Store
	svc   *service.Services
	logs  *observer.ObservedLogs
	admin service.Actor
	ada   service.Actor
	bob   service.Actor
}

type envOpt struct {
	policy string
	store  storage.Store
}

func newEnv(c *qt.C, opts ...envOpt) *env {
	c.Helper()
	var o envOpt
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.store == nil {
		o.store = storage.NewMem("/uploads")
	}
	core, logs := observer.New(zapcore.InfoLevel)
	l := zap.New(core)
	db := dbtest.Open(c.TB)
	pipe := upload.New(o.store, l, upload.Options{SniffContent: true})
	e := &env{
		db:    db,
		store: o.store,
		svc:   service.New(db, pipe, nil, l, service.Options{UserDeletePolicy: o.policy}),
		logs:  logs,
	}
	e.admin = e.register(c, "root@example.com", domain.RoleAdmin)
	e.ada = e.register(c, "ada@example.com", domain.RoleStandard)
	e.bob = e.register(c, "bob@example.com", domain.RoleStandard)
	return e
}

func (e *env) register(c *qt.C, email string, role domain.Role) service.Actor {
	c.Helper()
	u, err := e.svc.Users.Register(ctx, service.RegisterInput{
		Name: "Test", Surname: "User", Email: email, Password: "pw-" + email, Role: role,
	})
	c.Assert(err, qt.IsNil)
	return service.Actor{UserID: u.ID, Role: u.Role}
}

func (e *env) project(c *qt.C, name string) *domain.Project {
	c.Helper()
	p, err := e.svc.Projects.Create(ctx, name)
	c.Assert(err, qt.IsNil)
	return p
}

func (e *env) files(c *qt.C) []string {
	c.Helper()
	names, err := e.store.List(ctx)
	c.Assert(err, qt.IsNil)
	return names
}

func (e *env) count(c *qt.C, model any) int64 {
	c.Helper()
	var n int64
	c.Assert(e.db.Model(model).Count(&n).Error, qt.IsNil)
	return n
}

func pngs(n int) []upload.Part {
	parts := make([]upload.Part, n)
	for i := range parts {
		parts[i] = upload.Part{
			Filename:    "shot.png",
			ContentType: "image/png",
			Size:        int64(len(pngHead)),
			Open:        func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(pngHead)), nil },
		}
	}
	return parts
}

func bug(title string) service.IssueInput {
	return service.IssueInput{Title: title, Type: string(domain.IssueTypeBug)}
}

// failOn 让指定表的 INSERT 失败或 panic
func failOn(c *qt.C, db *gorm.DB, table string, panicking bool) {
	c.Helper()
	err := db.Callback().Create().Before("gorm:create").Register("test:fail_"+table, func(tx *gorm.DB) {
		if tx.Statement.Table != table {
			return
		}
		if panicking {
			panic("insert exploded")
		}
		_ = tx.AddError(errors.New("insert failed"))
	})
	c.Assert(err, qt.IsNil)
}

type brokenDelete struct{ storage.Store }

func (brokenDelete) Delete(context.Context, string) error { return errors.New("disk gone") }
