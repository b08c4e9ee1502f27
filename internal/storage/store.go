// Package storage is the physical key→bytes store behind attachments.
// Keys are the generated stored filenames; the store never sees user supplied names.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

var (
	ErrNotExist    = errors.New("storage: file does not exist")
	ErrExists      = errors.New("storage: file already exists")
	ErrInvalidName = errors.New("storage: invalid file name")
)

type Store interface {
	// Put 写入新文件，同名已存在返回 ErrExists
	Put(ctx context.Context, name string, r io.Reader) (int64, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Stat(ctx context.Context, name string) (int64, error)
	// Delete 幂等，文件不存在不报错
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]string, error)
	Path(name string) string
}

type FSStore struct {
	fs   afero.Fs
	root string
}

var _ Store = (*FSStore)(nil)

// NewFS 任意 afero.Fs（测试用 MemMapFs）；root 只用于记录 storage path
func NewFS(fs afero.Fs, root string) *FSStore {
	return &FSStore{fs: fs, root: root}
}

// NewMem 内存文件系统，测试与 dry-run 用
func NewMem(root string) *FSStore {
	fs := afero.NewBasePathFs(afero.NewMemMapFs(), root)
	_ = fs.MkdirAll(".", 0o755)
	return NewFS(fs, root)
}

// NewOS 本地磁盘，所有操作限制在 root 之下
func NewOS(root string) (*FSStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return NewFS(afero.NewBasePathFs(afero.NewOsFs(), root), root), nil
}

func (s *FSStore) Put(ctx context.Context, name string, r io.Reader) (int64, error) {
	if err := checkName(name); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f, err := s.fs.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return 0, ErrExists
		}
		return 0, err
	}
	n, err := io.Copy(f, ctxReader{ctx: ctx, r: r})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = s.fs.Remove(name)
		return 0, err
	}
	return n, nil
}

func (s *FSStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	f, err := s.fs.Open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotExist
		}
		return nil, err
	}
	return f, nil
}

func (s *FSStore) Stat(ctx context.Context, name string) (int64, error) {
	if err := checkName(name); err != nil {
		return 0, err
	}
	fi, err := s.fs.Stat(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, ErrNotExist
		}
		return 0, err
	}
	return fi.Size(), nil
}

func (s *FSStore) Delete(ctx context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	err := s.fs.Remove(name)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *FSStore) List(ctx context.Context) ([]string, error) {
	infos, err := afero.ReadDir(s.fs, ".")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(infos))
	for _, fi := range infos {
		if fi.Mode().IsRegular() {
			names = append(names, fi.Name())
		}
	}
	return names, nil
}

func (s *FSStore) Path(name string) string { return filepath.Join(s.root, name) }

func checkName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return ErrInvalidName
	}
	return nil
}

// ctxReader 请求取消时中断拷贝
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
