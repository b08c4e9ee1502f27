package storage_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/spf13/afero"

	"bugboard/internal/storage"
)

func TestFSStoreLifecycle(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	s := storage.NewMem("/srv/uploads")

	n, err := s.Put(ctx, "abc.png", strings.NewReader("hello"))
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, int64(5))

	size, err := s.Stat(ctx, "abc.png")
	c.Assert(err, qt.IsNil)
	c.Assert(size, qt.Equals, int64(5))

	rc, err := s.Open(ctx, "abc.png")
	c.Assert(err, qt.IsNil)
	b, _ := io.ReadAll(rc)
	_ = rc.Close()
	c.Assert(string(b), qt.Equals, "hello")

	_, err = s.Put(ctx, "abc.png", strings.NewReader("again"))
	c.Assert(err, qt.Equals, storage.ErrExists)

	names, err := s.List(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(names, qt.DeepEquals, []string{"abc.png"})
	c.Assert(s.Path("abc.png"), qt.Equals, "/srv/uploads/abc.png")

	c.Assert(s.Delete(ctx, "abc.png"), qt.IsNil)
	c.Assert(s.Delete(ctx, "abc.png"), qt.IsNil)
	_, err = s.Open(ctx, "abc.png")
	c.Assert(err, qt.Equals, storage.ErrNotExist)
}

func TestFSStoreRejectsTraversal(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	s := storage.NewMem("/srv")

	for _, name := range []string{"", ".", "..", "../etc/passwd", `a\b`, "dir/file.png"} {
		_, err := s.Put(ctx, name, strings.NewReader("x"))
		c.Assert(err, qt.Equals, storage.ErrInvalidName, qt.Commentf("name %q", name))
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestFSStorePartialWriteRemoved(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	fs := afero.NewBasePathFs(afero.NewMemMapFs(), "/srv")
	s := storage.NewFS(fs, "/srv")

	_, err := s.Put(ctx, "x.pdf", failingReader{})
	c.Assert(err, qt.ErrorMatches, "disk on fire")
	ok, _ := afero.Exists(fs, "x.pdf")
	c.Assert(ok, qt.IsFalse)
}

func TestFSStoreCanceledContext(t *testing.T) {
	c := qt.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := storage.NewMem("/srv")

	_, err := s.Put(ctx, "x.pdf", strings.NewReader("x"))
	c.Assert(errors.Is(err, context.Canceled), qt.IsTrue)
}
