// Package upload stages multipart file parts into storage and guarantees that
// a failed request leaves no physical files behind.
package upload

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"bugboard/internal/domain"
	"bugboard/internal/storage"
	"bugboard/pkg/utils"
)

// sniffLen mimetype 默认读取的头部长度
const sniffLen = 3072

// Part 一个待上传文件；Size 为客户端声明的大小，未知时传 -1
type Part struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// FromFileHeaders multipart 表单文件 → Part
func FromFileHeaders(fhs []*multipart.FileHeader) []Part {
	parts := make([]Part, 0, len(fhs))
	for _, fh := range fhs {
		parts = append(parts, Part{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Open:        func() (io.ReadCloser, error) { return fh.Open() },
		})
	}
	return parts
}

// Staged 已落盘、尚未入库的文件
type Staged struct {
	OriginalName string
	StoredName   string
	StoragePath  string
	MimeType     string
	SizeBytes    int64
	ContentHash  string
}

// Batch 一次请求内暂存的全部文件
type Batch struct {
	files []Staged
}

func (b *Batch) Len() int { return len(b.files) }

func (b *Batch) Files() []Staged { return append([]Staged(nil), b.files...) }

func (b *Batch) StoredNames() []string {
	names := make([]string, 0, len(b.files))
	for _, f := range b.files {
		names = append(names, f.StoredName)
	}
	return names
}

// Bind 生成挂到 parent 下的附件行；parent 必须已经持久化
func (b *Batch) Bind(parent domain.AttachmentParent) []domain.Attachment {
	out := make([]domain.Attachment, 0, len(b.files))
	for _, f := range b.files {
		hash := f.ContentHash
		a := domain.Attachment{
			OriginalName: f.OriginalName,
			StoredName:   f.StoredName,
			StoragePath:  f.StoragePath,
			MimeType:     f.MimeType,
			SizeBytes:    f.SizeBytes,
			ContentHash:  &hash,
		}
		parent.Apply(&a)
		out = append(out, a)
	}
	return out
}

type Options struct {
	MaxFiles     int
	MaxBytes     int64
	SniffContent bool
	// NewName 存储文件名生成器，默认 ksuid
	NewName func(ext string) string
}

type Pipeline struct {
	store storage.Store
	log   *zap.Logger
	opt   Options
}

// New 上限只能收紧，不能超过 domain 规定的值
func New(store storage.Store, l *zap.Logger, opt Options) *Pipeline {
	if opt.MaxFiles <= 0 || opt.MaxFiles > domain.MaxAttachmentsPerParent {
		opt.MaxFiles = domain.MaxAttachmentsPerParent
	}
	if opt.MaxBytes <= 0 || opt.MaxBytes > domain.MaxAttachmentBytes {
		opt.MaxBytes = domain.MaxAttachmentBytes
	}
	if opt.NewName == nil {
		opt.NewName = utils.NewStoredName
	}
	if l == nil {
		l = zap.NewNop()
	}
	return &Pipeline{store: store, log: l, opt: opt}
}

func (p *Pipeline) Store() storage.Store { return p.store }

func (p *Pipeline) MaxFiles() int { return p.opt.MaxFiles }

// CheckCount existing 是父实体上已有的附件数
func (p *Pipeline) CheckCount(existing, incoming int) error {
	if existing+incoming > p.opt.MaxFiles {
		return domain.TooManyAttachments(existing, incoming, p.opt.MaxFiles)
	}
	return nil
}

// Run 暂存 parts 后调用 persist（父实体 + 附件行，同一事务）。
// staging 或 persist 出错、panic 时删除本次全部已暂存文件，再返回原错误 / 继续 panic。
func (p *Pipeline) Run(ctx context.Context, parts []Part, existing int, persist func(b *Batch) error) error {
	b, err := p.Stage(ctx, parts, existing)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		r := recover()
		p.Discard(ctx, b)
		if r != nil {
			panic(r)
		}
	}()
	if err := persist(b); err != nil {
		filesRejected.WithLabelValues(reasonOf(err)).Inc()
		return err
	}
	committed = true
	return nil
}

// Stage 逐个校验并写入存储；任何一个失败或 panic 都会清掉之前已写入的文件
func (p *Pipeline) Stage(ctx context.Context, parts []Part, existing int) (*Batch, error) {
	if err := p.CheckCount(existing, len(parts)); err != nil {
		filesRejected.WithLabelValues(reasonOf(err)).Inc()
		return nil, err
	}
	b := &Batch{files: make([]Staged, 0, len(parts))}
	defer func() {
		if r := recover(); r != nil {
			p.Discard(ctx, b)
			panic(r)
		}
	}()
	for _, part := range parts {
		st, err := p.stageOne(ctx, part)
		if err != nil {
			filesRejected.WithLabelValues(reasonOf(err)).Inc()
			p.Discard(ctx, b)
			return nil, err
		}
		b.files = append(b.files, st)
	}
	return b, nil
}

func (p *Pipeline) stageOne(ctx context.Context, part Part) (Staged, error) {
	name := cleanName(part.Filename)
	if name == "" {
		return Staged{}, domain.ErrFieldRequired.OnField("filename").Withf("filename is required")
	}
	if utf8.RuneCountInString(name) > 255 {
		return Staged{}, domain.ErrFieldTooLong.OnField("filename").Withf("filename exceeds max length 255")
	}
	mt, err := domain.CheckFileType(name, part.ContentType)
	if err != nil {
		return Staged{}, err
	}
	if part.Size > p.opt.MaxBytes {
		return Staged{}, p.tooLarge(part.Size)
	}

	rc, err := part.Open()
	if err != nil {
		return Staged{}, domain.ErrStorageIO.Wrap(err)
	}
	defer rc.Close()

	br := bufio.NewReaderSize(rc, sniffLen)
	if p.opt.SniffContent {
		head, err := br.Peek(sniffLen)
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
			return Staged{}, domain.ErrStorageIO.Wrap(err)
		}
		if detected := mimetype.Detect(head); !detected.Is(mt) {
			return Staged{}, domain.ErrContentMismatch.OnField("file").Withf(
				"file %q looks like %s, not %s", name, detected.String(), mt)
		}
	}

	stored := p.opt.NewName(domain.ExtensionFor(name))
	h := sha256.New()
	lr := &io.LimitedReader{R: br, N: p.opt.MaxBytes + 1}
	n, err := p.store.Put(ctx, stored, io.TeeReader(lr, h))
	if err != nil {
		if errors.Is(err, storage.ErrExists) {
			return Staged{}, domain.ErrStoredNameCollision
		}
		return Staged{}, domain.ErrStorageIO.Wrap(err)
	}
	if n > p.opt.MaxBytes {
		p.Remove(ctx, stored)
		return Staged{}, p.tooLarge(n)
	}

	filesStaged.Inc()
	fileBytes.Observe(float64(n))
	p.log.Debug("upload staged",
		zap.String("original_name", name),
		zap.String("stored_name", stored),
		zap.Int64("size", n),
	)
	return Staged{
		OriginalName: name,
		StoredName:   stored,
		StoragePath:  p.store.Path(stored),
		MimeType:     mt,
		SizeBytes:    n,
		ContentHash:  hex.EncodeToString(h.Sum(nil)),
	}, nil
}

// Discard 删除 batch 里全部文件，失败只记日志
func (p *Pipeline) Discard(ctx context.Context, b *Batch) {
	if b == nil {
		return
	}
	p.Remove(ctx, b.StoredNames()...)
}

// Remove 尽力删除物理文件；失败记录 WARN 与指标，从不返回错误
func (p *Pipeline) Remove(ctx context.Context, names ...string) {
	ctx = context.WithoutCancel(ctx)
	for _, name := range names {
		if err := p.store.Delete(ctx, name); err != nil {
			cleanupFailures.Inc()
			p.log.Warn("storage cleanup failed", zap.String("stored_name", name), zap.Error(err))
		}
	}
}

func (p *Pipeline) tooLarge(size int64) error {
	return domain.ErrAttachmentTooLarge.OnField("file").Withf(
		"attachment size %d exceeds max %d bytes", size, p.opt.MaxBytes)
}

// cleanName 去掉客户端带来的目录部分
func cleanName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == "/" {
		return ""
	}
	return name
}
