package utils

import (
	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
)

// NewID 行主键
func NewID() string { return uuid.NewString() }

// NewStoredName 存储文件名：随机 ksuid + 扩展名
func NewStoredName(ext string) string { return ksuid.New().String() + ext }
