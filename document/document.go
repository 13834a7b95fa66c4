// Package document 行排序引擎与协作文档存储之间的边界
//
// 文档存储对外暴露同步读取和变更事件；行文档可以单独打开，打开后需要销毁 Provider
// 以释放同步会话，文档本身保持可读。
package document

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/hatlonely/dbview/database"
	"github.com/pkg/errors"
)

var (
	ErrRowNotFound      = errors.New("row not found")
	ErrDatabaseNotFound = errors.New("database not found")
	ErrViewNotFound     = errors.New("view not found")
)

// Database 一个数据库文档，读取都是同步的，变更通过 Subscribe 通知
type Database interface {
	ID() string
	Fields() database.Fields
	Field(id string) (*database.Field, bool)
	View(viewID string) (*database.View, bool)
	// Row 返回常驻内存的行文档，未加载时返回 false
	Row(rowID string) (*database.Row, bool)
	Subscribe(fn func(Event)) func()
}

// Provider 行文档的同步会话
type Provider interface {
	Destroy() error
}

// RowOpener 按 (数据库, 行) 打开单独的行文档
type RowOpener interface {
	OpenRow(ctx context.Context, databaseID, rowID string) (*RowDoc, Provider, error)
}

// DatabaseLoader 按数据库 id 加载关联数据库
type DatabaseLoader interface {
	ViewIDFromDatabaseID(ctx context.Context, databaseID string) (string, bool)
	LoadView(ctx context.Context, viewID string) (Database, error)
}

// RowDoc 打开的行文档，Destroy 之后不应再读取
type RowDoc struct {
	DatabaseID string
	Row        *database.Row

	once      sync.Once
	destroyed atomic.Bool
	release   func()
}

func NewRowDoc(databaseID string, row *database.Row, release func()) *RowDoc {
	return &RowDoc{DatabaseID: databaseID, Row: row, release: release}
}

// Destroy 释放行文档，重复调用只生效一次
func (d *RowDoc) Destroy() {
	if d == nil {
		return
	}
	d.once.Do(func() {
		d.destroyed.Store(true)
		if d.release != nil {
			d.release()
		}
	})
}

func (d *RowDoc) Destroyed() bool {
	return d.destroyed.Load()
}

type noopProvider struct{}

func (noopProvider) Destroy() error { return nil }

// NoopProvider 没有同步会话的 Provider
var NoopProvider Provider = noopProvider{}
