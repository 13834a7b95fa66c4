package document

import (
	"context"
	"sync/atomic"

	"github.com/hatlonely/dbview/database"
	"github.com/hatlonely/dbview/kv/store"
	"github.com/hatlonely/dbview/ref"
	"github.com/pkg/errors"
)

type StoreRowOpenerOptions struct {
	// Store 行文档的存储后端，为空时使用内存存储
	Store *ref.TypeOptions `cfg:"store"`
}

// StoreRowOpener 从 KV 存储打开行文档，键为 RowKey(databaseID, rowID)
type StoreRowOpener struct {
	store store.Store[string, database.Row]

	sessions atomic.Int64
	docs     atomic.Int64
}

func NewStoreRowOpenerWithOptions(options *StoreRowOpenerOptions) (*StoreRowOpener, error) {
	var storeOptions *ref.TypeOptions
	if options != nil {
		storeOptions = options.Store
	}
	s, err := store.NewStoreWithOptions[string, database.Row](storeOptions)
	if err != nil {
		return nil, errors.WithMessage(err, "store.NewStoreWithOptions failed")
	}
	return NewStoreRowOpener(s), nil
}

func NewStoreRowOpener(s store.Store[string, database.Row]) *StoreRowOpener {
	return &StoreRowOpener{store: s}
}

func RowKey(databaseID, rowID string) string {
	return databaseID + "/" + rowID
}

func (o *StoreRowOpener) OpenRow(ctx context.Context, databaseID, rowID string) (*RowDoc, Provider, error) {
	row, err := o.store.Get(ctx, RowKey(databaseID, rowID))
	if errors.Is(err, store.ErrKeyNotFound) {
		return nil, nil, errors.Wrapf(ErrRowNotFound, "row [%s/%s]", databaseID, rowID)
	}
	if err != nil {
		return nil, nil, errors.WithMessagef(err, "store.Get failed. row: [%s/%s]", databaseID, rowID)
	}

	o.sessions.Add(1)
	o.docs.Add(1)
	doc := NewRowDoc(databaseID, &row, func() { o.docs.Add(-1) })
	return doc, &storeProvider{opener: o}, nil
}

// SaveRows 写入行文档，返回第一个失败的错误
func (o *StoreRowOpener) SaveRows(ctx context.Context, databaseID string, rows ...*database.Row) error {
	keys := make([]string, 0, len(rows))
	vals := make([]database.Row, 0, len(rows))
	for _, r := range rows {
		if r == nil {
			continue
		}
		keys = append(keys, RowKey(databaseID, r.ID))
		vals = append(vals, *r.Clone())
	}
	errs, err := o.store.BatchSet(ctx, keys, vals)
	if err != nil {
		return errors.WithMessage(err, "store.BatchSet failed")
	}
	for i, e := range errs {
		if e != nil {
			return errors.WithMessagef(e, "save row [%s] failed", keys[i])
		}
	}
	return nil
}

func (o *StoreRowOpener) DeleteRow(ctx context.Context, databaseID, rowID string) error {
	return o.store.Del(ctx, RowKey(databaseID, rowID))
}

// Sessions 尚未销毁的 Provider 数量
func (o *StoreRowOpener) Sessions() int64 { return o.sessions.Load() }

// OpenDocs 尚未销毁的行文档数量
func (o *StoreRowOpener) OpenDocs() int64 { return o.docs.Load() }

func (o *StoreRowOpener) Close() error {
	return o.store.Close()
}

type storeProvider struct {
	opener    *StoreRowOpener
	destroyed atomic.Bool
}

func (p *storeProvider) Destroy() error {
	if p.destroyed.CompareAndSwap(false, true) {
		p.opener.sessions.Add(-1)
	}
	return nil
}
