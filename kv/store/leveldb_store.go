package store

import (
	"context"
	"sync"

	"github.com/hatlonely/dbview/ref"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

type LevelDBStoreOptions struct {
	DBPath string `cfg:"dbPath" validate:"required"`

	// Compression 可选 none、snappy，为空时使用 snappy
	Compression string `cfg:"compression" validate:"omitempty,oneof=none snappy"`

	// BlockCacheCapacity 块缓存容量，为零时使用 8MiB
	BlockCacheCapacity int  `cfg:"blockCacheCapacity"`
	NoSync             bool `cfg:"noSync"`
	ReadOnly           bool `cfg:"readOnly"`

	KeySerializer *ref.TypeOptions `cfg:"keySerializer"`
	ValSerializer *ref.TypeOptions `cfg:"valSerializer"`
}

// LevelDBStore 目录形式的持久化存储，不支持过期时间
type LevelDBStore[K, V any] struct {
	db    *leveldb.DB
	codec *codec[K, V]
	wo    *opt.WriteOptions

	// mu 保证 IfNotExist 的检查和写入是原子的
	mu sync.Mutex
}

func NewLevelDBStoreWithOptions[K, V any](options *LevelDBStoreOptions) (*LevelDBStore[K, V], error) {
	if options == nil || options.DBPath == "" {
		return nil, errors.New("dbPath is required")
	}
	c, err := newCodec[K, V](options.KeySerializer, options.ValSerializer)
	if err != nil {
		return nil, err
	}

	compression := opt.DefaultCompression
	switch options.Compression {
	case "":
	case "none":
		compression = opt.NoCompression
	case "snappy":
		compression = opt.SnappyCompression
	default:
		return nil, errors.Errorf("invalid compression [%s]", options.Compression)
	}

	db, err := leveldb.OpenFile(options.DBPath, &opt.Options{
		Compression:        compression,
		BlockCacheCapacity: options.BlockCacheCapacity,
		NoSync:             options.NoSync,
		ReadOnly:           options.ReadOnly,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "leveldb.OpenFile failed. dbPath: %s", options.DBPath)
	}

	return &LevelDBStore[K, V]{
		db:    db,
		codec: c,
		wo:    &opt.WriteOptions{Sync: !options.NoSync},
	}, nil
}

func (s *LevelDBStore[K, V]) Set(ctx context.Context, key K, value V, opts ...setOption) error {
	errs, err := s.BatchSet(ctx, []K{key}, []V{value}, opts...)
	if err != nil {
		return err
	}
	return errs[0]
}

func (s *LevelDBStore[K, V]) Get(ctx context.Context, key K) (V, error) {
	var zero V
	kb, err := s.codec.key.Serialize(key)
	if err != nil {
		return zero, errors.WithMessage(err, "serialize key failed")
	}
	vb, err := s.db.Get(kb, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return zero, ErrKeyNotFound
	}
	if err != nil {
		return zero, errors.Wrap(err, "db.Get failed")
	}
	return s.codec.decode(vb)
}

func (s *LevelDBStore[K, V]) Del(ctx context.Context, key K) error {
	errs, err := s.BatchDel(ctx, []K{key})
	if err != nil {
		return err
	}
	return errs[0]
}

// BatchSet 编码成功的键值合并为一次写入
func (s *LevelDBStore[K, V]) BatchSet(ctx context.Context, keys []K, vals []V, opts ...setOption) ([]error, error) {
	if len(keys) != len(vals) {
		return nil, errors.Errorf("keys and vals length mismatch. keys: [%d], vals: [%d]", len(keys), len(vals))
	}
	options := applySetOptions(opts)
	errs := make([]error, len(keys))

	if options.IfNotExist {
		s.mu.Lock()
		defer s.mu.Unlock()
	}

	b := new(leveldb.Batch)
	for i := range keys {
		kb, vb, err := s.codec.encode(keys[i], vals[i])
		if err != nil {
			errs[i] = err
			continue
		}
		if options.IfNotExist {
			exists, err := s.db.Has(kb, nil)
			if err != nil {
				errs[i] = errors.Wrap(err, "db.Has failed")
				continue
			}
			if exists {
				errs[i] = ErrConditionFailed
				continue
			}
		}
		b.Put(kb, vb)
	}
	if err := s.db.Write(b, s.wo); err != nil {
		return errs, errors.Wrap(err, "db.Write failed")
	}
	return errs, nil
}

func (s *LevelDBStore[K, V]) BatchGet(ctx context.Context, keys []K) ([]V, []error, error) {
	return batch[K, V]{get: s.Get}.BatchGet(ctx, keys)
}

func (s *LevelDBStore[K, V]) BatchDel(ctx context.Context, keys []K) ([]error, error) {
	errs := make([]error, len(keys))
	b := new(leveldb.Batch)
	for i, key := range keys {
		kb, err := s.codec.key.Serialize(key)
		if err != nil {
			errs[i] = errors.WithMessage(err, "serialize key failed")
			continue
		}
		b.Delete(kb)
	}
	if err := s.db.Write(b, s.wo); err != nil {
		return errs, errors.Wrap(err, "db.Write failed")
	}
	return errs, nil
}

func (s *LevelDBStore[K, V]) Close() error {
	if err := s.db.Close(); err != nil && !errors.Is(err, leveldb.ErrClosed) {
		return errors.Wrap(err, "db.Close failed")
	}
	return nil
}
