package store

import (
	"context"
	"sync"

	"github.com/cockroachdb/fifo"
	"github.com/cockroachdb/pebble"
	"github.com/hatlonely/dbview/ref"
	"github.com/pkg/errors"
)

type PebbleStoreOptions struct {
	DBPath string `cfg:"dbPath" validate:"required"`

	// CacheSize 块缓存大小，为零时使用 pebble 的默认值
	CacheSize int64 `cfg:"cacheSize"`

	// LoadBlockConcurrency 同时从磁盘加载块的上限，为零时不限制
	LoadBlockConcurrency int64 `cfg:"loadBlockConcurrency" validate:"min=0"`

	MemTableSize   int  `cfg:"memTableSize"`
	DisableWAL     bool `cfg:"disableWAL"`
	SetWithoutSync bool `cfg:"setWithoutSync"`
	ReadOnly       bool `cfg:"readOnly"`

	KeySerializer *ref.TypeOptions `cfg:"keySerializer"`
	ValSerializer *ref.TypeOptions `cfg:"valSerializer"`
}

// PebbleStore LSM 持久化存储，不支持过期时间
type PebbleStore[K, V any] struct {
	db    *pebble.DB
	codec *codec[K, V]
	wo    *pebble.WriteOptions
	mu    sync.Mutex
}

func NewPebbleStoreWithOptions[K, V any](options *PebbleStoreOptions) (*PebbleStore[K, V], error) {
	if options == nil || options.DBPath == "" {
		return nil, errors.New("dbPath is required")
	}
	c, err := newCodec[K, V](options.KeySerializer, options.ValSerializer)
	if err != nil {
		return nil, err
	}

	pebbleOptions := &pebble.Options{
		DisableWAL: options.DisableWAL,
		ReadOnly:   options.ReadOnly,
	}
	if options.MemTableSize > 0 {
		pebbleOptions.MemTableSize = uint64(options.MemTableSize)
	}
	if options.CacheSize > 0 {
		cache := pebble.NewCache(options.CacheSize)
		defer cache.Unref()
		pebbleOptions.Cache = cache
	}
	if options.LoadBlockConcurrency > 0 {
		pebbleOptions.LoadBlockSema = fifo.NewSemaphore(options.LoadBlockConcurrency)
	}

	db, err := pebble.Open(options.DBPath, pebbleOptions)
	if err != nil {
		return nil, errors.Wrapf(err, "pebble.Open failed. dbPath: %s", options.DBPath)
	}

	wo := pebble.Sync
	if options.SetWithoutSync {
		wo = pebble.NoSync
	}
	return &PebbleStore[K, V]{db: db, codec: c, wo: wo}, nil
}

func (s *PebbleStore[K, V]) Set(ctx context.Context, key K, value V, opts ...setOption) error {
	errs, err := s.BatchSet(ctx, []K{key}, []V{value}, opts...)
	if err != nil {
		return err
	}
	return errs[0]
}

func (s *PebbleStore[K, V]) Get(ctx context.Context, key K) (V, error) {
	var zero V
	kb, err := s.codec.key.Serialize(key)
	if err != nil {
		return zero, errors.WithMessage(err, "serialize key failed")
	}
	vb, closer, err := s.db.Get(kb)
	if errors.Is(err, pebble.ErrNotFound) {
		return zero, ErrKeyNotFound
	}
	if err != nil {
		return zero, errors.Wrap(err, "db.Get failed")
	}
	defer closer.Close()
	return s.codec.decode(vb)
}

func (s *PebbleStore[K, V]) exists(kb []byte) (bool, error) {
	_, closer, err := s.db.Get(kb)
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "db.Get failed")
	}
	return true, closer.Close()
}

func (s *PebbleStore[K, V]) Del(ctx context.Context, key K) error {
	errs, err := s.BatchDel(ctx, []K{key})
	if err != nil {
		return err
	}
	return errs[0]
}

func (s *PebbleStore[K, V]) BatchSet(ctx context.Context, keys []K, vals []V, opts ...setOption) ([]error, error) {
	if len(keys) != len(vals) {
		return nil, errors.Errorf("keys and vals length mismatch. keys: [%d], vals: [%d]", len(keys), len(vals))
	}
	options := applySetOptions(opts)
	errs := make([]error, len(keys))

	if options.IfNotExist {
		s.mu.Lock()
		defer s.mu.Unlock()
	}

	b := s.db.NewBatch()
	defer b.Close()
	for i := range keys {
		kb, vb, err := s.codec.encode(keys[i], vals[i])
		if err != nil {
			errs[i] = err
			continue
		}
		if options.IfNotExist {
			exists, err := s.exists(kb)
			if err != nil {
				errs[i] = err
				continue
			}
			if exists {
				errs[i] = ErrConditionFailed
				continue
			}
		}
		if err := b.Set(kb, vb, nil); err != nil {
			errs[i] = errors.Wrap(err, "batch.Set failed")
		}
	}
	if err := b.Commit(s.wo); err != nil {
		return errs, errors.Wrap(err, "batch.Commit failed")
	}
	return errs, nil
}

func (s *PebbleStore[K, V]) BatchGet(ctx context.Context, keys []K) ([]V, []error, error) {
	return batch[K, V]{get: s.Get}.BatchGet(ctx, keys)
}

func (s *PebbleStore[K, V]) BatchDel(ctx context.Context, keys []K) ([]error, error) {
	errs := make([]error, len(keys))
	b := s.db.NewBatch()
	defer b.Close()
	for i, key := range keys {
		kb, err := s.codec.key.Serialize(key)
		if err != nil {
			errs[i] = errors.WithMessage(err, "serialize key failed")
			continue
		}
		if err := b.Delete(kb, nil); err != nil {
			errs[i] = errors.Wrap(err, "batch.Delete failed")
		}
	}
	if err := b.Commit(s.wo); err != nil {
		return errs, errors.Wrap(err, "batch.Commit failed")
	}
	return errs, nil
}

func (s *PebbleStore[K, V]) Close() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return errors.Wrap(err, "db.Close failed")
	}
	s.db = nil
	return nil
}
