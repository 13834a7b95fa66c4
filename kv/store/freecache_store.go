package store

import (
	"context"
	"time"

	"github.com/coocood/freecache"
	"github.com/hatlonely/dbview/ref"
	"github.com/pkg/errors"
)

type FreeCacheStoreOptions struct {
	// Size 缓存容量，单位字节，freecache 最小为 512KB
	Size          int              `cfg:"size" def:"33554432"`
	DefaultTTL    time.Duration    `cfg:"defaultTTL"`
	KeySerializer *ref.TypeOptions `cfg:"keySerializer"`
	ValSerializer *ref.TypeOptions `cfg:"valSerializer"`
}

// FreeCacheStore 容量受限的内存存储，超出容量时按 LRU 淘汰
type FreeCacheStore[K, V any] struct {
	cache      *freecache.Cache
	defaultTTL time.Duration
	codec      *codec[K, V]
}

func NewFreeCacheStoreWithOptions[K, V any](options *FreeCacheStoreOptions) (*FreeCacheStore[K, V], error) {
	if options == nil {
		options = &FreeCacheStoreOptions{}
	}
	c, err := newCodec[K, V](options.KeySerializer, options.ValSerializer)
	if err != nil {
		return nil, err
	}
	size := options.Size
	if size <= 0 {
		size = 32 * 1024 * 1024
	}
	return &FreeCacheStore[K, V]{
		cache:      freecache.NewCache(size),
		defaultTTL: options.DefaultTTL,
		codec:      c,
	}, nil
}

func (s *FreeCacheStore[K, V]) Set(ctx context.Context, key K, value V, opts ...setOption) error {
	options := applySetOptions(opts)
	kb, vb, err := s.codec.encode(key, value)
	if err != nil {
		return err
	}

	expiration := options.Expiration
	if expiration == 0 {
		expiration = s.defaultTTL
	}
	expireSeconds := int(expiration.Seconds())

	if options.IfNotExist {
		// GetOrSet 在键已存在时返回旧值且不写入
		prev, err := s.cache.GetOrSet(kb, vb, expireSeconds)
		if err != nil {
			return errors.Wrap(err, "cache.GetOrSet failed")
		}
		if prev != nil {
			return ErrConditionFailed
		}
		return nil
	}

	if err := s.cache.Set(kb, vb, expireSeconds); err != nil {
		return errors.Wrap(err, "cache.Set failed")
	}
	return nil
}

func (s *FreeCacheStore[K, V]) Get(ctx context.Context, key K) (V, error) {
	var zero V
	kb, err := s.codec.key.Serialize(key)
	if err != nil {
		return zero, errors.WithMessage(err, "serialize key failed")
	}
	vb, err := s.cache.Get(kb)
	if errors.Is(err, freecache.ErrNotFound) {
		return zero, ErrKeyNotFound
	}
	if err != nil {
		return zero, errors.Wrap(err, "cache.Get failed")
	}
	return s.codec.decode(vb)
}

func (s *FreeCacheStore[K, V]) Del(ctx context.Context, key K) error {
	kb, err := s.codec.key.Serialize(key)
	if err != nil {
		return errors.WithMessage(err, "serialize key failed")
	}
	s.cache.Del(kb)
	return nil
}

func (s *FreeCacheStore[K, V]) BatchSet(ctx context.Context, keys []K, vals []V, opts ...setOption) ([]error, error) {
	return batch[K, V]{set: s.Set}.BatchSet(ctx, keys, vals, opts...)
}

func (s *FreeCacheStore[K, V]) BatchGet(ctx context.Context, keys []K) ([]V, []error, error) {
	return batch[K, V]{get: s.Get}.BatchGet(ctx, keys)
}

func (s *FreeCacheStore[K, V]) BatchDel(ctx context.Context, keys []K) ([]error, error) {
	return batch[K, V]{del: s.Del}.BatchDel(ctx, keys)
}

func (s *FreeCacheStore[K, V]) Close() error {
	s.cache.Clear()
	return nil
}
