package store

import (
	"context"
	"sync"
	"time"
)

type syncMapEntry[V any] struct {
	value    V
	expireAt time.Time
}

func (e syncMapEntry[V]) expired(now time.Time) bool {
	return !e.expireAt.IsZero() && now.After(e.expireAt)
}

// SyncMapStore 进程内存储，派生值缓存的默认后端
type SyncMapStore[K comparable, V any] struct {
	m  sync.Map
	mu sync.Mutex
}

func NewSyncMapStoreWithOptions[K comparable, V any]() *SyncMapStore[K, V] {
	return &SyncMapStore[K, V]{}
}

func (s *SyncMapStore[K, V]) Set(ctx context.Context, key K, value V, opts ...setOption) error {
	options := applySetOptions(opts)
	entry := syncMapEntry[V]{value: value}
	if options.Expiration > 0 {
		entry.expireAt = time.Now().Add(options.Expiration)
	}

	if !options.IfNotExist {
		s.m.Store(key, entry)
		return nil
	}

	// 过期的键视为不存在，检查和写入需要在同一个临界区内
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.m.Load(key); ok && !v.(syncMapEntry[V]).expired(time.Now()) {
		return ErrConditionFailed
	}
	s.m.Store(key, entry)
	return nil
}

func (s *SyncMapStore[K, V]) Get(ctx context.Context, key K) (V, error) {
	var zero V
	v, ok := s.m.Load(key)
	if !ok {
		return zero, ErrKeyNotFound
	}
	entry := v.(syncMapEntry[V])
	if entry.expired(time.Now()) {
		s.m.CompareAndDelete(key, v)
		return zero, ErrKeyNotFound
	}
	return entry.value, nil
}

func (s *SyncMapStore[K, V]) Del(ctx context.Context, key K) error {
	s.m.Delete(key)
	return nil
}

func (s *SyncMapStore[K, V]) BatchSet(ctx context.Context, keys []K, vals []V, opts ...setOption) ([]error, error) {
	return batch[K, V]{set: s.Set}.BatchSet(ctx, keys, vals, opts...)
}

func (s *SyncMapStore[K, V]) BatchGet(ctx context.Context, keys []K) ([]V, []error, error) {
	return batch[K, V]{get: s.Get}.BatchGet(ctx, keys)
}

func (s *SyncMapStore[K, V]) BatchDel(ctx context.Context, keys []K) ([]error, error) {
	return batch[K, V]{del: s.Del}.BatchDel(ctx, keys)
}

func (s *SyncMapStore[K, V]) Close() error {
	s.m.Clear()
	return nil
}
