// Package store 泛型 KV 存储，作为派生值缓存和行文档的后端
package store

import (
	"context"
	"time"

	"github.com/hatlonely/dbview/kv/serializer"
	"github.com/hatlonely/dbview/ref"
	"github.com/pkg/errors"
)

var (
	ErrKeyNotFound     = errors.New("key not found")
	ErrConditionFailed = errors.New("condition failed")
)

type setOptions struct {
	Expiration time.Duration
	IfNotExist bool
}

type setOption func(*setOptions)

func WithExpiration(expiration time.Duration) setOption {
	return func(o *setOptions) { o.Expiration = expiration }
}

func WithIfNotExist() setOption {
	return func(o *setOptions) { o.IfNotExist = true }
}

func applySetOptions(opts []setOption) *setOptions {
	o := &setOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type Store[K, V any] interface {
	// Set WithIfNotExist 时键已存在返回 ErrConditionFailed
	Set(ctx context.Context, key K, value V, opts ...setOption) error
	// Get 键不存在返回 ErrKeyNotFound
	Get(ctx context.Context, key K) (V, error)
	// Del 键不存在也返回成功
	Del(ctx context.Context, key K) error
	BatchSet(ctx context.Context, keys []K, vals []V, opts ...setOption) ([]error, error)
	BatchGet(ctx context.Context, keys []K) ([]V, []error, error)
	BatchDel(ctx context.Context, keys []K) ([]error, error)
	Close() error
}

// register 泛型存储需要按具体的 K、V 注册
func register[K comparable, V any]() {
	ref.MustRegisterT[*SyncMapStore[K, V]](NewSyncMapStoreWithOptions[K, V])
	ref.MustRegisterT[*FreeCacheStore[K, V]](NewFreeCacheStoreWithOptions[K, V])
	ref.MustRegisterT[*BoltDBStore[K, V]](NewBoltDBStoreWithOptions[K, V])
	ref.MustRegisterT[*LevelDBStore[K, V]](NewLevelDBStoreWithOptions[K, V])
	ref.MustRegisterT[*PebbleStore[K, V]](NewPebbleStoreWithOptions[K, V])
	ref.MustRegisterT[*RedisStore[K, V]](NewRedisStoreWithOptions[K, V])
	ref.MustRegisterT[*GormStore[K, V]](NewGormStoreWithOptions[K, V])
	ref.MustRegisterT[*TieredStore[K, V]](NewTieredStoreWithOptions[K, V])
	ref.MustRegisterT[*ObservableStore[K, V]](NewObservableStoreWithOptions[K, V])
}

// NewStoreWithOptions 按配置创建存储，options 为 nil 时使用 SyncMapStore
func NewStoreWithOptions[K comparable, V any](options *ref.TypeOptions) (Store[K, V], error) {
	register[K, V]()
	if options == nil {
		options = ref.TypeOptionsOf[*SyncMapStore[K, V]](nil)
	}
	s, err := ref.NewWithOptions[Store[K, V]](options)
	if err != nil {
		return nil, errors.WithMessage(err, "ref.NewWithOptions failed")
	}
	return s, nil
}

// codec 字节型后端共用的键值编解码
type codec[K, V any] struct {
	key serializer.Serializer[K, []byte]
	val serializer.Serializer[V, []byte]
}

func newCodec[K, V any](keyOptions, valOptions *ref.TypeOptions) (*codec[K, V], error) {
	key, err := serializer.NewByteSerializerWithOptions[K](keyOptions)
	if err != nil {
		return nil, errors.WithMessage(err, "create key serializer failed")
	}
	val, err := serializer.NewByteSerializerWithOptions[V](valOptions)
	if err != nil {
		return nil, errors.WithMessage(err, "create value serializer failed")
	}
	return &codec[K, V]{key: key, val: val}, nil
}

func (c *codec[K, V]) encode(key K, value V) ([]byte, []byte, error) {
	kb, err := c.key.Serialize(key)
	if err != nil {
		return nil, nil, errors.WithMessage(err, "serialize key failed")
	}
	vb, err := c.val.Serialize(value)
	if err != nil {
		return nil, nil, errors.WithMessage(err, "serialize value failed")
	}
	return kb, vb, nil
}

func (c *codec[K, V]) decode(vb []byte) (V, error) {
	v, err := c.val.Deserialize(vb)
	if err != nil {
		return v, errors.WithMessage(err, "deserialize value failed")
	}
	return v, nil
}

// batch 逐个调用单键操作实现批量接口
type batch[K, V any] struct {
	set func(ctx context.Context, key K, value V, opts ...setOption) error
	get func(ctx context.Context, key K) (V, error)
	del func(ctx context.Context, key K) error
}

func (b batch[K, V]) BatchSet(ctx context.Context, keys []K, vals []V, opts ...setOption) ([]error, error) {
	if len(keys) != len(vals) {
		return nil, errors.Errorf("keys and vals length mismatch. keys: [%d], vals: [%d]", len(keys), len(vals))
	}
	errs := make([]error, len(keys))
	for i := range keys {
		errs[i] = b.set(ctx, keys[i], vals[i], opts...)
	}
	return errs, nil
}

func (b batch[K, V]) BatchGet(ctx context.Context, keys []K) ([]V, []error, error) {
	vals := make([]V, len(keys))
	errs := make([]error, len(keys))
	for i, key := range keys {
		vals[i], errs[i] = b.get(ctx, key)
	}
	return vals, errs, nil
}

func (b batch[K, V]) BatchDel(ctx context.Context, keys []K) ([]error, error) {
	errs := make([]error, len(keys))
	for i, key := range keys {
		errs[i] = b.del(ctx, key)
	}
	return errs, nil
}
