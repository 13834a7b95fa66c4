package store

import (
	"context"

	"github.com/hatlonely/dbview/ref"
	"github.com/pkg/errors"
)

const (
	WritePolicyWriteThrough = "writeThrough"
	WritePolicyWriteBack    = "writeBack"
)

type TieredStoreOptions struct {
	// Tiers 按访问速度从快到慢排列，例如进程内缓存在前，redis 或磁盘在后
	Tiers []*ref.TypeOptions `cfg:"tiers" validate:"required,min=1,dive,required"`

	// WritePolicy writeThrough 同步写入所有层；writeBack 只同步写第一层，其余层异步写入
	WritePolicy string `cfg:"writePolicy" def:"writeThrough" validate:"oneof=writeThrough writeBack"`

	// Promote 从下层读到的数据写回上层
	Promote bool `cfg:"promote" def:"true"`
}

// TieredStore 多级存储，读取时逐层查找
type TieredStore[K comparable, V any] struct {
	tiers       []Store[K, V]
	writePolicy string
	promote     bool
}

func NewTieredStoreWithOptions[K comparable, V any](options *TieredStoreOptions) (*TieredStore[K, V], error) {
	if options == nil || len(options.Tiers) == 0 {
		return nil, errors.New("at least one tier is required")
	}
	writePolicy := options.WritePolicy
	if writePolicy == "" {
		writePolicy = WritePolicyWriteThrough
	}
	if writePolicy != WritePolicyWriteThrough && writePolicy != WritePolicyWriteBack {
		return nil, errors.Errorf("invalid write policy [%s]", writePolicy)
	}

	tiers := make([]Store[K, V], 0, len(options.Tiers))
	for i, tierOptions := range options.Tiers {
		tier, err := NewStoreWithOptions[K, V](tierOptions)
		if err != nil {
			for _, created := range tiers {
				_ = created.Close()
			}
			return nil, errors.WithMessagef(err, "create tier %d failed", i)
		}
		tiers = append(tiers, tier)
	}
	return newTieredStore(tiers, writePolicy, options.Promote), nil
}

func newTieredStore[K comparable, V any](tiers []Store[K, V], writePolicy string, promote bool) *TieredStore[K, V] {
	return &TieredStore[K, V]{tiers: tiers, writePolicy: writePolicy, promote: promote}
}

func (ts *TieredStore[K, V]) Set(ctx context.Context, key K, value V, opts ...setOption) error {
	if ts.writePolicy == WritePolicyWriteBack {
		if err := ts.tiers[0].Set(ctx, key, value, opts...); err != nil {
			return err
		}
		if len(ts.tiers) > 1 {
			go ts.setTiers(context.WithoutCancel(ctx), ts.tiers[1:], key, value, opts...)
		}
		return nil
	}

	// 条件写入以第一层的结果为准
	var lastErr error
	success := false
	for _, tier := range ts.tiers {
		err := tier.Set(ctx, key, value, opts...)
		if errors.Is(err, ErrConditionFailed) {
			return err
		}
		if err != nil {
			lastErr = err
			continue
		}
		success = true
	}
	if !success {
		return lastErr
	}
	return nil
}

func (ts *TieredStore[K, V]) Get(ctx context.Context, key K) (V, error) {
	var zero V
	var lastErr error
	for i, tier := range ts.tiers {
		value, err := tier.Get(ctx, key)
		if err == nil {
			if ts.promote && i > 0 {
				go ts.setTiers(context.WithoutCancel(ctx), ts.tiers[:i], key, value)
			}
			return value, nil
		}
		if !errors.Is(err, ErrKeyNotFound) {
			lastErr = err
		}
	}
	if lastErr != nil {
		return zero, lastErr
	}
	return zero, ErrKeyNotFound
}

func (ts *TieredStore[K, V]) setTiers(ctx context.Context, tiers []Store[K, V], key K, value V, opts ...setOption) {
	for _, tier := range tiers {
		_ = tier.Set(ctx, key, value, opts...)
	}
}

func (ts *TieredStore[K, V]) Del(ctx context.Context, key K) error {
	var lastErr error
	for _, tier := range ts.tiers {
		if err := tier.Del(ctx, key); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func (ts *TieredStore[K, V]) BatchSet(ctx context.Context, keys []K, vals []V, opts ...setOption) ([]error, error) {
	return batch[K, V]{set: ts.Set}.BatchSet(ctx, keys, vals, opts...)
}

func (ts *TieredStore[K, V]) BatchGet(ctx context.Context, keys []K) ([]V, []error, error) {
	return batch[K, V]{get: ts.Get}.BatchGet(ctx, keys)
}

func (ts *TieredStore[K, V]) BatchDel(ctx context.Context, keys []K) ([]error, error) {
	return batch[K, V]{del: ts.Del}.BatchDel(ctx, keys)
}

func (ts *TieredStore[K, V]) Close() error {
	var errs []error
	for i, tier := range ts.tiers {
		if err := tier.Close(); err != nil {
			errs = append(errs, errors.WithMessagef(err, "close tier %d failed", i))
		}
	}
	if len(errs) > 0 {
		return errors.Errorf("close tiers failed: %v", errs)
	}
	return nil
}

// TierCount 返回层数
func (ts *TieredStore[K, V]) TierCount() int {
	return len(ts.tiers)
}

// GetFromTier 只从指定层读取
func (ts *TieredStore[K, V]) GetFromTier(ctx context.Context, tier int, key K) (V, error) {
	var zero V
	if tier < 0 || tier >= len(ts.tiers) {
		return zero, errors.Errorf("invalid tier index [%d]", tier)
	}
	return ts.tiers[tier].Get(ctx, key)
}
