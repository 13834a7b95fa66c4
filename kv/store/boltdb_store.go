package store

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/hatlonely/dbview/ref"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

type BoltDBStoreOptions struct {
	// DBPath 数据库文件路径，目录不存在时自动创建
	DBPath string `cfg:"dbPath" validate:"required"`

	// BucketName 所有键值写入同一个桶
	BucketName string `cfg:"bucketName" def:"default"`

	// Timeout 获取文件锁的等待时间，为零时无限等待
	Timeout time.Duration `cfg:"timeout" def:"1s"`

	NoSync   bool `cfg:"noSync"`
	ReadOnly bool `cfg:"readOnly"`

	KeySerializer *ref.TypeOptions `cfg:"keySerializer"`
	ValSerializer *ref.TypeOptions `cfg:"valSerializer"`
}

// BoltDBStore 单文件持久化存储，不支持过期时间
type BoltDBStore[K, V any] struct {
	db     *bolt.DB
	codec  *codec[K, V]
	bucket []byte
}

func NewBoltDBStoreWithOptions[K, V any](options *BoltDBStoreOptions) (*BoltDBStore[K, V], error) {
	if options == nil || options.DBPath == "" {
		return nil, errors.New("dbPath is required")
	}
	c, err := newCodec[K, V](options.KeySerializer, options.ValSerializer)
	if err != nil {
		return nil, err
	}

	directory := filepath.Dir(options.DBPath)
	if err := os.MkdirAll(directory, 0755); err != nil {
		return nil, errors.Wrapf(err, "os.MkdirAll failed. directory: %s", directory)
	}
	db, err := bolt.Open(options.DBPath, 0600, &bolt.Options{
		Timeout:  options.Timeout,
		NoSync:   options.NoSync,
		ReadOnly: options.ReadOnly,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "bolt.Open failed. dbPath: %s", options.DBPath)
	}

	bucket := options.BucketName
	if bucket == "" {
		bucket = "default"
	}
	s := &BoltDBStore[K, V]{db: db, codec: c, bucket: []byte(bucket)}
	if !options.ReadOnly {
		err = db.Update(func(tx *bolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(s.bucket)
			return err
		})
		if err != nil {
			_ = db.Close()
			return nil, errors.Wrap(err, "create bucket failed")
		}
	}
	return s, nil
}

func (s *BoltDBStore[K, V]) Set(ctx context.Context, key K, value V, opts ...setOption) error {
	errs, err := s.BatchSet(ctx, []K{key}, []V{value}, opts...)
	if err != nil {
		return err
	}
	return errs[0]
}

func (s *BoltDBStore[K, V]) Get(ctx context.Context, key K) (V, error) {
	vals, errs, err := s.BatchGet(ctx, []K{key})
	if err != nil {
		return vals[0], err
	}
	return vals[0], errs[0]
}

func (s *BoltDBStore[K, V]) Del(ctx context.Context, key K) error {
	errs, err := s.BatchDel(ctx, []K{key})
	if err != nil {
		return err
	}
	return errs[0]
}

// BatchSet 所有写入在同一个事务中提交
func (s *BoltDBStore[K, V]) BatchSet(ctx context.Context, keys []K, vals []V, opts ...setOption) ([]error, error) {
	if len(keys) != len(vals) {
		return nil, errors.Errorf("keys and vals length mismatch. keys: [%d], vals: [%d]", len(keys), len(vals))
	}
	options := applySetOptions(opts)
	errs := make([]error, len(keys))

	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		if bucket == nil {
			return errors.Errorf("bucket [%s] not found", s.bucket)
		}
		for i := range keys {
			kb, vb, err := s.codec.encode(keys[i], vals[i])
			if err != nil {
				errs[i] = err
				continue
			}
			if options.IfNotExist && bucket.Get(kb) != nil {
				errs[i] = ErrConditionFailed
				continue
			}
			if err := bucket.Put(kb, vb); err != nil {
				errs[i] = errors.Wrap(err, "bucket.Put failed")
			}
		}
		return nil
	})
	return errs, err
}

func (s *BoltDBStore[K, V]) BatchGet(ctx context.Context, keys []K) ([]V, []error, error) {
	vals := make([]V, len(keys))
	errs := make([]error, len(keys))

	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		if bucket == nil {
			return errors.Errorf("bucket [%s] not found", s.bucket)
		}
		for i, key := range keys {
			kb, err := s.codec.key.Serialize(key)
			if err != nil {
				errs[i] = errors.WithMessage(err, "serialize key failed")
				continue
			}
			// 返回的切片只在事务内有效，反序列化必须在事务内完成
			data := bucket.Get(kb)
			if data == nil {
				errs[i] = ErrKeyNotFound
				continue
			}
			vals[i], errs[i] = s.codec.decode(data)
		}
		return nil
	})
	return vals, errs, err
}

func (s *BoltDBStore[K, V]) BatchDel(ctx context.Context, keys []K) ([]error, error) {
	errs := make([]error, len(keys))
	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		if bucket == nil {
			return errors.Errorf("bucket [%s] not found", s.bucket)
		}
		for i, key := range keys {
			kb, err := s.codec.key.Serialize(key)
			if err != nil {
				errs[i] = errors.WithMessage(err, "serialize key failed")
				continue
			}
			if err := bucket.Delete(kb); err != nil {
				errs[i] = errors.Wrap(err, "bucket.Delete failed")
			}
		}
		return nil
	})
	return errs, err
}

func (s *BoltDBStore[K, V]) Close() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return errors.Wrap(err, "db.Close failed")
	}
	s.db = nil
	return nil
}
