package store

import (
	"context"
	"time"

	"github.com/hatlonely/dbview/ref"
	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// kvEntry 键值表的一行，ExpireAt 为零表示不过期
type kvEntry struct {
	Key      []byte `gorm:"primaryKey;type:varbinary(512);column:k"`
	Value    []byte `gorm:"type:longblob;column:v"`
	ExpireAt int64  `gorm:"column:expire_at;not null;default:0"`
}

type GormStoreOptions struct {
	// Driver 可选 sqlite、mysql
	Driver string `cfg:"driver" def:"sqlite" validate:"oneof=sqlite mysql"`
	DSN    string `cfg:"dsn" validate:"required"`

	// TableName 为空时使用 kv_entries
	TableName string `cfg:"tableName" def:"kv_entries"`

	KeySerializer *ref.TypeOptions `cfg:"keySerializer"`
	ValSerializer *ref.TypeOptions `cfg:"valSerializer"`
}

// GormStore 以关系数据库的一张表作为键值存储
type GormStore[K, V any] struct {
	db    *gorm.DB
	codec *codec[K, V]
	table string
}

func NewGormStoreWithOptions[K, V any](options *GormStoreOptions) (*GormStore[K, V], error) {
	if options == nil || options.DSN == "" {
		return nil, errors.New("dsn is required")
	}
	c, err := newCodec[K, V](options.KeySerializer, options.ValSerializer)
	if err != nil {
		return nil, err
	}

	var dialector gorm.Dialector
	switch options.Driver {
	case "", "sqlite":
		dialector = sqlite.Open(options.DSN)
	case "mysql":
		dialector = mysql.Open(options.DSN)
	default:
		return nil, errors.Errorf("unsupported driver [%s]", options.Driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, errors.Wrap(err, "gorm.Open failed")
	}

	table := options.TableName
	if table == "" {
		table = "kv_entries"
	}
	if err := db.Table(table).AutoMigrate(&kvEntry{}); err != nil {
		return nil, errors.Wrapf(err, "AutoMigrate failed. table: %s", table)
	}
	return &GormStore[K, V]{db: db, codec: c, table: table}, nil
}

func (s *GormStore[K, V]) Set(ctx context.Context, key K, value V, opts ...setOption) error {
	options := applySetOptions(opts)
	kb, vb, err := s.codec.encode(key, value)
	if err != nil {
		return err
	}
	entry := &kvEntry{Key: kb, Value: vb}
	if options.Expiration > 0 {
		entry.ExpireAt = time.Now().Add(options.Expiration).UnixNano()
	}

	db := s.db.WithContext(ctx).Table(s.table)
	if !options.IfNotExist {
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "k"}},
			DoUpdates: clause.AssignmentColumns([]string{"v", "expire_at"}),
		}).Create(entry).Error
		return errors.Wrap(err, "upsert failed")
	}

	// 过期的旧行先删除，再以 DoNothing 插入判断是否已存在
	if err := db.Where("k = ? AND expire_at > 0 AND expire_at <= ?", kb, time.Now().UnixNano()).Delete(&kvEntry{}).Error; err != nil {
		return errors.Wrap(err, "delete expired failed")
	}
	res := s.db.WithContext(ctx).Table(s.table).Clauses(clause.OnConflict{DoNothing: true}).Create(entry)
	if res.Error != nil {
		return errors.Wrap(res.Error, "insert failed")
	}
	if res.RowsAffected == 0 {
		return ErrConditionFailed
	}
	return nil
}

func (s *GormStore[K, V]) Get(ctx context.Context, key K) (V, error) {
	var zero V
	kb, err := s.codec.key.Serialize(key)
	if err != nil {
		return zero, errors.WithMessage(err, "serialize key failed")
	}
	var entry kvEntry
	err = s.db.WithContext(ctx).Table(s.table).Where("k = ?", kb).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return zero, ErrKeyNotFound
	}
	if err != nil {
		return zero, errors.Wrap(err, "query failed")
	}
	if entry.ExpireAt > 0 && entry.ExpireAt <= time.Now().UnixNano() {
		return zero, ErrKeyNotFound
	}
	return s.codec.decode(entry.Value)
}

func (s *GormStore[K, V]) Del(ctx context.Context, key K) error {
	kb, err := s.codec.key.Serialize(key)
	if err != nil {
		return errors.WithMessage(err, "serialize key failed")
	}
	if err := s.db.WithContext(ctx).Table(s.table).Where("k = ?", kb).Delete(&kvEntry{}).Error; err != nil {
		return errors.Wrap(err, "delete failed")
	}
	return nil
}

func (s *GormStore[K, V]) BatchSet(ctx context.Context, keys []K, vals []V, opts ...setOption) ([]error, error) {
	return batch[K, V]{set: s.Set}.BatchSet(ctx, keys, vals, opts...)
}

func (s *GormStore[K, V]) BatchGet(ctx context.Context, keys []K) ([]V, []error, error) {
	return batch[K, V]{get: s.Get}.BatchGet(ctx, keys)
}

func (s *GormStore[K, V]) BatchDel(ctx context.Context, keys []K) ([]error, error) {
	return batch[K, V]{del: s.Del}.BatchDel(ctx, keys)
}

func (s *GormStore[K, V]) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.Wrap(err, "db.DB failed")
	}
	if err := sqlDB.Close(); err != nil {
		return errors.Wrap(err, "sqlDB.Close failed")
	}
	return nil
}
