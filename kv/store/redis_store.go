package store

import (
	"context"
	"time"

	"github.com/hatlonely/dbview/ref"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type RedisStoreOptions struct {
	// Endpoint 单机 host:port 地址
	Endpoint string `cfg:"endpoint"`

	// Endpoints 集群节点地址列表，Endpoint 为空时使用
	Endpoints []string `cfg:"endpoints"`

	// KeyPrefix 所有键的前缀，多个视图共用一个实例时用于隔离
	KeyPrefix string `cfg:"keyPrefix"`

	DefaultTTL time.Duration `cfg:"defaultTTL"`

	Username     string        `cfg:"username"`
	Password     string        `cfg:"password"`
	DB           int           `cfg:"db" def:"0"`
	MaxRetries   int           `cfg:"maxRetries" def:"3"`
	DialTimeout  time.Duration `cfg:"dialTimeout" def:"5s"`
	ReadTimeout  time.Duration `cfg:"readTimeout" def:"3s"`
	WriteTimeout time.Duration `cfg:"writeTimeout" def:"3s"`
	PoolSize     int           `cfg:"poolSize" def:"100"`

	KeySerializer *ref.TypeOptions `cfg:"keySerializer"`
	ValSerializer *ref.TypeOptions `cfg:"valSerializer"`
}

type RedisStore[K, V any] struct {
	client     redis.UniversalClient
	codec      *codec[K, V]
	prefix     string
	defaultTTL time.Duration
}

func NewRedisStoreWithOptions[K, V any](options *RedisStoreOptions) (*RedisStore[K, V], error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}
	c, err := newCodec[K, V](options.KeySerializer, options.ValSerializer)
	if err != nil {
		return nil, err
	}

	var client redis.UniversalClient
	switch {
	case options.Endpoint != "":
		client = redis.NewClient(&redis.Options{
			Addr:         options.Endpoint,
			Username:     options.Username,
			Password:     options.Password,
			DB:           options.DB,
			MaxRetries:   options.MaxRetries,
			DialTimeout:  options.DialTimeout,
			ReadTimeout:  options.ReadTimeout,
			WriteTimeout: options.WriteTimeout,
			PoolSize:     options.PoolSize,
		})
	case len(options.Endpoints) > 0:
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        options.Endpoints,
			Username:     options.Username,
			Password:     options.Password,
			MaxRetries:   options.MaxRetries,
			DialTimeout:  options.DialTimeout,
			ReadTimeout:  options.ReadTimeout,
			WriteTimeout: options.WriteTimeout,
			PoolSize:     options.PoolSize,
		})
	default:
		return nil, errors.New("endpoint or endpoints must be set")
	}

	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "client.Ping failed")
	}

	return &RedisStore[K, V]{
		client:     client,
		codec:      c,
		prefix:     options.KeyPrefix,
		defaultTTL: options.DefaultTTL,
	}, nil
}

func (s *RedisStore[K, V]) redisKey(key K) (string, error) {
	kb, err := s.codec.key.Serialize(key)
	if err != nil {
		return "", errors.WithMessage(err, "serialize key failed")
	}
	return s.prefix + string(kb), nil
}

func (s *RedisStore[K, V]) Set(ctx context.Context, key K, value V, opts ...setOption) error {
	options := applySetOptions(opts)
	rk, err := s.redisKey(key)
	if err != nil {
		return err
	}
	vb, err := s.codec.val.Serialize(value)
	if err != nil {
		return errors.WithMessage(err, "serialize value failed")
	}

	expiration := options.Expiration
	if expiration == 0 {
		expiration = s.defaultTTL
	}

	if options.IfNotExist {
		ok, err := s.client.SetNX(ctx, rk, vb, expiration).Result()
		if err != nil {
			return errors.Wrap(err, "client.SetNX failed")
		}
		if !ok {
			return ErrConditionFailed
		}
		return nil
	}
	if err := s.client.Set(ctx, rk, vb, expiration).Err(); err != nil {
		return errors.Wrap(err, "client.Set failed")
	}
	return nil
}

func (s *RedisStore[K, V]) Get(ctx context.Context, key K) (V, error) {
	var zero V
	rk, err := s.redisKey(key)
	if err != nil {
		return zero, err
	}
	vb, err := s.client.Get(ctx, rk).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, ErrKeyNotFound
	}
	if err != nil {
		return zero, errors.Wrap(err, "client.Get failed")
	}
	return s.codec.decode(vb)
}

func (s *RedisStore[K, V]) Del(ctx context.Context, key K) error {
	rk, err := s.redisKey(key)
	if err != nil {
		return err
	}
	if err := s.client.Del(ctx, rk).Err(); err != nil {
		return errors.Wrap(err, "client.Del failed")
	}
	return nil
}

func (s *RedisStore[K, V]) BatchSet(ctx context.Context, keys []K, vals []V, opts ...setOption) ([]error, error) {
	return batch[K, V]{set: s.Set}.BatchSet(ctx, keys, vals, opts...)
}

// BatchGet 使用一次 MGET 读取，集群模式下要求所有键在同一个 slot
func (s *RedisStore[K, V]) BatchGet(ctx context.Context, keys []K) ([]V, []error, error) {
	vals := make([]V, len(keys))
	errs := make([]error, len(keys))
	if len(keys) == 0 {
		return vals, errs, nil
	}

	rks := make([]string, 0, len(keys))
	index := make([]int, 0, len(keys))
	for i, key := range keys {
		rk, err := s.redisKey(key)
		if err != nil {
			errs[i] = err
			continue
		}
		rks = append(rks, rk)
		index = append(index, i)
	}
	if len(rks) == 0 {
		return vals, errs, nil
	}

	res, err := s.client.MGet(ctx, rks...).Result()
	if err != nil {
		return nil, nil, errors.Wrap(err, "client.MGet failed")
	}
	for j, v := range res {
		i := index[j]
		str, ok := v.(string)
		if !ok {
			errs[i] = ErrKeyNotFound
			continue
		}
		vals[i], errs[i] = s.codec.decode([]byte(str))
	}
	return vals, errs, nil
}

func (s *RedisStore[K, V]) BatchDel(ctx context.Context, keys []K) ([]error, error) {
	return batch[K, V]{del: s.Del}.BatchDel(ctx, keys)
}

func (s *RedisStore[K, V]) Close() error {
	if err := s.client.Close(); err != nil {
		return errors.Wrap(err, "client.Close failed")
	}
	return nil
}
