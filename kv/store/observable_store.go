package store

import (
	"context"
	"time"

	"github.com/hatlonely/dbview/log"
	"github.com/hatlonely/dbview/log/logger"
	"github.com/hatlonely/dbview/metric"
	"github.com/hatlonely/dbview/ref"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type ObservableStoreOptions struct {
	// Store 被包装的存储
	Store *ref.TypeOptions `cfg:"store" validate:"required"`

	// Logger 为空时使用默认日志器
	Logger *ref.TypeOptions `cfg:"logger"`

	EnableMetrics bool `cfg:"enableMetrics" def:"true"`
	EnableLogging bool `cfg:"enableLogging" def:"true"`
	EnableTracing bool `cfg:"enableTracing" def:"false"`

	// Name 作为指标的 store 标签、日志的 component 字段和 span 的 component 属性
	Name string `cfg:"name" def:"store"`
}

type storeMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	batchSize  *prometheus.HistogramVec
}

// newStoreMetrics 指标按 store 标签区分实例，多个实例共享同一组指标
func newStoreMetrics() *storeMetrics {
	return &storeMetrics{
		operations: metric.Register(nil, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dbview",
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Total number of store operations",
		}, []string{"store", "operation", "status"})),
		duration: metric.Register(nil, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dbview",
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Duration of store operations in seconds",
			Buckets:   metric.DurationBuckets,
		}, []string{"store", "operation"})),
		batchSize: metric.Register(nil, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dbview",
			Subsystem: "store",
			Name:      "batch_size",
			Help:      "Size of batch operations",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000},
		}, []string{"store", "operation"})),
	}
}

// ObservableStore 为任意 Store 增加指标、日志和链路追踪
type ObservableStore[K comparable, V any] struct {
	store   Store[K, V]
	name    string
	logger  logger.Logger
	metrics *storeMetrics
	tracer  trace.Tracer
}

func NewObservableStoreWithOptions[K comparable, V any](options *ObservableStoreOptions) (*ObservableStore[K, V], error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}
	s, err := NewStoreWithOptions[K, V](options.Store)
	if err != nil {
		return nil, errors.WithMessage(err, "create underlying store failed")
	}

	name := options.Name
	if name == "" {
		name = "store"
	}
	obs := &ObservableStore[K, V]{store: s, name: name}
	if options.EnableLogging {
		l, err := log.NewLoggerWithOptions(options.Logger)
		if err != nil {
			_ = s.Close()
			return nil, errors.WithMessage(err, "create logger failed")
		}
		obs.logger = l.With("component", name)
	}
	if options.EnableMetrics {
		obs.metrics = newStoreMetrics()
	}
	if options.EnableTracing {
		obs.tracer = otel.Tracer("github.com/hatlonely/dbview/kv/store")
	}
	return obs, nil
}

func status(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrKeyNotFound):
		return "not_found"
	case errors.Is(err, ErrConditionFailed):
		return "condition_failed"
	}
	return "error"
}

// observe 未找到和条件失败是正常结果，不按错误记录
func (obs *ObservableStore[K, V]) observe(ctx context.Context, operation string, batchSize int, fn func(context.Context) error) error {
	start := time.Now()

	var span trace.Span
	if obs.tracer != nil {
		attrs := []attribute.KeyValue{
			attribute.String("component", obs.name),
			attribute.String("operation", operation),
		}
		if batchSize > 0 {
			attrs = append(attrs, attribute.Int("batch_size", batchSize))
		}
		ctx, span = obs.tracer.Start(ctx, "store."+operation, trace.WithAttributes(attrs...))
		defer span.End()
	}

	err := fn(ctx)
	duration := time.Since(start)
	st := status(err)

	if span != nil {
		if st == "error" {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}

	if obs.metrics != nil {
		obs.metrics.operations.WithLabelValues(obs.name, operation, st).Inc()
		obs.metrics.duration.WithLabelValues(obs.name, operation).Observe(duration.Seconds())
		if batchSize > 0 {
			obs.metrics.batchSize.WithLabelValues(obs.name, operation).Observe(float64(batchSize))
		}
	}

	if obs.logger != nil {
		if st == "error" {
			obs.logger.ErrorContext(ctx, "store operation failed",
				"operation", operation, "durationMs", duration.Milliseconds(), "batchSize", batchSize, "error", err.Error())
		} else {
			obs.logger.DebugContext(ctx, "store operation completed",
				"operation", operation, "durationMs", duration.Milliseconds(), "batchSize", batchSize, "status", st)
		}
	}
	return err
}

func (obs *ObservableStore[K, V]) Set(ctx context.Context, key K, value V, opts ...setOption) error {
	return obs.observe(ctx, "set", 0, func(ctx context.Context) error {
		return obs.store.Set(ctx, key, value, opts...)
	})
}

func (obs *ObservableStore[K, V]) Get(ctx context.Context, key K) (V, error) {
	var value V
	err := obs.observe(ctx, "get", 0, func(ctx context.Context) error {
		var err error
		value, err = obs.store.Get(ctx, key)
		return err
	})
	return value, err
}

func (obs *ObservableStore[K, V]) Del(ctx context.Context, key K) error {
	return obs.observe(ctx, "del", 0, func(ctx context.Context) error {
		return obs.store.Del(ctx, key)
	})
}

func (obs *ObservableStore[K, V]) BatchSet(ctx context.Context, keys []K, vals []V, opts ...setOption) ([]error, error) {
	var errs []error
	err := obs.observe(ctx, "batchSet", len(keys), func(ctx context.Context) error {
		var err error
		errs, err = obs.store.BatchSet(ctx, keys, vals, opts...)
		return err
	})
	return errs, err
}

func (obs *ObservableStore[K, V]) BatchGet(ctx context.Context, keys []K) ([]V, []error, error) {
	var vals []V
	var errs []error
	err := obs.observe(ctx, "batchGet", len(keys), func(ctx context.Context) error {
		var err error
		vals, errs, err = obs.store.BatchGet(ctx, keys)
		return err
	})
	return vals, errs, err
}

func (obs *ObservableStore[K, V]) BatchDel(ctx context.Context, keys []K) ([]error, error) {
	var errs []error
	err := obs.observe(ctx, "batchDel", len(keys), func(ctx context.Context) error {
		var err error
		errs, err = obs.store.BatchDel(ctx, keys)
		return err
	})
	return errs, err
}

func (obs *ObservableStore[K, V]) Close() error {
	return obs.observe(context.Background(), "close", 0, func(ctx context.Context) error {
		return obs.store.Close()
	})
}
