// Package derived 关联字段文本和汇总结果的缓存
//
// 派生值依赖其他数据库的行，读取时返回最近一次的结果，缺失时在后台解析，
// 解析完成后通知订阅者。依赖的行或字段变化时按依赖索引失效并重新解析。
package derived

import (
	"context"
	"sync"
	"time"

	"github.com/hatlonely/dbview/database"
	"github.com/hatlonely/dbview/document"
	"github.com/hatlonely/dbview/kv/store"
	"github.com/hatlonely/dbview/log"
	"github.com/hatlonely/dbview/log/logger"
	"github.com/hatlonely/dbview/ref"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
)

type Options struct {
	// Store 派生值的存储，为空时使用进程内的 SyncMapStore
	Store *ref.TypeOptions `cfg:"store"`

	Logger *ref.TypeOptions `cfg:"logger"`

	// Concurrency 同时进行的解析数量
	Concurrency int64 `cfg:"concurrency" def:"8" validate:"min=1"`

	// Location 汇总日期的显示时区
	Location string `cfg:"location" def:"UTC"`

	EnableMetrics bool `cfg:"enableMetrics" def:"true"`
	EnableTracing bool `cfg:"enableTracing" def:"false"`
}

// Cache 派生值缓存，按 "rowID:fieldID" 索引
type Cache struct {
	store    store.Store[string, Value]
	resolver *Resolver
	logger   logger.Logger
	metrics  *cacheMetrics
	tracer   trace.Tracer
	sem      *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	closed  bool
	gen     map[string]uint64
	pending map[string]struct{}
	failed  map[string]uint64
	deps    *depIndex
	watched map[string]func()
	nextID  uint64
	keySubs map[string]map[uint64]func(Value)
	allSubs map[uint64]func(string)
}

func NewCacheWithOptions(options *Options, resolver *Resolver) (*Cache, error) {
	if resolver == nil {
		return nil, errors.New("resolver is nil")
	}
	if options == nil {
		options = &Options{}
	}

	s, err := store.NewStoreWithOptions[string, Value](options.Store)
	if err != nil {
		return nil, errors.WithMessage(err, "create derived value store failed")
	}
	l, err := log.NewLoggerWithOptions(options.Logger)
	if err != nil {
		return nil, errors.WithMessage(err, "log.NewLoggerWithOptions failed")
	}
	if options.Location != "" {
		loc, err := time.LoadLocation(options.Location)
		if err != nil {
			return nil, errors.Wrapf(err, "time.LoadLocation [%s] failed", options.Location)
		}
		resolver.WithLocation(loc)
	}
	concurrency := options.Concurrency
	if concurrency <= 0 {
		concurrency = 8
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Cache{
		store:    s,
		resolver: resolver,
		logger:   l.WithGroup("cache"),
		sem:      semaphore.NewWeighted(concurrency),
		ctx:      ctx,
		cancel:   cancel,
		gen:      map[string]uint64{},
		pending:  map[string]struct{}{},
		failed:   map[string]uint64{},
		deps:     newDepIndex(),
		watched:  map[string]func(){},
		keySubs:  map[string]map[uint64]func(Value){},
		allSubs:  map[uint64]func(string){},
	}
	if options.EnableMetrics {
		c.metrics = newCacheMetrics()
	}
	if options.EnableTracing {
		c.tracer = otel.Tracer("github.com/hatlonely/dbview/derived")
	}
	c.Watch(resolver.Database())
	return c, nil
}

// Read 返回最近一次解析的结果，缺失时在后台解析并返回 false
func (c *Cache) Read(ctx context.Context, key string) (Value, bool) {
	v, err := c.store.Get(ctx, key)
	if err == nil {
		c.metrics.read("hit")
		return v, true
	}
	if !errors.Is(err, store.ErrKeyNotFound) {
		c.logger.WarnContext(ctx, "read derived value failed", "key", key, "error", err.Error())
	}
	c.metrics.read("miss")
	c.resolveAsync(key)
	return Value{}, false
}

func (c *Cache) RelationText(rowID, fieldID string) (string, bool) {
	v, ok := c.Read(c.ctx, database.DerivedKey(rowID, fieldID))
	return v.Text, ok
}

func (c *Cache) RollupText(rowID, fieldID string) (string, bool) {
	v, ok := c.Read(c.ctx, database.DerivedKey(rowID, fieldID))
	return v.Text, ok
}

func (c *Cache) RollupValue(rowID, fieldID string) (Value, bool) {
	return c.Read(c.ctx, database.DerivedKey(rowID, fieldID))
}

// Invalidate 删除缓存的值，有订阅者时重新解析
func (c *Cache) Invalidate(key string) {
	c.invalidate([]string{key})
}

func (c *Cache) invalidate(keys []string) {
	if len(keys) == 0 {
		return
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	var resolve, changed []string
	for _, key := range keys {
		// 没有进行中的解析时不需要保留代数
		if _, ok := c.pending[key]; ok {
			c.gen[key]++
		} else {
			delete(c.gen, key)
		}
		delete(c.failed, key)
		if c.deps.has(key) {
			changed = append(changed, key)
		}
		c.deps.remove(key)
		if len(c.keySubs[key]) > 0 || len(c.allSubs) > 0 {
			resolve = append(resolve, key)
		}
	}
	all := c.allSubscribersLocked()
	c.mu.Unlock()

	// 在锁外删除，存储可能是远程的；之后完成的解析被误删时下次读取会重新解析
	for _, key := range keys {
		if err := c.store.Del(c.ctx, key); err != nil {
			c.logger.Warn("delete derived value failed", "key", key, "error", err.Error())
		}
	}
	c.metrics.invalidated(len(keys))
	for _, key := range resolve {
		c.resolveAsync(key)
	}
	for _, key := range changed {
		for _, fn := range all {
			fn(key)
		}
	}
}

// Subscribe key 解析完成时回调
func (c *Cache) Subscribe(key string, fn func(Value)) func() {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	subs, ok := c.keySubs[key]
	if !ok {
		subs = map[uint64]func(Value){}
		c.keySubs[key] = subs
	}
	subs[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.keySubs[key], id)
			if len(c.keySubs[key]) == 0 {
				delete(c.keySubs, key)
			}
		})
	}
}

// SubscribeAll 任意派生值解析完成或已缓存的值失效时回调
func (c *Cache) SubscribeAll(fn func(key string)) func() {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.allSubs[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.allSubs, id)
		})
	}
}

// Watch 订阅数据库的变更事件，按依赖索引失效派生值，同一个数据库只订阅一次
func (c *Cache) Watch(db document.Database) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.watchLocked(db)
}

func (c *Cache) watchLocked(db document.Database) {
	if c.closed || db == nil {
		return
	}
	if _, ok := c.watched[db.ID()]; ok {
		return
	}
	c.watched[db.ID()] = db.Subscribe(c.onEvent)
}

func (c *Cache) onEvent(e document.Event) {
	var keys []string
	c.mu.Lock()
	switch e.Type {
	case document.EventRowChanged, document.EventRowLoaded:
		keys = c.deps.dependents(Dependency{DatabaseID: e.DatabaseID, RowID: e.RowID})
		// 尚未完成解析的值还没有依赖索引
		if e.DatabaseID == c.resolver.Database().ID() {
			for key := range c.pending {
				if rowID, _, ok := database.SplitDerivedKey(key); ok && rowID == e.RowID {
					keys = append(keys, key)
				}
			}
		}
	case document.EventFieldsChanged:
		d := Dependency{DatabaseID: e.DatabaseID, FieldID: e.FieldID}
		keys = c.deps.dependents(d)
		if e.DatabaseID == c.resolver.Database().ID() {
			for key := range c.pending {
				if _, fieldID, ok := database.SplitDerivedKey(key); ok && (e.FieldID == "" || fieldID == e.FieldID) {
					keys = append(keys, key)
				}
			}
		}
	}
	c.mu.Unlock()

	c.invalidate(keys)
}

func (c *Cache) resolveAsync(key string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if _, ok := c.pending[key]; ok {
		c.mu.Unlock()
		return
	}
	gen := c.gen[key]
	// 失败的解析不重试，直到依赖变化
	if failed, ok := c.failed[key]; ok && failed == gen {
		c.mu.Unlock()
		return
	}
	c.pending[key] = struct{}{}
	c.wg.Add(1)
	c.mu.Unlock()

	go c.resolve(key, gen)
}

func (c *Cache) resolve(key string, gen uint64) {
	defer c.wg.Done()

	ctx := c.ctx
	if err := c.sem.Acquire(ctx, 1); err != nil {
		c.mu.Lock()
		delete(c.pending, key)
		c.mu.Unlock()
		return
	}
	defer c.sem.Release(1)

	var span trace.Span
	if c.tracer != nil {
		ctx, span = c.tracer.Start(ctx, "derived.resolve", trace.WithAttributes(attribute.String("key", key)))
		defer span.End()
	}

	start := time.Now()
	var res *Resolution
	rowID, fieldID, ok := database.SplitDerivedKey(key)
	err := errors.Errorf("invalid derived key [%s]", key)
	if ok {
		res, err = c.resolver.Resolve(ctx, rowID, fieldID)
	}
	c.metrics.observe(time.Since(start))
	if span != nil {
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}

	c.mu.Lock()
	delete(c.pending, key)
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.gen[key] != gen {
		c.mu.Unlock()
		c.metrics.resolved("stale")
		c.resolveAsync(key)
		return
	}
	if err == nil {
		if err = c.store.Set(ctx, key, res.Value); err != nil {
			err = errors.WithMessage(err, "store derived value failed")
		}
	}
	if err != nil {
		c.failed[key] = gen
		c.mu.Unlock()
		c.metrics.resolved("error")
		c.logger.WarnContext(ctx, "resolve derived value failed", "key", key, "error", err.Error())
		return
	}
	delete(c.gen, key)
	c.deps.set(key, res.Deps)
	for _, db := range res.Databases {
		c.watchLocked(db)
	}
	var subs []func(Value)
	for _, fn := range c.keySubs[key] {
		subs = append(subs, fn)
	}
	all := c.allSubscribersLocked()
	c.mu.Unlock()

	c.metrics.resolved("success")
	c.logger.DebugContext(ctx, "derived value resolved", "key", key, "text", res.Value.Text)
	for _, fn := range subs {
		fn(res.Value)
	}
	for _, fn := range all {
		fn(key)
	}
}

func (c *Cache) allSubscribersLocked() []func(string) {
	all := make([]func(string), 0, len(c.allSubs))
	for _, fn := range c.allSubs {
		all = append(all, fn)
	}
	return all
}

// Len 已缓存并建立了依赖索引的派生值数量
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deps.len()
}

// Close 取消订阅，等待进行中的解析结束后关闭存储
func (c *Cache) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	for id, unsubscribe := range c.watched {
		unsubscribe()
		delete(c.watched, id)
	}
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
	return c.store.Close()
}
