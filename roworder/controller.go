// Package roworder 计算视图中可见行的顺序
//
// Controller 订阅数据库文档、派生值缓存和后台加载的变化，合并后重新排序和过滤，
// 将结果发布给订阅者。存在排序或过滤且仍有行文档未就绪时发布持久化的原始顺序，
// 避免部分数据计算出的顺序来回跳动。
//
// 只有设置了 RowOpener 并开启 Prefetch 时才会等待未常驻的行。没有后台加载时缺失的行
// 永远不会就绪，这些行按所有单元格为空参与排序和过滤。
package roworder

import (
	"context"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/hatlonely/dbview/database"
	"github.com/hatlonely/dbview/derived"
	"github.com/hatlonely/dbview/document"
	"github.com/hatlonely/dbview/filter"
	"github.com/hatlonely/dbview/log"
	"github.com/hatlonely/dbview/log/logger"
	"github.com/hatlonely/dbview/ref"
	"github.com/hatlonely/dbview/sorting"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Options struct {
	Logger *ref.TypeOptions `cfg:"logger"`

	// Debounce 合并重新计算请求的时间窗口
	Debounce time.Duration `cfg:"debounce" def:"150ms"`

	// 后台加载
	Prefetch    bool `cfg:"prefetch" def:"true"`
	BatchSize   int  `cfg:"batchSize" def:"20" validate:"min=1"`
	Concurrency int  `cfg:"concurrency" def:"4" validate:"min=1"`
	QueueSize   int  `cfg:"queueSize" def:"1024" validate:"min=1"`

	// Location 日期过滤按天比较时使用的时区
	Location string `cfg:"location" def:"UTC"`

	EnableMetrics bool `cfg:"enableMetrics" def:"true"`
	EnableTracing bool `cfg:"enableTracing" def:"false"`
}

type State int

const (
	// StateIdle 视图没有排序和过滤，直接发布持久化的行顺序；尚未启动或已关闭时也是 Idle
	StateIdle State = iota
	// StateComputing 有待执行或正在执行的计算
	StateComputing
	// StateStable 排序和过滤的结果已发布
	StateStable
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateComputing:
		return "Computing"
	case StateStable:
		return "Stable"
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

type Controller struct {
	db        document.Database
	viewID    string
	options   *Options
	cache     *derived.Cache
	opener    document.RowOpener
	scheduler Scheduler
	loader    *Loader
	logger    logger.Logger
	metrics   *controllerMetrics
	tracer    trace.Tracer
	location  *time.Location

	// passMu 保证同一时间只有一次计算
	passMu sync.Mutex

	mu           sync.RWMutex
	state        State
	rows         []database.RowOrder
	started      bool
	closed       bool
	nextID       uint64
	subs         map[uint64]func([]database.RowOrder)
	unsubscribes []func()
}

func NewControllerWithOptions(options *Options, db document.Database, viewID string) (*Controller, error) {
	if db == nil {
		return nil, errors.New("database is nil")
	}
	if options == nil {
		options = &Options{}
	}
	opts := *options
	if opts.Debounce <= 0 {
		opts.Debounce = 150 * time.Millisecond
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 20
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}

	l, err := log.NewLoggerWithOptions(opts.Logger)
	if err != nil {
		return nil, errors.WithMessage(err, "log.NewLoggerWithOptions failed")
	}
	loc := time.UTC
	if opts.Location != "" {
		if loc, err = time.LoadLocation(opts.Location); err != nil {
			return nil, errors.Wrapf(err, "time.LoadLocation [%s] failed", opts.Location)
		}
	}

	c := &Controller{
		db:        db,
		viewID:    viewID,
		options:   &opts,
		scheduler: NewDebounceScheduler(opts.Debounce),
		logger:    l.WithGroup("rowOrder").With("database", db.ID(), "view", viewID),
		location:  loc,
		subs:      map[uint64]func([]database.RowOrder){},
	}
	if opts.EnableMetrics {
		c.metrics = newControllerMetrics()
	}
	if opts.EnableTracing {
		c.tracer = otel.Tracer("github.com/hatlonely/dbview/roworder")
	}
	return c, nil
}

// WithCache 关联和汇总字段的值从缓存读取，未设置时按未就绪处理
func (c *Controller) WithCache(cache *derived.Cache) *Controller {
	c.cache = cache
	return c
}

// WithRowOpener 设置后在后台加载未常驻的行
func (c *Controller) WithRowOpener(opener document.RowOpener) *Controller {
	c.opener = opener
	return c
}

// WithScheduler 替换默认的 debounce 调度器，需要在 Start 之前调用
func (c *Controller) WithScheduler(s Scheduler) *Controller {
	if s != nil {
		c.scheduler = s
	}
	return c
}

// Start 订阅变更并完成第一次计算
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.New("controller is closed")
	}
	if c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = true
	if c.opener != nil && c.options.Prefetch {
		c.loader = newLoader(c.db, c.opener, c.options, c.logger, c.metrics)
	}
	c.unsubscribes = append(c.unsubscribes, c.db.Subscribe(c.onEvent))
	if c.cache != nil {
		c.unsubscribes = append(c.unsubscribes, c.cache.SubscribeAll(func(string) { c.schedule() }))
	}
	c.mu.Unlock()

	if c.loader != nil {
		c.loader.start(ctx, func(loaded int) {
			if loaded > 0 {
				c.schedule()
			}
		})
		if view, ok := c.db.View(c.viewID); ok {
			c.loader.Enqueue(database.RowIDs(view.RowOrders)...)
		}
	}
	c.logger.InfoContext(ctx, "row order controller started")
	c.Refresh()
	return nil
}

func (c *Controller) onEvent(e document.Event) {
	switch e.Type {
	case document.EventRowOrdersChanged, document.EventRowUnloaded:
		if e.ViewID != "" && e.ViewID != c.viewID {
			return
		}
		if c.loader != nil {
			if view, ok := c.db.View(c.viewID); ok {
				c.loader.Enqueue(database.RowIDs(view.RowOrders)...)
			}
		}
	case document.EventFiltersChanged, document.EventSortsChanged:
		if e.ViewID != "" && e.ViewID != c.viewID {
			return
		}
	case document.EventRowLoaded:
		if c.loader != nil {
			c.loader.Foreground(e.RowID)
		}
	case document.EventFieldsChanged, document.EventRowChanged:
	default:
		return
	}
	c.schedule()
}

func (c *Controller) schedule() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.state = StateComputing
	c.mu.Unlock()
	c.scheduler.Schedule(func() { c.Refresh() })
}

// Refresh 同步执行一次计算并发布结果
func (c *Controller) Refresh() []database.RowOrder {
	c.passMu.Lock()
	defer c.passMu.Unlock()

	c.mu.Lock()
	if c.closed {
		rows := slices.Clone(c.rows)
		c.mu.Unlock()
		return rows
	}
	c.state = StateComputing
	c.mu.Unlock()

	ctx := context.Background()
	var span trace.Span
	if c.tracer != nil {
		ctx, span = c.tracer.Start(ctx, "roworder.pass", trace.WithAttributes(
			attribute.String("database", c.db.ID()),
			attribute.String("view", c.viewID),
		))
		defer span.End()
	}

	start := time.Now()
	rows, result := c.compute()
	c.metrics.pass(result, c.viewID, len(rows), time.Since(start))
	if span != nil {
		span.SetAttributes(attribute.String("result", result), attribute.Int("rows", len(rows)))
	}
	c.logger.DebugContext(ctx, "row order computed", "result", result, "rows", len(rows), "duration", time.Since(start).String())

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return rows
	}
	c.rows = rows
	c.state = StateStable
	if result == "unsorted" {
		c.state = StateIdle
	}
	subs := make([]func([]database.RowOrder), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(slices.Clone(rows))
	}
	return slices.Clone(rows)
}

// compute 先排序后过滤，行文档未就绪时返回原始顺序
func (c *Controller) compute() ([]database.RowOrder, string) {
	view, ok := c.db.View(c.viewID)
	if !ok {
		return nil, "missing_view"
	}
	base := slices.Clone(view.RowOrders)
	if !view.HasSortsOrFilters() {
		return base, "unsorted"
	}

	loader := c.Loader()
	docs := make(database.RowDocs, len(base))
	ready := 0
	for _, r := range base {
		if row, ok := c.db.Row(r.ID); ok {
			docs[r.ID] = row
			ready++
			continue
		}
		if loader == nil {
			continue
		}
		if row, ok := loader.Row(r.ID); ok {
			docs[r.ID] = row
			ready++
		} else if loader.Failed(r.ID) {
			ready++
		}
	}
	// 没有后台加载时缺失的行永远不会就绪，按空行参与计算
	if loader != nil && ready < len(base) {
		return base, "guarded"
	}

	fields := c.db.Fields()
	sorted := sorting.SortBy(base, view.Sorts, fields, docs, c.sortResolvers())
	return filter.FilterBy(sorted, view.Filters, fields, docs, c.filterResolvers()), "computed"
}

func (c *Controller) sortResolvers() sorting.Resolvers {
	if c.cache == nil {
		return sorting.Resolvers{}
	}
	return sorting.Resolvers{RelationText: c.cache.RelationText, RollupValue: c.cache.RollupValue}
}

func (c *Controller) filterResolvers() filter.Resolvers {
	res := filter.Resolvers{Location: c.location}
	if c.cache != nil {
		res.RelationText = c.cache.RelationText
		res.RollupText = c.cache.RollupText
	}
	return res
}

// Rows 最近一次发布的行顺序
func (c *Controller) Rows() []database.RowOrder {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.rows)
}

func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.started || c.closed {
		return StateIdle
	}
	return c.state
}

// Subscribe 每次计算完成后回调，回调中不能调用 Refresh
func (c *Controller) Subscribe(fn func(rows []database.RowOrder)) func() {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.subs[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.subs, id)
		})
	}
}

// Loader 后台加载器，未设置 RowOpener 或未启动时为 nil
func (c *Controller) Loader() *Loader {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loader
}

// Close 取消订阅、停止调度并释放后台加载的文档，可以重复调用
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	unsubscribes := c.unsubscribes
	c.unsubscribes = nil
	c.subs = map[uint64]func([]database.RowOrder){}
	c.mu.Unlock()

	for _, unsubscribe := range unsubscribes {
		unsubscribe()
	}
	c.scheduler.Stop()
	if c.loader != nil {
		c.loader.Cancel()
	}
	c.logger.Info("row order controller closed")
	return nil
}
