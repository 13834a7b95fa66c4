package roworder

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/hatlonely/dbview/database"
	"github.com/hatlonely/dbview/document"
	"github.com/hatlonely/dbview/log/logger"
	"golang.org/x/sync/errgroup"
)

// Loader 在后台分批打开未常驻的行文档，供排序和过滤读取
//
// 队列有界，每批固定数量，批内并发受限。取消标记在批次之间以及每个任务前后检查。
// 打开失败的行只记录不重试，行在前台加载后销毁对应的后台文档。
type Loader struct {
	db          document.Database
	opener      document.RowOpener
	logger      logger.Logger
	metrics     *controllerMetrics
	batchSize   int
	concurrency int
	onBatch     func(loaded int)

	queue     chan string
	stop      chan struct{}
	stopOnce  sync.Once
	cancelled atomic.Bool
	wg        sync.WaitGroup

	mu     sync.Mutex
	seen   map[string]struct{}
	docs   map[string]*document.RowDoc
	failed map[string]error
}

func newLoader(db document.Database, opener document.RowOpener, options *Options, l logger.Logger, m *controllerMetrics) *Loader {
	return &Loader{
		db:          db,
		opener:      opener,
		logger:      l,
		metrics:     m,
		batchSize:   options.BatchSize,
		concurrency: options.Concurrency,
		queue:       make(chan string, options.QueueSize),
		stop:        make(chan struct{}),
		seen:        map[string]struct{}{},
		docs:        map[string]*document.RowDoc{},
		failed:      map[string]error{},
	}
}

func (l *Loader) start(ctx context.Context, onBatch func(loaded int)) {
	l.onBatch = onBatch
	l.wg.Add(1)
	go l.run(ctx)
}

// Enqueue 加入未常驻且未处理过的行，队列满时在后台等待
func (l *Loader) Enqueue(rowIDs ...string) {
	l.mu.Lock()
	if l.cancelled.Load() {
		l.mu.Unlock()
		return
	}
	ids := make([]string, 0, len(rowIDs))
	for _, id := range rowIDs {
		if _, ok := l.seen[id]; ok {
			continue
		}
		if _, ok := l.db.Row(id); ok {
			continue
		}
		l.seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		l.mu.Unlock()
		return
	}
	// 与 Cancel 在同一把锁下判断取消标记，保证 Add 先于 Wait
	l.wg.Add(1)
	l.mu.Unlock()

	go func() {
		defer l.wg.Done()
		for _, id := range ids {
			select {
			case l.queue <- id:
			case <-l.stop:
				return
			}
		}
	}()
}

func (l *Loader) run(ctx context.Context) {
	defer l.wg.Done()
	for {
		batch, ok := l.next(ctx)
		if !ok {
			return
		}
		if l.cancelled.Load() {
			return
		}

		var loaded atomic.Int32
		g := &errgroup.Group{}
		g.SetLimit(l.concurrency)
		for _, id := range batch {
			g.Go(func() error {
				if l.load(ctx, id) {
					loaded.Add(1)
				}
				return nil
			})
		}
		_ = g.Wait()

		if l.cancelled.Load() {
			return
		}
		if l.onBatch != nil {
			l.onBatch(int(loaded.Load()))
		}
	}
}

// next 阻塞等待第一个任务，之后不阻塞地取满一批
func (l *Loader) next(ctx context.Context) ([]string, bool) {
	var batch []string
	select {
	case id := <-l.queue:
		batch = append(batch, id)
	case <-l.stop:
		return nil, false
	case <-ctx.Done():
		return nil, false
	}
	for len(batch) < l.batchSize {
		select {
		case id := <-l.queue:
			batch = append(batch, id)
		default:
			return batch, true
		}
	}
	return batch, true
}

func (l *Loader) load(ctx context.Context, rowID string) bool {
	if l.cancelled.Load() {
		return false
	}
	if _, ok := l.db.Row(rowID); ok {
		// 之后被卸载时可以重新加入队列
		l.mu.Lock()
		delete(l.seen, rowID)
		l.mu.Unlock()
		l.metrics.load("resident")
		return false
	}

	doc, provider, err := l.opener.OpenRow(ctx, l.db.ID(), rowID)
	if provider != nil {
		_ = provider.Destroy()
	}
	if err != nil {
		l.mu.Lock()
		l.failed[rowID] = err
		l.mu.Unlock()
		l.metrics.load("error")
		l.logger.WarnContext(ctx, "load row failed", "database", l.db.ID(), "row", rowID, "error", err.Error())
		return false
	}

	l.mu.Lock()
	if l.cancelled.Load() {
		l.mu.Unlock()
		doc.Destroy()
		return false
	}
	// 打开期间行可能已经在前台加载，Foreground 此时还没有可销毁的文档
	if _, ok := l.db.Row(rowID); ok {
		delete(l.seen, rowID)
		l.mu.Unlock()
		doc.Destroy()
		l.metrics.load("resident")
		return false
	}
	l.docs[rowID] = doc
	l.mu.Unlock()
	l.metrics.load("success")
	return true
}

// Row 后台加载的行，文档已销毁时返回 false
func (l *Loader) Row(rowID string) (*database.Row, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	doc, ok := l.docs[rowID]
	if !ok || doc.Destroyed() {
		return nil, false
	}
	return doc.Row, true
}

func (l *Loader) Failed(rowID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.failed[rowID]
	return ok
}

// Loaded 当前持有的后台文档数量
func (l *Loader) Loaded() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.docs)
}

// Foreground 行已在前台常驻，销毁后台文档。行之后被卸载时可以重新加入队列
func (l *Loader) Foreground(rowID string) {
	l.mu.Lock()
	doc, ok := l.docs[rowID]
	delete(l.docs, rowID)
	delete(l.seen, rowID)
	delete(l.failed, rowID)
	l.mu.Unlock()
	if ok {
		doc.Destroy()
	}
}

// Cancel 停止加载并销毁全部后台文档，可以重复调用
func (l *Loader) Cancel() {
	l.mu.Lock()
	l.cancelled.Store(true)
	l.mu.Unlock()
	l.stopOnce.Do(func() { close(l.stop) })
	l.wg.Wait()

	l.mu.Lock()
	docs := l.docs
	l.docs = map[string]*document.RowDoc{}
	l.mu.Unlock()
	for _, doc := range docs {
		doc.Destroy()
	}
}
