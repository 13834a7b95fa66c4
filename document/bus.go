package document

import (
	"strconv"
	"sync"
)

// EventType 文档变更事件类型
type EventType int

const (
	// EventRowOrdersChanged 视图持久化的行顺序变化：增加、删除或移动行
	EventRowOrdersChanged EventType = iota
	// EventFieldsChanged 字段增加、删除、修改类型或修改配置，FieldID 为空表示整个字段集合
	EventFieldsChanged
	EventFiltersChanged
	EventSortsChanged
	// EventRowChanged 已加载行的单元格或元数据变化
	EventRowChanged
	// EventRowLoaded 行文档通过前台路径加载完成
	EventRowLoaded
	// EventRowUnloaded 行文档不再常驻内存
	EventRowUnloaded
)

var eventTypeNames = [...]string{
	"RowOrdersChanged", "FieldsChanged", "FiltersChanged", "SortsChanged", "RowChanged", "RowLoaded", "RowUnloaded",
}

func (t EventType) String() string {
	if t >= 0 && int(t) < len(eventTypeNames) {
		return eventTypeNames[t]
	}
	return "EventType(" + strconv.Itoa(int(t)) + ")"
}

// Event 文档变更事件，与事件无关的字段为空
type Event struct {
	Type       EventType
	DatabaseID string
	ViewID     string
	RowID      string
	FieldID    string
}

// Bus 同步派发的事件总线，回调在发布者的 goroutine 中执行，不持有总线的锁
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]func(Event)
}

func NewBus() *Bus {
	return &Bus{subs: map[uint64]func(Event){}}
}

// Subscribe 返回的函数用于取消订阅，可以重复调用
func (b *Bus) Subscribe(fn func(Event)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	fns := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(e)
	}
}
