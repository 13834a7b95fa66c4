package roworder

import (
	"sync"
	"time"

	"github.com/bep/debounce"
)

// Scheduler 合并短时间内的多次重新计算请求
type Scheduler interface {
	Schedule(fn func())
	Stop()
}

// DebounceScheduler 在最后一次请求之后等待 window 再执行
type DebounceScheduler struct {
	mu        sync.Mutex
	stopped   bool
	debounced func(f func())
}

func NewDebounceScheduler(window time.Duration) *DebounceScheduler {
	return &DebounceScheduler{debounced: debounce.New(window)}
}

func (s *DebounceScheduler) Schedule(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.debounced(fn)
}

// Stop 用空函数替换尚未执行的请求
func (s *DebounceScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	s.debounced(func() {})
}

// ManualScheduler 只记录请求，调用 Flush 时同步执行
type ManualScheduler struct {
	mu      sync.Mutex
	pending func()
	count   int
	stopped bool
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (s *ManualScheduler) Schedule(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.pending = fn
	s.count++
}

// Pending 上次 Flush 之后合并的请求数
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Flush 执行合并后的请求，没有请求时返回 false
func (s *ManualScheduler) Flush() bool {
	s.mu.Lock()
	fn := s.pending
	s.pending = nil
	s.count = 0
	s.mu.Unlock()
	if fn == nil {
		return false
	}
	fn()
	return true
}

func (s *ManualScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	s.pending = nil
	s.count = 0
}
