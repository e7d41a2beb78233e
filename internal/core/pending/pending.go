package pending

import (
	"context"
	"sync"

	"github.com/dep2p/go-bridge/pkg/interfaces"
)

// ============================================================================
//                              Pollable
// ============================================================================

// Pollable 可轮询的挂起操作
//
// Poll 不得阻塞：未完成时返回 done=false。
type Pollable[T any] interface {
	Poll() (value T, done bool, err error)
}

// PollFunc 将函数适配为 Pollable
type PollFunc[T any] func() (T, bool, error)

// Poll 实现 Pollable
func (f PollFunc[T]) Poll() (T, bool, error) {
	return f()
}

// ============================================================================
//                              Future
// ============================================================================

type result[T any] struct {
	value T
	err   error
}

// Future 在独立 goroutine 中运行的操作
type Future[T any] struct {
	ch     chan result[T]
	cancel context.CancelFunc
}

// Go 启动 fn 并返回可轮询的 Future
func Go[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	ctx, cancel := context.WithCancel(ctx)
	f := &Future[T]{ch: make(chan result[T], 1), cancel: cancel}
	go func() {
		defer cancel()
		v, err := fn(ctx)
		f.ch <- result[T]{value: v, err: err}
	}()
	return f
}

// Poll 实现 Pollable
func (f *Future[T]) Poll() (T, bool, error) {
	select {
	case r := <-f.ch:
		return r.value, true, r.err
	default:
		var zero T
		return zero, false, nil
	}
}

// Cancel 取消操作的 context
func (f *Future[T]) Cancel() {
	f.cancel()
}

// ============================================================================
//                              Set
// ============================================================================

// CompleteFunc 操作完成回调
type CompleteFunc[T any] func(value T, err error)

// Set 同一结果类型的挂起操作集合
type Set[T any] struct {
	mu       sync.Mutex
	items    []Pollable[T]
	complete CompleteFunc[T]
}

var _ interfaces.Poller = (*Set[int])(nil)

// NewSet 创建集合，complete 在调度器 tick 内被调用
func NewSet[T any](complete CompleteFunc[T]) *Set[T] {
	if complete == nil {
		complete = func(T, error) {}
	}
	return &Set[T]{complete: complete}
}

// Add 加入挂起操作（任意 goroutine 可调用）
func (s *Set[T]) Add(p Pollable[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, p)
}

// Poll 轮询全部操作，完成的移出集合并回调，返回完成数量
func (s *Set[T]) Poll() int {
	s.mu.Lock()
	items := s.items
	s.items = nil
	s.mu.Unlock()

	type done struct {
		value T
		err   error
	}
	var finished []done
	remain := make([]Pollable[T], 0, len(items))
	for _, p := range items {
		v, ok, err := p.Poll()
		if ok {
			finished = append(finished, done{v, err})
		} else {
			remain = append(remain, p)
		}
	}

	s.mu.Lock()
	// 轮询期间新加入的操作排在后面
	s.items = append(remain, s.items...)
	s.mu.Unlock()

	for _, d := range finished {
		s.complete(d.value, d.err)
	}
	return len(finished)
}

// Pending 返回未完成数量
func (s *Set[T]) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
