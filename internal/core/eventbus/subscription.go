package eventbus

import (
	"reflect"
	"sync"
)

// ============================================================================
// 选项
// ============================================================================

type settings struct {
	buffer int
}

// Option 订阅选项
type Option func(*settings)

// BufSize 设置订阅缓冲区大小（至少为 1）
func BufSize(n int) Option {
	return func(s *settings) {
		if n < 1 {
			n = 1
		}
		s.buffer = n
	}
}

// ============================================================================
// Subscription
// ============================================================================

// Subscription 事件类型 T 的订阅
type Subscription[T any] struct {
	bus *Bus
	key reflect.Type

	// mu 保证 offer 与 shut 互斥，关闭后不会再向 out 发送
	mu     sync.Mutex
	out    chan T
	closed bool
}

// Out 返回事件通道，订阅关闭后通道关闭
func (s *Subscription[T]) Out() <-chan T {
	return s.out
}

// Close 取消订阅，重复调用安全
func (s *Subscription[T]) Close() error {
	s.bus.remove(s.key, s)
	s.shut()
	return nil
}

func (s *Subscription[T]) offer(ev any) bool {
	v, ok := ev.(T)
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.out <- v:
		return true
	default:
		return false
	}
}

func (s *Subscription[T]) shut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.out)
	}
}
