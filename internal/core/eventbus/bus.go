package eventbus

import (
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/dep2p/go-bridge/pkg/lib/log"
)

var logger = log.Logger("core/eventbus")

var (
	// ErrClosed 事件总线已关闭
	ErrClosed = errors.New("eventbus closed")
)

// 默认订阅缓冲区
const defaultBuffer = 16

// ============================================================================
// Bus
// ============================================================================

// Bus 事件总线
type Bus struct {
	mu     sync.RWMutex
	topics map[reflect.Type]*topic
	closed bool

	dropped atomic.Uint64
	warn    rate.Sometimes
}

// topic 单个事件类型的订阅者集合
type topic struct {
	mu       sync.Mutex
	sinks    []sink
	stateful bool
	last     any
}

// sink 类型擦除后的订阅者
type sink interface {
	offer(ev any) bool
	shut()
}

// NewBus 创建事件总线
func NewBus() *Bus {
	return &Bus{
		topics: make(map[reflect.Type]*topic),
		warn:   rate.Sometimes{First: 1, Interval: 30 * time.Second},
	}
}

func keyOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// topicFor 返回事件类型对应的 topic，不存在时创建
func (b *Bus) topicFor(key reflect.Type) (*topic, error) {
	b.mu.RLock()
	t, ok := b.topics[key]
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	if ok {
		return t, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	if t, ok = b.topics[key]; !ok {
		t = &topic{}
		b.topics[key] = t
	}
	return t, nil
}

// Dropped 返回因订阅者缓冲区满而丢弃的事件总数
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Close 关闭总线及全部订阅，重复调用安全
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	topics := b.topics
	b.topics = make(map[reflect.Type]*topic)
	b.mu.Unlock()

	for _, t := range topics {
		t.mu.Lock()
		sinks := t.sinks
		t.sinks = nil
		t.mu.Unlock()
		for _, s := range sinks {
			s.shut()
		}
	}
}

// ============================================================================
// 泛型访问
// ============================================================================

// MarkStateful 将事件类型标记为有状态：新订阅者先收到最后一个事件
func MarkStateful[T any](b *Bus) error {
	t, err := b.topicFor(keyOf[T]())
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.stateful = true
	t.mu.Unlock()
	return nil
}

// Subscribe 订阅事件类型 T
func Subscribe[T any](b *Bus, opts ...Option) (*Subscription[T], error) {
	s := settings{buffer: defaultBuffer}
	for _, opt := range opts {
		opt(&s)
	}

	key := keyOf[T]()
	t, err := b.topicFor(key)
	if err != nil {
		return nil, err
	}

	sub := &Subscription[T]{bus: b, key: key, out: make(chan T, s.buffer)}
	t.mu.Lock()
	t.sinks = append(t.sinks, sub)
	if t.stateful && t.last != nil {
		sub.offer(t.last)
	}
	t.mu.Unlock()
	return sub, nil
}

// Emit 发布事件，返回成功送达的订阅者数
//
// 总线关闭后静默丢弃。
func Emit[T any](b *Bus, ev T) int {
	t, err := b.topicFor(keyOf[T]())
	if err != nil {
		return 0
	}

	t.mu.Lock()
	if t.stateful {
		t.last = ev
	}
	sinks := append([]sink(nil), t.sinks...)
	t.mu.Unlock()

	delivered := 0
	for _, s := range sinks {
		if s.offer(ev) {
			delivered++
			continue
		}
		n := b.dropped.Add(1)
		b.warn.Do(func() {
			logger.Warn("慢消费者检测",
				"type", keyOf[T](),
				"dropped", n,
				"reason", "subscriber buffer full")
		})
	}
	return delivered
}

// remove 从 topic 中移除订阅者
func (b *Bus) remove(key reflect.Type, target sink) {
	b.mu.RLock()
	t, ok := b.topics[key]
	b.mu.RUnlock()
	if !ok {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, s := range t.sinks {
		if s == target {
			t.sinks = append(t.sinks[:i], t.sinks[i+1:]...)
			return
		}
	}
}
