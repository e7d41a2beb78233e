package registry

import (
	"container/list"
	"context"
	"sync"

	"github.com/dep2p/go-bridge/pkg/types"
)

// ============================================================================
//                              Mailbox - 无界邮箱
// ============================================================================

// Mailbox 无界 FIFO 邮箱
//
// Go 的通道必须有固定缓冲，插件通道需要无界语义，
// 所以用链表保存消息，notify 通道（缓冲 1）唤醒等待者。
type Mailbox struct {
	mu     sync.Mutex
	items  *list.List
	notify chan struct{}
	done   chan struct{}
	closed bool
}

// NewMailbox 创建邮箱
func NewMailbox() *Mailbox {
	return &Mailbox{
		items:  list.New(),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Put 放入一条消息，邮箱已关闭时返回 ErrMailboxClosed
func (m *Mailbox) Put(env *types.MessageEnvelope) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrMailboxClosed
	}
	m.items.PushBack(env)
	m.mu.Unlock()

	m.signal()
	return nil
}

// TryRecv 非阻塞取出队首
//
// 取出后仍有消息时补发通知，竞争同一邮箱的其他等待者不会因通知合并而漏醒。
func (m *Mailbox) TryRecv() (*types.MessageEnvelope, bool) {
	m.mu.Lock()
	front := m.items.Front()
	if front == nil {
		m.mu.Unlock()
		return nil, false
	}
	m.items.Remove(front)
	more := m.items.Len() > 0
	m.mu.Unlock()

	if more {
		m.signal()
	}
	return front.Value.(*types.MessageEnvelope), true
}

// signal 非阻塞投放一个通知
func (m *Mailbox) signal() {
	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// Recv 阻塞直到有消息、邮箱关闭或 ctx 结束
//
// 邮箱关闭后仍会先交付剩余消息。
func (m *Mailbox) Recv(ctx context.Context) (*types.MessageEnvelope, error) {
	for {
		if env, ok := m.TryRecv(); ok {
			return env, nil
		}
		select {
		case <-m.notify:
		case <-m.done:
			if env, ok := m.TryRecv(); ok {
				return env, nil
			}
			return nil, ErrMailboxClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Drain 取出最多 max 条（max<=0 表示全部）
func (m *Mailbox) Drain(max int) []*types.MessageEnvelope {
	m.mu.Lock()
	n := m.items.Len()
	if max > 0 && max < n {
		n = max
	}
	out := make([]*types.MessageEnvelope, 0, n)
	for len(out) < n {
		front := m.items.Front()
		m.items.Remove(front)
		out = append(out, front.Value.(*types.MessageEnvelope))
	}
	more := m.items.Len() > 0
	m.mu.Unlock()

	if more {
		m.signal()
	}
	return out
}

// Len 返回待取消息数
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items.Len()
}

// C 返回通知通道
func (m *Mailbox) C() <-chan struct{} {
	return m.notify
}

// Close 关闭邮箱，之后 Put 失败
func (m *Mailbox) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	close(m.done)
}

// Closed 是否已关闭
func (m *Mailbox) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
