package queue

import (
	"fmt"

	"github.com/dep2p/go-bridge/pkg/types"
)

// ============================================================================
//                              层级
// ============================================================================

// Tier 队列层级
type Tier int

const (
	// TierCritical 关键层
	TierCritical Tier = iota
	// TierHigh 高优先级层
	TierHigh
	// TierNormal 普通层
	TierNormal
	// TierLow 低优先级层（含 background）
	TierLow

	numTiers = 4
)

// String 返回层级名称
func (t Tier) String() string {
	switch t {
	case TierCritical:
		return "critical"
	case TierHigh:
		return "high"
	case TierNormal:
		return "normal"
	case TierLow:
		return "low"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// TierOf 返回优先级对应的层级
func TierOf(p types.Priority) Tier {
	switch p {
	case types.PriorityCritical:
		return TierCritical
	case types.PriorityHigh:
		return TierHigh
	case types.PriorityNormal:
		return TierNormal
	default:
		return TierLow
	}
}

// tierCapacity 按基准容量计算各层容量（至少为 1）
func tierCapacity(base int, t Tier) int {
	var n int
	switch t {
	case TierCritical:
		n = base / 10
	case TierHigh:
		n = base / 4
	case TierNormal:
		n = base / 2
	default:
		n = base
	}
	if n < 1 {
		n = 1
	}
	return n
}

// ============================================================================
//                              PriorityQueues
// ============================================================================

// PriorityQueues 四层优先级队列
//
// 每层是一个带缓冲的 Go 通道，生产者可以在任意 goroutine 中并发入队，
// 出队由调度器单线程执行。
type PriorityQueues struct {
	base  int
	tiers [numTiers]chan *types.MessageEnvelope
}

// New 按基准容量创建队列
func New(capacity int) *PriorityQueues {
	if capacity < 1 {
		capacity = 1
	}
	q := &PriorityQueues{base: capacity}
	for t := Tier(0); t < numTiers; t++ {
		q.tiers[t] = make(chan *types.MessageEnvelope, tierCapacity(capacity, t))
	}
	return q
}

// Enqueue 非阻塞入队
//
// 目标层已满时返回 ErrResourceExhausted。
func (q *PriorityQueues) Enqueue(env *types.MessageEnvelope) error {
	if env == nil {
		return fmt.Errorf("enqueue: nil envelope")
	}
	tier := TierOf(env.Priority)
	select {
	case q.tiers[tier] <- env:
		return nil
	default:
		return fmt.Errorf("%w: %s queue full (%d)", types.ErrResourceExhausted, tier, cap(q.tiers[tier]))
	}
}

// DequeueNext 按严格优先级取出下一条
func (q *PriorityQueues) DequeueNext() (*types.MessageEnvelope, bool) {
	for t := Tier(0); t < numTiers; t++ {
		select {
		case env := <-q.tiers[t]:
			return env, true
		default:
		}
	}
	return nil, false
}

// Drain 按优先级取出最多 max 条
func (q *PriorityQueues) Drain(max int) []*types.MessageEnvelope {
	if max <= 0 {
		return nil
	}
	out := make([]*types.MessageEnvelope, 0, min(max, q.Len()))
	for len(out) < max {
		env, ok := q.DequeueNext()
		if !ok {
			break
		}
		out = append(out, env)
	}
	return out
}

// Len 返回所有层的消息总数
func (q *PriorityQueues) Len() int {
	n := 0
	for t := range q.tiers {
		n += len(q.tiers[t])
	}
	return n
}

// LenByPriority 返回各层消息数
func (q *PriorityQueues) LenByPriority() map[Tier]int {
	out := make(map[Tier]int, numTiers)
	for t := Tier(0); t < numTiers; t++ {
		out[t] = len(q.tiers[t])
	}
	return out
}

// Capacity 返回指定层的容量
func (q *PriorityQueues) Capacity(t Tier) int {
	if t < 0 || t >= numTiers {
		return 0
	}
	return cap(q.tiers[t])
}

// BaseCapacity 返回基准容量 C
func (q *PriorityQueues) BaseCapacity() int {
	return q.base
}
