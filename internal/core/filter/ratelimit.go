package filter

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-bridge/pkg/types"
)

// RateLimiterName 限流阶段名称
const RateLimiterName = "rate_limit"

// RateLimiter 每发送方滑动窗口限流
//
// 为每个发送插件保留窗口内的接收时间戳，超过 N 条即判定限流。
// 被限流的消息不计入窗口。
type RateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	clock   clock.Clock
	senders map[string][]time.Time
}

// NewRateLimiter 创建限流阶段
func NewRateLimiter(limit int, window time.Duration, clk clock.Clock) *RateLimiter {
	if clk == nil {
		clk = clock.New()
	}
	return &RateLimiter{
		limit:   limit,
		window:  window,
		clock:   clk,
		senders: make(map[string][]time.Time),
	}
}

// Name 实现 Stage
func (r *RateLimiter) Name() string { return RateLimiterName }

// Process 实现 Stage
func (r *RateLimiter) Process(_ context.Context, env *types.MessageEnvelope) Verdict {
	if r.Allow(env.Routing.From.PluginID) {
		return VerdictPass
	}
	return VerdictRateLimited
}

// Allow 记录一次发送，超过限额返回 false
func (r *RateLimiter) Allow(sender string) bool {
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	stamps := r.evictLocked(sender, now)
	if len(stamps) >= r.limit {
		r.senders[sender] = stamps
		return false
	}
	r.senders[sender] = append(stamps, now)
	return true
}

// evictLocked 丢弃窗口外的时间戳
func (r *RateLimiter) evictLocked(sender string, now time.Time) []time.Time {
	stamps := r.senders[sender]
	cutoff := now.Add(-r.window)
	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	return stamps[i:]
}

// Count 返回发送方当前窗口内的计数
func (r *RateLimiter) Count(sender string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.evictLocked(sender, r.clock.Now()))
}

// Prune 删除窗口内没有记录的发送方，返回删除数量
func (r *RateLimiter) Prune() int {
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for sender := range r.senders {
		if stamps := r.evictLocked(sender, now); len(stamps) == 0 {
			delete(r.senders, sender)
			removed++
		} else {
			r.senders[sender] = stamps
		}
	}
	return removed
}

// Senders 返回当前持有记录的发送方数量
func (r *RateLimiter) Senders() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.senders)
}

// Forget 清除发送方的记录
func (r *RateLimiter) Forget(sender string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.senders, sender)
}
