package stats

import (
	"maps"
	"sync"
	"time"

	"github.com/dep2p/go-bridge/pkg/types"
)

// Stats 投递统计
//
// 所有方法并发安全。
type Stats struct {
	mu sync.Mutex

	sent      uint64
	processed uint64
	failed    uint64
	dropped   uint64

	latencyMean  time.Duration
	latencyCount uint64

	peakQueueDepth int
	activeChannels int

	reasons map[types.Reason]uint64

	// senders 自上次健康评估以来出现过的发送插件
	senders map[string]struct{}
}

// maxTrackedSenders 单个评估周期内记录的发送方上限
const maxTrackedSenders = 1024

// New 创建统计
func New() *Stats {
	return &Stats{
		reasons: make(map[types.Reason]uint64),
		senders: make(map[string]struct{}),
	}
}

// RecordSuccess 记录一次成功投递
func (s *Stats) RecordSuccess(latency time.Duration) {
	if latency < 0 {
		latency = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sent++
	s.processed++
	s.latencyCount++
	// 累积均值
	s.latencyMean += (latency - s.latencyMean) / time.Duration(s.latencyCount)
}

// RecordFailure 记录一次失败
func (s *Stats) RecordFailure(reason types.Reason) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failed++
	s.processed++
	if reason != "" {
		s.reasons[reason]++
	}
}

// RecordDrop 记录一次丢弃
func (s *Stats) RecordDrop(reason types.Reason) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dropped++
	if reason != "" {
		s.reasons[reason]++
	}
}

// RecordDuplicate 记录一次去重命中，只增加去重计数
func (s *Stats) RecordDuplicate() {
	s.Note(types.ReasonDeduplicated)
}

// Note 只增加原因计数，不影响总量
func (s *Stats) Note(reason types.Reason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reasons[reason]++
}

// NoteSender 记录一个发送插件
func (s *Stats) NoteSender(pluginID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.senders) < maxTrackedSenders {
		s.senders[pluginID] = struct{}{}
	}
}

// TakeSenders 返回自上次调用以来的发送插件数并清空记录
func (s *Stats) TakeSenders() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.senders)
	clear(s.senders)
	return n
}

// ObserveQueueDepth 观测队列深度，更新峰值
func (s *Stats) ObserveQueueDepth(depth int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if depth > s.peakQueueDepth {
		s.peakQueueDepth = depth
	}
}

// SetActiveChannels 设置当前活跃通道数
func (s *Stats) SetActiveChannels(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeChannels = n
}

// Snapshot 返回统计快照
func (s *Stats) Snapshot() types.MessageStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return types.MessageStats{
		Sent:           s.sent,
		Processed:      s.processed,
		Failed:         s.failed,
		Dropped:        s.dropped,
		AverageLatency: s.latencyMean,
		PeakQueueDepth: s.peakQueueDepth,
		ActiveChannels: s.activeChannels,
		Reasons:        maps.Clone(s.reasons),
	}
}

// Reset 清零全部计数（活跃通道数保留）
func (s *Stats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sent, s.processed, s.failed, s.dropped = 0, 0, 0, 0
	s.latencyMean, s.latencyCount = 0, 0
	s.peakQueueDepth = 0
	s.reasons = make(map[types.Reason]uint64)
	clear(s.senders)
}
