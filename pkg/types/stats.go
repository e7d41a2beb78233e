package types

import "time"

// ============================================================================
//                              Reason - 计数原因
// ============================================================================

// Reason 失败/丢弃原因，用作原因计数器的键和指标标签
type Reason string

const (
	// ReasonNotFound 目标插件不存在（失败）
	ReasonNotFound Reason = "not_found"
	// ReasonCommunication 目标通道已断开（失败）
	ReasonCommunication Reason = "communication_failed"
	// ReasonRoutingLoop 路由环路（失败）
	ReasonRoutingLoop Reason = "routing_loop"
	// ReasonExpired TTL 耗尽（失败）
	ReasonExpired Reason = "expired"
	// ReasonNoHandler 能力无处理者（失败）
	ReasonNoHandler Reason = "no_handler"

	// ReasonRateLimited 发送方超过限流（丢弃）
	ReasonRateLimited Reason = "rate_limited"
	// ReasonFiltered 权限或内容过滤（丢弃）
	ReasonFiltered Reason = "filtered"
	// ReasonTimeout 超过 message_timeout（丢弃）
	ReasonTimeout Reason = "timeout"
	// ReasonQueueFull 优先级队列已满（丢弃）
	ReasonQueueFull Reason = "queue_full"

	// ReasonDeduplicated 重复消息
	ReasonDeduplicated Reason = "deduplicated"
	// ReasonSanitized 负载被净化（放行，仅计数）
	ReasonSanitized Reason = "sanitized"
)

// ============================================================================
//                              MessageStats - 投递统计
// ============================================================================

// MessageStats 投递统计快照
//
// 快照是值拷贝，调用方可以自由持有。
type MessageStats struct {
	// Sent 成功投递数
	Sent uint64

	// Processed 已处理数（成功 + 失败）
	Processed uint64

	// Failed 失败数（路由/通信错误）
	Failed uint64

	// Dropped 丢弃数（限流、过滤、超时、队列满）
	Dropped uint64

	// AverageLatency 入队到投递的平均延迟
	AverageLatency time.Duration

	// PeakQueueDepth 观测到的最大队列深度
	PeakQueueDepth int

	// ActiveChannels 当前活跃插件通道数
	ActiveChannels int

	// Reasons 按原因细分的计数
	Reasons map[Reason]uint64
}

// Count 返回指定原因的计数
func (s MessageStats) Count(r Reason) uint64 {
	return s.Reasons[r]
}

// FailureRate 失败数 / 已处理数（已处理为 0 时返回 0）
func (s MessageStats) FailureRate() float64 {
	if s.Processed == 0 {
		return 0
	}
	return float64(s.Failed) / float64(s.Processed)
}

// DropRate 丢弃数 / 已发送数（已发送为 0 时返回 0）
func (s MessageStats) DropRate() float64 {
	if s.Sent == 0 {
		return 0
	}
	return float64(s.Dropped) / float64(s.Sent)
}

// ============================================================================
//                              Health - 健康状态
// ============================================================================

// HealthStatus 健康状态
type HealthStatus int

const (
	// HealthHealthy 健康
	HealthHealthy HealthStatus = iota
	// HealthDegraded 降级
	HealthDegraded
)

// String 返回状态字符串
func (h HealthStatus) String() string {
	if h == HealthDegraded {
		return "degraded"
	}
	return "healthy"
}

// Health 健康评估结果
type Health struct {
	Status HealthStatus

	// Reasons 降级原因（健康时为空）
	Reasons []string

	// CheckedAt 评估时间
	CheckedAt time.Time
}

// Healthy 是否健康
func (h Health) Healthy() bool {
	return h.Status == HealthHealthy
}

// ============================================================================
//                              ChannelState - 通道状态
// ============================================================================

// ChannelState 插件通道诊断快照
type ChannelState struct {
	PluginID     string    `json:"plugin_id"`
	CreatedAt    time.Time `json:"created_at"`
	MessageCount uint64    `json:"message_count"`
	Pending      int       `json:"pending"`
}
