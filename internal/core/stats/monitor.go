package stats

import (
	"sync"
	"time"

	"github.com/dep2p/go-bridge/config"
	"github.com/dep2p/go-bridge/pkg/lib/log"
	"github.com/dep2p/go-bridge/pkg/types"
)

var logger = log.Logger("core/stats")

// KnownPluginsFunc 返回当前已知活跃插件数
type KnownPluginsFunc func() int

// KnownActive 组合已声明能力的插件数与最近发送过消息的插件数
//
// 声明随注册表一起清理，发送方则来自生产者，注册表被重置后仍在发送的插件
// 也算作已知活跃。
func KnownActive(s *Stats, declared KnownPluginsFunc) KnownPluginsFunc {
	return func() int {
		return max(declared(), s.TakeSenders())
	}
}

// Monitor 周期性评估健康状态
//
// LastLogTime 与 lastCheck 都由 Monitor 自己持有，
// 调用方在监控 tick 中传入当前时间。
type Monitor struct {
	mu sync.RWMutex

	stats      *Stats
	known      KnownPluginsFunc
	thresholds Thresholds

	interval    time.Duration
	logInterval time.Duration

	// LastLogTime 上一次输出健康日志的时间
	LastLogTime time.Time

	lastCheck time.Time
	current   types.Health

	onChange ChangeFunc
}

// ChangeFunc 健康状态切换回调
type ChangeFunc func(prev types.HealthStatus, cur types.Health)

// NewMonitor 创建健康监控
func NewMonitor(s *Stats, known KnownPluginsFunc, cfg config.HealthConfig) *Monitor {
	if known == nil {
		known = func() int { return 0 }
	}
	return &Monitor{
		stats:       s,
		known:       known,
		thresholds:  ThresholdsFrom(cfg),
		interval:    cfg.MonitorInterval.Duration(),
		logInterval: cfg.LogInterval.Duration(),
		current:     types.Health{Status: types.HealthHealthy},
	}
}

// OnChange 设置状态切换回调，回调在锁外执行
func (m *Monitor) OnChange(fn ChangeFunc) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// Due 是否到达下一次监控 tick
func (m *Monitor) Due(now time.Time) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastCheck.IsZero() || now.Sub(m.lastCheck) >= m.interval
}

// MaybeTick 到期时执行监控 tick，返回是否执行
func (m *Monitor) MaybeTick(now time.Time) bool {
	if !m.Due(now) {
		return false
	}
	m.Tick(now)
	return true
}

// Tick 重新计算健康状态并按日志间隔输出
func (m *Monitor) Tick(now time.Time) types.Health {
	snap := m.stats.Snapshot()
	h := Evaluate(snap, m.known(), m.thresholds, now)

	m.mu.Lock()
	prev := m.current.Status
	m.current = h
	m.lastCheck = now
	shouldLog := h.Status != prev ||
		(m.logInterval > 0 && now.Sub(m.LastLogTime) >= m.logInterval)
	if shouldLog {
		m.LastLogTime = now
	}
	onChange := m.onChange
	m.mu.Unlock()

	if onChange != nil && h.Status != prev {
		onChange(prev, h)
	}

	if !shouldLog {
		return h
	}
	args := []any{
		"status", h.Status,
		"sent", snap.Sent,
		"processed", snap.Processed,
		"failed", snap.Failed,
		"dropped", snap.Dropped,
		"avg_latency", snap.AverageLatency,
		"channels", snap.ActiveChannels,
	}
	if h.Healthy() {
		logger.Info("总线健康状态", args...)
	} else {
		logger.Warn("总线降级", append(args, "reasons", h.Reasons)...)
	}
	return h
}

// Health 返回最近一次评估结果
func (m *Monitor) Health() types.Health {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// LastLog 返回上一次输出健康日志的时间
func (m *Monitor) LastLog() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastLogTime
}
