package stats

import (
	"fmt"
	"time"

	"github.com/dep2p/go-bridge/config"
	"github.com/dep2p/go-bridge/pkg/types"
)

// Thresholds 降级阈值
type Thresholds struct {
	// FailureRate 失败数 / 已处理数 上限
	FailureRate float64

	// DropRate 丢弃数 / 已发送数 上限
	DropRate float64
}

// DefaultThresholds 返回默认阈值（均为 10%）
func DefaultThresholds() Thresholds {
	cfg := config.DefaultHealthConfig()
	return ThresholdsFrom(cfg)
}

// ThresholdsFrom 从健康配置读取阈值
func ThresholdsFrom(cfg config.HealthConfig) Thresholds {
	return Thresholds{
		FailureRate: cfg.FailureRateThreshold,
		DropRate:    cfg.DropRateThreshold,
	}
}

// Evaluate 根据快照评估健康状态
//
// knownPlugins 为路由表中声明过能力的插件数。
func Evaluate(s types.MessageStats, knownPlugins int, th Thresholds, now time.Time) types.Health {
	h := types.Health{Status: types.HealthHealthy, CheckedAt: now}

	if rate := s.FailureRate(); s.Processed > 0 && rate > th.FailureRate {
		h.Reasons = append(h.Reasons, fmt.Sprintf("failure rate %.1f%% exceeds %.1f%%", rate*100, th.FailureRate*100))
	}
	if s.Sent > 0 {
		if rate := s.DropRate(); rate > th.DropRate {
			h.Reasons = append(h.Reasons, fmt.Sprintf("drop rate %.1f%% exceeds %.1f%%", rate*100, th.DropRate*100))
		}
	} else if s.Dropped > 0 {
		h.Reasons = append(h.Reasons, fmt.Sprintf("%d dropped with nothing sent", s.Dropped))
	}
	if s.ActiveChannels == 0 && knownPlugins > 0 {
		h.Reasons = append(h.Reasons, fmt.Sprintf("no active channels while %d plugins are known", knownPlugins))
	}

	if len(h.Reasons) > 0 {
		h.Status = types.HealthDegraded
	}
	return h
}
