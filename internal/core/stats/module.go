package stats

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-bridge/config"
	"github.com/dep2p/go-bridge/internal/core/queue"
	"github.com/dep2p/go-bridge/internal/core/routing"
)

// ============================================================================
// Fx 模块
// ============================================================================

// Params 模块输入
type Params struct {
	fx.In

	Config *config.Config `optional:"true"`
	Table  *routing.Table
	Queues *queue.PriorityQueues
}

// Result 模块输出
type Result struct {
	fx.Out

	Stats     *Stats
	Monitor   *Monitor
	Collector *Collector
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("stats",
		fx.Provide(ProvideStats),
	)
}

// ProvideStats 提供统计、健康监控与指标收集器
func ProvideStats(p Params) Result {
	cfg := config.NewConfig()
	if p.Config != nil {
		cfg = p.Config
	}
	s := New()
	m := NewMonitor(s, KnownActive(s, p.Table.KnownPlugins), cfg.Health)
	c := NewCollector(cfg.Metrics.Namespace, s, m, p.Queues.Len)
	return Result{Stats: s, Monitor: m, Collector: c}
}

// Register 将收集器注册到 Prometheus 注册表
func Register(reg prometheus.Registerer, c *Collector) error {
	return reg.Register(c)
}

// ============================================================================
// 模块元信息
// ============================================================================

const (
	// Version 模块版本
	Version = "1.0.0"
	// Name 模块名称
	Name = "stats"
	// Description 模块描述
	Description = "统计与健康模块，投递计数、健康评估与 Prometheus 导出"
)
