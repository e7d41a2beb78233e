package dispatcher

import (
	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-bridge/config"
	"github.com/dep2p/go-bridge/internal/core/filter"
	"github.com/dep2p/go-bridge/internal/core/queue"
	"github.com/dep2p/go-bridge/internal/core/registry"
	"github.com/dep2p/go-bridge/internal/core/routing"
	"github.com/dep2p/go-bridge/internal/core/stats"
)

// ============================================================================
// Fx 模块
// ============================================================================

// Params 模块输入
type Params struct {
	fx.In

	Config   *config.Config `optional:"true"`
	Clock    clock.Clock    `optional:"true"`
	Queues   *queue.PriorityQueues
	Registry *registry.Registry
	Table    *routing.Table
	Pipeline *filter.Pipeline
	Stats    *stats.Stats
	Monitor  *stats.Monitor
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("dispatcher",
		fx.Provide(ProvideDispatcher),
	)
}

// ProvideDispatcher 提供调度器
func ProvideDispatcher(p Params) *Dispatcher {
	cfg := config.DefaultDispatchConfig()
	if p.Config != nil {
		cfg = p.Config.Dispatch
	}
	return New(cfg, Deps{
		Queues:   p.Queues,
		Registry: p.Registry,
		Table:    p.Table,
		Pipeline: p.Pipeline,
		Stats:    p.Stats,
		Monitor:  p.Monitor,
		Clock:    p.Clock,
	})
}

// ============================================================================
// 模块元信息
// ============================================================================

const (
	// Version 模块版本
	Version = "1.0.0"
	// Name 模块名称
	Name = "dispatcher"
	// Description 模块描述
	Description = "调度模块，tick 驱动的出队、过滤、路由与投递"
)
