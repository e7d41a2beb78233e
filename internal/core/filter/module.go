package filter

import (
	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-bridge/config"
	"github.com/dep2p/go-bridge/internal/core/routing"
)

// ============================================================================
// Fx 模块
// ============================================================================

// Params 模块输入
type Params struct {
	fx.In

	Config *config.Config `optional:"true"`
	Clock  clock.Clock    `optional:"true"`
	Table  *routing.Table
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("filter",
		fx.Provide(ProvidePipeline),
	)
}

// ProvidePipeline 按配置提供过滤管道，能力来源为路由表
func ProvidePipeline(p Params) (*Pipeline, error) {
	cfg := config.DefaultFilterConfig()
	if p.Config != nil {
		cfg = p.Config.Filter
	}
	return New(cfg, p.Clock, p.Table)
}

// ============================================================================
// 模块元信息
// ============================================================================

const (
	// Version 模块版本
	Version = "1.0.0"
	// Name 模块名称
	Name = "filter"
	// Description 模块描述
	Description = "过滤管道模块，限流、权限、净化、去重与转换"
)
