package routing

import "go.uber.org/fx"

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("routing",
		fx.Provide(NewTable),
	)
}

// ============================================================================
// 模块元信息
// ============================================================================

const (
	// Version 模块版本
	Version = "1.0.0"
	// Name 模块名称
	Name = "routing"
	// Description 模块描述
	Description = "路由表模块，按消息类型轮询选择处理插件"
)
