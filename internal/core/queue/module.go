package queue

import (
	"github.com/dep2p/go-bridge/config"
	"go.uber.org/fx"
)

// ============================================================================
// Fx 模块
// ============================================================================

// Params 模块输入
type Params struct {
	fx.In

	Config *config.Config `optional:"true"`
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("queue",
		fx.Provide(ProvideQueues),
	)
}

// ProvideQueues 按配置提供优先级队列
func ProvideQueues(p Params) *PriorityQueues {
	capacity := config.DefaultQueueConfig().Capacity
	if p.Config != nil {
		capacity = p.Config.Queue.Capacity
	}
	return New(capacity)
}

// ============================================================================
// 模块元信息
// ============================================================================

const (
	// Version 模块版本
	Version = "1.0.0"
	// Name 模块名称
	Name = "queue"
	// Description 模块描述
	Description = "优先级队列模块，提供四层有界非阻塞消息队列"
)
