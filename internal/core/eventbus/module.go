package eventbus

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-bridge/pkg/types"
)

// ============================================================================
// Fx 模块
// ============================================================================

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("eventbus",
		fx.Provide(ProvideBus),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideBus 提供事件总线，健康事件为有状态类型
func ProvideBus() (*Bus, error) {
	b := NewBus()
	if err := MarkStateful[types.EvtHealthChanged](b); err != nil {
		return nil, err
	}
	return b, nil
}

func registerLifecycle(lc fx.Lifecycle, b *Bus) {
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			b.Close()
			return nil
		},
	})
}

// ============================================================================
// 模块元信息
// ============================================================================

const (
	// Version 模块版本
	Version = "1.0.0"
	// Name 模块名称
	Name = "eventbus"
	// Description 模块描述
	Description = "事件总线模块，发布插件注册、注销与健康切换等管理事件"
)
