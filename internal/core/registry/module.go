package registry

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-bridge/config"
)

// ============================================================================
// Fx 模块
// ============================================================================

// Params 模块输入
type Params struct {
	fx.In

	Config *config.Config `optional:"true"`
	Clock  clock.Clock    `optional:"true"`
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("registry",
		fx.Provide(ProvideRegistry),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideRegistry 提供注册表
func ProvideRegistry(p Params) *Registry {
	cfg := config.DefaultRegistryConfig()
	if p.Config != nil {
		cfg = p.Config.Registry
	}
	return New(cfg, p.Clock)
}

type lifecycleInput struct {
	fx.In
	LC       fx.Lifecycle
	Registry *Registry
}

func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			input.Registry.Close()
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
	Name = "registry"
	// Description 模块描述
	Description = "插件通道注册表模块，管理插件邮箱与共享广播通道"
)
