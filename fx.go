package bridge

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-bridge/config"
	"github.com/dep2p/go-bridge/internal/core/dispatcher"
	"github.com/dep2p/go-bridge/internal/core/eventbus"
	"github.com/dep2p/go-bridge/internal/core/filter"
	"github.com/dep2p/go-bridge/internal/core/queue"
	"github.com/dep2p/go-bridge/internal/core/registry"
	"github.com/dep2p/go-bridge/internal/core/routing"
	"github.com/dep2p/go-bridge/internal/core/stats"
	"github.com/dep2p/go-bridge/pkg/lib/log"
	"github.com/dep2p/go-bridge/pkg/types"
)

var fxLogger = log.Logger("bridge/fx")

// buildFxApp 构建 Fx 应用
//
// 加载顺序（按依赖）：
//
//	Queue → Routing → Registry → Filter(Routing) → Stats(Routing, Queue) → Dispatcher(全部) → EventBus
//
// 组件构造完成后注入 Bridge；内部驱动的启停挂在 Fx 生命周期上。
func buildFxApp(cfg *config.Config, clk clock.Clock, o *options, b *Bridge) (*fx.App, error) {
	// ════════════════════════════════════════════════════════════════════════
	// 1. 配置与时钟注入
	// ════════════════════════════════════════════════════════════════════════
	modules := []fx.Option{
		fx.Supply(cfg),
		fx.Provide(func() clock.Clock { return clk }),
	}

	// ════════════════════════════════════════════════════════════════════════
	// 2. 核心模块
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules,
		queue.Module(),      // 优先级队列
		routing.Module(),    // 能力路由表
		registry.Module(),   // 插件通道注册表
		filter.Module(),     // 过滤管道（依赖路由表做权限判断）
		stats.Module(),      // 统计、健康、指标收集器
		dispatcher.Module(), // tick 调度
		eventbus.Module(),   // 管理事件
	)

	// ════════════════════════════════════════════════════════════════════════
	// 3. 用户自定义选项
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules, o.fxOptions...)

	// ════════════════════════════════════════════════════════════════════════
	// 4. 注入 Bridge 与驱动生命周期
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules, fx.Invoke(injectBridgeComponents(b)))
	modules = append(modules, fx.Invoke(wireHealthEvents))
	if !o.manualTick && cfg.Dispatch.TickInterval.Duration() > 0 {
		modules = append(modules, fx.Invoke(registerRunner(b, clk, cfg)))
	}

	// 静默 Fx 自身日志
	modules = append(modules,
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
		fx.NopLogger,
	)

	app := fx.New(modules...)
	if err := app.Err(); err != nil {
		fxLogger.Error("Fx 应用构建失败", "err", err)
		return nil, err
	}
	return app, nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              组件注入
// ════════════════════════════════════════════════════════════════════════════

// bridgeParams Bridge 依赖的内部组件
type bridgeParams struct {
	fx.In

	Queues     *queue.PriorityQueues
	Registry   *registry.Registry
	Table      *routing.Table
	Pipeline   *filter.Pipeline
	Stats      *stats.Stats
	Monitor    *stats.Monitor
	Collector  *stats.Collector
	Dispatcher *dispatcher.Dispatcher
	Events     *eventbus.Bus
}

// injectBridgeComponents 创建 Bridge 组件注入函数
func injectBridgeComponents(b *Bridge) interface{} {
	return func(p bridgeParams) {
		b.queues = p.Queues
		b.registry = p.Registry
		b.table = p.Table
		b.pipeline = p.Pipeline
		b.stats = p.Stats
		b.monitor = p.Monitor
		b.collector = p.Collector
		b.dispatcher = p.Dispatcher
		b.events = p.Events
		fxLogger.Debug("总线组件已注入",
			"queue_capacity", p.Queues.BaseCapacity(),
			"max_channels", p.Registry.MaxChannels(),
			"stages", p.Pipeline.Stages())
	}
}

// wireHealthEvents 把健康状态切换发布到事件总线
func wireHealthEvents(m *stats.Monitor, bus *eventbus.Bus) {
	m.OnChange(func(prev types.HealthStatus, cur types.Health) {
		eventbus.Emit(bus, types.EvtHealthChanged{
			BaseEvent: types.BaseEvent{EventType: types.EventTypeHealthChanged, Time: cur.CheckedAt},
			Previous:  prev,
			Current:   cur,
		})
	})
}

// registerRunner 将内部驱动挂到 Fx 生命周期
func registerRunner(b *Bridge, clk clock.Clock, cfg *config.Config) interface{} {
	return func(lc fx.Lifecycle) {
		b.runner = dispatcher.NewRunner(func(ctx context.Context) {
			b.tick(ctx)
		}, clk, cfg.Dispatch.TickInterval.Duration())

		lc.Append(fx.Hook{
			OnStart: func(_ context.Context) error {
				b.runner.Start()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				return b.runner.Stop(ctx)
			},
		})
	}
}
