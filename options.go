package bridge

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-bridge/config"
)

// Option 用户配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	// 预设或显式配置
	preset     string
	config     *config.Config
	configFile string

	// 覆盖项（应用在预设/配置之上）
	queueCapacity  *int
	batchSize      *int
	tickInterval   *time.Duration
	messageTimeout *time.Duration

	// 时钟（测试注入 mock）
	clock clock.Clock

	// 宿主自行调用 Tick，不启动内部驱动
	manualTick bool

	// 用户自定义 Fx 选项
	fxOptions []fx.Option
}

func newOptions() *options {
	return &options{preset: config.PresetDesktop}
}

// apply 应用所有选项
func (o *options) apply(opts ...Option) error {
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(o); err != nil {
			return err
		}
	}
	return nil
}

// resolveConfig 按 配置文件 > 显式配置 > 预设 的顺序得到最终配置，再应用覆盖项
func (o *options) resolveConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	switch {
	case o.configFile != "":
		cfg, err = config.LoadFile(o.configFile)
	case o.config != nil:
		cfg = o.config
	default:
		cfg, err = config.NewPresetConfig(o.preset)
	}
	if err != nil {
		return nil, err
	}

	if o.queueCapacity != nil {
		cfg.Queue.Capacity = *o.queueCapacity
	}
	if o.batchSize != nil {
		cfg.Dispatch.BatchSize = *o.batchSize
	}
	if o.tickInterval != nil {
		cfg.Dispatch.TickInterval = config.Duration(*o.tickInterval)
	}
	if o.messageTimeout != nil {
		cfg.Dispatch.MessageTimeout = config.Duration(*o.messageTimeout)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              配置来源
// ════════════════════════════════════════════════════════════════════════════

// WithPreset 使用预设配置（minimal / desktop / server）
func WithPreset(name string) Option {
	return func(o *options) error {
		if _, err := config.NewPresetConfig(name); err != nil {
			return err
		}
		o.preset = name
		return nil
	}
}

// WithConfig 使用完整配置
//
// 配置会被直接使用（覆盖项会修改它），调用方不应再共享该实例。
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return fmt.Errorf("config is nil")
		}
		o.config = cfg
		return nil
	}
}

// WithConfigFile 从 JSON / YAML 文件加载配置
func WithConfigFile(path string) Option {
	return func(o *options) error {
		o.configFile = path
		return nil
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              覆盖项
// ════════════════════════════════════════════════════════════════════════════

// WithQueueCapacity 设置优先级队列基础容量
func WithQueueCapacity(capacity int) Option {
	return func(o *options) error {
		if capacity <= 0 {
			return fmt.Errorf("queue capacity must be positive, got %d", capacity)
		}
		o.queueCapacity = &capacity
		return nil
	}
}

// WithBatchSize 设置每个 tick 的最大出队数
func WithBatchSize(size int) Option {
	return func(o *options) error {
		if size <= 0 {
			return fmt.Errorf("batch size must be positive, got %d", size)
		}
		o.batchSize = &size
		return nil
	}
}

// WithTickInterval 设置内部驱动间隔（0 表示由宿主驱动）
func WithTickInterval(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return fmt.Errorf("tick interval must not be negative, got %s", d)
		}
		o.tickInterval = &d
		return nil
	}
}

// WithMessageTimeout 设置信封最大存活时长（0 表示不限制）
func WithMessageTimeout(d time.Duration) Option {
	return func(o *options) error {
		o.messageTimeout = &d
		return nil
	}
}

// WithManualTick 由宿主在自己的帧循环中调用 Tick
func WithManualTick() Option {
	return func(o *options) error {
		o.manualTick = true
		return nil
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              高级选项
// ════════════════════════════════════════════════════════════════════════════

// WithClock 注入时钟
func WithClock(clk clock.Clock) Option {
	return func(o *options) error {
		o.clock = clk
		return nil
	}
}

// WithFxOption 添加自定义 Fx 选项
//
// 可用于向总线容器注入额外组件或用 fx.Invoke 取用内部组件。
func WithFxOption(opts ...fx.Option) Option {
	return func(o *options) error {
		o.fxOptions = append(o.fxOptions, opts...)
		return nil
	}
}
