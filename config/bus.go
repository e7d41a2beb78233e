package config

import (
	"errors"
	"time"

	"go.uber.org/multierr"
)

// ════════════════════════════════════════════════════════════════════════════
//                              优先级队列
// ════════════════════════════════════════════════════════════════════════════

// QueueConfig 优先级队列配置
//
// 四个队列按单一容量 C 比例划分：critical C/10、high C/4、normal C/2、low C。
type QueueConfig struct {
	// Capacity 基准容量 C
	Capacity int `json:"capacity" yaml:"capacity"`
}

// DefaultQueueConfig 返回默认队列配置
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		Capacity: 10000, // low 队列 10000，critical 队列 1000
	}
}

// Validate 验证队列配置
func (c QueueConfig) Validate() error {
	if c.Capacity <= 0 {
		return errors.New("queue capacity must be positive")
	}
	return nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              插件通道注册表
// ════════════════════════════════════════════════════════════════════════════

// RegistryConfig 插件通道注册表配置
type RegistryConfig struct {
	// MaxChannels 最大并发插件通道数
	MaxChannels int `json:"max_channels" yaml:"max_channels"`

	// SlowConsumerThreshold 通道积压超过该值时告警（0 = 不告警）
	SlowConsumerThreshold int `json:"slow_consumer_threshold" yaml:"slow_consumer_threshold"`
}

// DefaultRegistryConfig 返回默认注册表配置
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		MaxChannels:           1000,
		SlowConsumerThreshold: 10000,
	}
}

// Validate 验证注册表配置
func (c RegistryConfig) Validate() error {
	var err error
	if c.MaxChannels <= 0 {
		err = multierr.Append(err, errors.New("registry max channels must be positive"))
	}
	if c.SlowConsumerThreshold < 0 {
		err = multierr.Append(err, errors.New("registry slow consumer threshold must not be negative"))
	}
	return err
}

// ════════════════════════════════════════════════════════════════════════════
//                              调度器
// ════════════════════════════════════════════════════════════════════════════

// DispatchConfig 调度器配置
type DispatchConfig struct {
	// BatchSize 每个 tick 最多处理的信封数
	//
	// 持续的高优先级流量会饿死低优先级队列，调大该值可以在
	// 紧急度与公平性之间取舍。
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// TickInterval 自驱动模式下的 tick 间隔（0 = 由宿主驱动）
	TickInterval Duration `json:"tick_interval" yaml:"tick_interval"`

	// MessageTimeout 消息最长存活时间（0 = 不限制）
	MessageTimeout Duration `json:"message_timeout" yaml:"message_timeout"`

	// DefaultTTLHops 新信封默认跳数
	DefaultTTLHops int `json:"default_ttl_hops" yaml:"default_ttl_hops"`
}

// DefaultDispatchConfig 返回默认调度配置
func DefaultDispatchConfig() DispatchConfig {
	return DispatchConfig{
		BatchSize:      1000,
		TickInterval:   Duration(16 * time.Millisecond), // 约 60 帧/秒
		MessageTimeout: Duration(30 * time.Second),
		DefaultTTLHops: 10,
	}
}

// Validate 验证调度配置
func (c DispatchConfig) Validate() error {
	var err error
	if c.BatchSize <= 0 {
		err = multierr.Append(err, errors.New("dispatch batch size must be positive"))
	}
	if c.TickInterval < 0 {
		err = multierr.Append(err, errors.New("dispatch tick interval must not be negative"))
	}
	if c.MessageTimeout < 0 {
		err = multierr.Append(err, errors.New("dispatch message timeout must not be negative"))
	}
	if c.DefaultTTLHops <= 0 {
		err = multierr.Append(err, errors.New("dispatch default ttl hops must be positive"))
	}
	return err
}
