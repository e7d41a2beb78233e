// Package config 提供 Service Bridge 的统一配置管理
//
// 本包采用混合配置模式：
//   - 主 Config 结构体嵌入所有子配置
//   - 每个子配置在独立文件中定义，各自提供 Default…() 与 Validate()
//   - 支持从 JSON / YAML 加载
//   - 支持预设配置（minimal/desktop/server）
//
// 使用示例：
//
//	cfg := config.NewConfig()
//	cfg.Dispatch.BatchSize = 500
//
//	cfg, err := config.LoadFile("bridge.yaml")
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Config 是 Service Bridge 的完整配置结构
//
//   - Queue: 优先级队列容量
//   - Registry: 插件通道注册表
//   - Dispatch: tick 调度
//   - Filter: 过滤管道
//   - Health: 统计与健康
//   - Metrics: Prometheus 导出
type Config struct {
	Queue    QueueConfig    `json:"queue" yaml:"queue"`
	Registry RegistryConfig `json:"registry" yaml:"registry"`
	Dispatch DispatchConfig `json:"dispatch" yaml:"dispatch"`
	Filter   FilterConfig   `json:"filter" yaml:"filter"`
	Health   HealthConfig   `json:"health" yaml:"health"`
	Metrics  MetricsConfig  `json:"metrics" yaml:"metrics"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Queue:    DefaultQueueConfig(),
		Registry: DefaultRegistryConfig(),
		Dispatch: DefaultDispatchConfig(),
		Filter:   DefaultFilterConfig(),
		Health:   DefaultHealthConfig(),
		Metrics:  DefaultMetricsConfig(),
	}
}

// Validate 验证配置的有效性
//
// 汇总所有子配置的错误，而不是在第一个错误处返回。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	return multierr.Combine(
		c.Queue.Validate(),
		c.Registry.Validate(),
		c.Dispatch.Validate(),
		c.Filter.Validate(),
		c.Health.Validate(),
		c.Metrics.Validate(),
	)
}

// ════════════════════════════════════════════════════════════════════════════
//                              加载
// ════════════════════════════════════════════════════════════════════════════

// FromJSON 从 JSON 加载配置，未出现的字段保留默认值
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse json config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// FromYAML 从 YAML 加载配置，未出现的字段保留默认值
func FromYAML(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse yaml config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFile 按扩展名加载配置文件（.json / .yaml / .yml）
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FromYAML(data)
	case ".json":
		return FromJSON(data)
	default:
		return nil, fmt.Errorf("unsupported config extension %q", filepath.Ext(path))
	}
}

// ToJSON 序列化为缩进 JSON
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// ════════════════════════════════════════════════════════════════════════════
//                              预设
// ════════════════════════════════════════════════════════════════════════════

// 预设名称常量
const (
	PresetMinimal = "minimal"
	PresetDesktop = "desktop"
	PresetServer  = "server"
)

// NewMinimalConfig 最小配置：小队列，关闭净化与转换，适合测试
func NewMinimalConfig() *Config {
	cfg := NewConfig()
	cfg.Queue.Capacity = 100
	cfg.Registry.MaxChannels = 16
	cfg.Dispatch.BatchSize = 100
	cfg.Filter.Sanitize.Enabled = false
	cfg.Filter.Transform.Enabled = false
	cfg.Metrics.Enabled = false
	return cfg
}

// NewDesktopConfig 桌面配置（即默认配置）
func NewDesktopConfig() *Config {
	return NewConfig()
}

// NewServerConfig 服务端配置：大队列、更大批次、严格权限
func NewServerConfig() *Config {
	cfg := NewConfig()
	cfg.Queue.Capacity = 100000
	cfg.Registry.MaxChannels = 1000
	cfg.Dispatch.BatchSize = 5000
	cfg.Dispatch.TickInterval = Duration(5 * time.Millisecond)
	cfg.Filter.Permission.Mode = PermissionStrict
	cfg.Filter.RateLimit.MaxMessages = 10000
	return cfg
}

// NewPresetConfig 按名称返回预设配置
func NewPresetConfig(name string) (*Config, error) {
	switch name {
	case PresetMinimal:
		return NewMinimalConfig(), nil
	case PresetDesktop, "":
		return NewDesktopConfig(), nil
	case PresetServer:
		return NewServerConfig(), nil
	default:
		return nil, fmt.Errorf("unknown preset %q", name)
	}
}
