package config

import (
	"errors"
	"time"

	"go.uber.org/multierr"
)

// HealthConfig 统计与健康配置
type HealthConfig struct {
	// MonitorInterval 健康检查间隔（监控 tick）
	MonitorInterval Duration `json:"monitor_interval" yaml:"monitor_interval"`

	// LogInterval 健康状态日志最小间隔
	LogInterval Duration `json:"log_interval" yaml:"log_interval"`

	// FailureRateThreshold 失败数占已处理数比例上限
	FailureRateThreshold float64 `json:"failure_rate_threshold" yaml:"failure_rate_threshold"`

	// DropRateThreshold 丢弃数占已发送数比例上限
	DropRateThreshold float64 `json:"drop_rate_threshold" yaml:"drop_rate_threshold"`
}

// DefaultHealthConfig 返回默认健康配置
func DefaultHealthConfig() HealthConfig {
	return HealthConfig{
		MonitorInterval:      Duration(time.Second),
		LogInterval:          Duration(30 * time.Second),
		FailureRateThreshold: 0.10,
		DropRateThreshold:    0.10,
	}
}

// Validate 验证健康配置
func (c HealthConfig) Validate() error {
	var err error
	if c.MonitorInterval <= 0 {
		err = multierr.Append(err, errors.New("health monitor interval must be positive"))
	}
	if c.LogInterval < 0 {
		err = multierr.Append(err, errors.New("health log interval must not be negative"))
	}
	if c.FailureRateThreshold <= 0 || c.FailureRateThreshold > 1 {
		err = multierr.Append(err, errors.New("health failure rate threshold must be in (0, 1]"))
	}
	if c.DropRateThreshold <= 0 || c.DropRateThreshold > 1 {
		err = multierr.Append(err, errors.New("health drop rate threshold must be in (0, 1]"))
	}
	return err
}

// MetricsConfig Prometheus 指标配置
type MetricsConfig struct {
	// Enabled 是否导出指标
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Namespace 指标命名空间
	Namespace string `json:"namespace" yaml:"namespace"`

	// ListenAddr /metrics 监听地址（仅 cmd/bridge 使用）
	ListenAddr string `json:"listen_addr" yaml:"listen_addr"`
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:    true,
		Namespace:  "bridge",
		ListenAddr: "127.0.0.1:9464",
	}
}

// Validate 验证指标配置
func (c MetricsConfig) Validate() error {
	if c.Enabled && c.Namespace == "" {
		return errors.New("metrics namespace must not be empty")
	}
	return nil
}
