package types

import "time"

// ============================================================================
//                              Event - 总线生命周期事件
// ============================================================================

// Event 基础事件接口
type Event interface {
	// Type 返回事件类型
	Type() string

	// Timestamp 返回事件时间戳
	Timestamp() time.Time
}

// BaseEvent 基础事件实现
type BaseEvent struct {
	EventType string
	Time      time.Time
}

// Type 返回事件类型
func (e BaseEvent) Type() string {
	return e.EventType
}

// Timestamp 返回事件时间戳
func (e BaseEvent) Timestamp() time.Time {
	return e.Time
}

// 事件类型常量
const (
	EventTypePluginRegistered   = "plugin.registered"
	EventTypePluginUnregistered = "plugin.unregistered"
	EventTypeRegistryReset      = "registry.reset"
	EventTypeHealthChanged      = "health.changed"
)

// EvtPluginRegistered 插件已注册
type EvtPluginRegistered struct {
	BaseEvent
	PluginID string
}

// EvtPluginUnregistered 插件已注销
type EvtPluginUnregistered struct {
	BaseEvent
	PluginID string

	// Capabilities 随注销移除的消息类型
	Capabilities []string
}

// EvtRegistryReset 注册表被管理操作重置
type EvtRegistryReset struct {
	BaseEvent
	Removed int
}

// EvtHealthChanged 健康状态切换
type EvtHealthChanged struct {
	BaseEvent
	Previous HealthStatus
	Current  Health
}
