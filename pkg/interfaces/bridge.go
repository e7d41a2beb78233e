// 本文件定义插件侧与宿主侧共同遵守的契约。

package interfaces

import (
	"context"

	"github.com/dep2p/go-bridge/pkg/types"
)

// ============================================================================
//                              Bridge - 总线门面
// ============================================================================

// Bridge 定义总线门面接口
//
// 插件必须先 Register，再用 RegisterHandler 声明处理的消息类型，
// 关闭时必须 Unregister，否则会作为幽灵条目保留到注册表重置。
type Bridge interface {
	// Register 注册插件并返回其接收端
	Register(pluginID string) (Receiver, error)

	// RegisterHandler 声明插件处理的消息类型（能力）
	RegisterHandler(pluginID, messageType string) error

	// Unregister 注销插件，同时清理路由表
	Unregister(pluginID string) bool

	// Enqueue 将信封放入优先级队列，队列满时返回 ErrResourceExhausted
	Enqueue(env *types.MessageEnvelope) error

	// SendDirect 绕过队列直接投递到目标插件通道
	SendDirect(env *types.MessageEnvelope) error

	// Broadcast 投递到共享广播通道
	Broadcast(env *types.MessageEnvelope) error

	// Receiver 返回已注册插件的接收端
	Receiver(pluginID string) (Receiver, bool)

	// BroadcastReceiver 返回广播通道接收端
	BroadcastReceiver() Receiver

	// Tick 执行一次调度
	Tick()

	// Stats 返回统计快照
	Stats() types.MessageStats

	// States 返回全部插件通道状态快照
	States() []types.ChannelState

	// Health 返回最近一次监控 tick 的健康评估
	Health() types.Health
}

// ============================================================================
//                              Receiver - 插件接收端
// ============================================================================

// Receiver 插件通道的接收端
//
// 插件在自己的调度时隙中轮询接收端。
type Receiver interface {
	// TryRecv 非阻塞接收
	TryRecv() (*types.MessageEnvelope, bool)

	// Recv 阻塞接收直到有消息、通道关闭或 ctx 结束
	Recv(ctx context.Context) (*types.MessageEnvelope, error)

	// Drain 一次取出最多 max 条（max<=0 表示全部）
	Drain(max int) []*types.MessageEnvelope

	// C 返回有新消息时触发的通知通道
	C() <-chan struct{}

	// Len 返回待接收消息数
	Len() int
}

// ============================================================================
//                              Poller - 挂起操作
// ============================================================================

// Poller 可被调度器轮询的挂起操作集合
type Poller interface {
	// Poll 推进所有挂起操作，返回本次完成的数量
	Poll() int

	// Pending 返回仍未完成的数量
	Pending() int
}

// ============================================================================
//                              Subscription - 事件订阅
// ============================================================================

// Subscription 事件类型 T 的订阅
type Subscription[T any] interface {
	// Out 返回事件通道，订阅关闭后通道关闭
	Out() <-chan T

	// Close 取消订阅
	Close() error
}
