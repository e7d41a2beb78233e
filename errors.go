package bridge

import (
	"errors"

	"github.com/dep2p/go-bridge/internal/core/dispatcher"
	"github.com/dep2p/go-bridge/internal/core/registry"
	"github.com/dep2p/go-bridge/pkg/types"
)

// 公共错误定义
var (
	// ────────────────────────────────────────────────────────────────────────
	// 总线生命周期错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrNotStarted 总线未启动
	ErrNotStarted = errors.New("bridge not started")

	// ErrAlreadyStarted 总线已启动
	ErrAlreadyStarted = errors.New("bridge already started")

	// ErrClosed 总线已停止或关闭
	ErrClosed = errors.New("bridge closed")

	// ────────────────────────────────────────────────────────────────────────
	// 注册与资源错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrAlreadyRegistered 插件已注册
	ErrAlreadyRegistered = registry.ErrAlreadyRegistered

	// ErrResourceExhausted 队列已满或注册表已满
	ErrResourceExhausted = types.ErrResourceExhausted

	// ────────────────────────────────────────────────────────────────────────
	// 路由错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrPluginNotFound 目标插件未注册
	ErrPluginNotFound = types.ErrPluginNotFound

	// ErrNoHandler 没有插件处理该能力
	ErrNoHandler = types.ErrNoHandler

	// ErrRoutingLoop 路由环路
	ErrRoutingLoop = types.ErrRoutingLoop

	// ErrMessageExpired 跳数耗尽
	ErrMessageExpired = types.ErrMessageExpired

	// ErrPluginCommunicationFailed 目标通道已断开
	ErrPluginCommunicationFailed = types.ErrPluginCommunicationFailed

	// ────────────────────────────────────────────────────────────────────────
	// 过滤错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrRateLimited 发送方超过限流
	ErrRateLimited = dispatcher.ErrRateLimited

	// ErrFiltered 被权限或内容过滤
	ErrFiltered = dispatcher.ErrFiltered

	// ErrDuplicate 窗口内的重复消息
	ErrDuplicate = dispatcher.ErrDuplicate

	// ErrTimedOut 超过 message_timeout
	ErrTimedOut = dispatcher.ErrTimedOut
)
