package types

import "errors"

// ============================================================================
//                              地址/校验错误
// ============================================================================

var (
	// ErrEmptyPluginID 空插件 ID
	ErrEmptyPluginID = errors.New("empty plugin ID")

	// ErrPluginIDTooLong 插件 ID 过长
	ErrPluginIDTooLong = errors.New("plugin ID too long")

	// ErrInvalidPluginID 插件 ID 含非法字符
	ErrInvalidPluginID = errors.New("invalid plugin ID")

	// ErrEmptyCapability 空能力名
	ErrEmptyCapability = errors.New("empty capability")

	// ErrInvalidCapability 能力名非法
	ErrInvalidCapability = errors.New("invalid capability")

	// ErrInvalidInstanceID 实例 ID 非法
	ErrInvalidInstanceID = errors.New("invalid instance ID")

	// ErrInvalidAddress 地址解析失败
	ErrInvalidAddress = errors.New("invalid message address")

	// ErrEmptyMessageType 空消息类型
	ErrEmptyMessageType = errors.New("empty message type")

	// ErrMessageTypeTooLong 消息类型过长
	ErrMessageTypeTooLong = errors.New("message type too long")

	// ErrInvalidPriority 无效优先级
	ErrInvalidPriority = errors.New("invalid priority")

	// ErrInvalidEncoding 无效负载编码
	ErrInvalidEncoding = errors.New("invalid payload encoding")

	// ErrCompressedPayload 负载已压缩，需先解压
	ErrCompressedPayload = errors.New("payload is compressed")
)

// ============================================================================
//                              容量错误
// ============================================================================

var (
	// ErrResourceExhausted 队列已满或注册表已满
	ErrResourceExhausted = errors.New("resource exhausted")
)

// ============================================================================
//                              路由错误
// ============================================================================

var (
	// ErrPluginNotFound 目标插件未注册
	ErrPluginNotFound = errors.New("plugin not found")

	// ErrRoutingLoop 路由环路
	ErrRoutingLoop = errors.New("routing loop detected")

	// ErrMessageExpired 消息已过期（TTL 耗尽或超时）
	ErrMessageExpired = errors.New("message expired")

	// ErrNoHandler 没有插件处理该能力
	ErrNoHandler = errors.New("no handler for capability")
)

// ============================================================================
//                              通信错误
// ============================================================================

var (
	// ErrPluginCommunicationFailed 目标通道已断开
	ErrPluginCommunicationFailed = errors.New("plugin communication failed")
)
