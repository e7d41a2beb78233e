package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
//                              常量
// ============================================================================

const (
	// DefaultTTLHops 默认允许的路由跳数
	DefaultTTLHops = 10

	// MaxMessageTypeLength 消息类型最大长度
	MaxMessageTypeLength = 256
)

// ============================================================================
//                              信封组成部分
// ============================================================================

// Metadata 消息元数据
type Metadata struct {
	// ID 消息唯一标识（UUID）
	ID string

	// CorrelationID 请求/响应关联 ID
	CorrelationID string

	// CreatedAt 创建时间
	CreatedAt time.Time

	// MessageType 消息类型
	MessageType string

	// PayloadSize 负载字节长度
	PayloadSize int
}

// Routing 路由信息
type Routing struct {
	// From 发送方
	From MessageAddress

	// To 目标（具体插件、broadcast 或 system@capability）
	To MessageAddress

	// ReplyTo 回复地址（可选）
	ReplyTo *MessageAddress

	// RouteHistory 已经过的地址
	RouteHistory []MessageAddress

	// TTLHops 剩余允许跳数
	TTLHops int
}

// ============================================================================
//                              MessageEnvelope
// ============================================================================

// MessageEnvelope 总线传输单元
//
// 构造时完成全部校验，非法信封不会进入队列。
// 信封在入队后由调度器独占修改（AddHop、过滤标记）。
type MessageEnvelope struct {
	Metadata Metadata
	Payload  Payload
	Priority Priority
	Routing  Routing

	// Flags 过滤管道写入的标记
	Flags Flags

	// Headers 自定义头
	Headers map[string]string
}

// NewEnvelope 创建消息信封
func NewEnvelope(from, to MessageAddress, messageType string, payload Payload, priority Priority) (*MessageEnvelope, error) {
	if err := from.Validate(); err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}
	if err := to.Validate(); err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}
	if err := ValidateMessageType(messageType); err != nil {
		return nil, err
	}
	if !priority.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPriority, int(priority))
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	return &MessageEnvelope{
		Metadata: Metadata{
			ID:          uuid.New().String(),
			CreatedAt:   time.Now(),
			MessageType: messageType,
			PayloadSize: payload.Len(),
		},
		Payload:  payload,
		Priority: priority,
		Routing: Routing{
			From:         from,
			To:           to,
			RouteHistory: make([]MessageAddress, 0, 2),
			TTLHops:      DefaultTTLHops,
		},
	}, nil
}

// NewReply 创建对请求的回复信封
//
// 回复发往请求的 ReplyTo（若设置）否则发往请求方，
// CorrelationID 设置为请求 ID，优先级沿用请求。
func NewReply(request *MessageEnvelope, from MessageAddress, payload Payload) (*MessageEnvelope, error) {
	to := request.Routing.From
	if request.Routing.ReplyTo != nil {
		to = *request.Routing.ReplyTo
	}
	reply, err := NewEnvelope(from, to, request.Metadata.MessageType, payload, request.Priority)
	if err != nil {
		return nil, err
	}
	reply.Metadata.CorrelationID = request.Metadata.ID
	return reply, nil
}

// ValidateMessageType 校验消息类型
func ValidateMessageType(messageType string) error {
	if messageType == "" {
		return ErrEmptyMessageType
	}
	if len(messageType) > MaxMessageTypeLength {
		return fmt.Errorf("%w: %d > %d", ErrMessageTypeTooLong, len(messageType), MaxMessageTypeLength)
	}
	return nil
}

// ============================================================================
//                              构建器
// ============================================================================

// WithReplyTo 设置回复地址
func (e *MessageEnvelope) WithReplyTo(addr MessageAddress) *MessageEnvelope {
	e.Routing.ReplyTo = &addr
	return e
}

// WithCorrelationID 设置关联 ID
func (e *MessageEnvelope) WithCorrelationID(id string) *MessageEnvelope {
	e.Metadata.CorrelationID = id
	return e
}

// WithTTL 设置剩余跳数
func (e *MessageEnvelope) WithTTL(hops int) *MessageEnvelope {
	e.Routing.TTLHops = hops
	return e
}

// WithHeader 设置自定义头
func (e *MessageEnvelope) WithHeader(key, value string) *MessageEnvelope {
	if e.Headers == nil {
		e.Headers = make(map[string]string)
	}
	e.Headers[key] = value
	return e
}

// ============================================================================
//                              路由跳数
// ============================================================================

// AddHop 记录一次路由跳转
//
// 顺序：先检查环路，再检查 TTL，最后追加历史并递减 TTL。
// 两种错误对该信封都是终结性的。
func (e *MessageEnvelope) AddHop(addr MessageAddress) error {
	for _, hop := range e.Routing.RouteHistory {
		if hop.Matches(addr) {
			return fmt.Errorf("%w: %s already in route of %s", ErrRoutingLoop, addr, e.Metadata.ID)
		}
	}
	if e.Routing.TTLHops <= 0 {
		return fmt.Errorf("%w: ttl exhausted for %s", ErrMessageExpired, e.Metadata.ID)
	}
	e.Routing.RouteHistory = append(e.Routing.RouteHistory, addr)
	e.Routing.TTLHops--
	return nil
}

// Hops 返回已经过的跳数
func (e *MessageEnvelope) Hops() int {
	return len(e.Routing.RouteHistory)
}

// Age 返回信封相对 now 的存活时长
func (e *MessageEnvelope) Age(now time.Time) time.Duration {
	return now.Sub(e.Metadata.CreatedAt)
}

// TimedOut 检查信封是否超过 timeout（timeout<=0 表示不限制）
func (e *MessageEnvelope) TimedOut(now time.Time, timeout time.Duration) bool {
	if timeout <= 0 {
		return false
	}
	return e.Age(now) > timeout
}

// SetPayload 替换负载并同步元数据中的长度
func (e *MessageEnvelope) SetPayload(p Payload) {
	e.Payload = p
	e.Metadata.PayloadSize = p.Len()
}

// Clone 深拷贝信封
func (e *MessageEnvelope) Clone() *MessageEnvelope {
	c := *e
	c.Payload = e.Payload.Clone()
	c.Routing.RouteHistory = append([]MessageAddress(nil), e.Routing.RouteHistory...)
	if e.Routing.ReplyTo != nil {
		replyTo := *e.Routing.ReplyTo
		c.Routing.ReplyTo = &replyTo
	}
	if e.Headers != nil {
		c.Headers = make(map[string]string, len(e.Headers))
		for k, v := range e.Headers {
			c.Headers[k] = v
		}
	}
	return &c
}

// String 返回用于日志的简短描述
func (e *MessageEnvelope) String() string {
	return fmt.Sprintf("envelope{id=%s type=%s %s->%s prio=%s ttl=%d}",
		e.Metadata.ID, e.Metadata.MessageType, e.Routing.From, e.Routing.To, e.Priority, e.Routing.TTLHops)
}
