package types

import (
	"fmt"
	"strings"
)

// ============================================================================
//                              Priority - 消息优先级
// ============================================================================

// Priority 消息优先级
//
// 数值越小越紧急。Background 与 Low 共用低优先级队列。
type Priority int

const (
	// PriorityCritical 关键消息（系统控制）
	PriorityCritical Priority = iota
	// PriorityHigh 高优先级
	PriorityHigh
	// PriorityNormal 普通优先级（默认）
	PriorityNormal
	// PriorityLow 低优先级（批量流量）
	PriorityLow
	// PriorityBackground 后台维护
	PriorityBackground
)

// String 返回优先级的字符串表示
func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	case PriorityBackground:
		return "background"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// IsValid 检查优先级是否有效
func (p Priority) IsValid() bool {
	return p >= PriorityCritical && p <= PriorityBackground
}

// ParsePriority 从字符串解析优先级
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(s) {
	case "critical":
		return PriorityCritical, nil
	case "high":
		return PriorityHigh, nil
	case "normal", "":
		return PriorityNormal, nil
	case "low":
		return PriorityLow, nil
	case "background":
		return PriorityBackground, nil
	default:
		return PriorityNormal, fmt.Errorf("%w: %q", ErrInvalidPriority, s)
	}
}

// MarshalText 实现 encoding.TextMarshaler
func (p Priority) MarshalText() ([]byte, error) {
	if !p.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPriority, int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (p *Priority) UnmarshalText(text []byte) error {
	parsed, err := ParsePriority(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ============================================================================
//                              Encoding - 负载编码
// ============================================================================

// Encoding 负载声明编码
type Encoding string

const (
	// EncodingJSON JSON
	EncodingJSON Encoding = "json"
	// EncodingMessagePack MessagePack
	EncodingMessagePack Encoding = "message-pack"
	// EncodingBinary 不透明二进制
	EncodingBinary Encoding = "binary"
	// EncodingText UTF-8 文本
	EncodingText Encoding = "text"
)

// IsValid 检查编码是否有效
func (e Encoding) IsValid() bool {
	switch e {
	case EncodingJSON, EncodingMessagePack, EncodingBinary, EncodingText:
		return true
	default:
		return false
	}
}

// IsTextual 是否为可直接扫描的文本类编码
func (e Encoding) IsTextual() bool {
	return e == EncodingJSON || e == EncodingText
}

// ============================================================================
//                              Compression - 负载压缩
// ============================================================================

// Compression 负载压缩算法，由转换阶段设置
type Compression string

const (
	// CompressionNone 未压缩
	CompressionNone Compression = ""
	// CompressionZstd zstd 压缩
	CompressionZstd Compression = "zstd"
)

// ============================================================================
//                              Flags - 信封标记
// ============================================================================

// Flags 过滤管道写入的标记位
type Flags uint32

const (
	// FlagSanitized 负载中的不安全内容已被剥离
	FlagSanitized Flags = 1 << iota
	// FlagUnsafeContent 负载含不安全内容（标记模式，未修改）
	FlagUnsafeContent
	// FlagCompressed 负载已压缩
	FlagCompressed
	// FlagNormalized 负载格式已规范化
	FlagNormalized
)

// Has 检查是否包含指定标记
func (f Flags) Has(flag Flags) bool {
	return f&flag != 0
}

// String 返回标记的字符串表示
func (f Flags) String() string {
	if f == 0 {
		return "none"
	}
	names := make([]string, 0, 4)
	if f.Has(FlagSanitized) {
		names = append(names, "sanitized")
	}
	if f.Has(FlagUnsafeContent) {
		names = append(names, "unsafe")
	}
	if f.Has(FlagCompressed) {
		names = append(names, "compressed")
	}
	if f.Has(FlagNormalized) {
		names = append(names, "normalized")
	}
	return strings.Join(names, "|")
}
