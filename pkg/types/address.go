package types

import (
	"fmt"
	"strings"
)

// ============================================================================
//                              MessageAddress - 插件地址
// ============================================================================

const (
	// MaxIdentifierLength 插件 ID / 能力名 / 实例 ID 的最大长度
	MaxIdentifierLength = 256

	// SystemPluginID 保留地址：宿主系统
	SystemPluginID = "system"

	// BroadcastPluginID 保留地址：广播
	BroadcastPluginID = "broadcast"
)

// 文本格式分隔符：plugin_id[@capability][#instance_id]
const (
	capabilitySep = "@"
	instanceSep   = "#"
)

// MessageAddress 总线参与者地址
//
// 路由匹配（Matches）只比较 PluginID 与 Capability，忽略 InstanceID，
// InstanceID 仅用于负载均衡副本区分。
type MessageAddress struct {
	// PluginID 插件 ID（必填）
	PluginID string

	// Capability 能力名（可选）
	Capability string

	// InstanceID 实例 ID（可选）
	InstanceID string
}

// SystemAddress 返回保留的 system 地址
func SystemAddress() MessageAddress {
	return MessageAddress{PluginID: SystemPluginID}
}

// BroadcastAddress 返回保留的 broadcast 地址
func BroadcastAddress() MessageAddress {
	return MessageAddress{PluginID: BroadcastPluginID}
}

// CapabilityAddress 返回按能力路由的地址（system@capability）
//
// 投递时由路由表选择处理该能力的插件。
func CapabilityAddress(capability string) MessageAddress {
	return MessageAddress{PluginID: SystemPluginID, Capability: capability}
}

// NewAddress 创建并校验插件地址
func NewAddress(pluginID string) (MessageAddress, error) {
	addr := MessageAddress{PluginID: pluginID}
	if err := addr.Validate(); err != nil {
		return MessageAddress{}, err
	}
	return addr, nil
}

// MustAddress 创建地址，校验失败时 panic
//
// 仅用于常量地址与测试。
func MustAddress(text string) MessageAddress {
	addr, err := ParseAddress(text)
	if err != nil {
		panic(err)
	}
	return addr
}

// ParseAddress 从文本格式解析地址
//
// 格式: plugin_id[@capability][#instance_id]
func ParseAddress(text string) (MessageAddress, error) {
	if text == "" {
		return MessageAddress{}, fmt.Errorf("%w: %w", ErrInvalidAddress, ErrEmptyPluginID)
	}

	rest, instance, hasInstance := strings.Cut(text, instanceSep)
	pluginID, capability, hasCapability := strings.Cut(rest, capabilitySep)

	if hasCapability && capability == "" {
		return MessageAddress{}, fmt.Errorf("%w: %w", ErrInvalidAddress, ErrEmptyCapability)
	}
	if hasInstance && instance == "" {
		return MessageAddress{}, fmt.Errorf("%w: %w: empty", ErrInvalidAddress, ErrInvalidInstanceID)
	}

	addr := MessageAddress{
		PluginID:   pluginID,
		Capability: capability,
		InstanceID: instance,
	}
	if err := addr.Validate(); err != nil {
		return MessageAddress{}, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	return addr, nil
}

// ValidatePluginID 校验插件 ID
//
// 规则：非空、长度 ≤256、仅允许字母数字、下划线、连字符。
func ValidatePluginID(id string) error {
	switch {
	case id == "":
		return ErrEmptyPluginID
	case len(id) > MaxIdentifierLength:
		return fmt.Errorf("%w: %d > %d", ErrPluginIDTooLong, len(id), MaxIdentifierLength)
	case !isIdentifier(id):
		return fmt.Errorf("%w: %q", ErrInvalidPluginID, id)
	}
	return nil
}

// isIdentifier 检查字符集 [A-Za-z0-9_-]
func isIdentifier(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '_' || c == '-':
		default:
			return false
		}
	}
	return true
}

// Validate 校验地址各字段
func (a MessageAddress) Validate() error {
	if err := ValidatePluginID(a.PluginID); err != nil {
		return err
	}
	if a.Capability != "" {
		if len(a.Capability) > MaxIdentifierLength || !isIdentifier(a.Capability) {
			return fmt.Errorf("%w: %q", ErrInvalidCapability, a.Capability)
		}
	}
	if a.InstanceID != "" {
		if len(a.InstanceID) > MaxIdentifierLength || !isIdentifier(a.InstanceID) {
			return fmt.Errorf("%w: %q", ErrInvalidInstanceID, a.InstanceID)
		}
	}
	return nil
}

// WithCapability 返回带能力名的地址副本
func (a MessageAddress) WithCapability(capability string) MessageAddress {
	a.Capability = capability
	return a
}

// WithInstance 返回带实例 ID 的地址副本
func (a MessageAddress) WithInstance(instanceID string) MessageAddress {
	a.InstanceID = instanceID
	return a
}

// String 返回文本格式
func (a MessageAddress) String() string {
	var b strings.Builder
	b.Grow(len(a.PluginID) + len(a.Capability) + len(a.InstanceID) + 2)
	b.WriteString(a.PluginID)
	if a.Capability != "" {
		b.WriteString(capabilitySep)
		b.WriteString(a.Capability)
	}
	if a.InstanceID != "" {
		b.WriteString(instanceSep)
		b.WriteString(a.InstanceID)
	}
	return b.String()
}

// Matches 路由意义上的相等：比较 PluginID 与 Capability
func (a MessageAddress) Matches(other MessageAddress) bool {
	return a.PluginID == other.PluginID && a.Capability == other.Capability
}

// IsZero 是否为零值地址
func (a MessageAddress) IsZero() bool {
	return a == MessageAddress{}
}

// IsSystem 是否为 system 保留地址
func (a MessageAddress) IsSystem() bool {
	return a.PluginID == SystemPluginID
}

// IsBroadcast 是否为 broadcast 保留地址
func (a MessageAddress) IsBroadcast() bool {
	return a.PluginID == BroadcastPluginID
}

// IsCapabilityRoute 是否需要通过路由表解析目标（system@capability）
func (a MessageAddress) IsCapabilityRoute() bool {
	return a.IsSystem() && a.Capability != ""
}

// MarshalText 实现 encoding.TextMarshaler
func (a MessageAddress) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (a *MessageAddress) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
