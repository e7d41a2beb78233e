package config

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// ════════════════════════════════════════════════════════════════════════════
//                              过滤管道
// ════════════════════════════════════════════════════════════════════════════

// FilterConfig 过滤管道配置
//
// 阶段顺序固定：限流 → 权限 → 内容净化 → 去重 → 转换。
type FilterConfig struct {
	RateLimit  RateLimitConfig  `json:"rate_limit" yaml:"rate_limit"`
	Permission PermissionConfig `json:"permission" yaml:"permission"`
	Sanitize   SanitizeConfig   `json:"sanitize" yaml:"sanitize"`
	Dedup      DedupConfig      `json:"dedup" yaml:"dedup"`
	Transform  TransformConfig  `json:"transform" yaml:"transform"`
}

// RateLimitConfig 每插件滑动窗口限流
type RateLimitConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// MaxMessages 窗口内允许的消息数 N
	MaxMessages int `json:"max_messages" yaml:"max_messages"`

	// Window 滑动窗口 W
	Window Duration `json:"window" yaml:"window"`
}

// 权限模式
const (
	// PermissionPermissive 目标未声明任何能力时放行
	PermissionPermissive = "permissive"
	// PermissionStrict 目标必须声明消息类型
	PermissionStrict = "strict"
)

// PermissionConfig 权限校验配置
type PermissionConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Mode permissive 或 strict
	Mode string `json:"mode" yaml:"mode"`

	// Grants 额外授权：插件 ID → 允许接收的消息类型（"*" 表示全部）
	Grants map[string][]string `json:"grants,omitempty" yaml:"grants,omitempty"`
}

// 净化模式
const (
	// SanitizeStrip 剥离不安全片段
	SanitizeStrip = "strip"
	// SanitizeFlag 仅打标记
	SanitizeFlag = "flag"
	// SanitizeReject 丢弃消息
	SanitizeReject = "reject"
)

// SanitizeConfig 内容净化配置
type SanitizeConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Mode strip、flag 或 reject
	Mode string `json:"mode" yaml:"mode"`
}

// DedupConfig 去重配置
type DedupConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Window 去重窗口
	Window Duration `json:"window" yaml:"window"`

	// MaxEntries 滚动哈希集合上限（0 使用默认上限）
	MaxEntries int `json:"max_entries" yaml:"max_entries"`
}

// TransformConfig 转换配置
type TransformConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// CompressThreshold 负载超过该字节数时 zstd 压缩（0 = 不压缩）
	CompressThreshold int `json:"compress_threshold" yaml:"compress_threshold"`

	// NormalizeMsgpack 将 MessagePack 负载转换为 JSON
	NormalizeMsgpack bool `json:"normalize_msgpack" yaml:"normalize_msgpack"`

	// CompactJSON 压缩 JSON 空白
	CompactJSON bool `json:"compact_json" yaml:"compact_json"`
}

// DefaultFilterConfig 返回默认过滤配置
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		RateLimit: RateLimitConfig{
			Enabled:     true,
			MaxMessages: 1000,                   // 每插件每窗口 1000 条
			Window:      Duration(time.Second), // 1 秒滑动窗口
		},
		Permission: PermissionConfig{
			Enabled: true,
			Mode:    PermissionPermissive,
		},
		Sanitize: SanitizeConfig{
			Enabled: true,
			Mode:    SanitizeStrip,
		},
		Dedup: DedupConfig{
			Enabled:    true,
			Window:     Duration(5 * time.Second),
			MaxEntries: 100000,
		},
		Transform: TransformConfig{
			Enabled:           true,
			CompressThreshold: 64 << 10, // 64 KB
			NormalizeMsgpack:  false,
			CompactJSON:       true,
		},
	}
}

// Validate 验证过滤配置
func (c FilterConfig) Validate() error {
	var err error
	if c.RateLimit.Enabled {
		if c.RateLimit.MaxMessages <= 0 {
			err = multierr.Append(err, errors.New("rate limit max messages must be positive"))
		}
		if c.RateLimit.Window <= 0 {
			err = multierr.Append(err, errors.New("rate limit window must be positive"))
		}
	}
	if c.Permission.Enabled {
		switch c.Permission.Mode {
		case PermissionPermissive, PermissionStrict:
		default:
			err = multierr.Append(err, fmt.Errorf("unknown permission mode %q", c.Permission.Mode))
		}
	}
	if c.Sanitize.Enabled {
		switch c.Sanitize.Mode {
		case SanitizeStrip, SanitizeFlag, SanitizeReject:
		default:
			err = multierr.Append(err, fmt.Errorf("unknown sanitize mode %q", c.Sanitize.Mode))
		}
	}
	if c.Dedup.Enabled {
		if c.Dedup.Window <= 0 {
			err = multierr.Append(err, errors.New("dedup window must be positive"))
		}
		if c.Dedup.MaxEntries < 0 {
			err = multierr.Append(err, errors.New("dedup max entries must not be negative"))
		}
	}
	if c.Transform.Enabled && c.Transform.CompressThreshold < 0 {
		err = multierr.Append(err, errors.New("transform compress threshold must not be negative"))
	}
	return err
}
