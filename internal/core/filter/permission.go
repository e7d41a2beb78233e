package filter

import (
	"context"
	"slices"
	"time"

	"golang.org/x/time/rate"

	"github.com/dep2p/go-bridge/config"
	"github.com/dep2p/go-bridge/pkg/types"
)

// PermissionCheckerName 权限阶段名称
const PermissionCheckerName = "permission"

// grantAll 授权全部消息类型
const grantAll = "*"

// CapabilitySource 提供插件声明的能力（消息类型）
type CapabilitySource interface {
	TypesFor(pluginID string) []string
}

// PermissionChecker 校验目标插件是否声明了消息类型
//
// system 与 broadcast 目标不做校验。按能力路由的信封在调度器解析后
// To 携带原能力名，目标声明了该能力即视为授权。
type PermissionChecker struct {
	caps   CapabilitySource
	strict bool
	grants map[string][]string
	warn   rate.Sometimes
}

// NewPermissionChecker 创建权限阶段
func NewPermissionChecker(caps CapabilitySource, cfg config.PermissionConfig) *PermissionChecker {
	grants := make(map[string][]string, len(cfg.Grants))
	for id, list := range cfg.Grants {
		grants[id] = slices.Clone(list)
	}
	return &PermissionChecker{
		caps:   caps,
		strict: cfg.Mode == config.PermissionStrict,
		grants: grants,
		warn:   rate.Sometimes{First: 10, Interval: 5 * time.Second},
	}
}

// Name 实现 Stage
func (p *PermissionChecker) Name() string { return PermissionCheckerName }

// Process 实现 Stage
func (p *PermissionChecker) Process(ctx context.Context, env *types.MessageEnvelope) Verdict {
	to := env.Routing.To
	if to.IsSystem() || to.IsBroadcast() {
		return VerdictPass
	}
	if p.Allowed(to.PluginID, env.Metadata.MessageType, to.Capability) {
		return VerdictPass
	}
	p.warn.Do(func() {
		logger.WarnContext(ctx, "未授权消息被丢弃",
			"to", to.PluginID,
			"type", env.Metadata.MessageType,
			"from", env.Routing.From)
	})
	return VerdictFiltered
}

// Allowed 目标插件是否可以接收该消息类型
func (p *PermissionChecker) Allowed(pluginID, messageType, capability string) bool {
	var declared []string
	if p.caps != nil {
		declared = p.caps.TypesFor(pluginID)
	}
	granted := p.grants[pluginID]

	if slices.Contains(granted, grantAll) || slices.Contains(granted, messageType) {
		return true
	}
	if slices.Contains(declared, messageType) {
		return true
	}
	if capability != "" && slices.Contains(declared, capability) {
		return true
	}
	// 未声明任何能力的插件在 permissive 模式下放行
	return len(declared) == 0 && !p.strict
}
