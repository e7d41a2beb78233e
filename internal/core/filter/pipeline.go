package filter

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-bridge/config"
	"github.com/dep2p/go-bridge/pkg/lib/log"
	"github.com/dep2p/go-bridge/pkg/types"
)

var logger = log.Logger("core/filter")

// ============================================================================
//                              Verdict
// ============================================================================

// Verdict 阶段判定
type Verdict int

const (
	// VerdictPass 放行
	VerdictPass Verdict = iota
	// VerdictRateLimited 超过限流
	VerdictRateLimited
	// VerdictFiltered 权限或内容过滤
	VerdictFiltered
	// VerdictDuplicate 重复消息
	VerdictDuplicate
)

// String 返回判定名称
func (v Verdict) String() string {
	switch v {
	case VerdictPass:
		return "pass"
	case VerdictRateLimited:
		return "rate_limited"
	case VerdictFiltered:
		return "filtered"
	case VerdictDuplicate:
		return "duplicate"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

// Reason 返回判定对应的统计原因（放行时为空）
func (v Verdict) Reason() types.Reason {
	switch v {
	case VerdictRateLimited:
		return types.ReasonRateLimited
	case VerdictFiltered:
		return types.ReasonFiltered
	case VerdictDuplicate:
		return types.ReasonDeduplicated
	default:
		return ""
	}
}

// ============================================================================
//                              Stage / Pipeline
// ============================================================================

// Stage 过滤阶段
//
// 阶段可以修改信封（负载、标记），信封在调度期间由调度器独占。
type Stage interface {
	Name() string
	Process(ctx context.Context, env *types.MessageEnvelope) Verdict
}

// Pruner 持有按时间过期状态的阶段
//
// 调度器在 tick 中周期调用 Prune，返回移除的条目数。
type Pruner interface {
	Prune() int
}

// Pipeline 按顺序执行阶段
type Pipeline struct {
	stages []Stage
}

// NewPipeline 用给定阶段构造管道
func NewPipeline(stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages}
}

// New 按配置构造标准五阶段管道
//
// caps 提供目标插件声明的能力集合，通常是路由表。
func New(cfg config.FilterConfig, clk clock.Clock, caps CapabilitySource) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("filter config: %w", err)
	}
	if clk == nil {
		clk = clock.New()
	}

	var stages []Stage
	if cfg.RateLimit.Enabled {
		stages = append(stages, NewRateLimiter(cfg.RateLimit.MaxMessages, cfg.RateLimit.Window.Duration(), clk))
	}
	if cfg.Permission.Enabled {
		stages = append(stages, NewPermissionChecker(caps, cfg.Permission))
	}
	if cfg.Sanitize.Enabled {
		stages = append(stages, NewSanitizer(cfg.Sanitize.Mode))
	}
	if cfg.Dedup.Enabled {
		dedup, err := NewDeduplicator(cfg.Dedup.Window.Duration(), cfg.Dedup.MaxEntries, clk)
		if err != nil {
			return nil, err
		}
		stages = append(stages, dedup)
	}
	if cfg.Transform.Enabled {
		stages = append(stages, NewTransformer(cfg.Transform))
	}
	return NewPipeline(stages...), nil
}

// Process 依次执行阶段，第一个非放行判定短路返回
func (p *Pipeline) Process(ctx context.Context, env *types.MessageEnvelope) Verdict {
	for _, stage := range p.stages {
		if v := stage.Process(ctx, env); v != VerdictPass {
			logger.DebugContext(ctx, "信封被过滤",
				"stage", stage.Name(),
				"verdict", v,
				"id", log.TruncateID(env.Metadata.ID, 8),
				"from", env.Routing.From)
			return v
		}
	}
	return VerdictPass
}

// Stages 返回阶段名称
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

// Stage 按名称查找阶段
func (p *Pipeline) Stage(name string) (Stage, bool) {
	for _, s := range p.stages {
		if s.Name() == name {
			return s, true
		}
	}
	return nil, false
}

// Prune 清理各阶段的过期状态，返回移除的条目总数
func (p *Pipeline) Prune() int {
	removed := 0
	for _, s := range p.stages {
		if pr, ok := s.(Pruner); ok {
			removed += pr.Prune()
		}
	}
	return removed
}
