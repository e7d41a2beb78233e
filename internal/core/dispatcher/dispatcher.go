package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/time/rate"

	"github.com/dep2p/go-bridge/config"
	"github.com/dep2p/go-bridge/internal/core/filter"
	"github.com/dep2p/go-bridge/internal/core/queue"
	"github.com/dep2p/go-bridge/internal/core/registry"
	"github.com/dep2p/go-bridge/internal/core/routing"
	"github.com/dep2p/go-bridge/internal/core/stats"
	"github.com/dep2p/go-bridge/pkg/interfaces"
	"github.com/dep2p/go-bridge/pkg/lib/log"
	"github.com/dep2p/go-bridge/pkg/types"
)

var logger = log.Logger("core/dispatcher")

// pruneInterval 过滤阶段过期状态的清理间隔
const pruneInterval = time.Second

// TickResult 单个 tick 的结果
type TickResult struct {
	// Polled 完成的挂起操作数
	Polled int

	// Dispatched 从队列取出的信封数
	Dispatched int

	// Delivered 成功投递数
	Delivered int

	// Rejected 被丢弃、失败或去重的信封数
	Rejected int
}

// Dispatcher 调度器
type Dispatcher struct {
	queues   *queue.PriorityQueues
	registry *registry.Registry
	table    *routing.Table
	pipeline *filter.Pipeline
	stats    *stats.Stats
	monitor  *stats.Monitor
	clock    clock.Clock

	batchSize int
	timeout   time.Duration

	pollersMu sync.Mutex
	pollers   []interfaces.Poller

	lastPrune time.Time

	failWarn rate.Sometimes
}

// Deps 调度器依赖
type Deps struct {
	Queues   *queue.PriorityQueues
	Registry *registry.Registry
	Table    *routing.Table
	Pipeline *filter.Pipeline
	Stats    *stats.Stats
	Monitor  *stats.Monitor
	Clock    clock.Clock
}

// New 创建调度器（Monitor 与 Clock 可为空）
func New(cfg config.DispatchConfig, deps Deps) *Dispatcher {
	clk := deps.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Dispatcher{
		queues:    deps.Queues,
		registry:  deps.Registry,
		table:     deps.Table,
		pipeline:  deps.Pipeline,
		stats:     deps.Stats,
		monitor:   deps.Monitor,
		clock:     clk,
		batchSize: cfg.BatchSize,
		timeout:   cfg.MessageTimeout.Duration(),
		failWarn:  rate.Sometimes{First: 5, Interval: 10 * time.Second},
	}
}

// AddPoller 登记挂起操作集合
func (d *Dispatcher) AddPoller(p interfaces.Poller) {
	d.pollersMu.Lock()
	defer d.pollersMu.Unlock()
	d.pollers = append(d.pollers, p)
}

// BatchSize 每个 tick 的批次大小
func (d *Dispatcher) BatchSize() int {
	return d.batchSize
}

// Tick 执行一次调度
func (d *Dispatcher) Tick(ctx context.Context) TickResult {
	var res TickResult

	d.pollersMu.Lock()
	pollers := append([]interfaces.Poller(nil), d.pollers...)
	d.pollersMu.Unlock()
	for _, p := range pollers {
		res.Polled += p.Poll()
	}

	d.stats.ObserveQueueDepth(d.queues.Len())

	batch := d.queues.Drain(d.batchSize)
	res.Dispatched = len(batch)
	for _, env := range batch {
		if err := d.Dispatch(ctx, env); err != nil {
			res.Rejected++
		} else {
			res.Delivered++
		}
	}

	d.stats.SetActiveChannels(d.registry.Len())
	now := d.clock.Now()
	if d.monitor != nil {
		d.monitor.MaybeTick(now)
	}
	if now.Sub(d.lastPrune) >= pruneInterval {
		d.lastPrune = now
		if n := d.pipeline.Prune(); n > 0 {
			logger.Debug("过滤状态已清理", "removed", n)
		}
	}
	return res
}

// Dispatch 对单个信封执行 超时检查 → 目标解析 → 过滤 → 路由跳 → 投递
//
// 每个终结结果都计入统计。返回 nil 表示已投递。
func (d *Dispatcher) Dispatch(ctx context.Context, env *types.MessageEnvelope) error {
	now := d.clock.Now()
	if from := env.Routing.From; !from.IsSystem() && !from.IsBroadcast() {
		d.stats.NoteSender(from.PluginID)
	}

	if env.TimedOut(now, d.timeout) {
		d.stats.RecordDrop(types.ReasonTimeout)
		logger.Debug("信封超时丢弃", "id", env.Metadata.ID, "age", env.Age(now))
		return fmt.Errorf("%w: %s", ErrTimedOut, env.Metadata.ID)
	}

	if err := d.resolve(env); err != nil {
		d.fail(env, types.ReasonNoHandler, err)
		return err
	}

	switch v := d.pipeline.Process(ctx, env); v {
	case filter.VerdictPass:
	case filter.VerdictDuplicate:
		d.stats.RecordDuplicate()
		return ErrDuplicate
	case filter.VerdictRateLimited:
		d.stats.RecordDrop(v.Reason())
		return ErrRateLimited
	default:
		d.stats.RecordDrop(v.Reason())
		return ErrFiltered
	}
	if env.Flags.Has(types.FlagSanitized) {
		d.stats.Note(types.ReasonSanitized)
	}

	if err := env.AddHop(env.Routing.To); err != nil {
		reason := types.ReasonExpired
		if errors.Is(err, types.ErrRoutingLoop) {
			reason = types.ReasonRoutingLoop
		}
		d.fail(env, reason, err)
		return err
	}

	var err error
	if env.Routing.To.IsBroadcast() {
		err = d.registry.Broadcast(env)
	} else {
		err = d.registry.SendTo(env.Routing.To.PluginID, env)
	}
	if err != nil {
		reason := types.ReasonCommunication
		if errors.Is(err, types.ErrPluginNotFound) {
			reason = types.ReasonNotFound
		}
		d.fail(env, reason, err)
		return err
	}

	d.stats.RecordSuccess(d.clock.Now().Sub(env.Metadata.CreatedAt))
	return nil
}

// resolve 解析 system 目标
//
// system@capability 按能力选择处理者；不带能力的 system 按消息类型选择，
// 没有处理者时投递给注册为 system 的宿主通道。解析后 To 指向具体插件，
// 保留原能力名供权限检查使用。
func (d *Dispatcher) resolve(env *types.MessageEnvelope) error {
	to := env.Routing.To
	if !to.IsSystem() {
		return nil
	}

	key := to.Capability
	if key == "" {
		key = env.Metadata.MessageType
	}
	handler, ok := d.table.NextHandler(key)
	if !ok {
		if !to.IsCapabilityRoute() && d.registry.Has(types.SystemPluginID) {
			return nil
		}
		return fmt.Errorf("%w: %s", types.ErrNoHandler, key)
	}
	env.Routing.To = types.MessageAddress{PluginID: handler, Capability: to.Capability}
	return nil
}

// fail 记录失败并节流告警
func (d *Dispatcher) fail(env *types.MessageEnvelope, reason types.Reason, err error) {
	d.stats.RecordFailure(reason)
	logger.Debug("信封投递失败", "id", env.Metadata.ID, "reason", reason, "err", err)
	d.failWarn.Do(func() {
		logger.Warn("投递失败",
			"reason", reason,
			"to", env.Routing.To,
			"type", env.Metadata.MessageType,
			"err", err)
	})
}
