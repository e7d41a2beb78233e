package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/multierr"

	"github.com/dep2p/go-bridge/config"
	"github.com/dep2p/go-bridge/internal/core/dispatcher"
	"github.com/dep2p/go-bridge/internal/core/eventbus"
	"github.com/dep2p/go-bridge/internal/core/filter"
	"github.com/dep2p/go-bridge/internal/core/queue"
	"github.com/dep2p/go-bridge/internal/core/registry"
	"github.com/dep2p/go-bridge/internal/core/routing"
	"github.com/dep2p/go-bridge/internal/core/stats"
	"github.com/dep2p/go-bridge/pkg/interfaces"
	"github.com/dep2p/go-bridge/pkg/lib/log"
	"github.com/dep2p/go-bridge/pkg/types"
)

var logger = log.Logger("bridge")

// 编译期接口检查
var _ interfaces.Bridge = (*Bridge)(nil)

// ════════════════════════════════════════════════════════════════════════════
//                              状态
// ════════════════════════════════════════════════════════════════════════════

// State 总线生命周期状态
type State int

const (
	// StateIdle 已创建，组件可用，内部驱动未启动
	StateIdle State = iota
	// StateRunning 已启动
	StateRunning
	// StateStopped 已停止
	StateStopped
	// StateClosed 已关闭
	StateClosed
)

// String 返回状态字符串
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              Bridge 结构
// ════════════════════════════════════════════════════════════════════════════

// Bridge 服务总线门面
//
// 组件在 New 时即构造完成，Register / Enqueue / Tick 无需 Start 即可使用；
// Start 仅启动内部驱动（未设置 WithManualTick 且 tick_interval > 0 时）。
type Bridge struct {
	cfg   *config.Config
	clock clock.Clock
	app   *fx.App

	// 内部组件（由 Fx 注入）
	queues     *queue.PriorityQueues
	registry   *registry.Registry
	table      *routing.Table
	pipeline   *filter.Pipeline
	stats      *stats.Stats
	monitor    *stats.Monitor
	collector  *stats.Collector
	dispatcher *dispatcher.Dispatcher
	runner     *dispatcher.Runner
	events     *eventbus.Bus

	// tickMu 串行化 tick、直接投递、注册变更与诊断快照，
	// 注册表与路由表只在两个 tick 之间变化
	tickMu sync.Mutex
	last   dispatcher.TickResult

	stateMu sync.RWMutex
	state   State
}

// New 创建总线（不启动内部驱动）
func New(opts ...Option) (*Bridge, error) {
	o := newOptions()
	if err := o.apply(opts...); err != nil {
		return nil, fmt.Errorf("apply options: %w", err)
	}
	cfg, err := o.resolveConfig()
	if err != nil {
		return nil, err
	}
	clk := o.clock
	if clk == nil {
		clk = clock.New()
	}

	b := &Bridge{cfg: cfg, clock: clk, state: StateIdle}
	app, err := buildFxApp(cfg, clk, o, b)
	if err != nil {
		return nil, fmt.Errorf("build bridge: %w", err)
	}
	b.app = app

	logger.Info("总线已创建",
		"version", Version,
		"queue_capacity", cfg.Queue.Capacity,
		"batch_size", cfg.Dispatch.BatchSize,
		"self_driven", b.runner != nil)
	return b, nil
}

// Start 创建并启动总线
func Start(ctx context.Context, opts ...Option) (*Bridge, error) {
	b, err := New(opts...)
	if err != nil {
		return nil, err
	}
	if err := b.Start(ctx); err != nil {
		_ = b.Close()
		return nil, err
	}
	return b, nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              生命周期
// ════════════════════════════════════════════════════════════════════════════

// Start 启动总线
func (b *Bridge) Start(ctx context.Context) error {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()

	switch b.state {
	case StateRunning:
		return ErrAlreadyStarted
	case StateClosed:
		return ErrClosed
	}

	if err := b.app.Start(ctx); err != nil {
		return fmt.Errorf("start bridge: %w", err)
	}
	b.state = StateRunning
	logger.Info("总线已启动", "self_driven", b.runner != nil)
	return nil
}

// Stop 停止总线
//
// 停止内部驱动并关闭所有插件通道。已停止的总线不能再次启动。
func (b *Bridge) Stop(ctx context.Context) error {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()

	if b.state != StateRunning {
		return ErrNotStarted
	}
	err := b.app.Stop(ctx)
	b.state = StateStopped
	logger.Info("总线已停止")
	return err
}

// Close 关闭总线，重复调用安全
func (b *Bridge) Close() error {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()

	if b.state == StateClosed {
		return nil
	}

	var err error
	if b.state == StateRunning {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = multierr.Append(err, b.app.Stop(ctx))
		cancel()
	} else {
		b.registry.Close()
		b.events.Close()
	}
	b.state = StateClosed
	return err
}

// State 返回当前状态
func (b *Bridge) State() State {
	b.stateMu.RLock()
	defer b.stateMu.RUnlock()
	return b.state
}

func (b *Bridge) closed() bool {
	s := b.State()
	return s == StateClosed || s == StateStopped
}

// ════════════════════════════════════════════════════════════════════════════
//                              插件注册
// ════════════════════════════════════════════════════════════════════════════

// Register 注册插件并返回其接收端
func (b *Bridge) Register(pluginID string) (interfaces.Receiver, error) {
	if b.closed() {
		return nil, ErrClosed
	}
	b.tickMu.Lock()
	defer b.tickMu.Unlock()

	ch, err := b.registry.Register(pluginID)
	if err != nil {
		return nil, err
	}
	b.stats.SetActiveChannels(b.registry.Len())
	eventbus.Emit(b.events, types.EvtPluginRegistered{
		BaseEvent: b.event(types.EventTypePluginRegistered),
		PluginID:  pluginID,
	})
	return ch.Receiver(), nil
}

// RegisterHandler 声明插件处理的消息类型
//
// 插件必须已注册。
func (b *Bridge) RegisterHandler(pluginID, messageType string) error {
	b.tickMu.Lock()
	defer b.tickMu.Unlock()

	if !b.registry.Has(pluginID) {
		return fmt.Errorf("%w: %s", types.ErrPluginNotFound, pluginID)
	}
	return b.table.RegisterHandler(pluginID, messageType)
}

// Unregister 注销插件，清理通道、路由表与限流状态
func (b *Bridge) Unregister(pluginID string) bool {
	b.tickMu.Lock()
	defer b.tickMu.Unlock()

	ok := b.registry.Unregister(pluginID)
	removed := b.table.UnregisterPlugin(pluginID)
	if st, found := b.pipeline.Stage(filter.RateLimiterName); found {
		if rl, isRL := st.(*filter.RateLimiter); isRL {
			rl.Forget(pluginID)
		}
	}
	b.stats.SetActiveChannels(b.registry.Len())
	if ok {
		logger.Info("插件已注销", "plugin", pluginID, "capabilities", len(removed))
		eventbus.Emit(b.events, types.EvtPluginUnregistered{
			BaseEvent:    b.event(types.EventTypePluginUnregistered),
			PluginID:     pluginID,
			Capabilities: removed,
		})
	}
	return ok
}

// Receiver 返回已注册插件的接收端
func (b *Bridge) Receiver(pluginID string) (interfaces.Receiver, bool) {
	ch, ok := b.registry.Get(pluginID)
	if !ok {
		return nil, false
	}
	return ch.Receiver(), true
}

// BroadcastReceiver 返回共享广播通道的接收端
func (b *Bridge) BroadcastReceiver() interfaces.Receiver {
	return b.registry.BroadcastReceiver()
}

// Handlers 返回处理某消息类型的插件（注册顺序）
func (b *Bridge) Handlers(messageType string) []string {
	b.tickMu.Lock()
	defer b.tickMu.Unlock()
	return b.table.Handlers(messageType)
}

// Routes 返回路由表快照：消息类型 → 处理插件
func (b *Bridge) Routes() map[string][]string {
	b.tickMu.Lock()
	defer b.tickMu.Unlock()
	return b.table.Snapshot()
}

// ════════════════════════════════════════════════════════════════════════════
//                              发送
// ════════════════════════════════════════════════════════════════════════════

// NewEnvelope 使用总线时钟与配置的默认跳数创建信封
func (b *Bridge) NewEnvelope(from, to types.MessageAddress, messageType string, payload types.Payload, priority types.Priority) (*types.MessageEnvelope, error) {
	env, err := types.NewEnvelope(from, to, messageType, payload, priority)
	if err != nil {
		return nil, err
	}
	env.Metadata.CreatedAt = b.clock.Now()
	env.Routing.TTLHops = b.cfg.Dispatch.DefaultTTLHops
	return env, nil
}

// Enqueue 将信封放入优先级队列，由后续 tick 投递
//
// 队列满时计为 queue_full 丢弃并返回 ErrResourceExhausted。
func (b *Bridge) Enqueue(env *types.MessageEnvelope) error {
	if b.closed() {
		return ErrClosed
	}
	if env == nil {
		return fmt.Errorf("enqueue: nil envelope")
	}
	if err := b.queues.Enqueue(env); err != nil {
		b.stats.RecordDrop(types.ReasonQueueFull)
		logger.Debug("队列已满，丢弃信封", "id", env.Metadata.ID, "priority", env.Priority)
		return err
	}
	return nil
}

// SendDirect 绕过队列立即投递
//
// 信封同样经过过滤管道与路由跳检查，返回投递结果。
func (b *Bridge) SendDirect(env *types.MessageEnvelope) error {
	if b.closed() {
		return ErrClosed
	}
	if env == nil {
		return fmt.Errorf("send direct: nil envelope")
	}
	b.tickMu.Lock()
	defer b.tickMu.Unlock()
	return b.dispatcher.Dispatch(context.Background(), env)
}

// Broadcast 立即投递到共享广播通道
func (b *Bridge) Broadcast(env *types.MessageEnvelope) error {
	if env == nil {
		return fmt.Errorf("broadcast: nil envelope")
	}
	env.Routing.To = types.BroadcastAddress()
	return b.SendDirect(env)
}

// ════════════════════════════════════════════════════════════════════════════
//                              调度
// ════════════════════════════════════════════════════════════════════════════

// Tick 执行一次调度：轮询挂起操作、出队一批、过滤并投递
func (b *Bridge) Tick() {
	if b.closed() {
		return
	}
	b.tick(context.Background())
}

func (b *Bridge) tick(ctx context.Context) {
	b.tickMu.Lock()
	defer b.tickMu.Unlock()
	b.last = b.dispatcher.Tick(ctx)
}

// TickResult 单个 tick 的结果
type TickResult = dispatcher.TickResult

// LastTick 返回最近一次 tick 的结果
func (b *Bridge) LastTick() TickResult {
	b.tickMu.Lock()
	defer b.tickMu.Unlock()
	return b.last
}

// AddPoller 登记挂起操作集合，每个 tick 开始时轮询
//
// 完成回调运行在 tick 内，可以 Enqueue，但不能调用注册与诊断方法。
func (b *Bridge) AddPoller(p interfaces.Poller) {
	b.dispatcher.AddPoller(p)
}

// QueueLen 返回队列中待投递的信封数
func (b *Bridge) QueueLen() int {
	return b.queues.Len()
}

// ════════════════════════════════════════════════════════════════════════════
//                              诊断
// ════════════════════════════════════════════════════════════════════════════

// Stats 返回统计快照
func (b *Bridge) Stats() types.MessageStats {
	b.tickMu.Lock()
	defer b.tickMu.Unlock()
	return b.stats.Snapshot()
}

// ResetStats 清零统计（保留活跃通道数）
func (b *Bridge) ResetStats() {
	b.tickMu.Lock()
	defer b.tickMu.Unlock()
	b.stats.Reset()
}

// States 返回全部插件通道状态
func (b *Bridge) States() []types.ChannelState {
	b.tickMu.Lock()
	defer b.tickMu.Unlock()
	return b.registry.States()
}

// ResetRegistry 关闭全部插件通道并清空路由表，返回移除的通道数
func (b *Bridge) ResetRegistry() int {
	b.tickMu.Lock()
	defer b.tickMu.Unlock()

	n := b.registry.Reset()
	b.table.Reset()
	b.stats.SetActiveChannels(0)
	logger.Info("注册表已重置", "removed", n)
	eventbus.Emit(b.events, types.EvtRegistryReset{
		BaseEvent: b.event(types.EventTypeRegistryReset),
		Removed:   n,
	})
	return n
}

// Health 返回最近一次监控 tick 的健康评估
func (b *Bridge) Health() types.Health {
	return b.monitor.Health()
}

// CheckHealth 立即执行一次健康评估
func (b *Bridge) CheckHealth() types.Health {
	return b.monitor.Tick(b.clock.Now())
}

// Collector 返回 Prometheus 收集器，由宿主注册到自己的注册表
func (b *Bridge) Collector() prometheus.Collector {
	return b.collector
}

// Config 返回生效的配置
func (b *Bridge) Config() *config.Config {
	return b.cfg
}

// ════════════════════════════════════════════════════════════════════════════
//                              管理事件
// ════════════════════════════════════════════════════════════════════════════

// Subscribe 订阅管理事件（types.EvtPluginRegistered、types.EvtHealthChanged 等）
//
// buffer<=0 时使用默认缓冲区。健康事件会把最近一次切换重放给新订阅者。
func Subscribe[T any](b *Bridge, buffer int) (interfaces.Subscription[T], error) {
	var opts []eventbus.Option
	if buffer > 0 {
		opts = append(opts, eventbus.BufSize(buffer))
	}
	sub, err := eventbus.Subscribe[T](b.events, opts...)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (b *Bridge) event(eventType string) types.BaseEvent {
	return types.BaseEvent{EventType: eventType, Time: b.clock.Now()}
}
