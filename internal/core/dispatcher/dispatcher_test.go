package dispatcher

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-bridge/config"
	"github.com/dep2p/go-bridge/internal/core/filter"
	"github.com/dep2p/go-bridge/internal/core/pending"
	"github.com/dep2p/go-bridge/internal/core/queue"
	"github.com/dep2p/go-bridge/internal/core/registry"
	"github.com/dep2p/go-bridge/internal/core/routing"
	"github.com/dep2p/go-bridge/internal/core/stats"
	"github.com/dep2p/go-bridge/pkg/types"
)

type fixture struct {
	d        *Dispatcher
	queues   *queue.PriorityQueues
	registry *registry.Registry
	table    *routing.Table
	stats    *stats.Stats
	clock    *clock.Mock
}

func newFixture(t *testing.T, mutate func(*config.Config)) *fixture {
	t.Helper()
	cfg := config.NewConfig()
	if mutate != nil {
		mutate(cfg)
	}
	mock := clock.NewMock()
	mock.Set(time.Now())

	q := queue.New(cfg.Queue.Capacity)
	reg := registry.New(cfg.Registry, mock)
	tbl := routing.NewTable()
	pipe, err := filter.New(cfg.Filter, mock, tbl)
	require.NoError(t, err)
	st := stats.New()
	mon := stats.NewMonitor(st, tbl.KnownPlugins, cfg.Health)

	d := New(cfg.Dispatch, Deps{
		Queues: q, Registry: reg, Table: tbl, Pipeline: pipe,
		Stats: st, Monitor: mon, Clock: mock,
	})
	return &fixture{d: d, queues: q, registry: reg, table: tbl, stats: st, clock: mock}
}

func (f *fixture) envelope(t *testing.T, from string, to types.MessageAddress, msgType, body string) *types.MessageEnvelope {
	t.Helper()
	env, err := types.NewEnvelope(types.MustAddress(from), to, msgType, types.TextPayload(body), types.PriorityNormal)
	require.NoError(t, err)
	env.Metadata.CreatedAt = f.clock.Now()
	return env
}

func TestTick_DirectDelivery(t *testing.T) {
	f := newFixture(t, nil)
	ch, err := f.registry.Register("b")
	require.NoError(t, err)

	env := f.envelope(t, "a", types.MustAddress("b"), "ping", "hi")
	require.NoError(t, f.queues.Enqueue(env))
	f.clock.Add(5 * time.Millisecond)

	res := f.d.Tick(context.Background())
	assert.Equal(t, TickResult{Dispatched: 1, Delivered: 1}, res)

	got, ok := ch.Receiver().TryRecv()
	require.True(t, ok)
	assert.Same(t, env, got)
	assert.Equal(t, 1, got.Hops())
	assert.Equal(t, types.DefaultTTLHops-1, got.Routing.TTLHops)

	snap := f.stats.Snapshot()
	assert.Equal(t, uint64(1), snap.Sent)
	assert.Equal(t, 5*time.Millisecond, snap.AverageLatency)
	assert.Equal(t, 1, snap.ActiveChannels)
	assert.Equal(t, 1, snap.PeakQueueDepth)
}

// TestTick_CapabilityRouting B 按能力 search 发送，路由表选择 A
func TestTick_CapabilityRouting(t *testing.T) {
	f := newFixture(t, nil)
	chA, err := f.registry.Register("a")
	require.NoError(t, err)
	_, err = f.registry.Register("b")
	require.NoError(t, err)
	require.NoError(t, f.table.RegisterHandler("a", "search"))

	env := f.envelope(t, "b", types.CapabilityAddress("search"), "search", "query")
	require.NoError(t, f.queues.Enqueue(env))
	f.d.Tick(context.Background())

	got := chA.Receiver().Drain(0)
	require.Len(t, got, 1)
	assert.Equal(t, "search", got[0].Metadata.MessageType)
	assert.Equal(t, "a", got[0].Routing.To.PluginID)
	assert.Equal(t, "query", string(got[0].Payload.Content))
}

func TestTick_SystemRouteByMessageType(t *testing.T) {
	f := newFixture(t, nil)
	chA, _ := f.registry.Register("a")
	chSys, _ := f.registry.Register(types.SystemPluginID)
	require.NoError(t, f.table.RegisterHandler("a", "index"))

	require.NoError(t, f.queues.Enqueue(f.envelope(t, "b", types.SystemAddress(), "index", "1")))
	require.NoError(t, f.queues.Enqueue(f.envelope(t, "b", types.SystemAddress(), "shutdown", "2")))
	f.d.Tick(context.Background())

	assert.Equal(t, 1, chA.Receiver().Len())
	assert.Equal(t, 1, chSys.Receiver().Len())
}

func TestTick_NoHandler(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.queues.Enqueue(f.envelope(t, "b", types.CapabilityAddress("search"), "search", "q")))

	res := f.d.Tick(context.Background())
	assert.Equal(t, 1, res.Rejected)
	snap := f.stats.Snapshot()
	assert.Equal(t, uint64(1), snap.Failed)
	assert.Equal(t, uint64(1), snap.Count(types.ReasonNoHandler))
}

func TestTick_PluginNotFound(t *testing.T) {
	f := newFixture(t, nil)
	err := f.d.Dispatch(context.Background(), f.envelope(t, "a", types.MustAddress("ghost"), "ping", "x"))
	assert.ErrorIs(t, err, types.ErrPluginNotFound)
	assert.Equal(t, uint64(1), f.stats.Snapshot().Count(types.ReasonNotFound))
}

func TestTick_ExpiredTTL(t *testing.T) {
	f := newFixture(t, nil)
	_, _ = f.registry.Register("b")
	env := f.envelope(t, "a", types.MustAddress("b"), "ping", "x").WithTTL(0)

	err := f.d.Dispatch(context.Background(), env)
	assert.ErrorIs(t, err, types.ErrMessageExpired)
	assert.Equal(t, uint64(1), f.stats.Snapshot().Count(types.ReasonExpired))
}

func TestTick_RoutingLoop(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.Filter.Dedup.Enabled = false })
	_, _ = f.registry.Register("b")
	env := f.envelope(t, "a", types.MustAddress("b"), "ping", "x")

	require.NoError(t, f.d.Dispatch(context.Background(), env))
	// 同一信封再次投递到同一目标
	err := f.d.Dispatch(context.Background(), env)
	assert.ErrorIs(t, err, types.ErrRoutingLoop)
	assert.Equal(t, uint64(1), f.stats.Snapshot().Count(types.ReasonRoutingLoop))
}

func TestTick_MessageTimeout(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.Dispatch.MessageTimeout = config.Duration(time.Second) })
	ch, _ := f.registry.Register("b")
	require.NoError(t, f.queues.Enqueue(f.envelope(t, "a", types.MustAddress("b"), "ping", "x")))

	f.clock.Add(2 * time.Second)
	f.d.Tick(context.Background())

	assert.Equal(t, 0, ch.Receiver().Len())
	snap := f.stats.Snapshot()
	assert.Equal(t, uint64(1), snap.Dropped)
	assert.Equal(t, uint64(1), snap.Count(types.ReasonTimeout))
}

// TestTick_Dedup 窗口内相同消息只投递一次，去重计数加一
func TestTick_Dedup(t *testing.T) {
	f := newFixture(t, nil)
	ch, _ := f.registry.Register("b")
	for i := 0; i < 2; i++ {
		require.NoError(t, f.queues.Enqueue(f.envelope(t, "a", types.MustAddress("b"), "ping", "same")))
	}
	res := f.d.Tick(context.Background())

	assert.Equal(t, 1, res.Delivered)
	assert.Equal(t, 1, ch.Receiver().Len())
	snap := f.stats.Snapshot()
	assert.Equal(t, uint64(1), snap.Count(types.ReasonDeduplicated))
	assert.Zero(t, snap.Dropped)
	assert.Zero(t, snap.Failed)
}

func TestTick_RateLimited(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.Filter.RateLimit.MaxMessages = 2
		c.Filter.Dedup.Enabled = false
	})
	ch, _ := f.registry.Register("b")
	for i := 0; i < 3; i++ {
		require.NoError(t, f.queues.Enqueue(f.envelope(t, "a", types.MustAddress("b"), "ping", "x")))
	}
	f.d.Tick(context.Background())

	assert.Equal(t, 2, ch.Receiver().Len())
	snap := f.stats.Snapshot()
	assert.Equal(t, uint64(1), snap.Count(types.ReasonRateLimited))
	assert.Equal(t, uint64(1), snap.Dropped)
	assert.Zero(t, snap.Failed)
}

// TestTick_PrunesFilterState 窗口过后 tick 清理限流与去重状态
func TestTick_PrunesFilterState(t *testing.T) {
	f := newFixture(t, nil)
	ch, _ := f.registry.Register("b")

	const senders = 50
	for i := 0; i < senders; i++ {
		from := fmt.Sprintf("sender-%d", i)
		require.NoError(t, f.queues.Enqueue(f.envelope(t, from, types.MustAddress("b"), "ping", "x")))
	}
	f.d.Tick(context.Background())
	require.Equal(t, senders, ch.Receiver().Len())

	st, ok := f.d.pipeline.Stage(filter.RateLimiterName)
	require.True(t, ok)
	rl := st.(*filter.RateLimiter)
	st, ok = f.d.pipeline.Stage(filter.DeduplicatorName)
	require.True(t, ok)
	dedup := st.(*filter.Deduplicator)
	assert.Equal(t, senders, rl.Senders())
	assert.Equal(t, senders, dedup.Len())

	// 超过限流窗口与去重窗口
	f.clock.Add(config.DefaultFilterConfig().Dedup.Window.Duration() + time.Second)
	f.d.Tick(context.Background())

	assert.Zero(t, rl.Senders())
	assert.Zero(t, dedup.Len())
}

func TestTick_SanitizedCounted(t *testing.T) {
	f := newFixture(t, nil)
	ch, _ := f.registry.Register("b")
	require.NoError(t, f.queues.Enqueue(f.envelope(t, "a", types.MustAddress("b"), "note", "<script>x()</script>ok")))
	f.d.Tick(context.Background())

	got, ok := ch.Receiver().TryRecv()
	require.True(t, ok)
	assert.Equal(t, "ok", string(got.Payload.Content))
	assert.Equal(t, uint64(1), f.stats.Snapshot().Count(types.ReasonSanitized))
}

func TestTick_Broadcast(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.queues.Enqueue(f.envelope(t, "a", types.BroadcastAddress(), "announce", "x")))
	f.d.Tick(context.Background())

	_, ok := f.registry.BroadcastReceiver().TryRecv()
	assert.True(t, ok)
}

// TestTick_BatchSize 每个 tick 最多处理 BatchSize 条，高优先级先出
func TestTick_BatchSize(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.Dispatch.BatchSize = 2
		c.Filter.Dedup.Enabled = false
	})
	ch, _ := f.registry.Register("b")
	low := f.envelope(t, "a", types.MustAddress("b"), "ping", "low")
	low.Priority = types.PriorityLow
	require.NoError(t, f.queues.Enqueue(low))
	for i := 0; i < 2; i++ {
		env := f.envelope(t, "a", types.MustAddress("b"), "ping", "high")
		env.Priority = types.PriorityHigh
		require.NoError(t, f.queues.Enqueue(env))
	}

	res := f.d.Tick(context.Background())
	assert.Equal(t, 2, res.Dispatched)
	for _, env := range ch.Receiver().Drain(0) {
		assert.Equal(t, types.PriorityHigh, env.Priority)
	}
	assert.Equal(t, 1, f.queues.Len())

	f.d.Tick(context.Background())
	assert.Equal(t, 0, f.queues.Len())
}

// TestTick_Pollers 完成的挂起操作在 tick 中回调并把结果入队
func TestTick_Pollers(t *testing.T) {
	f := newFixture(t, nil)
	ch, _ := f.registry.Register("b")

	set := pending.NewSet(func(body string, err error) {
		require.NoError(t, err)
		require.NoError(t, f.queues.Enqueue(f.envelope(t, "worker", types.MustAddress("b"), "result", body)))
	})
	set.Add(pending.PollFunc[string](func() (string, bool, error) { return "done", true, nil }))
	f.d.AddPoller(set)

	res := f.d.Tick(context.Background())
	assert.Equal(t, 1, res.Polled)
	assert.Equal(t, 1, res.Delivered)
	got, ok := ch.Receiver().TryRecv()
	require.True(t, ok)
	assert.Equal(t, "done", string(got.Payload.Content))
}

func TestRunner(t *testing.T) {
	mock := clock.NewMock()
	ticks := make(chan struct{}, 10)
	r := NewRunner(func(context.Context) { ticks <- struct{}{} }, mock, 16*time.Millisecond)

	r.Start()
	r.Start()
	assert.True(t, r.Running())

	// 等待 goroutine 创建 ticker 后推进时钟
	require.Eventually(t, func() bool {
		mock.Add(16 * time.Millisecond)
		select {
		case <-ticks:
			return true
		default:
			return false
		}
	}, time.Second, time.Millisecond)

	require.NoError(t, r.Stop(context.Background()))
	assert.False(t, r.Running())
	assert.NoError(t, r.Stop(context.Background()))
}

func TestRunner_ZeroInterval(t *testing.T) {
	r := NewRunner(func(context.Context) {}, clock.NewMock(), 0)
	r.Start()
	assert.False(t, r.Running())
}
