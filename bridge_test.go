package bridge

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-bridge/internal/core/pending"
	"github.com/dep2p/go-bridge/pkg/types"
)

// newTestBridge 创建宿主驱动、使用 mock 时钟的总线
func newTestBridge(t *testing.T, opts ...Option) (*Bridge, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	mock.Set(time.Now())

	b, err := New(append([]Option{WithManualTick(), WithClock(mock)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b, mock
}

func envelope(t *testing.T, b *Bridge, from string, to types.MessageAddress, msgType, body string) *types.MessageEnvelope {
	t.Helper()
	env, err := b.NewEnvelope(types.MustAddress(from), to, msgType, types.TextPayload(body), types.PriorityNormal)
	require.NoError(t, err)
	return env
}

// ════════════════════════════════════════════════════════════════════════════
//                              路由
// ════════════════════════════════════════════════════════════════════════════

func TestBridge_CapabilityRouting(t *testing.T) {
	b, _ := newTestBridge(t)

	rxA, err := b.Register("alpha")
	require.NoError(t, err)
	require.NoError(t, b.RegisterHandler("alpha", "search"))
	rxB, err := b.Register("beta")
	require.NoError(t, err)

	require.NoError(t, b.Enqueue(envelope(t, b, "beta", types.CapabilityAddress("search"), "search", "needle")))
	b.Tick()

	assert.Equal(t, 1, rxA.Len())
	assert.Equal(t, 0, rxB.Len())
	msg, ok := rxA.TryRecv()
	require.True(t, ok)
	assert.Equal(t, "search", msg.Metadata.MessageType)
	assert.Equal(t, "alpha", msg.Routing.To.PluginID)

	res := b.LastTick()
	assert.Equal(t, 1, res.Dispatched)
	assert.Equal(t, 1, res.Delivered)

	snap := b.Stats()
	assert.EqualValues(t, 1, snap.Sent)
	assert.EqualValues(t, 1, snap.Processed)
	assert.Equal(t, 2, snap.ActiveChannels)
}

// TestBridge_UnregisterClearsRoutes 注销后能力不再可达
func TestBridge_UnregisterClearsRoutes(t *testing.T) {
	b, _ := newTestBridge(t)

	_, err := b.Register("alpha")
	require.NoError(t, err)
	require.NoError(t, b.RegisterHandler("alpha", "search"))
	_, err = b.Register("beta")
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha"}, b.Handlers("search"))

	assert.True(t, b.Unregister("alpha"))
	assert.False(t, b.Unregister("alpha"))
	assert.Empty(t, b.Handlers("search"))
	_, ok := b.Receiver("alpha")
	assert.False(t, ok)

	err = b.SendDirect(envelope(t, b, "beta", types.CapabilityAddress("search"), "search", "lost"))
	assert.ErrorIs(t, err, ErrNoHandler)
	assert.EqualValues(t, 1, b.Stats().Count(types.ReasonNoHandler))
}

func TestBridge_RoundRobinHandlers(t *testing.T) {
	b, _ := newTestBridge(t)

	rx1, _ := b.Register("worker1")
	rx2, _ := b.Register("worker2")
	_, _ = b.Register("client")
	require.NoError(t, b.RegisterHandler("worker1", "render"))
	require.NoError(t, b.RegisterHandler("worker2", "render"))

	for i := 0; i < 4; i++ {
		require.NoError(t, b.Enqueue(envelope(t, b, "client", types.CapabilityAddress("render"), "render", fmt.Sprintf("frame-%d", i))))
	}
	b.Tick()

	assert.Equal(t, 2, rx1.Len())
	assert.Equal(t, 2, rx2.Len())
}

func TestBridge_SendDirectAndReply(t *testing.T) {
	b, _ := newTestBridge(t)

	rxA, _ := b.Register("alpha")
	rxB, _ := b.Register("beta")

	req := envelope(t, b, "alpha", types.MustAddress("beta"), "ping", "hi")
	require.NoError(t, b.SendDirect(req))

	got, ok := rxB.TryRecv()
	require.True(t, ok)
	reply, err := types.NewReply(got, types.MustAddress("beta"), types.TextPayload("pong"))
	require.NoError(t, err)
	require.NoError(t, b.SendDirect(reply))

	back, ok := rxA.TryRecv()
	require.True(t, ok)
	assert.Equal(t, req.Metadata.ID, back.Metadata.CorrelationID)
}

func TestBridge_SendDirect_NotFound(t *testing.T) {
	b, _ := newTestBridge(t)
	_, _ = b.Register("alpha")

	err := b.SendDirect(envelope(t, b, "alpha", types.MustAddress("ghost"), "ping", "x"))
	assert.ErrorIs(t, err, ErrPluginNotFound)

	snap := b.Stats()
	assert.EqualValues(t, 1, snap.Failed)
	assert.EqualValues(t, 1, snap.Count(types.ReasonNotFound))
}

func TestBridge_Broadcast(t *testing.T) {
	b, _ := newTestBridge(t)
	_, _ = b.Register("alpha")

	env := envelope(t, b, "alpha", types.MustAddress("alpha"), "announce", "hello all")
	require.NoError(t, b.Broadcast(env))

	rx := b.BroadcastReceiver()
	msg, ok := rx.TryRecv()
	require.True(t, ok)
	assert.True(t, msg.Routing.To.IsBroadcast())
	_, ok = rx.TryRecv()
	assert.False(t, ok)
}

// ════════════════════════════════════════════════════════════════════════════
//                              注册
// ════════════════════════════════════════════════════════════════════════════

func TestBridge_RegisterErrors(t *testing.T) {
	b, _ := newTestBridge(t)

	_, err := b.Register("alpha")
	require.NoError(t, err)
	_, err = b.Register("alpha")
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	_, err = b.Register(types.BroadcastPluginID)
	assert.Error(t, err)

	err = b.RegisterHandler("ghost", "search")
	assert.ErrorIs(t, err, ErrPluginNotFound)
}

func TestBridge_RegistryFull(t *testing.T) {
	b, _ := newTestBridge(t, WithPreset(PresetMinimal))

	for i := 0; i < b.Config().Registry.MaxChannels; i++ {
		_, err := b.Register(fmt.Sprintf("p%d", i))
		require.NoError(t, err)
	}
	_, err := b.Register("overflow")
	assert.ErrorIs(t, err, ErrResourceExhausted)
}

func TestBridge_ResetRegistry(t *testing.T) {
	b, _ := newTestBridge(t)
	rx, _ := b.Register("alpha")
	_, _ = b.Register("beta")
	require.NoError(t, b.RegisterHandler("alpha", "search"))

	assert.Equal(t, 2, b.ResetRegistry())
	assert.Empty(t, b.States())
	assert.Empty(t, b.Routes())

	_, err := rx.Recv(context.Background())
	assert.Error(t, err)
}

// ════════════════════════════════════════════════════════════════════════════
//                              队列与统计
// ════════════════════════════════════════════════════════════════════════════

func TestBridge_QueueFull(t *testing.T) {
	// normal 层容量为基础容量的一半
	b, _ := newTestBridge(t, WithQueueCapacity(4))
	_, _ = b.Register("alpha")

	require.NoError(t, b.Enqueue(envelope(t, b, "alpha", types.MustAddress("alpha"), "t", "1")))
	require.NoError(t, b.Enqueue(envelope(t, b, "alpha", types.MustAddress("alpha"), "t", "2")))
	err := b.Enqueue(envelope(t, b, "alpha", types.MustAddress("alpha"), "t", "3"))
	assert.ErrorIs(t, err, ErrResourceExhausted)

	assert.Equal(t, 2, b.QueueLen())
	snap := b.Stats()
	assert.EqualValues(t, 1, snap.Dropped)
	assert.EqualValues(t, 1, snap.Count(types.ReasonQueueFull))
}

func TestBridge_MessageTimeout(t *testing.T) {
	b, mock := newTestBridge(t, WithMessageTimeout(time.Second))
	rx, _ := b.Register("alpha")

	require.NoError(t, b.Enqueue(envelope(t, b, "alpha", types.MustAddress("alpha"), "t", "late")))
	mock.Add(2 * time.Second)
	b.Tick()

	assert.Equal(t, 0, rx.Len())
	assert.EqualValues(t, 1, b.Stats().Count(types.ReasonTimeout))
}

func TestBridge_States(t *testing.T) {
	b, _ := newTestBridge(t)
	_, _ = b.Register("beta")
	_, _ = b.Register("alpha")

	require.NoError(t, b.SendDirect(envelope(t, b, "beta", types.MustAddress("alpha"), "t", "x")))

	states := b.States()
	require.Len(t, states, 2)
	assert.Equal(t, "alpha", states[0].PluginID)
	assert.EqualValues(t, 1, states[0].MessageCount)
	assert.Equal(t, 1, states[0].Pending)
	assert.Equal(t, "beta", states[1].PluginID)
}

func TestBridge_ResetStats(t *testing.T) {
	b, _ := newTestBridge(t)
	_, _ = b.Register("alpha")
	require.NoError(t, b.SendDirect(envelope(t, b, "alpha", types.MustAddress("alpha"), "t", "x")))

	b.ResetStats()
	snap := b.Stats()
	assert.Zero(t, snap.Sent)
	assert.Equal(t, 1, snap.ActiveChannels)
}

func TestBridge_Health(t *testing.T) {
	b, _ := newTestBridge(t)
	_, _ = b.Register("alpha")

	assert.True(t, b.CheckHealth().Healthy())

	_ = b.SendDirect(envelope(t, b, "alpha", types.MustAddress("ghost"), "t", "x"))
	h := b.CheckHealth()
	assert.False(t, h.Healthy())
	assert.NotEmpty(t, h.Reasons)
	assert.Equal(t, h.Status, b.Health().Status)
}

// TestBridge_HealthSendersWithoutChannels 注册表重置后插件仍在发送，健康降级
func TestBridge_HealthSendersWithoutChannels(t *testing.T) {
	b, _ := newTestBridge(t)
	_, _ = b.Register("alpha")
	require.NoError(t, b.RegisterHandler("alpha", "search"))
	assert.True(t, b.CheckHealth().Healthy())

	b.ResetRegistry()
	require.Empty(t, b.Routes())

	require.NoError(t, b.Enqueue(envelope(t, b, "alpha", types.CapabilityAddress("search"), "search", "q")))
	b.Tick()

	h := b.CheckHealth()
	assert.False(t, h.Healthy())
	assert.Contains(t, h.Reasons, "no active channels while 1 plugins are known")
}

func TestBridge_Collector(t *testing.T) {
	b, _ := newTestBridge(t)
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(b.Collector()))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

// ════════════════════════════════════════════════════════════════════════════
//                              挂起操作
// ════════════════════════════════════════════════════════════════════════════

func TestBridge_PollerCompletesIntoBus(t *testing.T) {
	b, _ := newTestBridge(t)
	rx, _ := b.Register("alpha")

	set := pending.NewSet[string](func(body string, err error) {
		require.NoError(t, err)
		_ = b.Enqueue(envelope(t, b, "alpha", types.MustAddress("alpha"), "loaded", body))
	})
	b.AddPoller(set)

	done := false
	set.Add(pending.PollFunc[string](func() (string, bool, error) {
		return "asset", done, nil
	}))

	b.Tick()
	assert.Equal(t, 1, set.Pending())
	assert.Equal(t, 0, rx.Len())

	done = true
	b.Tick()
	assert.Equal(t, 0, set.Pending())
	assert.Equal(t, 1, b.LastTick().Polled)
	// 完成回调入队的信封在同一 tick 中被投递
	assert.Equal(t, 1, rx.Len())
}

// TestBridge_RegistrationWaitsForTick 注册与诊断不会与进行中的 tick 交错
func TestBridge_RegistrationWaitsForTick(t *testing.T) {
	b, _ := newTestBridge(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	set := pending.NewSet[string](nil)
	b.AddPoller(set)
	set.Add(pending.PollFunc[string](func() (string, bool, error) {
		once.Do(func() { close(entered) })
		<-release
		return "", true, nil
	}))

	tickDone := make(chan struct{})
	go func() {
		b.Tick()
		close(tickDone)
	}()
	<-entered

	var registered, observed atomic.Bool
	regDone := make(chan struct{})
	go func() {
		defer close(regDone)
		_, err := b.Register("late")
		assert.NoError(t, err)
		registered.Store(true)
	}()
	statesDone := make(chan struct{})
	go func() {
		defer close(statesDone)
		_ = b.States()
		observed.Store(true)
	}()

	// tick 未结束前注册表不变，快照也不会返回
	assert.Never(t, func() bool {
		return registered.Load() || observed.Load()
	}, 100*time.Millisecond, 5*time.Millisecond)

	close(release)
	<-tickDone
	<-regDone
	<-statesDone
	assert.True(t, registered.Load())
	assert.Len(t, b.States(), 1)
}

// ════════════════════════════════════════════════════════════════════════════
//                              生命周期
// ════════════════════════════════════════════════════════════════════════════

func TestBridge_SelfDriven(t *testing.T) {
	ctx := context.Background()
	b, err := Start(ctx, WithPreset(PresetMinimal), WithTickInterval(5*time.Millisecond))
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, StateRunning, b.State())
	assert.ErrorIs(t, b.Start(ctx), ErrAlreadyStarted)

	rx, err := b.Register("alpha")
	require.NoError(t, err)
	require.NoError(t, b.Enqueue(envelope(t, b, "alpha", types.MustAddress("alpha"), "t", "auto")))

	recvCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	msg, err := rx.Recv(recvCtx)
	require.NoError(t, err)
	assert.Equal(t, "t", msg.Metadata.MessageType)

	require.NoError(t, b.Stop(ctx))
	assert.Equal(t, StateStopped, b.State())
	_, err = b.Register("beta")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, b.Stop(ctx), ErrNotStarted)

	require.NoError(t, b.Close())
	assert.Equal(t, StateClosed, b.State())
	assert.NoError(t, b.Close())
}

func TestNew_InvalidOptions(t *testing.T) {
	_, err := New(WithPreset("mobile"))
	assert.Error(t, err)

	_, err = New(WithQueueCapacity(0))
	assert.Error(t, err)

	_, err = New(WithConfig(nil))
	assert.Error(t, err)

	_, err = New(WithConfigFile("/nonexistent/bridge.yaml"))
	assert.Error(t, err)
}

// ════════════════════════════════════════════════════════════════════════════
//                              管理事件
// ════════════════════════════════════════════════════════════════════════════

func TestBridge_LifecycleEvents(t *testing.T) {
	b, _ := newTestBridge(t)

	regs, err := Subscribe[types.EvtPluginRegistered](b, 4)
	require.NoError(t, err)
	unregs, err := Subscribe[types.EvtPluginUnregistered](b, 4)
	require.NoError(t, err)
	resets, err := Subscribe[types.EvtRegistryReset](b, 1)
	require.NoError(t, err)

	_, _ = b.Register("alpha")
	require.NoError(t, b.RegisterHandler("alpha", "search"))
	b.Unregister("alpha")
	_, _ = b.Register("beta")
	b.ResetRegistry()

	first := <-regs.Out()
	assert.Equal(t, "alpha", first.PluginID)
	assert.Equal(t, types.EventTypePluginRegistered, first.Type())
	second := <-regs.Out()
	assert.Equal(t, "beta", second.PluginID)

	gone := <-unregs.Out()
	assert.Equal(t, "alpha", gone.PluginID)
	assert.Equal(t, []string{"search"}, gone.Capabilities)

	reset := <-resets.Out()
	assert.Equal(t, 1, reset.Removed)
}

func TestBridge_HealthEvents(t *testing.T) {
	b, _ := newTestBridge(t)
	_, _ = b.Register("alpha")

	sub, err := Subscribe[types.EvtHealthChanged](b, 4)
	require.NoError(t, err)
	defer sub.Close()

	_ = b.SendDirect(envelope(t, b, "alpha", types.MustAddress("ghost"), "t", "x"))
	b.CheckHealth()

	evt := <-sub.Out()
	assert.Equal(t, types.HealthHealthy, evt.Previous)
	assert.Equal(t, types.HealthDegraded, evt.Current.Status)
}

func TestVersionInfo(t *testing.T) {
	assert.Contains(t, VersionInfo(), Version)
}
