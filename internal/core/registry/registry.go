package registry

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/time/rate"

	"github.com/dep2p/go-bridge/config"
	"github.com/dep2p/go-bridge/pkg/lib/log"
	"github.com/dep2p/go-bridge/pkg/types"
)

var logger = log.Logger("core/registry")

// ============================================================================
//                              Registry
// ============================================================================

// Registry 插件通道注册表
type Registry struct {
	mu       sync.RWMutex
	channels map[string]*PluginChannel

	broadcast *Mailbox

	maxChannels   int
	slowThreshold int
	clock         clock.Clock

	// slowWarn 慢消费者告警节流
	slowWarn rate.Sometimes
}

// New 创建注册表
func New(cfg config.RegistryConfig, clk clock.Clock) *Registry {
	if clk == nil {
		clk = clock.New()
	}
	return &Registry{
		channels:      make(map[string]*PluginChannel),
		broadcast:     NewMailbox(),
		maxChannels:   cfg.MaxChannels,
		slowThreshold: cfg.SlowConsumerThreshold,
		clock:         clk,
		slowWarn:      rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
}

// Register 注册插件并创建通道
func (r *Registry) Register(pluginID string) (*PluginChannel, error) {
	if err := types.ValidatePluginID(pluginID); err != nil {
		return nil, err
	}
	if pluginID == types.BroadcastPluginID {
		return nil, fmt.Errorf("%w: %q is reserved", types.ErrInvalidPluginID, pluginID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.channels[pluginID]; exists {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRegistered, pluginID)
	}
	if len(r.channels) >= r.maxChannels {
		return nil, fmt.Errorf("%w: registry full (%d)", types.ErrResourceExhausted, r.maxChannels)
	}

	ch := newPluginChannel(pluginID, r.clock.Now())
	r.channels[pluginID] = ch
	logger.Debug("插件已注册", "plugin", pluginID, "channels", len(r.channels))
	return ch, nil
}

// Unregister 关闭并移除插件通道
//
// 路由表需要由调用方同步清理。
func (r *Registry) Unregister(pluginID string) bool {
	r.mu.Lock()
	ch, ok := r.channels[pluginID]
	if ok {
		delete(r.channels, pluginID)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	ch.close()
	logger.Debug("插件已注销", "plugin", pluginID, "undelivered", ch.mailbox.Len())
	return true
}

// SendTo 投递到指定插件
func (r *Registry) SendTo(pluginID string, env *types.MessageEnvelope) error {
	r.mu.RLock()
	ch, ok := r.channels[pluginID]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", types.ErrPluginNotFound, pluginID)
	}
	if err := ch.Sender().Send(env); err != nil {
		return fmt.Errorf("%w: %s", err, pluginID)
	}

	if r.slowThreshold > 0 {
		if pending := ch.mailbox.Len(); pending > r.slowThreshold {
			r.slowWarn.Do(func() {
				logger.Warn("慢消费者检测",
					"plugin", pluginID,
					"pending", pending,
					"threshold", r.slowThreshold)
			})
		}
	}
	return nil
}

// Broadcast 投递到共享广播邮箱
func (r *Registry) Broadcast(env *types.MessageEnvelope) error {
	if err := r.broadcast.Put(env); err != nil {
		return types.ErrPluginCommunicationFailed
	}
	return nil
}

// BroadcastReceiver 返回广播邮箱接收端
//
// 所有持有者竞争同一个邮箱，每条消息只交付一次。
func (r *Registry) BroadcastReceiver() *Receiver {
	return &Receiver{mb: r.broadcast}
}

// Get 返回插件通道
func (r *Registry) Get(pluginID string) (*PluginChannel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.channels[pluginID]
	return ch, ok
}

// Has 插件是否已注册
func (r *Registry) Has(pluginID string) bool {
	_, ok := r.Get(pluginID)
	return ok
}

// Len 已注册通道数
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels)
}

// MaxChannels 注册表上限
func (r *Registry) MaxChannels() int {
	return r.maxChannels
}

// States 返回按插件 ID 排序的通道状态快照
func (r *Registry) States() []types.ChannelState {
	r.mu.RLock()
	out := make([]types.ChannelState, 0, len(r.channels))
	for _, ch := range r.channels {
		out = append(out, ch.State())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].PluginID < out[j].PluginID })
	return out
}

// IDs 返回已注册插件 ID（已排序）
func (r *Registry) IDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.channels))
	for id := range r.channels {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// Reset 关闭并移除全部通道，返回被移除的数量
//
// 用于清理未注销的幽灵条目。广播邮箱保留。
func (r *Registry) Reset() int {
	r.mu.Lock()
	old := r.channels
	r.channels = make(map[string]*PluginChannel)
	r.mu.Unlock()

	for _, ch := range old {
		ch.close()
	}
	if len(old) > 0 {
		logger.Info("注册表已重置", "removed", len(old))
	}
	return len(old)
}

// Close 关闭全部通道与广播邮箱
func (r *Registry) Close() {
	r.Reset()
	r.broadcast.Close()
}
