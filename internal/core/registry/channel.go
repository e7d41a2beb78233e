package registry

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/dep2p/go-bridge/pkg/types"
)

// ============================================================================
//                              PluginChannel
// ============================================================================

// PluginChannel 单个插件的通道
type PluginChannel struct {
	PluginID  string
	CreatedAt time.Time

	mailbox      *Mailbox
	messageCount atomic.Uint64
}

func newPluginChannel(pluginID string, now time.Time) *PluginChannel {
	return &PluginChannel{
		PluginID:  pluginID,
		CreatedAt: now,
		mailbox:   NewMailbox(),
	}
}

// Sender 返回发送端
func (c *PluginChannel) Sender() *Sender {
	return &Sender{ch: c}
}

// Receiver 返回接收端
func (c *PluginChannel) Receiver() *Receiver {
	return &Receiver{mb: c.mailbox}
}

// MessageCount 累计投递数
func (c *PluginChannel) MessageCount() uint64 {
	return c.messageCount.Load()
}

// State 返回诊断快照
func (c *PluginChannel) State() types.ChannelState {
	return types.ChannelState{
		PluginID:     c.PluginID,
		CreatedAt:    c.CreatedAt,
		MessageCount: c.messageCount.Load(),
		Pending:      c.mailbox.Len(),
	}
}

func (c *PluginChannel) close() {
	c.mailbox.Close()
}

// ============================================================================
//                              Sender / Receiver
// ============================================================================

// Sender 插件通道发送端
type Sender struct {
	ch *PluginChannel
}

// Send 投递一条消息，通道已断开时返回 ErrPluginCommunicationFailed
func (s *Sender) Send(env *types.MessageEnvelope) error {
	if err := s.ch.mailbox.Put(env); err != nil {
		return types.ErrPluginCommunicationFailed
	}
	s.ch.messageCount.Add(1)
	return nil
}

// Receiver 插件通道接收端，实现 interfaces.Receiver
type Receiver struct {
	mb *Mailbox
}

// TryRecv 非阻塞接收
func (r *Receiver) TryRecv() (*types.MessageEnvelope, bool) {
	return r.mb.TryRecv()
}

// Recv 阻塞接收
func (r *Receiver) Recv(ctx context.Context) (*types.MessageEnvelope, error) {
	return r.mb.Recv(ctx)
}

// Drain 批量接收
func (r *Receiver) Drain(max int) []*types.MessageEnvelope {
	return r.mb.Drain(max)
}

// C 通知通道
func (r *Receiver) C() <-chan struct{} {
	return r.mb.C()
}

// Len 待接收数
func (r *Receiver) Len() int {
	return r.mb.Len()
}
