package types

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEnvelope(t *testing.T) *MessageEnvelope {
	t.Helper()
	env, err := NewEnvelope(MustAddress("sender"), MustAddress("receiver"), "ping", TextPayload("hello"), PriorityNormal)
	require.NoError(t, err)
	return env
}

// ============================================================================
//                              构造测试
// ============================================================================

func TestNewEnvelope(t *testing.T) {
	env := newTestEnvelope(t)

	assert.NotEmpty(t, env.Metadata.ID)
	assert.Equal(t, "ping", env.Metadata.MessageType)
	assert.Equal(t, 5, env.Metadata.PayloadSize)
	assert.Equal(t, DefaultTTLHops, env.Routing.TTLHops)
	assert.Empty(t, env.Routing.RouteHistory)
	assert.WithinDuration(t, time.Now(), env.Metadata.CreatedAt, time.Second)

	other := newTestEnvelope(t)
	assert.NotEqual(t, env.Metadata.ID, other.Metadata.ID)
}

func TestNewEnvelope_Invalid(t *testing.T) {
	from := MustAddress("a")
	to := MustAddress("b")

	_, err := NewEnvelope(from, to, "", TextPayload("x"), PriorityNormal)
	assert.ErrorIs(t, err, ErrEmptyMessageType)

	_, err = NewEnvelope(from, to, strings.Repeat("t", MaxMessageTypeLength+1), TextPayload("x"), PriorityNormal)
	assert.ErrorIs(t, err, ErrMessageTypeTooLong)

	_, err = NewEnvelope(MessageAddress{PluginID: "bad id"}, to, "t", TextPayload("x"), PriorityNormal)
	assert.ErrorIs(t, err, ErrInvalidPluginID)

	_, err = NewEnvelope(from, MessageAddress{}, "t", TextPayload("x"), PriorityNormal)
	assert.ErrorIs(t, err, ErrEmptyPluginID)

	_, err = NewEnvelope(from, to, "t", TextPayload("x"), Priority(42))
	assert.ErrorIs(t, err, ErrInvalidPriority)

	_, err = NewEnvelope(from, to, "t", Payload{Content: []byte("x"), Encoding: "yaml"}, PriorityNormal)
	assert.ErrorIs(t, err, ErrInvalidEncoding)
}

func TestEnvelope_Builders(t *testing.T) {
	env := newTestEnvelope(t).
		WithReplyTo(MustAddress("inbox")).
		WithCorrelationID("corr-1").
		WithTTL(3).
		WithHeader("trace", "abc")

	require.NotNil(t, env.Routing.ReplyTo)
	assert.Equal(t, "inbox", env.Routing.ReplyTo.PluginID)
	assert.Equal(t, "corr-1", env.Metadata.CorrelationID)
	assert.Equal(t, 3, env.Routing.TTLHops)
	assert.Equal(t, "abc", env.Headers["trace"])
}

func TestNewReply(t *testing.T) {
	req := newTestEnvelope(t).WithReplyTo(MustAddress("inbox"))

	reply, err := NewReply(req, MustAddress("receiver"), TextPayload("pong"))
	require.NoError(t, err)
	assert.Equal(t, req.Metadata.ID, reply.Metadata.CorrelationID)
	assert.Equal(t, "inbox", reply.Routing.To.PluginID)

	req.Routing.ReplyTo = nil
	reply, err = NewReply(req, MustAddress("receiver"), TextPayload("pong"))
	require.NoError(t, err)
	assert.Equal(t, "sender", reply.Routing.To.PluginID)
}

// ============================================================================
//                              AddHop 测试
// ============================================================================

func TestAddHop_Loop(t *testing.T) {
	env := newTestEnvelope(t)
	hop := MustAddress("relay")

	require.NoError(t, env.AddHop(hop))
	err := env.AddHop(hop)
	assert.ErrorIs(t, err, ErrRoutingLoop)
	assert.Len(t, env.Routing.RouteHistory, 1, "rejected hop must not be appended")
	assert.Equal(t, DefaultTTLHops-1, env.Routing.TTLHops)

	// 实例 ID 不同仍视为同一路由地址
	assert.ErrorIs(t, env.AddHop(MustAddress("relay#2")), ErrRoutingLoop)
}

func TestAddHop_Expired(t *testing.T) {
	env := newTestEnvelope(t)

	for i := 0; i < DefaultTTLHops; i++ {
		require.NoError(t, env.AddHop(MustAddress(fmt.Sprintf("hop%d", i))))
	}
	assert.Equal(t, 0, env.Routing.TTLHops)

	err := env.AddHop(MustAddress("one-more"))
	assert.ErrorIs(t, err, ErrMessageExpired)
	assert.Equal(t, DefaultTTLHops, env.Hops())
}

// TestAddHop_LoopCheckedBeforeTTL 环路检查先于 TTL 检查
func TestAddHop_LoopCheckedBeforeTTL(t *testing.T) {
	env := newTestEnvelope(t).WithTTL(1)
	require.NoError(t, env.AddHop(MustAddress("x")))

	assert.ErrorIs(t, env.AddHop(MustAddress("x")), ErrRoutingLoop)
	assert.ErrorIs(t, env.AddHop(MustAddress("y")), ErrMessageExpired)
}

func TestEnvelope_TimedOut(t *testing.T) {
	env := newTestEnvelope(t)
	env.Metadata.CreatedAt = time.Unix(1000, 0)

	assert.False(t, env.TimedOut(time.Unix(1005, 0), 10*time.Second))
	assert.True(t, env.TimedOut(time.Unix(1011, 0), 10*time.Second))
	assert.False(t, env.TimedOut(time.Unix(99999, 0), 0))
}

func TestEnvelope_Clone(t *testing.T) {
	env := newTestEnvelope(t).WithReplyTo(MustAddress("inbox")).WithHeader("k", "v")
	require.NoError(t, env.AddHop(MustAddress("relay")))

	c := env.Clone()
	c.Payload.Content[0] = 'X'
	c.Routing.RouteHistory[0] = MustAddress("other")
	c.Routing.ReplyTo.PluginID = "changed"
	c.Headers["k"] = "changed"

	assert.Equal(t, byte('h'), env.Payload.Content[0])
	assert.Equal(t, "relay", env.Routing.RouteHistory[0].PluginID)
	assert.Equal(t, "inbox", env.Routing.ReplyTo.PluginID)
	assert.Equal(t, "v", env.Headers["k"])
}
