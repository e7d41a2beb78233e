package filter

import (
	"context"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-bridge/config"
	"github.com/dep2p/go-bridge/internal/core/routing"
	"github.com/dep2p/go-bridge/pkg/types"
)

func newEnvelope(t *testing.T, from, to, msgType string, payload types.Payload) *types.MessageEnvelope {
	t.Helper()
	env, err := types.NewEnvelope(types.MustAddress(from), types.MustAddress(to), msgType, payload, types.PriorityNormal)
	require.NoError(t, err)
	return env
}

// stageFunc 测试用阶段
type stageFunc struct {
	name  string
	calls int
	v     Verdict
}

func (s *stageFunc) Name() string { return s.name }
func (s *stageFunc) Process(context.Context, *types.MessageEnvelope) Verdict {
	s.calls++
	return s.v
}

func TestPipeline_ShortCircuit(t *testing.T) {
	first := &stageFunc{name: "first", v: VerdictPass}
	second := &stageFunc{name: "second", v: VerdictFiltered}
	third := &stageFunc{name: "third", v: VerdictPass}
	p := NewPipeline(first, second, third)

	v := p.Process(context.Background(), newEnvelope(t, "a", "b", "x", types.TextPayload("hi")))
	assert.Equal(t, VerdictFiltered, v)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
	assert.Equal(t, 0, third.calls)
	assert.Equal(t, []string{"first", "second", "third"}, p.Stages())
}

func TestNew_StageOrder(t *testing.T) {
	p, err := New(config.DefaultFilterConfig(), clock.NewMock(), routing.NewTable())
	require.NoError(t, err)
	assert.Equal(t, []string{
		RateLimiterName, PermissionCheckerName, SanitizerName, DeduplicatorName, TransformerName,
	}, p.Stages())

	cfg := config.DefaultFilterConfig()
	cfg.Sanitize.Enabled = false
	cfg.Dedup.Enabled = false
	p, err = New(cfg, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{RateLimiterName, PermissionCheckerName, TransformerName}, p.Stages())
	_, ok := p.Stage(DeduplicatorName)
	assert.False(t, ok)

	cfg.Sanitize.Enabled = true
	cfg.Sanitize.Mode = "bogus"
	_, err = New(cfg, nil, nil)
	assert.Error(t, err)
}

// TestPipeline_UnmodifiedPassThrough 普通消息原样通过默认管道
func TestPipeline_UnmodifiedPassThrough(t *testing.T) {
	tbl := routing.NewTable()
	require.NoError(t, tbl.RegisterHandler("a", "search"))
	p, err := New(config.DefaultFilterConfig(), clock.NewMock(), tbl)
	require.NoError(t, err)

	env := newEnvelope(t, "b", "a", "search", types.TextPayload("query"))
	assert.Equal(t, VerdictPass, p.Process(context.Background(), env))
	assert.Equal(t, "query", string(env.Payload.Content))
	assert.Equal(t, types.Flags(0), env.Flags)
}

// TestPipeline_Dedup 窗口内两条相同消息只放行一条
func TestPipeline_Dedup(t *testing.T) {
	p, err := New(config.DefaultFilterConfig(), clock.NewMock(), nil)
	require.NoError(t, err)

	first := newEnvelope(t, "b", "a", "search", types.TextPayload("same"))
	second := newEnvelope(t, "b", "a", "search", types.TextPayload("same"))
	assert.NotEqual(t, first.Metadata.ID, second.Metadata.ID)

	assert.Equal(t, VerdictPass, p.Process(context.Background(), first))
	assert.Equal(t, VerdictDuplicate, p.Process(context.Background(), second))
	assert.Equal(t, types.ReasonDeduplicated, VerdictDuplicate.Reason())
}

func TestVerdict_Reason(t *testing.T) {
	assert.Equal(t, types.Reason(""), VerdictPass.Reason())
	assert.Equal(t, types.ReasonRateLimited, VerdictRateLimited.Reason())
	assert.Equal(t, types.ReasonFiltered, VerdictFiltered.Reason())
	assert.Equal(t, "duplicate", VerdictDuplicate.String())
}

func TestModule(t *testing.T) {
	var p *Pipeline
	app := fxtest.New(t,
		fx.Supply(config.NewConfig()),
		fx.Provide(routing.NewTable),
		Module(),
		fx.Populate(&p),
	)
	app.RequireStart()
	defer app.RequireStop()

	require.NotNil(t, p)
	assert.Len(t, p.Stages(), 5)
}
