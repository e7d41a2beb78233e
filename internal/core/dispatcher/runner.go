package dispatcher

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Runner 按固定间隔驱动 tick
//
// 用于没有自己帧循环的宿主。
type Runner struct {
	tick     func(context.Context)
	clock    clock.Clock
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRunner 创建驱动器
func NewRunner(tick func(context.Context), clk clock.Clock, interval time.Duration) *Runner {
	if clk == nil {
		clk = clock.New()
	}
	return &Runner{tick: tick, clock: clk, interval: interval}
}

// Start 启动驱动循环，重复调用无效果
func (r *Runner) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil || r.interval <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})
	ticker := r.clock.Ticker(r.interval)

	go func() {
		defer close(r.done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.tick(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
	logger.Debug("调度驱动已启动", "interval", r.interval)
}

// Stop 停止驱动循环并等待退出
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running 是否正在运行
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}
