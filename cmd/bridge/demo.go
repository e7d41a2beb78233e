package main

import (
	"context"
	"fmt"
	"time"

	bridge "github.com/dep2p/go-bridge"
	"github.com/dep2p/go-bridge/pkg/interfaces"
	"github.com/dep2p/go-bridge/pkg/types"
)

// 演示插件
const (
	demoEcho   = "echo"
	demoPinger = "pinger"
)

// startDemo 注册两个演示插件
//
//	pinger ──system@echo──► echo
//	pinger ◄──echo.reply─── echo
func startDemo(ctx context.Context, b *bridge.Bridge) error {
	echoRx, err := b.Register(demoEcho)
	if err != nil {
		return err
	}
	if err := b.RegisterHandler(demoEcho, "echo"); err != nil {
		return err
	}
	pingRx, err := b.Register(demoPinger)
	if err != nil {
		return err
	}
	// 严格权限模式下回复也需要目标声明
	if err := b.RegisterHandler(demoPinger, "echo.reply"); err != nil {
		return err
	}

	go runEcho(ctx, b, echoRx)
	go runPinger(ctx, b, pingRx)
	logger.Info("演示插件已启动", "plugins", []string{demoEcho, demoPinger})
	return nil
}

// runEcho 把收到的请求原样回复
func runEcho(ctx context.Context, b *bridge.Bridge, rx interfaces.Receiver) {
	defer b.Unregister(demoEcho)
	self := types.MustAddress(demoEcho)
	for {
		req, err := rx.Recv(ctx)
		if err != nil {
			return
		}
		reply, err := types.NewReply(req, self, req.Payload)
		if err != nil {
			logger.Warn("构造回复失败", "err", err)
			continue
		}
		reply.Metadata.MessageType = "echo.reply"
		if err := b.Enqueue(reply); err != nil {
			logger.Warn("回复入队失败", "err", err)
		}
	}
}

// runPinger 每秒发一次请求并打印往返时间
func runPinger(ctx context.Context, b *bridge.Bridge, rx interfaces.Receiver) {
	defer b.Unregister(demoPinger)
	self := types.MustAddress(demoPinger)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	sent := make(map[string]time.Time)
	seq := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			seq++
			env, err := b.NewEnvelope(self, types.CapabilityAddress("echo"), "echo",
				types.TextPayload(fmt.Sprintf("ping #%d", seq)), types.PriorityNormal)
			if err != nil {
				logger.Warn("构造请求失败", "err", err)
				continue
			}
			if err := b.Enqueue(env); err != nil {
				logger.Warn("请求入队失败", "err", err)
				continue
			}
			sent[env.Metadata.ID] = time.Now()
		case <-rx.C():
			for _, reply := range rx.Drain(0) {
				start, ok := sent[reply.Metadata.CorrelationID]
				if !ok {
					continue
				}
				delete(sent, reply.Metadata.CorrelationID)
				var body string
				_ = reply.Payload.Decode(&body)
				logger.Info("收到回复", "body", body, "rtt", time.Since(start))
			}
		}
	}
}
