// Package bridge 提供插件间的进程内消息总线
//
// Service Bridge 把宿主中的插件连接起来：插件注册后获得一个接收端，
// 声明自己能处理的消息类型（能力），其他插件按插件 ID、能力或广播发送信封。
// 总线不自带线程模型，由宿主在帧循环中调用 Tick 驱动，也可以配置
// tick_interval 让总线自行驱动。
//
// # 快速开始
//
//	b, err := bridge.New(bridge.WithPreset(bridge.PresetDesktop), bridge.WithManualTick())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer b.Close()
//
//	rx, _ := b.Register("search")
//	_ = b.RegisterHandler("search", "search")
//	_, _ = b.Register("editor")
//
//	env, _ := b.NewEnvelope(
//	    types.MustAddress("editor"),
//	    types.CapabilityAddress("search"),
//	    "search",
//	    types.TextPayload("needle"),
//	    types.PriorityNormal,
//	)
//	_ = b.Enqueue(env)
//	b.Tick()
//
//	msg, _ := rx.TryRecv()
//
// # 消息流
//
//	Enqueue ──► 优先级队列（critical/high/normal/low）
//	              │  Tick: 按优先级出队一批
//	              ▼
//	        超时检查 → system 目标解析 → 过滤管道 → 路由跳 → 插件通道 / 广播
//	                                  │
//	                                  └ 限流 → 权限 → 净化 → 去重 → 转换
//
// SendDirect / Broadcast 跳过队列，走同一条投递路径。
//
// # 地址
//
//	plugin                 指定插件
//	plugin:instance        指定插件实例
//	broadcast              共享广播通道（竞争消费）
//	system                 按消息类型选择处理者，无处理者时投递给宿主注册的 system 通道
//	system@capability      按能力轮询选择处理者
//
// # 文件组织
//
//	bridge/
//	├── bridge.go       # Bridge 门面、生命周期、注册、发送、诊断
//	├── fx.go           # Fx 组装
//	├── options.go      # WithXxx 配置选项
//	├── presets.go      # 预设名称
//	├── errors.go       # 错误定义
//	└── version.go      # 版本信息
//
// # 预设配置
//
//	bridge.PresetMinimal  小队列，关闭净化与转换，适合测试
//	bridge.PresetDesktop  默认配置
//	bridge.PresetServer   大队列、大批次、严格权限
package bridge
