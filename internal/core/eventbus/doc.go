// Package eventbus 实现总线生命周期事件的发布/订阅
//
// 与插件消息流分离：这里只承载宿主关心的管理事件
// （插件注册/注销、注册表重置、健康状态切换）。
//
// 订阅按事件的 Go 类型区分，使用泛型函数访问：
//
//	sub, _ := eventbus.Subscribe[types.EvtHealthChanged](bus, eventbus.BufSize(4))
//	defer sub.Close()
//	for evt := range sub.Out() { ... }
//
// 发布不阻塞：订阅者缓冲区满时事件被丢弃并计数，
// 并以节流日志提示慢消费者。标记为有状态的事件类型会把最后一个事件
// 重放给新订阅者。
package eventbus
