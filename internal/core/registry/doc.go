// Package registry 实现插件通道注册表
//
// 每个注册的插件拥有一个无界邮箱：发送永不阻塞（受内存限制），
// 插件在自己的调度时隙中通过 Receiver 轮询。注册表本身有上限
// （registry.max_channels），达到上限后 Register 返回 ErrResourceExhausted。
//
// 广播通道是单一共享邮箱，多个消费者竞争接收：每条广播消息
// 只会被一个消费者取走，未及时轮询的消费者可能错过消息。
package registry
