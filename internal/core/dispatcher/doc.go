// Package dispatcher 实现 tick 驱动的单线程调度器
//
// 每个 tick：
//
//  1. 轮询已登记的挂起操作（Poller）
//  2. 按严格优先级从队列取出最多 BatchSize 条信封
//  3. 检查 message_timeout（与信封创建时间比较）
//  4. 解析按能力寻址的目标（路由表轮询）
//  5. 执行过滤管道
//  6. 记录路由跳（环路 / TTL 检查）并投递到插件通道或广播通道
//  7. 更新统计，到期时执行监控 tick
//
// 路由与过期错误在 tick 内终结：信封被丢弃、计数、记录日志，
// 不返回给原始生产者。调度器从不阻塞。
//
// 宿主有自己的帧循环时直接调用 Tick；否则由 Runner 按间隔驱动。
package dispatcher
