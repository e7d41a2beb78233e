// Package pending 实现由调度器轮询的挂起操作
//
// 插件的异步工作（在任意 goroutine 中执行）以 Pollable[T] 表示，
// 按结果类型 T 收集到 Set[T] 中。调度器每个 tick 通过非泛型的
// Poller 接口调用 Set.Poll，完成的操作交给 Set 的完成回调，
// 回调通常把结果封装为信封重新入队。
//
// 一个泛型实现覆盖所有结果类型，无需按类型复制轮询逻辑。
package pending
