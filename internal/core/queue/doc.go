// Package queue 实现按优先级分层的有界消息队列
//
// 四个队列按单一基准容量 C 划分：
//
//	critical  C/10
//	high      C/4
//	normal    C/2
//	low       C      （background 与 low 共用）
//
// 每层至少容纳 1 条。入队是非阻塞的，队满立即返回 ErrResourceExhausted，
// 由生产者决定重试或丢弃。出队严格按 critical → high → normal → low 轮询，
// 因此持续的高优先级流量会饿死低优先级队列，调度批次大小
// （dispatch.batch_size）决定每个 tick 的处理量。
//
// 同一层内同一发送方保持 FIFO，跨层不保证顺序。
package queue
