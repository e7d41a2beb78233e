// Package stats 实现投递统计与健康评估
//
// 计数规则：
//
//	成功投递    sent+1, processed+1, 记录延迟
//	失败        failed+1, processed+1, 原因计数+1（not_found/routing_loop/expired/…）
//	丢弃        dropped+1, 原因计数+1（rate_limited/filtered/timeout/queue_full）
//	重复        仅 deduplicated 计数+1
//
// 健康状态是派生值，由 Monitor 在监控 tick 中重新计算，从不在热路径上计算。
// Monitor 持有 LastLogTime，不使用任何全局定时器。
package stats
