// Package filter 实现投递前的过滤管道
//
// 阶段顺序固定：
//
//  1. RateLimiter        每发送方滑动窗口限流
//  2. PermissionChecker  目标插件声明的能力 vs 消息类型
//  3. Sanitizer          扫描脚本注入标记，剥离或打标记
//  4. Deduplicator       (message_type, from, payload) 内容哈希去重
//  5. Transformer        格式规范化与压缩
//
// 任一阶段返回非 VerdictPass 时管道短路，信封被丢弃，
// 由调度器按 Verdict 计入对应统计。未启用的阶段不会加入管道。
package filter
