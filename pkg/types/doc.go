// Package types 定义 Service Bridge 的公共数据结构
//
// 这是整个系统的最底层包，不依赖任何其他内部包。
// 所有类型都是纯值类型，构造与校验不涉及 I/O 与共享状态，
// 可以在任意 goroutine 中无协调地调用。
//
// # 文件组织
//
//   - address.go   - MessageAddress 插件地址及文本格式
//   - priority.go  - Priority 优先级、Encoding 编码、Flags 标记
//   - payload.go   - Payload 负载及编解码辅助
//   - envelope.go  - MessageEnvelope 信封、跳数与环路检测
//   - stats.go     - MessageStats 统计快照、Health 健康评估、ChannelState 通道状态
//   - events.go    - 总线管理事件
//   - errors.go    - 公共错误定义
package types
