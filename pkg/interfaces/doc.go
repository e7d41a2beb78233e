// Package interfaces 定义 Service Bridge 的公共接口
//
// 本包仅包含纯接口定义，数据结构定义在 pkg/types 包中：
//   - bridge.go - Bridge 门面、Receiver 接收端、Poller 挂起操作、Subscription 事件订阅
//
// # 依赖方向
//
//	bridge(门面) → internal/core/* → pkg/interfaces → pkg/types
//
// 禁止反向依赖。
package interfaces
