// Package lib 包含基础设施工具库
//
// 本目录包含与总线组件无关的通用工具库：
//
//   - log: 基于 log/slog 的组件级日志封装
//   - codec: 负载压缩编解码（zstd）
//
// # 与 pkg/ 其他目录的关系
//
//   - interfaces/: 公共接口
//   - types/: 公共类型定义
//   - lib/: 基础设施工具库（本目录）
package lib
