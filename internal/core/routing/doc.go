// Package routing 实现消息类型到插件的路由表
//
// 路由表维护两个索引：
//
//	消息类型 → 处理插件列表（注册顺序）
//	插件     → 声明的消息类型列表
//
// 以及每个消息类型的轮询游标。NextHandler 在处理者之间纯轮询，
// 不考虑负载。插件注销时从两个索引中剪除，处理者为空的类型
// 连同其游标一并删除。
package routing
