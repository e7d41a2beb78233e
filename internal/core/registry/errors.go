package registry

import "errors"

var (
	// ErrAlreadyRegistered 插件已注册
	ErrAlreadyRegistered = errors.New("plugin already registered")

	// ErrMailboxClosed 邮箱已关闭
	ErrMailboxClosed = errors.New("mailbox closed")
)
