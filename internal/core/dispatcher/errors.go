package dispatcher

import "errors"

var (
	// ErrRateLimited 发送方超过限流
	ErrRateLimited = errors.New("rate limited")

	// ErrFiltered 被权限或内容过滤
	ErrFiltered = errors.New("filtered")

	// ErrDuplicate 窗口内的重复消息
	ErrDuplicate = errors.New("duplicate message")

	// ErrTimedOut 超过 message_timeout
	ErrTimedOut = errors.New("message timed out")
)
