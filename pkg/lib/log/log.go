// Package log 提供 Service Bridge 统一日志接口
//
// 基于 Go 标准库 log/slog 封装，每个组件通过 Logger("core/xxx") 获取
// 懒加载 logger，日志调用时才解析当前的 handler 与组件级别。
//
// 环境变量：
//   - BRIDGE_LOG_LEVEL: 组件级别配置，格式 组件=级别,组件=级别,默认级别
//     示例: core/filter=debug,core/registry=warn,info
//   - BRIDGE_LOG_FORMAT: text 或 json
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// 日志级别常量（从 slog 导出，方便使用）
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

var (
	mu           sync.RWMutex
	output       io.Writer = os.Stderr
	jsonFormat   bool
	defaultLevel = slog.LevelInfo
	levels       = make(map[string]slog.Level)
	base         *slog.Logger
)

// ============================================================================
//                              配置
// ============================================================================

// parseEnv 解析环境变量配置
func parseEnv() {
	if spec := os.Getenv("BRIDGE_LOG_LEVEL"); spec != "" {
		parseLevelSpec(spec)
	}
	if strings.EqualFold(os.Getenv("BRIDGE_LOG_FORMAT"), "json") {
		jsonFormat = true
	}
}

// parseLevelSpec 解析级别配置字符串
func parseLevelSpec(spec string) {
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if name, lvl, ok := strings.Cut(part, "="); ok {
			if level, ok := ParseLevel(lvl); ok {
				levels[strings.TrimSpace(name)] = level
			}
			continue
		}
		if level, ok := ParseLevel(part); ok {
			defaultLevel = level
		}
	}
}

// ParseLevel 解析日志级别名称
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// rebuild 重建底层 logger，调用方持有写锁
func rebuild() {
	opts := &slog.HandlerOptions{
		// 真正的过滤在 LazyLogger 中按组件完成
		Level: slog.LevelDebug,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Key = "ts"
			}
			return a
		},
	}
	var h slog.Handler
	if jsonFormat {
		h = slog.NewJSONHandler(output, opts)
	} else {
		h = slog.NewTextHandler(output, opts)
	}
	base = slog.New(h)
}

// SetOutput 设置日志输出目标
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	rebuild()
}

// SetJSON 切换 JSON 输出格式
func SetJSON(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	jsonFormat = enabled
	rebuild()
}

// SetLevel 设置默认日志级别
func SetLevel(level slog.Level) {
	mu.Lock()
	defer mu.Unlock()
	defaultLevel = level
}

// SetComponentLevel 设置指定组件的日志级别
func SetComponentLevel(component string, level slog.Level) {
	mu.Lock()
	defer mu.Unlock()
	levels[component] = level
}

// levelFor 返回组件的生效级别
func levelFor(component string) slog.Level {
	if level, ok := levels[component]; ok {
		return level
	}
	return defaultLevel
}

// ============================================================================
//                              LazyLogger
// ============================================================================

// LazyLogger 懒加载 logger
//
// 每次日志调用时读取当前输出与组件级别，
// 支持在运行时切换输出目标或调整级别。
type LazyLogger struct {
	component string
}

// Logger 返回带组件名的 LazyLogger
func Logger(component string) *LazyLogger {
	return &LazyLogger{component: component}
}

// Component 返回组件名
func (l *LazyLogger) Component() string {
	return l.component
}

func (l *LazyLogger) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	mu.RLock()
	enabled := level >= levelFor(l.component)
	lg := base
	mu.RUnlock()
	if !enabled {
		return
	}
	lg.With("component", l.component).Log(ctx, level, msg, args...)
}

// Enabled 检查组件是否启用指定级别
func (l *LazyLogger) Enabled(level slog.Level) bool {
	mu.RLock()
	defer mu.RUnlock()
	return level >= levelFor(l.component)
}

// Debug 输出 Debug 级别日志
func (l *LazyLogger) Debug(msg string, args ...any) {
	l.log(context.Background(), slog.LevelDebug, msg, args...)
}

// Info 输出 Info 级别日志
func (l *LazyLogger) Info(msg string, args ...any) {
	l.log(context.Background(), slog.LevelInfo, msg, args...)
}

// Warn 输出 Warn 级别日志
func (l *LazyLogger) Warn(msg string, args ...any) {
	l.log(context.Background(), slog.LevelWarn, msg, args...)
}

// Error 输出 Error 级别日志
func (l *LazyLogger) Error(msg string, args ...any) {
	l.log(context.Background(), slog.LevelError, msg, args...)
}

// DebugContext 带 context 的 Debug 日志
func (l *LazyLogger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelDebug, msg, args...)
}

// WarnContext 带 context 的 Warn 日志
func (l *LazyLogger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelWarn, msg, args...)
}

// ============================================================================
//                              工具函数
// ============================================================================

// TruncateID 安全截取 ID 用于日志显示
func TruncateID(id string, maxLen int) string {
	if len(id) <= maxLen {
		return id
	}
	return id[:maxLen]
}

func init() {
	mu.Lock()
	defer mu.Unlock()
	parseEnv()
	rebuild()
}
