package routing

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/dep2p/go-bridge/pkg/lib/log"
	"github.com/dep2p/go-bridge/pkg/types"
)

var logger = log.Logger("core/routing")

// Table 路由表
type Table struct {
	mu sync.RWMutex

	// handlers 消息类型 → 插件
	handlers map[string][]string

	// types 插件 → 消息类型
	types map[string][]string

	// cursors 消息类型 → 下一个处理者下标
	cursors map[string]int
}

// NewTable 创建路由表
func NewTable() *Table {
	return &Table{
		handlers: make(map[string][]string),
		types:    make(map[string][]string),
		cursors:  make(map[string]int),
	}
}

// RegisterHandler 声明插件处理消息类型（幂等）
func (t *Table) RegisterHandler(pluginID, messageType string) error {
	if err := types.ValidatePluginID(pluginID); err != nil {
		return err
	}
	if err := types.ValidateMessageType(messageType); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !slices.Contains(t.handlers[messageType], pluginID) {
		t.handlers[messageType] = append(t.handlers[messageType], pluginID)
	}
	if !slices.Contains(t.types[pluginID], messageType) {
		t.types[pluginID] = append(t.types[pluginID], messageType)
	}
	if _, ok := t.cursors[messageType]; !ok {
		t.cursors[messageType] = 0
	}
	return nil
}

// NextHandler 轮询选择消息类型的下一个处理者
func (t *Table) NextHandler(messageType string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	list := t.handlers[messageType]
	if len(list) == 0 {
		return "", false
	}
	idx := t.cursors[messageType] % len(list)
	t.cursors[messageType] = (idx + 1) % len(list)
	return list[idx], true
}

// Resolve 同 NextHandler，找不到时返回 ErrNoHandler
func (t *Table) Resolve(messageType string) (string, error) {
	id, ok := t.NextHandler(messageType)
	if !ok {
		return "", fmt.Errorf("%w: %s", types.ErrNoHandler, messageType)
	}
	return id, nil
}

// UnregisterPlugin 从路由表移除插件，返回被移除声明的类型
func (t *Table) UnregisterPlugin(pluginID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	declared := t.types[pluginID]
	delete(t.types, pluginID)
	for _, msgType := range declared {
		t.removeHandlerLocked(msgType, pluginID)
	}
	if len(declared) > 0 {
		logger.Debug("插件路由已清理", "plugin", pluginID, "types", len(declared))
	}
	return declared
}

// UnregisterHandler 撤销插件对单个消息类型的声明
func (t *Table) UnregisterHandler(pluginID, messageType string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	declared := t.types[pluginID]
	i := slices.Index(declared, messageType)
	if i < 0 {
		return false
	}
	declared = slices.Delete(declared, i, i+1)
	if len(declared) == 0 {
		delete(t.types, pluginID)
	} else {
		t.types[pluginID] = declared
	}
	t.removeHandlerLocked(messageType, pluginID)
	return true
}

// removeHandlerLocked 从类型处理者列表移除插件，空列表连同游标删除
func (t *Table) removeHandlerLocked(messageType, pluginID string) {
	list := t.handlers[messageType]
	i := slices.Index(list, pluginID)
	if i < 0 {
		return
	}
	list = slices.Delete(list, i, i+1)
	if len(list) == 0 {
		delete(t.handlers, messageType)
		delete(t.cursors, messageType)
		return
	}
	t.handlers[messageType] = list
	if t.cursors[messageType] > i {
		t.cursors[messageType]--
	}
	t.cursors[messageType] %= len(list)
}

// Handlers 返回消息类型的处理者（副本）
func (t *Table) Handlers(messageType string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.handlers[messageType])
}

// TypesFor 返回插件声明的消息类型（副本）
func (t *Table) TypesFor(pluginID string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.types[pluginID])
}

// HandlesType 插件是否声明了消息类型
func (t *Table) HandlesType(pluginID, messageType string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Contains(t.types[pluginID], messageType)
}

// KnownPlugins 声明过至少一个类型的插件数
func (t *Table) KnownPlugins() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.types)
}

// Snapshot 返回 类型 → 处理者 的拷贝，类型按字典序
func (t *Table) Snapshot() map[string][]string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string][]string, len(t.handlers))
	for msgType, list := range t.handlers {
		out[msgType] = slices.Clone(list)
	}
	return out
}

// MessageTypes 返回所有有处理者的消息类型（已排序）
func (t *Table) MessageTypes() []string {
	t.mu.RLock()
	out := make([]string, 0, len(t.handlers))
	for msgType := range t.handlers {
		out = append(out, msgType)
	}
	t.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Reset 清空路由表
func (t *Table) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers = make(map[string][]string)
	t.types = make(map[string][]string)
	t.cursors = make(map[string]int)
}
