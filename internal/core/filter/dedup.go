package filter

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	lru "github.com/hashicorp/golang-lru/v2"
	"lukechampine.com/blake3"

	"github.com/dep2p/go-bridge/pkg/types"
)

// DeduplicatorName 去重阶段名称
const DeduplicatorName = "dedup"

// hashSize 内容哈希字节数
const hashSize = 16

// defaultDedupEntries maxEntries<=0 时的集合上限
const defaultDedupEntries = 100000

// Deduplicator 基于内容哈希的去重
//
// 哈希覆盖 (message_type, from, encoding, payload)。已见集合是 LRU，
// 值为首次出现时间（取自总线时钟）。窗口外的条目视为未见，
// Prune 按插入顺序移除过期条目，容量上限防止无界增长。
type Deduplicator struct {
	mu     sync.Mutex
	seen   *lru.Cache[string, time.Time]
	window time.Duration
	clock  clock.Clock
}

// NewDeduplicator 创建去重阶段（maxEntries<=0 使用默认上限）
func NewDeduplicator(window time.Duration, maxEntries int, clk clock.Clock) (*Deduplicator, error) {
	if maxEntries <= 0 {
		maxEntries = defaultDedupEntries
	}
	if clk == nil {
		clk = clock.New()
	}
	seen, err := lru.New[string, time.Time](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("dedup set: %w", err)
	}
	return &Deduplicator{seen: seen, window: window, clock: clk}, nil
}

// Name 实现 Stage
func (d *Deduplicator) Name() string { return DeduplicatorName }

// Process 实现 Stage
func (d *Deduplicator) Process(_ context.Context, env *types.MessageEnvelope) Verdict {
	key := ContentHash(env)
	now := d.clock.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	// Peek 不刷新 LRU 顺序，集合保持按首次出现时间排列
	if first, ok := d.seen.Peek(key); ok {
		if now.Sub(first) < d.window {
			return VerdictDuplicate
		}
		d.seen.Remove(key)
	}
	d.seen.Add(key, now)
	return VerdictPass
}

// Prune 实现 Pruner，移除窗口外的条目
func (d *Deduplicator) Prune() int {
	now := d.clock.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	removed := 0
	for _, key := range d.seen.Keys() {
		first, ok := d.seen.Peek(key)
		if ok && now.Sub(first) < d.window {
			break
		}
		d.seen.Remove(key)
		removed++
	}
	return removed
}

// Len 返回已见集合大小（可能包含尚未清理的过期条目）
func (d *Deduplicator) Len() int {
	return d.seen.Len()
}

// Reset 清空已见集合
func (d *Deduplicator) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen.Purge()
}

// ContentHash 计算信封的去重哈希
func ContentHash(env *types.MessageEnvelope) string {
	h := blake3.New(hashSize, nil)
	writeField(h, []byte(env.Metadata.MessageType))
	writeField(h, []byte(env.Routing.From.String()))
	writeField(h, []byte(env.Payload.Encoding))
	writeField(h, env.Payload.Content)
	return hex.EncodeToString(h.Sum(nil))
}

// writeField 写入带长度前缀的字段，避免字段拼接产生歧义
func writeField(h *blake3.Hasher, b []byte) {
	var prefix [8]byte
	binary.LittleEndian.PutUint64(prefix[:], uint64(len(b)))
	_, _ = h.Write(prefix[:])
	_, _ = h.Write(b)
}
