package filter

import (
	"bytes"
	"context"
	"regexp"

	"github.com/dep2p/go-bridge/config"
	"github.com/dep2p/go-bridge/pkg/types"
)

// SanitizerName 净化阶段名称
const SanitizerName = "sanitize"

// maxStripPasses 剥离最多重复次数，处理嵌套构造的标记
const maxStripPasses = 4

var (
	// scriptBlock 完整的 <script>…</script> 块
	scriptBlock = regexp.MustCompile(`(?is)<\s*script\b[^>]*>.*?<\s*/\s*script\s*>`)

	// unsafeMarkers 单独出现的注入标记，内联 on*= 只在标签内匹配
	unsafeMarkers = []*regexp.Regexp{
		regexp.MustCompile(`(?i)<\s*/?\s*script\b[^>]*>?`),
		regexp.MustCompile(`(?i)<\s*/?\s*iframe\b[^>]*>?`),
		regexp.MustCompile(`(?i)javascript\s*:`),
		regexp.MustCompile(`(?i)<[^>]*\son[a-z]+\s*=`),
	}
)

// Sanitizer 扫描负载中的脚本注入标记
//
// 文本与 JSON 负载在 strip 模式下被改写；二进制与 MessagePack 负载
// 只扫描原始字节并打 FlagUnsafeContent。已压缩的负载跳过。
type Sanitizer struct {
	mode string
}

// NewSanitizer 创建净化阶段
func NewSanitizer(mode string) *Sanitizer {
	if mode == "" {
		mode = config.SanitizeStrip
	}
	return &Sanitizer{mode: mode}
}

// Name 实现 Stage
func (s *Sanitizer) Name() string { return SanitizerName }

// Process 实现 Stage
func (s *Sanitizer) Process(ctx context.Context, env *types.MessageEnvelope) Verdict {
	p := env.Payload
	if p.Compression != types.CompressionNone || !ContainsUnsafe(p.Content) {
		return VerdictPass
	}

	switch {
	case s.mode == config.SanitizeReject:
		logger.DebugContext(ctx, "不安全内容被拒绝", "from", env.Routing.From, "type", env.Metadata.MessageType)
		return VerdictFiltered
	case s.mode == config.SanitizeStrip && p.Encoding.IsTextual():
		env.SetPayload(types.Payload{
			Content:     Strip(p.Content),
			Encoding:    p.Encoding,
			Compression: p.Compression,
		})
		env.Flags |= types.FlagSanitized
	default:
		env.Flags |= types.FlagUnsafeContent
	}
	return VerdictPass
}

// ContainsUnsafe 是否含注入标记
func ContainsUnsafe(content []byte) bool {
	for _, re := range unsafeMarkers {
		if re.Match(content) {
			return true
		}
	}
	return false
}

// Strip 移除注入标记，返回新的字节切片
func Strip(content []byte) []byte {
	out := bytes.Clone(content)
	for pass := 0; pass < maxStripPasses && ContainsUnsafe(out); pass++ {
		out = scriptBlock.ReplaceAll(out, nil)
		for _, re := range unsafeMarkers {
			out = re.ReplaceAll(out, nil)
		}
	}
	return out
}
