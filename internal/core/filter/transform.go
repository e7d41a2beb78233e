package filter

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/dep2p/go-bridge/config"
	"github.com/dep2p/go-bridge/pkg/lib/codec"
	"github.com/dep2p/go-bridge/pkg/types"
)

// TransformerName 转换阶段名称
const TransformerName = "transform"

// Transformer 在放行前规范化并压缩负载
//
// 依次执行：MessagePack → JSON、JSON 去空白、超过阈值时 zstd 压缩。
// 任何一步失败都保留原负载，转换阶段从不丢弃消息。
type Transformer struct {
	cfg config.TransformConfig
}

// NewTransformer 创建转换阶段
func NewTransformer(cfg config.TransformConfig) *Transformer {
	return &Transformer{cfg: cfg}
}

// Name 实现 Stage
func (t *Transformer) Name() string { return TransformerName }

// Process 实现 Stage
func (t *Transformer) Process(ctx context.Context, env *types.MessageEnvelope) Verdict {
	p := env.Payload
	if p.Compression != types.CompressionNone {
		return VerdictPass
	}

	if t.cfg.NormalizeMsgpack && p.Encoding == types.EncodingMessagePack {
		if out, err := msgpackToJSON(p.Content); err != nil {
			logger.DebugContext(ctx, "msgpack 规范化失败", "id", env.Metadata.ID, "err", err)
		} else {
			p = types.Payload{Content: out, Encoding: types.EncodingJSON}
			env.Flags |= types.FlagNormalized
		}
	}

	if t.cfg.CompactJSON && p.Encoding == types.EncodingJSON {
		var buf bytes.Buffer
		if err := json.Compact(&buf, p.Content); err == nil && buf.Len() < len(p.Content) {
			p = types.Payload{Content: buf.Bytes(), Encoding: types.EncodingJSON}
			env.Flags |= types.FlagNormalized
		}
	}

	if t.cfg.CompressThreshold > 0 && p.Len() > t.cfg.CompressThreshold {
		if compressed, err := codec.Compress(p); err != nil {
			logger.DebugContext(ctx, "负载压缩失败", "id", env.Metadata.ID, "err", err)
		} else {
			p = compressed
			env.Flags |= types.FlagCompressed
		}
	}

	env.SetPayload(p)
	return VerdictPass
}

// msgpackToJSON 将 MessagePack 文档转换为 JSON
func msgpackToJSON(data []byte) ([]byte, error) {
	var v interface{}
	if err := msgpack.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}
