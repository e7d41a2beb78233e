package types

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// ============================================================================
//                              Payload - 消息负载
// ============================================================================

// Payload 不透明负载及其声明编码
type Payload struct {
	// Content 原始字节
	Content []byte

	// Encoding 声明编码
	Encoding Encoding

	// Compression 压缩算法（转换阶段设置）
	Compression Compression
}

// JSONPayload 将值编码为 JSON 负载
func JSONPayload(v any) (Payload, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Payload{}, fmt.Errorf("encode json payload: %w", err)
	}
	return Payload{Content: data, Encoding: EncodingJSON}, nil
}

// MsgpackPayload 将值编码为 MessagePack 负载
func MsgpackPayload(v any) (Payload, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return Payload{}, fmt.Errorf("encode msgpack payload: %w", err)
	}
	return Payload{Content: data, Encoding: EncodingMessagePack}, nil
}

// TextPayload 创建文本负载
func TextPayload(s string) Payload {
	return Payload{Content: []byte(s), Encoding: EncodingText}
}

// BinaryPayload 创建二进制负载
func BinaryPayload(b []byte) Payload {
	return Payload{Content: b, Encoding: EncodingBinary}
}

// Len 返回负载字节长度
func (p Payload) Len() int {
	return len(p.Content)
}

// Validate 校验负载编码
func (p Payload) Validate() error {
	if !p.Encoding.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidEncoding, p.Encoding)
	}
	return nil
}

// Decode 按声明编码解码负载
//
// text 负载解码到 *string，binary 负载解码到 *[]byte。
// 压缩过的负载需先通过 codec.Decompress 解压。
func (p Payload) Decode(v any) error {
	if p.Compression != CompressionNone {
		return ErrCompressedPayload
	}
	switch p.Encoding {
	case EncodingJSON:
		return json.Unmarshal(p.Content, v)
	case EncodingMessagePack:
		return msgpack.Unmarshal(p.Content, v)
	case EncodingText:
		s, ok := v.(*string)
		if !ok {
			return fmt.Errorf("%w: text payload decodes into *string, got %T", ErrInvalidEncoding, v)
		}
		*s = string(p.Content)
		return nil
	case EncodingBinary:
		b, ok := v.(*[]byte)
		if !ok {
			return fmt.Errorf("%w: binary payload decodes into *[]byte, got %T", ErrInvalidEncoding, v)
		}
		*b = append((*b)[:0], p.Content...)
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidEncoding, p.Encoding)
	}
}

// Clone 深拷贝负载
func (p Payload) Clone() Payload {
	if p.Content != nil {
		p.Content = append([]byte(nil), p.Content...)
	}
	return p
}
