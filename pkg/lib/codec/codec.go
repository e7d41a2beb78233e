// Package codec 提供负载压缩编解码
//
// 转换阶段使用 zstd 压缩较大的负载，消费方通过 Decompress 还原。
// 编码器与解码器为进程级单例，EncodeAll/DecodeAll 可并发调用。
package codec

import (
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/dep2p/go-bridge/pkg/types"
)

// ErrUnknownCompression 未知压缩算法
var ErrUnknownCompression = errors.New("codec: unknown compression")

var (
	initOnce sync.Once
	encoder  *zstd.Encoder
	decoder  *zstd.Decoder
	initErr  error
)

func setup() error {
	initOnce.Do(func() {
		encoder, initErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if initErr != nil {
			return
		}
		decoder, initErr = zstd.NewReader(nil)
	})
	return initErr
}

// CompressBytes 使用 zstd 压缩字节
func CompressBytes(src []byte) ([]byte, error) {
	if err := setup(); err != nil {
		return nil, fmt.Errorf("codec: init zstd: %w", err)
	}
	return encoder.EncodeAll(src, make([]byte, 0, len(src)/2)), nil
}

// DecompressBytes 解压 zstd 字节
func DecompressBytes(src []byte) ([]byte, error) {
	if err := setup(); err != nil {
		return nil, fmt.Errorf("codec: init zstd: %w", err)
	}
	out, err := decoder.DecodeAll(src, nil)
	if err != nil {
		return nil, fmt.Errorf("codec: zstd decode: %w", err)
	}
	return out, nil
}

// Compress 压缩负载，已压缩的负载原样返回
func Compress(p types.Payload) (types.Payload, error) {
	if p.Compression != types.CompressionNone {
		return p, nil
	}
	data, err := CompressBytes(p.Content)
	if err != nil {
		return p, err
	}
	return types.Payload{Content: data, Encoding: p.Encoding, Compression: types.CompressionZstd}, nil
}

// Decompress 解压负载，未压缩的负载原样返回
func Decompress(p types.Payload) (types.Payload, error) {
	switch p.Compression {
	case types.CompressionNone:
		return p, nil
	case types.CompressionZstd:
		data, err := DecompressBytes(p.Content)
		if err != nil {
			return p, err
		}
		return types.Payload{Content: data, Encoding: p.Encoding}, nil
	default:
		return p, fmt.Errorf("%w: %q", ErrUnknownCompression, p.Compression)
	}
}
