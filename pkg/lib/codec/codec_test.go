package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-bridge/pkg/types"
)

func TestCompress_RoundTrip(t *testing.T) {
	original := types.TextPayload(string(bytes.Repeat([]byte("service bridge "), 200)))

	compressed, err := Compress(original)
	require.NoError(t, err)
	assert.Equal(t, types.CompressionZstd, compressed.Compression)
	assert.Equal(t, types.EncodingText, compressed.Encoding)
	assert.Less(t, compressed.Len(), original.Len())

	again, err := Compress(compressed)
	require.NoError(t, err)
	assert.Equal(t, compressed, again, "already compressed payload is untouched")

	restored, err := Decompress(compressed)
	require.NoError(t, err)
	assert.Equal(t, original.Content, restored.Content)
	assert.Equal(t, types.CompressionNone, restored.Compression)
}

func TestDecompress_Plain(t *testing.T) {
	p := types.TextPayload("plain")
	out, err := Decompress(p)
	require.NoError(t, err)
	assert.Equal(t, p, out)
}

func TestDecompress_Errors(t *testing.T) {
	_, err := Decompress(types.Payload{Content: []byte("x"), Encoding: types.EncodingText, Compression: "lzma"})
	assert.ErrorIs(t, err, ErrUnknownCompression)

	_, err = Decompress(types.Payload{Content: []byte("not zstd"), Encoding: types.EncodingText, Compression: types.CompressionZstd})
	assert.Error(t, err)
}
