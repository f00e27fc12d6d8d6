package pool

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestByteBufferWrite(t *testing.T) {
	bb := NewByteBuffer(16)
	n, err := bb.Write([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, []byte("hello"), bb.Bytes())
	require.Equal(t, 5, bb.Len())

	bb.Reset()
	require.Zero(t, bb.Len())
	require.GreaterOrEqual(t, bb.Cap(), 16)
}

func TestByteBufferWriteTo(t *testing.T) {
	bb := NewByteBuffer(16)
	_, err := bb.Write([]byte("payload"))
	require.NoError(t, err)

	var sink bytes.Buffer
	n, err := bb.WriteTo(&sink)
	require.NoError(t, err)
	require.Equal(t, int64(7), n)
	require.Equal(t, "payload", sink.String())
}

func TestByteBufferPoolReuse(t *testing.T) {
	p := NewByteBufferPool(32, 1024)

	bb := p.Get()
	require.NotNil(t, bb)
	_, _ = bb.Write([]byte("scratch"))
	p.Put(bb)

	bb2 := p.Get()
	require.Zero(t, bb2.Len(), "pooled buffer must come back reset")
}

func TestByteBufferPoolDiscardsOversized(t *testing.T) {
	p := NewByteBufferPool(8, 16)

	bb := p.Get()
	bb.B = make([]byte, 0, 64) // exceeds threshold
	p.Put(bb)                  // should be discarded, not pooled

	bb2 := p.Get()
	require.LessOrEqual(t, bb2.Cap(), 16)
}

func TestDefaultArchivePool(t *testing.T) {
	bb := GetArchiveBuffer()
	require.NotNil(t, bb)
	require.Zero(t, bb.Len())
	PutArchiveBuffer(bb)
	PutArchiveBuffer(nil) // must not panic
}
