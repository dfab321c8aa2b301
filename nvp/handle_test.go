package nvp

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestHandle_KindConversions(t *testing.T) {
	r := RegionHandle{ID: 9, Size: 4096}
	h := r.Handle()
	require.Equal(t, KindRegion, h.Kind)
	require.Zero(t, h.Offset)

	back, err := h.AsRegion()
	require.NoError(t, err)
	require.Equal(t, r, back)

	_, err = h.AsChunk()
	require.True(t, errors.Is(err, ErrInvalidHandle), "region handle must not convert to chunk")

	c := ChunkHandle{Heap: 9, Offset: 256, Size: 129}
	_, err = c.Handle().AsRegion()
	require.True(t, errors.Is(err, ErrInvalidHandle), "chunk handle must not convert to region")

	var zero Handle
	require.True(t, zero.IsZero())
	_, err = zero.AsRegion()
	require.Error(t, err)
}

func TestHandle_RegionWithOffsetRejected(t *testing.T) {
	h := Handle{Kind: KindRegion, ID: 1, Offset: 128, Size: 10}
	_, err := h.AsRegion()
	require.True(t, errors.Is(err, ErrInvalidHandle))
}

func TestHandle_Binary(t *testing.T) {
	c := ChunkHandle{Heap: 0x01020304, Offset: 384, Size: 200}
	raw, err := c.Handle().MarshalBinary()
	require.NoError(t, err)
	require.Len(t, raw, HandleSize)
	require.Equal(t, []byte{2, 0, 0, 0, 4, 3, 2, 1}, raw[:8])

	var h Handle
	require.NoError(t, h.UnmarshalBinary(raw))
	got, err := h.AsChunk()
	require.NoError(t, err)
	require.Equal(t, c, got)
}

func TestHandle_UnmarshalErrors(t *testing.T) {
	var h Handle
	require.True(t, errors.Is(h.UnmarshalBinary(make([]byte, 8)), ErrInvalidHandle))
	// Kind zero is never written by MarshalBinary.
	require.True(t, errors.Is(h.UnmarshalBinary(make([]byte, HandleSize)), ErrInvalidHandle))
}

func TestHandle_String(t *testing.T) {
	h := ChunkHandle{Heap: 3, Offset: 128, Size: 5}.Handle()
	require.Equal(t, "chunk{id=3 off=128 size=5}", h.String())
}
