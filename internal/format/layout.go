package format

import (
	"github.com/cockroachdb/errors"

	"github.com/joshuapare/nvpkit/internal/buf"
)

// Layout locates the bitmap and data area of a heap of a given total size.
// It is derived from TotalSize alone, so it never changes after creation.
type Layout struct {
	TotalSize int
	Chunks    int // number of chunks, one bitmap bit each
	BitmapOff int
	BitmapLen int // ceil(Chunks/8)
	DataOff   int
	DataLen   int // Chunks * ChunkSize
}

// ComputeLayout derives the layout of a heap of totalSize bytes.
//
// The chunk count is the largest n with n bitmap bits plus n chunks fitting
// after the header: floor((totalSize-HeaderSize)*8 / (ChunkSize*8+1)).
func ComputeLayout(totalSize int) (Layout, error) {
	if totalSize < HeaderSize {
		return Layout{}, errors.Wrapf(ErrTruncated, "heap layout: size %d", totalSize)
	}
	bitsAvail, ok := buf.Mul(totalSize-HeaderSize, 8)
	if !ok {
		return Layout{}, errors.Wrapf(ErrTruncated, "heap layout: size %d overflows", totalSize)
	}
	chunks := bitsAvail / bitsPerChunk
	if chunks == 0 {
		return Layout{}, errors.Wrapf(ErrTruncated, "heap layout: size %d holds no chunk", totalSize)
	}
	bitmapLen := buf.CeilDiv(chunks, 8)
	dataLen, ok := buf.Mul(chunks, ChunkSize)
	if !ok {
		return Layout{}, errors.Wrapf(ErrTruncated, "heap layout: %d chunks overflow", chunks)
	}
	return Layout{
		TotalSize: totalSize,
		Chunks:    chunks,
		BitmapOff: BitmapOffset,
		BitmapLen: bitmapLen,
		DataOff:   BitmapOffset + bitmapLen,
		DataLen:   dataLen,
	}, nil
}

// ClampHeapSize raises size to MinHeapSize.
func ClampHeapSize(size int) int {
	if size < MinHeapSize {
		return MinHeapSize
	}
	return size
}

// ChunksFor returns how many chunks a request of size bytes occupies.
func ChunksFor(size int) int {
	return buf.CeilDiv(size, ChunkSize)
}

// Bitmap returns the bitmap bytes of region b.
func (l Layout) Bitmap(b []byte) ([]byte, bool) {
	return buf.Slice(b, l.BitmapOff, l.BitmapLen)
}

// Data returns the data area of region b.
func (l Layout) Data(b []byte) ([]byte, bool) {
	return buf.Slice(b, l.DataOff, l.DataLen)
}
