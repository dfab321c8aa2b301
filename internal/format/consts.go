// Package format houses the on-media layout of a persistent heap region:
// the fixed header, the allocation bitmap and the chunked data area. It is
// kept free of allocator policy so higher-level packages decide how the
// bitmap is searched and mutated.
package format

// HeapMagic marks a region as a formatted heap. It is stored little-endian at
// offset 0 of the region.
const HeapMagic uint32 = 0x5A1AA1A5

// Header field offsets.
//
//	Offset  Size  Description
//	------  ----  ------------------------------------------------
//	 0x00    4    HeapMagic
//	 0x04    4    Owning region id
//	 0x08    4    Total region size in bytes
//	 0x0C    n    Allocation bitmap, n = ceil(chunks/8)
//	 0x0C+n  ...  Chunk data area
const (
	MagicOffset = 0x00
	OwnerOffset = 0x04
	SizeOffset  = 0x08

	// HeaderSize is the number of bytes preceding the bitmap.
	HeaderSize = 0x0C

	// BitmapOffset is where the allocation bitmap starts.
	BitmapOffset = HeaderSize
)

const (
	// ChunkSize is the allocation granularity of the data area.
	ChunkSize = 128

	// MinHeapSize is the smallest heap that will be created. Smaller requests
	// are raised to this value.
	MinHeapSize = 131072

	// bitsPerChunk is the bitmap cost plus the data cost of one chunk, in bits.
	bitsPerChunk = ChunkSize*8 + 1
)
