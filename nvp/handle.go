package nvp

import (
	"encoding/binary"
	"fmt"

	"github.com/cockroachdb/errors"
)

// RegionID is the provider-assigned identity of a region.
type RegionID uint32

// Kind tags which variant a Handle holds.
type Kind uint32

const (
	// KindInvalid is the zero Kind; a Handle with it names nothing.
	KindInvalid Kind = iota
	// KindRegion marks a whole-region handle.
	KindRegion
	// KindChunk marks a heap sub-allocation.
	KindChunk
)

func (k Kind) String() string {
	switch k {
	case KindRegion:
		return "region"
	case KindChunk:
		return "chunk"
	default:
		return "invalid"
	}
}

// HandleSize is the encoded size of a Handle.
const HandleSize = 16

// Handle is the persistable {id, offset, size} triple plus its kind tag.
//
// For chunks Offset is relative to the heap's data area. For whole regions
// Offset is always zero.
type Handle struct {
	Kind   Kind
	ID     RegionID
	Offset uint32
	Size   uint32
}

// IsZero reports whether h names nothing.
func (h Handle) IsZero() bool { return h.Kind == KindInvalid }

// AsRegion returns h as a RegionHandle.
func (h Handle) AsRegion() (RegionHandle, error) {
	if h.Kind != KindRegion {
		return RegionHandle{}, errors.Wrapf(ErrInvalidHandle, "%s handle used as region", h.Kind)
	}
	if h.Offset != 0 {
		return RegionHandle{}, errors.Wrapf(ErrInvalidHandle, "region handle with offset %d", h.Offset)
	}
	return RegionHandle{ID: h.ID, Size: h.Size}, nil
}

// AsChunk returns h as a ChunkHandle.
func (h Handle) AsChunk() (ChunkHandle, error) {
	if h.Kind != KindChunk {
		return ChunkHandle{}, errors.Wrapf(ErrInvalidHandle, "%s handle used as chunk", h.Kind)
	}
	return ChunkHandle{Heap: h.ID, Offset: h.Offset, Size: h.Size}, nil
}

// MarshalBinary encodes h as four little-endian uint32s: kind, id, offset, size.
func (h Handle) MarshalBinary() ([]byte, error) {
	b := make([]byte, HandleSize)
	h.Put(b)
	return b, nil
}

// Put writes the encoded handle into b, which must hold HandleSize bytes.
func (h Handle) Put(b []byte) {
	_ = b[HandleSize-1]
	binary.LittleEndian.PutUint32(b[0:], uint32(h.Kind))
	binary.LittleEndian.PutUint32(b[4:], uint32(h.ID))
	binary.LittleEndian.PutUint32(b[8:], h.Offset)
	binary.LittleEndian.PutUint32(b[12:], h.Size)
}

// UnmarshalBinary decodes a handle written by MarshalBinary.
func (h *Handle) UnmarshalBinary(b []byte) error {
	if len(b) < HandleSize {
		return errors.Wrapf(ErrInvalidHandle, "decode: %d bytes, need %d", len(b), HandleSize)
	}
	k := Kind(binary.LittleEndian.Uint32(b[0:]))
	if k != KindRegion && k != KindChunk {
		return errors.Wrapf(ErrInvalidHandle, "decode: unknown kind %d", k)
	}
	*h = Handle{
		Kind:   k,
		ID:     RegionID(binary.LittleEndian.Uint32(b[4:])),
		Offset: binary.LittleEndian.Uint32(b[8:]),
		Size:   binary.LittleEndian.Uint32(b[12:]),
	}
	return nil
}

func (h Handle) String() string {
	return fmt.Sprintf("%s{id=%d off=%d size=%d}", h.Kind, h.ID, h.Offset, h.Size)
}

// RegionHandle names a whole region. Only this kind may be released.
type RegionHandle struct {
	ID   RegionID
	Size uint32
}

// Handle returns the persistable form of r.
func (r RegionHandle) Handle() Handle {
	return Handle{Kind: KindRegion, ID: r.ID, Size: r.Size}
}

// ChunkHandle names Size bytes at Offset inside the data area of heap Heap.
// The reserved space is Size rounded up to whole chunks.
type ChunkHandle struct {
	Heap   RegionID
	Offset uint32
	Size   uint32
}

// Handle returns the persistable form of c.
func (c ChunkHandle) Handle() Handle {
	return Handle{Kind: KindChunk, ID: c.Heap, Offset: c.Offset, Size: c.Size}
}
