package format

import (
	"github.com/cockroachdb/errors"

	"github.com/joshuapare/nvpkit/internal/buf"
)

// Header is the decoded fixed prefix of a heap region.
type Header struct {
	Magic     uint32
	Owner     uint32
	TotalSize uint32
}

// ParseHeader decodes and validates the heap header at the start of b.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, errors.Wrap(ErrTruncated, "heap header")
	}
	h := Header{
		Magic:     buf.U32LE(b[MagicOffset:]),
		Owner:     buf.U32LE(b[OwnerOffset:]),
		TotalSize: buf.U32LE(b[SizeOffset:]),
	}
	if h.Magic != HeapMagic {
		return h, errors.Wrapf(ErrSignatureMismatch, "heap header: magic %#08x", h.Magic)
	}
	return h, nil
}

// PutHeader writes the magic, owner id and total size into b.
func PutHeader(b []byte, owner, totalSize uint32) error {
	if len(b) < HeaderSize {
		return errors.Wrap(ErrTruncated, "heap header")
	}
	buf.PutU32LE(b, MagicOffset, HeapMagic)
	buf.PutU32LE(b, OwnerOffset, owner)
	buf.PutU32LE(b, SizeOffset, totalSize)
	return nil
}

// ValidateSanity checks a parsed header against the region it was read from.
func (h Header) ValidateSanity(owner uint32, mappedLen int) error {
	if h.Owner != owner {
		return errors.Wrapf(ErrOwnerMismatch, "heap header: owner %d, want %d", h.Owner, owner)
	}
	if int64(h.TotalSize) > int64(mappedLen) {
		return errors.Wrapf(ErrSizeMismatch, "heap header: size %d exceeds mapping of %d bytes",
			h.TotalSize, mappedLen)
	}
	if _, err := ComputeLayout(int(h.TotalSize)); err != nil {
		return err
	}
	return nil
}
