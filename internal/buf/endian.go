// Package buf contains bounds-checked helpers for reading and writing
// fixed-width fields inside mapped regions.
package buf

import "encoding/binary"

// U32LE reads a little-endian uint32 from b. Returns 0 when b is too short.
func U32LE(b []byte) uint32 {
	if len(b) < 4 {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// PutU32LE writes v as a little-endian uint32 at b[off:off+4].
// It reports false, leaving b untouched, when the field does not fit.
func PutU32LE(b []byte, off int, v uint32) bool {
	field, ok := Slice(b, off, 4)
	if !ok {
		return false
	}
	binary.LittleEndian.PutUint32(field, v)
	return true
}

