package nvp

import (
	core "github.com/joshuapare/nvpkit/nvp"
)

// Handle types, re-exported so callers need a single import.
type (
	RegionID     = core.RegionID
	Handle       = core.Handle
	RegionHandle = core.RegionHandle
	ChunkHandle  = core.ChunkHandle
	Provider     = core.Provider
)

// Handle kinds.
const (
	KindInvalid = core.KindInvalid
	KindRegion  = core.KindRegion
	KindChunk   = core.KindChunk
)

// Errors returned by Directory operations. Test with errors.Is.
var (
	ErrNotFound        = core.ErrNotFound
	ErrDuplicate       = core.ErrDuplicate
	ErrCorruptedHeap   = core.ErrCorruptedHeap
	ErrOutOfSpace      = core.ErrOutOfSpace
	ErrInvalidArgument = core.ErrInvalidArgument
	ErrDoubleFree      = core.ErrDoubleFree
	ErrInvalidHandle   = core.ErrInvalidHandle
	ErrRegionBusy      = core.ErrRegionBusy
	ErrNoHeap          = core.ErrNoHeap
	ErrClosed          = core.ErrClosed
)
