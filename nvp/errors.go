package nvp

import "github.com/cockroachdb/errors"

var (
	// ErrNotFound indicates a region or cache entry is absent.
	ErrNotFound = errors.New("nvp: not found")

	// ErrDuplicate indicates a region or cache entry already exists.
	ErrDuplicate = errors.New("nvp: duplicate region")

	// ErrCorruptedHeap indicates a heap region failed header validation.
	ErrCorruptedHeap = errors.New("nvp: corrupted heap")

	// ErrOutOfSpace indicates no run of free chunks is large enough.
	ErrOutOfSpace = errors.New("nvp: heap out of space")

	// ErrInvalidArgument indicates a missing handle or a non-positive size.
	ErrInvalidArgument = errors.New("nvp: invalid argument")

	// ErrDoubleFree indicates a chunk run that is not fully allocated was freed.
	ErrDoubleFree = errors.New("nvp: double free")

	// ErrInvalidHandle indicates a handle of the wrong kind, for another heap,
	// or describing a run outside the heap.
	ErrInvalidHandle = errors.New("nvp: invalid handle")

	// ErrRegionBusy indicates another process holds the region's writer lock.
	ErrRegionBusy = errors.New("nvp: region held by another writer")

	// ErrNoHeap indicates no heap has been initialized on the directory.
	ErrNoHeap = errors.New("nvp: no heap initialized")

	// ErrClosed indicates the directory, provider or heap was closed.
	ErrClosed = errors.New("nvp: closed")
)
