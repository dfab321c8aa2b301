// Package heap turns a region into a chunked persistent heap.
//
// # Layout
//
// A heap region starts with a 12-byte header (magic, owning region id, total
// size), followed by an allocation bitmap with one bit per chunk and then the
// chunk data area. Chunks are format.ChunkSize bytes. The layout is derived
// from the recorded total size alone, so a heap reopened in a later process
// sees exactly the same chunk boundaries.
//
// # Allocation
//
// Alloc is first-fit: it reserves the lowest-index run of free chunks long
// enough for the request. Free takes back the run described by a handle and
// rejects handles for other heaps, misaligned offsets and runs that are not
// fully allocated. Neither operation moves data.
//
// # Persistence
//
// Every bitmap or header mutation is recorded in a dirty.Tracker. Sync adds
// the data of every allocated chunk, so bytes written through a Resolve
// slice are covered, and hands the coalesced ranges to the provider's Flush.
// Nothing is persisted implicitly, so a crash between Alloc and Sync loses
// that allocation.
//
// Close must be called before the region is unmapped. A closed heap fails
// every call that would touch the mapping with nvp.ErrClosed.
//
// # Usage Example
//
//	c := cache.New()
//	h, err := heap.Open(p, c, 7, 1<<20, heap.Options{})
//	if err != nil {
//	    return err
//	}
//	ch, err := h.AllocWithData([]byte("hello"))
//	if err != nil {
//	    return err
//	}
//	if err := h.Sync(ctx); err != nil {
//	    return err
//	}
//	buf, _ := h.Resolve(ch) // "hello"
package heap
