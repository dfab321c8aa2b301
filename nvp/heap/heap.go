package heap

import (
	"context"
	"log/slog"
	"math"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/joshuapare/nvpkit/internal/bitmap"
	"github.com/joshuapare/nvpkit/internal/buf"
	"github.com/joshuapare/nvpkit/internal/format"
	"github.com/joshuapare/nvpkit/nvp"
	"github.com/joshuapare/nvpkit/nvp/cache"
	"github.com/joshuapare/nvpkit/nvp/dirty"
)

// Heap is a first-fit chunk allocator over one mapped region.
// It is safe for concurrent use.
type Heap struct {
	id     nvp.RegionID
	p      nvp.Provider
	region []byte
	layout format.Layout
	data   []byte
	dt     *dirty.Tracker
	log    *slog.Logger

	mu     sync.Mutex // guards bits, stats and closed
	bits   bitmap.View
	stats  counters
	closed bool
}

type counters struct {
	allocs   uint64
	frees    uint64
	failures uint64
}

// Open returns the heap stored in region id, formatting a new one when the
// region does not exist yet.
//
// An existing region is resolved through c (attaching and caching it on a
// miss) and its header is validated; a bad magic, a foreign owner id or a
// recorded size that does not fit the mapping fails with nvp.ErrCorruptedHeap
// and leaves the region mapped for inspection.
//
// A new region is created with size bytes, raised to format.MinHeapSize,
// stamped with the header, given an all-free bitmap and cached.
func Open(p nvp.Provider, c *cache.Cache, id nvp.RegionID, size int, opts Options) (*Heap, error) {
	if p == nil || c == nil {
		return nil, errors.Wrap(nvp.ErrInvalidArgument, "heap: nil provider or cache")
	}
	log := opts.logger().With("heap", id)

	_, exists, err := p.Exists(id)
	if err != nil {
		return nil, errors.Wrapf(err, "heap %d", id)
	}
	if exists {
		return openExisting(p, c, id, opts, log)
	}
	return create(p, c, id, size, opts, log)
}

func openExisting(p nvp.Provider, c *cache.Cache, id nvp.RegionID, opts Options, log *slog.Logger) (*Heap, error) {
	region, err := c.LookupOrAttach(p, id)
	if err != nil {
		return nil, errors.Wrapf(err, "heap %d", id)
	}

	hdr, err := format.ParseHeader(region)
	if err == nil {
		err = hdr.ValidateSanity(uint32(id), len(region))
	}
	if err != nil {
		log.Warn("heap header rejected", "err", err)
		return nil, corrupted(id, err)
	}

	layout, err := format.ComputeLayout(int(hdr.TotalSize))
	if err != nil {
		return nil, corrupted(id, err)
	}
	h, err := newHeap(id, p, region, layout, opts, log)
	if err != nil {
		return nil, err
	}
	log.Info("heap recovered",
		"size", layout.TotalSize, "chunks", layout.Chunks, "used", h.bits.Count())
	return h, nil
}

func create(p nvp.Provider, c *cache.Cache, id nvp.RegionID, size int, opts Options, log *slog.Logger) (*Heap, error) {
	size = format.ClampHeapSize(size)
	if uint64(size) > math.MaxUint32 {
		return nil, errors.Wrapf(nvp.ErrInvalidArgument, "heap %d: size %d exceeds 4GiB", id, size)
	}
	layout, err := format.ComputeLayout(size)
	if err != nil {
		return nil, errors.Wrapf(err, "heap %d", id)
	}

	region, err := p.CreateAndMap(id, size)
	if err != nil {
		return nil, errors.Wrapf(err, "heap %d", id)
	}
	if err := format.PutHeader(region, uint32(id), uint32(size)); err != nil {
		return nil, errors.Wrapf(err, "heap %d", id)
	}
	h, err := newHeap(id, p, region, layout, opts, log)
	if err != nil {
		return nil, err
	}
	h.bits.Zero()
	h.dt.Add(0, layout.DataOff)

	if err := c.Insert(id, 0, uint32(size), region); err != nil {
		if derr := p.Destroy(id); derr != nil {
			err = errors.WithSecondaryError(err, derr)
		}
		return nil, errors.Wrapf(err, "heap %d", id)
	}
	log.Info("heap formatted", "size", size, "chunks", layout.Chunks)
	return h, nil
}

func newHeap(id nvp.RegionID, p nvp.Provider, region []byte, layout format.Layout, opts Options, log *slog.Logger) (*Heap, error) {
	bm, ok := layout.Bitmap(region)
	if !ok {
		return nil, corrupted(id, errors.Wrap(format.ErrTruncated, "bitmap"))
	}
	data, ok := layout.Data(region)
	if !ok {
		return nil, corrupted(id, errors.Wrap(format.ErrTruncated, "data area"))
	}
	bits, ok := bitmap.New(bm, layout.Chunks)
	if !ok {
		return nil, corrupted(id, errors.Wrap(format.ErrTruncated, "bitmap"))
	}
	dt := opts.Tracker
	if dt == nil {
		dt = dirty.NewTracker(len(region))
	}
	return &Heap{
		id:     id,
		p:      p,
		region: region,
		layout: layout,
		data:   data,
		dt:     dt,
		log:    log,
		bits:   bits,
	}, nil
}

func corrupted(id nvp.RegionID, err error) error {
	return errors.Mark(errors.Wrapf(err, "heap %d", id), nvp.ErrCorruptedHeap)
}

// ID returns the region id the heap lives in.
func (h *Heap) ID() nvp.RegionID { return h.id }

// Layout returns the heap's on-media layout.
func (h *Heap) Layout() format.Layout { return h.layout }

// Close marks the heap closed. Every later call that touches the region
// fails with nvp.ErrClosed. It must happen before the region is unmapped;
// slices returned by Resolve are invalid from then on.
func (h *Heap) Close() {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
}

func (h *Heap) errClosed() error {
	return errors.Wrapf(nvp.ErrClosed, "heap %d", h.id)
}

// Alloc reserves ceil(size/ChunkSize) contiguous chunks at the lowest index
// where they fit.
func (h *Heap) Alloc(size int) (nvp.ChunkHandle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.allocLocked(size)
}

func (h *Heap) allocLocked(size int) (nvp.ChunkHandle, error) {
	if h.closed {
		return nvp.ChunkHandle{}, h.errClosed()
	}
	if size <= 0 {
		return nvp.ChunkHandle{}, errors.Wrapf(nvp.ErrInvalidArgument, "heap %d: alloc %d bytes", h.id, size)
	}
	n := format.ChunksFor(size)

	start := h.bits.FirstFit(n)
	if start < 0 {
		h.stats.failures++
		h.log.Warn("heap exhausted", "size", size, "chunks", n)
		return nvp.ChunkHandle{}, errors.Wrapf(nvp.ErrOutOfSpace, "heap %d: %d bytes (%d chunks)", h.id, size, n)
	}
	off, ok := buf.Mul(start, format.ChunkSize)
	if !ok || uint64(off) > math.MaxUint32 {
		return nvp.ChunkHandle{}, errors.Wrapf(nvp.ErrOutOfSpace, "heap %d: chunk %d beyond 4GiB", h.id, start)
	}
	h.bits.SetRange(start, n)
	h.markBits(start, n)
	h.stats.allocs++

	return nvp.ChunkHandle{
		Heap:   h.id,
		Offset: uint32(off),
		Size:   uint32(size),
	}, nil
}

// Free returns the chunks described by c to the heap. On error no bit changes.
func (h *Heap) Free(c nvp.ChunkHandle) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return h.errClosed()
	}
	start, n, err := h.run(c)
	if err != nil {
		return err
	}

	if !h.bits.AllSet(start, n) {
		state := "partially free"
		if h.bits.AllClear(start, n) {
			state = "already free"
		}
		return errors.Wrapf(nvp.ErrDoubleFree, "heap %d: chunks [%d,+%d) %s", h.id, start, n, state)
	}
	h.bits.ClearRange(start, n)
	h.markBits(start, n)
	h.stats.frees++
	return nil
}

// Resolve returns the Size bytes at Offset in the data area. The slice
// aliases the mapping and is valid until the heap is closed. Bytes written
// through it are persisted by the next Sync while the chunk stays allocated.
func (h *Heap) Resolve(c nvp.ChunkHandle) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, h.errClosed()
	}
	if _, _, err := h.run(c); err != nil {
		return nil, err
	}
	b, ok := buf.Slice(h.data, int(c.Offset), int(c.Size))
	if !ok {
		return nil, errors.Wrapf(nvp.ErrInvalidHandle, "heap %d: %s", h.id, c.Handle())
	}
	return b, nil
}

// AllocWithData allocates len(b) bytes and copies b into them.
func (h *Heap) AllocWithData(b []byte) (nvp.ChunkHandle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, err := h.allocLocked(len(b))
	if err != nil {
		return nvp.ChunkHandle{}, err
	}
	copy(h.data[c.Offset:], b)
	h.dt.Add(h.layout.DataOff+int(c.Offset), len(b))
	return c, nil
}

// WriteAt copies p into the chunk at off and marks the bytes dirty. The chunk
// must be allocated and p must fit within c.Size.
func (h *Heap) WriteAt(c nvp.ChunkHandle, p []byte, off int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return h.errClosed()
	}
	start, n, err := h.run(c)
	if err != nil {
		return err
	}
	end, ok := buf.Add(off, len(p))
	if !ok || end > int(c.Size) {
		return errors.Wrapf(nvp.ErrInvalidArgument, "heap %d: write [%d,+%d) into %d bytes", h.id, off, len(p), c.Size)
	}
	if !h.bits.AllSet(start, n) {
		return errors.Wrapf(nvp.ErrInvalidHandle, "heap %d: %s not allocated", h.id, c.Handle())
	}

	copy(h.data[int(c.Offset)+off:], p)
	h.dt.Add(h.layout.DataOff+int(c.Offset)+off, len(p))
	return nil
}

// Allocated reports whether every chunk covered by c is allocated.
func (h *Heap) Allocated(c nvp.ChunkHandle) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false, h.errClosed()
	}
	start, n, err := h.run(c)
	if err != nil {
		return false, err
	}
	return h.bits.AllSet(start, n), nil
}

// Runs calls fn for each maximal run of equally allocated chunks, in order,
// until fn returns false. fn runs with the heap locked and must not call
// back into it.
func (h *Heap) Runs(fn func(start, count int, used bool) bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return h.errClosed()
	}
	h.eachRun(fn)
	return nil
}

func (h *Heap) eachRun(fn func(start, count int, used bool) bool) {
	total := h.bits.Len()
	for i := 0; i < total; {
		used := h.bits.Get(i)
		j := i + 1
		for j < total && h.bits.Get(j) == used {
			j++
		}
		if !fn(i, j-i, used) {
			return
		}
		i = j
	}
}

// Sync flushes the header and bitmap changes, plus the data of every
// allocated chunk, through the provider. Data written through a slice from
// Resolve is covered even though the heap never saw the write.
func (h *Heap) Sync(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return h.errClosed()
	}

	h.eachRun(func(start, count int, used bool) bool {
		if used {
			h.dt.Add(h.layout.DataOff+start*format.ChunkSize, count*format.ChunkSize)
		}
		return true
	})
	err := h.dt.Flush(ctx, func(off, n int) error {
		return h.p.Flush(h.id, off, n)
	})
	if err != nil {
		return errors.Wrapf(err, "heap %d: sync", h.id)
	}
	return nil
}

// Dirty reports whether the heap has unflushed header, bitmap or WriteAt
// changes.
func (h *Heap) Dirty() bool { return h.dt.Pending() }

// run validates the shape of c against this heap and returns the chunk run
// it covers. h.mu must be held.
func (h *Heap) run(c nvp.ChunkHandle) (start, n int, err error) {
	switch {
	case c.Heap != h.id:
		return 0, 0, errors.Wrapf(nvp.ErrInvalidHandle, "heap %d: handle names heap %d", h.id, c.Heap)
	case c.Size == 0:
		return 0, 0, errors.Wrapf(nvp.ErrInvalidHandle, "heap %d: zero-size handle", h.id)
	case c.Offset%format.ChunkSize != 0:
		return 0, 0, errors.Wrapf(nvp.ErrInvalidHandle, "heap %d: offset %d not chunk aligned", h.id, c.Offset)
	}
	start = int(c.Offset / format.ChunkSize)
	n = format.ChunksFor(int(c.Size))
	if !h.bits.InRange(start, n) {
		return 0, 0, errors.Wrapf(nvp.ErrInvalidHandle, "heap %d: chunks [%d,+%d) outside %d", h.id, start, n, h.bits.Len())
	}
	return start, n, nil
}

// markBits records the bitmap bytes covering chunks [start, start+n) as dirty.
func (h *Heap) markBits(start, n int) {
	first := start / 8
	last := (start + n - 1) / 8
	h.dt.Add(h.layout.BitmapOff+first, last-first+1)
}
