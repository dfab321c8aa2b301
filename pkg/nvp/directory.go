package nvp

import (
	"context"
	"io"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"golang.org/x/sync/errgroup"

	"github.com/joshuapare/nvpkit/nvp/cache"
	"github.com/joshuapare/nvpkit/nvp/heap"
	"github.com/joshuapare/nvpkit/nvp/provider"
)

// Directory resolves handles against one provider. It is safe for
// concurrent use.
type Directory struct {
	p     Provider
	owned io.Closer // provider opened by OpenDir, closed with the directory
	cache *cache.Cache
	log   *slog.Logger

	mu      sync.RWMutex // held for reading across calls into an open heap
	heaps   *swiss.Map[RegionID, *heap.Heap]
	current *heap.Heap
	closed  bool
}

// New returns a Directory over opts.Provider.
func New(opts Options) *Directory {
	p := opts.Provider
	if p == nil {
		p = provider.NewMem()
	}
	return &Directory{
		p:     p,
		cache: cache.New(),
		log:   opts.logger(),
		heaps: swiss.NewMap[RegionID, *heap.Heap](4),
	}
}

// OpenDir returns a Directory backed by one file per region under dir.
// opts.Provider is ignored. Close releases the files and their locks.
func OpenDir(dir string, opts Options) (*Directory, error) {
	fp, err := provider.NewFile(provider.FileOptions{Dir: dir, Logger: opts.logger()})
	if err != nil {
		return nil, err
	}
	opts.Provider = fp
	d := New(opts)
	d.owned = fp
	return d, nil
}

// Provider returns the backing provider.
func (d *Directory) Provider() Provider { return d.p }

// CreateRegion creates and maps a region of exactly size bytes.
func (d *Directory) CreateRegion(id RegionID, size int) (RegionHandle, error) {
	if size <= 0 || uint64(size) > math.MaxUint32 {
		return RegionHandle{}, errors.Wrapf(ErrInvalidArgument, "create region %d: size %d", id, size)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return RegionHandle{}, ErrClosed
	}

	data, err := d.p.CreateAndMap(id, size)
	if err != nil {
		return RegionHandle{}, errors.Wrapf(err, "create region %d", id)
	}
	if err := d.cache.Insert(id, 0, uint32(size), data); err != nil {
		if derr := d.p.Destroy(id); derr != nil {
			err = errors.WithSecondaryError(err, derr)
		}
		return RegionHandle{}, errors.Wrapf(err, "create region %d", id)
	}
	d.log.Debug("region created", "region", id, "size", size)
	return RegionHandle{ID: id, Size: uint32(size)}, nil
}

// Resolve returns the current mapping of the region h names. The result is
// the start of the region; Offset is not applied. Use ResolveChunk for the
// bytes of a chunk.
func (d *Directory) Resolve(h Handle) ([]byte, error) {
	if h.IsZero() {
		return nil, errors.Wrap(ErrInvalidArgument, "resolve: zero handle")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}

	_, cached := d.cache.Lookup(h.ID)
	data, err := d.cache.LookupOrAttach(d.p, h.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", h)
	}
	if !cached {
		d.log.Debug("region attached", "region", h.ID, "size", len(data))
	}
	return data, nil
}

// ReleaseRegion closes any heap in the region, drops its cache entry and
// destroys it in the provider. A *heap.Heap obtained for the region fails
// with ErrClosed afterwards; slices obtained for it must not be used.
func (d *Directory) ReleaseRegion(r RegionHandle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}

	d.dropHeap(r.ID)
	if err := d.cache.Remove(r.ID); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if err := d.p.Destroy(r.ID); err != nil {
		return errors.Wrapf(err, "release region %d", r.ID)
	}
	d.log.Debug("region destroyed", "region", r.ID)
	return nil
}

// Detach syncs any heap in the region, closes it, then unmaps the region and
// drops its cache entry. The region's storage is kept and a later Resolve or
// InitHeap maps it again, possibly at a different address.
func (d *Directory) Detach(r RegionHandle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	return d.detachLocked(context.Background(), r.ID)
}

func (d *Directory) detachLocked(ctx context.Context, id RegionID) error {
	if h, ok := d.heaps.Get(id); ok {
		if err := h.Sync(ctx); err != nil {
			return err
		}
		d.dropHeap(id)
	}
	if err := d.cache.Remove(id); err != nil {
		return errors.Wrapf(err, "detach region %d", id)
	}
	if err := d.p.Detach(id); err != nil {
		return errors.Wrapf(err, "detach region %d", id)
	}
	d.log.Debug("region detached", "region", id)
	return nil
}

// dropHeap closes and forgets the heap in region id. It must run before the
// region is unmapped. d.mu must be held.
func (d *Directory) dropHeap(id RegionID) {
	h, ok := d.heaps.Get(id)
	if !ok {
		return
	}
	h.Close()
	d.heaps.Delete(id)
	if d.current == h {
		d.current = nil
	}
}

// InitHeap opens the heap in region id, formatting the region with size
// bytes (at least 131072) when it does not exist. The heap becomes the
// directory's current heap. Calling it again for the same id returns the
// same *heap.Heap and does not touch the region.
func (d *Directory) InitHeap(id RegionID, size int) (*heap.Heap, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}

	if h, ok := d.heaps.Get(id); ok {
		d.current = h
		return h, nil
	}
	h, err := heap.Open(d.p, d.cache, id, size, heap.Options{Logger: d.log})
	if err != nil {
		return nil, err
	}
	d.heaps.Put(id, h)
	d.current = h
	return h, nil
}

// Heap returns the open heap in region id.
func (d *Directory) Heap(id RegionID) (*heap.Heap, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.heapLocked(id)
}

func (d *Directory) heapLocked(id RegionID) (*heap.Heap, error) {
	if d.closed {
		return nil, ErrClosed
	}
	h, ok := d.heaps.Get(id)
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "heap %d not open", id)
	}
	return h, nil
}

// CreateWithData allocates len(b) bytes in the current heap and copies b
// into them. It fails with ErrNoHeap before the first InitHeap.
func (d *Directory) CreateWithData(b []byte) (ChunkHandle, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ChunkHandle{}, ErrClosed
	}
	if d.current == nil {
		return ChunkHandle{}, ErrNoHeap
	}
	return d.current.AllocWithData(b)
}

// Free returns a chunk to its heap.
func (d *Directory) Free(c ChunkHandle) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	h, err := d.heapLocked(c.Heap)
	if err != nil {
		return err
	}
	return h.Free(c)
}

// ResolveChunk returns the bytes of a chunk. Writes through the slice are
// persisted by the next Sync while the chunk stays allocated.
func (d *Directory) ResolveChunk(c ChunkHandle) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	h, err := d.heapLocked(c.Heap)
	if err != nil {
		return nil, err
	}
	return h.Resolve(c)
}

// Sync flushes every open heap and every other mapped region. Regions
// without a heap are flushed whole, since writes to them are not tracked.
func (d *Directory) Sync(ctx context.Context) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	heaps := d.openHeaps()
	var raw []cache.Entry
	d.cache.Ascend(func(e cache.Entry) bool {
		if _, ok := d.heaps.Get(e.ID); !ok {
			raw = append(raw, e)
		}
		return true
	})

	g, ctx := errgroup.WithContext(ctx)
	for _, h := range heaps {
		g.Go(func() error { return h.Sync(ctx) })
	}
	for _, e := range raw {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := d.p.Flush(e.ID, 0, len(e.Data)); err != nil {
				return errors.Wrapf(err, "sync region %d", e.ID)
			}
			return nil
		})
	}
	return g.Wait()
}

// openHeaps returns the open heaps in ascending id order. d.mu must be held.
func (d *Directory) openHeaps() []*heap.Heap {
	heaps := make([]*heap.Heap, 0, d.heaps.Count())
	d.heaps.Iter(func(_ RegionID, h *heap.Heap) bool {
		heaps = append(heaps, h)
		return false
	})
	sort.Slice(heaps, func(i, j int) bool { return heaps[i].ID() < heaps[j].ID() })
	return heaps
}

// Stats returns the statistics of every open heap in ascending id order.
func (d *Directory) Stats() []heap.Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()
	heaps := d.openHeaps()

	out := make([]heap.Stats, 0, len(heaps))
	for _, h := range heaps {
		out = append(out, h.Stats())
	}
	return out
}

// Regions returns the ids of the currently mapped regions in ascending order.
func (d *Directory) Regions() []RegionID {
	return d.cache.IDs()
}

// CachedRegions returns the number of mapped regions.
func (d *Directory) CachedRegions() int {
	return d.cache.Len()
}

// Close syncs and detaches every mapped region. A provider opened by OpenDir
// is closed too. Further calls fail with ErrClosed.
func (d *Directory) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	var errs []error
	for _, id := range d.cache.IDs() {
		if err := d.detachLocked(context.Background(), id); err != nil {
			errs = append(errs, err)
		}
	}
	// Heaps whose detach failed are still open; close them before the
	// provider unmaps their regions.
	d.heaps.Iter(func(_ RegionID, h *heap.Heap) bool {
		h.Close()
		return false
	})
	d.heaps.Clear()
	d.current = nil
	if d.owned != nil {
		if err := d.owned.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
