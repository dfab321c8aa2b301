// Package cache memoizes the mapping from a region id to the byte slice it
// currently resolves to in this process. The mapping is unstable across
// re-attachment, so the cache is pure memoization: dropping an entry loses
// no data and only forces the next resolution back through the provider.
package cache

import (
	"math"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/btree"

	"github.com/joshuapare/nvpkit/nvp"
)

// degree of the backing B-tree. Region counts are small, so a shallow tree
// with modest nodes keeps lookups to a couple of cache lines.
const degree = 16

// Entry is one cached resolution.
type Entry struct {
	ID     nvp.RegionID
	Offset uint32
	Size   uint32
	Data   []byte
}

func less(a, b Entry) bool { return a.ID < b.ID }

// Cache is an ordered index from region id to mapping. It is safe for
// concurrent use; callers that need "lookup, else attach and insert" to be
// atomic must hold their own lock around the sequence.
type Cache struct {
	mu   sync.RWMutex
	tree *btree.BTreeG[Entry]
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{tree: btree.NewG[Entry](degree, less)}
}

// Lookup returns the mapping cached for id.
func (c *Cache) Lookup(id nvp.RegionID) ([]byte, bool) {
	e, ok := c.Entry(id)
	if !ok {
		return nil, false
	}
	return e.Data, true
}

// Entry returns the full cache entry for id.
func (c *Cache) Entry(id nvp.RegionID) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tree.Get(Entry{ID: id})
}

// Insert caches data as the mapping of id. It fails with nvp.ErrDuplicate,
// leaving the existing entry untouched, when id is already cached.
func (c *Cache) Insert(id nvp.RegionID, offset, size uint32, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tree.Has(Entry{ID: id}) {
		return errors.Wrapf(nvp.ErrDuplicate, "cache: region %d", id)
	}
	c.tree.ReplaceOrInsert(Entry{ID: id, Offset: offset, Size: size, Data: data})
	return nil
}

// LookupOrAttach returns the mapping cached for id. On a miss it attaches
// the region through p and caches the result; the whole sequence holds the
// cache lock, so concurrent callers attach a region at most once.
func (c *Cache) LookupOrAttach(p nvp.Provider, id nvp.RegionID) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.tree.Get(Entry{ID: id}); ok {
		return e.Data, nil
	}
	data, err := p.Attach(id)
	if err != nil {
		return nil, errors.Wrapf(err, "cache: attach region %d", id)
	}
	if uint64(len(data)) > math.MaxUint32 {
		return nil, errors.Wrapf(nvp.ErrInvalidArgument, "cache: region %d is %d bytes", id, len(data))
	}
	c.tree.ReplaceOrInsert(Entry{ID: id, Size: uint32(len(data)), Data: data})
	return data, nil
}

// Remove drops the entry for id. Backing storage is not touched.
func (c *Cache) Remove(id nvp.RegionID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.tree.Delete(Entry{ID: id}); !ok {
		return errors.Wrapf(nvp.ErrNotFound, "cache: region %d", id)
	}
	return nil
}

// Len returns the number of cached regions.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tree.Len()
}

// Ascend calls fn for each entry in ascending id order until fn returns false.
// fn must not call back into the cache.
func (c *Cache) Ascend(fn func(Entry) bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	c.tree.Ascend(btree.ItemIteratorG[Entry](fn))
}

// IDs returns the cached region ids in ascending order.
func (c *Cache) IDs() []nvp.RegionID {
	ids := make([]nvp.RegionID, 0, c.Len())
	c.Ascend(func(e Entry) bool {
		ids = append(ids, e.ID)
		return true
	})
	return ids
}
