package heap

import (
	"bytes"
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/nvpkit/internal/buf"
	"github.com/joshuapare/nvpkit/internal/format"
	"github.com/joshuapare/nvpkit/nvp"
	"github.com/joshuapare/nvpkit/nvp/cache"
	"github.com/joshuapare/nvpkit/nvp/provider"
)

func openTestHeap(t *testing.T, p nvp.Provider, c *cache.Cache, id nvp.RegionID, size int) *Heap {
	t.Helper()
	h, err := Open(p, c, id, size, Options{})
	require.NoError(t, err)
	return h
}

func TestOpen_ClampsSmallSize(t *testing.T) {
	p := provider.NewMem()
	c := cache.New()
	h := openTestHeap(t, p, c, 1, 1000)

	l := h.Layout()
	require.Equal(t, format.MinHeapSize, l.TotalSize)
	require.Equal(t, 1022, l.Chunks)
	require.Equal(t, 128, l.BitmapLen)
	require.Equal(t, 140, l.DataOff)

	size, ok, err := p.Exists(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, format.MinHeapSize, size)

	region, ok := c.Lookup(1)
	require.True(t, ok, "new heap must be cached")
	require.Equal(t, format.HeapMagic, buf.U32LE(region[format.MagicOffset:]))
	require.Equal(t, uint32(1), buf.U32LE(region[format.OwnerOffset:]))
	require.Equal(t, uint32(format.MinHeapSize), buf.U32LE(region[format.SizeOffset:]))
}

func TestOpen_SecondOpenKeepsHeaderAndBitmap(t *testing.T) {
	p := provider.NewMem()
	c := cache.New()
	first := openTestHeap(t, p, c, 2, 1<<18)
	ch, err := first.Alloc(10)
	require.NoError(t, err)

	region, _ := c.Lookup(2)
	before := append([]byte(nil), region[:format.HeaderSize]...)

	second := openTestHeap(t, p, c, 2, 1<<20)
	again, _ := c.Lookup(2)
	require.Same(t, &region[0], &again[0], "second open must reuse the cached mapping")
	require.Equal(t, before, again[:format.HeaderSize], "header must not be rewritten")
	require.Equal(t, 1<<18, second.Layout().TotalSize, "recorded size wins over the request")

	ok, err := second.Allocated(ch)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestOpen_CorruptedMagic(t *testing.T) {
	p := provider.NewMem()
	_, err := p.CreateAndMap(3, format.MinHeapSize)
	require.NoError(t, err)

	_, err = Open(p, cache.New(), 3, 0, Options{})
	require.Error(t, err)
	require.True(t, errors.Is(err, nvp.ErrCorruptedHeap), "got %v", err)
	require.True(t, errors.Is(err, format.ErrSignatureMismatch), "got %v", err)
}

func TestOpen_ForeignOwner(t *testing.T) {
	p := provider.NewMem()
	c := cache.New()
	openTestHeap(t, p, c, 1, 0)
	src, _ := c.Lookup(1)

	dst, err := p.CreateAndMap(2, len(src))
	require.NoError(t, err)
	copy(dst, src)

	_, err = Open(p, c, 2, 0, Options{})
	require.True(t, errors.Is(err, nvp.ErrCorruptedHeap), "got %v", err)
	require.True(t, errors.Is(err, format.ErrOwnerMismatch), "got %v", err)
}

func TestOpen_RecordedSizeExceedsMapping(t *testing.T) {
	p := provider.NewMem()
	region, err := p.CreateAndMap(5, format.MinHeapSize)
	require.NoError(t, err)
	require.NoError(t, format.PutHeader(region, 5, format.MinHeapSize*2))

	_, err = Open(p, cache.New(), 5, 0, Options{})
	require.True(t, errors.Is(err, nvp.ErrCorruptedHeap), "got %v", err)
}

func TestOpen_NilArguments(t *testing.T) {
	_, err := Open(nil, cache.New(), 1, 0, Options{})
	require.True(t, errors.Is(err, nvp.ErrInvalidArgument))
}

func TestAlloc_CeilRounding(t *testing.T) {
	h := openTestHeap(t, provider.NewMem(), cache.New(), 1, 0)

	cases := []struct {
		size   int
		offset uint32
	}{
		{1, 0},
		{128, 128},
		{129, 256},
		{1, 512},
	}
	for _, tc := range cases {
		ch, err := h.Alloc(tc.size)
		require.NoError(t, err)
		require.Equal(t, tc.offset, ch.Offset, "alloc %d", tc.size)
		require.Equal(t, uint32(tc.size), ch.Size)
		require.Equal(t, nvp.RegionID(1), ch.Heap)
	}
	require.Equal(t, 5, h.Stats().UsedChunks)
}

func TestAlloc_InvalidSize(t *testing.T) {
	h := openTestHeap(t, provider.NewMem(), cache.New(), 1, 0)
	for _, size := range []int{0, -1} {
		_, err := h.Alloc(size)
		require.True(t, errors.Is(err, nvp.ErrInvalidArgument), "size %d: %v", size, err)
	}
	require.Zero(t, h.Stats().UsedChunks)
}

func TestAlloc_FreeThenReuseLowestFit(t *testing.T) {
	h := openTestHeap(t, provider.NewMem(), cache.New(), 1, 0)

	a, err := h.Alloc(200) // chunks 0-1
	require.NoError(t, err)
	b, err := h.Alloc(10) // chunk 2
	require.NoError(t, err)
	require.Equal(t, uint32(256), b.Offset)

	require.NoError(t, h.Free(a))

	c, err := h.Alloc(200)
	require.NoError(t, err)
	require.Equal(t, uint32(0), c.Offset, "freed run should be reused")

	d, err := h.Alloc(300) // three chunks do not fit before b
	require.NoError(t, err)
	require.Equal(t, uint32(384), d.Offset)
}

func TestAlloc_OutOfSpace(t *testing.T) {
	h := openTestHeap(t, provider.NewMem(), cache.New(), 1, 0)
	total := h.Layout().Chunks

	_, err := h.Alloc((total + 1) * format.ChunkSize)
	require.True(t, errors.Is(err, nvp.ErrOutOfSpace), "got %v", err)

	all, err := h.Alloc(total * format.ChunkSize)
	require.NoError(t, err)
	require.Zero(t, all.Offset)

	_, err = h.Alloc(1)
	require.True(t, errors.Is(err, nvp.ErrOutOfSpace), "got %v", err)

	st := h.Stats()
	require.Equal(t, uint64(2), st.Failures)
	require.Equal(t, 0, st.FreeChunks)
	require.Equal(t, 0, st.LargestFreeRun)
}

func TestFree_RejectsBadHandles(t *testing.T) {
	h := openTestHeap(t, provider.NewMem(), cache.New(), 1, 0)
	ch, err := h.Alloc(64)
	require.NoError(t, err)
	total := uint32(h.Layout().Chunks)

	bad := map[string]nvp.ChunkHandle{
		"foreign heap": {Heap: 2, Offset: 0, Size: 64},
		"unaligned":    {Heap: 1, Offset: 5, Size: 64},
		"zero size":    {Heap: 1, Offset: 0, Size: 0},
		"past end":     {Heap: 1, Offset: total * format.ChunkSize, Size: 1},
		"overhangs":    {Heap: 1, Offset: (total - 1) * format.ChunkSize, Size: 256},
	}
	for name, c := range bad {
		err := h.Free(c)
		require.True(t, errors.Is(err, nvp.ErrInvalidHandle), "%s: got %v", name, err)
	}

	ok, err := h.Allocated(ch)
	require.NoError(t, err)
	require.True(t, ok, "rejected frees must not touch the bitmap")
}

func TestFree_DoubleFree(t *testing.T) {
	h := openTestHeap(t, provider.NewMem(), cache.New(), 1, 0)
	ch, err := h.Alloc(64)
	require.NoError(t, err)

	// A handle spanning the allocated chunk and a free neighbour.
	wide := nvp.ChunkHandle{Heap: 1, Offset: 0, Size: 2 * format.ChunkSize}
	err = h.Free(wide)
	require.True(t, errors.Is(err, nvp.ErrDoubleFree))
	require.Contains(t, err.Error(), "partially free")
	ok, _ := h.Allocated(ch)
	require.True(t, ok, "partial double free must leave the run allocated")

	require.NoError(t, h.Free(ch))
	err = h.Free(ch)
	require.True(t, errors.Is(err, nvp.ErrDoubleFree))
	require.Contains(t, err.Error(), "already free")

	st := h.Stats()
	require.Equal(t, uint64(1), st.Frees)
	require.Zero(t, st.UsedChunks)
}

func TestResolve(t *testing.T) {
	h := openTestHeap(t, provider.NewMem(), cache.New(), 1, 0)
	ch, err := h.AllocWithData([]byte("hello"))
	require.NoError(t, err)
	second, err := h.AllocWithData([]byte("world"))
	require.NoError(t, err)

	b, err := h.Resolve(ch)
	require.NoError(t, err)
	require.Equal(t, "hello", string(b))

	b, err = h.Resolve(second)
	require.NoError(t, err)
	require.Equal(t, "world", string(b))

	region, _ := h.p.Attach(1)
	at := h.Layout().DataOff + int(second.Offset)
	require.Equal(t, "world", string(region[at:at+5]), "chunk offsets are relative to the data area")

	_, err = h.Resolve(nvp.ChunkHandle{Heap: 9, Size: 1})
	require.True(t, errors.Is(err, nvp.ErrInvalidHandle))
}

func TestAllocWithData_Empty(t *testing.T) {
	h := openTestHeap(t, provider.NewMem(), cache.New(), 1, 0)
	_, err := h.AllocWithData(nil)
	require.True(t, errors.Is(err, nvp.ErrInvalidArgument))
}

func TestWriteAt(t *testing.T) {
	h := openTestHeap(t, provider.NewMem(), cache.New(), 1, 0)
	ch, err := h.Alloc(8)
	require.NoError(t, err)

	require.NoError(t, h.WriteAt(ch, []byte("abcd"), 4))
	b, _ := h.Resolve(ch)
	require.Equal(t, []byte{0, 0, 0, 0, 'a', 'b', 'c', 'd'}, b)

	err = h.WriteAt(ch, []byte("abcd"), 5)
	require.True(t, errors.Is(err, nvp.ErrInvalidArgument), "write past size: %v", err)
	err = h.WriteAt(ch, []byte("a"), -1)
	require.True(t, errors.Is(err, nvp.ErrInvalidArgument))

	require.NoError(t, h.Free(ch))
	err = h.WriteAt(ch, []byte("a"), 0)
	require.True(t, errors.Is(err, nvp.ErrInvalidHandle), "write to freed chunk: %v", err)
}

func TestSync_PersistsAcrossCrash(t *testing.T) {
	ctx := context.Background()
	p := provider.NewMem()
	h := openTestHeap(t, p, cache.New(), 1, 0)
	require.True(t, h.Dirty(), "formatting marks the header dirty")

	kept, err := h.AllocWithData([]byte("durable"))
	require.NoError(t, err)
	require.NoError(t, h.Sync(ctx))
	require.False(t, h.Dirty())

	lost, err := h.AllocWithData([]byte("volatile"))
	require.NoError(t, err)
	p.Crash()

	again := openTestHeap(t, p, cache.New(), 1, 0)
	ok, err := again.Allocated(kept)
	require.NoError(t, err)
	require.True(t, ok)
	b, err := again.Resolve(kept)
	require.NoError(t, err)
	require.Equal(t, "durable", string(b))

	ok, err = again.Allocated(lost)
	require.NoError(t, err)
	require.False(t, ok, "unsynced allocation must not survive a crash")
}

func TestSync_PersistsWritesThroughResolve(t *testing.T) {
	ctx := context.Background()
	p := provider.NewMem()
	h := openTestHeap(t, p, cache.New(), 1, 0)

	ch, err := h.AllocWithData([]byte("aaaa"))
	require.NoError(t, err)
	require.NoError(t, h.Sync(ctx))

	b, err := h.Resolve(ch)
	require.NoError(t, err)
	copy(b, "bbbb")
	require.NoError(t, h.Sync(ctx))
	p.Crash()

	again := openTestHeap(t, p, cache.New(), 1, 0)
	b, err = again.Resolve(ch)
	require.NoError(t, err)
	require.Equal(t, "bbbb", string(b))
}

func TestSync_CanceledContext(t *testing.T) {
	h := openTestHeap(t, provider.NewMem(), cache.New(), 1, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.Error(t, h.Sync(ctx))
	require.True(t, h.Dirty(), "canceled sync keeps pending ranges")
	require.NoError(t, h.Sync(context.Background()))
}

func TestRuns(t *testing.T) {
	h := openTestHeap(t, provider.NewMem(), cache.New(), 1, 0)
	_, err := h.Alloc(3 * format.ChunkSize)
	require.NoError(t, err)
	b, err := h.Alloc(1)
	require.NoError(t, err)
	_, err = h.Alloc(1)
	require.NoError(t, err)
	require.NoError(t, h.Free(b))

	type run struct {
		start, count int
		used         bool
	}
	var got []run
	require.NoError(t, h.Runs(func(start, count int, used bool) bool {
		got = append(got, run{start, count, used})
		return true
	}))
	total := h.Layout().Chunks
	require.Equal(t, []run{
		{0, 3, true},
		{3, 1, false},
		{4, 1, true},
		{5, total - 5, false},
	}, got)
}

func TestAllocWithData_NoOverlap(t *testing.T) {
	h := openTestHeap(t, provider.NewMem(), cache.New(), 1, 0)

	var handles []nvp.ChunkHandle
	for i := range 40 {
		payload := bytes.Repeat([]byte{byte(i + 1)}, 1+i*37%300)
		ch, err := h.AllocWithData(payload)
		require.NoError(t, err)
		handles = append(handles, ch)
	}
	for i, ch := range handles {
		b, err := h.Resolve(ch)
		require.NoError(t, err)
		require.Equal(t, bytes.Repeat([]byte{byte(i + 1)}, len(b)), b, "chunk %d was overwritten", i)
	}
}

func TestClose_RejectsLaterCalls(t *testing.T) {
	h := openTestHeap(t, provider.NewMem(), cache.New(), 1, 0)
	ch, err := h.AllocWithData([]byte("x"))
	require.NoError(t, err)
	h.Close()

	_, err = h.Alloc(10)
	require.True(t, errors.Is(err, nvp.ErrClosed), "Alloc: %v", err)
	_, err = h.AllocWithData([]byte("y"))
	require.True(t, errors.Is(err, nvp.ErrClosed), "AllocWithData: %v", err)
	require.True(t, errors.Is(h.Free(ch), nvp.ErrClosed))
	_, err = h.Resolve(ch)
	require.True(t, errors.Is(err, nvp.ErrClosed), "Resolve: %v", err)
	require.True(t, errors.Is(h.WriteAt(ch, []byte("z"), 0), nvp.ErrClosed))
	_, err = h.Allocated(ch)
	require.True(t, errors.Is(err, nvp.ErrClosed), "Allocated: %v", err)
	require.True(t, errors.Is(h.Runs(func(int, int, bool) bool { return true }), nvp.ErrClosed))
	require.True(t, errors.Is(h.Sync(context.Background()), nvp.ErrClosed))

	st := h.Stats()
	require.Equal(t, uint64(1), st.Allocs)
	require.Zero(t, st.UsedChunks, "closed heap reports no occupancy")
}

func TestOpen_CacheConflictDestroysNewRegion(t *testing.T) {
	p := provider.NewMem()
	c := cache.New()
	require.NoError(t, c.Insert(9, 0, 4, make([]byte, 4)))

	_, err := Open(p, c, 9, 0, Options{})
	require.True(t, errors.Is(err, nvp.ErrDuplicate), "got %v", err)

	_, exists, err := p.Exists(9)
	require.NoError(t, err)
	require.False(t, exists, "region created for the heap must be destroyed")
}
