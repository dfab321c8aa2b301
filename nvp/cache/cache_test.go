package cache

import (
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/nvpkit/nvp"
)

func TestCache_InsertLookupRemove(t *testing.T) {
	c := New()
	addr := make([]byte, 64)

	_, ok := c.Lookup(1)
	require.False(t, ok, "empty cache should miss")

	require.NoError(t, c.Insert(1, 0, 64, addr))
	got, ok := c.Lookup(1)
	require.True(t, ok)
	require.Same(t, &addr[0], &got[0], "lookup must return the inserted mapping")

	require.NoError(t, c.Remove(1))
	_, ok = c.Lookup(1)
	require.False(t, ok, "lookup after remove should miss")
}

func TestCache_DuplicateKeepsPriorEntry(t *testing.T) {
	c := New()
	first := []byte{1}
	second := []byte{2}

	require.NoError(t, c.Insert(5, 0, 1, first))
	err := c.Insert(5, 128, 1, second)
	require.True(t, errors.Is(err, nvp.ErrDuplicate), "got %v", err)

	e, ok := c.Entry(5)
	require.True(t, ok)
	require.Equal(t, byte(1), e.Data[0])
	require.Zero(t, e.Offset)
	require.Equal(t, 1, c.Len())
}

func TestCache_RemoveMissing(t *testing.T) {
	c := New()
	require.True(t, errors.Is(c.Remove(3), nvp.ErrNotFound))
}

func TestCache_AscendOrdered(t *testing.T) {
	c := New()
	for _, id := range []nvp.RegionID{40, 2, 17, 9} {
		require.NoError(t, c.Insert(id, 0, 0, nil))
	}
	require.Equal(t, []nvp.RegionID{2, 9, 17, 40}, c.IDs())

	var seen []nvp.RegionID
	c.Ascend(func(e Entry) bool {
		seen = append(seen, e.ID)
		return len(seen) < 2
	})
	require.Equal(t, []nvp.RegionID{2, 9}, seen)
}

func TestCache_ConcurrentInsertOneWinner(t *testing.T) {
	c := New()
	const workers = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.Insert(1, 0, 0, nil); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, wins)
	require.Equal(t, 1, c.Len())
}

// countingProvider wraps a fixed region set and counts Attach calls.
type countingProvider struct {
	mu      sync.Mutex
	regions map[nvp.RegionID][]byte
	attach  int
}

func (p *countingProvider) CreateAndMap(nvp.RegionID, int) ([]byte, error) { return nil, nil }
func (p *countingProvider) Detach(nvp.RegionID) error                      { return nil }
func (p *countingProvider) Destroy(nvp.RegionID) error                     { return nil }
func (p *countingProvider) Flush(nvp.RegionID, int, int) error             { return nil }

func (p *countingProvider) Exists(id nvp.RegionID) (int, bool, error) {
	b, ok := p.regions[id]
	return len(b), ok, nil
}

func (p *countingProvider) Attach(id nvp.RegionID) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attach++
	b, ok := p.regions[id]
	if !ok {
		return nil, nvp.ErrNotFound
	}
	return b, nil
}

func TestCache_LookupOrAttach(t *testing.T) {
	p := &countingProvider{regions: map[nvp.RegionID][]byte{4: make([]byte, 32)}}
	c := New()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := c.LookupOrAttach(p, 4)
			require.NoError(t, err)
			require.Len(t, b, 32)
		}()
	}
	wg.Wait()

	require.Equal(t, 1, p.attach, "region should be attached once")
	e, ok := c.Entry(4)
	require.True(t, ok)
	require.Equal(t, uint32(32), e.Size)

	_, err := c.LookupOrAttach(p, 9)
	require.True(t, errors.Is(err, nvp.ErrNotFound), "got %v", err)
	require.Equal(t, 1, c.Len(), "failed attach must not cache")
}
