package dirty

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

// newTestTracker pins the page size so expectations do not depend on the host.
func newTestTracker(limit int) *Tracker {
	t := NewTracker(limit)
	t.pageSize = 4096
	return t
}

func Test_DirtyTracker_PageAlignment(t *testing.T) {
	tracker := newTestTracker(1 << 20)
	tracker.Add(100, 200)

	coalesced := tracker.DebugCoalescedRanges()
	require.Equal(t, []Range{{Off: 0, Len: 4096}}, coalesced)
}

func Test_DirtyTracker_Coalesce_Adjacent(t *testing.T) {
	tracker := newTestTracker(1 << 20)
	tracker.Add(4096, 4096)
	tracker.Add(8192, 4096)

	require.Equal(t, []Range{{Off: 4096, Len: 8192}}, tracker.DebugCoalescedRanges())
}

func Test_DirtyTracker_Coalesce_Overlapping(t *testing.T) {
	tracker := newTestTracker(1 << 20)
	tracker.Add(4096, 8192)
	tracker.Add(0, 8192)

	require.Equal(t, []Range{{Off: 0, Len: 12288}}, tracker.DebugCoalescedRanges())
}

func Test_DirtyTracker_Coalesce_Separate(t *testing.T) {
	tracker := newTestTracker(1 << 20)
	tracker.Add(20480, 10)
	tracker.Add(0, 4096)

	require.Equal(t, []Range{{Off: 0, Len: 4096}, {Off: 20480, Len: 4096}},
		tracker.DebugCoalescedRanges())
}

func Test_DirtyTracker_ClampsToRegion(t *testing.T) {
	tracker := newTestTracker(5000)
	tracker.Add(4500, 100)

	require.Equal(t, []Range{{Off: 4096, Len: 904}}, tracker.DebugCoalescedRanges())
}

func Test_DirtyTracker_IgnoresEmpty(t *testing.T) {
	tracker := newTestTracker(1 << 20)
	tracker.Add(10, 0)
	tracker.Add(-1, 5)
	require.False(t, tracker.Pending())
}

func Test_DirtyTracker_FlushClears(t *testing.T) {
	tracker := newTestTracker(1 << 20)
	tracker.Add(12, 4)
	tracker.Add(70000, 128)

	var got []Range
	err := tracker.Flush(context.Background(), func(off, n int) error {
		got = append(got, Range{Off: off, Len: n})
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []Range{{Off: 0, Len: 4096}, {Off: 69632, Len: 4096}}, got)
	require.False(t, tracker.Pending())
}

func Test_DirtyTracker_FlushErrorKeepsRanges(t *testing.T) {
	tracker := newTestTracker(1 << 20)
	tracker.Add(0, 10)

	boom := errors.New("boom")
	err := tracker.Flush(context.Background(), func(int, int) error { return boom })
	require.ErrorIs(t, err, boom)
	require.True(t, tracker.Pending(), "failed flush must keep ranges for retry")
	require.Len(t, tracker.DebugRanges(), 1)
}

func Test_DirtyTracker_FlushPreCancelled(t *testing.T) {
	tracker := newTestTracker(1 << 20)
	tracker.Add(4096, 100)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := tracker.Flush(ctx, func(int, int) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, called)
	require.True(t, tracker.Pending())
}
