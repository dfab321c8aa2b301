package dirty

import (
	"context"
	"os"
	"sort"
	"sync"
)

// defaultRangeCapacity is the pre-allocated capacity for dirty ranges.
const defaultRangeCapacity = 64

// Range is a dirty byte range relative to the start of the region.
type Range struct {
	Off int
	Len int
}

// FlushFunc persists n bytes at off.
type FlushFunc func(off, n int) error

// Tracker accumulates dirty ranges of one region.
type Tracker struct {
	mu       sync.Mutex
	ranges   []Range
	limit    int // region length; flushed ranges never extend past it
	pageSize int
}

// NewTracker creates a tracker for a region of limit bytes, aligned to the
// OS page size.
func NewTracker(limit int) *Tracker {
	return &Tracker{
		ranges:   make([]Range, 0, defaultRangeCapacity),
		limit:    limit,
		pageSize: os.Getpagesize(),
	}
}

// Add records a dirty range. Empty or negative ranges are ignored.
func (t *Tracker) Add(off, length int) {
	if length <= 0 || off < 0 {
		return
	}
	t.mu.Lock()
	t.ranges = append(t.ranges, Range{Off: off, Len: length})
	t.mu.Unlock()
}

// Pending reports whether any range awaits flushing.
func (t *Tracker) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.ranges) > 0
}

// Flush coalesces the recorded ranges and hands each to fn in ascending
// order. The context is checked between ranges. On error the recorded
// ranges are kept so a later Flush retries them.
func (t *Tracker) Flush(ctx context.Context, fn FlushFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	pending := t.ranges
	t.ranges = make([]Range, 0, defaultRangeCapacity)
	t.mu.Unlock()

	restore := func() {
		t.mu.Lock()
		t.ranges = append(pending, t.ranges...)
		t.mu.Unlock()
	}

	for _, r := range t.coalesce(pending) {
		if err := ctx.Err(); err != nil {
			restore()
			return err
		}
		if err := fn(r.Off, r.Len); err != nil {
			restore()
			return err
		}
	}
	return nil
}

// DebugRanges returns a copy of the raw, uncoalesced ranges.
func (t *Tracker) DebugRanges() []Range {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Range, len(t.ranges))
	copy(out, t.ranges)
	return out
}

// DebugCoalescedRanges returns the ranges the next Flush would issue.
func (t *Tracker) DebugCoalescedRanges() []Range {
	return t.coalesce(t.DebugRanges())
}

// coalesce page-aligns ranges, clamps them to the region, sorts them and
// merges overlapping or adjacent ones.
func (t *Tracker) coalesce(ranges []Range) []Range {
	if len(ranges) == 0 {
		return nil
	}
	ps := t.pageSize

	aligned := make([]Range, 0, len(ranges))
	for _, r := range ranges {
		start := (r.Off / ps) * ps
		end := r.Off + r.Len
		if end%ps != 0 {
			end = (end/ps + 1) * ps
		}
		if t.limit > 0 && end > t.limit {
			end = t.limit
		}
		if end <= start {
			continue
		}
		aligned = append(aligned, Range{Off: start, Len: end - start})
	}
	if len(aligned) == 0 {
		return nil
	}

	sort.Slice(aligned, func(i, j int) bool {
		return aligned[i].Off < aligned[j].Off
	})

	merged := make([]Range, 0, len(aligned))
	cur := aligned[0]
	for _, next := range aligned[1:] {
		if next.Off <= cur.Off+cur.Len {
			if end := next.Off + next.Len; end > cur.Off+cur.Len {
				cur.Len = end - cur.Off
			}
			continue
		}
		merged = append(merged, cur)
		cur = next
	}
	return append(merged, cur)
}
