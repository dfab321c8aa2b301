// Package dirty tracks which byte ranges of a mapped region were modified
// and flushes them in page-aligned batches.
//
// # Overview
//
// Writers record every mutation with Add. At flush time the tracker rounds
// each range out to page boundaries, sorts them and merges overlapping or
// adjacent ranges, so a burst of small bitmap updates becomes a handful of
// msync calls:
//
//	Dirty: [0x10 +4] [0x80 +16] [0x5000 +128] → Flushed: [0x0-0x1000] [0x5000-0x6000]
//
// # Usage
//
//	tr := dirty.NewTracker(len(region))
//	tr.Add(bitmapOff+byteIdx, 1)
//	err := tr.Flush(ctx, func(off, n int) error {
//	    return provider.Flush(id, off, n)
//	})
//
// # Thread Safety
//
// A Tracker is safe for concurrent use. Flush holds no lock while the
// callback runs; ranges added during a flush are kept for the next one.
//
// # Related Packages
//
//   - github.com/joshuapare/nvpkit/nvp/heap: marks header, bitmap and chunk writes
//   - github.com/joshuapare/nvpkit/nvp/provider: performs the actual msync
package dirty
