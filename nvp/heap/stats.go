package heap

import (
	"fmt"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"

	"github.com/joshuapare/nvpkit/internal/format"
	"github.com/joshuapare/nvpkit/nvp"
)

// Stats is a point-in-time view of a heap's occupancy and activity.
// Counters cover the lifetime of this Heap value, not of the region.
type Stats struct {
	ID             nvp.RegionID
	TotalSize      int
	TotalChunks    int
	UsedChunks     int
	FreeChunks     int
	LargestFreeRun int // in chunks
	Allocs         uint64
	Frees          uint64
	Failures       uint64
}

// Stats returns the current statistics. A closed heap reports its size and
// counters only; the occupancy fields are zero.
func (h *Heap) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := Stats{
		ID:          h.id,
		TotalSize:   h.layout.TotalSize,
		TotalChunks: h.layout.Chunks,
		Allocs:      h.stats.allocs,
		Frees:       h.stats.frees,
		Failures:    h.stats.failures,
	}
	if h.closed {
		return s
	}
	s.UsedChunks = h.bits.Count()
	s.FreeChunks = h.layout.Chunks - s.UsedChunks
	s.LargestFreeRun = h.bits.LongestClearRun()
	return s
}

func (s Stats) String() string {
	return fmt.Sprintf("heap %d: %d/%d chunks used, largest free run %d, allocs=%d frees=%d failures=%d",
		s.ID, s.UsedChunks, s.TotalChunks, s.LargestFreeRun, s.Allocs, s.Frees, s.Failures)
}

// WriteStats writes the heap statistics as one JSON object.
func (h *Heap) WriteStats(writer *jwriter.Writer) {
	h.Stats().Write(writer)
}

// Write writes s as one JSON object.
func (s Stats) Write(writer *jwriter.Writer) {
	obj := writer.Object()
	defer obj.End()

	obj.Name("Heap").Int(int(s.ID))
	obj.Name("TotalSize").Int(s.TotalSize)
	obj.Name("ChunkSize").Int(format.ChunkSize)
	obj.Name("TotalChunks").Int(s.TotalChunks)
	obj.Name("UsedChunks").Int(s.UsedChunks)
	obj.Name("FreeChunks").Int(s.FreeChunks)
	obj.Name("LargestFreeRun").Int(s.LargestFreeRun)
	obj.Name("Allocs").Int(int(s.Allocs))
	obj.Name("Frees").Int(int(s.Frees))
	obj.Name("Failures").Int(int(s.Failures))
}
