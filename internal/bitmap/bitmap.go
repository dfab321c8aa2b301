// Package bitmap is a bit-indexed view over a byte slice that lives inside a
// mapped region. Bit i is stored in byte i/8 at mask 0x80>>(i%8), so chunk 0
// is the most significant bit of the first byte.
package bitmap

// View addresses the first n bits of a byte slice. It never allocates and
// never grows the underlying storage.
type View struct {
	b []byte
	n int
}

// New returns a view of n bits over b. It reports false when b is too short.
func New(b []byte, n int) (View, bool) {
	if n < 0 || (n+7)/8 > len(b) {
		return View{}, false
	}
	return View{b: b, n: n}, true
}

// Len returns the number of addressable bits.
func (v View) Len() int { return v.n }

// Get reports whether bit i is set. Out-of-range bits read as set.
func (v View) Get(i int) bool {
	if i < 0 || i >= v.n {
		return true
	}
	return v.b[i>>3]&(0x80>>uint(i&7)) != 0
}

// Set sets bit i. Out-of-range indexes are ignored.
func (v View) Set(i int) {
	if i < 0 || i >= v.n {
		return
	}
	v.b[i>>3] |= 0x80 >> uint(i&7)
}

// Clear clears bit i. Out-of-range indexes are ignored.
func (v View) Clear(i int) {
	if i < 0 || i >= v.n {
		return
	}
	v.b[i>>3] &^= 0x80 >> uint(i&7)
}

// InRange reports whether [start, start+count) is a non-empty run of valid bits.
func (v View) InRange(start, count int) bool {
	return start >= 0 && count > 0 && start <= v.n-count
}

// AllClear reports whether every bit in [start, start+count) is clear.
func (v View) AllClear(start, count int) bool {
	if !v.InRange(start, count) {
		return false
	}
	for i := start; i < start+count; i++ {
		if v.Get(i) {
			return false
		}
	}
	return true
}

// AllSet reports whether every bit in [start, start+count) is set.
func (v View) AllSet(start, count int) bool {
	if !v.InRange(start, count) {
		return false
	}
	for i := start; i < start+count; i++ {
		if !v.Get(i) {
			return false
		}
	}
	return true
}

// SetRange sets bits [start, start+count).
func (v View) SetRange(start, count int) {
	for i := start; i < start+count; i++ {
		v.Set(i)
	}
}

// ClearRange clears bits [start, start+count).
func (v View) ClearRange(start, count int) {
	for i := start; i < start+count; i++ {
		v.Clear(i)
	}
}

// FirstFit returns the lowest index i such that bits [i, i+count) are all
// clear, or -1 when no such run exists.
//
// On hitting a set bit at j while probing from i, no start in (i, j] can
// succeed either, so the scan resumes at j+1. Whole 0xFF bytes are skipped
// eight bits at a time. Both shortcuts select the same index as probing
// every start position in order.
func (v View) FirstFit(count int) int {
	if count <= 0 || count > v.n {
		return -1
	}
	i := 0
	for i <= v.n-count {
		if i&7 == 0 && v.b[i>>3] == 0xFF {
			i += 8
			continue
		}
		run := 0
		for run < count && !v.Get(i+run) {
			run++
		}
		if run == count {
			return i
		}
		i += run + 1
	}
	return -1
}

// Count returns the number of set bits.
func (v View) Count() int {
	total := 0
	for i := 0; i < v.n; i++ {
		if v.Get(i) {
			total++
		}
	}
	return total
}

// LongestClearRun returns the length of the longest run of clear bits.
func (v View) LongestClearRun() int {
	best, cur := 0, 0
	for i := 0; i < v.n; i++ {
		if v.Get(i) {
			cur = 0
			continue
		}
		cur++
		if cur > best {
			best = cur
		}
	}
	return best
}

// Zero clears every byte backing the view, including padding bits of the
// last byte.
func (v View) Zero() {
	clear(v.b[:(v.n+7)/8])
}
