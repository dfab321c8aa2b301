package buf

import (
	"math"
	"math/bits"
)

// Add returns a+b. It reports false when either operand is negative or the
// sum does not fit in an int.
func Add(a, b int) (int, bool) {
	if a < 0 || b < 0 || a > math.MaxInt-b {
		return 0, false
	}
	return a + b, true
}

// Mul returns a*b under the same rules as Add.
func Mul(a, b int) (int, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	if hi != 0 || lo > math.MaxInt {
		return 0, false
	}
	return int(lo), true
}

// CeilDiv returns ceil(n/d) for n >= 0 and d > 0.
func CeilDiv(n, d int) int {
	return (n + d - 1) / d
}

// Slice returns b[off:off+n] with its capacity clipped to n, so appends
// through the result never spill into the bytes that follow.
func Slice(b []byte, off, n int) ([]byte, bool) {
	end, ok := Add(off, n)
	if !ok || end > len(b) {
		return nil, false
	}
	return b[off:end:end], true
}
