//go:build unix && !darwin

package mmfile

import "golang.org/x/sys/unix"

// msync flushes the page-aligned span covering data[off:off+n].
func msync(data []byte, off, n int) error {
	ps := unix.Getpagesize()
	start := (off / ps) * ps
	return unix.Msync(data[start:off+n], unix.MS_SYNC)
}
