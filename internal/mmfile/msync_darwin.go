//go:build darwin

package mmfile

import "golang.org/x/sys/unix"

// msync flushes the whole mapping. Darwin rejects msync on addresses other
// than the one mmap returned; the kernel only writes pages that are dirty.
func msync(data []byte, _, _ int) error {
	return unix.Msync(data, unix.MS_SYNC)
}
