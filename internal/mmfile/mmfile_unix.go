//go:build unix

package mmfile

import (
	"os"

	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

// Mapping is a shared read-write mapping of a whole file.
type Mapping struct {
	f    *os.File
	data []byte
}

func mapFile(f *os.File, size int) (*Mapping, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, errors.Wrap(err, "mmfile: mmap")
	}
	return &Mapping{f: f, data: data}, nil
}

// Sync writes n bytes at off back to the file. off is rounded down to a
// page boundary because msync requires an aligned address.
func (m *Mapping) Sync(off, n int) error {
	if err := m.checkRange(off, n); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	return msync(m.data, off, n)
}

// Close unmaps and closes the file. It is safe to call twice.
func (m *Mapping) Close() error {
	var err error
	if m.data != nil {
		if uerr := unix.Munmap(m.data); uerr != nil && !errors.Is(uerr, unix.EINVAL) {
			err = errors.Wrap(uerr, "mmfile: munmap")
		}
		m.data = nil
	}
	if m.f != nil {
		if cerr := m.f.Close(); cerr != nil && err == nil {
			err = cerr
		}
		m.f = nil
	}
	return err
}
