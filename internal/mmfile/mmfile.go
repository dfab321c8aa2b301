// Package mmfile maps region files read-write so writes through the returned
// slice land in the file.
package mmfile

import (
	"os"

	"github.com/cockroachdb/errors"
)

// ErrClosed is returned by operations on a closed mapping.
var ErrClosed = errors.New("mmfile: mapping closed")

// Create creates a new file of exactly size bytes at path and maps it. The
// file must not exist.
func Create(path string, size int, perm os.FileMode) (*Mapping, error) {
	if size <= 0 {
		return nil, errors.Newf("mmfile: invalid size %d", size)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return nil, err
	}
	if err := f.Truncate(int64(size)); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, errors.Wrap(err, "mmfile: extend")
	}
	m, err := mapFile(f, size)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, err
	}
	return m, nil
}

// Open maps the existing file at path in full.
func Open(path string) (*Mapping, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	size := st.Size()
	if size == 0 {
		_ = f.Close()
		return nil, errors.Newf("mmfile: empty file %s", path)
	}
	if size > int64(^uint(0)>>1) {
		_ = f.Close()
		return nil, errors.Newf("mmfile: file too large to map (%d bytes)", size)
	}
	m, err := mapFile(f, int(size))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return m, nil
}

// Bytes returns the mapped contents. The slice is invalid after Close.
func (m *Mapping) Bytes() []byte { return m.data }

// Len returns the mapped length.
func (m *Mapping) Len() int { return len(m.data) }

// Name returns the path of the mapped file.
func (m *Mapping) Name() string {
	if m.f == nil {
		return ""
	}
	return m.f.Name()
}

func (m *Mapping) checkRange(off, n int) error {
	if m.data == nil {
		return ErrClosed
	}
	if off < 0 || n < 0 || off > len(m.data) || n > len(m.data)-off {
		return errors.Newf("mmfile: range [%d,+%d) outside mapping of %d bytes", off, n, len(m.data))
	}
	return nil
}
