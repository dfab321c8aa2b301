//go:build !unix

package mmfile

import (
	"io"
	"os"

	"github.com/cockroachdb/errors"
)

// Mapping holds the file contents in memory where mmap is not available.
// Sync and Close write modified bytes back to the file.
type Mapping struct {
	f    *os.File
	data []byte
}

func mapFile(f *os.File, size int) (*Mapping, error) {
	data := make([]byte, size)
	if _, err := io.ReadFull(io.NewSectionReader(f, 0, int64(size)), data); err != nil {
		return nil, errors.Wrap(err, "mmfile: read")
	}
	return &Mapping{f: f, data: data}, nil
}

// Sync writes n bytes at off back to the file and syncs it.
func (m *Mapping) Sync(off, n int) error {
	if err := m.checkRange(off, n); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	if _, err := m.f.WriteAt(m.data[off:off+n], int64(off)); err != nil {
		return errors.Wrap(err, "mmfile: write back")
	}
	return m.f.Sync()
}

// Close writes the contents back and closes the file. It is safe to call twice.
func (m *Mapping) Close() error {
	var err error
	if m.data != nil && m.f != nil {
		err = m.Sync(0, len(m.data))
	}
	m.data = nil
	if m.f != nil {
		if cerr := m.f.Close(); cerr != nil && err == nil {
			err = cerr
		}
		m.f = nil
	}
	return err
}
