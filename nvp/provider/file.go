package provider

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/gofrs/flock"

	"github.com/joshuapare/nvpkit/internal/mmfile"
	"github.com/joshuapare/nvpkit/nvp"
)

const (
	filePrefix = "region-"
	fileSuffix = ".nvp"
	lockSuffix = ".lock"
)

// FileOptions configures a File provider.
type FileOptions struct {
	// Dir holds one file per region. It is created if missing.
	Dir string

	// Perm is the mode for new region files. Default: 0o600.
	Perm os.FileMode

	// NoLock skips the per-region writer lock. Only safe when the caller
	// guarantees a single writer by other means.
	NoLock bool

	// Logger receives debug events. Default: discard.
	Logger *slog.Logger
}

type fileRegion struct {
	m    *mmfile.Mapping
	lock *flock.Flock
}

// File is a provider backed by memory-mapped files.
type File struct {
	dir    string
	perm   os.FileMode
	noLock bool
	log    *slog.Logger

	mu     sync.Mutex
	mapped *swiss.Map[nvp.RegionID, *fileRegion]
	closed bool
}

var _ nvp.Provider = (*File)(nil)
var _ nvp.Lister = (*File)(nil)

// NewFile returns a provider storing regions under opts.Dir.
func NewFile(opts FileOptions) (*File, error) {
	if opts.Dir == "" {
		return nil, errors.Wrap(nvp.ErrInvalidArgument, "file provider: empty directory")
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "file provider")
	}
	perm := opts.Perm
	if perm == 0 {
		perm = 0o600
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &File{
		dir:    opts.Dir,
		perm:   perm,
		noLock: opts.NoLock,
		log:    log,
		mapped: swiss.NewMap[nvp.RegionID, *fileRegion](8),
	}, nil
}

// Dir returns the directory holding the region files.
func (p *File) Dir() string { return p.dir }

// Path returns the file that stores region id.
func (p *File) Path(id nvp.RegionID) string {
	return filepath.Join(p.dir, fmt.Sprintf("%s%d%s", filePrefix, id, fileSuffix))
}

// lock takes the writer lock for id, failing fast when another holder has it.
func (p *File) lock(id nvp.RegionID) (*flock.Flock, error) {
	if p.noLock {
		return nil, nil
	}
	fl := flock.New(p.Path(id) + lockSuffix)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, errors.Wrapf(err, "file provider: lock region %d", id)
	}
	if !ok {
		return nil, errors.Wrapf(nvp.ErrRegionBusy, "file provider: region %d", id)
	}
	return fl, nil
}

func unlock(fl *flock.Flock) error {
	if fl == nil {
		return nil
	}
	return fl.Unlock()
}

func (p *File) CreateAndMap(id nvp.RegionID, size int) ([]byte, error) {
	if size <= 0 {
		return nil, errors.Wrapf(nvp.ErrInvalidArgument, "file provider: region %d size %d", id, size)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, nvp.ErrClosed
	}
	if p.mapped.Has(id) {
		return nil, errors.Wrapf(nvp.ErrDuplicate, "file provider: region %d", id)
	}

	fl, err := p.lock(id)
	if err != nil {
		return nil, err
	}
	m, err := mmfile.Create(p.Path(id), size, p.perm)
	if err != nil {
		_ = unlock(fl)
		if errors.Is(err, fs.ErrExist) {
			return nil, errors.Wrapf(nvp.ErrDuplicate, "file provider: region %d", id)
		}
		return nil, errors.Wrapf(err, "file provider: create region %d", id)
	}
	p.mapped.Put(id, &fileRegion{m: m, lock: fl})
	p.log.Debug("region created", "id", id, "size", size, "path", m.Name())
	return m.Bytes(), nil
}

func (p *File) Attach(id nvp.RegionID) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, nvp.ErrClosed
	}
	if r, ok := p.mapped.Get(id); ok {
		return r.m.Bytes(), nil
	}
	if _, err := os.Stat(p.Path(id)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(nvp.ErrNotFound, "file provider: region %d", id)
		}
		return nil, err
	}

	fl, err := p.lock(id)
	if err != nil {
		return nil, err
	}
	m, err := mmfile.Open(p.Path(id))
	if err != nil {
		_ = unlock(fl)
		return nil, errors.Wrapf(err, "file provider: attach region %d", id)
	}
	p.mapped.Put(id, &fileRegion{m: m, lock: fl})
	p.log.Debug("region attached", "id", id, "size", m.Len())
	return m.Bytes(), nil
}

func (p *File) Detach(id nvp.RegionID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	r, ok := p.mapped.Get(id)
	if !ok {
		return errors.Wrapf(nvp.ErrNotFound, "file provider: region %d not mapped", id)
	}
	p.mapped.Delete(id)
	p.log.Debug("region detached", "id", id)
	return p.release(r, true)
}

// release syncs (optionally), unmaps and unlocks r.
func (p *File) release(r *fileRegion, sync bool) error {
	var err error
	if sync && r.m.Len() > 0 {
		err = r.m.Sync(0, r.m.Len())
	}
	if cerr := r.m.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if uerr := unlock(r.lock); uerr != nil && err == nil {
		err = uerr
	}
	return err
}

func (p *File) Destroy(id nvp.RegionID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var fl *flock.Flock
	if r, ok := p.mapped.Get(id); ok {
		p.mapped.Delete(id)
		if err := r.m.Close(); err != nil {
			_ = unlock(r.lock)
			return errors.Wrapf(err, "file provider: unmap region %d", id)
		}
		fl = r.lock
	} else {
		if _, err := os.Stat(p.Path(id)); errors.Is(err, fs.ErrNotExist) {
			return errors.Wrapf(nvp.ErrNotFound, "file provider: region %d", id)
		}
		var err error
		if fl, err = p.lock(id); err != nil {
			return err
		}
	}

	err := os.Remove(p.Path(id))
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		err = errors.Wrapf(nvp.ErrNotFound, "file provider: region %d", id)
	}
	if fl != nil {
		_ = os.Remove(p.Path(id) + lockSuffix)
		_ = unlock(fl)
	}
	if err == nil {
		p.log.Debug("region destroyed", "id", id)
	}
	return err
}

func (p *File) Exists(id nvp.RegionID) (int, bool, error) {
	st, err := os.Stat(p.Path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return int(st.Size()), true, nil
}

func (p *File) Flush(id nvp.RegionID, off, n int) error {
	p.mu.Lock()
	r, ok := p.mapped.Get(id)
	p.mu.Unlock()
	if !ok {
		return errors.Wrapf(nvp.ErrNotFound, "file provider: region %d not mapped", id)
	}
	return r.m.Sync(off, n)
}

// List returns the ids of all region files in ascending order.
func (p *File) List() ([]nvp.RegionID, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return nil, err
	}
	var ids []nvp.RegionID
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		n, err := strconv.ParseUint(strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix), 10, 32)
		if err != nil {
			continue
		}
		ids = append(ids, nvp.RegionID(n))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Close detaches every mapped region. Further calls fail with nvp.ErrClosed.
func (p *File) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	var errs []error
	p.mapped.Iter(func(id nvp.RegionID, r *fileRegion) bool {
		if err := p.release(r, true); err != nil {
			errs = append(errs, errors.Wrapf(err, "region %d", id))
		}
		return false
	})
	p.mapped.Clear()
	return errors.Join(errs...)
}
