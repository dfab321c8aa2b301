package provider

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"

	"github.com/joshuapare/nvpkit/nvp"
)

// Mem is an in-process provider.
type Mem struct {
	mu     sync.Mutex
	store  *swiss.Map[nvp.RegionID, []byte] // durable contents
	mapped *swiss.Map[nvp.RegionID, []byte] // live mappings
}

var _ nvp.Provider = (*Mem)(nil)
var _ nvp.Lister = (*Mem)(nil)

// NewMem returns an empty in-memory provider.
func NewMem() *Mem {
	return &Mem{
		store:  swiss.NewMap[nvp.RegionID, []byte](8),
		mapped: swiss.NewMap[nvp.RegionID, []byte](8),
	}
}

func (p *Mem) CreateAndMap(id nvp.RegionID, size int) ([]byte, error) {
	if size <= 0 {
		return nil, errors.Wrapf(nvp.ErrInvalidArgument, "mem: region %d size %d", id, size)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.store.Has(id) {
		return nil, errors.Wrapf(nvp.ErrDuplicate, "mem: region %d", id)
	}
	p.store.Put(id, make([]byte, size))
	data := make([]byte, size)
	p.mapped.Put(id, data)
	return data, nil
}

func (p *Mem) Attach(id nvp.RegionID) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if data, ok := p.mapped.Get(id); ok {
		return data, nil
	}
	stored, ok := p.store.Get(id)
	if !ok {
		return nil, errors.Wrapf(nvp.ErrNotFound, "mem: region %d", id)
	}
	data := make([]byte, len(stored))
	copy(data, stored)
	p.mapped.Put(id, data)
	return data, nil
}

func (p *Mem) Detach(id nvp.RegionID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	data, ok := p.mapped.Get(id)
	if !ok {
		return errors.Wrapf(nvp.ErrNotFound, "mem: region %d not mapped", id)
	}
	stored, _ := p.store.Get(id)
	copy(stored, data)
	p.mapped.Delete(id)
	return nil
}

func (p *Mem) Destroy(id nvp.RegionID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.store.Delete(id) {
		return errors.Wrapf(nvp.ErrNotFound, "mem: region %d", id)
	}
	p.mapped.Delete(id)
	return nil
}

func (p *Mem) Exists(id nvp.RegionID) (int, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	stored, ok := p.store.Get(id)
	return len(stored), ok, nil
}

func (p *Mem) Flush(id nvp.RegionID, off, n int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	data, ok := p.mapped.Get(id)
	if !ok {
		return errors.Wrapf(nvp.ErrNotFound, "mem: region %d not mapped", id)
	}
	if off < 0 || n < 0 || off > len(data) || n > len(data)-off {
		return errors.Wrapf(nvp.ErrInvalidArgument, "mem: flush [%d,+%d) of %d bytes", off, n, len(data))
	}
	stored, _ := p.store.Get(id)
	copy(stored[off:off+n], data[off:off+n])
	return nil
}

// List returns every stored region id in unspecified order.
func (p *Mem) List() ([]nvp.RegionID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]nvp.RegionID, 0, p.store.Count())
	p.store.Iter(func(id nvp.RegionID, _ []byte) bool {
		ids = append(ids, id)
		return false
	})
	return ids, nil
}

// Crash drops every live mapping without flushing, as if the process died.
func (p *Mem) Crash() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mapped.Clear()
}
