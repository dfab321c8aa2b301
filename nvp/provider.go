package nvp

// Provider is the backend that owns region storage. Mapped slices returned
// by CreateAndMap and Attach stay valid until Detach or Destroy for the same
// id. Implementations must be safe for concurrent use.
type Provider interface {
	// CreateAndMap creates a region of exactly size bytes and maps it.
	// It fails with ErrDuplicate when the region already exists.
	CreateAndMap(id RegionID, size int) ([]byte, error)

	// Attach maps an existing region. It fails with ErrNotFound when the
	// region does not exist. Attaching an already mapped region returns the
	// current mapping.
	Attach(id RegionID) ([]byte, error)

	// Detach unmaps a region without destroying it.
	Detach(id RegionID) error

	// Destroy unmaps and permanently removes a region.
	Destroy(id RegionID) error

	// Exists reports whether the region exists and its size.
	Exists(id RegionID) (size int, ok bool, err error)

	// Flush persists n bytes at off of a mapped region.
	Flush(id RegionID, off, n int) error
}

// Lister is implemented by providers that can enumerate their regions.
type Lister interface {
	List() ([]RegionID, error)
}
