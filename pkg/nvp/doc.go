/*
Package nvp is the entry point for persistent-memory handles.

A Directory owns a region provider, a region cache and any number of open
heaps. Regions are named by a numeric RegionID and are either used whole
(CreateRegion / Resolve / ReleaseRegion) or formatted as a chunked heap
(InitHeap) that hands out ChunkHandles. Handles hold no pointers, so they can
be stored inside persistent data and resolved again after a restart.

# Quick Start

	d, err := nvp.OpenDir("/var/lib/app/regions", nvp.Options{})
	if err != nil {
	    return err
	}
	defer d.Close()

	if _, err := d.InitHeap(1, 1<<20); err != nil {
	    return err
	}
	c, err := d.CreateWithData([]byte("hello"))
	if err != nil {
	    return err
	}
	if err := d.Sync(ctx); err != nil {
	    return err
	}
	b, _ := d.ResolveChunk(c) // "hello"

# Handles

Handle is the persistable tagged form. RegionHandle and ChunkHandle are the
typed forms: only a RegionHandle can be released, so freeing a chunk can never
destroy the heap it lives in.

Resolve returns the whole mapping of a region and ignores any offset.
ResolveChunk returns the bytes of one chunk inside its heap's data area.

# Durability

Mappings are written in place. Sync flushes every heap's dirty ranges through
the provider; Detach and Close sync before unmapping. Writes made through
Resolve on plain regions are persisted by the provider on Detach or Close.
*/
package nvp
