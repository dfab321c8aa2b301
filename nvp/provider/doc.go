// Package provider implements nvp.Provider.
//
// Mem keeps regions in process memory. Mapped slices are separate from the
// persisted contents: writes become durable on Flush or Detach, and a Crash
// drops every unflushed write, which makes it convenient for testing
// recovery paths. Re-attaching a detached region yields a new slice, just
// as a real remap yields a new address.
//
// File stores each region in its own file under a directory and maps it
// read-write. Every mapped region is guarded by an exclusive advisory lock
// on a sibling ".lock" file, so at most one writer (one process, one
// provider) holds a region at a time; a second attempt fails with
// nvp.ErrRegionBusy instead of silently sharing the bitmap.
package provider
