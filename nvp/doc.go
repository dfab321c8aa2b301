// Package nvp defines the core vocabulary of the persistent-memory handle
// allocator: region identities, handles, the region provider contract and
// the error taxonomy shared by every other package.
//
// # Handles
//
// A handle is plain data naming a persistent byte range. It holds no
// address, so it can be stored inside another region and used again after
// the process restarts, as long as the backing region still exists.
//
// Two kinds exist and they are statically distinct:
//
//   - RegionHandle names a whole region created through a provider.
//   - ChunkHandle names a run of chunks inside a heap region.
//
// The generic Handle carries a Kind tag and converts back to either kind
// with AsRegion or AsChunk. Operations that destroy storage accept only a
// RegionHandle, so releasing a chunk can never destroy its owning heap.
//
// # Providers
//
// A Provider creates, maps, unmaps and destroys regions identified by a
// RegionID. See the provider subpackage for the in-memory and file-backed
// implementations.
//
// # Related Packages
//
//   - github.com/joshuapare/nvpkit/nvp/cache: region id to mapping memo
//   - github.com/joshuapare/nvpkit/nvp/heap: bitmap chunk allocator
//   - github.com/joshuapare/nvpkit/pkg/nvp: Directory, the top-level API
package nvp
