/*
Package ports defines the driven ports (interfaces) of the lattice engine.

These interfaces decouple the editing core from the outside world, so the same
engine runs against an in-memory map, a directory of files or a Redis server.

# Key Interfaces

  - BlobStore: get/set/delete/list of named session blobs.
  - DistributedLocker: distributed locking for concurrent session access.
  - LayerComputer: remote layer computation.

RunBlobStoreContract verifies a BlobStore implementation and is meant to be
called from each adapter's tests.
*/
package ports
