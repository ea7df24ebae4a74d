/*
Package ports defines the driven ports (interfaces) for the lattice engine.

These interfaces decouple the machine runtime from external implementations, allowing
groups to be loaded from various sources and sessions to live in various backends.

# Key Interfaces

  - GroupLoader: Retrieves raw group documents (e.g., from Loam, files or memory).
  - SnapshotStore: Persists the vector of a session between dispatches.
  - DistributedLocker: Serializes dispatch on a session across replicas.
  - TextStore: Holds the site-wide llms.txt blob.
  - NotificationQuery: Lists and counts notifications visible to a viewer.
*/
package ports
