/*
Package ports defines the driven ports (interfaces) of chatflow.

These interfaces decouple the editor and preview core from external implementations,
allowing snapshots to be kept in memory, on disk, or in Redis.

# Key Interfaces

  - SnapshotStore: Saves and loads the snapshot document of a flow, keyed by owner identity.
  - ListableStore: A SnapshotStore that can also enumerate its owners.
*/
package ports
