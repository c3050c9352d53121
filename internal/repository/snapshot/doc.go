// Package snapshot implements persistence for backup snapshots.
//
// ComputeRepository talks to the Compute Engine API; MemoryRepository keeps
// snapshots in memory for tests and local dry runs. Both satisfy Repository,
// which the backup service depends on.
package snapshot
