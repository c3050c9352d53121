// Package snapshot contains the core domain types for automatic disk backups.
//
// It defines the Snapshot entity, the naming convention that ties a snapshot
// to the VM it was taken from, and the zone-to-region rule that decides where
// a snapshot is stored.
package snapshot
