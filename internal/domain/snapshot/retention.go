package snapshot

import (
	"slices"
	"strings"
)

// RetentionPlan splits a retention set into the snapshots to keep and the
// snapshots to delete. Both slices are ordered newest first, which is also
// the order deletions are issued in.
type RetentionPlan struct {
	Keep   []*Snapshot
	Delete []*Snapshot
}

// Plan builds the retention plan for vm: snapshots that are not backups of vm
// are ignored, the rest is sorted by creation time descending and everything
// after the newest keep entries is scheduled for deletion.
// A keep below zero is treated as zero.
func Plan(vm string, snapshots []*Snapshot, keep int) *RetentionPlan {
	set := make([]*Snapshot, 0, len(snapshots))

	for _, s := range snapshots {
		if s != nil && s.BelongsTo(vm) {
			set = append(set, s)
		}
	}

	SortNewestFirst(set)

	keep = max(keep, 0)
	if len(set) <= keep {
		return &RetentionPlan{Keep: set}
	}

	return &RetentionPlan{
		Keep:   set[:keep],
		Delete: set[keep:],
	}
}

// SortNewestFirst orders snapshots by creation time descending.
// Equal timestamps fall back to name descending so the order is deterministic.
func SortNewestFirst(snapshots []*Snapshot) {
	slices.SortStableFunc(snapshots, func(a, b *Snapshot) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}

		return strings.Compare(b.Name, a.Name)
	})
}

// Names returns the names of snapshots in order.
func Names(snapshots []*Snapshot) []string {
	names := make([]string, 0, len(snapshots))
	for _, s := range snapshots {
		names = append(names, s.Name)
	}

	return names
}
