package snapshot

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// monthly returns n backups of vm taken on the first of consecutive months of 2024, oldest first.
func monthly(vm string, n int) []*Snapshot {
	out := make([]*Snapshot, 0, n)

	for i := 0; i < n; i++ {
		ts := time.Date(2024, time.Month(i+1), 1, 2, 0, 0, 0, time.UTC)
		out = append(out, &Snapshot{Name: Name(vm, ts), CreatedAt: ts})
	}

	return out
}

// TestPlan_FiveMonthlyBackups deletes exactly the oldest of five snapshots.
func TestPlan_FiveMonthlyBackups(t *testing.T) {
	t.Parallel()

	plan := Plan("vm1", monthly("vm1", 5), 4)

	require.Equal(t, []string{
		"vm1-auto-backup-20240501-020000",
		"vm1-auto-backup-20240401-020000",
		"vm1-auto-backup-20240301-020000",
		"vm1-auto-backup-20240201-020000",
	}, Names(plan.Keep))
	require.Equal(t, []string{"vm1-auto-backup-20240101-020000"}, Names(plan.Delete))
}

// TestPlan_AtOrBelowKeepDeletesNothing verifies no deletions for small retention sets.
func TestPlan_AtOrBelowKeepDeletesNothing(t *testing.T) {
	t.Parallel()

	for n := 0; n < 5; n++ {
		plan := Plan("vm1", monthly("vm1", n), 4)
		require.Empty(t, plan.Delete, n)
		require.Len(t, plan.Keep, n)
	}
}

// TestPlan_KeepsNewestRegardlessOfInputOrder shuffles input and checks the newest four survive.
func TestPlan_KeepsNewestRegardlessOfInputOrder(t *testing.T) {
	t.Parallel()

	all := monthly("vm1", 12)
	shuffled := append([]*Snapshot(nil), all...)
	rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	plan := Plan("vm1", shuffled, 4)

	require.Equal(t, Names([]*Snapshot{all[11], all[10], all[9], all[8]}), Names(plan.Keep))
	require.Len(t, plan.Delete, 8)

	// Deletions go from the newest beyond retention down to the oldest.
	require.Equal(t, all[7].Name, plan.Delete[0].Name)
	require.Equal(t, all[0].Name, plan.Delete[7].Name)
}

// TestPlan_IgnoresOtherSnapshots ensures foreign and manual snapshots are never touched.
func TestPlan_IgnoresOtherSnapshots(t *testing.T) {
	t.Parallel()

	input := append(monthly("vm1", 5), monthly("vm2", 6)...)
	input = append(input, &Snapshot{Name: "vm1-manual", CreatedAt: time.Unix(0, 0)}, nil)

	plan := Plan("vm1", input, 4)

	require.Len(t, plan.Keep, 4)
	require.Equal(t, []string{"vm1-auto-backup-20240101-020000"}, Names(plan.Delete))
}

// TestPlan_CreationTimeWinsOverName sorts by timestamp, not lexical name.
func TestPlan_CreationTimeWinsOverName(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	input := []*Snapshot{
		{Name: "vm1-auto-backup-z", CreatedAt: base},
		{Name: "vm1-auto-backup-a", CreatedAt: base.Add(time.Hour)},
	}

	plan := Plan("vm1", input, 1)

	require.Equal(t, []string{"vm1-auto-backup-a"}, Names(plan.Keep))
	require.Equal(t, []string{"vm1-auto-backup-z"}, Names(plan.Delete))
}

// TestPlan_NegativeKeep treats a negative keep as zero.
func TestPlan_NegativeKeep(t *testing.T) {
	t.Parallel()

	plan := Plan("vm1", monthly("vm1", 2), -1)

	require.Empty(t, plan.Keep)
	require.Len(t, plan.Delete, 2)
}
