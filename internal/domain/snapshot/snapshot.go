package snapshot

import (
	"regexp"
	"strings"
	"time"
)

const (
	// TimestampLayout formats the creation time embedded in snapshot names.
	TimestampLayout = "20060102-150405"

	// nameInfix separates the VM name from the timestamp.
	nameInfix = "-auto-backup"
)

// zoneSuffix matches the availability zone letter at the end of a zone.
var zoneSuffix = regexp.MustCompile(`-[a-zA-Z]$`)

// Snapshot is a point-in-time copy of a disk created by the backup procedure.
type Snapshot struct {
	// Name is the unique snapshot name, see Name.
	Name string
	// CreatedAt is the creation time reported by the provider.
	CreatedAt time.Time
	// SourceDisk is the disk the snapshot was taken from.
	SourceDisk string
	// StorageLocations lists the regions holding the snapshot data.
	StorageLocations []string
}

// Prefix returns the name prefix shared by every backup snapshot of vm.
func Prefix(vm string) string {
	return vm + nameInfix
}

// Name returns the snapshot name for a backup of vm taken at t.
// t is formatted in its own location with second granularity.
func Name(vm string, t time.Time) string {
	return Prefix(vm) + "-" + t.Format(TimestampLayout)
}

// BelongsTo reports whether the snapshot is a backup of vm.
func (s *Snapshot) BelongsTo(vm string) bool {
	return strings.Contains(s.Name, Prefix(vm))
}

// RegionFromZone strips one trailing "-<letter>" from zone:
// "us-central1-a" becomes "us-central1". Other input is returned unchanged.
func RegionFromZone(zone string) string {
	return zoneSuffix.ReplaceAllString(zone, "")
}
