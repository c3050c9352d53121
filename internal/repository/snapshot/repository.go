package snapshot

import (
	"context"
	"errors"

	domain "github.com/oshokin/vm-maintenance/internal/domain/snapshot"
)

// Repository defines the snapshot operations the backup procedure needs.
type Repository interface {
	// Create snapshots a disk and waits until the snapshot is ready.
	Create(ctx context.Context, req *CreateRequest) (*domain.Snapshot, error)
	// List returns the project's snapshots whose name contains prefix, in no particular order.
	List(ctx context.Context, project, prefix string) ([]*domain.Snapshot, error)
	// Delete removes one snapshot and waits for the deletion to finish.
	Delete(ctx context.Context, project, name string) error
}

// CreateRequest describes a snapshot to create.
type CreateRequest struct {
	// Project is the GCP project owning the disk.
	Project string
	// Zone is the disk zone.
	Zone string
	// Disk is the source disk name.
	Disk string
	// Name is the snapshot name.
	Name string
	// StorageLocation is the region the snapshot is stored in.
	StorageLocation string
	// Labels are attached to the snapshot.
	Labels map[string]string
}

var (
	// ErrNotFound is returned when the snapshot does not exist.
	ErrNotFound = errors.New("snapshot not found")
	// ErrAlreadyExists is returned when a snapshot with the same name exists.
	ErrAlreadyExists = errors.New("snapshot already exists")
)
