package snapshot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	compute "cloud.google.com/go/compute/apiv1"
	"cloud.google.com/go/compute/apiv1/computepb"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/proto"

	domain "github.com/oshokin/vm-maintenance/internal/domain/snapshot"
	"github.com/oshokin/vm-maintenance/internal/logger"
)

// ComputeRepository stores snapshots through the Compute Engine REST API.
type ComputeRepository struct {
	// disks creates snapshots from disks.
	disks *compute.DisksClient
	// snapshots lists and deletes snapshots.
	snapshots *compute.SnapshotsClient
}

// NewComputeRepository creates the compute clients using Application Default
// Credentials, which on a VM are the credentials of its service account.
func NewComputeRepository(ctx context.Context, opts ...option.ClientOption) (*ComputeRepository, error) {
	disks, err := compute.NewDisksRESTClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create disks client: %w", err)
	}

	snapshots, err := compute.NewSnapshotsRESTClient(ctx, opts...)
	if err != nil {
		_ = disks.Close()

		return nil, fmt.Errorf("create snapshots client: %w", err)
	}

	return &ComputeRepository{
		disks:     disks,
		snapshots: snapshots,
	}, nil
}

// Close releases both API clients.
func (r *ComputeRepository) Close() error {
	return errors.Join(r.disks.Close(), r.snapshots.Close())
}

// Create snapshots req.Disk and waits for the operation to complete.
func (r *ComputeRepository) Create(ctx context.Context, req *CreateRequest) (*domain.Snapshot, error) {
	resource := &computepb.Snapshot{
		Name:   proto.String(req.Name),
		Labels: req.Labels,
	}

	if req.StorageLocation != "" {
		resource.StorageLocations = []string{req.StorageLocation}
	}

	op, err := r.disks.CreateSnapshot(ctx, &computepb.CreateSnapshotDiskRequest{
		Project:          req.Project,
		Zone:             req.Zone,
		Disk:             req.Disk,
		SnapshotResource: resource,
	})
	if err != nil {
		return nil, fmt.Errorf("create snapshot %s: %w", req.Name, classify(err))
	}

	logger.DebugKV(ctx, "Waiting for snapshot operation", "operation", op.Name())

	if err = op.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for snapshot %s: %w", req.Name, classify(err))
	}

	return &domain.Snapshot{
		Name:             req.Name,
		CreatedAt:        time.Now(),
		SourceDisk:       req.Disk,
		StorageLocations: resource.GetStorageLocations(),
	}, nil
}

// List pages through every snapshot whose name contains prefix.
func (r *ComputeRepository) List(ctx context.Context, project, prefix string) ([]*domain.Snapshot, error) {
	it := r.snapshots.List(ctx, &computepb.ListSnapshotsRequest{
		Project: project,
		Filter:  proto.String(nameFilter(prefix)),
	})

	var result []*domain.Snapshot

	for {
		item, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("list snapshots: %w", classify(err))
		}

		s, err := fromProto(item)
		if err != nil {
			return nil, err
		}

		result = append(result, s)
	}

	return result, nil
}

// Delete removes the named snapshot and waits for the operation.
func (r *ComputeRepository) Delete(ctx context.Context, project, name string) error {
	op, err := r.snapshots.Delete(ctx, &computepb.DeleteSnapshotRequest{
		Project:  project,
		Snapshot: name,
	})
	if err != nil {
		return fmt.Errorf("delete snapshot %s: %w", name, classify(err))
	}

	if err = op.Wait(ctx); err != nil {
		return fmt.Errorf("wait for deletion of %s: %w", name, classify(err))
	}

	return nil
}

// nameFilter builds a list filter matching names that contain prefix.
// The eq operator takes an RE2 expression that must match the whole name.
func nameFilter(prefix string) string {
	return fmt.Sprintf(`name eq ".*%s.*"`, regexp.QuoteMeta(prefix))
}

// fromProto converts a compute snapshot into the domain model.
func fromProto(s *computepb.Snapshot) (*domain.Snapshot, error) {
	var createdAt time.Time

	if ts := s.GetCreationTimestamp(); ts != "" {
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse creation time of %s: %w", s.GetName(), err)
		}

		createdAt = parsed
	}

	return &domain.Snapshot{
		Name:             s.GetName(),
		CreatedAt:        createdAt,
		SourceDisk:       s.GetSourceDisk(),
		StorageLocations: s.GetStorageLocations(),
	}, nil
}

// classify maps API status codes onto the repository sentinel errors.
func classify(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}

	switch apiErr.Code {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case http.StatusConflict:
		return fmt.Errorf("%w: %w", ErrAlreadyExists, err)
	default:
		return err
	}
}
