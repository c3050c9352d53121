package backup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	domain "github.com/oshokin/vm-maintenance/internal/domain/snapshot"
	"github.com/oshokin/vm-maintenance/internal/identity"
	"github.com/oshokin/vm-maintenance/internal/logger"
	repo "github.com/oshokin/vm-maintenance/internal/repository/snapshot"
)

// ErrSnapshotCreate marks a failed snapshot creation. Pruning never runs after it.
var ErrSnapshotCreate = errors.New("snapshot creation failed")

// Result summarizes one backup run.
type Result struct {
	// Created is the name of the snapshot taken (or planned, in dry-run mode).
	Created string
	// Kept lists the retention set that survived, newest first.
	Kept []string
	// Deleted lists the snapshots removed, in deletion order.
	Deleted []string
	// Failed lists the snapshots whose deletion failed.
	Failed []string
	// PruneErr aggregates listing and deletion failures. It does not fail the run.
	PruneErr error
	// Pending is set when the run deadline expired while waiting for the
	// snapshot. The snapshot keeps being created and pruning is skipped.
	Pending bool
}

// service creates and prunes snapshots for the VM named by its identity provider.
type service struct {
	// repo stores the snapshots.
	repo repo.Repository
	// identity resolves the VM at the start of every run.
	identity identity.Provider
	// now provides the timestamp embedded in snapshot names.
	now func() time.Time
	// keep is how many snapshots survive pruning.
	keep int
}

// newService wires a backup service. A nil clock means time.Now.
func newService(repository repo.Repository, provider identity.Provider, now func() time.Time, keep int) *service {
	if now == nil {
		now = time.Now
	}

	return &service{
		repo:     repository,
		identity: provider,
		now:      now,
		keep:     keep,
	}
}

// Backup takes the snapshot and prunes the retention set. When dryRun is set
// nothing is created or deleted; the result shows what would have happened.
func (s *service) Backup(ctx context.Context, dryRun bool) (*Result, error) {
	id, err := s.identity.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve identity: %w", err)
	}

	ctx = logger.WithKV(ctx, "instance", id.Instance, "project", id.Project)

	createdAt := s.now()
	req := &repo.CreateRequest{
		Project:         id.Project,
		Zone:            id.Zone,
		Disk:            id.Disk,
		Name:            domain.Name(id.Instance, createdAt),
		StorageLocation: domain.RegionFromZone(id.Zone),
		Labels: map[string]string{
			"auto-backup": "true",
			"instance":    id.Instance,
		},
	}

	logger.InfoKV(ctx, "Creating snapshot",
		"snapshot", req.Name,
		"disk", req.Disk,
		"zone", req.Zone,
		"storage_location", req.StorageLocation,
		"dry_run", dryRun)

	if !dryRun {
		_, err = s.repo.Create(ctx, req)
		if errors.Is(err, context.DeadlineExceeded) {
			logger.WarnKV(ctx, "Run timed out while the snapshot was being created, pruning skipped",
				"snapshot", req.Name, "error", err)

			return &Result{Created: req.Name, Pending: true}, nil
		}

		if err != nil {
			logger.ErrorKV(ctx, "Snapshot creation failed, pruning skipped", "snapshot", req.Name, "error", err)

			return nil, fmt.Errorf("%w: %w", ErrSnapshotCreate, err)
		}

		logger.InfoKV(ctx, "Snapshot created", "snapshot", req.Name)
	}

	result := &Result{Created: req.Name}

	var planned *domain.Snapshot
	if dryRun {
		planned = &domain.Snapshot{Name: req.Name, CreatedAt: createdAt, SourceDisk: req.Disk}
	}

	s.prune(ctx, id, planned, dryRun, result)

	return result, nil
}

// Inspect lists the VM's backup snapshots and plans retention over them.
func (s *service) Inspect(ctx context.Context) (*Inspection, error) {
	id, err := s.identity.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve identity: %w", err)
	}

	existing, err := s.repo.List(ctx, id.Project, domain.Prefix(id.Instance))
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	return &Inspection{
		Instance: id.Instance,
		Plan:     domain.Plan(id.Instance, existing, s.keep),
	}, nil
}

// prune deletes every backup snapshot of the VM beyond the newest s.keep.
// Deletions are attempted one by one; a failure never stops the next attempt.
// planned, when set, is counted as part of the retention set without being listed.
func (s *service) prune(ctx context.Context, id *identity.Identity, planned *domain.Snapshot, dryRun bool, result *Result) {
	prefix := domain.Prefix(id.Instance)

	existing, err := s.repo.List(ctx, id.Project, prefix)
	if err != nil {
		logger.ErrorKV(ctx, "Listing snapshots failed, pruning skipped", "prefix", prefix, "error", err)
		result.PruneErr = fmt.Errorf("list snapshots: %w", err)

		return
	}

	if planned != nil {
		existing = append(existing, planned)
	}

	plan := domain.Plan(id.Instance, existing, s.keep)
	result.Kept = domain.Names(plan.Keep)

	logger.InfoKV(ctx, "Retention plan ready",
		"matching", len(plan.Keep)+len(plan.Delete),
		"keep", len(plan.Keep),
		"delete", len(plan.Delete))

	for _, victim := range plan.Delete {
		if dryRun {
			logger.InfoKV(ctx, "Would delete snapshot", "snapshot", victim.Name, "created_at", victim.CreatedAt)
			result.Deleted = append(result.Deleted, victim.Name)

			continue
		}

		err = s.repo.Delete(ctx, id.Project, victim.Name)

		switch {
		case err == nil:
			logger.InfoKV(ctx, "Snapshot deleted", "snapshot", victim.Name)
			result.Deleted = append(result.Deleted, victim.Name)
		case errors.Is(err, repo.ErrNotFound):
			logger.WarnKV(ctx, "Snapshot already gone", "snapshot", victim.Name)
			result.Deleted = append(result.Deleted, victim.Name)
		default:
			logger.ErrorKV(ctx, "Snapshot deletion failed", "snapshot", victim.Name, "error", err)
			result.Failed = append(result.Failed, victim.Name)
			result.PruneErr = multierr.Append(result.PruneErr, fmt.Errorf("delete %s: %w", victim.Name, err))
		}
	}
}
