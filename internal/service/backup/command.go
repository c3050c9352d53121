package backup

import (
	"context"
	"fmt"
	"time"

	"github.com/oshokin/vm-maintenance/internal/config"
	domain "github.com/oshokin/vm-maintenance/internal/domain/snapshot"
	"github.com/oshokin/vm-maintenance/internal/identity"
	"github.com/oshokin/vm-maintenance/internal/logger"
	repo "github.com/oshokin/vm-maintenance/internal/repository/snapshot"
	"github.com/oshokin/vm-maintenance/internal/service/common"
)

// Options controls a backup run.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// EnvFile specifies an optional dotenv file with VMM_* overrides.
	EnvFile string
	// DryRun logs the planned snapshot and deletions without changing anything.
	DryRun bool

	// Repository replaces the Compute Engine repository when set.
	Repository repo.Repository
	// Identity replaces the metadata-server identity provider when set.
	Identity identity.Provider
	// Now replaces the clock used for snapshot names when set.
	Now func() time.Time
}

// Run executes one backup: load settings, take the run lock, snapshot the disk
// and prune old snapshots. It fails only when the snapshot could not be taken
// (or nothing could be set up); pruning problems are logged and reported in
// the result.
func Run(ctx context.Context, opts *Options) (*Result, error) {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "backup")

	cfg, err := config.Load(opts.ConfigPath, opts.EnvFile)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	ctx, cancel := withRunTimeout(ctx, cfg.Timeout)
	defer cancel()

	lock, err := common.AcquireRunLock(ctx, cfg.Paths.LockFile)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := lock.Release(); err != nil {
			logger.WarnKV(ctx, "Release run lock failed", "error", err)
		}
	}()

	repository, provider, closeRepo, err := dependencies(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}

	defer closeRepo()

	svc := newService(repository, provider, opts.Now, cfg.Retention.Keep)

	result, err := svc.Backup(ctx, opts.DryRun)
	if err != nil {
		return nil, err
	}

	if result.Pending {
		logger.WarnKV(ctx, "Backup finished before the snapshot was ready", "snapshot", result.Created)

		return result, nil
	}

	if result.PruneErr != nil {
		logger.WarnKV(ctx, "Backup finished with pruning errors",
			"snapshot", result.Created,
			"deleted", len(result.Deleted),
			"failed", len(result.Failed))

		return result, nil
	}

	logger.InfoKV(ctx, "Backup finished", "snapshot", result.Created, "deleted", len(result.Deleted))

	return result, nil
}

// Inspection is the retention plan of a VM as it stands now.
type Inspection struct {
	// Instance is the VM whose snapshots were listed.
	Instance string
	// Plan splits the VM's backup snapshots into kept and prunable ones.
	Plan *domain.RetentionPlan
}

// Inspect lists the VM's backup snapshots and applies the configured retention
// without changing anything.
func Inspect(ctx context.Context, opts *Options) (*Inspection, error) {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "snapshots")

	cfg, err := config.Load(opts.ConfigPath, opts.EnvFile)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	ctx, cancel := withRunTimeout(ctx, cfg.Timeout)
	defer cancel()

	repository, provider, closeRepo, err := dependencies(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}

	defer closeRepo()

	return newService(repository, provider, opts.Now, cfg.Retention.Keep).Inspect(ctx)
}

// withRunTimeout bounds ctx by timeout. A zero timeout leaves it unbounded.
func withRunTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, timeout)
}

// dependencies returns the injected collaborators or builds the production
// ones from cfg. The returned func releases the repository.
func dependencies(ctx context.Context, cfg *config.Config, opts *Options) (repo.Repository, identity.Provider, func(), error) {
	provider := opts.Identity
	if provider == nil {
		provider = identity.NewMetadataProvider(identity.Identity{
			Project:  cfg.Project,
			Instance: cfg.Instance,
			Zone:     cfg.Zone,
			Disk:     cfg.Disk,
		})
	}

	if opts.Repository != nil {
		return opts.Repository, provider, func() {}, nil
	}

	compute, err := repo.NewComputeRepository(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	return compute, provider, func() {
		_ = compute.Close()
	}, nil
}
