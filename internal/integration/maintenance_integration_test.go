package integration

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/vm-maintenance/internal/config"
	"github.com/oshokin/vm-maintenance/internal/identity"
	repo "github.com/oshokin/vm-maintenance/internal/repository/snapshot"
	"github.com/oshokin/vm-maintenance/internal/service/backup"
	"github.com/oshokin/vm-maintenance/internal/service/rebootcheck"
	"github.com/oshokin/vm-maintenance/internal/service/setup"
	"github.com/oshokin/vm-maintenance/internal/system"
)

// errQuotaExceeded stands in for a rejected snapshot request.
var errQuotaExceeded = errors.New("quota SNAPSHOTS exceeded")

// vm is the identity every flow runs as.
var vm = identity.Static{Project: "acme", Instance: "web-1", Zone: "europe-west1-b", Disk: "web-1-boot"}

// rebooter counts reboot requests instead of restarting the host.
type rebooter struct {
	calls int
}

// Reboot records the call.
func (r *rebooter) Reboot(context.Context) error {
	r.calls++

	return nil
}

// hostConfig writes settings that keep every runtime path inside dir.
func hostConfig(t *testing.T, dir string) (string, *config.Config) {
	t.Helper()

	cfg := config.Default()
	cfg.Paths.LockFile = filepath.Join(dir, "run", "backup.lock")
	cfg.Paths.RebootSentinel = filepath.Join(dir, "run", "reboot-required")
	cfg.Paths.BackupLog = filepath.Join(dir, "log", "vm-backup.log")
	cfg.Paths.RebootLog = filepath.Join(dir, "log", "vm-reboot-check.log")

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, config.Save(path, cfg))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "run"), 0o750))

	return path, cfg
}

// TestWeeklyBackups_RetainNewestFour replays two months of Sunday runs.
func TestWeeklyBackups_RetainNewestFour(t *testing.T) {
	t.Parallel()

	cfgPath, _ := hostConfig(t, t.TempDir())

	memory := repo.NewMemoryRepository()
	sunday := time.Date(2024, time.September, 1, 2, 0, 0, 0, time.Local)

	var last *backup.Result

	for week := 0; week < 8; week++ {
		now := sunday.AddDate(0, 0, 7*week)
		memory.Now = func() time.Time { return now }

		result, err := backup.Run(context.Background(), &backup.Options{
			ConfigPath: cfgPath,
			Repository: memory,
			Identity:   vm,
			Now:        func() time.Time { return now },
		})
		require.NoError(t, err)
		require.NoError(t, result.PruneErr)

		require.LessOrEqual(t, len(memory.Names()), config.DefaultKeep)

		last = result
	}

	require.Equal(t, []string{
		"web-1-auto-backup-20241020-020000",
		"web-1-auto-backup-20241013-020000",
		"web-1-auto-backup-20241006-020000",
		"web-1-auto-backup-20240929-020000",
	}, memory.Names())
	require.Equal(t, memory.Names(), last.Kept)
	require.Equal(t, []string{"web-1-auto-backup-20240922-020000"}, last.Deleted)

	listed, err := memory.List(context.Background(), vm.Project, "web-1-auto-backup")
	require.NoError(t, err)

	for _, s := range listed {
		require.Equal(t, []string{"europe-west1"}, s.StorageLocations)
		require.Equal(t, "web-1-boot", s.SourceDisk)
	}
}

// TestSetupThenRebootCheck bootstraps a host and runs both reboot-check outcomes.
func TestSetupThenRebootCheck(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath, cfg := hostConfig(t, dir)
	root := filepath.Join(dir, "root")
	executor := new(system.RecordingExecutor)

	written, err := setup.Run(context.Background(), &setup.Options{
		ConfigPath: cfgPath,
		Root:       root,
		Executor:   executor,
	})
	require.NoError(t, err)
	require.Len(t, written, 5)
	require.Len(t, executor.Calls(), 2)

	crontab, err := os.ReadFile(filepath.Join(root, setup.CronPath))
	require.NoError(t, err)

	var schedules []string

	for _, line := range strings.Split(string(crontab), "\n") {
		if !strings.Contains(line, cfg.Paths.Binary) {
			continue
		}

		fields := strings.Fields(line)
		schedules = append(schedules, strings.Join(fields[:5], " "))

		_, err = cron.ParseStandard(strings.Join(fields[:5], " "))
		require.NoError(t, err)
	}

	require.Equal(t, []string{cfg.Schedule.Backup, cfg.Schedule.RebootCheck}, schedules)
	require.Contains(t, string(crontab), ">> "+cfg.Paths.RebootLog+" 2>&1")
	require.Contains(t, string(crontab), "--config "+cfgPath+" reboot-check")

	r := new(rebooter)

	outcome, err := rebootcheck.Run(context.Background(), &rebootcheck.Options{ConfigPath: cfgPath, Rebooter: r})
	require.NoError(t, err)
	require.Equal(t, rebootcheck.NotRequired, outcome)
	require.Zero(t, r.calls)

	require.NoError(t, os.WriteFile(cfg.Paths.RebootSentinel, []byte("*** System restart required ***\n"), 0o600))
	require.NoError(t, os.WriteFile(cfg.Paths.RebootSentinel+".pkgs", []byte("linux-image-generic\n"), 0o600))

	outcome, err = rebootcheck.Run(context.Background(), &rebootcheck.Options{ConfigPath: cfgPath, Rebooter: r})
	require.NoError(t, err)
	require.Equal(t, rebootcheck.Rebooting, outcome)
	require.Equal(t, 1, r.calls)
}

// TestBackupCreateFailure_LeavesSnapshotsUntouched fails the run and deletes nothing.
func TestBackupCreateFailure_LeavesSnapshotsUntouched(t *testing.T) {
	t.Parallel()

	cfgPath, _ := hostConfig(t, t.TempDir())

	memory := repo.NewMemoryRepository()
	sunday := time.Date(2024, time.September, 1, 2, 0, 0, 0, time.Local)

	for week := 0; week < 6; week++ {
		now := sunday.AddDate(0, 0, 7*week)
		memory.Now = func() time.Time { return now }

		_, err := memory.Create(context.Background(), &repo.CreateRequest{
			Project: vm.Project,
			Disk:    vm.Disk,
			Name:    "web-1-auto-backup-" + now.Format("20060102-150405"),
		})
		require.NoError(t, err)
	}

	memory.CreateErr = errQuotaExceeded

	_, err := backup.Run(context.Background(), &backup.Options{
		ConfigPath: cfgPath,
		Repository: memory,
		Identity:   vm,
	})
	require.ErrorIs(t, err, backup.ErrSnapshotCreate)
	require.Len(t, memory.Names(), 6)
	require.Empty(t, memory.Deleted())
}
