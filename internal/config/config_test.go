package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestLoad_MissingFileUsesDefaults verifies an absent settings file yields Default.
func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), "")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

// TestLoad_FileOverridesDefaults checks that YAML values win and gaps are filled.
func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := []byte(`
instance: vm1
retention:
  keep: 7
schedule:
  backup: "30 1 * * 6"
timeout: 90s
`)
	require.NoError(t, os.WriteFile(path, contents, DefaultFilePermissions))

	cfg, err := Load(path, "")
	require.NoError(t, err)
	require.Equal(t, "vm1", cfg.Instance)
	require.Equal(t, 7, cfg.Retention.Keep)
	require.Equal(t, "30 1 * * 6", cfg.Schedule.Backup)
	require.Equal(t, "0 3 * * 0", cfg.Schedule.RebootCheck)
	require.Equal(t, 90*time.Second, cfg.Timeout)
	require.Equal(t, Default().Paths, cfg.Paths)
}

// TestLoad_EnvironmentOverridesFile ensures VMM_* variables and the dotenv file take precedence.
func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("zone: europe-west1-b\nretention:\n  keep: 2\n"), DefaultFilePermissions))

	envFile := filepath.Join(dir, "vm-maintenance.env")
	require.NoError(t, os.WriteFile(envFile, []byte("VMM_DISK=data-disk\n"), DefaultFilePermissions))

	t.Setenv("VMM_RETENTION_KEEP", "5")
	t.Setenv("VMM_ZONE", "us-central1-a")

	t.Cleanup(func() {
		_ = os.Unsetenv("VMM_DISK")
	})

	cfg, err := Load(path, envFile)
	require.NoError(t, err)
	require.Equal(t, 5, cfg.Retention.Keep)
	require.Equal(t, "us-central1-a", cfg.Zone)
	require.Equal(t, "data-disk", cfg.Disk)
}

// TestLoad_MissingEnvFileIsIgnored verifies the dotenv file is optional.
func TestLoad_MissingEnvFileIsIgnored(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"), filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
}

// TestLoad_InvalidYAML reports unmarshal failures.
func TestLoad_InvalidYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retention: [oops"), DefaultFilePermissions))

	_, err := Load(path, "")
	require.Error(t, err)
}

// TestValidate checks the rejection rules for settings.
func TestValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, Validate(Default()))
	require.ErrorIs(t, Validate(nil), errConfigIsNotSet)

	cfg := Default()
	cfg.Retention.Keep = 0
	require.ErrorIs(t, Validate(cfg), errInvalidKeep)

	cfg = Default()
	cfg.Timeout = 0
	require.NoError(t, Validate(cfg))

	cfg.Timeout = -time.Second
	require.ErrorIs(t, Validate(cfg), errInvalidTimeout)

	cfg = Default()
	cfg.Schedule.Backup = "every sunday"
	require.Error(t, Validate(cfg))

	cfg = Default()
	cfg.Schedule.RebootCheck = "0 3 * *"
	require.Error(t, Validate(cfg))

	cfg = Default()
	cfg.Paths.LockFile = ""
	require.ErrorIs(t, Validate(cfg), errEmptyPath)
}

// TestValidate_ReportsFirstEmptyPath names the same field on every call.
func TestValidate_ReportsFirstEmptyPath(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Paths.BackupLog = ""
	cfg.Paths.RebootSentinel = ""
	cfg.Paths.LockFile = ""

	for i := 0; i < 20; i++ {
		err := Validate(cfg)
		require.ErrorIs(t, err, errEmptyPath)
		require.ErrorContains(t, err, "paths.backup_log")
	}
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Project = "acme-prod"
	cfg.Retention.Keep = 3

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path, "")
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)

	require.ErrorIs(t, Save(path, nil), errConfigIsNotSet)
}
