package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config holds every setting shared by the vm-maintenance procedures.
type Config struct {
	// Project overrides the GCP project id reported by the metadata server.
	Project string `yaml:"project,omitempty" envconfig:"PROJECT"`
	// Instance overrides the VM name reported by the metadata server.
	Instance string `yaml:"instance,omitempty" envconfig:"INSTANCE"`
	// Zone overrides the VM zone reported by the metadata server.
	Zone string `yaml:"zone,omitempty" envconfig:"ZONE"`
	// Disk is the disk to snapshot. Defaults to the instance name (the boot disk).
	Disk string `yaml:"disk,omitempty" envconfig:"DISK"`

	Retention RetentionConfig `yaml:"retention" envconfig:"RETENTION"`
	Schedule  ScheduleConfig  `yaml:"schedule" envconfig:"SCHEDULE"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`

	// Timeout bounds a single procedure run, including waiting for compute
	// operations. Zero leaves runs unbounded.
	Timeout time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" envconfig:"LOG_LEVEL"`
}

// RetentionConfig controls snapshot pruning.
type RetentionConfig struct {
	// Keep is how many of the newest backup snapshots survive pruning.
	Keep int `yaml:"keep" envconfig:"KEEP"`
}

// ScheduleConfig holds standard 5-field cron expressions.
type ScheduleConfig struct {
	Backup      string `yaml:"backup" envconfig:"BACKUP"`
	RebootCheck string `yaml:"reboot_check" envconfig:"REBOOT_CHECK"`
}

// PathsConfig holds filesystem locations used by the procedures and by setup.
type PathsConfig struct {
	Binary         string `yaml:"binary" envconfig:"BINARY"`
	BackupLog      string `yaml:"backup_log" envconfig:"BACKUP_LOG"`
	RebootLog      string `yaml:"reboot_log" envconfig:"REBOOT_LOG"`
	RebootSentinel string `yaml:"reboot_sentinel" envconfig:"REBOOT_SENTINEL"`
	LockFile       string `yaml:"lock_file" envconfig:"LOCK_FILE"`
}

const (
	// DefaultConfigPath is where setup writes and the procedures read settings.
	DefaultConfigPath = "/etc/vm-maintenance/config.yaml"
	// DefaultEnvFile is the optional dotenv file loaded before env overrides.
	DefaultEnvFile = "/etc/default/vm-maintenance"
	// EnvPrefix prefixes every environment override, e.g. VMM_RETENTION_KEEP.
	EnvPrefix = "VMM"

	// DefaultKeep is the number of backup snapshots kept after pruning.
	DefaultKeep = 4
	// DefaultTimeout leaves procedure runs unbounded; the scheduler owns timing.
	DefaultTimeout time.Duration = 0

	// DefaultFilePermissions is the permission for written config files.
	DefaultFilePermissions = 0o644
	// DefaultDirPermissions is the permission for created config directories.
	DefaultDirPermissions = 0o755
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errInvalidKeep is returned when the retention count is below one.
	errInvalidKeep = errors.New("retention.keep must be at least 1")
	// errInvalidTimeout is returned when the timeout is negative.
	errInvalidTimeout = errors.New("timeout must not be negative")
	// errEmptyPath is returned when a required path is blank.
	errEmptyPath = errors.New("path must not be empty")
)

// Default returns the settings used when nothing else is configured.
func Default() *Config {
	return &Config{
		Retention: RetentionConfig{
			Keep: DefaultKeep,
		},
		Schedule: ScheduleConfig{
			Backup:      "0 2 * * 0",
			RebootCheck: "0 3 * * 0",
		},
		Paths: PathsConfig{
			Binary:         "/usr/local/bin/vm-maintenance",
			BackupLog:      "/var/log/vm-backup.log",
			RebootLog:      "/var/log/vm-reboot-check.log",
			RebootSentinel: "/var/run/reboot-required",
			LockFile:       "/var/run/vm-maintenance-backup.lock",
		},
		Timeout:  DefaultTimeout,
		LogLevel: "info",
	}
}

// Load reads the YAML file at path (a missing file is not an error), applies
// the dotenv file at envFile when it exists, then VMM_* environment variables,
// fills the remaining gaps from Default and validates the result.
func Load(path, envFile string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}

	var cfg Config

	contents, err := os.ReadFile(filepath.Clean(path))

	switch {
	case err == nil:
		if err = yaml.Unmarshal(contents, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		// Defaults only.
	default:
		return nil, fmt.Errorf("read settings: %w", err)
	}

	if envFile != "" {
		// godotenv never overrides variables already present in the environment.
		if err = godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	if err = envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("apply environment: %w", err)
	}

	if err = mergo.Merge(&cfg, Default()); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	if err = Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes cfg to path as YAML, creating the parent directory.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	path = filepath.Clean(path)

	if err = os.MkdirAll(filepath.Dir(path), DefaultDirPermissions); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}

	if err = os.WriteFile(path, data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the settings for values the procedures cannot work with.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.Retention.Keep < 1 {
		return errInvalidKeep
	}

	if cfg.Timeout < 0 {
		return errInvalidTimeout
	}

	if _, err := cron.ParseStandard(cfg.Schedule.Backup); err != nil {
		return fmt.Errorf("invalid backup schedule %q: %w", cfg.Schedule.Backup, err)
	}

	if _, err := cron.ParseStandard(cfg.Schedule.RebootCheck); err != nil {
		return fmt.Errorf("invalid reboot-check schedule %q: %w", cfg.Schedule.RebootCheck, err)
	}

	required := []struct {
		name  string
		value string
	}{
		{"paths.binary", cfg.Paths.Binary},
		{"paths.backup_log", cfg.Paths.BackupLog},
		{"paths.reboot_log", cfg.Paths.RebootLog},
		{"paths.reboot_sentinel", cfg.Paths.RebootSentinel},
		{"paths.lock_file", cfg.Paths.LockFile},
	}

	for _, path := range required {
		if path.value == "" {
			return fmt.Errorf("%s: %w", path.name, errEmptyPath)
		}
	}

	return nil
}
