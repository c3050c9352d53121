package setup

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/robfig/cron/v3"

	"github.com/oshokin/vm-maintenance/internal/config"
)

// Host paths of the emitted files, relative to the target root.
const (
	UnattendedUpgradesPath = "etc/apt/apt.conf.d/50unattended-upgrades"
	AutoUpgradesPath       = "etc/apt/apt.conf.d/20auto-upgrades"
	CronPath               = "etc/cron.d/vm-maintenance"
	LogrotatePath          = "etc/logrotate.d/vm-maintenance"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

//nolint:gochecknoglobals // Parsed once from embedded files.
var templates = template.Must(template.ParseFS(templatesFS, "templates/*.tmpl"))

// File is one configuration document to be written.
type File struct {
	// Path is relative to the target root.
	Path string
	// Content is the rendered document.
	Content []byte
}

// templateData feeds the embedded templates.
type templateData struct {
	Binary         string
	Flags          string
	BackupSchedule string
	RebootSchedule string
	BackupLog      string
	RebootLog      string
}

// Render produces every file setup writes, in write order.
// Both schedules must parse as standard five-field cron specs. The cron
// entries pass configPath and envFile on so scheduled runs read the same
// settings setup was given.
func Render(cfg *config.Config, configPath, envFile string) ([]*File, error) {
	for _, spec := range []string{cfg.Schedule.Backup, cfg.Schedule.RebootCheck} {
		if _, err := cron.ParseStandard(spec); err != nil {
			return nil, fmt.Errorf("invalid cron schedule %q: %w", spec, err)
		}
	}

	data := &templateData{
		Binary:         cfg.Paths.Binary,
		Flags:          settingsFlags(configPath, envFile),
		BackupSchedule: cfg.Schedule.Backup,
		RebootSchedule: cfg.Schedule.RebootCheck,
		BackupLog:      cfg.Paths.BackupLog,
		RebootLog:      cfg.Paths.RebootLog,
	}

	sources := []struct {
		path string
		name string
	}{
		{UnattendedUpgradesPath, "50unattended-upgrades.tmpl"},
		{AutoUpgradesPath, "20auto-upgrades.tmpl"},
		{CronPath, "cron.tmpl"},
		{LogrotatePath, "logrotate.tmpl"},
	}

	files := make([]*File, 0, len(sources))

	for _, src := range sources {
		var buf bytes.Buffer
		if err := templates.ExecuteTemplate(&buf, src.name, data); err != nil {
			return nil, fmt.Errorf("render %s: %w", src.path, err)
		}

		files = append(files, &File{Path: src.path, Content: buf.Bytes()})
	}

	return files, nil
}

// settingsFlags renders the global flags pointing a run at its settings.
func settingsFlags(configPath, envFile string) string {
	if configPath == "" {
		configPath = config.DefaultConfigPath
	}

	flags := "--config " + configPath
	if envFile != "" {
		flags += " --env-file " + envFile
	}

	return flags
}

// writeFile writes f under root, creating parent directories.
func writeFile(root string, f *File) (string, error) {
	target := filepath.Join(root, filepath.FromSlash(f.Path))

	if err := os.MkdirAll(filepath.Dir(target), config.DefaultDirPermissions); err != nil {
		return target, fmt.Errorf("create directory for %s: %w", target, err)
	}

	if err := os.WriteFile(target, f.Content, config.DefaultFilePermissions); err != nil {
		return target, fmt.Errorf("write %s: %w", target, err)
	}

	return target, nil
}
