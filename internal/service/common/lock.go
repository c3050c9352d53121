//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/vm-maintenance/internal/logger"
)

const (
	// lockFilePermissions restricts the lock file to its owner.
	lockFilePermissions = 0o600
	// lockDirPermissions is used when the lock directory has to be created.
	lockDirPermissions = 0o755
)

// ErrAlreadyRunning is returned when a live process holds the lock.
var ErrAlreadyRunning = errors.New("another run is in progress")

// RunLock is a PID file marking a procedure as running.
type RunLock struct {
	// path is the lock file location.
	path string
}

// AcquireRunLock creates the lock file at path holding the current PID.
// A lock left behind by a process that no longer exists is removed and
// acquisition is retried once.
func AcquireRunLock(ctx context.Context, path string) (*RunLock, error) {
	path = filepath.Clean(path)

	for attempt := 0; ; attempt++ {
		err := createLockFile(path)
		if err == nil {
			return &RunLock{path: path}, nil
		}

		if !errors.Is(err, os.ErrExist) || attempt > 0 {
			return nil, fmt.Errorf("create lock %s: %w", path, err)
		}

		pid, alive := lockOwner(path)
		if alive {
			return nil, fmt.Errorf("%w (pid %d, lock %s)", ErrAlreadyRunning, pid, path)
		}

		logger.WarnKV(ctx, "Removing stale run lock", "path", path, "pid", pid)

		if err = os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale lock %s: %w", path, err)
		}
	}
}

// Release removes the lock file.
func (l *RunLock) Release() error {
	if l == nil {
		return nil
	}

	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("release lock %s: %w", l.path, err)
	}

	return nil
}

// createLockFile writes the current PID into a new file, failing if it exists.
func createLockFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), lockDirPermissions); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, lockFilePermissions)
	if err != nil {
		return err
	}

	_, err = f.WriteString(strconv.Itoa(os.Getpid()))

	return errors.Join(err, f.Close())
}

// lockOwner reads the PID stored in the lock and reports whether that process exists.
// An unreadable lock counts as stale.
func lockOwner(path string) (int, bool) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(contents)))
	if err != nil || pid <= 0 {
		return 0, false
	}

	process, err := ps.FindProcess(pid)
	if err != nil {
		// Lookup failed: keep the lock rather than steal it.
		return pid, true
	}

	return pid, process != nil
}
