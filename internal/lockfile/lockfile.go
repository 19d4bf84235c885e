// Package lockfile guards the data directory against concurrent engine
// instances with an advisory file lock.
package lockfile

import (
	"os"
	"path/filepath"
)

const lockName = "switchyard.lock"

// Lock is a held data-directory lock. Release it when the instance exits;
// the operating system also drops it if the process dies.
type Lock struct {
	path string
	file *os.File
}

// Acquire takes the advisory lock for dataDir, creating the lock file if
// needed. A second instance gets ErrLocked immediately; there is no wait.
func Acquire(dataDir string) (*Lock, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dataDir, lockName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	if err := flock(f); err != nil {
		f.Close()
		return nil, err
	}
	return &Lock{path: path, file: f}, nil
}

// Release drops the lock. The lock file itself stays behind; its presence
// carries no meaning without the flock.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := funlock(l.file)
	if closeErr := l.file.Close(); err == nil {
		err = closeErr
	}
	l.file = nil
	return err
}

// Path returns the lock file location.
func (l *Lock) Path() string { return l.path }
