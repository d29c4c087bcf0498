// Package lock provides the advisory file lock that keeps backup operations
// of separate processes on the same store from overlapping.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"mbk-go/internal/mb"
)

// LockHeldError is returned when another process holds a conflicting lock.
type LockHeldError struct {
	PID  int
	Path string
}

func (e *LockHeldError) Error() string {
	if e.PID == 0 {
		return fmt.Sprintf("backup lock held by another process (%s)", e.Path)
	}
	return fmt.Sprintf("backup lock held by PID %d (%s)", e.PID, e.Path)
}

// FileLock is an mb.ProcessLock over a lock file in a directory. Shared
// holders are exports; an exclusive holder is an import and records its PID
// in the file for diagnostics.
type FileLock struct {
	path string
}

var _ mb.ProcessLock = (*FileLock)(nil)

// New returns a FileLock for dir/LOCK, creating dir if needed.
func New(dir string) (*FileLock, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	return &FileLock{path: filepath.Join(dir, "LOCK")}, nil
}

// Path returns the lock file path.
func (l *FileLock) Path() string {
	return l.path
}

// LockShared takes a shared lock without waiting.
func (l *FileLock) LockShared() (func() error, error) {
	return l.acquire(unix.LOCK_SH)
}

// LockExclusive takes an exclusive lock without waiting.
func (l *FileLock) LockExclusive() (func() error, error) {
	return l.acquire(unix.LOCK_EX)
}

func (l *FileLock) acquire(how int) (func() error, error) {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := unix.Flock(int(f.Fd()), how|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			// Read existing PID from file for diagnostics.
			data, _ := os.ReadFile(l.path)
			return nil, &LockHeldError{PID: parsePID(string(data)), Path: l.path}
		}
		return nil, fmt.Errorf("lock %s: %w", l.path, err)
	}

	if how == unix.LOCK_EX {
		if err := writeOwner(f); err != nil {
			_ = f.Close()
			return nil, err
		}
	}

	released := false
	return func() error {
		if released {
			return nil
		}
		released = true
		if how == unix.LOCK_EX {
			_ = f.Truncate(0)
		}
		// Closing the descriptor drops the flock.
		return f.Close()
	}, nil
}

func writeOwner(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	content := fmt.Sprintf("pid=%d\ntime=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	_, err := f.WriteString(content)
	return err
}

func parsePID(content string) int {
	for _, line := range strings.Split(content, "\n") {
		if after, ok := strings.CutPrefix(line, "pid="); ok {
			pid, _ := strconv.Atoi(after)
			return pid
		}
	}
	return 0
}
