package lock

import (
	"errors"
	"os"
	"strings"
	"testing"
)

func newLock(t *testing.T) *FileLock {
	t.Helper()
	l, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return l
}

func TestExclusiveWritesPID(t *testing.T) {
	l := newLock(t)

	release, err := l.LockExclusive()
	if err != nil {
		t.Fatalf("LockExclusive() error = %v", err)
	}

	data, err := os.ReadFile(l.Path())
	if err != nil {
		t.Fatalf("read lock file: %v", err)
	}
	if got := parsePID(string(data)); got != os.Getpid() {
		t.Errorf("lock file pid = %d, want %d", got, os.Getpid())
	}

	if err := release(); err != nil {
		t.Errorf("release() error = %v", err)
	}
	if err := release(); err != nil {
		t.Errorf("second release() error = %v", err)
	}
}

func TestSharedHoldersOverlap(t *testing.T) {
	l := newLock(t)

	r1, err := l.LockShared()
	if err != nil {
		t.Fatalf("first LockShared() error = %v", err)
	}
	defer func() { _ = r1() }()

	r2, err := l.LockShared()
	if err != nil {
		t.Fatalf("second LockShared() error = %v", err)
	}
	defer func() { _ = r2() }()
}

func TestConflicts(t *testing.T) {
	tests := []struct {
		name   string
		first  func(*FileLock) (func() error, error)
		second func(*FileLock) (func() error, error)
	}{
		{"exclusive then shared", (*FileLock).LockExclusive, (*FileLock).LockShared},
		{"exclusive then exclusive", (*FileLock).LockExclusive, (*FileLock).LockExclusive},
		{"shared then exclusive", (*FileLock).LockShared, (*FileLock).LockExclusive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLock(t)
			release, err := tt.first(l)
			if err != nil {
				t.Fatalf("first lock error = %v", err)
			}

			_, err = tt.second(l)
			var held *LockHeldError
			if !errors.As(err, &held) {
				t.Fatalf("second lock error = %v, want LockHeldError", err)
			}
			if held.Path != l.Path() {
				t.Errorf("LockHeldError.Path = %q, want %q", held.Path, l.Path())
			}

			if err := release(); err != nil {
				t.Fatalf("release() error = %v", err)
			}
			again, err := tt.second(l)
			if err != nil {
				t.Fatalf("lock after release error = %v", err)
			}
			_ = again()
		})
	}
}

func TestLockHeldErrorMessage(t *testing.T) {
	withPID := (&LockHeldError{PID: 42, Path: "/x/LOCK"}).Error()
	if !strings.Contains(withPID, "PID 42") {
		t.Errorf("Error() = %q, want PID", withPID)
	}
	withoutPID := (&LockHeldError{Path: "/x/LOCK"}).Error()
	if strings.Contains(withoutPID, "PID") {
		t.Errorf("Error() = %q, want no PID", withoutPID)
	}
}

func TestParsePID(t *testing.T) {
	tests := []struct {
		content string
		want    int
	}{
		{"pid=123\ntime=2026-01-01T00:00:00Z\n", 123},
		{"time=x\npid=7\n", 7},
		{"", 0},
		{"pid=abc\n", 0},
	}
	for _, tt := range tests {
		if got := parsePID(tt.content); got != tt.want {
			t.Errorf("parsePID(%q) = %d, want %d", tt.content, got, tt.want)
		}
	}
}
