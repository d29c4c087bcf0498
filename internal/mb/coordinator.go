package mb

import (
	"fmt"
	"sync"
)

// ProcessLock serializes backup operations across processes sharing the
// same store. Shared holders may overlap; an exclusive holder may not.
type ProcessLock interface {
	LockShared() (release func() error, err error)
	LockExclusive() (release func() error, err error)
}

// Coordinator enforces the concurrency rule between operations on one store:
// exports may run alongside each other, an import runs alone. It never
// waits; a conflicting request fails with ErrBusy.
type Coordinator struct {
	mu   sync.RWMutex
	proc ProcessLock
}

// NewCoordinator returns a Coordinator. proc may be nil when only one
// process uses the store.
func NewCoordinator(proc ProcessLock) *Coordinator {
	return &Coordinator{proc: proc}
}

// BeginExport admits an export. The returned func releases it.
func (c *Coordinator) BeginExport() (func(), error) {
	if !c.mu.TryRLock() {
		return nil, fmt.Errorf("export: %w", ErrBusy)
	}
	if c.proc == nil {
		return c.mu.RUnlock, nil
	}
	release, err := c.proc.LockShared()
	if err != nil {
		c.mu.RUnlock()
		return nil, fmt.Errorf("export: %w: %v", ErrBusy, err)
	}
	return func() {
		_ = release()
		c.mu.RUnlock()
	}, nil
}

// BeginImport admits an import, excluding every other operation. The
// returned func releases it.
func (c *Coordinator) BeginImport() (func(), error) {
	if !c.mu.TryLock() {
		return nil, fmt.Errorf("import: %w", ErrBusy)
	}
	if c.proc == nil {
		return c.mu.Unlock, nil
	}
	release, err := c.proc.LockExclusive()
	if err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("import: %w: %v", ErrBusy, err)
	}
	return func() {
		_ = release()
		c.mu.Unlock()
	}, nil
}
