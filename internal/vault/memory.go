package vault

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"mbk-go/internal/mb"
)

type memoryObject struct {
	data       []byte
	modifiedAt time.Time
}

// MemoryVault is an in-memory implementation of the Vault interface.
// It keeps every backup in memory, making it useful for testing.
// This implementation is safe for concurrent use.
type MemoryVault struct {
	name    string
	now     func() time.Time
	objects map[string]memoryObject
	mu      sync.RWMutex
}

// NewMemoryVault creates a new in-memory vault with the given name.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name:    name,
		now:     time.Now,
		objects: make(map[string]memoryObject),
	}
}

// PutBackup stores a backup. An existing backup of the same name is replaced.
func (m *MemoryVault) PutBackup(ctx context.Context, name string, r io.Reader, size int64) error {
	if err := checkName(name); err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read backup: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[name] = memoryObject{data: data, modifiedAt: m.now()}
	return nil
}

// OpenBackup returns a reader over the stored bytes.
func (m *MemoryVault) OpenBackup(ctx context.Context, name string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", mb.ErrBackupNotFound, name)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (m *MemoryVault) BackupSize(ctx context.Context, name string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", mb.ErrBackupNotFound, name)
	}
	return int64(len(obj.data)), nil
}

// ListBackups returns the stored backups sorted by name. Generated names
// start with a UTC timestamp, so this is oldest first.
func (m *MemoryVault) ListBackups(ctx context.Context) ([]mb.BackupObject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]mb.BackupObject, 0, len(m.objects))
	for name, obj := range m.objects {
		list = append(list, mb.BackupObject{Name: name, Size: int64(len(obj.data)), ModifiedAt: obj.modifiedAt})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

// Corrupt flips one byte of a stored backup. Tests use it to simulate
// tampering in transit or at rest.
func (m *MemoryVault) Corrupt(name string, offset int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	obj, ok := m.objects[name]
	if !ok {
		return fmt.Errorf("%w: %s", mb.ErrBackupNotFound, name)
	}
	if offset < 0 || offset >= int64(len(obj.data)) {
		return fmt.Errorf("offset %d out of range", offset)
	}
	data := bytes.Clone(obj.data)
	data[offset] ^= 0xff
	m.objects[name] = memoryObject{data: data, modifiedAt: obj.modifiedAt}
	return nil
}

// ValidateSetup always succeeds for in-memory vault.
func (m *MemoryVault) ValidateSetup(ctx context.Context) error {
	return nil
}

// Compile-time check that MemoryVault implements mb.Vault interface
var _ mb.Vault = (*MemoryVault)(nil)
